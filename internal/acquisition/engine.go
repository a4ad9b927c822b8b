// Package acquisition implements the cooperative acquisition state
// machine (spec.md §4.4), the wave-block reader/decoder (§4.5), and the
// frame/channel sequencer (§4.6). It owns no goroutines or timers of
// its own beyond the short sleeps the state machine itself calls for;
// an external runner drives it by calling Tick in a loop, the same
// hand-rolled-coroutine shape the source uses instead of a thread per
// acquisition.
package acquisition

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liultimate/siglent-acq/internal/config"
	"github.com/liultimate/siglent-acq/internal/emitter"
	"github.com/liultimate/siglent-acq/internal/models"
	"github.com/liultimate/siglent-acq/internal/monitor"
	"github.com/liultimate/siglent-acq/internal/transport"
	"github.com/liultimate/siglent-acq/pkg/waveform"
)

// Status is Tick's report to the runner: whether to call Tick again,
// whether the acquisition ended (successfully or not).
type Status int

const (
	NeedIO Status = iota
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case NeedIO:
		return "need_io"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const waitTimeout = 3 * time.Second

// Engine runs one acquisition against an injected Transport, publishing
// to an injected Emitter. It owns no I/O beyond calling those two
// capabilities, and no goroutines of its own.
type Engine struct {
	transport transport.Transport
	emitter   emitter.Emitter
	log       *logrus.Logger
	metrics   *monitor.Metrics

	model  waveform.Model
	source waveform.DataSource

	cfg     *waveform.DeviceConfig
	state   *waveform.AcquisitionState
	inFrame bool

	waitStart time.Time

	onStop func(err error)

	// WaitTimeout and PollInterval default to the production values
	// (3s / 10ms) but are exported so a test can shrink them instead
	// of burning real wall-clock time on a timeout scenario.
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// NewEngine builds an Engine for one model/data-source combination. log
// and metrics may be nil; both are optional ambient dependencies.
func NewEngine(t transport.Transport, em emitter.Emitter, log *logrus.Logger, model waveform.Model, source waveform.DataSource) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		transport:    t,
		emitter:      em,
		log:          log,
		model:        model,
		source:       source,
		WaitTimeout:  waitTimeout,
		PollInterval: 10 * time.Millisecond,
	}
}

// SetMetrics wires a Metrics instance; omit for tests that don't care.
func (e *Engine) SetMetrics(m *monitor.Metrics) { e.metrics = m }

// OnStop registers a hook invoked once, with the terminal error (nil on
// success), right before Tick reports Done or Failed, or from Stop with
// a nil error. cmd/acqtool uses this to persist a RunRecord through
// internal/archive without the engine importing it.
func (e *Engine) OnStop(fn func(err error)) { e.onStop = fn }

// Running reports whether an acquisition is in progress.
func (e *Engine) Running() bool { return e.state != nil }

// Frames reports how many frames have been fully emitted so far. Safe
// to call from an OnStop callback, which runs before state is cleared.
func (e *Engine) Frames() uint64 {
	if e.state == nil {
		return 0
	}
	return e.state.NumFrames
}

// Start refreshes device configuration, builds the enabled-channel
// list, arms the first frame per spec.md §4.4, and opens frame 0.
// limitFrames is the caller's requested frame count; Eseries/Spo
// history modes may override it once the scope reports how many frames
// actually exist, and Eseries screen and read-only modes force it to 1.
func (e *Engine) Start(limitFrames uint64) error {
	reader := config.NewReader(e.transport, e.model)
	cfg, err := reader.Refresh()
	if err != nil {
		return err
	}
	e.cfg = cfg

	channels := buildEnabledChannels(cfg)
	if len(channels) == 0 {
		return &waveform.ProtocolError{Reason: "没有启用的通道"}
	}

	e.state = &waveform.AcquisitionState{
		EnabledChannels: channels,
		LimitFrames:     limitFrames,
	}

	if err := e.armPerFamily(); err != nil {
		e.state = nil
		return err
	}

	e.emitter.SendFrameBegin()
	e.inFrame = true
	if e.metrics != nil {
		e.metrics.ActiveAcquisitions.Inc()
	}
	return nil
}

func buildEnabledChannels(cfg *waveform.DeviceConfig) []waveform.ChannelID {
	var out []waveform.ChannelID
	for i, en := range cfg.AnalogEnabled {
		if en {
			out = append(out, waveform.ChannelID{Kind: waveform.ChannelAnalog, Index: i})
		}
	}
	if cfg.LAEnabled {
		out = append(out, waveform.ChannelID{Kind: waveform.ChannelDigital, Index: -1})
	}
	return out
}

// Stop cancels an in-progress acquisition from outside the state
// machine (the runner's SIGINT/SIGTERM path, not a protocol failure).
func (e *Engine) Stop() {
	if e.state == nil {
		return
	}
	if e.inFrame {
		e.emitter.SendFrameEnd()
		e.inFrame = false
	}
	if e.model.Family == waveform.FamilyEseries && e.source == waveform.SourceHistory && e.state.CloseHistory {
		_ = e.transport.Send(transport.HsmdOffCommand())
	}
	e.stopInternal(nil)
}

// Tick performs one bounded unit of work: at most one wait-predicate
// poll, or one payload chunk (≤10 KiB) of the current channel, or one
// frame/channel boundary transition. The runner calls it repeatedly
// until it reports Done or Failed.
func (e *Engine) Tick() (Status, error) {
	if e.state == nil {
		return Failed, &waveform.ProtocolError{Reason: "采集未开始"}
	}

	switch e.state.WaitEvent {
	case waveform.WaitNone:
		// fall through to channel processing below
	case waveform.WaitTrigger:
		status, err, done := e.waitTrigger()
		if err != nil {
			return e.fail(err)
		}
		if !done {
			return status, nil
		}
		if err := e.channelStart(); err != nil {
			return e.fail(err)
		}
	case waveform.WaitStop:
		status, err, done := e.waitStop()
		if err != nil {
			return e.fail(err)
		}
		if !done {
			return status, nil
		}
		if err := e.channelStart(); err != nil {
			return e.fail(err)
		}
	case waveform.WaitBlock:
		if err := e.channelStart(); err != nil {
			return e.fail(err)
		}
	default:
		return e.fail(&waveform.ProtocolError{Reason: "未知的等待事件"})
	}

	return e.processChannel()
}

func (e *Engine) setWait(w waveform.WaitEvent) {
	e.state.WaitEvent = w
	if w == waveform.WaitTrigger || w == waveform.WaitStop {
		e.waitStart = time.Now()
		if w == waveform.WaitTrigger {
			e.state.WaitStatus = 1
		} else {
			e.state.WaitStatus = 2
		}
	}
}

func (e *Engine) waitTrigger() (Status, error, bool) {
	v, err := e.transport.GetInt(transport.InrQuery())
	if err != nil {
		return Failed, &waveform.TransportError{Op: "INR?", Err: err}, false
	}
	if v&1 == 1 {
		e.recordWaitLatency()
		e.postTriggerSettle()
		e.state.WaitEvent = waveform.WaitNone
		return NeedIO, nil, true
	}
	if time.Since(e.waitStart) >= e.WaitTimeout {
		if e.metrics != nil {
			e.metrics.TimeoutsTotal.WithLabelValues("trigger").Inc()
		}
		return Failed, &waveform.TimeoutError{Event: waveform.WaitTrigger}, false
	}
	time.Sleep(e.PollInterval)
	return NeedIO, nil, false
}

func (e *Engine) waitStop() (Status, error, bool) {
	var stopped bool
	if e.model.Family == waveform.FamilyEseries {
		v, err := e.transport.GetString(transport.TrmdQuery())
		if err != nil {
			return Failed, &waveform.TransportError{Op: ":TRMD?", Err: err}, false
		}
		stopped = v == "STOP"
	} else {
		v, err := e.transport.GetInt(transport.InrQuery())
		if err != nil {
			return Failed, &waveform.TransportError{Op: "INR?", Err: err}, false
		}
		stopped = v&1 == 1
	}
	if stopped {
		e.recordWaitLatency()
		e.state.WaitEvent = waveform.WaitNone
		return NeedIO, nil, true
	}
	if time.Since(e.waitStart) >= e.WaitTimeout {
		if e.metrics != nil {
			e.metrics.TimeoutsTotal.WithLabelValues("stop").Inc()
		}
		return Failed, &waveform.TimeoutError{Event: waveform.WaitStop}, false
	}
	time.Sleep(e.PollInterval)
	return NeedIO, nil, false
}

func (e *Engine) recordWaitLatency() {
	if e.metrics != nil {
		e.metrics.WaitLatency.Observe(time.Since(e.waitStart).Seconds())
	}
}

// postTriggerSettle sleeps off roughly the portion of the sweep the
// scope is still drawing when INR? first reports trigger-ready.
// timebase*divs*1000 is µs, reproduced exactly as the source computes
// it — not obviously "85% of sweep" by inspection, kept as observed.
func (e *Engine) postTriggerSettle() {
	if e.cfg.Timebase <= 0 {
		return
	}
	usec := e.cfg.Timebase * float64(e.model.HorizontalDivs) * 1000
	if usec <= 0 {
		return
	}
	time.Sleep(time.Duration(int64(usec)) * time.Microsecond)
}

// armPerFamily implements spec.md §4.4's Idle→Arming branch table. It
// is called once from Start and again, for non-Eseries families, at
// the start of every frame after the first.
func (e *Engine) armPerFamily() error {
	e.state.ChannelCursor = 0
	e.state.RetryCount = 0

	switch e.model.Family {
	case waveform.FamilySpo:
		return e.armSpo()
	case waveform.FamilyEseries:
		return e.armEseries()
	default:
		e.setWait(waveform.WaitTrigger)
		return nil
	}
}

func (e *Engine) armSpo() error {
	switch e.source {
	case waveform.SourceScreen:
		if err := e.transport.Send(transport.ArmCommand()); err != nil {
			return &waveform.TransportError{Op: "ARM", Err: err}
		}
		v, err := e.transport.GetInt(transport.InrQuery())
		if err != nil {
			return &waveform.TransportError{Op: "INR?", Err: err}
		}
		switch v {
		case models.DeviceStateTrigRdy:
			e.setWait(waveform.WaitTrigger)
		case models.DeviceStateDataTrigRdy:
			e.setWait(waveform.WaitBlock)
		default:
			return &waveform.ProtocolError{Reason: fmt.Sprintf("示波器未进入ARM状态 (INR?=%d)", v)}
		}
		return nil
	case waveform.SourceHistory:
		if err := e.transport.Send(transport.FrameParamsQuery()); err != nil {
			return &waveform.TransportError{Op: "FPAR?", Err: err}
		}
		hdr := make([]byte, 200)
		n := e.transport.ReadData(hdr)
		if n < 0 {
			return &waveform.TransportError{Op: "read_data(FPAR?)", Err: fmt.Errorf("读取帧参数失败")}
		}
		if n < 44 {
			return &waveform.ProtocolError{Reason: "FPAR?响应过短"}
		}
		total := decodeLE32(hdr[40:44])
		if e.state.LimitFrames == 0 {
			e.state.LimitFrames = uint64(total)
		}
		if err := e.transport.Send(transport.SetFrameCommand(e.state.NumFrames + 1)); err != nil {
			return &waveform.TransportError{Op: "FRAM", Err: err}
		}
		e.setWait(waveform.WaitStop)
		return nil
	default: // SourceReadOnly
		e.setWait(waveform.WaitStop)
		return nil
	}
}

func (e *Engine) armEseries() error {
	switch e.source {
	case waveform.SourceScreen:
		e.state.LimitFrames = 1
		e.state.CloseHistory = false
		if err := e.transport.Send(transport.TrmdSingleCommand()); err != nil {
			return &waveform.TransportError{Op: ":TRMD SINGLE", Err: err}
		}
		e.setWait(waveform.WaitStop)
		return nil
	case waveform.SourceHistory:
		trmd, err := e.transport.GetString(transport.TrmdQuery())
		if err != nil {
			return &waveform.TransportError{Op: ":TRMD?", Err: err}
		}
		e.state.CloseHistory = trmd != "STOP"

		hsmd, err := e.transport.GetString(transport.HsmdQuery())
		if err != nil {
			return &waveform.TransportError{Op: ":HSMD?", Err: err}
		}
		if hsmd == "OFF" {
			if err := e.transport.Send(transport.HsmdOnCommand()); err != nil {
				return &waveform.TransportError{Op: ":HSMD ON", Err: err}
			}
		} else {
			if err := e.transport.Send(transport.SetFrameForceMax()); err != nil {
				return &waveform.TransportError{Op: ":FRAM 10000000", Err: err}
			}
		}
		total, err := e.transport.GetInt(transport.FrameQuery())
		if err != nil {
			return &waveform.TransportError{Op: ":FRAM?", Err: err}
		}
		if total < 1 {
			return &waveform.ProtocolError{Reason: "历史模式报告的帧数小于1"}
		}
		e.state.LimitFrames = uint64(total)
		if err := e.transport.Send(transport.SetFrameCommand(1)); err != nil {
			return &waveform.TransportError{Op: "FRAM 1", Err: err}
		}
		e.setWait(waveform.WaitStop)
		return nil
	default: // SourceReadOnly
		e.state.CloseHistory = false
		e.state.LimitFrames = 1
		e.setWait(waveform.WaitStop)
		return nil
	}
}

// channelStart issues the per-channel fetch command and resets the
// block/header counters. The digital bulk fetch (§4.5) has no
// single-channel fetch command of its own — the whole pass happens
// inside processDigitalChannel — so this is a no-op for the synthetic
// digital channel entry.
func (e *Engine) channelStart() error {
	ch := e.currentChannel()
	if ch.Kind == waveform.ChannelAnalog {
		if err := e.transport.Send(transport.AnalogFetchCommand(ch.Index)); err != nil {
			return &waveform.TransportError{Op: "WF? ALL", Err: err}
		}
	}
	e.state.NumHeaderBytes = 0
	e.state.NumBlockBytes = 0
	e.state.NumBlockRead = 0
	e.state.WaitEvent = waveform.WaitNone
	return nil
}

func (e *Engine) currentChannel() waveform.ChannelID {
	return e.state.EnabledChannels[e.state.ChannelCursor]
}

func (e *Engine) processChannel() (Status, error) {
	ch := e.currentChannel()
	if ch.Kind == waveform.ChannelAnalog {
		return e.processAnalogChannel(ch)
	}
	return e.processDigitalChannel()
}

func (e *Engine) advanceChannel() (Status, error) {
	e.state.ChannelCursor++
	if e.state.ChannelCursor < len(e.state.EnabledChannels) {
		e.state.WaitEvent = waveform.WaitBlock
		return NeedIO, nil
	}
	return e.finishFrame()
}

func (e *Engine) finishFrame() (Status, error) {
	e.emitter.SendFrameEnd()
	e.inFrame = false
	e.state.NumFrames++
	if e.metrics != nil {
		e.metrics.FramesEmitted.Inc()
	}

	if e.state.NumFrames >= e.state.LimitFrames {
		if e.model.Family == waveform.FamilyEseries && e.source == waveform.SourceHistory && e.state.CloseHistory {
			if err := e.transport.Send(transport.HsmdOffCommand()); err != nil {
				e.log.Warnf("关闭历史模式失败: %v", err)
			}
		}
		e.stopInternal(nil)
		return Done, nil
	}

	e.state.ChannelCursor = 0
	if e.model.Family == waveform.FamilyEseries {
		if err := e.transport.Send(transport.SetFrameCommand(e.state.NumFrames + 1)); err != nil {
			return e.fail(&waveform.TransportError{Op: "FRAM", Err: err})
		}
		e.state.WaitEvent = waveform.WaitBlock
	} else {
		if err := e.armPerFamily(); err != nil {
			return e.fail(err)
		}
	}
	e.emitter.SendFrameBegin()
	e.inFrame = true
	return NeedIO, nil
}

func (e *Engine) fail(err error) (Status, error) {
	if e.inFrame {
		e.emitter.SendFrameEnd()
		e.inFrame = false
	}
	e.stopInternal(err)
	return Failed, err
}

func (e *Engine) stopInternal(err error) {
	e.emitter.SendEnd()
	e.emitter.StopAcquisition()
	if e.metrics != nil {
		e.metrics.ActiveAcquisitions.Dec()
	}
	if e.onStop != nil {
		e.onStop(err)
	}
	e.state = nil
}

func decodeLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
