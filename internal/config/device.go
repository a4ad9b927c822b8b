package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/liultimate/siglent-acq/internal/transport"
	"github.com/liultimate/siglent-acq/pkg/waveform"
)

// Reader refreshes a waveform.DeviceConfig snapshot over SCPI, in the
// fixed query order spec.md §4.3 mandates (arming depends on several of
// these fields matching what the scope actually reports, so the order
// is not cosmetic).
type Reader struct {
	t     transport.Transport
	model waveform.Model
}

func NewReader(t transport.Transport, model waveform.Model) *Reader {
	return &Reader{t: t, model: model}
}

// Refresh 按固定顺序查询并缓存示波器配置
func (r *Reader) Refresh() (*waveform.DeviceConfig, error) {
	cfg := &waveform.DeviceConfig{}
	n := r.model.AnalogChannels

	cfg.AnalogEnabled = make([]bool, n)
	for i := 0; i < n; i++ {
		q := transport.AnalogTraceQuery(i)
		v, err := r.t.GetBool(q)
		if err != nil {
			return nil, &waveform.ConfigReadError{Query: q, Err: err}
		}
		cfg.AnalogEnabled[i] = v
	}

	cfg.DigitalEnabled = make([]bool, 16)
	if r.model.HasDigital {
		q := transport.DigitalMasterQuery()
		v, err := r.t.GetBool(q)
		if err != nil {
			return nil, &waveform.ConfigReadError{Query: q, Err: err}
		}
		cfg.LAEnabled = v
		if v {
			for i := 0; i < 16; i++ {
				q := transport.DigitalTraceQuery(i)
				vv, err := r.t.GetBool(q)
				if err != nil {
					return nil, &waveform.ConfigReadError{Query: q, Err: err}
				}
				cfg.DigitalEnabled[i] = vv
			}
		}
	}

	{
		q := transport.TimebaseQuery()
		v, err := r.t.GetFloat(q)
		if err != nil {
			return nil, &waveform.ConfigReadError{Query: q, Err: err}
		}
		cfg.Timebase = v
	}

	cfg.Attenuation = make([]float64, n)
	for i := 0; i < n; i++ {
		q := transport.AttenuationQuery(i)
		v, err := r.t.GetFloat(q)
		if err != nil {
			return nil, &waveform.ConfigReadError{Query: q, Err: err}
		}
		cfg.Attenuation[i] = v
	}

	cfg.Vdiv = make([]float64, n)
	cfg.VertOffset = make([]float64, n)
	for i := 0; i < n; i++ {
		qv := transport.VdivQuery(i)
		v, err := r.t.GetFloat(qv)
		if err != nil {
			return nil, &waveform.ConfigReadError{Query: qv, Err: err}
		}
		cfg.Vdiv[i] = v

		qo := transport.VertOffsetQuery(i)
		o, err := r.t.GetFloat(qo)
		if err != nil {
			return nil, &waveform.ConfigReadError{Query: qo, Err: err}
		}
		cfg.VertOffset[i] = o
	}

	cfg.Coupling = make([]string, n)
	for i := 0; i < n; i++ {
		q := transport.CouplingQuery(i)
		v, err := r.t.GetString(q)
		if err != nil {
			return nil, &waveform.ConfigReadError{Query: q, Err: err}
		}
		cfg.Coupling[i] = v
	}

	if err := r.refreshTrigger(cfg); err != nil {
		return nil, err
	}

	if err := r.refreshMemoryDepth(cfg); err != nil {
		return nil, err
	}

	cfg.SampleRate = cfg.MemoryDepthAnalog / (cfg.Timebase * float64(r.model.HorizontalDivs))

	return cfg, nil
}

func (r *Reader) refreshTrigger(cfg *waveform.DeviceConfig) error {
	q := transport.TriggerSourceQuery()
	resp, err := r.t.GetString(q)
	if err != nil {
		return &waveform.ConfigReadError{Query: q, Err: err}
	}

	tokens := strings.Split(resp, ",")
	if len(tokens) < 4 {
		return &waveform.ConfigReadError{
			Query: q,
			Err:   fmt.Errorf("TRSE? 返回的逗号分隔字段不足4个: %q", resp),
		}
	}

	src := strings.TrimSpace(tokens[2])
	cfg.Trigger.Source = src

	// Horizontal trigger position, token[4] when present. The source's
	// us/ns scale factors look swapped from natural SI — preserved as
	// spec.md §4.3 documents, not "fixed" here.
	if len(tokens) > 4 {
		cfg.Trigger.HorizPos = decodeTriggerPos(strings.TrimSpace(tokens[4]))
	}

	qs := transport.TriggerSlopeQuery(src)
	slope, err := r.t.GetString(qs)
	if err != nil {
		return &waveform.ConfigReadError{Query: qs, Err: err}
	}
	cfg.Trigger.Slope = slope

	if strings.HasPrefix(src, "C") {
		ql := transport.TriggerLevelQuery(src)
		lvl, err := r.t.GetFloat(ql)
		if err != nil {
			return &waveform.ConfigReadError{Query: ql, Err: err}
		}
		cfg.Trigger.Level = lvl
	}

	return nil
}

// decodeTriggerPos applies the suffix scale factors from spec.md §4.3.
func decodeTriggerPos(tok string) float64 {
	lower := strings.ToLower(tok)
	var numPart string
	var scale float64
	switch {
	case strings.HasSuffix(lower, "us"):
		numPart, scale = tok[:len(tok)-2], 1e9
	case strings.HasSuffix(lower, "ns"):
		numPart, scale = tok[:len(tok)-2], 1e6
	case strings.HasSuffix(lower, "ms"):
		numPart, scale = tok[:len(tok)-2], 1e3
	case strings.HasSuffix(lower, "s"):
		numPart, scale = tok[:len(tok)-1], 1
	default:
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(numPart), 64)
	if err != nil {
		return 0
	}
	if scale == 1 {
		return v
	}
	return v / scale
}

func (r *Reader) refreshMemoryDepth(cfg *waveform.DeviceConfig) error {
	switch r.model.Family {
	case waveform.FamilySpo, waveform.FamilyNonSpo:
		q := transport.MemoryDepthQuery("C1")
		s, err := r.t.GetString(q)
		if err != nil {
			return &waveform.ConfigReadError{Query: q, Err: err}
		}
		depth, err := parseScaledPoints(s)
		if err != nil {
			return &waveform.ConfigReadError{Query: q, Err: err}
		}
		cfg.MemoryDepthAnalog = depth
	case waveform.FamilyEseries:
		q := transport.MemoryDepthQuery("C1")
		v, err := r.t.GetFloat(q)
		if err != nil {
			return &waveform.ConfigReadError{Query: q, Err: err}
		}
		cfg.MemoryDepthAnalog = v
		if cfg.LAEnabled {
			qd := transport.MemoryDepthQuery("D0")
			vd, err := r.t.GetFloat(qd)
			if err != nil {
				return &waveform.ConfigReadError{Query: qd, Err: err}
			}
			cfg.MemoryDepthDigital = vd
		}
	}
	return nil
}

// parseScaledPoints parses a "Mpts"/"Kpts"-suffixed sample count. Kpts
// scales by 1e4, not 1e3 — matches the source's observed convention
// (see spec.md §4.3 and §9), preserved rather than corrected.
func parseScaledPoints(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(s, "Mpts"):
		f, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-4]), 64)
		if err != nil {
			return 0, err
		}
		return f * 1e6, nil
	case strings.HasSuffix(s, "Kpts"):
		f, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-4]), 64)
		if err != nil {
			return 0, err
		}
		return f * 1e4, nil
	default:
		return strconv.ParseFloat(s, 64)
	}
}
