package acquisition

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/liultimate/siglent-acq/internal/transport"
	"github.com/liultimate/siglent-acq/pkg/waveform"
)

// HeaderSize (SIGLENT_HEADER_SIZE) is the fixed initial read ahead of
// analog sample data: a 15-byte preamble (block name/type/length tags
// the driver never inspects) followed by the fixed prefix of WAVEDESC,
// carrying desc_length at offset 36 and data_length at offset 60
// (both little-endian u32, counted from WAVEDESC's own start). The
// descriptor can run longer than this fixed prefix — desc_length
// reports its true length, including optional user-text/trigger-time
// blocks the reader has to skip before payload data starts.
const (
	preambleSize    = 15
	HeaderSize      = 363
	descLengthOff   = 36
	dataLengthOff   = 60
	maxChunkBytes   = 10240
	maxStallRetries = 5
	stallSleep      = time.Millisecond
	emptyWaveSleep  = 100 * time.Millisecond
)

// DecodeHeader parses a HeaderSize-byte wave descriptor buffer and
// returns descLength and dataLength, exported so offline tools (e.g.
// cmd/wavedump) can parse a captured header without an Engine.
func DecodeHeader(buf []byte) (descLength, dataLength int, err error) {
	if len(buf) < HeaderSize {
		return 0, 0, fmt.Errorf("头部长度%d小于%d字节", len(buf), HeaderSize)
	}
	desc := buf[preambleSize:]
	descLength = int(binary.LittleEndian.Uint32(desc[descLengthOff : descLengthOff+4]))
	dataLength = int(binary.LittleEndian.Uint32(desc[dataLengthOff : dataLengthOff+4]))
	return descLength, dataLength, nil
}

// BlockHeaderSize returns the true header size (fixed prefix plus any
// optional user-text/trigger-time trailer) given a parsed descLength.
func BlockHeaderSize(descLength int) int { return descLength + preambleSize }

// DecodeAnalogSample applies the signed-byte decoding law (spec.md §8
// property 3): voltage = vdiv*(s/25.0) - vert_offset.
func DecodeAnalogSample(b byte, vdiv, vertOffset float64) float32 {
	return float32(vdiv*(float64(int8(b))/25.0) - vertOffset)
}

// chunkResult is streamPayloadChunk's verdict for the current Tick.
type chunkResult int

const (
	chunkContinue chunkResult = iota // more payload remains this block
	chunkComplete                    // block fully read, verify terminator next
	chunkYield                       // retry scheduled, wait_event already set
	chunkSkip                        // empty-waveform retries exhausted, skip channel
)

func (e *Engine) processAnalogChannel(ch waveform.ChannelID) (Status, error) {
	if e.state.NumHeaderBytes == 0 {
		if err := e.preReadWait(); err != nil {
			return e.fail(err)
		}
		if err := e.readHeader(ch); err != nil {
			return e.fail(err)
		}
	}

	result, err := e.streamPayloadChunk(ch)
	if err != nil {
		return e.fail(err)
	}

	switch result {
	case chunkYield:
		return NeedIO, nil
	case chunkSkip:
		e.log.Warnf("通道 %s 空波形，已重试耗尽，跳过", ch)
		if e.metrics != nil {
			e.metrics.ChannelsSkipped.Inc()
		}
		return e.advanceChannel()
	case chunkContinue:
		return NeedIO, nil
	}

	if err := e.finishBlock(); err != nil {
		return e.fail(err)
	}
	return e.advanceChannel()
}

// preReadWait issues read_begin and a pre-read settle sleep, in the
// order and with the formula the family uses — Eseries opens the read
// channel first and bounds its sleep at 10ms; NonSpo/Spo sleep first,
// scaled off the expected payload size, then opens the read channel.
func (e *Engine) preReadWait() error {
	if e.model.Family == waveform.FamilyEseries {
		if err := e.transport.ReadBegin(); err != nil {
			return &waveform.TransportError{Op: "read_begin", Err: err}
		}
		usec := e.cfg.Timebase * float64(e.model.HorizontalDivs) * 100000
		if usec > 10000 {
			usec = 10000
		}
		if usec > 0 {
			time.Sleep(time.Duration(int64(usec)) * time.Microsecond)
		}
		return nil
	}

	usec := e.cfg.MemoryDepthAnalog * 2.5
	if usec > 0 {
		time.Sleep(time.Duration(int64(usec)) * time.Microsecond)
	}
	if err := e.transport.ReadBegin(); err != nil {
		return &waveform.TransportError{Op: "read_begin", Err: err}
	}
	return nil
}

// readHeader reads the fixed-size wave descriptor in a tight loop (no
// retry envelope — a short read here is always fatal) and extracts
// desc_length/data_length, per spec.md §4.5.
func (e *Engine) readHeader(ch waveform.ChannelID) error {
	buf := make([]byte, HeaderSize)
	total := 0
	for total < HeaderSize {
		n := e.transport.ReadData(buf[total:])
		if n < 0 {
			return &waveform.TransportError{Op: "read_data(header)", Err: fmt.Errorf("读取波形头部时传输层返回错误")}
		}
		if n == 0 {
			return &waveform.TransportError{Op: "read_data(header)", Err: fmt.Errorf("响应在头部读取完成前结束")}
		}
		total += n
	}
	e.state.NumHeaderBytes = total

	descLength, dataLength, err := DecodeHeader(buf)
	if err != nil {
		return &waveform.MalformedHeaderError{Reason: err.Error()}
	}

	if blockHeaderSize := BlockHeaderSize(descLength); blockHeaderSize > HeaderSize {
		if err := e.skipHeaderTrailer(blockHeaderSize - HeaderSize); err != nil {
			return err
		}
	}

	if dataLength == 0 {
		tail := make([]byte, 3)
		n := e.transport.ReadData(tail)
		if n == 2 {
			return &waveform.EmptyWaveformError{Channel: ch}
		}
		return &waveform.MalformedHeaderError{Reason: "data_length为0，且末尾不是两字节换行符"}
	}

	e.state.NumSamples = dataLength
	e.state.NumBlockBytes = 0
	e.state.NumBlockRead = 0
	return nil
}

// skipHeaderTrailer consumes the optional user-text/trigger-time
// blocks that follow the fixed WAVEDESC prefix, bounded by desc_length
// (spec.md §4.5). Never retried — a short read here is fatal, same as
// the fixed-prefix read in readHeader.
func (e *Engine) skipHeaderTrailer(n int) error {
	tmp := make([]byte, 4096)
	skipped := 0
	for skipped < n {
		req := n - skipped
		if req > len(tmp) {
			req = len(tmp)
		}
		got := e.transport.ReadData(tmp[:req])
		if got <= 0 {
			return &waveform.TransportError{Op: "read_data(header-trailer)", Err: fmt.Errorf("跳过可选描述块时读取失败")}
		}
		skipped += got
	}
	e.state.NumHeaderBytes += skipped
	return nil
}

// streamPayloadChunk reads up to one 10 KiB chunk of the current
// channel's payload. A negative ReadData result is a transient USBTMC
// stall: retried up to 5 times at 1ms. A 2-byte read with no bytes
// read yet for this block means the promised waveform never arrived:
// retried up to 5 times at 100ms, re-running the whole channel fetch
// each time, before the channel is given up on.
func (e *Engine) streamPayloadChunk(ch waveform.ChannelID) (chunkResult, error) {
	remaining := e.state.NumSamples - e.state.NumBlockBytes
	if remaining < 0 {
		return chunkContinue, &waveform.ProtocolError{Reason: "剩余字节数为负"}
	}
	if remaining == 0 {
		return chunkComplete, nil
	}

	budget := remaining
	if budget > maxChunkBytes {
		budget = maxChunkBytes
	}

	buf := make([]byte, 4096)
	read := 0
	for read < budget {
		req := budget - read
		if req > len(buf) {
			req = len(buf)
		}
		n := e.transport.ReadData(buf[:req])

		switch {
		case n < 0:
			if read > 0 {
				// Partial chunk already decoded this tick; yield and
				// let the next tick resume the stall retry.
				return chunkContinue, nil
			}
			if e.state.RetryCount >= maxStallRetries {
				return chunkContinue, &waveform.TransportError{Op: "read_data", Err: fmt.Errorf("USBTMC读取连续失败，已重试%d次", maxStallRetries)}
			}
			e.state.RetryCount++
			if e.metrics != nil {
				e.metrics.RetriesTotal.WithLabelValues("stall").Inc()
			}
			time.Sleep(stallSleep)
			return chunkYield, nil

		case n == 0:
			return chunkContinue, &waveform.ProtocolError{Reason: "响应在有效载荷读取完成前结束"}

		case n == 2 && e.state.NumBlockRead == 0:
			if e.state.RetryCount >= maxStallRetries {
				return chunkSkip, nil
			}
			e.state.RetryCount++
			if e.metrics != nil {
				e.metrics.RetriesTotal.WithLabelValues("empty_waveform").Inc()
			}
			time.Sleep(emptyWaveSleep)
			e.state.WaitEvent = waveform.WaitBlock
			return chunkYield, nil

		default:
			e.appendSamples(ch, buf[:n])
			read += n
			e.state.NumBlockBytes += n
			e.state.NumBlockRead++
			e.state.RetryCount = 0
		}
	}

	if e.state.NumBlockBytes >= e.state.NumSamples {
		return chunkComplete, nil
	}
	return chunkContinue, nil
}

// finishBlock verifies the two-byte terminator the scope appends after
// every payload and the transport's own end-of-response signal.
func (e *Engine) finishBlock() error {
	term := make([]byte, 3)
	n := e.transport.ReadData(term)
	if n != 2 {
		return &waveform.MalformedHeaderError{Reason: fmt.Sprintf("期望2字节终止符，实际读取%d字节", n)}
	}
	if !e.transport.ReadComplete() {
		return &waveform.ProtocolError{Reason: "read_complete返回false"}
	}
	e.state.NumHeaderBytes = 0
	e.state.NumBlockBytes = 0
	e.state.NumBlockRead = 0
	return nil
}

// appendSamples decodes one chunk of signed-byte analog samples into
// volts (voltage = vdiv*(s/25.0) - vert_offset) and publishes it.
func (e *Engine) appendSamples(ch waveform.ChannelID, data []byte) {
	vdiv := e.cfg.Vdiv[ch.Index]
	offset := e.cfg.VertOffset[ch.Index]

	samples := make([]float32, len(data))
	for i, b := range data {
		samples[i] = DecodeAnalogSample(b, vdiv, offset)
	}

	e.emitter.SendAnalog(ch.Index, samples, waveform.Meaning{
		MQ:     "voltage",
		Unit:   "volt",
		Digits: digitsFor(vdiv),
	})
	if e.metrics != nil {
		e.metrics.BytesDecoded.Add(float64(len(data)))
	}
}

func digitsFor(vdiv float64) int {
	d := int(math.Floor(-math.Log10(vdiv)))
	if vdiv < 1 {
		d++
	}
	return d
}

// processDigitalChannel performs the whole bulk digital fetch (§4.5)
// in one pass: every enabled logic channel is queried in turn, each
// reply's single data byte per 8 samples is bit-transposed into the
// low (D0-D7) or high (D8-D15) 8-bit bank, and the two banks are
// interleaved 2 bytes/sample before publishing. The source does this
// synchronously too — there is no per-channel retry envelope here.
func (e *Engine) processDigitalChannel() (Status, error) {
	depth := int(e.cfg.MemoryDepthDigital)
	if depth <= 0 {
		return e.advanceChannel()
	}

	low := make([]byte, depth)
	high := make([]byte, depth)
	var haveLow, haveHigh bool

	for i := 0; i < 16; i++ {
		if !e.cfg.DigitalEnabled[i] {
			continue
		}
		if err := e.transport.Send(transport.DigitalFetchBulkCommand(i)); err != nil {
			return e.fail(&waveform.TransportError{Op: "D:WF? DAT2", Err: err})
		}
		if err := e.transport.ReadBegin(); err != nil {
			return e.fail(&waveform.TransportError{Op: "read_begin", Err: err})
		}

		raw := make([]byte, preambleSize+(depth+7)/8)
		n := e.transport.ReadData(raw)
		if n < preambleSize {
			return e.fail(&waveform.TransportError{Op: "read_data(digital)", Err: fmt.Errorf("数字通道数据长度%d过短", n)})
		}
		payload := raw[preambleSize:n]

		bank, bit, have := low, i, &haveLow
		if i >= 8 {
			bank, bit, have = high, i-8, &haveHigh
		}
		*have = true

		for k := 0; k < depth; k++ {
			byteIdx := k >> 3
			if byteIdx >= len(payload) {
				break
			}
			if (payload[byteIdx]>>uint(k&7))&1 == 1 {
				bank[k] |= 1 << uint(bit)
			}
		}
	}

	dig := make([]byte, 2*depth)
	for k := 0; k < depth; k++ {
		if haveLow {
			dig[2*k] = low[k]
		}
		if haveHigh {
			dig[2*k+1] = high[k]
		}
	}
	e.state.DigBuffer = dig

	e.emitter.SendLogic(dig, 2)
	if e.metrics != nil {
		e.metrics.BytesDecoded.Add(float64(len(dig)))
	}

	return e.advanceChannel()
}
