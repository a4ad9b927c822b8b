package emitter

import "github.com/liultimate/siglent-acq/pkg/waveform"

// AnalogBatch and LogicBatch record one SendAnalog/SendLogic call.
type AnalogBatch struct {
	Channel int
	Samples []float32
	Meaning waveform.Meaning
}

type LogicBatch struct {
	Packed   []byte
	UnitSize int
}

// Collecting is an in-memory Emitter used by the tests and, as a
// fallback when Redis is unreachable, by cmd/acqtool — the same
// stub-per-interface shape used across the corpus's tests instead of a
// mocking framework. It counts frame boundaries and keeps analog and
// logic batches in call order; the order of boundaries relative to
// batches is not recorded.
type Collecting struct {
	FrameBegins int
	FrameEnds   int
	Analog      []AnalogBatch
	Logic       []LogicBatch
	Ended       bool
	Stopped     bool
}

func NewCollecting() *Collecting { return &Collecting{} }

func (c *Collecting) SendFrameBegin() { c.FrameBegins++ }
func (c *Collecting) SendFrameEnd()   { c.FrameEnds++ }

func (c *Collecting) SendAnalog(channel int, samples []float32, meaning waveform.Meaning) {
	cp := make([]float32, len(samples))
	copy(cp, samples)
	c.Analog = append(c.Analog, AnalogBatch{Channel: channel, Samples: cp, Meaning: meaning})
}

func (c *Collecting) SendLogic(packed []byte, unitSize int) {
	cp := make([]byte, len(packed))
	copy(cp, packed)
	c.Logic = append(c.Logic, LogicBatch{Packed: cp, UnitSize: unitSize})
}

func (c *Collecting) SendEnd()         { c.Ended = true }
func (c *Collecting) StopAcquisition() { c.Stopped = true }
