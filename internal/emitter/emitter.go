// Package emitter defines the injected session-data sink (spec.md §4.7)
// and ships two implementations: a Redis pub/sub publisher grounded on
// the corpus's MessageQueue, and an in-memory collector for tests.
package emitter

import "github.com/liultimate/siglent-acq/pkg/waveform"

// Emitter is the capability the acquisition engine calls to publish
// frame boundaries and decoded sample batches. It owns no acquisition
// state; the engine decides what and when, the emitter only ships it.
type Emitter interface {
	SendFrameBegin()
	SendFrameEnd()
	SendAnalog(channel int, samples []float32, meaning waveform.Meaning)
	SendLogic(packed []byte, unitSize int)
	SendEnd()
	StopAcquisition()
}
