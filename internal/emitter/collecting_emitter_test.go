package emitter

import (
	"testing"

	"github.com/liultimate/siglent-acq/pkg/waveform"
)

func TestCollecting_AnalogCopiesNotAliases(t *testing.T) {
	c := NewCollecting()
	samples := []float32{1, 2, 3}
	c.SendAnalog(0, samples, waveform.Meaning{MQ: "voltage", Unit: "volt", Digits: 2})

	samples[0] = 99
	if c.Analog[0].Samples[0] == 99 {
		t.Fatal("Collecting aliased the caller's slice instead of copying it")
	}
}

func TestCollecting_RecordsFrameAndEndState(t *testing.T) {
	c := NewCollecting()
	c.SendFrameBegin()
	c.SendLogic([]byte{1, 2, 3, 4}, 2)
	c.SendFrameEnd()
	c.SendEnd()
	c.StopAcquisition()

	if c.FrameBegins != 1 || c.FrameEnds != 1 {
		t.Fatalf("frame counts = (%d, %d), want (1, 1)", c.FrameBegins, c.FrameEnds)
	}
	if len(c.Logic) != 1 || c.Logic[0].UnitSize != 2 {
		t.Fatalf("logic batch = %+v", c.Logic)
	}
	if !c.Ended || !c.Stopped {
		t.Fatalf("Ended=%v Stopped=%v, want both true", c.Ended, c.Stopped)
	}
}
