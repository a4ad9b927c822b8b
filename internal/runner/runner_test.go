package runner

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liultimate/siglent-acq/internal/acquisition"
	"github.com/liultimate/siglent-acq/internal/emitter"
	"github.com/liultimate/siglent-acq/internal/transport"
	"github.com/liultimate/siglent-acq/pkg/waveform"
)

func TestRunner_StopCancelsRun(t *testing.T) {
	sim := transport.NewSim()
	sim.SetResponse(transport.AnalogTraceQuery(0), "1")
	sim.SetResponse(transport.TimebaseQuery(), "0.001")
	sim.SetResponse(transport.AttenuationQuery(0), "1")
	sim.SetResponse(transport.VdivQuery(0), "1.0")
	sim.SetResponse(transport.VertOffsetQuery(0), "0.0")
	sim.SetResponse(transport.CouplingQuery(0), "D1M")
	sim.SetResponse(transport.TriggerSourceQuery(), "EDGE,A,C1,OFF,100ns")
	sim.SetResponse(transport.TriggerSlopeQuery("C1"), "POS")
	sim.SetResponse(transport.TriggerLevelQuery("C1"), "0.0")
	sim.SetResponse(transport.MemoryDepthQuery("C1"), "1.4e4")
	sim.SetResponse(transport.InrQuery(), "0") // never triggers

	model := waveform.Model{Name: "SDS1102CML", Family: waveform.FamilyNonSpo, AnalogChannels: 1, HorizontalDivs: 14}
	em := emitter.NewCollecting()
	e := acquisition.NewEngine(sim, em, nil, model, waveform.SourceScreen)
	e.WaitTimeout = time.Hour

	log := logrus.New()
	log.SetOutput(io.Discard)
	r := New(e, log)

	done := make(chan error, 1)
	go func() { done <- r.Run(1, time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	r.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Stop()")
	}
	if !em.Stopped {
		t.Fatal("StopAcquisition was not called")
	}
}
