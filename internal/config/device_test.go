package config

import (
	"testing"

	"github.com/liultimate/siglent-acq/internal/transport"
	"github.com/liultimate/siglent-acq/pkg/waveform"
)

func spoModel() waveform.Model {
	return waveform.Model{Name: "SDS2104X", Family: waveform.FamilySpo, AnalogChannels: 2, HasDigital: true, HorizontalDivs: 14}
}

func TestRefresh_QueryOrderAndFields(t *testing.T) {
	sim := transport.NewSim()
	sim.SetResponse(transport.AnalogTraceQuery(0), "1")
	sim.SetResponse(transport.AnalogTraceQuery(1), "0")
	sim.SetResponse(transport.DigitalMasterQuery(), "1")
	for i := 0; i < 16; i++ {
		sim.SetResponse(transport.DigitalTraceQuery(i), "0")
	}
	sim.SetResponse(transport.DigitalTraceQuery(0), "1")
	sim.SetResponse(transport.TimebaseQuery(), "0.0005")
	sim.SetResponse(transport.AttenuationQuery(0), "10")
	sim.SetResponse(transport.AttenuationQuery(1), "1")
	sim.SetResponse(transport.VdivQuery(0), "0.5")
	sim.SetResponse(transport.VdivQuery(1), "2.0")
	sim.SetResponse(transport.VertOffsetQuery(0), "0.1")
	sim.SetResponse(transport.VertOffsetQuery(1), "-0.2")
	sim.SetResponse(transport.CouplingQuery(0), "D1M")
	sim.SetResponse(transport.CouplingQuery(1), "GND")
	sim.SetResponse(transport.TriggerSourceQuery(), "EDGE,A,C1,OFF,10us")
	sim.SetResponse(transport.TriggerSlopeQuery("C1"), "NEG")
	sim.SetResponse(transport.TriggerLevelQuery("C1"), "1.5")
	sim.SetResponse(transport.MemoryDepthQuery("C1"), "14Kpts")

	r := NewReader(sim, spoModel())
	cfg, err := r.Refresh()
	if err != nil {
		t.Fatalf("Refresh() err = %v", err)
	}

	if !cfg.AnalogEnabled[0] || cfg.AnalogEnabled[1] {
		t.Errorf("AnalogEnabled = %v, want [true false]", cfg.AnalogEnabled)
	}
	if !cfg.LAEnabled || !cfg.DigitalEnabled[0] || cfg.DigitalEnabled[1] {
		t.Errorf("digital config wrong: LAEnabled=%v DigitalEnabled=%v", cfg.LAEnabled, cfg.DigitalEnabled[:2])
	}
	if cfg.Timebase != 0.0005 {
		t.Errorf("Timebase = %v, want 0.0005", cfg.Timebase)
	}
	if cfg.Vdiv[0] != 0.5 || cfg.VertOffset[0] != 0.1 {
		t.Errorf("channel 0 vdiv/offset = %v/%v, want 0.5/0.1", cfg.Vdiv[0], cfg.VertOffset[0])
	}
	if cfg.Trigger.Source != "C1" || cfg.Trigger.Slope != "NEG" || cfg.Trigger.Level != 1.5 {
		t.Errorf("trigger = %+v", cfg.Trigger)
	}
	// 14Kpts -> 14 * 1e4, the source's observed (not 1e3) scale factor.
	if cfg.MemoryDepthAnalog != 14*1e4 {
		t.Errorf("MemoryDepthAnalog = %v, want %v", cfg.MemoryDepthAnalog, 14*1e4)
	}

	q := sim.Sent
	mustPrecede(t, q, transport.AnalogTraceQuery(0), transport.DigitalMasterQuery())
	mustPrecede(t, q, transport.DigitalMasterQuery(), transport.TimebaseQuery())
	mustPrecede(t, q, transport.TimebaseQuery(), transport.AttenuationQuery(0))
	mustPrecede(t, q, transport.VdivQuery(0), transport.CouplingQuery(0))
	mustPrecede(t, q, transport.CouplingQuery(1), transport.TriggerSourceQuery())
	mustPrecede(t, q, transport.TriggerSourceQuery(), transport.MemoryDepthQuery("C1"))
}

func mustPrecede(t *testing.T, seq []string, a, b string) {
	t.Helper()
	ia, ib := -1, -1
	for i, v := range seq {
		if v == a && ia == -1 {
			ia = i
		}
		if v == b && ib == -1 {
			ib = i
		}
	}
	if ia == -1 || ib == -1 {
		t.Fatalf("query %q or %q not found in %v", a, b, seq)
	}
	if ia >= ib {
		t.Fatalf("expected %q (at %d) before %q (at %d)", a, ia, b, ib)
	}
}

func TestDecodeTriggerPos_SwappedSuffixScale(t *testing.T) {
	// Preserved as observed: "us" divides by 1e9, "ns" by 1e6.
	if got := decodeTriggerPos("10us"); got != 10.0/1e9 {
		t.Errorf("10us -> %v, want %v", got, 10.0/1e9)
	}
	if got := decodeTriggerPos("10ns"); got != 10.0/1e6 {
		t.Errorf("10ns -> %v, want %v", got, 10.0/1e6)
	}
	if got := decodeTriggerPos("10ms"); got != 10.0/1e3 {
		t.Errorf("10ms -> %v, want %v", got, 10.0/1e3)
	}
	if got := decodeTriggerPos("2s"); got != 2.0 {
		t.Errorf("2s -> %v, want 2.0", got)
	}
}

func TestParseScaledPoints(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.4Mpts", 1.4e6},
		{"14Kpts", 14e4},
		{"20000", 20000},
	}
	for _, c := range cases {
		got, err := parseScaledPoints(c.in)
		if err != nil {
			t.Fatalf("parseScaledPoints(%q) err = %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("parseScaledPoints(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRefreshTrigger_ShortResponseIsConfigReadError(t *testing.T) {
	sim := transport.NewSim()
	sim.SetResponse(transport.TriggerSourceQuery(), "EDGE,A")
	r := NewReader(sim, spoModel())
	cfg := &waveform.DeviceConfig{}
	err := r.refreshTrigger(cfg)
	if _, ok := err.(*waveform.ConfigReadError); !ok {
		t.Fatalf("err = %v (%T), want *waveform.ConfigReadError", err, err)
	}
}
