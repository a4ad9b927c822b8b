package acquisition

import (
	"encoding/binary"
	"testing"

	"github.com/liultimate/siglent-acq/internal/emitter"
	"github.com/liultimate/siglent-acq/internal/transport"
	"github.com/liultimate/siglent-acq/pkg/waveform"
)

func TestDigitsFor(t *testing.T) {
	cases := []struct {
		vdiv float64
		want int
	}{
		{1.0, 0},
		{0.5, 1},
		{0.05, 2},
		{10.0, -1},
	}
	for _, c := range cases {
		if got := digitsFor(c.vdiv); got != c.want {
			t.Errorf("digitsFor(%v) = %d, want %d", c.vdiv, got, c.want)
		}
	}
}

func TestAppendSamples_DecodingLaw(t *testing.T) {
	em := emitter.NewCollecting()
	e := &Engine{
		emitter: em,
		cfg:     &waveform.DeviceConfig{Vdiv: []float64{2.0}, VertOffset: []float64{0.5}},
	}
	e.appendSamples(waveform.ChannelID{Kind: waveform.ChannelAnalog, Index: 0}, []byte{50, 256 - 50})
	got := em.Analog[0].Samples
	want0 := float32(2.0*(50.0/25.0) - 0.5)
	want1 := float32(2.0*(-50.0/25.0) - 0.5)
	if got[0] != want0 || got[1] != want1 {
		t.Fatalf("got %v, want [%v %v]", got, want0, want1)
	}
}

// S6: digital bulk fetch with D0 and D9 enabled, memory_depth_digital=8.
func TestProcessDigitalChannel_S6(t *testing.T) {
	sim := transport.NewSim()

	digitalReply := func(bytePattern byte) []byte {
		buf := make([]byte, preambleSize+1)
		buf[preambleSize] = bytePattern
		return buf
	}
	sim.QueueBlock(transport.Block{Data: digitalReply(0xA5)}) // D0
	sim.QueueBlock(transport.Block{Data: digitalReply(0x0F)}) // D9

	cfg := &waveform.DeviceConfig{MemoryDepthDigital: 8}
	cfg.DigitalEnabled = make([]bool, 16)
	cfg.DigitalEnabled[0] = true
	cfg.DigitalEnabled[9] = true

	em := emitter.NewCollecting()
	e := &Engine{
		transport: sim,
		emitter:   em,
		cfg:       cfg,
		state: &waveform.AcquisitionState{
			EnabledChannels: []waveform.ChannelID{{Kind: waveform.ChannelDigital, Index: -1}},
		},
	}

	status, err := e.processDigitalChannel()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != Done && status != NeedIO {
		t.Fatalf("unexpected status %v", status)
	}
	if len(em.Logic) != 1 {
		t.Fatalf("got %d logic batches, want 1", len(em.Logic))
	}
	packed := em.Logic[0].Packed
	wantLow := []byte{0x01, 0x00, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01}
	wantHigh := []byte{0x02, 0x02, 0x02, 0x02, 0x00, 0x00, 0x00, 0x00}
	for k := 0; k < 8; k++ {
		if packed[2*k] != wantLow[k] || packed[2*k+1] != wantHigh[k] {
			t.Errorf("sample %d = (0x%02X,0x%02X), want (0x%02X,0x%02X)", k, packed[2*k], packed[2*k+1], wantLow[k], wantHigh[k])
		}
	}
}

func TestReadHeader_SkipsOptionalTrailer(t *testing.T) {
	sim := transport.NewSim()

	extra := 20
	buf := make([]byte, HeaderSize+extra)
	desc := buf[preambleSize:]
	binary.LittleEndian.PutUint32(desc[descLengthOff:], uint32(HeaderSize-preambleSize+extra))
	binary.LittleEndian.PutUint32(desc[dataLengthOff:], 4)
	payload := []byte{1, 2, 3, 4}
	full := append(buf, payload...)
	full = append(full, '\n', '\n')
	sim.QueueBlock(transport.Block{Data: full})
	_ = sim.ReadBegin()

	e := &Engine{
		transport: sim,
		state:     &waveform.AcquisitionState{},
	}
	if err := e.readHeader(waveform.ChannelID{}); err != nil {
		t.Fatalf("readHeader() err = %v", err)
	}
	if e.state.NumSamples != 4 {
		t.Fatalf("NumSamples = %d, want 4", e.state.NumSamples)
	}
	if e.state.NumHeaderBytes != HeaderSize+extra {
		t.Fatalf("NumHeaderBytes = %d, want %d", e.state.NumHeaderBytes, HeaderSize+extra)
	}

	// The next read should land exactly on the payload, not the trailer.
	rest := make([]byte, 4)
	n := sim.ReadData(rest)
	if n != 4 {
		t.Fatalf("ReadData after header = %d bytes, want 4", n)
	}
	for i, b := range payload {
		if rest[i] != b {
			t.Fatalf("payload[%d] = %d, want %d", i, rest[i], b)
		}
	}
}

func TestReadHeader_MalformedZeroDataLength(t *testing.T) {
	sim := transport.NewSim()
	buf := make([]byte, HeaderSize)
	desc := buf[preambleSize:]
	binary.LittleEndian.PutUint32(desc[descLengthOff:], uint32(HeaderSize-preambleSize))
	binary.LittleEndian.PutUint32(desc[dataLengthOff:], 0)
	buf = append(buf, 'x', 'x', 'x') // not the 2-byte LF LF terminator
	sim.QueueBlock(transport.Block{Data: buf})
	_ = sim.ReadBegin()

	e := &Engine{transport: sim, state: &waveform.AcquisitionState{}}
	err := e.readHeader(waveform.ChannelID{})
	if _, ok := err.(*waveform.MalformedHeaderError); !ok {
		t.Fatalf("err = %v (%T), want *waveform.MalformedHeaderError", err, err)
	}
}
