// Package waveform holds the data model shared by the Siglent SDS
// acquisition engine: scope family/model descriptors, channel and
// trigger identifiers, device configuration snapshots, and the packets
// published on the session bus.
package waveform

import (
	"strconv"
	"time"
)

// ScopeFamily selects the arming and stop-detection dialect a model
// speaks. The three families diverge on how a capture is armed and how
// "stopped" is detected (see Engine in internal/acquisition).
type ScopeFamily int

const (
	FamilyNonSpo ScopeFamily = iota
	FamilySpo
	FamilyEseries
)

func (f ScopeFamily) String() string {
	switch f {
	case FamilyNonSpo:
		return "non-spo"
	case FamilySpo:
		return "spo"
	case FamilyEseries:
		return "eseries"
	default:
		return "unknown"
	}
}

// Model is a static, immutable descriptor for one scope model. The
// registry in internal/models is a pure lookup table over these.
type Model struct {
	Name              string
	Family            ScopeFamily
	AnalogChannels    int
	HasDigital        bool
	HorizontalDivs    int
}

// ChannelKind tags a ChannelID as analog or digital.
type ChannelKind int

const (
	ChannelAnalog ChannelKind = iota
	ChannelDigital
)

// ChannelID identifies a single scope channel, analog (0..N_A) or
// digital (0..15).
type ChannelID struct {
	Kind  ChannelKind
	Index int
}

func (c ChannelID) String() string {
	if c.Kind == ChannelAnalog {
		return "C" + strconv.Itoa(c.Index+1)
	}
	return "D" + strconv.Itoa(c.Index)
}

// DataSource selects the arm/stop path an acquisition follows.
type DataSource int

const (
	SourceScreen DataSource = iota
	SourceHistory
	SourceReadOnly
)

// TriggerConfig holds the scope's current trigger setup.
type TriggerConfig struct {
	Source       string
	Slope        string
	Level        float64
	HorizPos     float64 // seconds, after suffix decoding (see §4.3)
}

// DeviceConfig is a read-only snapshot of scope state, built once at
// acquisition start and never mutated during capture.
type DeviceConfig struct {
	AnalogEnabled  []bool    // per analog channel
	Vdiv           []float64 // V/div, per analog channel
	VertOffset     []float64 // V, per analog channel
	Coupling       []string  // per analog channel
	Attenuation    []float64 // ratio, per analog channel
	DigitalEnabled []bool    // per digital channel (0..15)
	LAEnabled      bool      // logic analyzer master switch

	Timebase           float64 // s/div
	SampleRate         float64 // Sa/s, derived
	MemoryDepthAnalog  float64
	MemoryDepthDigital float64

	Trigger TriggerConfig
}

// AcquisitionState is the mutable state machine state, created at
// acquisition start and destroyed at stop.
type AcquisitionState struct {
	WaitEvent  WaitEvent
	WaitStatus int // 0, 1, or 2 — mirrors the source's wait_status field

	NumFrames   uint64
	LimitFrames uint64

	NumSamples     int // expected bytes in the current block
	NumBlockBytes  int
	NumBlockRead   int
	NumHeaderBytes int

	EnabledChannels []ChannelID
	ChannelCursor   int

	RetryCount int

	CloseHistory bool // Eseries history-mode cleanup flag

	Buffer    []byte
	DigBuffer []byte // 2 bytes/sample, accumulated for the current frame
}

// WaitEvent is the acquisition's current suspension point.
type WaitEvent int

const (
	WaitNone WaitEvent = iota
	WaitTrigger
	WaitBlock
	WaitStop
)

func (w WaitEvent) String() string {
	switch w {
	case WaitNone:
		return "none"
	case WaitTrigger:
		return "trigger"
	case WaitBlock:
		return "block"
	case WaitStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Meaning describes a published analog batch's physical units, mirroring
// sigrok's sr_analog_meaning.
type Meaning struct {
	MQ     string // "voltage"
	Unit   string // "volt"
	Digits int
}

// RunRecord is a bookkeeping entry for a completed acquisition run,
// persisted by internal/archive. Purely observational; never read back
// by the core state machine.
type RunRecord struct {
	Model       string
	Family      ScopeFamily
	Frames      uint64
	StartedAt   time.Time
	FinishedAt  time.Time
	Err         string
}
