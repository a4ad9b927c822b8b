// Package models is a static lookup table describing known Siglent SDS
// scope models. It has no behavior beyond lookup — all arming, stop,
// and decode logic lives in internal/acquisition and is parameterized
// by the waveform.Model a lookup returns.
package models

import (
	"fmt"

	"github.com/liultimate/siglent-acq/pkg/waveform"
)

// INR? status-register bits observed during ARM on SPO-family scopes.
//
// Not present in the retrieved original_source slice (only protocol.c
// was retrieved, protocol.h was not) — these are placeholders pending
// the real header values and are flagged as such rather than invented
// as verified fact. See DESIGN.md.
const (
	DeviceStateTrigRdy     = 1
	DeviceStateDataTrigRdy = 2
)

var registry = map[string]waveform.Model{
	"SDS1102CML": {
		Name:           "SDS1102CML",
		Family:         waveform.FamilyNonSpo,
		AnalogChannels: 2,
		HasDigital:     false,
		HorizontalDivs: 14,
	},
	"SDS2104X": {
		Name:           "SDS2104X",
		Family:         waveform.FamilySpo,
		AnalogChannels: 4,
		HasDigital:     false,
		HorizontalDivs: 14,
	},
	"SDS2304X": {
		Name:           "SDS2304X",
		Family:         waveform.FamilySpo,
		AnalogChannels: 4,
		HasDigital:     true,
		HorizontalDivs: 14,
	},
	"SDS1104X-E": {
		Name:           "SDS1104X-E",
		Family:         waveform.FamilyEseries,
		AnalogChannels: 4,
		HasDigital:     false,
		HorizontalDivs: 14,
	},
	"SDS2104X Plus": {
		Name:           "SDS2104X Plus",
		Family:         waveform.FamilyEseries,
		AnalogChannels: 4,
		HasDigital:     true,
		HorizontalDivs: 14,
	},
}

// Lookup finds a model by name. Callers normally obtain the name from
// "*IDN?" during device discovery — out of scope here (see spec.md §1)
// — and pass it through config.AppConfig instead.
func Lookup(name string) (waveform.Model, error) {
	m, ok := registry[name]
	if !ok {
		return waveform.Model{}, fmt.Errorf("未知示波器型号: %q", name)
	}
	return m, nil
}

// Register adds or replaces a model entry. Exposed so a host can extend
// the table for a model not shipped in the default set, without forking
// this package.
func Register(m waveform.Model) {
	registry[m.Name] = m
}
