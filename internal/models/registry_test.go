package models

import (
	"testing"

	"github.com/liultimate/siglent-acq/pkg/waveform"
)

func TestLookup_Known(t *testing.T) {
	m, err := Lookup("SDS1104X-E")
	if err != nil {
		t.Fatalf("Lookup() err = %v", err)
	}
	if m.Family != waveform.FamilyEseries {
		t.Errorf("Family = %v, want Eseries", m.Family)
	}
	if m.AnalogChannels != 4 {
		t.Errorf("AnalogChannels = %d, want 4", m.AnalogChannels)
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, err := Lookup("SDS-DOES-NOT-EXIST"); err == nil {
		t.Fatal("expected an error for an unknown model")
	}
}

func TestRegister_AddsModel(t *testing.T) {
	custom := waveform.Model{Name: "TEST-CUSTOM", Family: waveform.FamilySpo, AnalogChannels: 2, HorizontalDivs: 10}
	Register(custom)

	got, err := Lookup("TEST-CUSTOM")
	if err != nil {
		t.Fatalf("Lookup() err = %v", err)
	}
	if got != custom {
		t.Errorf("got %+v, want %+v", got, custom)
	}
}
