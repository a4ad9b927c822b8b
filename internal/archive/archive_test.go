package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/liultimate/siglent-acq/pkg/waveform"
)

func TestStore_PutAndRecent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("Open() err = %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := waveform.RunRecord{
			Model:      "SDS1104X-E",
			Family:     waveform.FamilyEseries,
			Frames:     uint64(i + 1),
			StartedAt:  base.Add(time.Duration(i) * time.Second),
			FinishedAt: base.Add(time.Duration(i)*time.Second + time.Millisecond),
		}
		if err := s.Put(r); err != nil {
			t.Fatalf("Put() err = %v", err)
		}
	}

	recent, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent() err = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	if recent[0].Frames != 3 || recent[1].Frames != 2 {
		t.Fatalf("records not newest-first: %+v", recent)
	}
}

func TestStore_PutRecordsError(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("Open() err = %v", err)
	}
	defer s.Close()

	r := waveform.RunRecord{Model: "SDS1104X-E", StartedAt: time.Now(), FinishedAt: time.Now(), Err: "timed out waiting for trigger"}
	if err := s.Put(r); err != nil {
		t.Fatalf("Put() err = %v", err)
	}

	recent, err := s.Recent(1)
	if err != nil {
		t.Fatalf("Recent() err = %v", err)
	}
	if len(recent) != 1 || recent[0].Err != r.Err {
		t.Fatalf("got %+v, want Err = %q", recent, r.Err)
	}
}
