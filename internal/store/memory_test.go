package store

import (
	"errors"
	"testing"
	"time"

	"github.com/clearskies-io/clearskies/internal/airquality"
)

const testCell = "40.71:-74.01"

func TestAppendAndLatest(t *testing.T) {
	s := NewMemoryStore(0, 0)
	now := time.Now().UTC()

	s.Append(testCell, airquality.Observation{Timestamp: now.Add(-time.Hour), AQI: 40})
	s.Append(testCell, airquality.Observation{Timestamp: now, AQI: 55})

	latest, err := s.Latest(testCell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.AQI != 55 {
		t.Errorf("latest AQI = %d, want 55", latest.AQI)
	}

	all, err := s.All(testCell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all[0].AQI != 40 {
		t.Errorf("all = %v, want both observations in insertion order", all)
	}
}

func TestLatestUnknownCell(t *testing.T) {
	s := NewMemoryStore(0, 0)

	if _, err := s.Latest("nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.All("nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRetentionByCount(t *testing.T) {
	s := NewMemoryStore(3, 0)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		s.Append(testCell, airquality.Observation{Timestamp: now.Add(time.Duration(i) * time.Minute), AQI: i})
	}

	all, err := s.All(testCell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("retained %d observations, want 3", len(all))
	}
	if all[0].AQI != 2 || all[2].AQI != 4 {
		t.Errorf("retained %v, want the newest three", all)
	}
}

func TestRetentionByAge(t *testing.T) {
	s := NewMemoryStore(0, time.Hour)
	now := time.Now().UTC()

	s.Append(testCell, airquality.Observation{Timestamp: now.Add(-2 * time.Hour), AQI: 10})
	s.Append(testCell, airquality.Observation{Timestamp: now, AQI: 20})

	all, err := s.All(testCell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 || all[0].AQI != 20 {
		t.Errorf("retained %v, want only the fresh observation", all)
	}
}

func TestRange(t *testing.T) {
	s := NewMemoryStore(0, 0)
	t0 := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		s.Append(testCell, airquality.Observation{Timestamp: t0.Add(time.Duration(i) * time.Hour), AQI: 50 + i})
	}

	got, err := s.Range(testCell, t0.Add(time.Hour), t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].AQI != 51 || got[1].AQI != 52 {
		t.Errorf("range = %v, want the two bounded observations inclusive", got)
	}

	if _, err := s.Range(testCell, t0.Add(10*time.Hour), t0.Add(12*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for an empty window", err)
	}
}

func TestCellsIsolated(t *testing.T) {
	s := NewMemoryStore(0, 0)
	now := time.Now().UTC()

	s.Append("a", airquality.Observation{Timestamp: now, AQI: 10})
	s.Append("b", airquality.Observation{Timestamp: now, AQI: 90})

	a, err := s.Latest("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := s.Latest("b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AQI != 10 || b.AQI != 90 {
		t.Errorf("cells leaked: a=%d b=%d", a.AQI, b.AQI)
	}
}
