package store

import (
	"errors"
	"sync"
	"time"

	"github.com/clearskies-io/clearskies/internal/airquality"
)

var (
	// ErrNotFound is returned when no observations exist for a given cell.
	ErrNotFound = errors.New("no observations for location")
)

// observationHistory holds a time-ordered list of AQI observations for one
// spatial cell.
type observationHistory struct {
	Observations []airquality.Observation
}

// MemoryStore is a concurrency-safe in-memory history of AQI observations,
// keyed by spatial cell. It feeds the forecast predictor.
type MemoryStore struct {
	mu sync.RWMutex

	// key: spatial cell key, value: history
	data map[string]*observationHistory

	// retention configuration
	maxHistory int           // max number of observations per cell
	maxAge     time.Duration // optional max age for observations
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*observationHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Append records a new observation for a cell and enforces retention.
func (s *MemoryStore) Append(cell string, obs airquality.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[cell]
	if !ok {
		history = &observationHistory{}
		s.data[cell] = history
	}

	history.Observations = append(history.Observations, obs)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Observations) > s.maxHistory {
		over := len(history.Observations) - s.maxHistory
		history.Observations = history.Observations[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Observations); i++ {
			if !history.Observations[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(history.Observations) {
			history.Observations = history.Observations[i:]
		}
	}
}

// Latest returns the most recent observation for a cell.
func (s *MemoryStore) Latest(cell string) (airquality.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[cell]
	if !ok || len(history.Observations) == 0 {
		return airquality.Observation{}, ErrNotFound
	}
	return history.Observations[len(history.Observations)-1], nil
}

// All returns every retained observation for a cell in insertion order.
func (s *MemoryStore) All(cell string) ([]airquality.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[cell]
	if !ok || len(history.Observations) == 0 {
		return nil, ErrNotFound
	}

	out := make([]airquality.Observation, len(history.Observations))
	copy(out, history.Observations)
	return out, nil
}

// Range returns all observations for a cell between from and to (inclusive).
func (s *MemoryStore) Range(cell string, from, to time.Time) ([]airquality.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[cell]
	if !ok || len(history.Observations) == 0 {
		return nil, ErrNotFound
	}

	var result []airquality.Observation
	for _, obs := range history.Observations {
		if !obs.Timestamp.Before(from) && !obs.Timestamp.After(to) {
			result = append(result, obs)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
