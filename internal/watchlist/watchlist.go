package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"crypto-tracker/internal/market"
)

// Backend stores the serialized watchlist as one opaque record.
// Load returns (nil, nil) when no record exists yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Set is an insertion-ordered set of coin ids mirrored to a Backend.
// Every committed Toggle has been written to the backend before it returns.
type Set struct {
	mu      sync.RWMutex
	backend Backend
	log     *slog.Logger

	ids     []string
	index   map[string]struct{}
	version uint64
}

// Open reads the stored record. A missing, unreadable, or malformed record
// yields an empty set; Open never fails.
func Open(ctx context.Context, backend Backend, logger *slog.Logger) *Set {
	s := &Set{
		backend: backend,
		log:     logger,
		index:   map[string]struct{}{},
	}
	b, err := backend.Load(ctx)
	if err != nil {
		logger.Warn("watchlist load failed, starting empty", slog.String("err", err.Error()))
		return s
	}
	if len(b) == 0 {
		return s
	}
	var stored []string
	if err := json.Unmarshal(b, &stored); err != nil {
		logger.Warn("watchlist record malformed, starting empty", slog.String("err", err.Error()))
		return s
	}
	for _, id := range stored {
		if id == "" {
			continue
		}
		if _, dup := s.index[id]; dup {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	logger.Info("watchlist loaded", slog.Int("count", len(s.ids)))
	return s
}

// Toggle removes id if present, otherwise appends it. It reports whether id
// is a member afterwards. If the write fails the set is left as it was and
// the returned error wraps market.ErrStorage.
func (s *Set) Toggle(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("empty coin id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, member := s.index[id]

	// build the candidate list first; s.ids only changes once the write lands

	next := make([]string, 0, len(s.ids)+1)
	if member {
		for _, x := range s.ids {
			if x != id {
				next = append(next, x)
			}
		}
	} else {
		next = append(next, s.ids...)
		next = append(next, id)
	}

	b, err := json.Marshal(next)
	if err != nil {
		return member, fmt.Errorf("encode watchlist: %w: %w", market.ErrStorage, err)
	}
	if err := s.backend.Save(ctx, b); err != nil {
		return member, fmt.Errorf("save watchlist: %w: %w", market.ErrStorage, err)
	}

	s.ids = next
	if member {
		delete(s.index, id)
	} else {
		s.index[id] = struct{}{}
	}
	s.version++
	return !member, nil
}

func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// All returns the members in insertion order.
func (s *Set) All() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Version changes after every committed toggle.
func (s *Set) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Members returns All and Version read together.
func (s *Set) Members() ([]string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out, s.version
}

func (s *Set) Close() error { return s.backend.Close() }
