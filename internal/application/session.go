package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
)

// Comparer runs one comparison. *ComparisonService satisfies it.
type Comparer interface {
	Compare(ctx context.Context, start, end string) (*route.ComparisonResult, error)
}

// Session serializes comparisons from one client so that only the latest request wins.
//
// Starting a comparison cancels the one in flight. A comparison that completes after a
// newer one has started returns route.ErrSuperseded and its result is dropped.
type Session struct {
	comparer Comparer

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewSession creates a session on top of comparer.
func NewSession(comparer Comparer) *Session {
	return &Session{comparer: comparer}
}

// Compare starts a new generation and runs the comparison under it.
func (s *Session) Compare(ctx context.Context, start, end string) (*route.ComparisonResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.cancel = cancel
	s.mu.Unlock()

	result, err := s.comparer.Compare(ctx, start, end)

	s.mu.Lock()
	latest := s.generation == gen
	if latest {
		s.cancel = nil
	}
	s.mu.Unlock()

	if !latest {
		return nil, fmt.Errorf("%w: generation %d", route.ErrSuperseded, gen)
	}
	return result, err
}

// Close cancels any comparison in flight.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
}
