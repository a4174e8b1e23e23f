// Package session keeps the current analysis result of each client
// session. A new analysis supersedes the one in flight: the older run's
// context is cancelled and its result is never stored.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

var (
	// ErrSuperseded is returned when a newer analysis started in the same
	// session before this one completed.
	ErrSuperseded = errors.New("analysis superseded by a newer upload")
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrNoResult is returned when a session has no completed analysis.
	ErrNoResult = errors.New("no analysis result yet")
)

type session struct {
	generation uint64
	cancel     context.CancelFunc
	result     *domain.AnalysisResult
	updatedAt  time.Time
}

// Manager holds sessions in memory. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*session)}
}

// Create opens a new session and returns its id.
func (m *Manager) Create() string {
	id := uuid.New().String()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &session{updatedAt: time.Now()}
	return id
}

// Run is one analysis started in a session.
type Run struct {
	m          *Manager
	id         string
	generation uint64
	cancel     context.CancelFunc
}

// Begin starts a new analysis in session id. The returned context is
// cancelled when a later Begin supersedes this run. Callers must call
// Complete or Abort.
func (m *Manager) Begin(ctx context.Context, id string) (context.Context, *Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil, fmt.Errorf("Begin: %s: %w", id, ErrNotFound)
	}
	if s.cancel != nil {
		s.cancel()
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.generation++
	s.cancel = cancel
	s.updatedAt = time.Now()
	return runCtx, &Run{m: m, id: id, generation: s.generation, cancel: cancel}, nil
}

// Complete stores result as the session's current result unless a newer
// run has started, in which case it returns ErrSuperseded.
func (r *Run) Complete(result *domain.AnalysisResult) error {
	defer r.cancel()

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.sessions[r.id]
	if !ok {
		return fmt.Errorf("Complete: %s: %w", r.id, ErrNotFound)
	}
	if s.generation != r.generation {
		return ErrSuperseded
	}
	s.result = result
	s.cancel = nil
	s.updatedAt = time.Now()
	return nil
}

// Abort ends a run without storing a result. It reports ErrSuperseded
// when a newer run replaced this one.
func (r *Run) Abort() error {
	defer r.cancel()

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.sessions[r.id]
	if !ok {
		return nil
	}
	if s.generation != r.generation {
		return ErrSuperseded
	}
	s.cancel = nil
	return nil
}

// Superseded reports whether a newer run started after r.
func (r *Run) Superseded() bool {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.sessions[r.id]
	return !ok || s.generation != r.generation
}

// Result returns the current result of session id.
func (m *Manager) Result(id string) (*domain.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("Result: %s: %w", id, ErrNotFound)
	}
	if s.result == nil {
		return nil, fmt.Errorf("Result: %s: %w", id, ErrNoResult)
	}
	return s.result, nil
}

// Expire drops sessions idle for longer than ttl and returns how many were
// removed. Sessions with a run in flight are kept.
func (m *Manager) Expire(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.cancel == nil && s.updatedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
