package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"PcapSpectra/internal/model"

	"github.com/google/uuid"
)

// Memory is an in-process CaptureStore. It also implements model.Writer so
// the engine can publish finished captures straight into it.
type Memory struct {
	mu       sync.RWMutex
	captures map[uuid.UUID]*model.Capture
}

// NewMemory creates a store holding the given captures.
func NewMemory(captures ...*model.Capture) *Memory {
	m := &Memory{captures: make(map[uuid.UUID]*model.Capture, len(captures))}
	for _, c := range captures {
		m.captures[c.ID] = c
	}
	return m
}

// Name returns the writer type.
func (m *Memory) Name() string {
	return "memory"
}

// Write adds or replaces a capture.
func (m *Memory) Write(ctx context.Context, capture *model.Capture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captures[capture.ID] = capture
	return nil
}

// Replace swaps the whole content of the store.
func (m *Memory) Replace(captures []*model.Capture) {
	next := make(map[uuid.UUID]*model.Capture, len(captures))
	for _, c := range captures {
		next[c.ID] = c
	}
	m.mu.Lock()
	m.captures = next
	m.mu.Unlock()
}

// List returns every capture, newest first.
func (m *Memory) List(ctx context.Context) ([]*model.Capture, error) {
	m.mu.RLock()
	out := make([]*model.Capture, 0, len(m.captures))
	for _, c := range m.captures {
		out = append(out, c)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].AnalyzedAt.Equal(out[j].AnalyzedAt) {
			return out[i].AnalyzedAt.After(out[j].AnalyzedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Get returns one capture by ID.
func (m *Memory) Get(ctx context.Context, id uuid.UUID) (*model.Capture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.captures[id]
	if !ok {
		return nil, fmt.Errorf("capture %s: %w", id, model.ErrNotFound)
	}
	return c, nil
}
