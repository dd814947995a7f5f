package parsecache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
)

// MemoryStore keeps states in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]*State
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*State)}
}

func (m *MemoryStore) Load(_ context.Context, fingerprint string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[fingerprint]
	if !ok {
		return nil, nil
	}
	return s.clone(), nil
}

func (m *MemoryStore) Begin(_ context.Context, fingerprint string, totalPages int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[fingerprint]
	if !ok {
		m.states[fingerprint] = NewState(fingerprint, totalPages, at)
		return nil
	}
	s.TotalPages = totalPages
	s.UpdatedAt = at
	return nil
}

func (m *MemoryStore) SaveSuccess(_ context.Context, fingerprint string, page ocr.Page, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateLocked(fingerprint, at).applySuccess(page, at)
	return nil
}

func (m *MemoryStore) SaveFailure(_ context.Context, fingerprint string, pageNo int, message string, at time.Time) (FailureInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, _ := m.stateLocked(fingerprint, at).applyFailure(pageNo, message, at)
	return info, nil
}

func (m *MemoryStore) Delete(_ context.Context, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, fingerprint)
	return nil
}

func (m *MemoryStore) Fingerprints(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.states))
	for fp := range m.states {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) stateLocked(fingerprint string, at time.Time) *State {
	s, ok := m.states[fingerprint]
	if !ok {
		s = NewState(fingerprint, 0, at)
		m.states[fingerprint] = s
	}
	return s
}
