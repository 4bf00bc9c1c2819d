package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a ScriptStore that lives for the life of the process.
type Memory struct {
	mu      sync.RWMutex
	scripts map[string]Script
}

var _ ScriptStore = (*Memory)(nil)

// NewMemory creates a store holding seed, keyed by name.
func NewMemory(seed map[string]string) *Memory {
	m := &Memory{scripts: make(map[string]Script, len(seed))}
	now := time.Now().UTC()
	for name, src := range seed {
		m.scripts[name] = Script{Name: name, Source: src, UpdatedAt: now}
	}
	return m
}

func (m *Memory) Get(_ context.Context, name string) (Script, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scripts[name]
	if !ok {
		return Script{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) Put(_ context.Context, s Script) error {
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.scripts[s.Name] = s
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context) ([]Script, error) {
	m.mu.RLock()
	out := make([]Script, 0, len(m.scripts))
	for _, s := range m.scripts {
		out = append(out, Script{Name: s.Name, UpdatedAt: s.UpdatedAt})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scripts[name]; !ok {
		return ErrNotFound
	}
	delete(m.scripts, name)
	return nil
}

func (m *Memory) Close() error { return nil }
