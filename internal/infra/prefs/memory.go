// Package prefs provides the preferences store (platform branding, landing
// drafts). It is non-authoritative and never synchronized with PostgREST.
package prefs

import (
	"context"
	"sync"
)

// Memory is a process-local Prefs with in-process pub/sub.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	subs   map[string]map[chan []byte]struct{}
}

// NewMemory creates an empty in-memory preferences store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string][]byte),
		subs:   make(map[string]map[chan []byte]struct{}),
	}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value under key.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Publish delivers payload to every current subscriber of channel.
// Slow subscribers miss messages instead of blocking the publisher.
func (m *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for ch := range m.subs[channel] {
		select {
		case ch <- append([]byte(nil), payload...):
		default:
		}
	}
	return nil
}

// Subscribe returns a channel fed by Publish until ctx is done.
func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)

	m.mu.Lock()
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[chan []byte]struct{})
	}
	m.subs[channel][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs[channel], ch)
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
