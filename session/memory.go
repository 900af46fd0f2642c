// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is an in-process Store. Attempts expire after the configured TTL
// and the least recently used attempt is evicted once the store is at
// capacity.
type MemoryStore struct {
	mu       sync.Mutex
	attempts *expirable.LRU[string, map[string]string]
}

// ensure that MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore.
//
// Supported options:
//
//	WithTTL
//	WithCapacity
func NewMemoryStore(opt ...Option) (*MemoryStore, error) {
	const op = "session.NewMemoryStore"
	opts := getStoreOpts(opt...)
	if opts.withTTL <= 0 {
		return nil, fmt.Errorf("%s: ttl must be greater than zero: %w", op, ErrInvalidParameter)
	}
	if opts.withCapacity <= 0 {
		return nil, fmt.Errorf("%s: capacity must be greater than zero: %w", op, ErrInvalidParameter)
	}
	return &MemoryStore{
		attempts: expirable.NewLRU[string, map[string]string](opts.withCapacity, nil, opts.withTTL),
	}, nil
}

// Set implements the Store interface.
func (s *MemoryStore) Set(_ context.Context, attemptID, key, value string) error {
	const op = "MemoryStore.Set"
	if attemptID == "" {
		return fmt.Errorf("%s: missing attempt id: %w", op, ErrInvalidParameter)
	}
	if key == "" {
		return fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// values are copied, so maps returned by the cache are never modified
	existing, _ := s.attempts.Get(attemptID)
	values := make(map[string]string, len(existing)+1)
	for k, v := range existing {
		values[k] = v
	}
	values[key] = value
	s.attempts.Add(attemptID, values)
	return nil
}

// Get implements the Store interface.
func (s *MemoryStore) Get(_ context.Context, attemptID, key string) (string, error) {
	const op = "MemoryStore.Get"
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.attempts.Get(attemptID)
	if !ok {
		return "", fmt.Errorf("%s: attempt %q: %w", op, attemptID, ErrNotFound)
	}
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%s: attempt %q key %q: %w", op, attemptID, key, ErrNotFound)
	}
	return v, nil
}

// Delete implements the Store interface.
func (s *MemoryStore) Delete(_ context.Context, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts.Remove(attemptID)
	return nil
}

// Len returns the number of attempts currently stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts.Len()
}
