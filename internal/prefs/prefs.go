// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prefs keeps the user's saved and liked papers. Each collection
// is an ordered list of full paper records keyed by ID, written through to
// a KV store as a JSON array on every change.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pdiddy/paperfeed/pkg/types"
)

// Collection names.
const (
	Saved = "saved"
	Liked = "liked"
)

// storageKeys maps collection names to their KV keys.
var storageKeys = map[string]string{
	Saved: "savedPapers",
	Liked: "likedPapers",
}

// ErrUnknownCollection is returned for names other than Saved and Liked.
var ErrUnknownCollection = errors.New("unknown collection")

// Names lists the collections in display order.
func Names() []string {
	return []string{Saved, Liked}
}

// Store holds both collections in memory and persists each mutation
// before it becomes visible.
type Store struct {
	kv KV

	mu          sync.Mutex
	collections map[string][]types.Paper
}

// Open loads both collections from kv. Missing keys start empty.
func Open(ctx context.Context, kv KV) (*Store, error) {
	s := &Store{kv: kv, collections: make(map[string][]types.Paper)}
	for _, name := range Names() {
		raw, ok, err := kv.Get(ctx, storageKeys[name])
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		papers := []types.Paper{}
		if ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &papers); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", name, err)
			}
		}
		s.collections[name] = papers
	}
	return s, nil
}

// Toggle removes p from the collection if a paper with its ID is present
// and inserts the full record otherwise. It reports whether p was added.
// When the write fails the collection is left unchanged.
func (s *Store) Toggle(ctx context.Context, name string, p types.Paper) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.collection(name)
	if err != nil {
		return false, err
	}

	next, removed := without(cur, p.ID)
	added := !removed
	if added {
		next = append(next, p)
	}
	if err := s.persist(ctx, name, next); err != nil {
		return false, err
	}
	s.collections[name] = next
	return added, nil
}

// Remove deletes the paper with id from the collection. It reports
// whether anything was removed.
func (s *Store) Remove(ctx context.Context, name, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.collection(name)
	if err != nil {
		return false, err
	}
	next, removed := without(cur, id)
	if !removed {
		return false, nil
	}
	if err := s.persist(ctx, name, next); err != nil {
		return false, err
	}
	s.collections[name] = next
	return true, nil
}

// List returns a copy of the collection in insertion order.
func (s *Store) List(name string) ([]types.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	out := make([]types.Paper, len(cur))
	copy(out, cur)
	return out, nil
}

// Contains reports whether the collection holds a paper with id.
func (s *Store) Contains(name, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.collections[name] {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) collection(name string) ([]types.Paper, error) {
	cur, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return cur, nil
}

func (s *Store) persist(ctx context.Context, name string, papers []types.Paper) error {
	data, err := json.Marshal(papers)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := s.kv.Set(ctx, storageKeys[name], string(data)); err != nil {
		return fmt.Errorf("persisting %s: %w", name, err)
	}
	return nil
}

// without returns a new slice lacking id and whether it was present.
func without(papers []types.Paper, id string) ([]types.Paper, bool) {
	out := make([]types.Paper, 0, len(papers)+1)
	found := false
	for _, p := range papers {
		if p.ID == id {
			found = true
			continue
		}
		out = append(out, p)
	}
	return out, found
}
