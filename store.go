package main

import (
	"log"
	"sort"
	"sync"
)

// Saver persists one completed mutation. It is invoked while the store lock
// is held, so the map mutation and its persistence form a single critical
// section: no other client can observe the map updated but the file stale.
// data is the live map and must not be retained after Save returns.
type Saver interface {
	Save(op string, args []string, data map[string]string) error
}

type Store struct {
	mu    sync.RWMutex
	data  map[string]string
	saver Saver
}

// NewStore builds a store over data, typically the map hydrated from the
// backing file. A nil saver disables persistence.
func NewStore(data map[string]string, saver Saver) *Store {
	if data == nil {
		data = map[string]string{}
	}
	return &Store{data: data, saver: saver}
}

type Pair struct {
	Key, Val string
}

// Set inserts or overwrites key. If persisting the mutation fails, the
// in-memory change is rolled back and the error returned, so memory and
// disk never diverge.
func (s *Store) Set(key, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, had := s.data[key]
	s.data[key] = val

	if err := s.save("SET", key, val); err != nil {
		if had {
			s.data[key] = old
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Remove deletes key if present. A miss returns (false, nil) and touches
// nothing on disk. A persistence failure reinstates the key and returns
// the error.
func (s *Store) Remove(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.data[key]
	if !ok {
		return false, nil
	}
	delete(s.data, key)

	if err := s.save("REMOVE", key, ""); err != nil {
		s.data[key] = old
		return false, err
	}
	return true, nil
}

// Pairs returns every pair currently held, sorted by key.
func (s *Store) Pairs() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := make([]Pair, 0, len(s.data))
	for k, v := range s.data {
		pairs = append(pairs, Pair{Key: k, Val: v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})
	return pairs
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// save runs under the write lock held by the caller.
func (s *Store) save(op, key, val string) error {
	if s.saver == nil {
		return nil
	}
	args := []string{key}
	if op == "SET" {
		args = append(args, val)
	}
	if err := s.saver.Save(op, args, s.data); err != nil {
		log.Printf("cannot persist %s %q: %v", op, key, err)
		return err
	}
	return nil
}
