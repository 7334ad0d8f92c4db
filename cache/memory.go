// INSPECTOR, Infrastructure Inspection Platform
// Copyright (C) 2023-2024 OpsMind Co., Ltd.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version. For any non-GPL usage of Inspector,
// one or multiple Commercial Licenses authorized by OpsMind Co., Ltd.
// must be obtained first.

// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

//MemoryStore in-process Store, used when no redis address is configured
//and as a stand-in in tests. Expiry is checked on read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	hashes  map[string]map[string]int64
	hashTTL map[string]time.Time
	Clock   func() time.Time
}

//NewMemoryStore NewMemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		hashes:  make(map[string]map[string]int64),
		hashTTL: make(map[string]time.Time),
		Clock:   time.Now,
	}
}

//Get Get
func (s *MemoryStore) Get(ctx context.Context, key string, into interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	if !entry.expiresAt.IsZero() && s.Clock().After(entry.expiresAt) {
		delete(s.entries, key)
		return false
	}
	return json.Unmarshal(entry.data, into) == nil
}

//Set Set
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

//SetWithTTL SetWithTTL
func (s *MemoryStore) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = s.Clock().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

//Delete Delete
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	delete(s.hashes, key)
	delete(s.hashTTL, key)
	return nil
}

//KeyTTL KeyTTL
func (s *MemoryStore) KeyTTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return -2 * time.Second, nil
	}
	if entry.expiresAt.IsZero() {
		return -1 * time.Second, nil
	}
	return entry.expiresAt.Sub(s.Clock()), nil
}

//HGetAll HGetAll
func (s *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expiresAt, ok := s.hashTTL[key]; ok && s.Clock().After(expiresAt) {
		delete(s.hashes, key)
		delete(s.hashTTL, key)
	}
	out := make(map[string]string)
	for field, value := range s.hashes[key] {
		out[field] = strconv.FormatInt(value, 10)
	}
	return out, nil
}

//HIncrByMapping HIncrByMapping
func (s *MemoryStore) HIncrByMapping(ctx context.Context, key string, increments map[string]int64, ttl time.Duration) error {
	if len(increments) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]int64)
		s.hashes[key] = hash
	}
	for field, delta := range increments {
		hash[field] += delta
	}
	if ttl > 0 {
		s.hashTTL[key] = s.Clock().Add(ttl)
	}
	return nil
}

//TryAcquireLock TryAcquireLock
func (s *MemoryStore) TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if ok && (entry.expiresAt.IsZero() || s.Clock().Before(entry.expiresAt)) {
		return false, nil
	}
	data, _ := json.Marshal(1)
	s.entries[key] = memoryEntry{data: data, expiresAt: s.Clock().Add(ttl)}
	return true, nil
}

//Expire Expire
func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[key]; ok {
		entry.expiresAt = s.Clock().Add(ttl)
		s.entries[key] = entry
	}
	if _, ok := s.hashes[key]; ok {
		s.hashTTL[key] = s.Clock().Add(ttl)
	}
	return nil
}
