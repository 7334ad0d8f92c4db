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
	"sort"
	"sync"
	"time"
)

type localEntry struct {
	value    interface{}
	storedAt time.Time
}

//Local in-process cache with TTL checked on read and a hard entry cap.
//When the cap is exceeded the oldest fifth of entries is evicted.
type Local struct {
	mu         sync.Mutex
	entries    map[string]localEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

//NewLocal NewLocal
func NewLocal(ttl time.Duration, maxEntries int) *Local {
	return &Local{
		entries:    make(map[string]localEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

//Get returns the cached value if present and fresh. Stale entries are
//removed on read.
func (l *Local) Get(key string) (interface{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return nil, false
	}
	if l.now().Sub(entry.storedAt) > l.ttl {
		delete(l.entries, key)
		return nil, false
	}
	return entry.value, true
}

//Set stores a value, evicting the oldest entries when over capacity.
func (l *Local) Set(key string, value interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.maxEntries {
		l.evictOldest(l.maxEntries / 5)
	}
	l.entries[key] = localEntry{value: value, storedAt: l.now()}
}

//Len current entry count
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Local) evictOldest(n int) {
	type aged struct {
		key      string
		storedAt time.Time
	}
	all := make([]aged, 0, len(l.entries))
	for key, entry := range l.entries {
		all = append(all, aged{key: key, storedAt: entry.storedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].storedAt.Before(all[j].storedAt)
	})
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(l.entries, a.key)
	}
}
