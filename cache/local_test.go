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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExpiry(t *testing.T) {
	now := time.Now()
	l := NewLocal(5*time.Minute, 10)
	l.now = func() time.Time { return now }

	l.Set("a", 1)
	v, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(5*time.Minute + time.Second)
	_, ok = l.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, l.Len())
}

func TestLocalEviction(t *testing.T) {
	now := time.Now()
	l := NewLocal(time.Hour, 10)
	l.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		l.Set(fmt.Sprintf("k%d", i), i)
		now = now.Add(time.Second)
	}
	assert.Equal(t, 10, l.Len())

	// the next write evicts the oldest fifth
	l.Set("k10", 10)
	assert.Equal(t, 9, l.Len())
	_, ok := l.Get("k0")
	assert.False(t, ok)
	_, ok = l.Get("k1")
	assert.False(t, ok)
	_, ok = l.Get("k2")
	assert.True(t, ok)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SetWithTTL(ctx, "key", map[string]string{"a": "b"}, time.Minute))
	var out map[string]string
	require.True(t, s.Get(ctx, "key", &out))
	assert.Equal(t, "b", out["a"])

	now := time.Now()
	s.Clock = func() time.Time { return now.Add(2 * time.Minute) }
	assert.False(t, s.Get(ctx, "key", &out))
}

func TestMemoryStoreHashAndLock(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.HIncrByMapping(ctx, "h", map[string]int64{"x": 2, "y": 1}, 0))
	require.NoError(t, s.HIncrByMapping(ctx, "h", map[string]int64{"x": 3}, 0))
	fields, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, "5", fields["x"])
	assert.Equal(t, "1", fields["y"])

	ok, err := s.TryAcquireLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.TryAcquireLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
