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

package logmon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmind/inspector/cache"
	"github.com/opsmind/inspector/notifier"
)

type fakeSource struct {
	hits        []*Hit
	total       int64
	searchCalls int
}

func (f *fakeSource) SearchRange(ctx context.Context, start, end time.Time) ([]*Hit, error) {
	f.searchCalls++
	return f.hits, nil
}

func (f *fakeSource) CountRange(ctx context.Context, start, end time.Time) (int64, error) {
	return f.total, nil
}

func (f *fakeSource) MinutelyHistogram(ctx context.Context, start, end time.Time) ([]string, []int64, error) {
	return []string{"12:00", "12:01"}, []int64{10, 20}, nil
}

type recordingChannel struct {
	messages []string
}

func (r *recordingChannel) Name() string { return "recording" }

func (r *recordingChannel) Send(ctx context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func TestRunCyclePublishesStats(t *testing.T) {
	now := time.Now()
	source := &fakeSource{
		total: 3,
		hits: []*Hit{
			{Timestamp: now, Message: "request timed out", Level: "error"},
			{Timestamp: now, Message: "request timed out again", Level: "error"},
			{Timestamp: now, Message: "no space left on device", Level: "error"},
		},
	}
	store := cache.NewMemoryStore()
	m := NewMinuteCycle(source, store, notifier.NewManager(), DefaultThresholds())
	m.now = func() time.Time { return now }

	require.NoError(t, m.RunCycle(context.Background()))

	var stats MinuteStats
	require.True(t, store.Get(context.Background(), keyLastMinuteStats, &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.CategoryCounts["network_timeout"])
	assert.Equal(t, 1, stats.CategoryCounts["disk_full"])
	assert.Equal(t, 1, stats.SeverityCounts[SeverityCritical])

	var total int64
	require.True(t, store.Get(context.Background(), keyLastMinuteTotal, &total))
	assert.Equal(t, int64(3), total)

	var alerts map[string]interface{}
	require.True(t, store.Get(context.Background(), keyThresholdAlerts, &alerts))
}

func TestVolumeSpikeNotifiesOnce(t *testing.T) {
	now := time.Now()
	source := &fakeSource{total: 5000}
	channel := &recordingChannel{}
	m := NewMinuteCycle(source, cache.NewMemoryStore(), notifier.NewManager(channel), DefaultThresholds())
	m.now = func() time.Time { return now }

	_, err := m.CountLastMinuteTotal(context.Background())
	require.NoError(t, err)
	require.Len(t, channel.messages, 1)
	assert.Contains(t, channel.messages[0], "5000")

	// gated for the next five minutes
	_, err = m.CountLastMinuteTotal(context.Background())
	require.NoError(t, err)
	assert.Len(t, channel.messages, 1)

	now = now.Add(6 * time.Minute)
	_, err = m.CountLastMinuteTotal(context.Background())
	require.NoError(t, err)
	assert.Len(t, channel.messages, 2)
}

func TestCommitCumulativeOnceAMinute(t *testing.T) {
	now := time.Now()
	source := &fakeSource{
		hits: []*Hit{
			{Timestamp: now, Message: "request timed out", Level: "error"},
			{Timestamp: now, Message: "connection reset by peer", Level: "error"},
			{Timestamp: now, Message: "request timed out", Level: "error"},
		},
	}
	store := cache.NewMemoryStore()
	m := NewMinuteCycle(source, store, notifier.NewManager(), DefaultThresholds())
	m.now = func() time.Time { return now }

	require.NoError(t, m.CommitCumulative(context.Background()))
	// the second worker loses the minute lock and commits nothing
	require.NoError(t, m.CommitCumulative(context.Background()))
	assert.Equal(t, 1, source.searchCalls)

	counts, err := m.CumulativeCounts(context.Background(), ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["network_timeout"])
	assert.Equal(t, int64(1), counts["connection_reset"])

	daily := now.UTC().Format("20060102")
	counts, err = m.CumulativeCounts(context.Background(), daily)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["network_timeout"])
}

func TestMinutelyTrendCached(t *testing.T) {
	store := cache.NewMemoryStore()
	m := NewMinuteCycle(&fakeSource{}, store, notifier.NewManager(), DefaultThresholds())

	trend, err := m.MinutelyTrend(context.Background())
	require.NoError(t, err)
	assert.Len(t, trend["labels"], 2)

	var cached map[string]interface{}
	require.True(t, store.Get(context.Background(), keyMinutelyTrend, &cached))
}
