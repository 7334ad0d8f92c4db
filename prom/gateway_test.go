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

package prom

import (
	"context"
	"sync"
	"testing"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/pkg/errors"
	apiv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeQuerier) Query(ctx context.Context, query string, ts time.Time) (model.Value, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()
	if err, ok := f.fail[query]; ok {
		return nil, err
	}
	return model.Vector{
		&model.Sample{
			Metric:    model.Metric{"instance": "node1:9100"},
			Value:     42,
			Timestamp: model.Time(1700000000000),
		},
	}, nil
}

func (f *fakeQuerier) QueryRange(ctx context.Context, query string, r apiv1.Range) (model.Value, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()
	return model.Matrix{
		&model.SampleStream{
			Metric: model.Metric{"instance": "node1:9100"},
			Values: []model.SamplePair{
				{Timestamp: model.Time(1700000000000), Value: 1},
				{Timestamp: model.Time(1700000060000), Value: 2},
			},
		},
	}, nil
}

func (f *fakeQuerier) RawEndpoint(ctx context.Context, path string) (*simplejson.Json, error) {
	return simplejson.NewJson([]byte(`{"status":"success"}`))
}

func (f *fakeQuerier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestInstantCacheAndStats(t *testing.T) {
	fake := &fakeQuerier{}
	g := newGatewayWith(fake, Options{})

	m := g.Instant(context.Background(), "up", true)
	require.Empty(t, m.Error)
	require.Len(t, m.MetricData.MetricValues, 1)
	assert.Equal(t, 42.0, m.MetricData.MetricValues[0].Sample.Value())
	assert.Equal(t, "node1:9100", m.MetricData.MetricValues[0].Metadata["instance"])

	// second read is a hit, still counted as a query
	m2 := g.Instant(context.Background(), "up", true)
	assert.Same(t, m, m2)
	assert.Equal(t, 1, fake.callCount())

	stats := g.Stats()
	assert.Equal(t, int64(2), stats["total_queries"])
	assert.Equal(t, int64(1), stats["cache_hits"])
	assert.Equal(t, int64(1), stats["cache_misses"])
	assert.Equal(t, 50.0, stats["cache_hit_rate"])
	assert.Equal(t, 1, stats["cache_size"])
}

func TestInstantQueryError(t *testing.T) {
	fake := &fakeQuerier{fail: map[string]error{"bad": errors.New("boom")}}
	g := newGatewayWith(fake, Options{})

	m := g.Instant(context.Background(), "bad", true)
	assert.Equal(t, "boom", m.Error)
	assert.Empty(t, m.MetricData.MetricValues)

	// errors are not cached
	g.Instant(context.Background(), "bad", true)
	assert.Equal(t, 2, fake.callCount())
}

func TestBatchInstantPreservesOrder(t *testing.T) {
	fake := &fakeQuerier{fail: map[string]error{"q2": errors.New("no data")}}
	g := newGatewayWith(fake, Options{MaxWorkers: 2})

	// q3 is already cached, only q1 and q2 hit the backend
	g.Instant(context.Background(), "q3", true)

	results := g.BatchInstant(context.Background(), []string{"q1", "q2", "q3"}, true)
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, "no data", results[1].Error)
	assert.Empty(t, results[2].Error)
	assert.Equal(t, 3, fake.callCount())

	// batch sub-queries count as misses like any other query
	stats := g.Stats()
	assert.Equal(t, int64(4), stats["total_queries"])
	assert.Equal(t, int64(1), stats["cache_hits"])
	assert.Equal(t, int64(3), stats["cache_misses"])

	// without the cache even q3 goes back to the backend
	g.BatchInstant(context.Background(), []string{"q1", "q2", "q3"}, false)
	assert.Equal(t, 6, fake.callCount())
}

func TestRangeQuery(t *testing.T) {
	fake := &fakeQuerier{}
	g := newGatewayWith(fake, Options{})

	end := time.Now()
	m := g.Range(context.Background(), "node_load1", end.Add(-time.Hour), end, time.Minute, true)
	require.Empty(t, m.Error)
	require.Len(t, m.MetricData.MetricValues, 1)
	assert.Equal(t, MetricTypeMatrix, m.MetricData.MetricType)
	assert.Len(t, m.MetricData.MetricValues[0].Series, 2)

	m2 := g.Range(context.Background(), "node_load1", end.Add(-time.Hour), end, time.Minute, true)
	assert.Same(t, m, m2)
	assert.Equal(t, 1, fake.callCount())
}

func TestOptimizeQueries(t *testing.T) {
	g := newGatewayWith(&fakeQuerier{}, Options{})
	queries := []string{
		"up",
		"rate(node_network_receive_bytes_total[5m])",
		"node_memory_MemTotal_bytes",
		"node_filesystem_free_bytes",
		"irate(node_cpu_seconds_total[5m])",
	}
	optimized := g.OptimizeQueries(queries)
	assert.Equal(t, []string{
		"irate(node_cpu_seconds_total[5m])",
		"node_memory_MemTotal_bytes",
		"node_filesystem_free_bytes",
		"rate(node_network_receive_bytes_total[5m])",
		"up",
	}, optimized)
}
