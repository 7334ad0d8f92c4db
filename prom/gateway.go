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
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	apiv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opsmind/inspector/cache"
)

type querier interface {
	Query(ctx context.Context, query string, ts time.Time) (model.Value, error)
	QueryRange(ctx context.Context, query string, r apiv1.Range) (model.Value, error)
	RawEndpoint(ctx context.Context, path string) (*simplejson.Json, error)
}

//Gateway caching front to the prometheus client. All reads the rest of
//the platform does go through here so query statistics stay in one place.
type Gateway struct {
	client  querier
	cache   *cache.Local
	workers int
	now     func() time.Time

	mu                sync.Mutex
	totalQueries      int64
	totalResponseTime float64
	cacheHits         int64
	cacheMisses       int64
}

//NewGateway NewGateway
func NewGateway(options Options) (*Gateway, error) {
	options.complete()
	client, err := NewClient(options)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		client:  client,
		cache:   cache.NewLocal(options.CacheTTL, options.MaxCacheEntries),
		workers: options.MaxWorkers,
		now:     time.Now,
	}, nil
}

func newGatewayWith(client querier, options Options) *Gateway {
	options.complete()
	return &Gateway{
		client:  client,
		cache:   cache.NewLocal(options.CacheTTL, options.MaxCacheEntries),
		workers: options.MaxWorkers,
		now:     time.Now,
	}
}

func cacheKey(query string, params map[string]string) string {
	if len(params) == 0 {
		return query
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return query + ":" + strings.Join(parts, "&")
}

// cache hits still count as queries, with zero response time. Every
// other query is a miss, whether or not the caller wanted the cache.
func (g *Gateway) record(responseTime float64, hit bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.totalQueries++
	g.totalResponseTime += responseTime
	if hit {
		g.cacheHits++
	} else {
		g.cacheMisses++
	}
}

//Instant run an instant query at the current time
func (g *Gateway) Instant(ctx context.Context, query string, useCache bool) *Metric {
	if useCache {
		if v, ok := g.cache.Get(query); ok {
			g.record(0, true)
			return v.(*Metric)
		}
	}
	start := g.now()
	value, err := g.client.Query(ctx, query, g.now())
	responseTime := g.now().Sub(start).Seconds()
	g.record(responseTime, false)
	if err != nil {
		logrus.Warningf("instant query %q error %s", query, err.Error())
		return &Metric{Error: err.Error()}
	}
	metric := &Metric{MetricData: parseQueryResp(value)}
	if useCache {
		g.cache.Set(query, metric)
	}
	return metric
}

//Range run a range query
func (g *Gateway) Range(ctx context.Context, query string, start, end time.Time, step time.Duration, useCache bool) *Metric {
	key := cacheKey(query, map[string]string{
		"start": fmt.Sprintf("%d", start.Unix()),
		"end":   fmt.Sprintf("%d", end.Unix()),
		"step":  step.String(),
	})
	if useCache {
		if v, ok := g.cache.Get(key); ok {
			g.record(0, true)
			return v.(*Metric)
		}
	}
	began := g.now()
	value, err := g.client.QueryRange(ctx, query, apiv1.Range{Start: start, End: end, Step: step})
	responseTime := g.now().Sub(began).Seconds()
	g.record(responseTime, false)
	if err != nil {
		logrus.Warningf("range query %q error %s", query, err.Error())
		return &Metric{Error: err.Error()}
	}
	metric := &Metric{MetricData: parseQueryRangeResp(value)}
	if useCache {
		g.cache.Set(key, metric)
	}
	return metric
}

//BatchInstant run many instant queries concurrently, preserving order.
//With useCache, cached entries are served directly and only the rest
//fan out over a bounded worker group. A per-query failure becomes a
//Metric with Error set.
func (g *Gateway) BatchInstant(ctx context.Context, queries []string, useCache bool) []*Metric {
	results := make([]*Metric, len(queries))
	var uncached []int
	for i, query := range queries {
		if useCache {
			if v, ok := g.cache.Get(query); ok {
				g.record(0, true)
				results[i] = v.(*Metric)
				continue
			}
		}
		uncached = append(uncached, i)
	}
	if len(uncached) == 0 {
		return results
	}
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, i := range uncached {
		i := i
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("batch query worker panic: %v", r)
				}
			}()
			results[i] = g.Instant(gctx, queries[i], false)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		// re-issue the whole batch one by one with caching disabled
		logrus.Errorf("batch instant query error %s, falling back to sequential", err.Error())
		for i, query := range queries {
			results[i] = g.Instant(ctx, query, false)
		}
	}
	return results
}

//OptimizeQueries reorders queries so related node metrics are adjacent.
//Grouping is by well known metric name substrings.
func (g *Gateway) OptimizeQueries(queries []string) []string {
	groups := map[string][]string{}
	for _, query := range queries {
		switch {
		case strings.Contains(query, "node_cpu_seconds_total"):
			groups["cpu"] = append(groups["cpu"], query)
		case strings.Contains(query, "node_memory"):
			groups["memory"] = append(groups["memory"], query)
		case strings.Contains(query, "node_filesystem"):
			groups["filesystem"] = append(groups["filesystem"], query)
		case strings.Contains(query, "node_network"):
			groups["network"] = append(groups["network"], query)
		default:
			groups["other"] = append(groups["other"], query)
		}
	}
	optimized := make([]string, 0, len(queries))
	for _, group := range []string{"cpu", "memory", "filesystem", "network", "other"} {
		optimized = append(optimized, groups[group]...)
	}
	return optimized
}

//Targets raw /api/v1/targets response
func (g *Gateway) Targets(ctx context.Context) (*simplejson.Json, error) {
	return g.client.RawEndpoint(ctx, "/api/v1/targets")
}

//Alerts raw /api/v1/alerts response
func (g *Gateway) Alerts(ctx context.Context) (*simplejson.Json, error) {
	return g.client.RawEndpoint(ctx, "/api/v1/alerts")
}

//Stats query performance counters
func (g *Gateway) Stats() map[string]interface{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	stats := map[string]interface{}{
		"total_queries":       g.totalQueries,
		"total_response_time": g.totalResponseTime,
		"avg_response_time":   0.0,
		"cache_hits":          g.cacheHits,
		"cache_misses":        g.cacheMisses,
		"cache_hit_rate":      0.0,
		"cache_size":          g.cache.Len(),
	}
	if g.totalQueries > 0 {
		stats["avg_response_time"] = g.totalResponseTime / float64(g.totalQueries)
		stats["cache_hit_rate"] = math.Round(float64(g.cacheHits)/float64(g.totalQueries)*100*100) / 100
	}
	return stats
}
