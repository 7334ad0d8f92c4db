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
	"fmt"
	"math"
	"sync"
	"time"
)

//Thresholds alert thresholds of the log monitor
type Thresholds struct {
	ErrorCount5Min   int
	ErrorGrowth1Hour float64
	MinuteTotalCount int64
}

//DefaultThresholds DefaultThresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		ErrorCount5Min:   50,
		ErrorGrowth1Hour: 0.5,
		MinuteTotalCount: 1000,
	}
}

// alertGate suppresses repeats of the same alert for this long.
const alertGate = 5 * time.Minute

//Alert threshold alert raised by the aggregator
type Alert struct {
	Type          string  `json:"type"`
	Category      string  `json:"category"`
	Count         int     `json:"count,omitempty"`
	CurrentCount  int     `json:"current_count,omitempty"`
	PreviousCount int     `json:"previous_count,omitempty"`
	GrowthRate    float64 `json:"growth_rate,omitempty"`
	Threshold     float64 `json:"threshold"`
	Window        string  `json:"window,omitempty"`
	Message       string  `json:"message"`
}

type windowEntry struct {
	category string
	ts       time.Time
}

var windowHorizons = map[string]time.Duration{
	"5min":   5 * time.Minute,
	"1hour":  time.Hour,
	"24hour": 24 * time.Hour,
}

//Aggregator keeps sliding windows of classified errors and raises
//threshold alerts. Stale entries are purged when new ones arrive, not
//when thresholds are checked, so a quiet period leaves the last hour's
//entries in place for the growth comparison.
type Aggregator struct {
	mu         sync.Mutex
	windows    map[string][]windowEntry
	thresholds Thresholds
	lastAlert  map[string]time.Time
	now        func() time.Time
}

//NewAggregator NewAggregator
func NewAggregator(thresholds Thresholds) *Aggregator {
	return &Aggregator{
		windows:    make(map[string][]windowEntry),
		thresholds: thresholds,
		lastAlert:  make(map[string]time.Time),
		now:        time.Now,
	}
}

//Ingest record one classified error into every window
func (a *Aggregator) Ingest(category string, ts time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for window := range windowHorizons {
		a.windows[window] = append(a.windows[window], windowEntry{category: category, ts: ts})
	}
	a.cleanup()
}

func (a *Aggregator) cleanup() {
	now := a.now()
	for window, horizon := range windowHorizons {
		cutoff := now.Add(-horizon)
		entries := a.windows[window]
		kept := entries[:0]
		for _, entry := range entries {
			if entry.ts.After(cutoff) {
				kept = append(kept, entry)
			}
		}
		a.windows[window] = kept
	}
}

//CheckThresholds evaluate count and growth thresholds. Repeats of the
//same alert inside the gate period are suppressed.
func (a *Aggregator) CheckThresholds() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	var alerts []Alert

	counts := make(map[string]int)
	cutoff := now.Add(-5 * time.Minute)
	for _, entry := range a.windows["5min"] {
		if entry.ts.After(cutoff) {
			counts[entry.category]++
		}
	}
	for category, count := range counts {
		if count <= a.thresholds.ErrorCount5Min {
			continue
		}
		gateKey := "count:" + category
		if last, ok := a.lastAlert[gateKey]; ok && now.Sub(last) < alertGate {
			continue
		}
		a.lastAlert[gateKey] = now
		alerts = append(alerts, Alert{
			Type:      "error_count_threshold",
			Category:  category,
			Count:     count,
			Threshold: float64(a.thresholds.ErrorCount5Min),
			Window:    "5min",
			Message: fmt.Sprintf("%s: %d errors in 5min (threshold %d)",
				category, count, a.thresholds.ErrorCount5Min),
		})
	}

	alerts = append(alerts, a.checkGrowth(now)...)
	return alerts
}

func (a *Aggregator) checkGrowth(now time.Time) []Alert {
	recent := make(map[string]int)
	previous := make(map[string]int)
	hourAgo := now.Add(-time.Hour)
	twoHoursAgo := now.Add(-2 * time.Hour)
	for _, entry := range a.windows["1hour"] {
		switch {
		case !entry.ts.Before(hourAgo) && entry.ts.Before(now):
			recent[entry.category]++
		case !entry.ts.Before(twoHoursAgo) && entry.ts.Before(hourAgo):
			previous[entry.category]++
		}
	}
	var alerts []Alert
	for category, current := range recent {
		prev := previous[category]
		if prev <= 0 {
			continue
		}
		growth := float64(current-prev) / float64(prev)
		if growth <= a.thresholds.ErrorGrowth1Hour {
			continue
		}
		gateKey := "growth:" + category
		if last, ok := a.lastAlert[gateKey]; ok && now.Sub(last) < alertGate {
			continue
		}
		a.lastAlert[gateKey] = now
		alerts = append(alerts, Alert{
			Type:          "error_growth_threshold",
			Category:      category,
			CurrentCount:  current,
			PreviousCount: prev,
			GrowthRate:    math.Round(growth*10000) / 10000,
			Threshold:     a.thresholds.ErrorGrowth1Hour,
			Message: fmt.Sprintf("%s: errors grew %.0f%% hour over hour (%d -> %d)",
				category, growth*100, prev, current),
		})
	}
	return alerts
}

//CategoryCounts counts per category currently inside one window
func (a *Aggregator) CategoryCounts(window string) map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	counts := make(map[string]int)
	for _, entry := range a.windows[window] {
		counts[entry.category]++
	}
	return counts
}
