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
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opsmind/inspector/cache"
	"github.com/opsmind/inspector/notifier"
)

const (
	keyLastMinuteTotal = "log:last_minute:total"
	keyLastMinuteStats = "log:last_minute:stats"
	keyThresholdAlerts = "log:threshold_alerts"
	keyMinutelyTrend   = "log:trend:minutely:60"

	minuteCacheTTL = time.Minute
)

//MinuteStats per-minute analysis result
type MinuteStats struct {
	Window         string         `json:"window"`
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	Total          int            `json:"total"`
	CategoryCounts map[string]int `json:"category_counts"`
	SeverityCounts map[string]int `json:"severity_counts"`
}

//MinuteCycle analyzes the previous full minute of logs: classify,
//aggregate, raise threshold alerts and publish the results.
type MinuteCycle struct {
	source     Source
	classifier *Classifier
	aggregator *Aggregator
	store      cache.Store
	notify     *notifier.Manager
	thresholds Thresholds
	now        func() time.Time

	lastTotalAlert time.Time
}

//NewMinuteCycle NewMinuteCycle
func NewMinuteCycle(source Source, store cache.Store, notify *notifier.Manager, thresholds Thresholds) *MinuteCycle {
	return &MinuteCycle{
		source:     source,
		classifier: NewClassifier(),
		aggregator: NewAggregator(thresholds),
		store:      store,
		notify:     notify,
		thresholds: thresholds,
		now:        time.Now,
	}
}

//PreviousMinuteWindow the last complete minute [start, end)
func (m *MinuteCycle) PreviousMinuteWindow() (time.Time, time.Time) {
	end := m.now().UTC().Truncate(time.Minute)
	return end.Add(-time.Minute), end
}

//CountLastMinuteTotal total log volume of the last minute, cached for
//the dashboard. A volume spike raises a notification with a 5 minute gate.
func (m *MinuteCycle) CountLastMinuteTotal(ctx context.Context) (int64, error) {
	start, end := m.PreviousMinuteWindow()
	total, err := m.source.CountRange(ctx, start, end)
	if err != nil {
		return 0, errors.Wrap(err, "count last minute logs")
	}
	if err := m.store.SetWithTTL(ctx, keyLastMinuteTotal, total, minuteCacheTTL); err != nil {
		logrus.Warningf("cache last minute total error %s", err.Error())
	}
	if total > m.thresholds.MinuteTotalCount && m.now().Sub(m.lastTotalAlert) >= alertGate {
		m.lastTotalAlert = m.now()
		m.notify.NotifyAll(ctx, fmt.Sprintf("[log volume alert] %s logged %d entries in one minute, threshold %d",
			DescribeWindow(start, end), total, m.thresholds.MinuteTotalCount))
	}
	return total, nil
}

//AnalyzeLastMinute classify the last minute's error logs and feed the
//sliding windows
func (m *MinuteCycle) AnalyzeLastMinute(ctx context.Context) (*MinuteStats, error) {
	start, end := m.PreviousMinuteWindow()
	hits, err := m.source.SearchRange(ctx, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "search last minute logs")
	}
	stats := &MinuteStats{
		Window:         DescribeWindow(start, end),
		Start:          start,
		End:            end,
		Total:          len(hits),
		CategoryCounts: make(map[string]int),
		SeverityCounts: make(map[string]int),
	}
	for _, hit := range hits {
		cls := m.classifier.Classify(hit.Message, hit.Level)
		stats.CategoryCounts[cls.Category]++
		stats.SeverityCounts[cls.Severity]++
		m.aggregator.Ingest(cls.Category, hit.Timestamp)
	}
	return stats, nil
}

//RunCycle one full minute cycle: analyze, publish stats, check
//thresholds and notify
func (m *MinuteCycle) RunCycle(ctx context.Context) error {
	if _, err := m.CountLastMinuteTotal(ctx); err != nil {
		logrus.Warningf("minute cycle count error %s", err.Error())
	}
	stats, err := m.AnalyzeLastMinute(ctx)
	if err != nil {
		return err
	}
	if err := m.store.SetWithTTL(ctx, keyLastMinuteStats, stats, minuteCacheTTL); err != nil {
		logrus.Warningf("cache minute stats error %s", err.Error())
	}
	alerts := m.aggregator.CheckThresholds()
	payload := map[string]interface{}{
		"alerts": alerts,
		"ts":     m.now().Unix(),
	}
	if err := m.store.SetWithTTL(ctx, keyThresholdAlerts, payload, minuteCacheTTL); err != nil {
		logrus.Warningf("cache threshold alerts error %s", err.Error())
	}
	if len(alerts) > 0 {
		m.notify.NotifyAll(ctx, formatThresholdAlerts(alerts))
	}
	return nil
}

//MinutelyTrend per-minute log volume over the last hour, cached for
//the dashboard
func (m *MinuteCycle) MinutelyTrend(ctx context.Context) (map[string]interface{}, error) {
	end := m.now().UTC()
	labels, values, err := m.source.MinutelyHistogram(ctx, end.Add(-time.Hour), end)
	if err != nil {
		return nil, errors.Wrap(err, "minutely log histogram")
	}
	trend := map[string]interface{}{
		"labels": labels,
		"values": values,
	}
	if err := m.store.SetWithTTL(ctx, keyMinutelyTrend, trend, minuteCacheTTL); err != nil {
		logrus.Warningf("cache minutely trend error %s", err.Error())
	}
	return trend, nil
}

func formatThresholdAlerts(alerts []Alert) string {
	lines := make([]string, 0, len(alerts)+1)
	lines = append(lines, "[log threshold alert]")
	for _, alert := range alerts {
		lines = append(lines, "- "+alert.Message)
	}
	return strings.Join(lines, "\n")
}
