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

package trend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opsmind/inspector/cache"
	"github.com/opsmind/inspector/db/model"
	"github.com/opsmind/inspector/notifier"
)

const (
	keyLastNotify = "predictive_trend:last_notify"

	// notifyGate suppresses an unchanged alert set for this long.
	notifyGate = 10 * time.Minute

	lookback = 2 * time.Hour
)

//Thresholds per-metric alert thresholds for predicted usage
type Thresholds struct {
	CPU    float64
	Memory float64
	Disk   float64
}

//DefaultThresholds DefaultThresholds
func DefaultThresholds() Thresholds {
	return Thresholds{CPU: 60.0, Memory: 90.0, Disk: 85.0}
}

//Alert predicted threshold crossing on one instance metric
type Alert struct {
	Instance  string  `json:"instance"`
	Metric    string  `json:"metric"`
	Current   float64 `json:"current"`
	Predicted float64 `json:"predicted"`
	Threshold float64 `json:"threshold"`
	Trend     string  `json:"trend"`
}

type snapshotSource interface {
	ListInstancesSince(since time.Time) ([]string, error)
	GetSnapshotsSince(instance string, since time.Time) ([]*model.ResourceSnapshot, error)
}

type lastNotify struct {
	Signature string `json:"sig"`
	Timestamp int64  `json:"ts"`
}

//Checker predicts near-future resource usage from stored snapshots and
//alerts before a threshold is crossed.
type Checker struct {
	snapshots  snapshotSource
	store      cache.Store
	notify     *notifier.Manager
	thresholds Thresholds
	now        func() time.Time
}

//NewChecker NewChecker
func NewChecker(snapshots snapshotSource, store cache.Store, notify *notifier.Manager, thresholds Thresholds) *Checker {
	return &Checker{
		snapshots:  snapshots,
		store:      store,
		notify:     notify,
		thresholds: thresholds,
		now:        time.Now,
	}
}

//CheckTrendAlerts fit the last two hours of snapshots per instance and
//collect predicted crossings, worst overshoot first
func (c *Checker) CheckTrendAlerts(ctx context.Context) ([]Alert, error) {
	since := c.now().Add(-lookback)
	instances, err := c.snapshots.ListInstancesSince(since)
	if err != nil {
		return nil, errors.Wrap(err, "list snapshot instances")
	}
	var alerts []Alert
	for _, instance := range instances {
		snapshots, err := c.snapshots.GetSnapshotsSince(instance, since)
		if err != nil {
			logrus.Warningf("load snapshots of %s error %s", instance, err.Error())
			continue
		}
		if len(snapshots) == 0 {
			continue
		}
		cpu := make([]float64, 0, len(snapshots))
		mem := make([]float64, 0, len(snapshots))
		disk := make([]float64, 0, len(snapshots))
		for _, s := range snapshots {
			cpu = append(cpu, s.CPUUsage)
			mem = append(mem, s.MemUsage)
			disk = append(disk, s.DiskUsage)
		}
		alerts = append(alerts, c.evaluate(instance, "cpu", cpu, c.thresholds.CPU)...)
		alerts = append(alerts, c.evaluate(instance, "mem", mem, c.thresholds.Memory)...)
		alerts = append(alerts, c.evaluate(instance, "disk", disk, c.thresholds.Disk)...)
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Predicted-alerts[i].Threshold > alerts[j].Predicted-alerts[j].Threshold
	})
	return alerts, nil
}

func (c *Checker) evaluate(instance, metric string, series []float64, threshold float64) []Alert {
	prediction := Predict(series)
	if prediction.Trend != TrendRising || prediction.Value <= threshold {
		return nil
	}
	return []Alert{{
		Instance:  instance,
		Metric:    metric,
		Current:   series[len(series)-1],
		Predicted: prediction.Value,
		Threshold: threshold,
		Trend:     prediction.Trend,
	}}
}

//NotifyTrendAlerts send the top alerts unless the same set was sent
//inside the gate period
func (c *Checker) NotifyTrendAlerts(ctx context.Context, alerts []Alert) bool {
	if len(alerts) == 0 {
		return false
	}
	if len(alerts) > 5 {
		alerts = alerts[:5]
	}
	parts := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		parts = append(parts, fmt.Sprintf("%s:%s:%.1f", alert.Instance, alert.Metric, alert.Predicted))
	}
	signature := strings.Join(parts, "|")

	var last lastNotify
	if c.store.Get(ctx, keyLastNotify, &last) && last.Signature == signature {
		if c.now().Sub(time.Unix(last.Timestamp, 0)) < notifyGate {
			return false
		}
	}

	lines := make([]string, 0, len(alerts)+1)
	lines = append(lines, "[趋势预警] predicted resource threshold crossings:")
	for _, alert := range alerts {
		lines = append(lines, fmt.Sprintf("- %s %s: current %.1f%%, predicted %.1f%% (threshold %.0f%%)",
			alert.Instance, alert.Metric, round1(alert.Current), round1(alert.Predicted), alert.Threshold))
	}
	c.notify.NotifyAll(ctx, strings.Join(lines, "\n"))

	if err := c.store.SetWithTTL(ctx, keyLastNotify, lastNotify{
		Signature: signature,
		Timestamp: c.now().Unix(),
	}, notifyGate); err != nil {
		logrus.Warningf("record trend notify signature error %s", err.Error())
	}
	return true
}

//Run one full trend pass: check then notify
func (c *Checker) Run(ctx context.Context) error {
	alerts, err := c.CheckTrendAlerts(ctx)
	if err != nil {
		return err
	}
	c.NotifyTrendAlerts(ctx, alerts)
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
