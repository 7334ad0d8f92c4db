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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmind/inspector/cache"
	"github.com/opsmind/inspector/db/model"
	"github.com/opsmind/inspector/notifier"
)

func TestPredict(t *testing.T) {
	// perfect rising line, a=10 b=0, fitted value at the window end
	p := Predict([]float64{10, 20, 30})
	assert.Equal(t, TrendRising, p.Trend)
	assert.InDelta(t, 30.0, p.Value, 0.001)

	p = Predict([]float64{30, 20, 10})
	assert.Equal(t, TrendFalling, p.Trend)
	assert.InDelta(t, 10.0, p.Value, 0.001)

	// fit undershooting zero is clamped
	p = Predict([]float64{10, 0, 0})
	assert.Equal(t, TrendFalling, p.Trend)
	assert.Equal(t, 0.0, p.Value)

	p = Predict([]float64{50, 50, 50})
	assert.Equal(t, TrendStable, p.Trend)
	assert.InDelta(t, 50.0, p.Value, 0.001)

	p = Predict([]float64{42})
	assert.Equal(t, TrendInsufficient, p.Trend)
	assert.Equal(t, 42.0, p.Value)

	p = Predict(nil)
	assert.Equal(t, TrendInsufficient, p.Trend)
	assert.Equal(t, 0.0, p.Value)

	// only the last five samples matter
	p = Predict([]float64{99, 99, 99, 10, 20, 30, 40, 50})
	assert.Equal(t, TrendRising, p.Trend)
	assert.InDelta(t, 50.0, p.Value, 0.001)
}

type fakeSnapshots struct {
	byInstance map[string][]float64 // cpu series
}

func (f *fakeSnapshots) ListInstancesSince(since time.Time) ([]string, error) {
	var instances []string
	for instance := range f.byInstance {
		instances = append(instances, instance)
	}
	return instances, nil
}

func (f *fakeSnapshots) GetSnapshotsSince(instance string, since time.Time) ([]*model.ResourceSnapshot, error) {
	var snapshots []*model.ResourceSnapshot
	for _, cpu := range f.byInstance[instance] {
		snapshots = append(snapshots, &model.ResourceSnapshot{
			Instance:  instance,
			CPUUsage:  cpu,
			MemUsage:  10,
			DiskUsage: 10,
		})
	}
	return snapshots, nil
}

func TestCheckTrendAlerts(t *testing.T) {
	snapshots := &fakeSnapshots{byInstance: map[string][]float64{
		"node1:9100": {50, 60, 70}, // predicted 70, over the 60 threshold
		"node2:9100": {70, 60, 50}, // falling, never alerts
		"node3:9100": {10, 10, 10}, // stable
	}}
	c := NewChecker(snapshots, cache.NewMemoryStore(), notifier.NewManager(), DefaultThresholds())

	alerts, err := c.CheckTrendAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "node1:9100", alerts[0].Instance)
	assert.Equal(t, "cpu", alerts[0].Metric)
	assert.Equal(t, TrendRising, alerts[0].Trend)
	assert.InDelta(t, 70.0, alerts[0].Predicted, 0.001)
	assert.Equal(t, 60.0, alerts[0].Threshold)
}

type recordingChannel struct {
	messages []string
}

func (r *recordingChannel) Name() string { return "recording" }

func (r *recordingChannel) Send(ctx context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func TestNotifyTrendAlertsDedup(t *testing.T) {
	now := time.Now()
	channel := &recordingChannel{}
	c := NewChecker(&fakeSnapshots{}, cache.NewMemoryStore(), notifier.NewManager(channel), DefaultThresholds())
	c.now = func() time.Time { return now }

	alerts := []Alert{{Instance: "node1:9100", Metric: "cpu", Current: 60, Predicted: 70.04, Threshold: 60, Trend: TrendRising}}
	assert.True(t, c.NotifyTrendAlerts(context.Background(), alerts))
	require.Len(t, channel.messages, 1)

	// identical alert set inside the gate is suppressed
	assert.False(t, c.NotifyTrendAlerts(context.Background(), alerts))
	assert.Len(t, channel.messages, 1)

	// the same set fires again once the gate expires
	now = now.Add(11 * time.Minute)
	assert.True(t, c.NotifyTrendAlerts(context.Background(), alerts))
	assert.Len(t, channel.messages, 2)

	// a different prediction changes the signature and goes out at once
	alerts[0].Predicted = 80
	assert.True(t, c.NotifyTrendAlerts(context.Background(), alerts))
	assert.Len(t, channel.messages, 3)
}
