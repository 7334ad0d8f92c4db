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

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmind/inspector/inspection"
)

type fakeEngine struct {
	cycles    int
	refreshes int
}

func (f *fakeEngine) RunCycle(ctx context.Context) (*inspection.Report, error) {
	f.cycles++
	return &inspection.Report{}, nil
}

func (f *fakeEngine) ServerResources(ctx context.Context, refresh bool) (*inspection.ResourcesPayload, error) {
	f.refreshes++
	return &inspection.ResourcesPayload{}, nil
}

type fakeTrend struct {
	runs int
}

func (f *fakeTrend) Run(ctx context.Context) error {
	f.runs++
	return nil
}

func TestWeeklyScheduleMatches(t *testing.T) {
	// 2026-08-24 is a Monday
	monday := time.Date(2026, 8, 24, 3, 30, 12, 0, time.UTC)
	schedule := WeeklySchedule{Weekday: time.Monday, Hour: 3, Minute: 30}
	assert.True(t, schedule.Matches(monday))
	assert.False(t, schedule.Matches(monday.Add(time.Minute)))
	assert.False(t, schedule.Matches(monday.Add(24*time.Hour)))
}

func TestCheckWeeklyDedup(t *testing.T) {
	now := time.Date(2026, 8, 24, 3, 30, 0, 0, time.UTC)
	s := New(&fakeEngine{}, &fakeTrend{}, nil, Options{
		Weekly: []WeeklySchedule{{Weekday: time.Monday, Hour: 3, Minute: 30}},
	})
	s.now = func() time.Time { return now }

	assert.True(t, s.checkWeekly())
	// polled again inside the same minute
	now = now.Add(30 * time.Second)
	assert.False(t, s.checkWeekly())
	// outside the schedule window
	now = now.Add(time.Minute)
	assert.False(t, s.checkWeekly())
	// the next week fires again
	now = now.Add(7*24*time.Hour - 90*time.Second)
	assert.True(t, s.checkWeekly())
}

func TestRunInspectionCycleInvokesTrendAndCallbacks(t *testing.T) {
	engine := &fakeEngine{}
	trend := &fakeTrend{}
	s := New(engine, trend, nil, Options{})

	var reports []*inspection.Report
	s.OnCycle(func(report *inspection.Report) {
		reports = append(reports, report)
	})
	s.OnCycle(func(report *inspection.Report) {
		panic("broken callback")
	})
	calledAfterPanic := false
	s.OnCycle(func(report *inspection.Report) {
		calledAfterPanic = true
	})

	require.NoError(t, s.RunInspectionCycle(context.Background()))
	assert.Equal(t, 1, engine.cycles)
	assert.Equal(t, 1, trend.runs)
	assert.Len(t, reports, 1)
	assert.True(t, calledAfterPanic, "a panicking callback must not stop the rest")
}
