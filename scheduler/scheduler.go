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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opsmind/inspector/inspection"
	"github.com/opsmind/inspector/pkg/gogo"
)

const (
	cronPollInterval = time.Minute
	errorBackoff     = time.Minute
)

type inspectionRunner interface {
	RunCycle(ctx context.Context) (*inspection.Report, error)
	ServerResources(ctx context.Context, refresh bool) (*inspection.ResourcesPayload, error)
}

type trendRunner interface {
	Run(ctx context.Context) error
}

//MinuteDriver the per-minute log monitoring work, nil when log
//monitoring is not configured
type MinuteDriver interface {
	RunCycle(ctx context.Context) error
	CommitCumulative(ctx context.Context) error
	MinutelyTrend(ctx context.Context) (map[string]interface{}, error)
}

//WeeklySchedule a wall-clock weekly run time
type WeeklySchedule struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

//Matches whether the schedule fires at the given time
func (w WeeklySchedule) Matches(now time.Time) bool {
	return now.Weekday() == w.Weekday && now.Hour() == w.Hour && now.Minute() == w.Minute
}

//Options scheduler options
type Options struct {
	Interval        time.Duration
	ResourceRefresh time.Duration
	Weekly          []WeeklySchedule
}

func (o *Options) complete() {
	if o.Interval == 0 {
		o.Interval = 5 * time.Minute
	}
	if o.ResourceRefresh == 0 {
		o.ResourceRefresh = time.Minute
	}
}

//Scheduler drives the periodic work of the platform
type Scheduler struct {
	engine    inspectionRunner
	trend     trendRunner
	minute    MinuteDriver
	options   Options
	callbacks []func(*inspection.Report)
	now       func() time.Time

	lastCronRun string
}

//New New
func New(engine inspectionRunner, trend trendRunner, minute MinuteDriver, options Options) *Scheduler {
	options.complete()
	return &Scheduler{
		engine:  engine,
		trend:   trend,
		minute:  minute,
		options: options,
		now:     time.Now,
	}
}

//OnCycle register a callback invoked after every inspection cycle. A
//panicking callback is recovered and never stops the others.
func (s *Scheduler) OnCycle(callback func(*inspection.Report)) {
	s.callbacks = append(s.callbacks, callback)
}

//RunInspectionCycle one full pass: inspect, check trends, run callbacks
func (s *Scheduler) RunInspectionCycle(ctx context.Context) error {
	report, err := s.engine.RunCycle(ctx)
	if err != nil {
		return err
	}
	if err := s.trend.Run(ctx); err != nil {
		logrus.Errorf("trend check error %s", err.Error())
	}
	for _, callback := range s.callbacks {
		s.runCallback(callback, report)
	}
	return nil
}

func (s *Scheduler) runCallback(callback func(*inspection.Report), report *inspection.Report) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("recovered in cycle callback: %v", r)
		}
	}()
	callback(report)
}

// checkWeekly fires due schedules at most once per minute.
func (s *Scheduler) checkWeekly() bool {
	now := s.now()
	due := false
	for _, schedule := range s.options.Weekly {
		if schedule.Matches(now) {
			due = true
			break
		}
	}
	if !due {
		return false
	}
	nowKey := now.Format("2006-01-02-15-04")
	if s.lastCronRun == nowKey {
		return false
	}
	s.lastCronRun = nowKey
	return true
}

//Start launch all periodic loops. Blocks until the context is done
//when wait is true via gogo.Wait at the caller.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := gogo.Go(s.intervalLoop, gogo.WithContext(ctx)); err != nil {
		return err
	}
	if len(s.options.Weekly) > 0 {
		if err := gogo.Go(s.weeklyLoop, gogo.WithContext(ctx)); err != nil {
			return err
		}
	}
	if s.minute != nil {
		if err := gogo.Go(s.minuteLoop, gogo.WithContext(ctx)); err != nil {
			return err
		}
	}
	if err := gogo.Go(s.resourceLoop, gogo.WithContext(ctx)); err != nil {
		return err
	}
	return nil
}

//StartCacheDrivers launch only the loops that keep the shared caches
//warm, for deployments where another process runs the inspections
func (s *Scheduler) StartCacheDrivers(ctx context.Context) error {
	if s.minute != nil {
		if err := gogo.Go(s.minuteLoop, gogo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return gogo.Go(s.resourceLoop, gogo.WithContext(ctx))
}

func (s *Scheduler) intervalLoop(ctx context.Context) error {
	for {
		wait := s.options.Interval
		if err := s.RunInspectionCycle(ctx); err != nil {
			logrus.Errorf("inspection cycle error %s", err.Error())
			wait = errorBackoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (s *Scheduler) weeklyLoop(ctx context.Context) error {
	ticker := time.NewTicker(cronPollInterval)
	defer ticker.Stop()
	for {
		if s.checkWeekly() {
			logrus.Info("weekly schedule due, running inspection cycle")
			if err := s.RunInspectionCycle(ctx); err != nil {
				logrus.Errorf("weekly inspection cycle error %s", err.Error())
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// minuteLoop aligns to the top of each minute so the analyzed window is
// always a complete one.
func (s *Scheduler) minuteLoop(ctx context.Context) error {
	for {
		align := time.Duration(60-s.now().Second()) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(align):
		}
		if err := s.minute.RunCycle(ctx); err != nil {
			logrus.Errorf("log minute cycle error %s", err.Error())
		}
		if err := s.minute.CommitCumulative(ctx); err != nil {
			logrus.Errorf("cumulative commit error %s", err.Error())
		}
		if _, err := s.minute.MinutelyTrend(ctx); err != nil {
			logrus.Errorf("minutely trend error %s", err.Error())
		}
	}
}

func (s *Scheduler) resourceLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.options.ResourceRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := s.engine.ServerResources(ctx, true); err != nil {
			logrus.Errorf("refresh server resources error %s", err.Error())
		}
		if err := s.trend.Run(ctx); err != nil {
			logrus.Errorf("trend check error %s", err.Error())
		}
	}
}
