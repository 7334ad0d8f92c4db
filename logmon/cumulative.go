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
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	//ScopeGlobal cumulative counters over all time
	ScopeGlobal = "global"

	cumulativeLockTTL = 75 * time.Second
	dailyScopeTTL     = 3 * 24 * time.Hour
)

func cumulativeKey(scope string) string {
	return "log:cumulative:error_types:" + scope + ":hash"
}

func cumulativeLockKey(minute time.Time) string {
	return "log:cumulative:error_types:global:lock:" + minute.UTC().Format("200601021504")
}

//CommitCumulative adds the previous minute's error categories to the
//global and daily cumulative counters. A per-minute lock keeps multiple
//workers from double counting; losing the lock is not an error.
func (m *MinuteCycle) CommitCumulative(ctx context.Context) error {
	start, end := m.PreviousMinuteWindow()
	acquired, err := m.store.TryAcquireLock(ctx, cumulativeLockKey(end), cumulativeLockTTL)
	if err != nil {
		return errors.Wrap(err, "acquire cumulative lock")
	}
	if !acquired {
		logrus.Debugf("cumulative commit for %s already claimed", end.Format("15:04"))
		return nil
	}
	hits, err := m.source.SearchRange(ctx, start, end)
	if err != nil {
		return errors.Wrap(err, "search logs for cumulative commit")
	}
	if len(hits) == 0 {
		return nil
	}
	increments := make(map[string]int64)
	for _, hit := range hits {
		cls := m.classifier.Classify(hit.Message, hit.Level)
		increments[cls.Category]++
	}
	if err := m.store.HIncrByMapping(ctx, cumulativeKey(ScopeGlobal), increments, 0); err != nil {
		return errors.Wrap(err, "update global cumulative counters")
	}
	daily := end.UTC().Format("20060102")
	if err := m.store.HIncrByMapping(ctx, cumulativeKey(daily), increments, dailyScopeTTL); err != nil {
		return errors.Wrap(err, "update daily cumulative counters")
	}
	return nil
}

//CumulativeCounts read the cumulative error type counters of a scope,
//ScopeGlobal or a YYYYMMDD day
func (m *MinuteCycle) CumulativeCounts(ctx context.Context, scope string) (map[string]int64, error) {
	fields, err := m.store.HGetAll(ctx, cumulativeKey(scope))
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(fields))
	for category, raw := range fields {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logrus.Warningf("bad cumulative counter %s=%s", category, raw)
			continue
		}
		counts[category] = value
	}
	return counts, nil
}
