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

package inspection

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/opsmind/inspector/db/model"
)

//History recent inspection rows and their summaries
type History struct {
	Results   []*model.InspectionResult  `json:"results"`
	Summaries []*model.InspectionSummary `json:"summaries"`
}

//GetInspectionHistory results and summaries of the last N hours
func (e *Engine) GetInspectionHistory(hours int) (*History, error) {
	since := e.now().Add(-time.Duration(hours) * time.Hour)
	results, err := e.manager.InspectionResultDao().GetResultsAfter(since)
	if err != nil {
		return nil, errors.Wrap(err, "load inspection results")
	}
	summaries, err := e.manager.InspectionSummaryDao().GetSummariesAfter(since)
	if err != nil {
		return nil, errors.Wrap(err, "load inspection summaries")
	}
	return &History{Results: results, Summaries: summaries}, nil
}

//DailyTrend per-day health of the platform
type DailyTrend struct {
	Date        string  `json:"date"`
	TotalChecks int     `json:"total_checks"`
	AlertCount  int     `json:"alert_count"`
	ErrorCount  int     `json:"error_count"`
	OKCount     int     `json:"ok_count"`
	HealthScore float64 `json:"health_score"`
}

//GetHealthTrends daily health score aggregation over the last N days
func (e *Engine) GetHealthTrends(days int) ([]*DailyTrend, error) {
	stats, err := e.manager.InspectionResultDao().GetDailyHealthStats(days)
	if err != nil {
		return nil, errors.Wrap(err, "load daily health stats")
	}
	trends := make([]*DailyTrend, 0, len(stats))
	for _, stat := range stats {
		trend := &DailyTrend{
			Date:        stat.Date,
			TotalChecks: stat.TotalChecks,
			AlertCount:  stat.AlertCount,
			ErrorCount:  stat.ErrorCount,
			OKCount:     stat.OKCount,
		}
		if stat.TotalChecks > 0 {
			trend.HealthScore = math.Round(float64(stat.OKCount)/float64(stat.TotalChecks)*100*10) / 10
		}
		trends = append(trends, trend)
	}
	return trends, nil
}
