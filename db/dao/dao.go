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

package dao

import (
	"time"

	"github.com/opsmind/inspector/db/model"
)

//Dao base dao interface
type Dao interface {
	AddModel(model.Interface) error
	UpdateModel(model.Interface) error
}

//DailyHealthStat per-day aggregation of inspection results
type DailyHealthStat struct {
	Date        string `gorm:"column:date" json:"date"`
	TotalChecks int    `gorm:"column:total_checks" json:"total_checks"`
	AlertCount  int    `gorm:"column:alert_count" json:"alert_count"`
	ErrorCount  int    `gorm:"column:error_count" json:"error_count"`
	OKCount     int    `gorm:"column:ok_count" json:"ok_count"`
}

//InspectionResultDao inspection result dao
type InspectionResultDao interface {
	Dao
	AddBatch(results []*model.InspectionResult) error
	GetResultsAfter(since time.Time) ([]*model.InspectionResult, error)
	GetDailyHealthStats(days int) ([]*DailyHealthStat, error)
}

//InspectionSummaryDao inspection summary dao
type InspectionSummaryDao interface {
	Dao
	GetSummariesAfter(since time.Time) ([]*model.InspectionSummary, error)
}

//InspectionRuleDao user defined rule dao
type InspectionRuleDao interface {
	Dao
	GetEnabledRules() ([]*model.InspectionRule, error)
	GetRuleByName(name string) (*model.InspectionRule, error)
}

//ResourceSnapshotDao server resource snapshot dao
type ResourceSnapshotDao interface {
	Dao
	AddBatch(snapshots []*model.ResourceSnapshot) error
	GetSnapshotsSince(instance string, since time.Time) ([]*model.ResourceSnapshot, error)
	ListInstancesSince(since time.Time) ([]string, error)
}

//ConfigDao runtime parameter dao
type ConfigDao interface {
	Dao
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}
