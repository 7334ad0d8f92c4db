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

package model

import "time"

// Result status of a single health check evaluation.
const (
	CheckStatusOK    = "ok"
	CheckStatusAlert = "alert"
	CheckStatusError = "error"
)

//InspectionResult one health check evaluation result
type InspectionResult struct {
	Model
	Timestamp time.Time `gorm:"column:ts;index" json:"ts"`
	CheckName string    `gorm:"column:check_name;size:128;index" json:"check_name"`
	Status    string    `gorm:"column:status;size:32;index" json:"status"`
	Detail    string    `gorm:"column:detail;type:text" json:"detail"`
	Severity  string    `gorm:"column:severity;size:32;index" json:"severity"`
	Category  string    `gorm:"column:category;size:64;index" json:"category"`
	Score     float64   `gorm:"column:score" json:"score"`
	Labels    string    `gorm:"column:labels;type:text" json:"labels"`
	Instance  string    `gorm:"column:instance;size:128" json:"instance"`
	Value     float64   `gorm:"column:value" json:"value"`
}

//TableName returns table name of InspectionResult
func (t *InspectionResult) TableName() string {
	return "inspection_results"
}

//InspectionSummary aggregate of one full inspection cycle
type InspectionSummary struct {
	Model
	Timestamp     time.Time `gorm:"column:ts;index" json:"ts"`
	TotalChecks   int       `gorm:"column:total_checks" json:"total_checks"`
	AlertCount    int       `gorm:"column:alert_count" json:"alert_count"`
	ErrorCount    int       `gorm:"column:error_count" json:"error_count"`
	OKCount       int       `gorm:"column:ok_count" json:"ok_count"`
	HealthScore   float64   `gorm:"column:health_score;index" json:"health_score"`
	Duration      float64   `gorm:"column:duration" json:"duration"`
	TargetsStatus string    `gorm:"column:targets_status;type:longtext" json:"targets_status"`
	AlertsStatus  string    `gorm:"column:alerts_status;type:longtext" json:"alerts_status"`
}

//TableName returns table name of InspectionSummary
func (t *InspectionSummary) TableName() string {
	return "inspection_summaries"
}

//InspectionRule user defined health check rule
type InspectionRule struct {
	Model
	Name        string  `gorm:"column:name;size:128;unique_index" json:"name"`
	Description string  `gorm:"column:description;type:text" json:"description"`
	QueryExpr   string  `gorm:"column:query_expr;type:text" json:"query_expr"`
	Severity    string  `gorm:"column:severity;size:32;default:'warning'" json:"severity"`
	Category    string  `gorm:"column:category;size:64;default:'general';index" json:"category"`
	Enabled     bool    `gorm:"column:enabled;default:true;index" json:"enabled"`
	Threshold   float64 `gorm:"column:threshold" json:"threshold"`
}

//TableName returns table name of InspectionRule
func (t *InspectionRule) TableName() string {
	return "inspection_configs"
}
