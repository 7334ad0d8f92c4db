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

//ResourceSnapshot periodic per-instance server resource snapshot
type ResourceSnapshot struct {
	Model
	Timestamp  time.Time `gorm:"column:ts;index" json:"ts"`
	Instance   string    `gorm:"column:instance;size:128;index" json:"instance"`
	Hostname   string    `gorm:"column:hostname;size:255" json:"hostname"`
	CPUUsage   float64   `gorm:"column:cpu_usage" json:"cpu_usage"`
	CPUCores   int       `gorm:"column:cpu_cores" json:"cpu_cores"`
	MemUsage   float64   `gorm:"column:mem_usage" json:"mem_usage"`
	MemTotalGB float64   `gorm:"column:mem_total_gb" json:"mem_total_gb"`
	// DiskUsage is the worst partition usage percent of the instance.
	DiskUsage   float64 `gorm:"column:disk_usage" json:"disk_usage"`
	DiskJSON    string  `gorm:"column:disk_json;type:text" json:"disk_json"`
	MetricsJSON string  `gorm:"column:metrics_json;type:text" json:"metrics_json"`
}

//TableName returns table name of ResourceSnapshot
func (t *ResourceSnapshot) TableName() string {
	return "server_resource_snapshots"
}
