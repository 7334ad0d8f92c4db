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

//ConfigParameter adjustable runtime parameter stored in db
type ConfigParameter struct {
	Model
	Key   string `gorm:"column:cfg_key;size:64;unique_index" json:"cfg_key"`
	Value string `gorm:"column:cfg_value;size:256" json:"cfg_value"`
}

//TableName returns table name of ConfigParameter
func (t *ConfigParameter) TableName() string {
	return "config_parameters"
}

// Config keys of the adjustable health check thresholds.
const (
	ConfigKeyCPUThreshold     = "health.cpu_threshold"
	ConfigKeyMemThreshold     = "health.mem_threshold"
	ConfigKeyDiskPredictHours = "health.disk_predict_hours"
)
