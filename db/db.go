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

package db

import (
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/opsmind/inspector/db/config"
	"github.com/opsmind/inspector/db/dao"
	"github.com/opsmind/inspector/db/mysql"
)

//Manager db manager interface
type Manager interface {
	CloseManager() error
	Begin() *gorm.DB
	InspectionResultDao() dao.InspectionResultDao
	InspectionResultDaoTransactions(db *gorm.DB) dao.InspectionResultDao
	InspectionSummaryDao() dao.InspectionSummaryDao
	InspectionSummaryDaoTransactions(db *gorm.DB) dao.InspectionSummaryDao
	InspectionRuleDao() dao.InspectionRuleDao
	ResourceSnapshotDao() dao.ResourceSnapshotDao
	ResourceSnapshotDaoTransactions(db *gorm.DB) dao.ResourceSnapshotDao
	ConfigDao() dao.ConfigDao
}

//CreateManager create db manager from config
func CreateManager(config config.Config) (Manager, error) {
	switch config.DBType {
	case "mysql", "":
		return mysql.CreateManager(config)
	}
	return nil, errors.Errorf("db type %s is not supported", config.DBType)
}
