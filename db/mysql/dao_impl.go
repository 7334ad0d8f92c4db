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

package mysql

import (
	"github.com/jinzhu/gorm"

	"github.com/opsmind/inspector/db/dao"
	mysqldao "github.com/opsmind/inspector/db/mysql/dao"
)

//InspectionResultDao inspection result dao
func (m *Manager) InspectionResultDao() dao.InspectionResultDao {
	return &mysqldao.InspectionResultDaoImpl{
		DB: m.db,
	}
}

//InspectionResultDaoTransactions inspection result dao in a transaction
func (m *Manager) InspectionResultDaoTransactions(db *gorm.DB) dao.InspectionResultDao {
	return &mysqldao.InspectionResultDaoImpl{
		DB: db,
	}
}

//InspectionSummaryDao inspection summary dao
func (m *Manager) InspectionSummaryDao() dao.InspectionSummaryDao {
	return &mysqldao.InspectionSummaryDaoImpl{
		DB: m.db,
	}
}

//InspectionSummaryDaoTransactions inspection summary dao in a transaction
func (m *Manager) InspectionSummaryDaoTransactions(db *gorm.DB) dao.InspectionSummaryDao {
	return &mysqldao.InspectionSummaryDaoImpl{
		DB: db,
	}
}

//InspectionRuleDao user defined rule dao
func (m *Manager) InspectionRuleDao() dao.InspectionRuleDao {
	return &mysqldao.InspectionRuleDaoImpl{
		DB: m.db,
	}
}

//ResourceSnapshotDao server resource snapshot dao
func (m *Manager) ResourceSnapshotDao() dao.ResourceSnapshotDao {
	return &mysqldao.ResourceSnapshotDaoImpl{
		DB: m.db,
	}
}

//ResourceSnapshotDaoTransactions server resource snapshot dao in a transaction
func (m *Manager) ResourceSnapshotDaoTransactions(db *gorm.DB) dao.ResourceSnapshotDao {
	return &mysqldao.ResourceSnapshotDaoImpl{
		DB: db,
	}
}

//ConfigDao runtime parameter dao
func (m *Manager) ConfigDao() dao.ConfigDao {
	return &mysqldao.ConfigDaoImpl{
		DB: m.db,
	}
}
