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
	"sync"

	"github.com/opsmind/inspector/db/config"
	"github.com/opsmind/inspector/db/model"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	"github.com/sirupsen/logrus"
)

//Manager db manager
type Manager struct {
	db      *gorm.DB
	config  config.Config
	initOne sync.Once
	models  []model.Interface
}

//CreateManager create manager
func CreateManager(config config.Config) (*Manager, error) {
	db, err := gorm.Open("mysql", config.MysqlConnectionInfo+"?charset=utf8mb4&parseTime=True&loc=Local")
	if err != nil {
		return nil, err
	}
	manager := &Manager{
		db:      db,
		config:  config,
		initOne: sync.Once{},
	}
	db.SetLogger(manager)
	db.LogMode(config.ShowSQL)
	manager.RegisterTableModel()
	manager.CheckTable()
	logrus.Debug("mysql db driver create")
	return manager, nil
}

//CloseManager close db manager
func (m *Manager) CloseManager() error {
	return m.db.Close()
}

//Begin begin a transaction
func (m *Manager) Begin() *gorm.DB {
	return m.db.Begin()
}

//Print Print
func (m *Manager) Print(v ...interface{}) {
	logrus.Info(v...)
}

//RegisterTableModel register table model
func (m *Manager) RegisterTableModel() {
	m.models = append(m.models, &model.InspectionResult{})
	m.models = append(m.models, &model.InspectionSummary{})
	m.models = append(m.models, &model.InspectionRule{})
	m.models = append(m.models, &model.ResourceSnapshot{})
	m.models = append(m.models, &model.ConfigParameter{})
}

//CheckTable check and create tables
func (m *Manager) CheckTable() {
	m.initOne.Do(func() {
		for _, md := range m.models {
			if !m.db.HasTable(md) {
				err := m.db.Set("gorm:table_options", "ENGINE=InnoDB charset=utf8mb4").CreateTable(md).Error
				if err != nil {
					logrus.Errorf("auto create table %s to db error."+err.Error(), md.TableName())
				} else {
					logrus.Infof("auto create table %s to db success", md.TableName())
				}
			} else {
				if err := m.db.AutoMigrate(md).Error; err != nil {
					logrus.Errorf("auto Migrate table %s to db error."+err.Error(), md.TableName())
				}
			}
		}
		m.patchTable()
	})
}

// patchTable seeds the adjustable health thresholds on first start.
func (m *Manager) patchTable() {
	defaults := map[string]string{
		model.ConfigKeyCPUThreshold:     "85",
		model.ConfigKeyMemThreshold:     "85",
		model.ConfigKeyDiskPredictHours: "4",
	}
	for key, value := range defaults {
		var cp model.ConfigParameter
		if err := m.db.Where("cfg_key=?", key).Find(&cp).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				if err := m.ConfigDao().AddModel(&model.ConfigParameter{
					Key:   key,
					Value: value,
				}); err != nil {
					logrus.Errorf("seed config parameter %s error %s", key, err.Error())
				}
			}
		}
	}
}
