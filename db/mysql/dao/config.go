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
	"github.com/jinzhu/gorm"

	"github.com/opsmind/inspector/db/model"
)

//ConfigDaoImpl runtime parameter data
type ConfigDaoImpl struct {
	DB *gorm.DB
}

//AddModel AddModel
func (c *ConfigDaoImpl) AddModel(mo model.Interface) error {
	cp := mo.(*model.ConfigParameter)
	return c.DB.Create(cp).Error
}

//UpdateModel UpdateModel
func (c *ConfigDaoImpl) UpdateModel(mo model.Interface) error {
	cp := mo.(*model.ConfigParameter)
	return c.DB.Save(cp).Error
}

//GetValue read one parameter, gorm.ErrRecordNotFound when missing
func (c *ConfigDaoImpl) GetValue(key string) (string, error) {
	var cp model.ConfigParameter
	if err := c.DB.Where("cfg_key=?", key).Find(&cp).Error; err != nil {
		return "", err
	}
	return cp.Value, nil
}

//SetValue upsert one parameter
func (c *ConfigDaoImpl) SetValue(key, value string) error {
	var cp model.ConfigParameter
	if ok := c.DB.Where("cfg_key=?", key).Find(&cp).RecordNotFound(); ok {
		return c.DB.Create(&model.ConfigParameter{Key: key, Value: value}).Error
	}
	cp.Value = value
	return c.DB.Save(&cp).Error
}
