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

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/opsmind/inspector/db/model"
)

//ResourceSnapshotDaoImpl server resource snapshot data
type ResourceSnapshotDaoImpl struct {
	DB *gorm.DB
}

//AddModel AddModel
func (r *ResourceSnapshotDaoImpl) AddModel(mo model.Interface) error {
	snapshot := mo.(*model.ResourceSnapshot)
	if err := r.DB.Create(snapshot).Error; err != nil {
		return errors.Wrap(err, "add resource snapshot")
	}
	return nil
}

//UpdateModel UpdateModel
func (r *ResourceSnapshotDaoImpl) UpdateModel(mo model.Interface) error {
	snapshot := mo.(*model.ResourceSnapshot)
	return r.DB.Save(snapshot).Error
}

//AddBatch insert a batch of snapshots in one transaction
func (r *ResourceSnapshotDaoImpl) AddBatch(snapshots []*model.ResourceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	tx := r.DB.Begin()
	for _, s := range snapshots {
		if err := tx.Create(s).Error; err != nil {
			tx.Rollback()
			return errors.Wrap(err, "add resource snapshot batch")
		}
	}
	return tx.Commit().Error
}

//GetSnapshotsSince snapshots of one instance newer than since, oldest first
func (r *ResourceSnapshotDaoImpl) GetSnapshotsSince(instance string, since time.Time) ([]*model.ResourceSnapshot, error) {
	var snapshots []*model.ResourceSnapshot
	if err := r.DB.Where("instance = ? and ts >= ?", instance, since).Order("ts asc").Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

//ListInstancesSince distinct instances seen since the given time
func (r *ResourceSnapshotDaoImpl) ListInstancesSince(since time.Time) ([]string, error) {
	var instances []string
	rows, err := r.DB.Model(&model.ResourceSnapshot{}).
		Where("ts >= ?", since).
		Select("DISTINCT instance").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var instance string
		if err := rows.Scan(&instance); err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}
