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

	idao "github.com/opsmind/inspector/db/dao"
	"github.com/opsmind/inspector/db/model"
)

//InspectionResultDaoImpl inspection result data
type InspectionResultDaoImpl struct {
	DB *gorm.DB
}

//AddModel AddModel
func (i *InspectionResultDaoImpl) AddModel(mo model.Interface) error {
	result := mo.(*model.InspectionResult)
	if err := i.DB.Create(result).Error; err != nil {
		return errors.Wrap(err, "add inspection result")
	}
	return nil
}

//UpdateModel UpdateModel
func (i *InspectionResultDaoImpl) UpdateModel(mo model.Interface) error {
	result := mo.(*model.InspectionResult)
	return i.DB.Save(result).Error
}

//AddBatch insert a batch of results in one transaction
func (i *InspectionResultDaoImpl) AddBatch(results []*model.InspectionResult) error {
	if len(results) == 0 {
		return nil
	}
	tx := i.DB.Begin()
	for _, r := range results {
		if err := tx.Create(r).Error; err != nil {
			tx.Rollback()
			return errors.Wrap(err, "add inspection result batch")
		}
	}
	return tx.Commit().Error
}

//GetResultsAfter list results newer than since, newest first
func (i *InspectionResultDaoImpl) GetResultsAfter(since time.Time) ([]*model.InspectionResult, error) {
	var results []*model.InspectionResult
	if err := i.DB.Where("ts >= ?", since).Order("ts desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

//GetDailyHealthStats per-day status aggregation for health trends
func (i *InspectionResultDaoImpl) GetDailyHealthStats(days int) ([]*idao.DailyHealthStat, error) {
	var stats []*idao.DailyHealthStat
	rows, err := i.DB.Raw(
		`SELECT DATE(ts) as date,
			COUNT(*) as total_checks,
			SUM(CASE WHEN status = 'alert' THEN 1 ELSE 0 END) as alert_count,
			SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END) as error_count,
			SUM(CASE WHEN status = 'ok' THEN 1 ELSE 0 END) as ok_count
		FROM inspection_results
		WHERE ts >= DATE_SUB(NOW(), INTERVAL ? DAY)
		GROUP BY DATE(ts)
		ORDER BY date DESC`, days).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s idao.DailyHealthStat
		if err := rows.Scan(&s.Date, &s.TotalChecks, &s.AlertCount, &s.ErrorCount, &s.OKCount); err != nil {
			return nil, err
		}
		stats = append(stats, &s)
	}
	return stats, nil
}

//InspectionSummaryDaoImpl inspection summary data
type InspectionSummaryDaoImpl struct {
	DB *gorm.DB
}

//AddModel AddModel
func (i *InspectionSummaryDaoImpl) AddModel(mo model.Interface) error {
	summary := mo.(*model.InspectionSummary)
	if err := i.DB.Create(summary).Error; err != nil {
		return errors.Wrap(err, "add inspection summary")
	}
	return nil
}

//UpdateModel UpdateModel
func (i *InspectionSummaryDaoImpl) UpdateModel(mo model.Interface) error {
	summary := mo.(*model.InspectionSummary)
	return i.DB.Save(summary).Error
}

//GetSummariesAfter list summaries newer than since, newest first
func (i *InspectionSummaryDaoImpl) GetSummariesAfter(since time.Time) ([]*model.InspectionSummary, error) {
	var summaries []*model.InspectionSummary
	if err := i.DB.Where("ts >= ?", since).Order("ts desc").Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}

//InspectionRuleDaoImpl user defined rule data
type InspectionRuleDaoImpl struct {
	DB *gorm.DB
}

//AddModel AddModel
func (i *InspectionRuleDaoImpl) AddModel(mo model.Interface) error {
	rule := mo.(*model.InspectionRule)
	var old model.InspectionRule
	if ok := i.DB.Where("name=?", rule.Name).Find(&old).RecordNotFound(); ok {
		if err := i.DB.Create(rule).Error; err != nil {
			return err
		}
	} else {
		return errors.Errorf("rule %s is exist", rule.Name)
	}
	return nil
}

//UpdateModel UpdateModel
func (i *InspectionRuleDaoImpl) UpdateModel(mo model.Interface) error {
	rule := mo.(*model.InspectionRule)
	return i.DB.Save(rule).Error
}

//GetEnabledRules list rules currently enabled
func (i *InspectionRuleDaoImpl) GetEnabledRules() ([]*model.InspectionRule, error) {
	var rules []*model.InspectionRule
	if err := i.DB.Where("enabled = ?", true).Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

//GetRuleByName GetRuleByName
func (i *InspectionRuleDaoImpl) GetRuleByName(name string) (*model.InspectionRule, error) {
	var rule model.InspectionRule
	if err := i.DB.Where("name=?", name).Find(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}
