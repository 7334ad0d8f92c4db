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

package inspection

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opsmind/inspector/cache"
	"github.com/opsmind/inspector/db"
	"github.com/opsmind/inspector/db/model"
	"github.com/opsmind/inspector/notifier"
	"github.com/opsmind/inspector/prom"
)

const (
	keyCurrentAlerts = "current_alerts"

	currentAlertsTTL = 5 * time.Minute
)

type metricGateway interface {
	Instant(ctx context.Context, query string, useCache bool) *prom.Metric
	BatchInstant(ctx context.Context, queries []string, useCache bool) []*prom.Metric
	OptimizeQueries(queries []string) []string
	Targets(ctx context.Context) (*simplejson.Json, error)
	Alerts(ctx context.Context) (*simplejson.Json, error)
}

//CheckResult outcome of one health check
type CheckResult struct {
	Name     string            `json:"name"`
	Status   string            `json:"status"`
	Detail   string            `json:"detail"`
	Severity string            `json:"severity"`
	Category string            `json:"category"`
	Score    float64           `json:"score"`
	Labels   map[string]string `json:"labels"`
	Instance string            `json:"instance,omitempty"`
	Value    float64           `json:"value,omitempty"`
}

//Summary aggregate of one inspection run
type Summary struct {
	TotalChecks int     `json:"total"`
	AlertCount  int     `json:"alert_count"`
	ErrorCount  int     `json:"error_count"`
	OKCount     int     `json:"ok_count"`
	HealthScore float64 `json:"health_score"`
}

//Report one comprehensive inspection run
type Report struct {
	Timestamp time.Time        `json:"timestamp"`
	Results   []CheckResult    `json:"results"`
	Targets   *simplejson.Json `json:"targets"`
	Alerts    *simplejson.Json `json:"alerts"`
	Summary   Summary          `json:"summary"`
	Duration  float64          `json:"duration"`
}

//Engine runs health checks against prometheus, persists the outcomes
//and raises notifications.
type Engine struct {
	gateway  metricGateway
	manager  db.Manager
	store    cache.Store
	notify   *notifier.Manager
	endpoint string
	now      func() time.Time
}

//NewEngine NewEngine
func NewEngine(gateway metricGateway, manager db.Manager, store cache.Store, notify *notifier.Manager, endpoint string) *Engine {
	return &Engine{
		gateway:  gateway,
		manager:  manager,
		store:    store,
		notify:   notify,
		endpoint: endpoint,
		now:      time.Now,
	}
}

//HealthThresholds read the adjustable thresholds from the config table,
//falling back to the defaults when a key is missing or malformed
func (e *Engine) HealthThresholds() HealthThresholds {
	th := DefaultHealthThresholds()
	dao := e.manager.ConfigDao()
	if raw, err := dao.GetValue(model.ConfigKeyCPUThreshold); err == nil {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			th.CPUPercent = v
		}
	}
	if raw, err := dao.GetValue(model.ConfigKeyMemThreshold); err == nil {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			th.MemPercent = v
		}
	}
	if raw, err := dao.GetValue(model.ConfigKeyDiskPredictHours); err == nil {
		if v, err := strconv.Atoi(raw); err == nil {
			th.DiskPredictHours = v
		}
	}
	return th
}

func (e *Engine) loadRules() []HealthCheckRule {
	rules := DefaultRules(e.HealthThresholds())
	rules = append(rules, AdvancedRules()...)
	stored, err := e.manager.InspectionRuleDao().GetEnabledRules()
	if err != nil {
		logrus.Warningf("load user rules error %s", err.Error())
		return rules
	}
	for _, rule := range stored {
		rules = append(rules, RuleFromModel(rule))
	}
	return rules
}

//RunChecks evaluate every rule once
func (e *Engine) RunChecks(ctx context.Context) []CheckResult {
	rules := e.loadRules()
	results := make([]CheckResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, e.runCheck(ctx, rule))
	}
	return results
}

func (e *Engine) runCheck(ctx context.Context, rule HealthCheckRule) CheckResult {
	result := CheckResult{
		Name:     rule.Name,
		Severity: rule.Severity,
		Category: rule.Category,
		Labels: map[string]string{
			"expr":     rule.Query,
			"severity": rule.Severity,
			"category": rule.Category,
		},
	}
	metric := e.gateway.Instant(ctx, rule.Query, false)
	if metric.Error != "" {
		result.Status = model.CheckStatusError
		result.Detail = rule.Message + " | 查询失败: " + metric.Error
		result.Labels["error"] = metric.Error
		return result
	}
	if len(metric.MetricData.MetricValues) == 0 {
		result.Status = model.CheckStatusOK
		result.Detail = rule.Message
		return result
	}
	first := metric.MetricData.MetricValues[0]
	result.Status = model.CheckStatusAlert
	result.Score = 1.0
	if first.Sample != nil {
		result.Value = first.Sample.Value()
	}
	result.Instance = first.Metadata["instance"]
	result.Detail = fmt.Sprintf("%s (当前值: %v)", rule.Message, result.Value)
	return result
}

//RunComprehensiveInspection checks plus the raw target and alert state
//of prometheus itself
func (e *Engine) RunComprehensiveInspection(ctx context.Context) *Report {
	started := e.now()
	report := &Report{Timestamp: started}
	report.Results = e.RunChecks(ctx)

	targets, err := e.gateway.Targets(ctx)
	if err != nil {
		logrus.Warningf("fetch targets error %s", err.Error())
	} else {
		report.Targets = targets
	}
	alerts, err := e.gateway.Alerts(ctx)
	if err != nil {
		logrus.Warningf("fetch alerts error %s", err.Error())
	} else {
		report.Alerts = alerts
	}

	report.Summary = summarize(report.Results)
	report.Duration = e.now().Sub(started).Seconds()
	return report
}

func summarize(results []CheckResult) Summary {
	s := Summary{TotalChecks: len(results)}
	for _, result := range results {
		switch result.Status {
		case model.CheckStatusAlert:
			s.AlertCount++
		case model.CheckStatusError:
			s.ErrorCount++
		}
	}
	s.OKCount = s.TotalChecks - s.AlertCount - s.ErrorCount
	if s.TotalChecks > 0 {
		s.HealthScore = math.Round(float64(s.OKCount)/float64(s.TotalChecks)*100*10) / 10
	}
	return s
}

//RunCycle one full inspection: run, persist, publish alerts and notify
func (e *Engine) RunCycle(ctx context.Context) (*Report, error) {
	report := e.RunComprehensiveInspection(ctx)

	if err := e.persist(report); err != nil {
		logrus.Errorf("persist inspection report error %s", err.Error())
	}

	var alerting []CheckResult
	for _, result := range report.Results {
		if result.Status == model.CheckStatusAlert {
			alerting = append(alerting, result)
		}
	}
	if err := e.store.SetWithTTL(ctx, keyCurrentAlerts, alerting, currentAlertsTTL); err != nil {
		logrus.Warningf("cache current alerts error %s", err.Error())
	}
	if message := formatAlertMessage(alerting); message != "" {
		e.notify.NotifyAll(ctx, message)
	}
	return report, nil
}

func (e *Engine) persist(report *Report) error {
	rows := make([]*model.InspectionResult, 0, len(report.Results))
	for _, result := range report.Results {
		labels, _ := json.Marshal(result.Labels)
		rows = append(rows, &model.InspectionResult{
			Timestamp: report.Timestamp,
			CheckName: result.Name,
			Status:    result.Status,
			Detail:    result.Detail,
			Severity:  result.Severity,
			Category:  result.Category,
			Score:     result.Score,
			Labels:    string(labels),
			Instance:  result.Instance,
			Value:     result.Value,
		})
	}
	if err := e.manager.InspectionResultDao().AddBatch(rows); err != nil {
		return errors.Wrap(err, "store inspection results")
	}
	summary := &model.InspectionSummary{
		Timestamp:   report.Timestamp,
		TotalChecks: report.Summary.TotalChecks,
		AlertCount:  report.Summary.AlertCount,
		ErrorCount:  report.Summary.ErrorCount,
		OKCount:     report.Summary.OKCount,
		HealthScore: report.Summary.HealthScore,
		Duration:    report.Duration,
	}
	if report.Targets != nil {
		if data, err := report.Targets.MarshalJSON(); err == nil {
			summary.TargetsStatus = string(data)
		}
	}
	if report.Alerts != nil {
		if data, err := report.Alerts.MarshalJSON(); err == nil {
			summary.AlertsStatus = string(data)
		}
	}
	return errors.Wrap(e.manager.InspectionSummaryDao().AddModel(summary), "store inspection summary")
}

//CurrentAlerts the alert rows published by the last cycle
func (e *Engine) CurrentAlerts(ctx context.Context) []CheckResult {
	var alerting []CheckResult
	e.store.Get(ctx, keyCurrentAlerts, &alerting)
	return alerting
}

func formatAlertMessage(alerting []CheckResult) string {
	if len(alerting) == 0 {
		return ""
	}
	var critical, warning []string
	for _, result := range alerting {
		line := fmt.Sprintf("- %s: %s", result.Name, result.Detail)
		if result.Severity == "critical" {
			critical = append(critical, line)
		} else {
			warning = append(warning, line)
		}
	}
	lines := []string{"[巡检告警]"}
	if len(critical) > 0 {
		lines = append(lines, "严重:")
		lines = append(lines, critical...)
	}
	if len(warning) > 0 {
		lines = append(lines, "警告:")
		lines = append(lines, warning...)
	}
	return strings.Join(lines, "\n")
}
