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
	"fmt"

	"github.com/opsmind/inspector/db/model"
)

//HealthCheckRule one promql health check
type HealthCheckRule struct {
	Name     string
	Query    string
	Message  string
	Severity string
	Category string
}

//HealthThresholds adjustable parameters of the default rule set
type HealthThresholds struct {
	CPUPercent       float64
	MemPercent       float64
	DiskPredictHours int
}

//DefaultHealthThresholds values used when the config table is empty
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{
		CPUPercent:       85,
		MemPercent:       85,
		DiskPredictHours: 4,
	}
}

//DefaultRules the built-in node and service health checks
func DefaultRules(th HealthThresholds) []HealthCheckRule {
	return []HealthCheckRule{
		{
			Name:     "node_cpu_high",
			Query:    fmt.Sprintf(`100 - (avg by (instance) (irate(node_cpu_seconds_total{mode="idle"}[5m])) * 100) > %g`, th.CPUPercent),
			Message:  "节点CPU使用率过高",
			Severity: "warning",
			Category: "system",
		},
		{
			Name:     "node_memory_high",
			Query:    fmt.Sprintf(`(1 - (node_memory_MemAvailable_bytes / node_memory_MemTotal_bytes)) * 100 > %g`, th.MemPercent),
			Message:  "节点内存使用率过高",
			Severity: "warning",
			Category: "system",
		},
		{
			Name:     "node_disk_fill_fast",
			Query:    fmt.Sprintf(`predict_linear(node_filesystem_free_bytes{fstype!~"tmpfs|fuse"}[6h], %d * 3600) < 0`, th.DiskPredictHours),
			Message:  "磁盘空间即将耗尽",
			Severity: "critical",
			Category: "system",
		},
		{
			Name:     "node_disk_usage_high",
			Query:    `100 - (node_filesystem_free_bytes{fstype!~"tmpfs|fuse"} / node_filesystem_size_bytes{fstype!~"tmpfs|fuse"} * 100) > 85`,
			Message:  "磁盘使用率过高",
			Severity: "warning",
			Category: "system",
		},
		{
			Name:     "node_network_errors",
			Query:    `rate(node_network_receive_errs_total[5m]) + rate(node_network_transmit_errs_total[5m]) > 0`,
			Message:  "网卡出现收发错误",
			Severity: "warning",
			Category: "network",
		},
		{
			Name:     "service_down",
			Query:    `up == 0`,
			Message:  "服务不可用",
			Severity: "critical",
			Category: "service",
		},
		{
			Name:     "service_high_latency",
			Query:    `histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m])) > 1`,
			Message:  "服务响应延迟过高",
			Severity: "warning",
			Category: "service",
		},
		{
			Name:     "mysql_connections_high",
			Query:    `mysql_global_status_threads_connected / mysql_global_variables_max_connections * 100 > 80`,
			Message:  "MySQL连接数过高",
			Severity: "warning",
			Category: "database",
		},
		{
			Name:     "http_5xx_errors",
			Query:    `rate(http_requests_total{status=~"5.."}[5m]) > 0.1`,
			Message:  "HTTP 5xx错误率过高",
			Severity: "critical",
			Category: "application",
		},
		{
			Name:     "http_4xx_errors",
			Query:    `rate(http_requests_total{status=~"4.."}[5m]) > 0.5`,
			Message:  "HTTP 4xx错误率过高",
			Severity: "warning",
			Category: "application",
		},
	}
}

//AdvancedRules additional checks for containerized workloads
func AdvancedRules() []HealthCheckRule {
	return []HealthCheckRule{
		{
			Name:     "container_restarts",
			Query:    `increase(container_start_time_seconds[1h]) > 0`,
			Message:  "容器近一小时发生重启",
			Severity: "warning",
			Category: "container",
		},
		{
			Name:     "container_memory_limit",
			Query:    `container_memory_usage_bytes / container_spec_memory_limit_bytes * 100 > 90`,
			Message:  "容器内存接近限额",
			Severity: "warning",
			Category: "container",
		},
		{
			Name:     "queue_size_high",
			Query:    `queue_size > 1000`,
			Message:  "队列积压过多",
			Severity: "warning",
			Category: "application",
		},
		{
			Name:     "cache_hit_rate_low",
			Query:    `cache_hits_total / (cache_hits_total + cache_misses_total) * 100 < 80`,
			Message:  "缓存命中率过低",
			Severity: "warning",
			Category: "application",
		},
	}
}

//RuleFromModel convert a user defined rule row into a runnable check
func RuleFromModel(rule *model.InspectionRule) HealthCheckRule {
	return HealthCheckRule{
		Name:     rule.Name,
		Query:    rule.QueryExpr,
		Message:  rule.Description,
		Severity: rule.Severity,
		Category: rule.Category,
	}
}
