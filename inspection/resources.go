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
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opsmind/inspector/db/model"
	"github.com/opsmind/inspector/prom"
)

const resourcesCacheTTL = 5 * time.Minute

//Partition one filesystem of an instance
type Partition struct {
	Mountpoint   string  `json:"mountpoint"`
	Device       string  `json:"device"`
	FSType       string  `json:"fs_type"`
	UsagePercent float64 `json:"usage_percent"`
}

//CPUStats CPUStats
type CPUStats struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
	Load1        float64 `json:"load1"`
	Load5        float64 `json:"load5"`
	Load15       float64 `json:"load15"`
}

//MemoryStats MemoryStats
type MemoryStats struct {
	TotalGB      float64 `json:"total_gb"`
	AvailableGB  float64 `json:"available_gb"`
	UsedGB       float64 `json:"used_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

//DiskStats DiskStats
type DiskStats struct {
	Partitions       []Partition `json:"partitions"`
	MaxUsagePercent  float64     `json:"max_usage_percent"`
	ReadBytesPerSec  float64     `json:"read_bytes_per_sec"`
	WriteBytesPerSec float64     `json:"write_bytes_per_sec"`
}

//NetworkStats NetworkStats
type NetworkStats struct {
	ReceiveBytesPerSec  float64 `json:"receive_bytes_per_sec"`
	TransmitBytesPerSec float64 `json:"transmit_bytes_per_sec"`
	TCPEstablished      float64 `json:"tcp_established"`
	TCPTimeWait         float64 `json:"tcp_time_wait"`
}

//SystemStats SystemStats
type SystemStats struct {
	UptimeDays float64 `json:"uptime_days"`
	OS         string  `json:"os"`
	OSVersion  string  `json:"os_version"`
}

//InstanceResources full resource picture of one monitored node
type InstanceResources struct {
	Instance string       `json:"instance"`
	Hostname string       `json:"hostname"`
	CPU      CPUStats     `json:"cpu"`
	Memory   MemoryStats  `json:"memory"`
	Disk     DiskStats    `json:"disk"`
	Network  NetworkStats `json:"network"`
	System   SystemStats  `json:"system"`
}

//ResourcesPayload cached result of a resource collection pass
type ResourcesPayload struct {
	Timestamp time.Time            `json:"timestamp"`
	Source    string               `json:"source"`
	Instances []*InstanceResources `json:"instances"`
}

func resourcesCacheKey(endpoint string) string {
	base := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	return "server_resources:" + strings.ReplaceAll(base, ":", "_")
}

//ServerResources the resource picture of every monitored node. Served
//from the shared cache unless refresh is set or the cache is cold.
func (e *Engine) ServerResources(ctx context.Context, refresh bool) (*ResourcesPayload, error) {
	key := resourcesCacheKey(e.endpoint)
	if !refresh {
		var cached ResourcesPayload
		if e.store.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}
	payload := &ResourcesPayload{
		Timestamp: e.now(),
		Source:    e.endpoint,
	}
	for _, instance := range e.discoverInstances(ctx) {
		payload.Instances = append(payload.Instances, e.collectInstance(ctx, instance))
	}
	if err := e.store.SetWithTTL(ctx, key, payload, resourcesCacheTTL); err != nil {
		logrus.Warningf("cache server resources error %s", err.Error())
	}
	e.storeSnapshots(payload)
	return payload, nil
}

// discoverInstances prefers node exporter targets from the up metric,
// falling back to whatever reports node_cpu_seconds_total.
func (e *Engine) discoverInstances(ctx context.Context) []string {
	var instances []string
	seen := map[string]bool{}
	up := e.gateway.Instant(ctx, "up", true)
	if up.Error == "" {
		for _, value := range up.MetricData.MetricValues {
			job := strings.ToLower(value.Metadata["job"])
			if !strings.Contains(job, "node") && !strings.Contains(job, "real") && !strings.Contains(job, "linux") {
				continue
			}
			instance := value.Metadata["instance"]
			if instance != "" && !seen[instance] {
				seen[instance] = true
				instances = append(instances, instance)
			}
		}
	}
	if len(instances) > 0 {
		return instances
	}
	fallback := e.gateway.Instant(ctx, "count by (instance) (node_cpu_seconds_total)", true)
	if fallback.Error != "" {
		logrus.Warningf("discover instances error %s", fallback.Error)
		return nil
	}
	for _, value := range fallback.MetricData.MetricValues {
		instance := value.Metadata["instance"]
		if instance != "" && !seen[instance] {
			seen[instance] = true
			instances = append(instances, instance)
		}
	}
	return instances
}

func prepareInstanceQueries(instance string) []string {
	return []string{
		fmt.Sprintf(`100 - (avg by (instance) (irate(node_cpu_seconds_total{mode="idle",instance="%s"}[5m])) * 100)`, instance),
		fmt.Sprintf(`count by (instance) (node_cpu_seconds_total{mode="idle",instance="%s"})`, instance),
		fmt.Sprintf(`node_load1{instance="%s"}`, instance),
		fmt.Sprintf(`node_load5{instance="%s"}`, instance),
		fmt.Sprintf(`node_load15{instance="%s"}`, instance),
		fmt.Sprintf(`node_memory_MemTotal_bytes{instance="%s"}`, instance),
		fmt.Sprintf(`node_memory_MemAvailable_bytes{instance="%s"}`, instance),
		fmt.Sprintf(`100 - (node_filesystem_free_bytes{fstype!~"tmpfs|fuse",mountpoint="/",instance="%s"} / node_filesystem_size_bytes{fstype!~"tmpfs|fuse",mountpoint="/",instance="%s"} * 100)`, instance, instance),
		fmt.Sprintf(`100 - (node_filesystem_free_bytes{fstype!~"tmpfs|fuse",instance="%s"} / node_filesystem_size_bytes{fstype!~"tmpfs|fuse",instance="%s"} * 100)`, instance, instance),
		fmt.Sprintf(`rate(node_disk_read_bytes_total{instance="%s"}[5m])`, instance),
		fmt.Sprintf(`rate(node_disk_written_bytes_total{instance="%s"}[5m])`, instance),
		fmt.Sprintf(`rate(node_network_receive_bytes_total{instance="%s"}[5m])`, instance),
		fmt.Sprintf(`rate(node_network_transmit_bytes_total{instance="%s"}[5m])`, instance),
		fmt.Sprintf(`node_netstat_Tcp_CurrEstab{instance="%s"}`, instance),
		fmt.Sprintf(`node_netstat_Tcp_Tw{instance="%s"}`, instance),
		fmt.Sprintf(`node_boot_time_seconds{instance="%s"}`, instance),
		fmt.Sprintf(`node_os_info{instance="%s"}`, instance),
		fmt.Sprintf(`node_uname_info{instance="%s"}`, instance),
	}
}

func (e *Engine) collectInstance(ctx context.Context, instance string) *InstanceResources {
	queries := prepareInstanceQueries(instance)
	ordered := e.gateway.OptimizeQueries(queries)
	results := e.gateway.BatchInstant(ctx, ordered, true)

	// results are matched back to their literal query text, so the
	// optimizer is free to reorder them
	byQuery := make(map[string]*prom.Metric, len(ordered))
	for i, query := range ordered {
		byQuery[query] = results[i]
	}

	res := &InstanceResources{Instance: instance}
	res.CPU = CPUStats{
		UsagePercent: round2(firstValue(byQuery[queries[0]])),
		Cores:        int(firstValue(byQuery[queries[1]])),
		Load1:        firstValue(byQuery[queries[2]]),
		Load5:        firstValue(byQuery[queries[3]]),
		Load15:       firstValue(byQuery[queries[4]]),
	}

	totalBytes := firstValue(byQuery[queries[5]])
	availableBytes := firstValue(byQuery[queries[6]])
	res.Memory = MemoryStats{
		TotalGB:     round2(totalBytes / (1 << 30)),
		AvailableGB: round2(availableBytes / (1 << 30)),
		UsedGB:      round2((totalBytes - availableBytes) / (1 << 30)),
	}
	if totalBytes > 0 {
		res.Memory.UsagePercent = round2((totalBytes - availableBytes) / totalBytes * 100)
	}

	res.Disk = DiskStats{
		Partitions:       parsePartitions(byQuery[queries[8]], byQuery[queries[7]]),
		ReadBytesPerSec:  round2(sumValues(byQuery[queries[9]])),
		WriteBytesPerSec: round2(sumValues(byQuery[queries[10]])),
	}
	for _, p := range res.Disk.Partitions {
		if p.UsagePercent > res.Disk.MaxUsagePercent {
			res.Disk.MaxUsagePercent = p.UsagePercent
		}
	}

	res.Network = NetworkStats{
		ReceiveBytesPerSec:  round2(sumValues(byQuery[queries[11]])),
		TransmitBytesPerSec: round2(sumValues(byQuery[queries[12]])),
		TCPEstablished:      firstValue(byQuery[queries[13]]),
		TCPTimeWait:         firstValue(byQuery[queries[14]]),
	}

	if boot := firstValue(byQuery[queries[15]]); boot > 0 {
		res.System.UptimeDays = round2((float64(e.now().Unix()) - boot) / 86400)
	}
	if osInfo := firstMetadata(byQuery[queries[16]]); osInfo != nil {
		res.System.OS = osInfo["name"]
		res.System.OSVersion = osInfo["version"]
	}
	if uname := firstMetadata(byQuery[queries[17]]); uname != nil {
		res.Hostname = uname["nodename"]
	}
	return res
}

// parsePartitions prefers the all-partition query and falls back to the
// root mountpoint one.
func parsePartitions(all, root *prom.Metric) []Partition {
	source := all
	if source == nil || source.Error != "" || len(source.MetricData.MetricValues) == 0 {
		source = root
	}
	if source == nil || source.Error != "" {
		return nil
	}
	partitions := make([]Partition, 0, len(source.MetricData.MetricValues))
	for _, value := range source.MetricData.MetricValues {
		if value.Sample == nil {
			continue
		}
		partitions = append(partitions, Partition{
			Mountpoint:   value.Metadata["mountpoint"],
			Device:       value.Metadata["device"],
			FSType:       value.Metadata["fstype"],
			UsagePercent: round2(value.Sample.Value()),
		})
	}
	return partitions
}

func (e *Engine) storeSnapshots(payload *ResourcesPayload) {
	snapshots := make([]*model.ResourceSnapshot, 0, len(payload.Instances))
	for _, res := range payload.Instances {
		diskJSON, _ := json.Marshal(res.Disk.Partitions)
		metricsJSON, _ := json.Marshal(res)
		snapshots = append(snapshots, &model.ResourceSnapshot{
			Timestamp:   payload.Timestamp,
			Instance:    res.Instance,
			Hostname:    res.Hostname,
			CPUUsage:    res.CPU.UsagePercent,
			CPUCores:    res.CPU.Cores,
			MemUsage:    res.Memory.UsagePercent,
			MemTotalGB:  res.Memory.TotalGB,
			DiskUsage:   res.Disk.MaxUsagePercent,
			DiskJSON:    string(diskJSON),
			MetricsJSON: string(metricsJSON),
		})
	}
	if err := e.manager.ResourceSnapshotDao().AddBatch(snapshots); err != nil {
		logrus.Errorf("store resource snapshots error %s", err.Error())
	}
}

func firstValue(m *prom.Metric) float64 {
	if m == nil || m.Error != "" || len(m.MetricData.MetricValues) == 0 {
		return 0
	}
	if sample := m.MetricData.MetricValues[0].Sample; sample != nil {
		return sample.Value()
	}
	return 0
}

func sumValues(m *prom.Metric) float64 {
	if m == nil || m.Error != "" {
		return 0
	}
	var sum float64
	for _, value := range m.MetricData.MetricValues {
		if value.Sample != nil {
			sum += value.Sample.Value()
		}
	}
	return sum
}

func firstMetadata(m *prom.Metric) map[string]string {
	if m == nil || m.Error != "" || len(m.MetricData.MetricValues) == 0 {
		return nil
	}
	return m.MetricData.MetricValues[0].Metadata
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
