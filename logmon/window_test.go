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

package logmon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountThresholdAndGate(t *testing.T) {
	now := time.Now()
	a := NewAggregator(DefaultThresholds())
	a.now = func() time.Time { return now }

	for i := 0; i < 51; i++ {
		a.Ingest("network_timeout", now)
	}
	alerts := a.CheckThresholds()
	require.Len(t, alerts, 1)
	assert.Equal(t, "error_count_threshold", alerts[0].Type)
	assert.Equal(t, "network_timeout", alerts[0].Category)
	assert.Equal(t, 51, alerts[0].Count)
	assert.Equal(t, 50.0, alerts[0].Threshold)
	assert.Equal(t, "5min", alerts[0].Window)
	assert.Equal(t, "network_timeout: 51 errors in 5min (threshold 50)", alerts[0].Message)

	// the same alert is suppressed inside the gate period
	a.Ingest("network_timeout", now)
	alerts = a.CheckThresholds()
	assert.Empty(t, alerts)

	now = now.Add(6 * time.Minute)
	for i := 0; i < 51; i++ {
		a.Ingest("network_timeout", now) // refill the 5min window
	}
	alerts = a.CheckThresholds()
	require.Len(t, alerts, 1)
}

func TestGrowthSkipsEmptyPreviousHour(t *testing.T) {
	now := time.Now()
	a := NewAggregator(DefaultThresholds())
	a.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		a.Ingest("db_connection", now)
	}
	for _, alert := range a.CheckThresholds() {
		assert.NotEqual(t, "error_growth_threshold", alert.Type)
	}
}

func TestGrowthAlertAcrossHourBoundary(t *testing.T) {
	now := time.Now()
	a := NewAggregator(DefaultThresholds())
	a.now = func() time.Time { return now }

	// three errors 55 minutes ago, five right now
	for i := 0; i < 3; i++ {
		a.Ingest("api_error", now.Add(-55*time.Minute))
	}
	for i := 0; i < 5; i++ {
		a.Ingest("api_error", now)
	}

	// ten minutes later the old errors fall into the previous-hour
	// bucket. No ingest happened since, so they were never purged.
	now = now.Add(10 * time.Minute)
	alerts := a.CheckThresholds()
	require.Len(t, alerts, 1)
	assert.Equal(t, "error_growth_threshold", alerts[0].Type)
	assert.Equal(t, 5, alerts[0].CurrentCount)
	assert.Equal(t, 3, alerts[0].PreviousCount)
	assert.Equal(t, 0.6667, alerts[0].GrowthRate)
	assert.Equal(t, 0.5, alerts[0].Threshold)
	assert.Equal(t, "api_error: errors grew 67% hour over hour (3 -> 5)", alerts[0].Message)
}

func TestIngestPurgesStaleEntries(t *testing.T) {
	now := time.Now()
	a := NewAggregator(DefaultThresholds())
	a.now = func() time.Time { return now }

	a.Ingest("generic", now.Add(-10*time.Minute))
	assert.Equal(t, 0, a.CategoryCounts("5min")["generic"])
	assert.Equal(t, 1, a.CategoryCounts("1hour")["generic"])

	now = now.Add(2 * time.Hour)
	a.Ingest("generic", now)
	assert.Equal(t, 1, a.CategoryCounts("1hour")["generic"])
	assert.Equal(t, 2, a.CategoryCounts("24hour")["generic"])
}

func TestClassifyCategories(t *testing.T) {
	c := NewClassifier()
	cases := []struct {
		message  string
		level    string
		category string
		severity string
	}{
		{"upstream request timed out after 30s", "error", "network_timeout", SeverityWarning},
		{"lookup api.internal: no such host", "error", "dns_failure", SeverityError},
		{"x509: certificate has expired", "error", "ssl_error", SeverityError},
		{"write tcp: connection reset by peer", "error", "connection_reset", SeverityWarning},
		{"dial tcp 10.0.0.1:3306: connection refused", "error", "port_unreachable", SeverityCritical},
		{"mysql server has gone away, reopening connection failed", "error", "db_connection", SeverityCritical},
		{"java.lang.NullPointerException at handler", "error", "null_pointer", SeverityError},
		{"fatal: out of memory, killing process", "fatal", "out_of_memory", SeverityCritical},
		{"write /var/log: no space left on device", "error", "disk_full", SeverityCritical},
		{"http request to /api/v1/users failed with 502", "error", "api_error", SeverityError},
		{"failed to acquire lock on worker thread", "error", "concurrency", SeverityError},
		{"something unusual happened", "info", "unknown", SeverityInfo},
		{"something unusual happened", "error", "unknown", SeverityError},
	}
	for _, tc := range cases {
		cls := c.Classify(tc.message, tc.level)
		assert.Equal(t, tc.category, cls.Category, tc.message)
		assert.Equal(t, tc.severity, cls.Severity, tc.message)
	}
}
