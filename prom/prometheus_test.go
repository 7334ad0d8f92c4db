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

package prom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryRoundTripperRecovers(t *testing.T) {
	var attempts int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"success","data":{"activeTargets":[]}}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{Endpoint: server.URL})
	require.NoError(t, err)

	resp, err := client.RawEndpoint(context.Background(), "/api/v1/targets")
	require.NoError(t, err)
	assert.Equal(t, int64(3), atomic.LoadInt64(&attempts))
	status, err := resp.Get("status").String()
	require.NoError(t, err)
	assert.Equal(t, "success", status)
}

func TestRetryRoundTripperGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Options{Endpoint: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = client.RawEndpoint(context.Background(), "/api/v1/alerts")
	require.Error(t, err)
}

func TestParseQueryResp(t *testing.T) {
	vector := model.Vector{
		&model.Sample{
			Metric:    model.Metric{"instance": "node1:9100", "job": "node"},
			Value:     93.5,
			Timestamp: model.Time(1700000000000),
		},
	}
	data := parseQueryResp(vector)
	assert.Equal(t, MetricTypeVector, data.MetricType)
	require.Len(t, data.MetricValues, 1)
	assert.Equal(t, "node1:9100", data.MetricValues[0].Metadata["instance"])
	assert.Equal(t, 93.5, data.MetricValues[0].Sample.Value())
	assert.Equal(t, 1700000000.0, data.MetricValues[0].Sample.Timestamp())
}

func TestParseQueryRangeResp(t *testing.T) {
	matrix := model.Matrix{
		&model.SampleStream{
			Metric: model.Metric{"instance": "node1:9100"},
			Values: []model.SamplePair{
				{Timestamp: model.Time(1700000000000), Value: 1},
				{Timestamp: model.Time(1700000060000), Value: 2},
			},
		},
	}
	data := parseQueryRangeResp(matrix)
	assert.Equal(t, MetricTypeMatrix, data.MetricType)
	require.Len(t, data.MetricValues, 1)
	require.Len(t, data.MetricValues[0].Series, 2)
	assert.Equal(t, 2.0, data.MetricValues[0].Series[1].Value())
}
