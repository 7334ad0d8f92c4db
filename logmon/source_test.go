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
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestSearchRangeQueryAndParse(t *testing.T) {
	var requestBody []byte
	var requestPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestPath = r.URL.Path
		requestBody, _ = ioutil.ReadAll(r.Body)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "elastic", user)
		assert.Equal(t, "secret", pass)
		w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"@timestamp":"2026-08-28T10:00:01Z","message":"request timed out","level":"warn","logger":"gateway","host":"web-1","tags":["edge","prod"]}},
			{"_source":{"@timestamp":"2026-08-28T10:00:30Z","message":"db connection failed"}}
		]}}`))
	}))
	defer server.Close()

	source := NewElasticSource(ElasticOptions{
		URL:      server.URL,
		Username: "elastic",
		Password: "secret",
		Index:    "app-logs-*",
	})
	start := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	hits, err := source.SearchRange(context.Background(), start, start.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "/app-logs-*/_search", requestPath)
	body := gjson.ParseBytes(requestBody)
	assert.Equal(t, int64(500), body.Get("size").Int())
	assert.Equal(t, "2026-08-28T10:00:00Z", body.Get("query.bool.must.0.range.@timestamp.gte").String())
	assert.Equal(t, "message", body.Get("query.bool.must.1.exists.field").String())
	assert.Equal(t, int64(1), body.Get("query.bool.minimum_should_match").Int())
	assert.Len(t, body.Get("query.bool.should").Array(), 4)
	assert.Equal(t, "asc", body.Get("sort.0.@timestamp.order").String())

	require.Len(t, hits, 2)
	assert.Equal(t, "request timed out", hits[0].Message)
	assert.Equal(t, "warn", hits[0].Level)
	assert.Equal(t, "web-1", hits[0].Host)
	assert.Equal(t, []string{"edge", "prod"}, hits[0].Tags)
	assert.Equal(t, time.Date(2026, 8, 28, 10, 0, 1, 0, time.UTC), hits[0].Timestamp.UTC())
	// missing level defaults to error
	assert.Equal(t, "error", hits[1].Level)
}

func TestCountRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "_count")
		w.Write([]byte(`{"count":1234}`))
	}))
	defer server.Close()

	source := NewElasticSource(ElasticOptions{URL: server.URL})
	count, err := source.CountRange(context.Background(), time.Now().Add(-time.Minute), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), count)
}

func TestMinutelyHistogram(t *testing.T) {
	var requestBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestBody, _ = ioutil.ReadAll(r.Body)
		w.Write([]byte(`{"aggregations":{"per_minute":{"buckets":[
			{"key_as_string":"2026-08-28T10:00:00Z","doc_count":10},
			{"key_as_string":"2026-08-28T10:01:00Z","doc_count":25}
		]}}}`))
	}))
	defer server.Close()

	source := NewElasticSource(ElasticOptions{URL: server.URL})
	labels, values, err := source.MinutelyHistogram(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)

	body := gjson.ParseBytes(requestBody)
	assert.Equal(t, "1m", body.Get("aggs.per_minute.date_histogram.fixed_interval").String())
	assert.Equal(t, []string{"2026-08-28T10:00:00Z", "2026-08-28T10:01:00Z"}, labels)
	assert.Equal(t, []int64{10, 25}, values)
}

func TestRequestErrorOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"no permission"}`))
	}))
	defer server.Close()

	source := NewElasticSource(ElasticOptions{URL: server.URL})
	_, err := source.CountRange(context.Background(), time.Now().Add(-time.Minute), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
