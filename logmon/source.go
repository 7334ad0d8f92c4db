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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

//Hit one log document
type Hit struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	Logger    string    `json:"logger"`
	Thread    string    `json:"thread"`
	Host      string    `json:"host"`
	Instance  string    `json:"instance"`
	Tags      []string  `json:"tags"`
}

//Source log storage the monitor reads from
type Source interface {
	SearchRange(ctx context.Context, start, end time.Time) ([]*Hit, error)
	CountRange(ctx context.Context, start, end time.Time) (int64, error)
	MinutelyHistogram(ctx context.Context, start, end time.Time) (labels []string, values []int64, err error)
}

//ElasticOptions elasticsearch source options
type ElasticOptions struct {
	URL          string
	Username     string
	Password     string
	Index        string
	MessageField string
	MaxResults   int
}

func (o *ElasticOptions) complete() {
	if o.Index == "" {
		o.Index = "logstash-*"
	}
	if o.MessageField == "" {
		o.MessageField = "message"
	}
	if o.MaxResults == 0 {
		o.MaxResults = 500
	}
}

//ElasticSource Source backed by an elasticsearch cluster
type ElasticSource struct {
	options ElasticOptions
	client  *http.Client
}

//NewElasticSource NewElasticSource
func NewElasticSource(options ElasticOptions) *ElasticSource {
	options.complete()
	return &ElasticSource{
		options: options,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

func (e *ElasticSource) request(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.options.URL+path, reader)
	if err != nil {
		return nil, err
	}
	if e.options.Username != "" {
		req.SetBasicAuth(e.options.Username, e.options.Password)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "elasticsearch request")
	}
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("elasticsearch returned status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func (e *ElasticSource) rangeFilter(start, end time.Time) map[string]interface{} {
	return map[string]interface{}{
		"range": map[string]interface{}{
			"@timestamp": map[string]interface{}{
				"gte": start.UTC().Format(time.RFC3339),
				"lt":  end.UTC().Format(time.RFC3339),
			},
		},
	}
}

//SearchRange error-like documents inside [start, end), oldest first
func (e *ElasticSource) SearchRange(ctx context.Context, start, end time.Time) ([]*Hit, error) {
	query := map[string]interface{}{
		"size": e.options.MaxResults,
		"sort": []interface{}{
			map[string]interface{}{"@timestamp": map[string]string{"order": "asc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					e.rangeFilter(start, end),
					map[string]interface{}{
						"exists": map[string]string{"field": e.options.MessageField},
					},
				},
				"should": []interface{}{
					map[string]interface{}{"match": map[string]string{e.options.MessageField: "error"}},
					map[string]interface{}{"match": map[string]string{e.options.MessageField: "exception"}},
					map[string]interface{}{"match": map[string]string{e.options.MessageField: "failed"}},
					map[string]interface{}{"match": map[string]string{e.options.MessageField: "failure"}},
				},
				"minimum_should_match": 1,
			},
		},
	}
	data, err := e.request(ctx, http.MethodPost, "/"+e.options.Index+"/_search", query)
	if err != nil {
		return nil, err
	}
	var hits []*Hit
	for _, raw := range gjson.GetBytes(data, "hits.hits").Array() {
		source := raw.Get("_source")
		hit := &Hit{
			Message:  source.Get(e.options.MessageField).String(),
			Level:    source.Get("level").String(),
			Logger:   source.Get("logger").String(),
			Thread:   source.Get("thread").String(),
			Host:     source.Get("host").String(),
			Instance: source.Get("instance").String(),
		}
		if hit.Level == "" {
			hit.Level = "error"
		}
		if ts, err := time.Parse(time.RFC3339, source.Get("@timestamp").String()); err == nil {
			hit.Timestamp = ts
		} else {
			logrus.Debugf("skip unparseable log timestamp %q", source.Get("@timestamp").String())
		}
		for _, tag := range source.Get("tags").Array() {
			hit.Tags = append(hit.Tags, tag.String())
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

//CountRange total documents inside [start, end)
func (e *ElasticSource) CountRange(ctx context.Context, start, end time.Time) (int64, error) {
	query := map[string]interface{}{
		"query": e.rangeFilter(start, end),
	}
	data, err := e.request(ctx, http.MethodPost, "/"+e.options.Index+"/_count", query)
	if err != nil {
		return 0, err
	}
	return gjson.GetBytes(data, "count").Int(), nil
}

//MinutelyHistogram document counts per minute inside [start, end)
func (e *ElasticSource) MinutelyHistogram(ctx context.Context, start, end time.Time) ([]string, []int64, error) {
	query := map[string]interface{}{
		"size":  0,
		"query": e.rangeFilter(start, end),
		"aggs": map[string]interface{}{
			"per_minute": map[string]interface{}{
				"date_histogram": map[string]interface{}{
					"field":          "@timestamp",
					"fixed_interval": "1m",
				},
			},
		},
	}
	data, err := e.request(ctx, http.MethodPost, "/"+e.options.Index+"/_search", query)
	if err != nil {
		return nil, nil, err
	}
	var labels []string
	var values []int64
	for _, bucket := range gjson.GetBytes(data, "aggregations.per_minute.buckets").Array() {
		labels = append(labels, bucket.Get("key_as_string").String())
		values = append(values, bucket.Get("doc_count").Int())
	}
	return labels, values, nil
}

var _ Source = &ElasticSource{}

//DescribeWindow human readable window label
func DescribeWindow(start, end time.Time) string {
	return fmt.Sprintf("%s ~ %s", start.UTC().Format("15:04:05"), end.UTC().Format("15:04:05"))
}
