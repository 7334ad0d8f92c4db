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
	"bytes"
	"context"
	"crypto/tls"
	"io/ioutil"
	"net"
	"net/http"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/api"
	apiv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/sirupsen/logrus"
)

//Options prometheus client options
type Options struct {
	Endpoint        string
	Timeout         time.Duration
	MaxWorkers      int
	CacheTTL        time.Duration
	MaxCacheEntries int
}

func (o *Options) complete() {
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxWorkers == 0 {
		o.MaxWorkers = 20
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = 5 * time.Minute
	}
	if o.MaxCacheEntries == 0 {
		o.MaxCacheEntries = 1000
	}
}

//retryRoundTripper retries transient failures with doubling backoff.
type retryRoundTripper struct {
	next     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (r *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = ioutil.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
	}
	var lastErr error
	backoff := r.backoff
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if body != nil {
			req.Body = ioutil.NopCloser(bytes.NewReader(body))
		}
		resp, err := r.next.RoundTrip(req)
		if err != nil {
			lastErr = err
			logrus.Debugf("prometheus request %s attempt %d error %s", req.URL.Path, attempt+1, err.Error())
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = errors.Errorf("prometheus returned status %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

//Client low level prometheus api client
type Client struct {
	apiClient api.Client
	promAPI   apiv1.API
	endpoint  string
	timeout   time.Duration
}

//NewClient NewClient
func NewClient(options Options) (*Client, error) {
	options.complete()
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
	}
	apiClient, err := api.NewClient(api.Config{
		Address: options.Endpoint,
		RoundTripper: &retryRoundTripper{
			next:     transport,
			attempts: 3,
			backoff:  500 * time.Millisecond,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create prometheus client")
	}
	return &Client{
		apiClient: apiClient,
		promAPI:   apiv1.NewAPI(apiClient),
		endpoint:  options.Endpoint,
		timeout:   options.Timeout,
	}, nil
}

//Query execute an instant query
func (c *Client) Query(ctx context.Context, query string, ts time.Time) (model.Value, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	value, warnings, err := c.promAPI.Query(ctx, query, ts)
	if len(warnings) > 0 {
		logrus.Debugf("prometheus query warnings: %v", warnings)
	}
	return value, err
}

//QueryRange execute a range query
func (c *Client) QueryRange(ctx context.Context, query string, r apiv1.Range) (model.Value, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	value, warnings, err := c.promAPI.QueryRange(ctx, query, r)
	if len(warnings) > 0 {
		logrus.Debugf("prometheus query range warnings: %v", warnings)
	}
	return value, err
}

//RawEndpoint fetch a raw api endpoint such as /api/v1/targets. The body
//is kept opaque so callers can pass it through unchanged.
func (c *Client) RawEndpoint(ctx context.Context, path string) (*simplejson.Json, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequest(http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return nil, err
	}
	resp, body, err := c.apiClient.Do(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch %s returned status %d", path, resp.StatusCode)
	}
	return simplejson.NewJson(body)
}

func parseQueryResp(value model.Value) MetricData {
	data := MetricData{MetricType: MetricTypeVector}
	vector, ok := value.(model.Vector)
	if !ok {
		return data
	}
	for _, sample := range vector {
		metadata := make(map[string]string, len(sample.Metric))
		for name, v := range sample.Metric {
			metadata[string(name)] = string(v)
		}
		point := Point{float64(sample.Timestamp) / 1000, float64(sample.Value)}
		data.MetricValues = append(data.MetricValues, &MetricValue{
			Metadata: metadata,
			Sample:   &point,
		})
	}
	return data
}

func parseQueryRangeResp(value model.Value) MetricData {
	data := MetricData{MetricType: MetricTypeMatrix}
	matrix, ok := value.(model.Matrix)
	if !ok {
		return data
	}
	for _, stream := range matrix {
		metadata := make(map[string]string, len(stream.Metric))
		for name, v := range stream.Metric {
			metadata[string(name)] = string(v)
		}
		series := make([]*Point, 0, len(stream.Values))
		for _, pair := range stream.Values {
			point := Point{float64(pair.Timestamp) / 1000, float64(pair.Value)}
			series = append(series, &point)
		}
		data.MetricValues = append(data.MetricValues, &MetricValue{
			Metadata: metadata,
			Series:   series,
		})
	}
	return data
}
