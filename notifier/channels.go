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

package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// maxMessageLength keeps messages inside every provider's text limit.
const maxMessageLength = 1800

func truncate(message string) string {
	if len(message) <= maxMessageLength {
		return message
	}
	return message[:maxMessageLength-3] + "..."
}

//Channel a notification destination
type Channel interface {
	Name() string
	Send(ctx context.Context, message string) error
}

type webhookChannel struct {
	name    string
	url     string
	client  *http.Client
	payload func(message string) interface{}
}

func (w *webhookChannel) Name() string {
	return w.name
}

func (w *webhookChannel) Send(ctx context.Context, message string) error {
	body, err := json.Marshal(w.payload(truncate(message)))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "send %s webhook", w.name)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("%s webhook returned status %d", w.name, resp.StatusCode)
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

//NewDingTalk dingtalk robot webhook
func NewDingTalk(url string) Channel {
	return &webhookChannel{
		name:   "dingtalk",
		url:    url,
		client: newHTTPClient(),
		payload: func(message string) interface{} {
			return map[string]interface{}{
				"msgtype": "text",
				"text":    map[string]string{"content": message},
			}
		},
	}
}

//NewFeishu feishu robot webhook
func NewFeishu(url string) Channel {
	return &webhookChannel{
		name:   "feishu",
		url:    url,
		client: newHTTPClient(),
		payload: func(message string) interface{} {
			return map[string]interface{}{
				"msg_type": "text",
				"content":  map[string]string{"text": message},
			}
		},
	}
}

//NewSlack slack incoming webhook
func NewSlack(url string) Channel {
	return &webhookChannel{
		name:   "slack",
		url:    url,
		client: newHTTPClient(),
		payload: func(message string) interface{} {
			return map[string]string{"text": message}
		},
	}
}

//NewWorkWechat work wechat relay webhook
func NewWorkWechat(url, channel string) Channel {
	return &webhookChannel{
		name:   "workwechat",
		url:    url,
		client: newHTTPClient(),
		payload: func(message string) interface{} {
			return map[string]string{
				"channel": channel,
				"content": message,
			}
		},
	}
}
