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

package option

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//Config inspector config
type Config struct {
	LogLevel string

	PrometheusEndpoint string
	PrometheusTimeout  int
	PrometheusWorkers  int

	MysqlConnectionInfo string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EsURL      string
	EsUsername string
	EsPassword string
	EsIndex    string

	DingTalkWebhook   string
	FeishuWebhook     string
	SlackWebhook      string
	WorkWechatWebhook string
	WorkWechatChannel string

	HealthInterval int
}

//NewConfig config with env-backed defaults
func NewConfig() *Config {
	return &Config{
		LogLevel:            env("LOG_LEVEL", "info"),
		PrometheusEndpoint:  env("PROMETHEUS_ENDPOINT", "http://127.0.0.1:9090"),
		PrometheusTimeout:   envInt("PROMETHEUS_TIMEOUT", 10),
		PrometheusWorkers:   envInt("PROMETHEUS_WORKERS", 5),
		MysqlConnectionInfo: env("MYSQL_CONNECTION_INFO", "root:@tcp(127.0.0.1:3306)/inspector"),
		RedisAddr:           env("REDIS_ADDR", ""),
		RedisPassword:       env("REDIS_PASSWORD", ""),
		RedisDB:             envInt("REDIS_DB", 0),
		EsURL:               env("ES_URL", ""),
		EsUsername:          env("ES_USERNAME", ""),
		EsPassword:          env("ES_PASSWORD", ""),
		EsIndex:             env("ES_INDEX", "logstash-*"),
		DingTalkWebhook:     env("DINGTALK_WEBHOOK", ""),
		FeishuWebhook:       env("FEISHU_WEBHOOK", ""),
		SlackWebhook:        env("SLACK_WEBHOOK", ""),
		WorkWechatWebhook:   env("WORKWECHAT_WEBHOOK", ""),
		WorkWechatChannel:   env("WORKWECHAT_CHANNEL", "ops"),
		HealthInterval:      envInt("HEALTH_INTERVAL", 300),
	}
}

//CompleteConfig apply the log level and validate required settings
func (c *Config) CompleteConfig() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	logrus.SetLevel(level)
	if c.PrometheusEndpoint == "" {
		return errors.New("prometheus endpoint must be configured")
	}
	if c.MysqlConnectionInfo == "" {
		return errors.New("mysql connection info must be configured")
	}
	if c.HealthInterval <= 0 {
		return errors.New("health interval must be positive")
	}
	return nil
}

func env(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logrus.Warningf("env %s=%q is not a number, using %d", key, raw, fallback)
		return fallback
	}
	return value
}
