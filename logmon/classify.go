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
	"regexp"
	"strings"
)

const (
	//SeverityCritical SeverityCritical
	SeverityCritical = "critical"
	//SeverityWarning SeverityWarning
	SeverityWarning = "warning"
	//SeverityError SeverityError
	SeverityError = "error"
	//SeverityInfo SeverityInfo
	SeverityInfo = "info"
)

//Classification category and severity assigned to one log message
type Classification struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
}

type categoryRule struct {
	category string
	pattern  *regexp.Regexp
}

// order matters: the first matching rule wins.
var categoryRules = []categoryRule{
	{"network_timeout", regexp.MustCompile(`(?i)(timed?\s?out|timeout)`)},
	{"dns_failure", regexp.MustCompile(`(?i)(dns|name resolution|unknownhost|no such host)`)},
	{"ssl_error", regexp.MustCompile(`(?i)(ssl|tls|certificate)`)},
	{"connection_reset", regexp.MustCompile(`(?i)(connection reset|reset by peer|broken pipe)`)},
	{"port_unreachable", regexp.MustCompile(`(?i)(connection refused|unreachable|no route to host)`)},
	{"db_connection", regexp.MustCompile(`(?i)((database|mysql|postgres|mongo).{0,40}(connect|connection)|connection.{0,40}(database|mysql|postgres))`)},
	{"sql_syntax", regexp.MustCompile(`(?i)(sql syntax|syntax error.{0,40}sql|bad sql grammar)`)},
	{"null_pointer", regexp.MustCompile(`(?i)(nullpointerexception|null pointer|nil pointer dereference)`)},
	{"out_of_memory", regexp.MustCompile(`(?i)(out of memory|outofmemoryerror|oom[\s-]?kill|memory exhausted)`)},
	{"disk_full", regexp.MustCompile(`(?i)(disk full|no space left on device)`)},
}

var criticalKeywords = []string{
	"fatal", "critical", "emergency", "panic", "crash", "abort",
	"out of memory", "disk full", "connection refused", "service down",
}

var warningKeywords = []string{"warning", "warn", "deprecated"}

// categorySeverity severity used when the message itself carries no
// severity keyword.
var categorySeverity = map[string]string{
	"out_of_memory":    SeverityCritical,
	"disk_full":        SeverityCritical,
	"db_connection":    SeverityCritical,
	"network_timeout":  SeverityWarning,
	"connection_reset": SeverityWarning,
}

//Classifier assigns a category and severity to raw log messages
type Classifier struct{}

//NewClassifier NewClassifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

//Classify Classify
func (c *Classifier) Classify(message, level string) Classification {
	lower := strings.ToLower(message)
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(message) {
			return Classification{
				Category: rule.category,
				Severity: c.severity(lower, rule.category),
			}
		}
	}
	if category, ok := c.smartClassify(lower); ok {
		return Classification{Category: category, Severity: c.severity(lower, category)}
	}
	switch strings.ToLower(level) {
	case "error", "fatal", "critical":
		return Classification{Category: "unknown", Severity: SeverityError}
	}
	return Classification{Category: "unknown", Severity: SeverityInfo}
}

func (c *Classifier) severity(lower, category string) string {
	for _, keyword := range criticalKeywords {
		if strings.Contains(lower, keyword) {
			return SeverityCritical
		}
	}
	for _, keyword := range warningKeywords {
		if strings.Contains(lower, keyword) {
			return SeverityWarning
		}
	}
	if severity, ok := categorySeverity[category]; ok {
		return severity
	}
	return SeverityError
}

// smartClassify is the fallback for messages that look like errors but
// match no specific rule.
func (c *Classifier) smartClassify(lower string) (string, bool) {
	isError := strings.Contains(lower, "error") || strings.Contains(lower, "exception") ||
		strings.Contains(lower, "failed") || strings.Contains(lower, "failure")
	if !isError {
		return "", false
	}
	switch {
	case strings.Contains(lower, "http") || strings.Contains(lower, "api"):
		return "api_error", true
	case strings.Contains(lower, "file") || strings.Contains(lower, "i/o") || strings.Contains(lower, " io "):
		return "file_io", true
	case strings.Contains(lower, "thread") || strings.Contains(lower, "concurrent") || strings.Contains(lower, "lock"):
		return "concurrency", true
	case strings.Contains(lower, "cache") || strings.Contains(lower, "redis") || strings.Contains(lower, "memory"):
		return "cache", true
	}
	return "generic", true
}
