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

const (
	//MetricTypeVector instant query result type
	MetricTypeVector = "vector"
	//MetricTypeMatrix range query result type
	MetricTypeMatrix = "matrix"
)

//Metric query result envelope. Error carries the query failure message,
//an empty Error means the data is usable.
type Metric struct {
	MetricData MetricData `json:"result"`
	Error      string     `json:"error,omitempty"`
}

//MetricData typed query result
type MetricData struct {
	MetricType   string         `json:"resultType"`
	MetricValues []*MetricValue `json:"result"`
}

//MetricValue one series of a query result
type MetricValue struct {
	Metadata map[string]string `json:"metric"`
	Sample   *Point            `json:"value,omitempty"`
	Series   []*Point          `json:"values,omitempty"`
}

//Point [timestamp seconds, value]
type Point [2]float64

//Timestamp unix seconds of the sample
func (p Point) Timestamp() float64 {
	return p[0]
}

//Value sample value
func (p Point) Value() float64 {
	return p[1]
}
