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

package trend

const (
	//TrendRising values are going up
	TrendRising = "rising"
	//TrendFalling values are going down
	TrendFalling = "falling"
	//TrendStable no usable slope
	TrendStable = "stable"
	//TrendInsufficient not enough samples to fit a line
	TrendInsufficient = "insufficient"
)

//Prediction result of fitting the recent samples
type Prediction struct {
	Trend string  `json:"trend"`
	Value float64 `json:"value"`
}

//Predict fits a least squares line through the last five samples. The
//prediction is the fitted value at the end of the window, clamped at
//zero, so a noisy series is smoothed before it is compared against a
//threshold.
func Predict(series []float64) Prediction {
	if len(series) > 5 {
		series = series[len(series)-5:]
	}
	if len(series) < 3 {
		last := 0.0
		if len(series) > 0 {
			last = series[len(series)-1]
		}
		return Prediction{Trend: TrendInsufficient, Value: last}
	}
	n := float64(len(series))
	var sx, sy, sxx, sxy float64
	for i, y := range series {
		x := float64(i + 1)
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	denom := n*sxx - sx*sx
	if denom == 0 {
		return Prediction{Trend: TrendStable, Value: series[len(series)-1]}
	}
	a := (n*sxy - sx*sy) / denom
	b := (sy - a*sx) / n
	predicted := a*n + b
	if predicted < 0 {
		predicted = 0
	}
	trend := TrendStable
	if a > 0 {
		trend = TrendRising
	} else if a < 0 {
		trend = TrendFalling
	}
	return Prediction{Trend: trend, Value: predicted}
}
