// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package motion

import "math"

// Limits holds the per-axis machine limits.
type Limits struct {
	MaxAccel           Distance // mm/s^2
	MaxVelocity        Distance // mm/s
	MaxNoAccelVelocity Distance // mm/s, reachable without a ramp
}

// proportional blends per-axis limits along a direction vector. The result
// is the weighted mean of the axis limits, weighted by the direction
// components, so that a move along a single axis gets exactly that axis
// limit and a diagonal move gets a value between the smallest and the
// largest limit of the axes it uses.
func proportional(limits, dir Distance) float64 {
	sum := 0.0
	wsum := 0.0
	for i := range limits {
		sum += limits[i] * math.Abs(dir[i])
		wsum += math.Abs(dir[i])
	}
	return sum / wsum
}

// MaxAccelAlong returns the acceleration limit along direction dir.
func (l Limits) MaxAccelAlong(dir Distance) float64 {
	return proportional(l.MaxAccel, dir)
}

// MaxVelocityAlong returns the velocity limit along direction dir.
func (l Limits) MaxVelocityAlong(dir Distance) float64 {
	return proportional(l.MaxVelocity, dir)
}

// MaxNoAccelVelocityAlong returns the no-acceleration velocity limit along
// direction dir.
func (l Limits) MaxNoAccelVelocityAlong(dir Distance) float64 {
	return proportional(l.MaxNoAccelVelocity, dir)
}
