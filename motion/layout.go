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

import (
	"fmt"
	"math"
)

// Layout maps Cartesian positions to motor steps and back for a particular
// mechanical arrangement of the motors.
type Layout interface {
	// ToSteps converts distances in mm to motor step counts.
	ToSteps(Distance) Steps
	// ToCartesian converts motor step counts back to distances in mm.
	ToCartesian(Steps) Distance
}

type cartesian struct {
	stepsPerMM Distance
	scale      Distance
}

type corexy struct {
	stepsPerMM Distance
	scale      Distance
}

// NewLayout creates the layout named by kind ("cartesian" or "corexy").
// Every steps-per-mm and scale entry must be nonzero.
func NewLayout(kind string, stepsPerMM, scale Distance) (Layout, error) {
	for i := 0; i < Axes; i++ {
		if stepsPerMM[i] == 0 {
			return nil, fmt.Errorf("axis %d: steps per mm cannot be zero", i)
		}
		if scale[i] == 0 {
			return nil, fmt.Errorf("axis %d: scale cannot be zero", i)
		}
	}
	switch kind {
	case "cartesian":
		return &cartesian{stepsPerMM, scale}, nil
	case "corexy":
		return &corexy{stepsPerMM, scale}, nil
	}
	return nil, fmt.Errorf("%s: unknown motion layout", kind)
}

func round(v float64) int {
	return int(math.Round(v))
}

func (c *cartesian) ToSteps(d Distance) Steps {
	var s Steps
	for i := range d {
		s[i] = round(d[i] * c.stepsPerMM[i] * c.scale[i])
	}
	return s
}

func (c *cartesian) ToCartesian(s Steps) Distance {
	var d Distance
	for i := range s {
		d[i] = float64(s[i]) / (c.stepsPerMM[i] * c.scale[i])
	}
	return d
}

// CoreXY couples the first two motors through shared belts: motor 0 moves
// with x+y, motor 1 with x-y. Z and A remain direct drives.
func (c *corexy) ToSteps(d Distance) Steps {
	return Steps{
		round((d[0]*c.scale[0] + d[1]*c.scale[1]) * c.stepsPerMM[0]),
		round((d[0]*c.scale[0] - d[1]*c.scale[1]) * c.stepsPerMM[1]),
		round(d[2] * c.stepsPerMM[2] * c.scale[2]),
		round(d[3] * c.stepsPerMM[3] * c.scale[3]),
	}
}

func (c *corexy) ToCartesian(s Steps) Distance {
	return Distance{
		0.5 * (float64(s[0])/c.stepsPerMM[0] + float64(s[1])/c.stepsPerMM[1]) / c.scale[0],
		0.5 * (float64(s[0])/c.stepsPerMM[0] - float64(s[1])/c.stepsPerMM[1]) / c.scale[1],
		float64(s[2]) / (c.stepsPerMM[2] * c.scale[2]),
		float64(s[3]) / (c.stepsPerMM[3] * c.scale[3]),
	}
}
