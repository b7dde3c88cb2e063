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

package plan

import (
	"math"

	"github.com/ajmcleod/picnc/gcode"
	"github.com/ajmcleod/picnc/motion"
)

// ApplyTurnLimits caps the feedrate at every waypoint of a run of
// absolute-position states according to the turn angle at that waypoint.
// Sharp turns (up to 90 degrees) are limited to a fraction of the no-accel
// velocity; wider angles blend towards the full velocity limit on a
// straight line. The first and last waypoint are clamped to the no-accel
// velocity of their segment. Existing feedrates are only ever lowered.
func ApplyTurnLimits(states gcode.Program, limits motion.Limits) (gcode.Program, error) {
	if len(states) == 0 {
		return gcode.Program{}, nil
	}
	ret := make(gcode.Program, len(states))
	for i, s := range states {
		ret[i] = s.Copy()
	}
	if len(ret) == 1 {
		state := ret[0]
		if state['F'] > 0 {
			avg := 0.0
			for _, v := range limits.MaxNoAccelVelocity {
				avg += v
			}
			state['F'] = math.Min(avg/motion.Axes, state['F'])
		}
		return ret, nil
	}

	first := gcode.Move(ret[0], ret[1])
	if first.Length() > 0 {
		ret[0]['F'] = math.Min(limits.MaxNoAccelVelocityAlong(first.Norm()), ret[0]['F'])
	}
	if len(ret) == 2 {
		ret[1]['F'] = math.Min(ret[0]['F'], ret[1]['F'])
		return ret, nil
	}

	for i := 1; i < len(ret)-1; i++ {
		a := ret[i-1].Distance()
		b := ret[i].Distance()
		c := ret[i+1].Distance()
		if ret[i]['F'] == 0 {
			return nil, &gcode.ProgramError{Reason: "feedrate cannot be 0 at " + ret[i].String()}
		}
		angle := b.Angle(a, c)
		var limit float64
		if angle <= math.Pi/2 {
			y := motion.Lerp(angle, 0, 0.25, math.Pi/2, 1)
			limit = y * math.Min(
				limits.MaxNoAccelVelocityAlong(b.Sub(a).Norm()),
				limits.MaxNoAccelVelocityAlong(c.Sub(b).Norm()))
		} else {
			ba := math.Max(b.Sub(a).Length(), 1e-7)
			cb := math.Max(c.Sub(b).Length(), 1e-7)
			dirBA := b.Sub(a).Scale(1 / ba)
			dirCB := c.Sub(b).Scale(1 / cb)
			// Squash the obtuse range so that limits relax slowly just
			// past a right angle and quickly towards a straight line.
			phi := (angle - math.Pi/2) / (math.Pi / 2)
			phi = phi*phi*(math.Pi/2) + math.Pi/2
			limit = motion.Lerp(phi,
				math.Pi/2,
				math.Min(limits.MaxNoAccelVelocityAlong(dirBA), limits.MaxNoAccelVelocityAlong(dirCB)),
				math.Pi,
				math.Min(limits.MaxVelocityAlong(dirBA), limits.MaxVelocityAlong(dirCB)))
			if math.IsNaN(limit) {
				limit = ret[i]['F']
			}
		}
		ret[i]['F'] = math.Min(limit, ret[i]['F'])
	}

	last := len(ret) - 1
	diff := gcode.Move(ret[last-1], ret[last])
	a := limits.MaxNoAccelVelocityAlong(diff.Norm())
	b := ret[last]['F']
	ff := math.Min(a, b)
	if math.IsNaN(a) {
		ff = b
	}
	if math.IsNaN(b) {
		ff = a
	}
	ret[last]['F'] = ff
	return ret, nil
}
