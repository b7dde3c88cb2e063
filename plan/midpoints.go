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

// minSplitLength keeps degenerate moves from being split.
const minSplitLength = 0.01

// InsertMidpoints splits every sufficiently long G0/G1 move by adding
// interior vertices around the point where the move could have finished
// accelerating. The extra vertices give the junction and acceleration
// limiters room to shape speed ramps inside long segments.
func InsertMidpoints(parts gcode.Partitioned, initial gcode.Block, limits motion.Limits) gcode.Partitioned {
	var ret gcode.Partitioned
	current := gcode.Merge(gcode.Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0, 'F': 0.1}, initial)
	for _, sub := range parts {
		if len(sub) == 0 {
			continue
		}
		if _, ok := sub[0]['G']; !ok {
			ret = append(ret, sub)
			continue
		}
		var nsub gcode.Program
		for _, block := range sub {
			g := int(block['G'])
			if g != 0 && g != 1 {
				if g == 92 {
					current = gcode.Merge(current, block)
					nsub = append(nsub, current)
				} else {
					nsub = append(nsub, block)
				}
				continue
			}
			next := gcode.Merge(current, block)
			move := gcode.Move(current, next)
			if move.Length() < minSplitLength {
				nsub = append(nsub, block)
				current = next
				continue
			}
			dir := move.Norm()
			maxAccel := limits.MaxAccelAlong(dir)
			noAccelV := limits.MaxNoAccelVelocityAlong(dir)
			a := motion.PathNode{P: current.Distance(), V: noAccelV}
			b := motion.PathNode{P: next.Distance(), V: next['F']}
			transition := motion.TransitionPoint(a, b, maxAccel)
			half := move.Scale(0.5)
			f := math.Max(next['F'], current['F'])
			if d := transition.P.Sub(a.P).Length(); d < half.Length() {
				off := half.Norm().Scale(d)
				midA := gcode.Merge(current, gcode.FromDistance(a.P.Add(off)))
				midB := gcode.Merge(current, gcode.FromDistance(b.P.Sub(off)))
				midA['F'], midB['F'] = f, f
				midA['G'], midB['G'] = next['G'], next['G']
				nsub = append(nsub, midA, midB, next)
			} else {
				mid := gcode.Merge(current, gcode.FromDistance(current.Distance().Add(half)))
				mid['G'] = next['G']
				mid['F'] = f
				nsub = append(nsub, mid, next)
			}
			current = next
		}
		ret = append(ret, nsub)
	}
	return ret
}
