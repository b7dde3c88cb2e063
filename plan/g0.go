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

// Package plan turns parsed G-code into machine-executable motion: it
// expands rapid moves, limits feedrates at junctions and under the
// acceleration budget, simplifies paths and synthesizes step command
// streams.

package plan

import (
	"github.com/ajmcleod/picnc/gcode"
	"github.com/ajmcleod/picnc/motion"
)

// ExpandG0 rewrites a run of G0 rapid moves into G1 sequences that
// accelerate from the no-accel velocity, cruise at the velocity limit and
// decelerate back. Short moves that cannot reach the velocity limit peak
// at the midpoint instead. Zero-length moves pass through unchanged.
func ExpandG0(run gcode.Program, limits motion.Limits, state gcode.Block) (gcode.Program, error) {
	if len(run) == 0 {
		return nil, &gcode.ProgramError{Reason: "a G0 run cannot be empty"}
	}
	current := gcode.Merge(gcode.Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0, 'F': 0.1}, state)
	var result gcode.Program
	for _, in := range run {
		if g, ok := in['G']; !ok || int(g) != 0 {
			return nil, &gcode.ProgramError{Reason: "only G0 blocks are allowed in a rapid sequence"}
		}
		next := gcode.Merge(current, in)
		move := gcode.Move(current, next)
		s := move.Length()
		if s == 0 {
			result = append(result, next)
			current = next
			continue
		}
		dir := move.Norm()
		accel := limits.MaxAccelAlong(dir)
		maxV := limits.MaxVelocityAlong(dir)
		minV := limits.MaxNoAccelVelocityAlong(dir)
		a := motion.PathNode{P: current.Distance(), V: minV}
		mid := motion.PathNode{P: a.P.Add(move.Scale(0.5)), V: maxV}
		b := motion.PathNode{P: next.Distance(), V: minV}
		needed, err := motion.AccelerationBetween(a, mid)
		if err != nil {
			return nil, &gcode.ProgramError{Reason: err.Error()}
		}
		endState := func() gcode.Block {
			blk := next.Copy()
			blk['G'] = 1
			blk['F'] = minV
			return blk
		}
		mkBlock := func(n motion.PathNode) gcode.Block {
			blk := gcode.Merge(current, gcode.FromDistance(n.P))
			blk['G'] = 1
			blk['F'] = n.V
			return blk
		}
		if needed >= accel {
			// Too short to reach the velocity limit: peak at the midpoint.
			peak := motion.TransitionPoint(a, mid, accel)
			result = append(result, mkBlock(peak), endState())
		} else {
			// Accelerate to the limit, cruise, then decelerate
			// symmetrically into the endpoint.
			accelEnd := motion.TransitionPoint(a, mid, accel)
			decelStart := motion.TransitionPoint(b, accelEnd, accel)
			result = append(result, mkBlock(accelEnd), mkBlock(decelStart), endState())
		}
		current = next
	}
	return result, nil
}
