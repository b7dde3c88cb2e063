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

// limitAccelerations lowers feedrates until every consecutive pair of
// absolute states can be connected within the projected acceleration
// limit. Each round reduces the faster endpoint of a violating pair by
// 20%, which strictly decreases a bounded quantity, so the loop
// terminates. Reductions are not floored: half the projected no-accel
// velocity, capped at the pair's end feedrate, only serves as a lower
// bound for the pair's acceleration limit.
func limitAccelerations(states gcode.Program, limits motion.Limits) (gcode.Program, error) {
	if len(states) == 0 {
		return states, nil
	}
	result := make(gcode.Program, len(states))
	for i, s := range states {
		result[i] = s.Copy()
	}
	prevF := result[0]['F']
	for _, e := range result {
		if f, ok := e['F']; ok {
			prevF = f
		} else {
			e['F'] = prevF
		}
	}
	for fixing := true; fixing; {
		fixing = false
		for i := 1; i < len(result); i++ {
			a := result[i-1].Distance()
			b := result[i].Distance()
			ab := b.Sub(a)
			s := ab.Length()
			if s == 0 || result[i-1]['F'] == result[i]['F'] {
				continue
			}
			maxA := limits.MaxAccelAlong(ab.Norm())
			minV := limits.MaxNoAccelVelocityAlong(ab.Norm()) / 2
			minV = math.Min(minV, result[i]['F'])
			maxA = math.Max(maxA, minV)
			accel, err := motion.AccelerationBetween(
				motion.PathNode{P: a, V: result[i-1]['F']},
				motion.PathNode{P: b, V: result[i]['F']})
			if err != nil {
				return nil, &gcode.ProgramError{Reason: err.Error()}
			}
			if math.Abs(accel) > math.Abs(maxA) {
				if result[i-1]['F'] > result[i]['F'] {
					result[i-1]['F'] *= 0.8
				} else {
					result[i]['F'] *= 0.8
				}
				fixing = true
			}
		}
	}
	return result, nil
}

// LimitMoves applies the machine limits to a run of G0/G1 moves: the
// blocks are turned into absolute states, feedrates are capped at the
// junctions and then lowered until all accelerations fit. The returned
// program has one absolute state per input block that moves the machine;
// a block that only changes the feedrate folds into the state before it.
func LimitMoves(run gcode.Program, limits motion.Limits, state gcode.Block) (gcode.Program, error) {
	if len(run) == 0 {
		return nil, &gcode.ProgramError{Reason: "there must be at least one G0 or G1 block in the run"}
	}
	current := gcode.Merge(gcode.Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0, 'F': 0.1}, state)
	states := gcode.Program{current}
	for _, in := range run {
		next := gcode.Merge(current, in)
		// Blocks without G inherit the family of their run.
		if g := int(next['G']); g != 0 && g != 1 {
			return nil, &gcode.ProgramError{Reason: "only G0 and G1 blocks can carry machine limits"}
		}
		if gcode.Move(current, next).Length() == 0 {
			// A pure feedrate change folds into the previous state.
			if f, ok := next['F']; ok {
				states[len(states)-1]['F'] = f
			}
		} else {
			states = append(states, next)
		}
		current = next
	}
	limited, err := ApplyTurnLimits(states, limits)
	if err != nil {
		return nil, err
	}
	limited, err = limitAccelerations(limited, limits)
	if err != nil {
		return nil, err
	}
	return limited[1:], nil
}
