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
	"github.com/ajmcleod/picnc/gcode"
	"github.com/ajmcleod/picnc/motion"
)

func isMove(b gcode.Block) bool {
	if _, ok := b['M']; ok {
		return false
	}
	g, ok := b['G']
	return ok && (int(g) == 0 || int(g) == 1)
}

// SimplifyProgram removes waypoints that a Douglas-Peucker pass finds
// redundant. Simplification runs separately over every contiguous run of
// moves sharing a G code, so vertices adjacent to dwells, M codes or a
// rapid/feed switch are always preserved, as are the endpoints of each
// run. A vertex whose feedrate differs from either neighbour is kept
// regardless of geometry.
func SimplifyProgram(prog gcode.Program, epsilon float64, initial gcode.Block) gcode.Program {
	state := gcode.Merge(gcode.Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0, 'F': 0.1}, initial)
	out := make(gcode.Program, 0, len(prog))
	for i := 0; i < len(prog); {
		if !isMove(prog[i]) {
			if g, ok := prog[i]['G']; ok && int(g) == 92 {
				state = gcode.Merge(state, prog[i])
				delete(state, 'G')
			}
			out = append(out, prog[i])
			i++
			continue
		}
		family := prog[i]['G']
		path := []motion.DistanceV{state.DistanceV()}
		j := i
		for ; j < len(prog) && isMove(prog[j]) && prog[j]['G'] == family; j++ {
			state = gcode.Merge(state, prog[j])
			path = append(path, state.DistanceV())
		}
		drop := motion.SimplifyMask(path, epsilon)
		for k := 1; k < len(path); k++ {
			// Feedrate shifts anchor their vertex.
			if path[k].V() != path[k-1].V() {
				drop[k] = false
			}
			if k+1 < len(path) && path[k].V() != path[k+1].V() {
				drop[k] = false
			}
		}
		for k := 1; k < len(path); k++ {
			if !drop[k] {
				out = append(out, prog[i+k-1])
			}
		}
		i = j
	}
	return out
}
