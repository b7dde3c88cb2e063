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

package gcode

import "github.com/ajmcleod/picnc/motion"

// quantum quantizes coordinates to 1/1024 mm before G92 folding, so
// repeated G92 cycles cannot accumulate floating point drift.
const quantum = 1024.0

// ResolveG92 folds G92 coordinate-system offsets into absolute
// coordinates. Each G92 block updates a running offset so that the current
// position reads as the stated values, and is then dropped; all later
// coordinates are shifted accordingly.
func ResolveG92(prog Program) Program {
	out := make(Program, 0, len(prog))
	var shift motion.Distance
	state := Block{}
	for _, e := range prog {
		q := make(Block, len(e))
		for k, v := range e {
			q[k] = float64(int64(v*quantum)) / quantum
		}
		if g, ok := q['G']; ok && int(g) == 92 {
			newPos := Merge(state, q).Distance()
			oldPos := state.Distance()
			shift = shift.Add(newPos.Sub(oldPos))
			state = Merge(state, q)
		} else {
			// G4 carries a duration in X, not a coordinate.
			if g, ok := q['G']; !ok || int(g) != 4 {
				// The state tracks program coordinates, before the shift.
				state = Merge(state, q)
				for i, k := range [...]byte{'X', 'Y', 'Z', 'A'} {
					if _, ok := q[k]; ok {
						q[k] -= shift[i]
					}
				}
			}
			out = append(out, q)
		}
		delete(state, 'G')
		delete(state, 'M')
	}
	return out
}
