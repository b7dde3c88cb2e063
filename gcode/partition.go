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

import (
	"github.com/ajmcleod/picnc/motion"
)

// Group partitions a program into runs of blocks that dispatch together:
// consecutive blocks with the same G code form one run, every M block is
// isolated, and blocks without G or M extend the preceding G run. Every
// G1 run starts with a feedrate; a synthetic {G:1, F} block is prefixed
// to any G1 run whose first block omits it.
func Group(prog Program, initial Block) (Partitioned, error) {
	var parts Partitioned
	state := Merge(Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0}, initial)
	for _, e := range prog {
		_, hasG := e['G']
		_, hasM := e['M']
		switch {
		case len(parts) == 0:
			if !hasG && !hasM {
				return nil, &ProgramError{Reason: "the first command must be G or M"}
			}
			parts = append(parts, Program{e})
		case hasG:
			last := parts[len(parts)-1]
			if _, ok := last[len(last)-1]['G']; ok && last[0]['G'] == e['G'] {
				parts[len(parts)-1] = append(last, e)
			} else {
				parts = append(parts, Program{e})
			}
		case hasM:
			parts = append(parts, Program{e})
		default:
			last := parts[len(parts)-1]
			if _, ok := last[0]['G']; !ok {
				return nil, &ProgramError{Reason: "cannot tell whether the command extends a G or an M block"}
			}
			parts[len(parts)-1] = append(last, e)
		}
		state = Merge(state, e)
		// A G1 run must start with an explicit feedrate.
		last := parts[len(parts)-1]
		if len(last) == 1 {
			if g, ok := last[0]['G']; ok && int(g) == 1 {
				if _, ok := last[0]['F']; !ok {
					parts[len(parts)-1] = Program{{'G': 1, 'F': state['F']}, e}
				}
			}
		}
	}
	return parts, nil
}

// EnrichFeedrates makes the feedrate of every G0/G1 block explicit: G0
// blocks get the fastest axis velocity, G1 blocks inherit the last
// commanded feedrate.
func EnrichFeedrates(prog Program, limits motion.Limits) Program {
	rapid := limits.MaxVelocity[0]
	for _, v := range limits.MaxVelocity {
		if v > rapid {
			rapid = v
		}
	}
	carried := 0.1
	out := make(Program, 0, len(prog))
	for _, e := range prog {
		e = e.Copy()
		if g, ok := e['G']; ok {
			switch int(g) {
			case 0:
				e['F'] = rapid
			case 1:
				if f, ok := e['F']; ok {
					carried = f
				} else {
					e['F'] = carried
				}
			}
		}
		out = append(out, e)
	}
	return out
}

// RemoveDuplicates drops G0/G1/G92 blocks that neither move the machine
// nor change the feedrate, and reduces the remaining ones to the keys that
// actually change.
func RemoveDuplicates(prog Program, initial Block) Program {
	out := make(Program, 0, len(prog))
	state := Merge(Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0, 'F': 0.1}, initial)
	for _, e := range prog {
		if _, hasM := e['M']; !hasM {
			if g, ok := e['G']; ok && (int(g) == 0 || int(g) == 1 || int(g) == 92) {
				next := Merge(state, e)
				if Move(next, state).Length() == 0 && next['F'] == state['F'] {
					state = next
					continue
				}
				nb := Diff(next, state)
				nb['G'] = next['G']
				out = append(out, nb)
				state = next
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
