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

// Package gcode parses G-code text into programs of blocks and provides
// the block algebra the planner is built on.

package gcode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ajmcleod/picnc/motion"
)

// Block maps a single G-code letter to its numeric argument, e.g.
// "G0 X10 Y20" becomes {G:0, X:10, Y:20}. Letters missing from a block
// inherit from the machine state when the block is executed.
type Block map[byte]float64

// Program is an ordered sequence of blocks.
type Program []Block

// Partitioned is a program split into runs of blocks that share a dispatch
// family (a run of G0s, a run of G1s, a single M code...).
type Partitioned []Program

// Merge overlays src on top of dst. Keys present in src win.
func Merge(dst, src Block) Block {
	m := make(Block, len(dst)+len(src))
	for k, v := range dst {
		m[k] = v
	}
	for k, v := range src {
		m[k] = v
	}
	return m
}

// Diff returns the keys of dst that are absent from or differently valued
// in src.
func Diff(dst, src Block) Block {
	m := make(Block, len(dst))
	for k, v := range dst {
		m[k] = v
	}
	for k, v := range src {
		if mv, ok := m[k]; ok && mv == v {
			delete(m, k)
		}
	}
	return m
}

// Copy returns an independent copy of the block.
func (b Block) Copy() Block {
	m := make(Block, len(b))
	for k, v := range b {
		m[k] = v
	}
	return m
}

// Distance extracts the Cartesian position of the block. Missing axes
// read as zero.
func (b Block) Distance() motion.Distance {
	return motion.Distance{b['X'], b['Y'], b['Z'], b['A']}
}

// DistanceV extracts the position together with the feedrate.
func (b Block) DistanceV() motion.DistanceV {
	f := b['F']
	if f == 0 {
		f = 0.1
	}
	return b.Distance().WithV(f)
}

// FromDistance converts a position back to the block form.
func FromDistance(d motion.Distance) Block {
	return Block{'X': d[0], 'Y': d[1], 'Z': d[2], 'A': d[3]}
}

// Move returns the movement vector from block a to block b.
func Move(a, b Block) motion.Distance {
	return b.Distance().Sub(a.Distance())
}

// String renders the block as a G-code fragment with letters in a stable
// order.
func (b Block) String() string {
	keys := make([]byte, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		order := func(c byte) int {
			switch c {
			case 'G', 'M':
				return 0
			case 'F':
				return 2
			}
			return 1
		}
		if order(keys[i]) != order(keys[j]) {
			return order(keys[i]) < order(keys[j])
		}
		return keys[i] < keys[j]
	})
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%c%g", k, b[k])
	}
	return sb.String()
}

// LastState replays the merge algebra over the program and returns the
// machine state after it has executed. G4 dwells do not move the machine
// and M codes are not latched across blocks.
func LastState(p Program, initial Block) Block {
	result := Merge(Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0, 'F': 0.1}, initial)
	for _, e := range p {
		delete(result, 'M')
		if g, ok := e['G']; ok && int(g) == 4 {
			continue
		}
		result = Merge(result, e)
	}
	return result
}
