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

// Package hw defines the step command stream, the capability interfaces of
// the hardware adapters, and the stepping engine that executes command
// streams with precise timing.

package hw

import (
	"github.com/ajmcleod/picnc/motion"
)

// SingleStep is the atomic action of one motor in one tick: whether to
// pulse the step line and which direction to set (1 is positive).
type SingleStep struct {
	Step byte
	Dir  byte
}

// MultiStep is one synchronous 4-axis step action repeated Count times.
type MultiStep struct {
	B     [motion.Axes]SingleStep
	Count int
}

// MaxCount caps the repeat counter of a single command; longer runs are
// split into several commands.
const MaxCount = 0x0fffffff

// SameAction reports whether two commands perform identical step/dir
// actions, ignoring the repeat count.
func SameAction(a, b MultiStep) bool {
	return a.B == b.B
}

// delta returns the position change of one execution of the action.
func (m MultiStep) delta() motion.Steps {
	var d motion.Steps
	for i, b := range m.B {
		d[i] = int(b.Step) * (int(b.Dir)*2 - 1)
	}
	return d
}

// stepBits counts the motors that pulse in one execution of the action.
func (m MultiStep) stepBits() int {
	n := 0
	for _, b := range m.B {
		n += int(b.Step)
	}
	return n
}

// TickCount returns the total number of ticks the stream takes to execute.
func TickCount(cmds []MultiStep) int {
	n := 0
	for _, c := range cmds {
		n += c.Count
	}
	return n
}

// StreamSteps returns the accumulated step position over the whole stream.
func StreamSteps(cmds []MultiStep) motion.Steps {
	var s motion.Steps
	for _, c := range cmds {
		d := c.delta()
		for i := range s {
			s[i] += d[i] * c.Count
		}
	}
	return s
}

// PositionAfter returns the step position after the given number of ticks
// has executed, relative to the stream start. Zero ticks means no
// movement; a tick count beyond the stream end returns the final position.
func PositionAfter(cmds []MultiStep, ticks int) motion.Steps {
	var s motion.Steps
	done := 0
	for _, c := range cmds {
		n := c.Count
		if done+n > ticks {
			n = ticks - done
		}
		if n <= 0 {
			break
		}
		d := c.delta()
		for i := range s {
			s[i] += d[i] * n
		}
		done += n
	}
	return s
}
