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

package hw

import (
	"github.com/ajmcleod/picnc/motion"
)

// Steppers is the sink for atomic 4-axis step actions. An implementation
// must raise all requested step lines and drop them again within one tick,
// with the direction lines settled before the step edge.
type Steppers interface {
	// DoStep performs one synchronous step action.
	DoStep([motion.Axes]SingleStep)
	// Enable switches the motor drivers on or off, per motor where the
	// hardware supports it.
	Enable(en []bool)
	// Steps returns the absolute step counters.
	Steps() motion.Steps
	// SetSteps overwrites the absolute step counters.
	SetSteps(motion.Steps)
}

// Spindles sets the normalized power of a spindle.
type Spindles interface {
	// SetPower sets spindle i to power v in [0,1].
	SetPower(i int, v float64) error
}

// Well known button indices.
const (
	ButtonEndstopX = iota
	ButtonEndstopY
	ButtonEndstopZ
	ButtonEndstopA
	ButtonPause
	ButtonTerminate
)

// Buttons delivers debounced button state changes to registered callbacks.
type Buttons interface {
	// OnKey installs the callback invoked with (button, state) when the
	// button changes state (state 1 is pressed).
	OnKey(btn int, f func(int, int))
	// Handler returns the currently installed callback for a button.
	Handler(btn int) func(int, int)
	// KeysState returns the current state of all buttons.
	KeysState() []int
}
