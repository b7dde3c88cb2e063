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
	"testing"

	"github.com/ajmcleod/picnc/gcode"
	"github.com/ajmcleod/picnc/hw"
	"github.com/ajmcleod/picnc/motion"
)

func testLayout(t *testing.T) motion.Layout {
	t.Helper()
	l, err := motion.NewLayout("cartesian",
		motion.Distance{100, 100, 100, 100}, motion.Distance{1, 1, 1, 1})
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return l
}

var zeroState = gcode.Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0, 'F': 2}

func TestChaseSteps(t *testing.T) {
	got := chaseSteps(nil, motion.Steps{0, 0, 0, 0}, motion.Steps{3, -2, 0, 0})
	if n := hw.TickCount(got); n != 3 {
		t.Fatalf("tick count: got %d, want 3", n)
	}
	if s := hw.StreamSteps(got); s != (motion.Steps{3, -2, 0, 0}) {
		t.Fatalf("stream steps: got %v", s)
	}
}

func TestChaseStepsNoMovement(t *testing.T) {
	// A quiet tick still consumes a tick of time.
	got := chaseSteps(nil, motion.Steps{1, 1, 0, 0}, motion.Steps{1, 1, 0, 0})
	if len(got) != 1 || got[0].Count != 1 || got[0].B != ([motion.Axes]hw.SingleStep{}) {
		t.Fatalf("quiet tick: got %v", got)
	}
}

func TestCollapse(t *testing.T) {
	var up hw.MultiStep
	up.B[0] = hw.SingleStep{Step: 1, Dir: 1}
	up.Count = 1
	cmds := []hw.MultiStep{up, up, up, {Count: 2}, {Count: 1}}
	got := Collapse(cmds)
	if len(got) != 2 {
		t.Fatalf("collapse: got %d commands, want 2: %v", len(got), got)
	}
	if got[0].Count != 3 || got[1].Count != 3 {
		t.Fatalf("collapse counts: got %v", got)
	}
}

func TestProgramToStepsExactEndpoint(t *testing.T) {
	layout := testLayout(t)
	run := gcode.Program{
		{'G': 1, 'X': 1.2345, 'F': 5},
		{'G': 1, 'X': 0.001, 'Y': -2.5, 'F': 10},
	}
	cmds, err := ProgramToSteps(run, 50e-6, layout, zeroState, nil)
	if err != nil {
		t.Fatalf("ProgramToSteps: %v", err)
	}
	want := layout.ToSteps(motion.Distance{0.001, -2.5, 0, 0})
	if got := hw.StreamSteps(cmds); got != want {
		t.Fatalf("final steps: got %v, want %v", got, want)
	}
}

func TestProgramToStepsConstantSpeedTiming(t *testing.T) {
	layout := testLayout(t)
	// 10 mm at 5 mm/s is 2 s of motion, so a 1 ms tick gives ~2000 ticks.
	// The start state already moves at 5 mm/s, so there is no ramp.
	start := zeroState.Copy()
	start['F'] = 5
	cmds, err := ProgramToSteps(gcode.Program{{'G': 1, 'X': 10, 'F': 5}},
		0.001, layout, start, nil)
	if err != nil {
		t.Fatalf("ProgramToSteps: %v", err)
	}
	n := hw.TickCount(cmds)
	if n < 1990 || n > 2010 {
		t.Fatalf("tick count: got %d, want about 2000", n)
	}
}

func TestProgramToStepsZeroFeedrate(t *testing.T) {
	layout := testLayout(t)
	state := gcode.Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0, 'F': 0}
	_, err := ProgramToSteps(gcode.Program{{'G': 1, 'X': 10, 'F': 0}},
		50e-6, layout, state, nil)
	if err == nil {
		t.Fatalf("zero feedrate accepted")
	}
}

func TestDwell(t *testing.T) {
	layout := testLayout(t)
	tests := []struct {
		name  string
		block gcode.Block
		ticks int
	}{
		{"seconds", gcode.Block{'G': 4, 'X': 0.1}, 2000},
		{"milliseconds", gcode.Block{'G': 4, 'P': 50}, 1000},
	}
	for _, tc := range tests {
		cmds, err := ProgramToSteps(gcode.Program{tc.block}, 50e-6, layout, zeroState.Copy(), nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := hw.TickCount(cmds); got != tc.ticks {
			t.Fatalf("%s: got %d ticks, want %d", tc.name, got, tc.ticks)
		}
		if got := hw.StreamSteps(cmds); got != (motion.Steps{}) {
			t.Fatalf("%s: dwell moved the machine: %v", tc.name, got)
		}
	}
}

func TestStateCallback(t *testing.T) {
	layout := testLayout(t)
	var states []gcode.Block
	run := gcode.Program{
		{'G': 1, 'X': 1, 'F': 5},
		{'G': 1, 'Y': 1, 'F': 5},
	}
	_, err := ProgramToSteps(run, 0.001, layout, zeroState.Copy(), func(b gcode.Block) {
		states = append(states, b)
	})
	if err != nil {
		t.Fatalf("ProgramToSteps: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("state callbacks: got %d, want 3", len(states))
	}
	final := states[len(states)-1]
	if final['X'] != 1 || final['Y'] != 1 {
		t.Fatalf("final state: got %v", final)
	}
}

func TestLinearStepsEndpoint(t *testing.T) {
	layout := testLayout(t)
	run := gcode.Program{
		{'G': 1, 'X': 5, 'F': 10},
		{'G': 1, 'X': 5, 'Y': 5, 'F': 10},
	}
	cmds, err := LinearSteps(run, 0.001, layout, zeroState.Copy(), nil)
	if err != nil {
		t.Fatalf("LinearSteps: %v", err)
	}
	want := layout.ToSteps(motion.Distance{5, 5, 0, 0})
	if got := hw.StreamSteps(cmds); got != want {
		t.Fatalf("final steps: got %v, want %v", got, want)
	}
}

func TestBezierFallsBackOnDwell(t *testing.T) {
	layout := testLayout(t)
	run := gcode.Program{
		{'G': 1, 'X': 1, 'F': 5},
		{'G': 4, 'P': 50},
	}
	cmds, err := BezierSteps(run, 50e-6, layout, zeroState.Copy(), nil)
	if err != nil {
		t.Fatalf("BezierSteps: %v", err)
	}
	// The dwell only survives through the fallback strategy.
	if got := hw.TickCount(cmds); got < 1000 {
		t.Fatalf("tick count: got %d, want at least the dwell's 1000", got)
	}
	want := layout.ToSteps(motion.Distance{1, 0, 0, 0})
	if got := hw.StreamSteps(cmds); got != want {
		t.Fatalf("final steps: got %v, want %v", got, want)
	}
}

func TestNewSynthesizer(t *testing.T) {
	for _, name := range []string{"program_to_steps", "bezier_spline", "linear_interpolation"} {
		if _, err := NewSynthesizer(name); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if _, err := NewSynthesizer("nurbs"); err == nil {
		t.Fatalf("unknown synthesizer accepted")
	}
}
