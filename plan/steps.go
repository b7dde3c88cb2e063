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
	"github.com/ajmcleod/picnc/hw"
	"github.com/ajmcleod/picnc/motion"
)

// Synthesizer produces a step command stream for a run of blocks with
// explicit feedrates. The state callback observes the machine state after
// every consumed block.
type Synthesizer func(run gcode.Program, tickSeconds float64, layout motion.Layout,
	initial gcode.Block, onState func(gcode.Block)) ([]hw.MultiStep, error)

// NewSynthesizer returns the strategy selected by name: the plain
// per-segment generator, the Bezier-smoothed one, or linear interpolation
// by arc length.
func NewSynthesizer(name string) (Synthesizer, error) {
	switch name {
	case "program_to_steps":
		return ProgramToSteps, nil
	case "bezier_spline":
		return BezierSteps, nil
	case "linear_interpolation":
		return LinearSteps, nil
	}
	return nil, &gcode.ProgramError{Reason: name + ": unknown steps generator"}
}

// chaseSteps appends the single-step commands that move the integer step
// position from s0 to s1, stepping every axis that still differs by one
// step per tick. Consecutive identical commands are merged. A tick whose
// delta is zero still emits an all-zero command: the stream is the time
// base, so quiet ticks must take their tick too.
func chaseSteps(ret []hw.MultiStep, s0, s1 motion.Steps) []hw.MultiStep {
	steps := s0
	pushed := 0
	for {
		var cmd hw.MultiStep
		cmd.Count = 1
		mod := false
		for i := range steps {
			switch {
			case s1[i] > steps[i]:
				steps[i]++
				cmd.B[i] = hw.SingleStep{Step: 1, Dir: 1}
				mod = true
			case s1[i] < steps[i]:
				steps[i]--
				cmd.B[i] = hw.SingleStep{Step: 1, Dir: 0}
				mod = true
			}
		}
		if !mod {
			if pushed == 0 {
				ret = smartAppend(ret, cmd)
			}
			return ret
		}
		pushed++
		ret = smartAppend(ret, cmd)
	}
}

// smartAppend appends a command, merging it into the previous one when the
// actions are identical and the count cap allows it.
func smartAppend(ret []hw.MultiStep, cmd hw.MultiStep) []hw.MultiStep {
	if cmd.Count <= 0 {
		return ret
	}
	if n := len(ret); n > 0 && hw.SameAction(ret[n-1], cmd) && ret[n-1].Count+cmd.Count <= hw.MaxCount {
		ret[n-1].Count += cmd.Count
		return ret
	}
	return append(ret, cmd)
}

// Collapse merges runs of identical commands and drops empty ones.
func Collapse(cmds []hw.MultiStep) []hw.MultiStep {
	var ret []hw.MultiStep
	for _, c := range cmds {
		ret = smartAppend(ret, c)
	}
	return ret
}

// dwellTicks converts a G4 block to its tick count: X carries seconds,
// P milliseconds.
func dwellTicks(b gcode.Block, tickSeconds float64) int {
	t := 0.0
	if x, ok := b['X']; ok {
		t = x
	} else if p, ok := b['P']; ok {
		t = p / 1000
	}
	return int(math.Ceil(t / tickSeconds))
}

// segmentSteps generates the steps of one move from state to next. Equal
// endpoint velocities walk the segment at constant speed; differing ones
// solve for the constant acceleration connecting them. The residual after
// the walk is emitted so the stream lands exactly on the endpoint.
func segmentSteps(ret []hw.MultiStep, state, next gcode.Block, tickSeconds float64, layout motion.Layout) ([]hw.MultiStep, error) {
	from := state.Distance()
	to := next.Distance()
	l := to.Sub(from).Length()
	if l == 0 {
		return ret, nil
	}
	v0 := state['F']
	v1 := next['F']
	dir := to.Sub(from).Norm()
	cur := layout.ToSteps(from)
	final := cur
	if v0 == v1 {
		if v1 == 0 {
			return nil, &gcode.ProgramError{Reason: "feedrate cannot be 0 on a nonzero move"}
		}
		for i := 1; ; i++ {
			s := v1 * tickSeconds * float64(i)
			if s > l {
				break
			}
			pos := layout.ToSteps(from.Add(dir.Scale(s)))
			ret = chaseSteps(ret, final, pos)
			final = pos
		}
	} else {
		accel, err := motion.AccelerationBetween(
			motion.PathNode{P: from, V: v0},
			motion.PathNode{P: to, V: v1})
		if err != nil {
			return nil, &gcode.ProgramError{Reason: err.Error()}
		}
		for i := 1; ; i++ {
			t := tickSeconds * float64(i)
			s := v0*t + accel*t*t/2
			if s >= l {
				break
			}
			pos := layout.ToSteps(from.Add(dir.Scale(s)))
			ret = chaseSteps(ret, final, pos)
			final = pos
		}
	}
	// Snap onto the endpoint; the residual never exceeds one step per axis.
	end := layout.ToSteps(to)
	if final != end {
		ret = chaseSteps(ret, final, end)
	}
	return ret, nil
}

// ProgramToSteps is the plain synthesis strategy: every G0/G1 block
// becomes a constant-speed or uniform-acceleration segment, G4 becomes a
// dwell, G92 moves the logical position without steps.
func ProgramToSteps(run gcode.Program, tickSeconds float64, layout motion.Layout,
	initial gcode.Block, onState func(gcode.Block)) ([]hw.MultiStep, error) {
	state := initial
	var result []hw.MultiStep
	for _, block := range run {
		if onState != nil {
			onState(state)
		}
		next := gcode.Merge(state, block)
		switch int(next['G']) {
		case 92:
			// Position changes, no steps are generated.
		case 4:
			result = append(result, hw.MultiStep{Count: dwellTicks(block, tickSeconds)})
			next = state
		case 0, 1:
			var err error
			result, err = segmentSteps(result, state, next, tickSeconds, layout)
			if err != nil {
				return nil, err
			}
		}
		state = next
	}
	if onState != nil {
		onState(state)
	}
	return Collapse(result), nil
}

// runPath extracts the velocity-augmented waypoints of a pure-move run.
// The bool result reports whether the run contained only G0/G1 blocks.
func runPath(run gcode.Program, initial gcode.Block, onState func(gcode.Block)) ([]motion.DistanceV, gcode.Block, bool) {
	state := initial
	states := []gcode.Block{state}
	path := []motion.DistanceV{state.DistanceV()}
	for _, block := range run {
		next := gcode.Merge(state, block)
		switch int(next['G']) {
		case 0, 1:
			path = append(path, next.DistanceV())
		default:
			return nil, initial, false
		}
		state = next
		states = append(states, state)
	}
	if onState != nil {
		for _, s := range states {
			onState(s)
		}
	}
	return path, state, true
}

// minKnotDistance is the spacing below which neighbouring waypoints are
// merged; degenerate knots break the spline tangent construction.
const minKnotDistance = 0.01

// mergeClosePoints replaces runs of near-coincident waypoints with their
// last member.
func mergeClosePoints(path []motion.DistanceV) []motion.DistanceV {
	var ret []motion.DistanceV
	for i, e := range path {
		if i == 0 {
			ret = append(ret, e)
			continue
		}
		if e.Sub(ret[len(ret)-1]).Length() >= minKnotDistance {
			ret = append(ret, e)
		} else {
			ret[len(ret)-1] = e
		}
	}
	return ret
}

// splineArcLength controls the corner rounding of the Bezier strategy and
// the waypoint merging of the interpolating strategies.
const splineArcLength = 0.5

// BezierSteps smooths the run with Bezier splines before stepping it. A
// run containing G4 or G92 cannot be smoothed and falls back to the plain
// strategy.
func BezierSteps(run gcode.Program, tickSeconds float64, layout motion.Layout,
	initial gcode.Block, onState func(gcode.Block)) ([]hw.MultiStep, error) {
	path, _, ok := runPath(run, initial, onState)
	if !ok {
		return ProgramToSteps(run, tickSeconds, layout, initial, onState)
	}
	path = motion.Simplify(path, math.Max(splineArcLength*0.5, 0.01))
	path = mergeClosePoints(path)
	for i := range path {
		path[i][motion.Axes] = math.Max(path[i].V(), 0.01)
	}
	var result []hw.MultiStep
	cur := layout.ToSteps(path[0].Spatial())
	motion.BezierPath(path, func(p motion.DistanceV) {
		pos := layout.ToSteps(p.Spatial())
		result = chaseSteps(result, cur, pos)
		cur = pos
	}, tickSeconds, splineArcLength)
	if end := layout.ToSteps(path[len(path)-1].Spatial()); cur != end {
		result = chaseSteps(result, cur, end)
	}
	return Collapse(result), nil
}

// LinearSteps walks the waypoint polyline at the arc length implied by the
// local velocity. A run containing G4 or G92 falls back to the plain
// strategy.
func LinearSteps(run gcode.Program, tickSeconds float64, layout motion.Layout,
	initial gcode.Block, onState func(gcode.Block)) ([]hw.MultiStep, error) {
	path, _, ok := runPath(run, initial, onState)
	if !ok {
		return ProgramToSteps(run, tickSeconds, layout, initial, onState)
	}
	path = mergeClosePoints(path)
	for i := range path {
		path[i][motion.Axes] = math.Max(path[i].V(), 0.01)
	}
	var result []hw.MultiStep
	cur := layout.ToSteps(path[0].Spatial())
	motion.FollowPath(path, func(p motion.DistanceV) {
		pos := layout.ToSteps(p.Spatial())
		result = chaseSteps(result, cur, pos)
		cur = pos
	}, tickSeconds)
	// The walker can stop short of the endpoint by less than one tick of
	// travel; snap the residual.
	end := layout.ToSteps(path[len(path)-1].Spatial())
	if cur != end {
		result = chaseSteps(result, cur, end)
	}
	return Collapse(result), nil
}
