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

// Package exec walks a partitioned G-code program, plans each run, hands
// the synthesized steps to the stepping engine and dispatches M codes to
// the hardware adapters. Pause, resume and abort arrive through the
// button adapter and the execution observer.

package exec

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/ajmcleod/picnc/config"
	"github.com/ajmcleod/picnc/gcode"
	"github.com/ajmcleod/picnc/hw"
	"github.com/ajmcleod/picnc/motion"
	"github.com/ajmcleod/picnc/plan"
)

// InvariantError reports a mismatch between the algebraic end state of a
// run and the state the step synthesis actually reached.
type InvariantError struct {
	Want, Got gcode.Block
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("end states differ: planned %v, synthesized %v", e.Want, e.Got)
}

// Observer watches execution; the vis package provides implementations.
type Observer interface {
	SetSteps(motion.Steps)
	SetFamily(g int)
	Active() bool
}

type nopObserver struct{}

func (nopObserver) SetSteps(motion.Steps) {}
func (nopObserver) SetFamily(int)         {}
func (nopObserver) Active() bool          { return true }

// pauseRamp is the deceleration length, in ticks, of a button-initiated
// suspension.
const pauseRamp = 1000

// breakResult values exchanged between the button callbacks and the
// suspension handler.
const (
	breakPending = -1
	breakAbort   = 0
	breakResume  = 1
)

// Executive runs programs on one machine.
type Executive struct {
	cfg      config.Config
	layout   motion.Layout
	limits   motion.Limits
	steppers hw.Steppers
	spindles hw.Spindles
	buttons  hw.Buttons
	timer    hw.Timer
	engine   *hw.Engine
	synth    plan.Synthesizer
	observer Observer

	// Raw skips path adaptation: no simplification, no limits.
	Raw bool

	state            gcode.Block
	spindleStatus    map[int]float64
	lastSpindleDelay time.Duration
	breakResult      atomic.Int32
}

// New builds an executive from a validated configuration and the hardware
// adapters.
func New(cfg config.Config, steppers hw.Steppers, spindles hw.Spindles,
	buttons hw.Buttons, timer hw.Timer, observer Observer) (*Executive, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	synth, err := plan.NewSynthesizer(cfg.StepsGenerator)
	if err != nil {
		return nil, err
	}
	if observer == nil {
		observer = nopObserver{}
	}
	e := &Executive{
		cfg:           cfg,
		layout:        layout,
		limits:        cfg.Limits(),
		steppers:      steppers,
		spindles:      spindles,
		buttons:       buttons,
		timer:         timer,
		engine:        hw.NewEngine(int64(cfg.TickDurationUS), steppers, timer),
		synth:         synth,
		observer:      observer,
		spindleStatus: map[int]float64{},
	}
	e.lastSpindleDelay = 3 * time.Second
	e.breakResult.Store(breakPending)
	return e, nil
}

// Engine exposes the stepping engine, mainly to let a UI terminate it.
func (e *Executive) Engine() *hw.Engine {
	return e.engine
}

// State returns the machine state ledger.
func (e *Executive) State() gcode.Block {
	return e.state.Copy()
}

// Prepare turns a parsed program into executable partitions: feedrates
// made explicit, G92 folded away, the path simplified, rapids expanded and
// machine limits applied.
func (e *Executive) Prepare(prog gcode.Program) (gcode.Partitioned, error) {
	prog = gcode.EnrichFeedrates(prog, e.limits)
	prog = gcode.ResolveG92(prog)
	if e.Raw {
		return gcode.Group(prog, gcode.Block{'F': 0.5})
	}
	prog = plan.SimplifyProgram(prog, e.cfg.DouglasPeuckerMarigin, nil)
	parts, err := gcode.Group(prog, gcode.Block{'F': 0.5})
	if err != nil {
		return nil, err
	}
	state := gcode.Block{'F': minElement(e.limits.MaxNoAccelVelocity)}
	var prepared gcode.Program
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		if _, isM := part[0]['M']; isM {
			prepared = append(prepared, part...)
			continue
		}
		switch int(part[0]['G']) {
		case 0:
			// The expander builds its own interior vertices.
			expanded, err := plan.ExpandG0(part, e.limits, state)
			if err != nil {
				return nil, err
			}
			part, err = plan.LimitMoves(expanded, e.limits, state)
			if err != nil {
				return nil, err
			}
		case 1:
			split := plan.InsertMidpoints(gcode.Partitioned{part}, state, e.limits)
			var err error
			part, err = plan.LimitMoves(split[0], e.limits, state)
			if err != nil {
				return nil, err
			}
		}
		prepared = append(prepared, part...)
		state = gcode.LastState(part, state)
	}
	prepared = plan.SimplifyProgram(prepared, e.cfg.DouglasPeuckerMarigin, nil)
	return gcode.Group(gcode.RemoveDuplicates(prepared, nil), gcode.Block{'F': 0.5})
}

func minElement(d motion.Distance) float64 {
	m := d[0]
	for _, v := range d {
		if v < m {
			m = v
		}
	}
	return m
}

// Run prepares and executes a whole program.
func (e *Executive) Run(prog gcode.Program) error {
	parts, err := e.Prepare(prog)
	if err != nil {
		return err
	}
	return e.RunPartitioned(parts)
}

// RunPartitioned executes prepared partitions.
func (e *Executive) RunPartitioned(parts gcode.Partitioned) error {
	e.state = gcode.Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0, 'F': 0.5}
	e.installButtons()
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		if !e.observer.Active() {
			e.engine.Terminate(0)
			break
		}
		var err error
		if _, isM := part[0]['M']; isM {
			err = e.runMCodes(part)
		} else {
			err = e.runMoves(part)
		}
		if err != nil {
			e.shutdown()
			return err
		}
		log.Printf("state: %v", e.state)
	}
	return nil
}

// runMoves plans and executes one G0/G1/G4 run.
func (e *Executive) runMoves(part gcode.Program) error {
	family := int(part[0]['G'])
	e.observer.SetFamily(family)
	before := e.state
	expected := gcode.LastState(part, before)

	synth := e.synth
	if family == 4 {
		// Dwells have no path to smooth or interpolate.
		synth = plan.ProgramToSteps
	}
	var final gcode.Block
	cmds, err := synth(part, e.cfg.TickSeconds(), e.layout, before, func(b gcode.Block) {
		final = b
	})
	if err != nil {
		return err
	}
	if !statesMatch(expected, final) {
		return &InvariantError{Want: expected, Got: final}
	}
	startSteps := e.layout.ToSteps(before.Distance())
	err = e.engine.Execute(cmds, e.breakHandler(startSteps))
	var te *hw.TerminatedError
	if errors.As(err, &te) {
		e.state = gcode.Merge(before, gcode.FromDistance(
			e.layout.ToCartesian(startSteps.Add(te.Delta))))
		return err
	}
	if err != nil {
		return err
	}
	e.state = final
	return nil
}

// statesMatch compares position and feedrate of two states.
func statesMatch(a, b gcode.Block) bool {
	return a.DistanceV() == b.DistanceV()
}

// breakHandler builds the engine suspension callback for a run starting
// at the given absolute step position. It stops the spindles while
// suspended, waits for a resume or abort decision from the buttons, and
// re-arms the spindles before resuming.
func (e *Executive) breakHandler(startSteps motion.Steps) hw.BreakFunc {
	return func(delta motion.Steps, tick int) bool {
		if !e.observer.Active() {
			return false
		}
		abs := startSteps.Add(delta)
		log.Printf("paused at tick %d, position %v", tick, e.layout.ToCartesian(abs))
		for i := range e.spindleStatus {
			e.spindles.SetPower(i, 0)
		}
		for e.breakResult.Load() == breakPending {
			if !e.observer.Active() {
				e.breakResult.Store(breakAbort)
				break
			}
			e.timer.WaitUntil(e.timer.Start(), 10000)
		}
		r := e.breakResult.Load()
		e.breakResult.Store(breakPending)
		if r != breakResume {
			return false
		}
		for i, p := range e.spindleStatus {
			if p > 0 {
				e.spindles.SetPower(i, p)
				log.Printf("waiting %v for spindle %d", e.lastSpindleDelay, i)
				time.Sleep(e.lastSpindleDelay)
			}
		}
		return true
	}
}

// installButtons wires the pause and terminate buttons of the machine.
func (e *Executive) installButtons() {
	var onPause func(int, int)
	onResume := func(k, s int) {
		if s == 1 {
			log.Printf("resume requested")
			e.breakResult.Store(breakResume)
			e.buttons.OnKey(k, onPause)
		}
	}
	onPause = func(k, s int) {
		if s == 1 && e.breakResult.Load() == breakPending {
			log.Printf("pause requested")
			e.buttons.OnKey(k, onResume)
			e.engine.Terminate(pauseRamp)
		}
	}
	onStop := func(k, s int) {
		if s == 1 {
			log.Printf("stop requested")
			e.breakResult.Store(breakAbort)
			e.engine.Terminate(pauseRamp)
		}
	}
	for i := range e.buttons.KeysState() {
		switch i {
		case hw.ButtonPause:
			e.buttons.OnKey(i, onPause)
		case hw.ButtonTerminate:
			e.buttons.OnKey(i, onStop)
		default:
			e.buttons.OnKey(i, func(k, s int) {
				log.Printf("button %d is %d", k, s)
			})
		}
	}
}

// warmup sleeps for the window requested by an M code: P carries
// milliseconds, X seconds.
func warmup(m gcode.Block, def time.Duration) time.Duration {
	t := def
	if p, ok := m['P']; ok {
		t = time.Duration(p) * time.Millisecond
	} else if x, ok := m['X']; ok {
		t = time.Duration(x * float64(time.Second))
	}
	if t > 0 {
		time.Sleep(t)
	}
	return t
}

// runMCodes dispatches one M partition to the adapters.
func (e *Executive) runMCodes(part gcode.Program) error {
	for _, m := range part {
		delete(e.state, 'M')
		switch int(m['M']) {
		case 17:
			e.enableSteppers(true)
			warmup(m, 200*time.Millisecond)
		case 18:
			e.enableSteppers(false)
			warmup(m, 200*time.Millisecond)
		case 3:
			e.spindleStatus[0] = 1
			if err := e.spindles.SetPower(0, 1); err != nil {
				return err
			}
			e.lastSpindleDelay = warmup(m, 3*time.Second)
		case 5:
			e.spindleStatus[0] = 0
			if err := e.spindles.SetPower(0, 0); err != nil {
				return err
			}
			warmup(m, 3*time.Second)
		default:
			return &gcode.ProgramError{Reason: fmt.Sprintf("M%d is not supported", int(m['M']))}
		}
		e.state = gcode.Merge(e.state, m)
	}
	return nil
}

func (e *Executive) enableSteppers(on bool) {
	en := make([]bool, len(e.cfg.Steppers))
	for i := range en {
		en[i] = on
	}
	e.steppers.Enable(en)
}

// shutdown brings the hardware to a safe state after a failure.
func (e *Executive) shutdown() {
	for i := range e.spindleStatus {
		e.spindles.SetPower(i, 0)
	}
	e.spindles.SetPower(0, 0)
	e.enableSteppers(false)
	e.engine.ResetAfterTerminate()
}
