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
	"log"
	"sync"
	"sync/atomic"

	"github.com/ajmcleod/picnc/motion"
)

// nominalDelay is the counter value at which ticks run at the configured
// tick duration. Termination ramps the counter up to nominalDelay+n,
// stretching each tick to tickDuration*counter/1000, which decelerates the
// machine smoothly before it stops.
const nominalDelay = 1000

// BreakFunc decides what happens at a suspension point. It receives the
// steps performed since the stream started and the tick index reached.
// Returning true resumes execution, false aborts it.
type BreakFunc func(delta motion.Steps, tick int) bool

// Engine executes step command streams at a fixed tick. One Engine owns
// the stepper driver for the duration of an Execute call; Terminate and
// the counter getters are safe to call from other goroutines.
type Engine struct {
	delayUS  int64
	steppers Steppers
	timer    Timer

	tickIndex atomic.Int64
	steps     atomic.Int64
	pending   atomic.Int32 // requested termination, stored as n+1

	rtOnce sync.Once
}

// NewEngine creates a stepping engine emitting ticks of delayUS
// microseconds through the given driver and timer.
func NewEngine(delayUS int64, steppers Steppers, timer Timer) *Engine {
	return &Engine{delayUS: delayUS, steppers: steppers, timer: timer}
}

// TickIndex returns the number of ticks emitted by the current or last
// Execute call.
func (e *Engine) TickIndex() int {
	return int(e.tickIndex.Load())
}

// StepsCounter returns the total number of step pulses emitted across all
// motors.
func (e *Engine) StepsCounter() int {
	return int(e.steps.Load())
}

// Terminate requests a deceleration to suspension. Starting at the next
// tick the tick period grows by one thousandth of the tick duration per
// tick, and after n such ticks the engine suspends and consults the break
// callback. Safe to call from any goroutine; a request made while one is
// already pending is ignored.
func (e *Engine) Terminate(n int) {
	e.pending.CompareAndSwap(0, int32(n)+1)
}

// ResetAfterTerminate clears a pending termination request. Required
// before the next Execute after an aborted run.
func (e *Engine) ResetAfterTerminate() {
	e.pending.Store(0)
}

// Execute emits the stream one hardware pulse per tick. When a pending
// termination completes its deceleration ramp the engine suspends and
// calls onBreak with the achieved position; a true result accelerates back
// to nominal speed and continues at the suspended tick, a false result
// aborts with a TerminatedError carrying the steps done so far.
func (e *Engine) Execute(cmds []MultiStep, onBreak BreakFunc) error {
	e.rtOnce.Do(func() {
		if err := SetRealtime(); err != nil {
			log.Printf("realtime scheduling unavailable, continuing: %v", err)
		}
	})
	e.tickIndex.Store(0)
	prev := e.timer.Start()
	counterDelay := nominalDelay
	rampDown := false
	if onBreak == nil {
		onBreak = func(motion.Steps, int) bool { return true }
	}
	for _, c := range cmds {
		for i := 0; i < c.Count; i++ {
			e.steppers.DoStep(c.B)
			e.steps.Add(int64(c.stepBits()))
			e.tickIndex.Add(1)
			prev = e.timer.WaitUntil(prev, e.delayUS*int64(counterDelay)/nominalDelay)
			p := int(e.pending.Load())
			if p == 0 {
				continue
			}
			switch {
			case rampDown:
				counterDelay--
				if counterDelay == nominalDelay {
					rampDown = false
					e.pending.Store(0)
				}
			case counterDelay < nominalDelay+p-1:
				counterDelay++
			default:
				// Deceleration ramp complete: suspend.
				tick := int(e.tickIndex.Load())
				delta := PositionAfter(cmds, tick)
				if !onBreak(delta, tick) {
					return &TerminatedError{Delta: delta}
				}
				if counterDelay == nominalDelay {
					e.pending.Store(0)
				} else {
					rampDown = true
				}
				prev = e.timer.Start()
			}
		}
	}
	return nil
}
