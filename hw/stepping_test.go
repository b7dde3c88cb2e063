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
	"errors"
	"testing"
	"time"

	"github.com/ajmcleod/picnc/motion"
)

// hookTimer is a fake timer that can run an action at a selected tick,
// which makes termination requests deterministic under test.
type hookTimer struct {
	FakeTimer
	atTick int
	action func()
}

func (t *hookTimer) WaitUntil(prev time.Time, us int64) time.Time {
	if t.action != nil && len(t.Delays) == t.atTick {
		t.action()
		t.action = nil
	}
	return t.FakeTimer.WaitUntil(prev, us)
}

func TestExecuteEmitsWholeStream(t *testing.T) {
	drv := NewInMem()
	tm := &FakeTimer{}
	e := NewEngine(50, drv, tm)
	cmds := []MultiStep{fwd(0, 30), back(1, 10)}
	if err := e.Execute(cmds, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if e.TickIndex() != 40 {
		t.Fatalf("tick index: got %d, want 40", e.TickIndex())
	}
	if e.StepsCounter() != 40 {
		t.Fatalf("steps counter: got %d, want 40", e.StepsCounter())
	}
	if got := drv.Steps(); got != (motion.Steps{30, -10, 0, 0}) {
		t.Fatalf("final position: got %v", got)
	}
	for i, d := range tm.Delays {
		if d != 50 {
			t.Fatalf("tick %d delay: got %d, want 50", i, d)
		}
	}
}

func TestTerminateAbortCarriesDelta(t *testing.T) {
	drv := NewInMem()
	tm := &hookTimer{atTick: 1}
	e := NewEngine(50, drv, tm)
	tm.action = func() { e.Terminate(5) }
	err := e.Execute([]MultiStep{fwd(0, 40)}, func(delta motion.Steps, tick int) bool {
		return false
	})
	var te *TerminatedError
	if !errors.As(err, &te) {
		t.Fatalf("error: got %v, want *TerminatedError", err)
	}
	// terminate at tick 1 with n=5 suspends after 1+5+1 ticks.
	if te.Delta != (motion.Steps{7, 0, 0, 0}) {
		t.Fatalf("delta: got %v, want (7,0,0,0)", te.Delta)
	}
	e.ResetAfterTerminate()
	if err := e.Execute([]MultiStep{fwd(0, 1)}, nil); err != nil {
		t.Fatalf("Execute after reset: %v", err)
	}
}

func TestTerminateResumeDelaySequence(t *testing.T) {
	drv := NewInMem()
	tm := &hookTimer{atTick: 1}
	e := NewEngine(1000, drv, tm)
	tm.action = func() { e.Terminate(5) }
	breaks := 0
	err := e.Execute([]MultiStep{fwd(0, 40)}, func(delta motion.Steps, tick int) bool {
		breaks++
		if tick != 7 {
			t.Fatalf("suspension tick: got %d, want 7", tick)
		}
		if delta != (motion.Steps{7, 0, 0, 0}) {
			t.Fatalf("suspension delta: got %v", delta)
		}
		return true
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if breaks != 1 {
		t.Fatalf("breaks: got %d, want 1", breaks)
	}
	// Resume continues at the suspended tick; total count is unchanged.
	if e.TickIndex() != 40 {
		t.Fatalf("tick index: got %d, want 40", e.TickIndex())
	}
	// At a 1000 us tick the per-tick delays follow the
	// 1000,1000,1001..1005,1005,1004..1001,1000... ramp.
	want := []int64{1000, 1000, 1001, 1002, 1003, 1004, 1005, 1005, 1004, 1003, 1002, 1001, 1000, 1000}
	if len(tm.Delays) != 40 {
		t.Fatalf("delays recorded: got %d, want 40", len(tm.Delays))
	}
	for i, w := range want {
		if tm.Delays[i] != w {
			t.Fatalf("tick %d delay: got %d, want %d", i, tm.Delays[i], w)
		}
	}
	for i := len(want); i < 40; i++ {
		if tm.Delays[i] != 1000 {
			t.Fatalf("tick %d delay: got %d, want 1000", i, tm.Delays[i])
		}
	}
}

func TestTerminateZeroSuspendsImmediately(t *testing.T) {
	drv := NewInMem()
	tm := &hookTimer{atTick: 9}
	e := NewEngine(50, drv, tm)
	tm.action = func() { e.Terminate(0) }
	suspendedAt := -1
	err := e.Execute([]MultiStep{fwd(0, 20)}, func(delta motion.Steps, tick int) bool {
		suspendedAt = tick
		return true
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if suspendedAt != 10 {
		t.Fatalf("suspension tick: got %d, want 10", suspendedAt)
	}
	if e.TickIndex() != 20 {
		t.Fatalf("tick index: got %d, want 20", e.TickIndex())
	}
}
