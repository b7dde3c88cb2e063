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

	"github.com/ajmcleod/picnc/motion"
)

// InMem is a stepper driver without hardware behind it. It keeps the step
// counters and reports every step and enable change through optional
// callbacks, which the simulator and the tests hook into.
type InMem struct {
	counter  stepCounter
	mu       sync.Mutex
	enabled  []bool
	onStep   func(motion.Steps)
	onEnable func([]bool)
}

// NewInMem creates an in-memory stepper driver.
func NewInMem() *InMem {
	return &InMem{}
}

// OnStep installs a callback invoked with the absolute position after
// every step action.
func (m *InMem) OnStep(f func(motion.Steps)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStep = f
}

// OnEnable installs a callback invoked when the enable state changes.
func (m *InMem) OnEnable(f func([]bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnable = f
}

func (m *InMem) DoStep(b [motion.Axes]SingleStep) {
	m.counter.add(b)
	m.mu.Lock()
	f := m.onStep
	m.mu.Unlock()
	if f != nil {
		f(m.counter.read())
	}
}

func (m *InMem) Enable(en []bool) {
	m.mu.Lock()
	m.enabled = append([]bool(nil), en...)
	f := m.onEnable
	m.mu.Unlock()
	if f != nil {
		f(en)
	}
}

// Enabled returns the last enable state set.
func (m *InMem) Enabled() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.enabled...)
}

func (m *InMem) Steps() motion.Steps {
	return m.counter.read()
}

func (m *InMem) SetSteps(s motion.Steps) {
	m.counter.set(s)
}

// FakeButtons is a button adapter driven by explicit triggers instead of
// hardware inputs.
type FakeButtons struct {
	mu        sync.Mutex
	callbacks []func(int, int)
	state     []int
}

// NewFakeButtons creates a fake with n buttons.
func NewFakeButtons(n int) *FakeButtons {
	b := &FakeButtons{
		callbacks: make([]func(int, int), n),
		state:     make([]int, n),
	}
	for i := range b.callbacks {
		b.callbacks[i] = func(int, int) {}
	}
	return b
}

func (b *FakeButtons) OnKey(btn int, f func(int, int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if btn >= 0 && btn < len(b.callbacks) {
		b.callbacks[btn] = f
	}
}

func (b *FakeButtons) Handler(btn int) func(int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if btn < 0 || btn >= len(b.callbacks) {
		return func(a, s int) { log.Printf("button handler not set: %d %d", a, s) }
	}
	return b.callbacks[btn]
}

func (b *FakeButtons) KeysState() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.state...)
}

// Trigger simulates a button changing to the given state.
func (b *FakeButtons) Trigger(btn, state int) {
	b.mu.Lock()
	b.state[btn] = state
	f := b.callbacks[btn]
	b.mu.Unlock()
	f(btn, state)
}

// FakeSpindles records spindle powers and forwards them to an optional
// callback.
type FakeSpindles struct {
	mu      sync.Mutex
	powers  map[int]float64
	OnPower func(int, float64)
}

// NewFakeSpindles creates a fake spindle adapter.
func NewFakeSpindles(onPower func(int, float64)) *FakeSpindles {
	return &FakeSpindles{powers: map[int]float64{}, OnPower: onPower}
}

func (s *FakeSpindles) SetPower(i int, v float64) error {
	if v < 0 || v > 1 {
		return hwErrorf("spindle %d: power %v out of range", i, v)
	}
	s.mu.Lock()
	s.powers[i] = v
	f := s.OnPower
	s.mu.Unlock()
	if f != nil {
		f(i, v)
	}
	return nil
}

// Power returns the last power set for a spindle.
func (s *FakeSpindles) Power(i int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.powers[i]
}
