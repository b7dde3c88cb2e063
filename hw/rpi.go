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

//go:build linux

package hw

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ajmcleod/picnc/motion"
)

// StepperPins names the GPIO pins of one stepper driver.
type StepperPins struct {
	Step int
	Dir  int
	En   int
}

// SpindlePWM describes one software-PWM driven spindle output.
type SpindlePWM struct {
	Pin       int
	CycleTime float64 // seconds
	DutyMin   float64 // seconds of on-time at power 0
	DutyMax   float64 // seconds of on-time at power 1
}

// ButtonPin describes one control input.
type ButtonPin struct {
	Pin    int
	Pullup bool
}

const (
	buttonPollInterval = 2 * time.Millisecond
	buttonDebounce     = 25 // polls to ignore after a state change
)

// Sysfs drives steppers, spindles and buttons through the sysfs GPIO
// interface of a Raspberry Pi. It owns its pins for the process lifetime:
// a pin claimed twice is a configuration error.
type Sysfs struct {
	steppers []StepperPins
	spindles []SpindlePWM
	buttons  []ButtonPin

	stepPins, dirPins, enPins []*Pin
	spindlePins               []*Pin
	buttonPins                []*Pin

	counter stepCounter
	duties  []atomic.Uint64 // float64 bits, seconds of on-time

	mu        sync.Mutex
	callbacks []func(int, int)
	state     []int

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSysfs opens all configured pins and starts the spindle PWM and
// button poll workers.
func NewSysfs(steppers []StepperPins, spindles []SpindlePWM, buttons []ButtonPin) (*Sysfs, error) {
	s := &Sysfs{
		steppers: steppers,
		spindles: spindles,
		buttons:  buttons,
		stop:     make(chan struct{}),
	}
	taken := map[int]string{}
	claim := func(pin int, what string) error {
		if prev, ok := taken[pin]; ok {
			return hwErrorf("pin %d: already taken by %s", pin, prev)
		}
		taken[pin] = what
		return nil
	}
	fail := func(err error) (*Sysfs, error) {
		s.Close()
		return nil, fmt.Errorf("sysfs driver: %v", err)
	}
	for _, st := range steppers {
		for _, c := range []struct {
			pin  int
			what string
		}{{st.Step, "step"}, {st.Dir, "dir"}, {st.En, "en"}} {
			// Enable lines may be shared between motors.
			if c.what == "en" && taken[c.pin] == "en" {
				continue
			}
			if err := claim(c.pin, c.what); err != nil {
				return fail(err)
			}
		}
		p, err := OutputPin(st.Step)
		if err != nil {
			return fail(err)
		}
		s.stepPins = append(s.stepPins, p)
		if p, err = OutputPin(st.Dir); err != nil {
			return fail(err)
		}
		s.dirPins = append(s.dirPins, p)
		if p, err = OutputPin(st.En); err != nil {
			return fail(err)
		}
		s.enPins = append(s.enPins, p)
	}
	s.Enable(make([]bool, len(steppers)))

	s.duties = make([]atomic.Uint64, len(spindles))
	for i, sp := range spindles {
		if err := claim(sp.Pin, "spindle"); err != nil {
			return fail(err)
		}
		p, err := OutputPin(sp.Pin)
		if err != nil {
			return fail(err)
		}
		s.spindlePins = append(s.spindlePins, p)
		s.wg.Add(1)
		go s.spindlePWM(i)
	}

	for _, b := range buttons {
		if err := claim(b.Pin, "button"); err != nil {
			return fail(err)
		}
		p, err := InputPin(b.Pin)
		if err != nil {
			return fail(err)
		}
		s.buttonPins = append(s.buttonPins, p)
		s.callbacks = append(s.callbacks, func(int, int) {})
		s.state = append(s.state, 0)
	}
	if len(buttons) > 0 {
		s.wg.Add(1)
		go s.pollButtons()
	}
	return s, nil
}

// Close stops the workers, disables the motors and releases all pins.
func (s *Sysfs) Close() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.wg.Wait()
	s.Enable(make([]bool, len(s.steppers)))
	for _, pins := range [][]*Pin{s.stepPins, s.dirPins, s.enPins, s.spindlePins, s.buttonPins} {
		for _, p := range pins {
			p.Close()
		}
	}
}

// DoStep settles the direction lines, pulses the step lines high and
// drops them again, then updates the step counters.
func (s *Sysfs) DoStep(b [motion.Axes]SingleStep) {
	for i := range s.dirPins {
		s.dirPins[i].Set(int(b[i].Dir))
	}
	for i := range s.stepPins {
		if b[i].Step != 0 {
			s.stepPins[i].Set(1)
		}
	}
	for i := range s.stepPins {
		if b[i].Step != 0 {
			s.stepPins[i].Set(0)
		}
	}
	s.counter.add(b)
}

// Enable drives the (active low) enable lines.
func (s *Sysfs) Enable(en []bool) {
	for i := range s.enPins {
		v := 1
		if i < len(en) && en[i] {
			v = 0
		}
		s.enPins[i].Set(v)
	}
}

func (s *Sysfs) Steps() motion.Steps {
	return s.counter.read()
}

func (s *Sysfs) SetSteps(st motion.Steps) {
	s.counter.set(st)
}

// SetPower sets the spindle duty from the normalized power.
func (s *Sysfs) SetPower(i int, v float64) error {
	if i < 0 || i >= len(s.spindles) {
		return hwErrorf("spindle %d: not configured", i)
	}
	if v < 0 || v > 1.1 {
		return hwErrorf("spindle %d: power %v out of range", i, v)
	}
	if v > 1 {
		v = 1
	}
	sp := s.spindles[i]
	duty := (sp.DutyMax-sp.DutyMin)*v + sp.DutyMin
	s.duties[i].Store(math.Float64bits(duty))
	return nil
}

// spindlePWM cycles one spindle pin with the configured period, keeping it
// high for the current duty each cycle.
func (s *Sysfs) spindlePWM(i int) {
	defer s.wg.Done()
	sp := s.spindles[i]
	pin := s.spindlePins[i]
	period := time.Duration(sp.CycleTime * float64(time.Second))
	prev := time.Now()
	for {
		select {
		case <-s.stop:
			pin.Set(0)
			return
		default:
		}
		duty := math.Float64frombits(s.duties[i].Load())
		on := time.Duration(duty * float64(time.Second))
		if on > 0 {
			pin.Set(1)
			time.Sleep(time.Until(prev.Add(on)))
		}
		if on < period {
			pin.Set(0)
		}
		prev = prev.Add(period)
		time.Sleep(time.Until(prev))
	}
}

// pollButtons watches the inputs and reports debounced state changes.
func (s *Sysfs) pollButtons() {
	defer s.wg.Done()
	bounce := make([]int, len(s.buttonPins))
	for {
		select {
		case <-s.stop:
			return
		case <-time.After(buttonPollInterval):
		}
		for i, p := range s.buttonPins {
			if bounce[i] > 0 {
				bounce[i]--
				continue
			}
			lvl, err := p.Get()
			if err != nil {
				continue
			}
			v := lvl
			if s.buttons[i].Pullup {
				v = 1 - lvl
			}
			s.mu.Lock()
			changed := s.state[i] != v
			s.state[i] = v
			f := s.callbacks[i]
			s.mu.Unlock()
			if changed {
				bounce[i] = buttonDebounce
				f(i, v)
			}
		}
	}
}

func (s *Sysfs) OnKey(btn int, f func(int, int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if btn >= 0 && btn < len(s.callbacks) {
		s.callbacks[btn] = f
	}
}

func (s *Sysfs) Handler(btn int) func(int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if btn < 0 || btn >= len(s.callbacks) {
		return func(int, int) {}
	}
	return s.callbacks[btn]
}

func (s *Sysfs) KeysState() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.state...)
}
