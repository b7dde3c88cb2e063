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
	"fmt"
	"time"
)

// Timer is the tick source of the stepping engine. WaitUntil blocks until
// us microseconds after prev and returns the new deadline, so that ticks
// stay aligned to the original start regardless of per-tick jitter.
type Timer interface {
	Start() time.Time
	WaitUntil(prev time.Time, us int64) time.Time
}

// BusyTimer spins until the deadline. It burns a core but gives the
// tightest timing, which matters at 50 microsecond ticks.
type BusyTimer struct{}

func (BusyTimer) Start() time.Time {
	return time.Now()
}

func (BusyTimer) WaitUntil(prev time.Time, us int64) time.Time {
	deadline := prev.Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
	return deadline
}

// SleepTimer sleeps until the deadline. Cheaper than BusyTimer but subject
// to scheduler wakeup latency.
type SleepTimer struct{}

func (SleepTimer) Start() time.Time {
	return time.Now()
}

func (SleepTimer) WaitUntil(prev time.Time, us int64) time.Time {
	deadline := prev.Add(time.Duration(us) * time.Microsecond)
	if d := time.Until(deadline); d > 0 {
		time.Sleep(d)
	}
	return deadline
}

// FakeTimer never blocks. It advances a virtual clock and records every
// requested delay, which makes executions deterministic under test and in
// simulation.
type FakeTimer struct {
	Delays []int64
}

func (t *FakeTimer) Start() time.Time {
	return time.Time{}
}

func (t *FakeTimer) WaitUntil(prev time.Time, us int64) time.Time {
	t.Delays = append(t.Delays, us)
	return prev.Add(time.Duration(us) * time.Microsecond)
}

// NewTimer creates the timer selected by the lowleveltimer configuration
// value.
func NewTimer(name string) (Timer, error) {
	switch name {
	case "low_timers_busy_wait":
		return BusyTimer{}, nil
	case "low_timers_wait_for":
		return SleepTimer{}, nil
	case "low_timers_fake":
		return &FakeTimer{}, nil
	}
	return nil, fmt.Errorf("%s: unknown timer", name)
}
