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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.TickDurationUS != 50 || c.MotionLayout != "corexy" {
		t.Fatalf("unexpected defaults: %v", c)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"tick_duration_us": 100, "motion_layout": "cartesian"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := Default()
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.TickDurationUS != 100 || c.MotionLayout != "cartesian" {
		t.Fatalf("overlay not applied: %v", c)
	}
	// Untouched keys keep their defaults.
	if c.DouglasPeuckerMarigin != 1.0/64 {
		t.Fatalf("default lost: %v", c.DouglasPeuckerMarigin)
	}
}

func TestPatch(t *testing.T) {
	c := Default()
	tests := []struct {
		arg   string
		check func() bool
	}{
		{"/tick_duration_us=75", func() bool { return c.TickDurationUS == 75 }},
		{"/motion_layout=cartesian", func() bool { return c.MotionLayout == "cartesian" }},
		{"/simulate_execution=true", func() bool { return c.SimulateExecution }},
		{"/steppers/1/steps_per_mm=82.05", func() bool { return c.Steppers[1].StepsPerMM == 82.05 }},
		{"/scale/0=-1", func() bool { return c.Scale[0] == -1 }},
	}
	for _, tc := range tests {
		if err := c.Patch(tc.arg); err != nil {
			t.Fatalf("%s: %v", tc.arg, err)
		}
		if !tc.check() {
			t.Fatalf("%s: not applied", tc.arg)
		}
	}
}

func TestPatchErrors(t *testing.T) {
	c := Default()
	for _, arg := range []string{
		"/tick_duration_us",      // no value
		"tick_duration_us=50",    // not a pointer
		"/steppers/9/step=1",     // index out of range
		"/no/such/key=1",         // unknown path
	} {
		if err := c.Patch(arg); err == nil {
			t.Fatalf("%s: accepted", arg)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mangle func(*Config)
	}{
		{"zero steps_per_mm", func(c *Config) { c.Steppers[0].StepsPerMM = 0 }},
		{"zero scale", func(c *Config) { c.Scale[2] = 0 }},
		{"bad layout", func(c *Config) { c.MotionLayout = "polar" }},
		{"bad timer", func(c *Config) { c.LowLevelTimer = "low_timers_quantum" }},
		{"bad generator", func(c *Config) { c.StepsGenerator = "nurbs" }},
		{"duty beyond cycle", func(c *Config) { c.Spindles[0].DutyMax = 1 }},
		{"negative tick", func(c *Config) { c.TickDurationUS = -50 }},
	}
	for _, tc := range tests {
		c := Default()
		tc.mangle(&c)
		err := c.Validate()
		if err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
		var ie *InvalidError
		if !errors.As(err, &ie) {
			t.Fatalf("%s: error is %T, want *InvalidError", tc.name, err)
		}
	}
}

func TestLayoutFromConfig(t *testing.T) {
	c := Default()
	l, err := c.Layout()
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	// Three configured steppers and a neutral fourth axis.
	s := l.ToSteps(c.StepsPerMM())
	if s[0] == 0 {
		t.Fatalf("layout not wired to steppers: %v", s)
	}
}
