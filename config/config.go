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

// Package config loads and validates the machine configuration. Defaults
// are compiled in, overlaid by defaults.json and config.json, and finally
// patched by JSON-pointer assignments from the command line.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ajmcleod/picnc/motion"
)

// InvalidError reports an unusable configuration.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return e.Reason
}

func invalidf(format string, args ...interface{}) error {
	return &InvalidError{Reason: fmt.Sprintf(format, args...)}
}

// Stepper is the pin assignment and step scaling of one motor.
type Stepper struct {
	Step       int     `json:"step"`
	Dir        int     `json:"dir"`
	En         int     `json:"en"`
	StepsPerMM float64 `json:"steps_per_mm"`
}

// Spindle is one software-PWM spindle output.
type Spindle struct {
	Pin              int     `json:"pin"`
	CycleTimeSeconds float64 `json:"cycle_time_seconds"`
	DutyMin          float64 `json:"duty_min"`
	DutyMax          float64 `json:"duty_max"`
}

// Button is one control input.
type Button struct {
	Pin    int  `json:"pin"`
	Pullup bool `json:"pullup"`
}

// Config is the whole machine configuration.
type Config struct {
	TickDurationUS        int             `json:"tick_duration_us"`
	SimulateExecution     bool            `json:"simulate_execution"`
	DouglasPeuckerMarigin float64         `json:"douglas_peucker_marigin"`
	LowLevelTimer         string          `json:"lowleveltimer"`
	MotionLayout          string          `json:"motion_layout"`
	StepsGenerator        string          `json:"steps_generator"`
	Scale                 motion.Distance `json:"scale"`
	MaxAccelerations      motion.Distance `json:"max_accelerations_mm_s2"`
	MaxVelocity           motion.Distance `json:"max_velocity_mm_s"`
	MaxNoAccelVelocity    motion.Distance `json:"max_no_accel_velocity_mm_s"`
	Steppers              []Stepper       `json:"steppers"`
	Spindles              []Spindle       `json:"spindles"`
	Buttons               []Button        `json:"buttons"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		TickDurationUS:        50,
		SimulateExecution:     false,
		DouglasPeuckerMarigin: 1.0 / 64,
		LowLevelTimer:         "low_timers_busy_wait",
		MotionLayout:          "corexy",
		StepsGenerator:        "program_to_steps",
		Scale:                 motion.Distance{1, 1, 1, 1},
		MaxAccelerations:      motion.Distance{200, 200, 200, 200},
		MaxVelocity:           motion.Distance{220, 220, 110, 110},
		MaxNoAccelVelocity:    motion.Distance{2, 2, 2, 2},
		Steppers: []Stepper{
			{Step: 27, Dir: 10, En: 22, StepsPerMM: 100},
			{Step: 4, Dir: 10, En: 17, StepsPerMM: 100},
			{Step: 9, Dir: 10, En: 11, StepsPerMM: 100},
		},
		Buttons: []Button{
			{Pin: 21, Pullup: true},
			{Pin: 20, Pullup: true},
			{Pin: 16, Pullup: true},
			{Pin: 12, Pullup: true},
		},
		Spindles: []Spindle{
			{Pin: 18, CycleTimeSeconds: 0.1, DutyMin: 0, DutyMax: 0.1},
		},
	}
}

// LoadFile overlays a JSON configuration file onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return invalidf("%s: %v", path, err)
	}
	return nil
}

// Patch applies one command line override of the form
// /json/pointer/path=value. The value is taken as a number when it parses
// as one, as a boolean for true/false, and as a string otherwise.
func (c *Config) Patch(arg string) error {
	eq := strings.IndexByte(arg, '=')
	if eq < 0 {
		return invalidf("%s: override must look like /path=value", arg)
	}
	pointer, raw := arg[:eq], arg[eq+1:]
	if !strings.HasPrefix(pointer, "/") {
		return invalidf("%s: a JSON pointer starts with /", pointer)
	}
	var value interface{} = raw
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		value = f
	} else if b, err := strconv.ParseBool(raw); err == nil {
		value = b
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var tree interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	if err := setPointer(&tree, strings.Split(pointer, "/")[1:], value); err != nil {
		return invalidf("%s: %v", pointer, err)
	}
	data, err = json.Marshal(tree)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return invalidf("%s: %v", arg, err)
	}
	return nil
}

// setPointer walks the decoded JSON tree along the pointer tokens and
// replaces the addressed value.
func setPointer(node *interface{}, tokens []string, value interface{}) error {
	if len(tokens) == 0 {
		*node = value
		return nil
	}
	token := strings.ReplaceAll(strings.ReplaceAll(tokens[0], "~1", "/"), "~0", "~")
	switch t := (*node).(type) {
	case map[string]interface{}:
		child, ok := t[token]
		if !ok && len(tokens) > 1 {
			return fmt.Errorf("%s: no such key", token)
		}
		if err := setPointer(&child, tokens[1:], value); err != nil {
			return err
		}
		t[token] = child
		return nil
	case []interface{}:
		i, err := strconv.Atoi(token)
		if err != nil || i < 0 || i >= len(t) {
			return fmt.Errorf("%s: bad array index", token)
		}
		return setPointer(&t[i], tokens[1:], value)
	}
	return fmt.Errorf("%s: cannot descend into scalar", token)
}

// Limits returns the machine limits.
func (c Config) Limits() motion.Limits {
	return motion.Limits{
		MaxAccel:           c.MaxAccelerations,
		MaxVelocity:        c.MaxVelocity,
		MaxNoAccelVelocity: c.MaxNoAccelVelocity,
	}
}

// StepsPerMM collects the per-axis step scaling. Axes without a stepper
// get a neutral 1 so the kinematic map stays invertible; the missing
// motors simply have no driver behind them.
func (c Config) StepsPerMM() motion.Distance {
	var d motion.Distance
	for i := range d {
		if i < len(c.Steppers) {
			d[i] = c.Steppers[i].StepsPerMM
		} else {
			d[i] = 1
		}
	}
	return d
}

// Layout builds the kinematic layout from the configuration.
func (c Config) Layout() (motion.Layout, error) {
	l, err := motion.NewLayout(c.MotionLayout, c.StepsPerMM(), c.Scale)
	if err != nil {
		return nil, &InvalidError{Reason: err.Error()}
	}
	return l, nil
}

// TickSeconds returns the tick duration in seconds.
func (c Config) TickSeconds() float64 {
	return float64(c.TickDurationUS) / 1e6
}

// Validate checks the configuration for values no machine can run with.
func (c Config) Validate() error {
	if c.TickDurationUS <= 0 {
		return invalidf("tick_duration_us must be positive")
	}
	switch c.LowLevelTimer {
	case "low_timers_busy_wait", "low_timers_wait_for", "low_timers_fake":
	default:
		return invalidf("lowleveltimer can only be low_timers_busy_wait, low_timers_wait_for or low_timers_fake")
	}
	switch c.MotionLayout {
	case "corexy", "cartesian":
	default:
		return invalidf("motion_layout can only be corexy or cartesian")
	}
	switch c.StepsGenerator {
	case "program_to_steps", "bezier_spline", "linear_interpolation":
	default:
		return invalidf("steps_generator can only be program_to_steps, bezier_spline or linear_interpolation")
	}
	for i, s := range c.Steppers {
		if s.StepsPerMM == 0 {
			return invalidf("stepper %d: steps_per_mm cannot be zero", i)
		}
	}
	for i, s := range c.Scale {
		if s == 0 {
			return invalidf("scale[%d] cannot be zero", i)
		}
	}
	for i, s := range c.Spindles {
		if s.CycleTimeSeconds <= 0 {
			return invalidf("spindle %d: cycle_time_seconds must be positive", i)
		}
		if s.DutyMin < 0 || s.DutyMax < s.DutyMin || s.DutyMax > s.CycleTimeSeconds {
			return invalidf("spindle %d: duty range %v..%v out of range", i, s.DutyMin, s.DutyMax)
		}
	}
	return nil
}

// String renders the effective configuration as indented JSON.
func (c Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
