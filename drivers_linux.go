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

package main

import (
	"github.com/ajmcleod/picnc/config"
	"github.com/ajmcleod/picnc/hw"
)

// openHardware opens the sysfs GPIO driver for the configured pins.
func openHardware(cfg config.Config) (hw.Steppers, hw.Spindles, hw.Buttons, func(), error) {
	var steppers []hw.StepperPins
	for _, s := range cfg.Steppers {
		steppers = append(steppers, hw.StepperPins{Step: s.Step, Dir: s.Dir, En: s.En})
	}
	var spindles []hw.SpindlePWM
	for _, s := range cfg.Spindles {
		spindles = append(spindles, hw.SpindlePWM{
			Pin:       s.Pin,
			CycleTime: s.CycleTimeSeconds,
			DutyMin:   s.DutyMin,
			DutyMax:   s.DutyMax,
		})
	}
	var buttons []hw.ButtonPin
	for _, b := range cfg.Buttons {
		buttons = append(buttons, hw.ButtonPin{Pin: b.Pin, Pullup: b.Pullup})
	}
	drv, err := hw.NewSysfs(steppers, spindles, buttons)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return drv, drv, drv, drv.Close, nil
}
