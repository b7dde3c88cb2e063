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

//go:build !linux

package main

import (
	"fmt"
	"runtime"

	"github.com/ajmcleod/picnc/config"
	"github.com/ajmcleod/picnc/hw"
)

// openHardware always fails away from Linux; execution falls back to the
// simulator.
func openHardware(cfg config.Config) (hw.Steppers, hw.Spindles, hw.Buttons, func(), error) {
	return nil, nil, nil, nil, fmt.Errorf("no GPIO support on %s", runtime.GOOS)
}
