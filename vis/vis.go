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

// Package vis observes a running machine: an HTTP server that renders the
// toolpath and live position, and an SDL window for simulated execution.

package vis

import (
	"github.com/ajmcleod/picnc/motion"
)

// Observer watches execution. Implementations must tolerate SetSteps
// being called from the stepping worker at tick rate.
type Observer interface {
	// SetSteps reports the current absolute step position.
	SetSteps(motion.Steps)
	// SetFamily reports the G code family currently executing.
	SetFamily(g int)
	// Active reports whether the observer still wants the execution to
	// continue; a closed window deactivates its observer.
	Active() bool
	// Close releases the observer's resources.
	Close()
}

// Multi fans out to several observers. It is inactive as soon as any
// member is.
type Multi []Observer

func (m Multi) SetSteps(s motion.Steps) {
	for _, o := range m {
		o.SetSteps(s)
	}
}

func (m Multi) SetFamily(g int) {
	for _, o := range m {
		o.SetFamily(g)
	}
}

func (m Multi) Active() bool {
	for _, o := range m {
		if !o.Active() {
			return false
		}
	}
	return true
}

func (m Multi) Close() {
	for _, o := range m {
		o.Close()
	}
}
