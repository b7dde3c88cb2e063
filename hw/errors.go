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

	"github.com/ajmcleod/picnc/motion"
)

// HardwareError reports a failure of the hardware adapter: GPIO setup,
// conflicting pin assignments, out-of-range spindle power.
type HardwareError struct {
	Reason string
}

func (e *HardwareError) Error() string {
	return e.Reason
}

func hwErrorf(format string, args ...interface{}) error {
	return &HardwareError{Reason: fmt.Sprintf(format, args...)}
}

// TerminatedError is returned by the stepping engine when a suspension
// resolves to abort. Delta carries the steps performed since the start of
// the interrupted stream so callers can reconstruct the position.
type TerminatedError struct {
	Delta motion.Steps
}

func (e *TerminatedError) Error() string {
	return fmt.Sprintf("stepping terminated after %v steps", e.Delta)
}
