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
	"runtime"

	"golang.org/x/sys/unix"
)

// SetRealtime pins the calling goroutine to its OS thread and requests
// round-robin realtime scheduling for it. Stepping correctness does not
// depend on this, only the tick jitter does, so callers treat a failure
// as a warning.
func SetRealtime() error {
	runtime.LockOSThread()
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_RR,
		Priority: 99,
	}
	return unix.SchedSetAttr(0, &attr, 0)
}
