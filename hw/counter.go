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
	"runtime"
	"sync/atomic"

	"github.com/ajmcleod/picnc/motion"
)

// stepCounter tracks absolute step positions in five atomic slots: one per
// axis plus a checksum of their sum. Readers retry until the checksum
// matches, which makes snapshots consistent without a lock on the stepping
// path.
type stepCounter struct {
	slots [motion.Axes + 1]atomic.Int64
}

// add applies one step action to the counters.
func (c *stepCounter) add(b [motion.Axes]SingleStep) {
	var vals [motion.Axes + 1]int64
	for i := 0; i < motion.Axes; i++ {
		vals[i] = c.slots[i].Load() + int64(b[i].Step)*(int64(b[i].Dir)*2-1)
		vals[motion.Axes] += vals[i]
	}
	for i := range vals {
		c.slots[i].Store(vals[i])
	}
}

// read returns a checksum-consistent snapshot of the step counters.
func (c *stepCounter) read() motion.Steps {
	for {
		var vals [motion.Axes + 1]int64
		for i := range vals {
			vals[i] = c.slots[i].Load()
		}
		sum := int64(0)
		for i := 0; i < motion.Axes; i++ {
			sum += vals[i]
		}
		if sum == vals[motion.Axes] {
			var s motion.Steps
			for i := range s {
				s[i] = int(vals[i])
			}
			return s
		}
		runtime.Gosched()
	}
}

// set overwrites the counters with a new absolute position.
func (c *stepCounter) set(s motion.Steps) {
	sum := int64(0)
	for i := 0; i < motion.Axes; i++ {
		c.slots[i].Store(int64(s[i]))
		sum += int64(s[i])
	}
	c.slots[motion.Axes].Store(sum)
}
