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

package gcode

import (
	"fmt"
	"strings"
)

// Format renders partitions back to G-code text, one comment line per run.
// Useful for inspecting what the planner made of a program.
func Format(parts Partitioned) string {
	var sb strings.Builder
	for _, group := range parts {
		fmt.Fprintf(&sb, "; group of size %d\n", len(group))
		for _, block := range group {
			sb.WriteString(block.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
