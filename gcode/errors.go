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

import "fmt"

// ParseError reports a malformed G-code line.
type ParseError struct {
	Line   int // 1-based line number, 0 when unknown
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

// ProgramError reports a semantic violation in an otherwise well-formed
// program, such as a zero feedrate on a nonzero move.
type ProgramError struct {
	Reason string
}

func (e *ProgramError) Error() string {
	return e.Reason
}
