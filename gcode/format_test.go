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
	"strings"
	"testing"
)

func TestFormatRoundTrip(t *testing.T) {
	parts := Partitioned{
		{Block{'G': 0, 'X': 10}},
		{Block{'M': 3, 'P': 500}},
	}
	text := Format(parts)
	if !strings.Contains(text, "G0 X10") || !strings.Contains(text, "M3 P500") {
		t.Fatalf("Format: got %q", text)
	}
	// Comment lines parse away, blocks parse back to themselves.
	prog, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse of formatted text: %v", err)
	}
	if len(prog) != 2 {
		t.Fatalf("round trip: got %d blocks, want 2", len(prog))
	}
	if prog[0]['X'] != 10 || prog[1]['M'] != 3 {
		t.Fatalf("round trip: got %v", prog)
	}
}
