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
	"errors"
	"reflect"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Block
	}{
		{"comment folds away", "G0 x 10 ; Y - 20.5", Block{'G': 0, 'X': 10}},
		{"simple", "G1X10Y20F30", Block{'G': 1, 'X': 10, 'Y': 20, 'F': 30}},
		{"lowercase", "g92 x-1.5 a2", Block{'G': 92, 'X': -1.5, 'A': 2}},
		{"whitespace", "  M 17  ", Block{'M': 17}},
		{"empty", "", nil},
		{"pure comment", "; spindle warmup", nil},
		{"fraction", "G4 P0.5", Block{'G': 4, 'P': 0.5}},
	}
	for _, tc := range tests {
		got, err := ParseLine(tc.line)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseLineErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"number before letter", "10 G0"},
		{"stray character", "G0 X10 #5"},
		{"double dot", "G0 X1.2.3"},
		{"bare letter run", "G0 X Y10"},
		{"newline inside", "G0 X\n10"},
	}
	for _, tc := range tests {
		_, err := ParseLine(tc.line)
		if err == nil {
			t.Fatalf("%s: no error for %q", tc.name, tc.line)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: error is %T, want *ParseError", tc.name, err)
		}
	}
}

func TestParseProgram(t *testing.T) {
	prog, err := Parse("G0 X10\n; comment only\n\nG1 Y5 F10\nM3\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Program{
		Block{'G': 0, 'X': 10},
		Block{'G': 1, 'Y': 5, 'F': 10},
		Block{'M': 3},
	}
	if !reflect.DeepEqual(prog, want) {
		t.Fatalf("Parse: got %v, want %v", prog, want)
	}
}

func TestParseProgramLineNumber(t *testing.T) {
	_, err := Parse("G0 X10\nG1 Y$\n")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error is %T, want *ParseError", err)
	}
	if pe.Line != 2 {
		t.Fatalf("error line: got %d, want 2", pe.Line)
	}
}
