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
	"reflect"
	"testing"

	"github.com/ajmcleod/picnc/motion"
)

func TestMerge(t *testing.T) {
	dst := Block{'X': 10, 'Y': 20}
	src := Block{'Y': 1, 'Z': 0}
	got := Merge(dst, src)
	want := Block{'X': 10, 'Y': 1, 'Z': 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge: got %v, want %v", got, want)
	}
	if dst['Y'] != 20 {
		t.Fatalf("Merge modified its input")
	}
}

func TestDiff(t *testing.T) {
	dst := Block{'X': 10, 'Y': 20, 'F': 5}
	src := Block{'X': 10, 'Y': 1, 'F': 5}
	got := Diff(dst, src)
	want := Block{'Y': 20}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Diff: got %v, want %v", got, want)
	}
}

func TestBlockDistance(t *testing.T) {
	b := Block{'G': 1, 'X': 1, 'Y': 2, 'Z': 3, 'A': 4, 'F': 5}
	if got := b.Distance(); got != (motion.Distance{1, 2, 3, 4}) {
		t.Fatalf("Distance: got %v", got)
	}
	if got := b.DistanceV(); got != (motion.DistanceV{1, 2, 3, 4, 5}) {
		t.Fatalf("DistanceV: got %v", got)
	}
	if got := Move(Block{'X': 1}, Block{'X': 4, 'Y': 1}); got != (motion.Distance{3, 1, 0, 0}) {
		t.Fatalf("Move: got %v", got)
	}
}

func TestLastState(t *testing.T) {
	prog := Program{
		{'G': 0, 'X': 10},
		{'G': 1, 'Y': 5, 'F': 30},
		{'G': 4, 'X': 2}, // dwell: X is a duration, not a position
		{'M': 3},
		{'G': 1, 'X': 1},
	}
	got := LastState(prog, Block{'F': 1})
	if got['X'] != 1 || got['Y'] != 5 || got['F'] != 30 {
		t.Fatalf("LastState: got %v", got)
	}
	if _, ok := got['M']; ok {
		t.Fatalf("M latched across blocks: %v", got)
	}
}

func TestBlockString(t *testing.T) {
	b := Block{'X': 10, 'G': 1, 'F': 30}
	if got := b.String(); got != "G1 X10 F30" {
		t.Fatalf("String: got %q", got)
	}
}
