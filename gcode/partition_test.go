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

	"github.com/ajmcleod/picnc/motion"
)

func TestGroup(t *testing.T) {
	prog := Program{
		{'G': 0, 'X': 10},
		{'G': 0, 'Y': 10},
		{'G': 1, 'X': 0, 'F': 10},
		{'X': 5}, // extends the G1 run
		{'M': 3},
		{'M': 5},
		{'G': 4, 'P': 100},
	}
	parts, err := Group(prog, Block{'F': 1})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	sizes := []int{2, 2, 1, 1, 1}
	if len(parts) != len(sizes) {
		t.Fatalf("Group: got %d runs, want %d", len(parts), len(sizes))
	}
	for i, n := range sizes {
		if len(parts[i]) != n {
			t.Fatalf("run %d: got %d blocks, want %d", i, len(parts[i]), n)
		}
	}
	if parts[3][0]['M'] != 5 {
		t.Fatalf("M runs not isolated: %v", parts[3])
	}
}

func TestGroupSyntheticFeedrate(t *testing.T) {
	parts, err := Group(Program{{'G': 1, 'X': 10}}, Block{'F': 7})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	want := Partitioned{Program{
		Block{'G': 1, 'F': 7},
		Block{'G': 1, 'X': 10},
	}}
	if !reflect.DeepEqual(parts, want) {
		t.Fatalf("Group: got %v, want %v", parts, want)
	}
}

func TestGroupErrors(t *testing.T) {
	var pe *ProgramError
	_, err := Group(Program{{'X': 10}}, nil)
	if !errors.As(err, &pe) {
		t.Fatalf("first block without G/M: got %v", err)
	}
	_, err = Group(Program{{'M': 3}, {'X': 10}}, nil)
	if !errors.As(err, &pe) {
		t.Fatalf("argument block after M: got %v", err)
	}
}

func TestEnrichFeedrates(t *testing.T) {
	limits := motion.Limits{MaxVelocity: motion.Distance{220, 220, 110, 50}}
	prog := Program{
		{'G': 0, 'X': 10},
		{'G': 1, 'X': 0, 'F': 30},
		{'G': 1, 'Y': 5},
		{'G': 0, 'Y': 0},
	}
	got := EnrichFeedrates(prog, limits)
	wantF := []float64{220, 30, 30, 220}
	for i, f := range wantF {
		if got[i]['F'] != f {
			t.Fatalf("block %d: F got %v, want %v", i, got[i]['F'], f)
		}
	}
	if _, ok := prog[2]['F']; ok {
		t.Fatalf("EnrichFeedrates modified its input")
	}
}

func TestRemoveDuplicates(t *testing.T) {
	prog := Program{
		{'G': 1, 'X': 10, 'F': 5},
		{'G': 1, 'X': 10, 'F': 5}, // no movement, no feedrate change
		{'G': 1, 'X': 10, 'F': 9}, // feedrate shift survives
		{'M': 3},
	}
	got := RemoveDuplicates(prog, nil)
	if len(got) != 3 {
		t.Fatalf("got %d blocks, want 3: %v", len(got), got)
	}
	if got[1]['F'] != 9 {
		t.Fatalf("feedrate shift dropped: %v", got[1])
	}
	if got[2]['M'] != 3 {
		t.Fatalf("M block dropped: %v", got[2])
	}
}
