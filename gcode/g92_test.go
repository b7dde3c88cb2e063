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
)

func TestResolveG92(t *testing.T) {
	prog := Program{
		{'G': 0, 'X': 10},
		{'G': 92, 'X': 10},
		{'G': 0, 'X': 0},
	}
	got := ResolveG92(prog)
	want := Program{
		Block{'G': 0, 'X': 10},
		Block{'G': 0, 'X': 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveG92: got %v, want %v", got, want)
	}
	if state := LastState(got, nil); state['X'] != 0 {
		t.Fatalf("final X: got %v, want 0", state['X'])
	}
}

func TestResolveG92Offset(t *testing.T) {
	// Setting the origin at the current position shifts later moves.
	prog := Program{
		{'G': 0, 'X': 10, 'Y': 4},
		{'G': 92, 'X': 0, 'Y': 0},
		{'G': 0, 'X': 1},
		{'G': 1, 'Y': 2, 'F': 5},
	}
	got := ResolveG92(prog)
	if len(got) != 3 {
		t.Fatalf("got %d blocks, want 3", len(got))
	}
	if got[1]['X'] != 11 {
		t.Fatalf("shifted X: got %v, want 11", got[1]['X'])
	}
	if got[2]['Y'] != 6 {
		t.Fatalf("shifted Y: got %v, want 6", got[2]['Y'])
	}
}

func TestResolveG92Quantizes(t *testing.T) {
	prog := Program{{'G': 0, 'X': 1.0/1024 + 1.0/4096}}
	got := ResolveG92(prog)
	if got[0]['X'] != 1.0/1024 {
		t.Fatalf("quantization: got %v, want %v", got[0]['X'], 1.0/1024)
	}
}
