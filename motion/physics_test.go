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

package motion

import (
	"math"
	"testing"
)

func TestAccelerationBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b PathNode
		want float64
	}{
		// v1^2 = v0^2 + 2as: 100 = 0 + 2*a*50 -> a = 1
		{"accelerate", PathNode{Distance{0, 0, 0, 0}, 0}, PathNode{Distance{50, 0, 0, 0}, 10}, 1},
		{"decelerate", PathNode{Distance{0, 0, 0, 0}, 10}, PathNode{Distance{50, 0, 0, 0}, 0}, -1},
		{"constant", PathNode{Distance{0, 0, 0, 0}, 5}, PathNode{Distance{50, 0, 0, 0}, 5}, 0},
		// 50^2 - 2^2 = 2*a*12.48 -> a = 100
		{"rapid", PathNode{Distance{0, 0, 0, 0}, 2}, PathNode{Distance{12.48, 0, 0, 0}, 50}, 100},
	}
	for _, tc := range tests {
		got, err := AccelerationBetween(tc.a, tc.b)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if math.Abs(got-tc.want) > 1e-3 {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAccelerationBetweenZeroDistance(t *testing.T) {
	_, err := AccelerationBetween(PathNode{Distance{}, 1}, PathNode{Distance{}, 2})
	if err == nil {
		t.Fatalf("expected error for zero distance velocity change")
	}
}

func TestTransitionPoint(t *testing.T) {
	a := PathNode{Distance{0, 0, 0, 0}, 2}
	b := PathNode{Distance{200, 0, 0, 0}, 50}
	// Target velocity reachable early: node placed where it is reached.
	p := TransitionPoint(a, b, 100)
	want := (50*50 - 2*2) / (2 * 100.0)
	if math.Abs(p.P[0]-want) > 1e-9 || p.V != 50 {
		t.Fatalf("transition: got %v at %v, want 50 at %v", p.V, p.P[0], want)
	}
	// Not reachable: node stays at b with attained velocity.
	short := PathNode{Distance{1, 0, 0, 0}, 50}
	p = TransitionPoint(a, short, 100)
	if p.P != short.P {
		t.Fatalf("short transition moved: %v", p.P)
	}
	if va := math.Sqrt(2*2 + 2*100*1); math.Abs(p.V-va) > 1e-9 {
		t.Fatalf("short transition: got v %v, want %v", p.V, va)
	}
	// Zero acceleration never moves off the start node.
	if p = TransitionPoint(a, b, 0); p != a {
		t.Fatalf("zero accel: got %v", p)
	}
}
