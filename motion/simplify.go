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

// SimplifyMask runs Douglas-Peucker over a path and returns a mask of the
// vertices that can be removed while staying within epsilon of the
// original polyline. The first and last vertex are always kept.
func SimplifyMask(path []DistanceV, epsilon float64) []bool {
	drop := make([]bool, len(path))
	if len(path) > 2 {
		simplify(path, epsilon, 0, len(path)-1, drop)
	}
	return drop
}

func simplify(path []DistanceV, epsilon float64, start, end int, drop []bool) {
	dmax := 0.0
	index := 0
	for i := start + 1; i < end; i++ {
		if drop[i] {
			continue
		}
		if d := SegmentDistance(path[i], path[start], path[end]); d > dmax {
			dmax = d
			index = i
		}
	}
	if dmax > epsilon {
		simplify(path, epsilon, start, index, drop)
		simplify(path, epsilon, index, end, drop)
		return
	}
	for i := start + 1; i < end; i++ {
		drop[i] = true
	}
}

// Simplify returns the path with the removable vertices dropped.
func Simplify(path []DistanceV, epsilon float64) []DistanceV {
	drop := SimplifyMask(path, epsilon)
	ret := make([]DistanceV, 0, len(path))
	for i, p := range path {
		if !drop[i] {
			ret = append(ret, p)
		}
	}
	return ret
}
