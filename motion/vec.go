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

// Package motion holds the geometry and physics used by the motion planner:
// distance vectors, per-axis machine limits, kinematic layouts and the
// path algorithms (Douglas-Peucker, Bezier splines, polyline walking).

package motion

import (
	"math"
)

// Axes is the number of controlled axes (X, Y, Z, A).
const Axes = 4

// Distance is a Cartesian distance or position vector in mm.
type Distance [Axes]float64

// DistanceV is a Distance with a trailing velocity component.
// The velocity takes part in vector arithmetic (so it interpolates along
// splines) but never in geometric length.
type DistanceV [Axes + 1]float64

// Steps counts motor steps per axis.
type Steps [Axes]int

func (d Distance) Add(o Distance) Distance {
	for i := range d {
		d[i] += o[i]
	}
	return d
}

func (d Distance) Sub(o Distance) Distance {
	for i := range d {
		d[i] -= o[i]
	}
	return d
}

func (d Distance) Scale(f float64) Distance {
	for i := range d {
		d[i] *= f
	}
	return d
}

func (d Distance) Dot(o Distance) float64 {
	s := 0.0
	for i := range d {
		s += d[i] * o[i]
	}
	return s
}

func (d Distance) Length() float64 {
	return math.Sqrt(d.Dot(d))
}

// Norm returns the unit vector along d. A zero vector is returned unchanged.
func (d Distance) Norm() Distance {
	l := d.Length()
	if l == 0 {
		return d
	}
	return d.Scale(1 / l)
}

// Angle returns the angle at vertex d formed by points a and b.
// Perpendicular (or degenerate) configurations yield pi/2.
func (d Distance) Angle(a, b Distance) float64 {
	u := a.Sub(d)
	v := b.Sub(d)
	dot := u.Dot(v)
	if dot == 0 {
		return math.Pi / 2
	}
	return math.Acos(dot / (u.Length() * v.Length()))
}

// Projection projects d onto the line through a and b.
func (d Distance) Projection(a, b Distance) Distance {
	ap := d.Sub(a)
	ab := b.Sub(a)
	return a.Add(ab.Scale(ap.Dot(ab) / ab.Dot(ab)))
}

// V returns the velocity component.
func (d DistanceV) V() float64 { return d[Axes] }

// Spatial drops the velocity component.
func (d DistanceV) Spatial() Distance {
	var r Distance
	copy(r[:], d[:Axes])
	return r
}

// WithV builds a DistanceV from a spatial vector and a velocity.
func (d Distance) WithV(v float64) DistanceV {
	var r DistanceV
	copy(r[:Axes], d[:])
	r[Axes] = v
	return r
}

func (d DistanceV) Add(o DistanceV) DistanceV {
	for i := range d {
		d[i] += o[i]
	}
	return d
}

func (d DistanceV) Sub(o DistanceV) DistanceV {
	for i := range d {
		d[i] -= o[i]
	}
	return d
}

func (d DistanceV) Scale(f float64) DistanceV {
	for i := range d {
		d[i] *= f
	}
	return d
}

// Length is the geometric length. The velocity component is excluded.
func (d DistanceV) Length() float64 {
	return d.Spatial().Length()
}

func (s Steps) Add(o Steps) Steps {
	for i := range s {
		s[i] += o[i]
	}
	return s
}

func (s Steps) Sub(o Steps) Steps {
	for i := range s {
		s[i] -= o[i]
	}
	return s
}

// SegmentDistance returns the distance from point p to the line through
// segment b-c, or to b when the segment is degenerate.
// The velocity components are ignored.
func SegmentDistance(p, b, c DistanceV) float64 {
	bc := c.Spatial().Sub(b.Spatial())
	l := bc.Length()
	if l <= 0 {
		return p.Spatial().Sub(b.Spatial()).Length()
	}
	d := bc.Scale(1 / l)
	v := p.Spatial().Sub(b.Spatial())
	t := v.Dot(d)
	proj := b.Spatial().Add(d.Scale(t))
	return proj.Sub(p.Spatial()).Length()
}

// Lerp is linear interpolation of y between the points (x0,y0) and (x1,y1).
func Lerp(x, x0, y0, x1, y1 float64) float64 {
	return y0*(1-(x-x0)/(x1-x0)) + y1*((x-x0)/(x1-x0))
}
