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

import "math"

// Bezier evaluates the Bezier curve defined by the control points at
// parameter t in [0,1] using De Casteljau's algorithm.
func Bezier(points []DistanceV, t float64) DistanceV {
	if len(points) == 1 {
		return points[0]
	}
	return casteljau(points, t, len(points)-1, 0)
}

func casteljau(points []DistanceV, t float64, r, i int) DistanceV {
	if r == 0 {
		return points[i]
	}
	a := casteljau(points, t, r-1, i).Scale(1 - t)
	b := casteljau(points, t, r-1, i+1).Scale(t)
	return a.Add(b)
}

// minFollowVelocity keeps degenerate path velocities from stalling the
// resampling loops.
const minFollowVelocity = 0.025

// FollowPath walks the polyline of velocity-augmented points, advancing by
// v*dt worth of arc length per tick, and calls onPoint for every sampled
// position. The velocity at a sampled point is the length-weighted
// interpolation between the two bracketing waypoints.
func FollowPath(path []DistanceV, onPoint func(DistanceV), dt float64) {
	if len(path) == 0 {
		return
	}
	pos := path[0]
	currDist := 0.0
	velocity := pos.V()
	for i := 0; i < len(path); {
		if velocity < minFollowVelocity {
			velocity = minFollowVelocity
		}
		target := velocity * dt
		ndistv := path[i].Sub(pos)
		ndist := ndistv.Length()
		if currDist+ndist >= target && ndist > 0 && i > 0 {
			mv := ndistv.Scale((target - currDist) / ndist)
			pos = pos.Add(mv)
			segment := path[i].Sub(path[i-1]).Length()
			toFirst := pos.Sub(path[i-1]).Length()
			toSecond := path[i].Sub(pos).Length()
			pos[Axes] = (toFirst*path[i].V() + toSecond*path[i-1].V()) / segment
			velocity = pos.V()
			onPoint(pos)
			currDist = 0
		} else {
			currDist += ndist
			pos = path[i]
			velocity = pos.V()
			i++
		}
	}
}

// splineControls builds the two control points around vertex b so that the
// spline passes through b tangent to the chord between its neighbours.
// The control points sit arcLen away from b (or closer on short segments).
func splineControls(a0, b, c0 DistanceV, arcLen float64) (DistanceV, DistanceV) {
	ba0 := b.Sub(a0)
	ba0l := ba0.Length()
	bc0 := c0.Sub(b).Scale(-1)
	bc0l := bc0.Length()
	if ba0l == 0 {
		// First vertex: aim straight at the successor.
		vvv := c0.Sub(b)
		vvvl := vvv.Length()
		e := b
		if vvvl > 0 {
			e = b.Add(vvv.Scale(math.Min(math.Abs(arcLen), bc0l) / vvvl))
		}
		return a0, e
	}
	if bc0l == 0 {
		// Last vertex: keep the approach direction.
		vvv := b.Sub(a0)
		vvvl := vvv.Length()
		e := b
		if vvvl > 0 {
			e = b.Add(vvv.Scale(math.Min(math.Abs(arcLen), ba0l) / vvvl))
		}
		return e, b
	}
	a := b.Sub(ba0.Scale(1 / ba0l))
	c := b.Sub(bc0.Scale(1 / bc0l))
	proj := b.Spatial().Projection(a.Spatial(), c.Spatial())
	projv := b.Sub(proj.WithV(b.V()))
	projv[Axes] = 0
	d := a.Add(projv)
	e := c.Add(projv)
	vvv := d.Sub(e)
	vvvl := vvv.Length()
	d = b.Add(vvv.Scale(math.Min(math.Abs(arcLen), ba0l) / vvvl))
	e = b.Sub(vvv.Scale(math.Min(math.Abs(arcLen), bc0l) / vvvl))
	return d, e
}

// BezierPath approximates the path with cubic Bezier splines, one per
// segment, evaluates them at a parameter step derived from dt and the
// spline length, then resamples the curve to the per-tick arc length
// implied by the instantaneous velocity. onPoint receives each resampled
// position.
func BezierPath(path []DistanceV, onPoint func(DistanceV), dt, arcLen float64) {
	var splines [][]DistanceV
	if len(path) <= 2 {
		splines = append(splines, path)
	} else {
		for i := 1; i < len(path); i++ {
			var t []DistanceV
			{
				j := i - 1
				a := path[max(j-1, 0)]
				b := path[j]
				c := path[min(j+1, len(path)-1)]
				a[Axes], b[Axes], c[Axes] = 0, 0, 0
				_, e := splineControls(a, b, c, arcLen)
				e[Axes] = path[j].V()
				t = append(t, path[j], e)
			}
			{
				a := path[max(i-1, 0)]
				b := path[i]
				c := path[min(i+1, len(path)-1)]
				a[Axes], b[Axes], c[Axes] = 0, 0, 0
				d, _ := splineControls(a, b, c, arcLen)
				d[Axes] = path[i].V()
				t = append(t, d, path[i])
			}
			splines = append(splines, t)
		}
	}

	t := 0.0
	var curve []DistanceV
	for _, p := range splines {
		if len(p) > 4 {
			p = p[:4]
		}
		l := 0.000001
		for i := 1; i < len(p); i++ {
			l += p[i-1].Sub(p[i]).Length()
		}
		dtp := dt / l
		if dtp < 0.0001 {
			dtp = 0.0001
		}
		for ; t <= 1.0; t += dtp {
			curve = append(curve, Bezier(p, t))
		}
		t -= 1.0
	}

	// Resample to the true per-step distance for the local velocity.
	if len(curve) == 0 {
		return
	}
	pos := curve[0]
	currDist := 0.0
	for i := 0; i < len(curve); {
		if curve[i].V() < minFollowVelocity {
			curve[i][Axes] = 0.01
		}
		target := curve[i].V() * dt
		ndistv := curve[i].Sub(pos)
		ndist := ndistv.Length()
		if currDist+ndist >= target && ndist > 0 {
			pos = pos.Add(ndistv.Scale((target - currDist) / ndist))
			onPoint(pos)
			currDist = 0
		} else {
			currDist += ndist
			pos = curve[i]
			i++
		}
	}
}
