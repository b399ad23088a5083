// Package scene is a small in-process collision world the lidar can range
// against: axis-aligned boxes and vertical cylinders standing on the ground
// plane, each on one layer.
package scene

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/racecar-sim/internal/lidar"
)

// Collider layers.
const (
	LayerDefault lidar.LayerMask = 1 << iota
	LayerUI
	LayerVehicle
)

// IgnoreUIMask senses every layer except UI overlays.
const IgnoreUIMask = ^LayerUI

// Collider is anything a ray can hit.
type Collider interface {
	// Intersect returns the ray parameter of the first hit at or after the
	// origin. A ray starting inside the collider hits at 0.
	Intersect(origin, dir r3.Vec) (float64, bool)
	Layer() lidar.LayerMask
}

// Box is an axis-aligned box.
type Box struct {
	Min, Max r3.Vec
	Mask     lidar.LayerMask
}

// Layer implements Collider.
func (b Box) Layer() lidar.LayerMask { return b.Mask }

// Intersect implements Collider using the slab method.
func (b Box) Intersect(origin, dir r3.Vec) (float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for k := range o {
		if d[k] == 0 {
			if o[k] < lo[k] || o[k] > hi[k] {
				return 0, false
			}
			continue
		}
		t1 := (lo[k] - o[k]) / d[k]
		t2 := (hi[k] - o[k]) / d[k]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	return math.Max(tmin, 0), true
}

// Cylinder is a vertical cylinder whose base centre sits at Base.
type Cylinder struct {
	Base   r3.Vec
	Radius float64
	Height float64
	Mask   lidar.LayerMask
}

// Layer implements Collider.
func (c Cylinder) Layer() lidar.LayerMask { return c.Mask }

// Intersect implements Collider.
func (c Cylinder) Intersect(origin, dir r3.Vec) (float64, bool) {
	rel := r3.Sub(origin, c.Base)
	inHeight := func(t float64) bool {
		y := rel.Y + t*dir.Y
		return y >= 0 && y <= c.Height
	}

	// Horizontal circle: |rel.xz + t*dir.xz|^2 = r^2.
	a := dir.X*dir.X + dir.Z*dir.Z
	b := 2 * (rel.X*dir.X + rel.Z*dir.Z)
	cc := rel.X*rel.X + rel.Z*rel.Z - c.Radius*c.Radius

	if cc <= 0 && inHeight(0) {
		return 0, true
	}
	if a == 0 {
		return 0, false
	}
	disc := b*b - 4*a*cc
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	for _, t := range []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
		if t >= 0 && inHeight(t) {
			return t, true
		}
	}
	return 0, false
}

// Scene is a set of colliders. It is safe for concurrent queries while
// colliders are added.
type Scene struct {
	mu        sync.RWMutex
	colliders []Collider
}

// New returns a scene holding the given colliders.
func New(colliders ...Collider) *Scene {
	return &Scene{colliders: append([]Collider(nil), colliders...)}
}

// Add places more colliders in the scene.
func (s *Scene) Add(c ...Collider) {
	s.mu.Lock()
	s.colliders = append(s.colliders, c...)
	s.mu.Unlock()
}

// Len is the number of colliders.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colliders)
}

// QueryRange implements lidar.Environment. dir must be a unit vector so the
// ray parameter is a distance.
func (s *Scene) QueryRange(origin, dir r3.Vec, maxDistance float64, mask lidar.LayerMask) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best, hit := math.Inf(1), false
	for _, c := range s.colliders {
		if c.Layer()&mask == 0 {
			continue
		}
		if t, ok := c.Intersect(origin, dir); ok && t <= maxDistance && t < best {
			best, hit = t, true
		}
	}
	if !hit {
		return 0, false
	}
	return best, true
}

var _ lidar.Environment = (*Scene)(nil)

// Arena returns four walls of the given thickness enclosing the rectangle
// |x| <= halfWidth, |z| <= halfLength on the default layer.
func Arena(halfWidth, halfLength, height, thickness float64) []Collider {
	w, l, t := halfWidth, halfLength, thickness
	return []Collider{
		Box{Min: r3.Vec{X: -w - t, Z: l}, Max: r3.Vec{X: w + t, Y: height, Z: l + t}, Mask: LayerDefault},
		Box{Min: r3.Vec{X: -w - t, Z: -l - t}, Max: r3.Vec{X: w + t, Y: height, Z: -l}, Mask: LayerDefault},
		Box{Min: r3.Vec{X: w, Z: -l}, Max: r3.Vec{X: w + t, Y: height, Z: l}, Mask: LayerDefault},
		Box{Min: r3.Vec{X: -w - t, Z: -l}, Max: r3.Vec{X: -w, Y: height, Z: l}, Mask: LayerDefault},
	}
}
