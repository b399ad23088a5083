package lidar

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scan analysis helpers used by agents and reward shaping. They consider
// valid returns only: non-blocked slots holding a value that is not a
// sentinel code.

// valid reports whether slot i holds a real measurement.
func valid(p SensorProfile, buf Reader, i int) (float64, bool) {
	if p.Blocked(i) {
		return 0, false
	}
	v := buf.At(i)
	if p.IsSentinel(v) || v <= 0 {
		return 0, false
	}
	return v, true
}

// ClosestObstacle returns the smallest valid reading and its slot. ok is
// false when the buffer holds no valid reading.
func ClosestObstacle(p SensorProfile, buf Reader) (distance float64, index int, ok bool) {
	distance = math.Inf(1)
	index = -1
	for i := 0; i < buf.Len(); i++ {
		if v, good := valid(p, buf, i); good && v < distance {
			distance, index = v, i
		}
	}
	if index < 0 {
		return 0, -1, false
	}
	return distance, index, true
}

// ForwardDistance is the smallest valid reading whose heading lies within
// halfWidthDeg of forward. It returns the profile's maximum range, in
// reported units, when nothing is seen.
func ForwardDistance(p SensorProfile, buf Reader, halfWidthDeg float64) float64 {
	best := p.MaxRange * p.UnitScale
	for i := 0; i < buf.Len(); i++ {
		if math.Abs(NormalizeHeading(p.Heading(i))) > halfWidthDeg {
			continue
		}
		if v, ok := valid(p, buf, i); ok && v < best {
			best = v
		}
	}
	return best
}

// SectorMinimums splits the scanned field of view into sectors of equal
// width, left to right, and returns the smallest valid reading in each.
// Empty sectors report the maximum range in reported units.
func SectorMinimums(p SensorProfile, buf Reader, sectors int) []float64 {
	if sectors <= 0 {
		return nil
	}
	maxReported := p.MaxRange * p.UnitScale
	out := make([]float64, sectors)
	for k := range out {
		out[k] = maxReported
	}

	lo, hi := headingBounds(p, buf.Len())
	width := (hi - lo) / float64(sectors)
	if width <= 0 {
		return out
	}
	for i := 0; i < buf.Len(); i++ {
		v, ok := valid(p, buf, i)
		if !ok {
			continue
		}
		k := int((NormalizeHeading(p.Heading(i)) - lo) / width)
		if k < 0 {
			k = 0
		} else if k >= sectors {
			k = sectors - 1
		}
		if v < out[k] {
			out[k] = v
		}
	}
	return out
}

// headingBounds returns the extent of the scanned headings in (-180, 180].
func headingBounds(p SensorProfile, n int) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		if p.Blocked(i) {
			continue
		}
		h := NormalizeHeading(p.Heading(i))
		lo = math.Min(lo, h)
		hi = math.Max(hi, h)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// FieldOfView returns the non-blocked slots in index order, the observation
// vector an agent receives.
func FieldOfView(p SensorProfile, buf Reader) []float64 {
	out := make([]float64, 0, buf.Len())
	for i := 0; i < buf.Len(); i++ {
		if !p.Blocked(i) {
			out = append(out, buf.At(i))
		}
	}
	return out
}

// ScanStats summarises the valid returns of a scan.
type ScanStats struct {
	Valid  int     `json:"valid"`
	Total  int     `json:"total"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Stats computes ScanStats over the buffer.
func Stats(p SensorProfile, buf Reader) ScanStats {
	vals := make([]float64, 0, buf.Len())
	for i := 0; i < buf.Len(); i++ {
		if v, ok := valid(p, buf, i); ok {
			vals = append(vals, v)
		}
	}
	st := ScanStats{Valid: len(vals), Total: buf.Len()}
	if len(vals) == 0 {
		return st
	}
	st.Mean = stat.Mean(vals, nil)
	if len(vals) > 1 {
		st.StdDev = stat.StdDev(vals, nil)
	}
	st.Min, st.Max = vals[0], vals[0]
	for _, v := range vals[1:] {
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	return st
}
