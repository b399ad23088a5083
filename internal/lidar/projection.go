package lidar

// ScanPoint is one projected sample in display units, relative to the
// sensor's visual centre.
type ScanPoint struct {
	Index      int     `json:"index"`
	HeadingDeg float64 `json:"heading_deg"`
	Distance   float64 `json:"distance"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// ProjectionConfig controls how reported values map to the display.
type ProjectionConfig struct {
	// DisplayScale is the number of reported units per display unit
	// (100 for centimetre readings shown in metres).
	DisplayScale float64
	// MaxDisplayRange clips the scatter, in display units.
	MaxDisplayRange float64
}

// DefaultProjection displays the profile in native units out to its
// visualisation range.
func DefaultProjection(p SensorProfile) ProjectionConfig {
	maxRange := p.VisualisationRange
	if maxRange <= 0 {
		maxRange = p.MaxRange
	}
	return ProjectionConfig{DisplayScale: p.UnitScale, MaxDisplayRange: maxRange}
}

// Project maps the buffer to a top-down scatter. Blocked slots, sentinel
// codes and values beyond the display range are left out rather than drawn.
// It only reads the buffer.
func Project(p SensorProfile, buf Reader, cfg ProjectionConfig) []ScanPoint {
	scale := cfg.DisplayScale
	if scale == 0 {
		scale = 1
	}
	n := buf.Len()
	out := make([]ScanPoint, 0, n)
	for i := 0; i < n; i++ {
		if p.Blocked(i) {
			continue
		}
		v := buf.At(i)
		if p.IsSentinel(v) || v <= 0 {
			continue
		}
		d := v / scale
		if cfg.MaxDisplayRange > 0 && d > cfg.MaxDisplayRange {
			continue
		}
		h := p.Heading(i)
		x, y := PolarToCartesian(d, h)
		out = append(out, ScanPoint{Index: i, HeadingDeg: h, Distance: d, X: x, Y: y})
	}
	return out
}
