package lidar

import "math"

// PolarToCartesian converts a distance and a sensor-relative heading
// (degrees, clockwise from forward) into sensor-frame coordinates.
// Coordinate convention: X=right, Y=forward.
func PolarToCartesian(distance, headingDeg float64) (x, y float64) {
	rad := headingDeg * math.Pi / 180.0
	x = distance * math.Sin(rad)
	y = distance * math.Cos(rad)
	return
}

// CartesianToHeading is the inverse of PolarToCartesian.
func CartesianToHeading(x, y float64) (distance, headingDeg float64) {
	distance = math.Hypot(x, y)
	headingDeg = math.Atan2(x, y) * 180.0 / math.Pi
	return
}

// NormalizeHeading folds a heading into (-180, 180].
func NormalizeHeading(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg <= -180 {
		deg += 360
	} else if deg > 180 {
		deg -= 360
	}
	return deg
}
