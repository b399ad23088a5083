package lidar

// Defaults used by the agent reward function.
const (
	DefaultForwardHalfWidth   = 10 // slots each side of forward
	DefaultClearanceThreshold = 50 // reported units (cm)
)

// IsForwardClear reports whether the 2w+1 slots centred on the forward
// heading are free of obstacles nearer than threshold. Blocked slots and
// slots holding the blocked or no-obstacle code are ignored, so an arc that
// is entirely blocked or empty reads as clear. It reads the buffer as it is
// and never forces a sample.
func IsForwardClear(p SensorProfile, buf Reader, halfWidth int, threshold float64) bool {
	n := buf.Len()
	if n == 0 {
		return true
	}
	if halfWidth < 0 {
		halfWidth = 0
	}
	if 2*halfWidth+1 > n {
		halfWidth = (n - 1) / 2
	}

	fwd := p.ForwardIndex()
	for k := -halfWidth; k <= halfWidth; k++ {
		i := wrapIndex(fwd+k, n)
		if p.Blocked(i) {
			continue
		}
		v := buf.At(i)
		if v == p.MaxCode || (p.Exclusion != nil && v == p.BlockedCode) {
			continue
		}
		if v < threshold {
			return false
		}
	}
	return true
}
