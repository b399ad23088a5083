package lidar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClosestObstacle(t *testing.T) {
	t.Parallel()

	p := codedProfile()
	buf := filled(p.NumSamples, 400)
	buf[10] = p.MinCode
	buf[200] = 5 // blocked slot
	buf[300] = 42

	d, idx, ok := ClosestObstacle(p, buf)
	assert.True(t, ok)
	assert.Equal(t, 300, idx)
	assert.InDelta(t, 42, d, 1e-9)

	_, idx, ok = ClosestObstacle(p, filled(p.NumSamples, p.MaxCode))
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
}

func TestForwardDistance(t *testing.T) {
	t.Parallel()

	p := codedProfile()
	buf := filled(p.NumSamples, 400)
	buf[6] = 10 // just outside the window
	buf[357] = 120

	assert.InDelta(t, 120, ForwardDistance(p, buf, 5), 1e-9)
	assert.InDelta(t, 800, ForwardDistance(p, filled(p.NumSamples, p.MaxCode), 5), 1e-9)
}

func TestSectorMinimums(t *testing.T) {
	t.Parallel()

	// Scanned headings run from -90 (slot 270) to 180 (slot 180).
	p := codedProfile()
	buf := filled(p.NumSamples, 400)
	buf[315] = 100
	buf[45] = 200
	buf[135] = 300

	assert.InDeltaSlice(t, []float64{100, 200, 300}, SectorMinimums(p, buf, 3), 1e-9)
	assert.Nil(t, SectorMinimums(p, buf, 0))

	empty := SectorMinimums(p, filled(p.NumSamples, p.MaxCode), 2)
	assert.InDeltaSlice(t, []float64{800, 800}, empty, 1e-9)
}

func TestFieldOfView_Hokuyo(t *testing.T) {
	t.Parallel()

	p := HokuyoUST10LX()
	fov := FieldOfView(p, NewSampleBuffer(p.NumSamples))
	assert.Len(t, fov, 1082)
}

func TestStats(t *testing.T) {
	t.Parallel()

	p := SensorProfile{NumSamples: 5, MinCode: -1, MaxCode: -2, UnitScale: 1}
	st := Stats(p, SliceReader{100, -1, 300, -2, 0})
	assert.Equal(t, 2, st.Valid)
	assert.Equal(t, 5, st.Total)
	assert.InDelta(t, 200, st.Mean, 1e-9)
	assert.InDelta(t, 100*math.Sqrt2, st.StdDev, 1e-9)
	assert.Equal(t, 100.0, st.Min)
	assert.Equal(t, 300.0, st.Max)

	assert.Equal(t, ScanStats{Total: 3}, Stats(p, SliceReader{-1, -1, -2}))
}
