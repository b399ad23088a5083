package visualiser

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/racecar-sim/internal/lidar"
)

func samplePoints() []lidar.ScanPoint {
	p := lidar.HokuyoUST10LX()
	buf := make(lidar.SliceReader, p.NumSamples)
	for i := 0; i < 1080; i++ {
		buf[i] = 300
	}
	return lidar.Project(p, buf, lidar.DefaultProjection(p))
}

func TestWritePNG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, samplePoints(), Options{Title: "test", Range: 10}))

	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, cfg.Width, cfg.Height)
	assert.Positive(t, cfg.Width)
}

func TestWritePNG_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, nil, Options{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, samplePoints(), Options{Title: "Lidar polar"}))

	html := buf.String()
	assert.Contains(t, html, "Lidar polar")
	assert.Contains(t, html, "echarts")
}

func TestOptionsDefaultRange(t *testing.T) {
	t.Parallel()

	o := Options{}.withDefaults([]lidar.ScanPoint{{Distance: 2}, {Distance: 7.5}})
	assert.Equal(t, 7.5, o.Range)
	assert.Equal(t, "LiDAR scan", o.Title)

	assert.Equal(t, 1.0, Options{}.withDefaults(nil).Range)
}
