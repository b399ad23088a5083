package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/racecar-sim/internal/drive"
)

func TestDecodeInbound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    drive.Command
		wantErr bool
	}{
		{"update", `{"command":"update","speed":0.5,"angle":-0.2}`, drive.Command{Speed: 0.5, Angle: -0.2}, false},
		{"zero values", `{"command":"update","speed":0,"angle":0}`, drive.Command{}, false},
		{"missing angle", `{"command":"update","speed":0.5}`, drive.Command{}, true},
		{"other command", `{"command":"reset"}`, drive.Command{}, true},
		{"not json", `speed=1`, drive.Command{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeInbound([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSensorDataMessageShape(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	data, err := json.Marshal(NewSensorDataMessage(src))
	require.NoError(t, err)

	var decoded map[string]map[string][]float64
	require.NoError(t, json.Unmarshal(data, &decoded))
	lidarValues := decoded["sensor_data"]["lidar"]
	require.Len(t, lidarValues, 1440)
	assert.Equal(t, 200.0, lidarValues[540])
}
