// Package bridge connects the simulated lidar and drive actuator to the
// outside world: the HTTP control API, the WebSocket bridge client, an MQTT
// scan exporter and a gRPC scan stream.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/racecar-sim/internal/drive"
	"github.com/banshee-data/racecar-sim/internal/lidar"
)

// ScanSource is the read side of a sensor. *lidar.Sensor implements it.
type ScanSource interface {
	Profile() lidar.SensorProfile
	Buffer() lidar.Reader
	Cursor() int
}

// RealismSwitch toggles the sensor noise model. *sim.Loop implements it.
type RealismSwitch interface {
	Realism() bool
	SetRealism(bool)
}

// SamplesMessage is the GET /lidar/samples body and the MQTT payload.
type SamplesMessage struct {
	Samples []float32 `json:"samples"`
}

// NewSamplesMessage snapshots the source buffer as float32, the width the
// agent consumes.
func NewSamplesMessage(src ScanSource) SamplesMessage {
	buf := src.Buffer()
	out := make([]float32, buf.Len())
	for i := range out {
		out[i] = float32(buf.At(i))
	}
	return SamplesMessage{Samples: out}
}

// Bridge server message types.
const (
	CommandUpdate = "update"
)

// InboundMessage is a command pushed by the bridge server over WebSocket.
type InboundMessage struct {
	Command string   `json:"command"`
	Speed   *float64 `json:"speed,omitempty"`
	Angle   *float64 `json:"angle,omitempty"`
}

// DecodeInbound parses a WebSocket text frame. Only "update" commands are
// understood; both speed and angle must be present.
func DecodeInbound(data []byte) (drive.Command, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return drive.Command{}, fmt.Errorf("decode bridge message: %w", err)
	}
	if msg.Command != CommandUpdate {
		return drive.Command{}, fmt.Errorf("unsupported bridge command %q", msg.Command)
	}
	if msg.Speed == nil || msg.Angle == nil {
		return drive.Command{}, fmt.Errorf("update command needs speed and angle")
	}
	return drive.Command{Speed: *msg.Speed, Angle: *msg.Angle}, nil
}

// SensorDataMessage is pushed to the bridge server on every interval.
type SensorDataMessage struct {
	SensorData SensorData `json:"sensor_data"`
}

// SensorData groups the per-sensor payloads.
type SensorData struct {
	Lidar []float32 `json:"lidar"`
}

// NewSensorDataMessage snapshots the source for the bridge server.
func NewSensorDataMessage(src ScanSource) SensorDataMessage {
	return SensorDataMessage{SensorData: SensorData{Lidar: NewSamplesMessage(src).Samples}}
}
