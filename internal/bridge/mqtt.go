package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/racecar-sim/internal/monitoring"
)

var mqttLogf = monitoring.Component("mqtt")

// MQTTClient is the part of mqtt.Client the exporter uses.
type MQTTClient interface {
	Connect() mqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// NewMQTTClient builds an auto-reconnecting paho client for broker
// (for example "tcp://localhost:1883").
func NewMQTTClient(broker, clientID string) MQTTClient {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		mqttLogf("connected to %s", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		mqttLogf("lost connection to %s: %v", broker, err)
	})
	return mqtt.NewClient(opts)
}

// MQTTExporter publishes the samples JSON to a topic at a fixed interval.
type MQTTExporter struct {
	client   MQTTClient
	src      ScanSource
	topic    string
	interval time.Duration
	timeout  time.Duration
}

// NewMQTTExporter returns an exporter; it does not connect until Run.
func NewMQTTExporter(client MQTTClient, src ScanSource, topic string, interval time.Duration) *MQTTExporter {
	return &MQTTExporter{client: client, src: src, topic: topic, interval: interval, timeout: 2 * time.Second}
}

// Run connects and publishes until ctx is cancelled. Only the initial
// connection failure is returned; publish failures are logged and the next
// interval tries again.
func (e *MQTTExporter) Run(ctx context.Context) error {
	if token := e.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	defer e.client.Disconnect(250)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	var published uint64
	for {
		select {
		case <-ctx.Done():
			mqttLogf("exporter stopped after %d messages", published)
			return nil
		case <-ticker.C:
			if err := e.PublishOnce(); err != nil {
				mqttLogf("publish to %s failed: %v", e.topic, err)
				continue
			}
			published++
		}
	}
}

// PublishOnce sends the current buffer.
func (e *MQTTExporter) PublishOnce() error {
	if !e.client.IsConnected() {
		return fmt.Errorf("not connected")
	}
	payload, err := json.Marshal(NewSamplesMessage(e.src))
	if err != nil {
		return fmt.Errorf("encode samples: %w", err)
	}
	token := e.client.Publish(e.topic, 0, false, payload)
	if !token.WaitTimeout(e.timeout) {
		return fmt.Errorf("publish timed out after %s", e.timeout)
	}
	return token.Error()
}
