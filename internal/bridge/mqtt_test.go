package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool { return true }

func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeMQTT struct {
	mu           sync.Mutex
	connectErr   error
	publishErr   error
	timeout      bool
	connected    bool
	disconnected bool
	messages     []published
}

func (f *fakeMQTT) Connect() mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = f.connectErr == nil
	return &fakeToken{err: f.connectErr}
}

func (f *fakeMQTT) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeMQTT) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic: topic, payload: payload.([]byte)})
	return &fakeToken{err: f.publishErr, timeout: f.timeout}
}

func (f *fakeMQTT) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnected = true
}

func (f *fakeMQTT) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func TestMQTTExporter_PublishOnce(t *testing.T) {
	t.Parallel()

	client := &fakeMQTT{}
	e := NewMQTTExporter(client, newFakeSource(), "racecar/lidar/samples", time.Second)

	assert.Error(t, e.PublishOnce(), "publishing before connect fails")

	client.Connect()
	require.NoError(t, e.PublishOnce())
	require.Len(t, client.messages, 1)
	assert.Equal(t, "racecar/lidar/samples", client.messages[0].topic)

	var msg SamplesMessage
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &msg))
	assert.Len(t, msg.Samples, 1440)

	client.publishErr = errors.New("broker full")
	assert.EqualError(t, e.PublishOnce(), "broker full")

	client.publishErr = nil
	client.timeout = true
	assert.ErrorContains(t, e.PublishOnce(), "timed out")
}

func TestMQTTExporter_Run(t *testing.T) {
	t.Parallel()

	client := &fakeMQTT{}
	e := NewMQTTExporter(client, newFakeSource(), "scan", 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return client.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.True(t, client.disconnected)
}

func TestMQTTExporter_RunConnectFailure(t *testing.T) {
	t.Parallel()

	client := &fakeMQTT{connectErr: errors.New("refused")}
	e := NewMQTTExporter(client, newFakeSource(), "scan", time.Millisecond)
	err := e.Run(context.Background())
	assert.ErrorContains(t, err, "refused")
	assert.Zero(t, client.count())
}
