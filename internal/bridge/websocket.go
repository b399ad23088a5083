package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/racecar-sim/internal/drive"
	"github.com/banshee-data/racecar-sim/internal/monitoring"
)

var wsLogf = monitoring.Component("ws")

// WSClient keeps a connection to the bridge server open. Incoming update
// commands are applied to the drive; the sensor buffer is pushed every
// interval.
type WSClient struct {
	url      string
	src      ScanSource
	drive    *drive.State
	interval time.Duration

	// ReconnectDelay is the wait between connection attempts.
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
}

// NewWSClient returns a client for url.
func NewWSClient(url string, src ScanSource, d *drive.State, interval time.Duration) *WSClient {
	return &WSClient{
		url:            url,
		src:            src,
		drive:          d,
		interval:       interval,
		ReconnectDelay: 2 * time.Second,
		Dialer:         websocket.DefaultDialer,
	}
}

// Run connects, serves the connection and reconnects after failures until
// ctx is cancelled.
func (c *WSClient) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		wsLogf("connection to %s ended: %v; retrying in %s", c.url, err, c.ReconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.ReconnectDelay):
		}
	}
}

// session runs a single connection until it fails or ctx ends.
func (c *WSClient) session(ctx context.Context) error {
	conn, _, err := c.Dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	wsLogf("connected to %s", c.url)

	var (
		once    sync.Once
		closeFn = func() { once.Do(func() { conn.Close() }) }
	)
	defer closeFn()

	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop(conn) }()

	// Unblock the reader when the context ends.
	stop := context.AfterFunc(ctx, closeFn)
	defer stop()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			payload, err := json.Marshal(NewSensorDataMessage(c.src))
			if err != nil {
				return fmt.Errorf("encode sensor data: %w", err)
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

func (c *WSClient) readLoop(conn *websocket.Conn) error {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		cmd, err := DecodeInbound(data)
		if err != nil {
			wsLogf("ignoring message: %v", err)
			continue
		}
		if err := c.drive.Apply(cmd); err != nil {
			wsLogf("apply %v: %v", cmd, err)
		}
	}
}
