package api

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openblock-labs/hwbridge/internal/infrastructure/logging"
)

// wsClient owns one WebSocket connection's pumps and send buffer.
// It implements session.Transport.
type wsClient struct {
	ws     *websocket.Conn
	send   chan []byte
	logger *logging.Logger

	maxMessageSize int64
	pingInterval   time.Duration
	pongTimeout    time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func newWSClient(ws *websocket.Conn, bufferSize int, maxMessageSize int64, pingInterval, pongTimeout time.Duration, logger *logging.Logger) *wsClient {
	return &wsClient{
		ws:             ws,
		send:           make(chan []byte, bufferSize),
		logger:         logger,
		maxMessageSize: maxMessageSize,
		pingInterval:   pingInterval,
		pongTimeout:    pongTimeout,
		done:           make(chan struct{}),
	}
}

// Send marshals a frame and enqueues it for the write pump.
// A full buffer or a closed client drops the frame; a slow client must
// never stall a handler or a telemetry timer.
func (c *wsClient) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}

	select {
	case <-c.done:
		return fmt.Errorf("connection closed")
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send buffer full, dropping frame")
		return fmt.Errorf("send buffer full")
	}
}

// close shuts the write pump down. Safe to call from both pumps.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump consumes inbound messages and hands them to onMessage.
// It returns when the peer disconnects or errors. The caller is
// responsible for unregistering the connection afterwards.
func (c *wsClient) readPump(onMessage func(data []byte)) {
	defer c.close()

	c.ws.SetReadLimit(c.maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.pingInterval + c.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.pingInterval + c.pongTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}
		onMessage(data)
	}
}

// writePump drains the send channel to the wire and keeps the connection
// alive with periodic pings. It owns all writes to the socket.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("websocket write error", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
