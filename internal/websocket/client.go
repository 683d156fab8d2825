package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/dounie/opshub/internal/domain"
)

var (
	// ErrClientClosed is returned when sending to a connection that has been closed.
	ErrClientClosed = errors.New("client connection closed")
	// ErrSendBufferFull is returned when a client's outbound queue is full.
	ErrSendBufferFull = errors.New("client send buffer full")
)

const (
	// DefaultSendBuffer is the number of outbound frames queued per client.
	DefaultSendBuffer = 256
	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second
	// DefaultMaxMessageSize is the largest inbound frame accepted.
	DefaultMaxMessageSize = 64 * 1024
)

// Client is a single connected user. Outbound frames are queued on send and
// written by one writer goroutine; inbound frames are read by one reader.
type Client struct {
	identity     domain.Identity
	conn         *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration
	logger       *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient wraps an accepted connection for the given identity.
func NewClient(identity domain.Identity, conn *websocket.Conn, sendBuffer int, writeTimeout time.Duration) *Client {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Client{
		identity:     identity,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		logger:       slog.Default().With("component", "ws_client", "user_id", identity.UserID),
	}
}

// UserID returns the authenticated user ID of the client.
func (c *Client) UserID() string { return c.identity.UserID }

// Role returns the role of the client's user.
func (c *Client) Role() domain.Role { return c.identity.Role }

// Identity returns the identity the client connected with.
func (c *Client) Identity() domain.Identity { return c.identity }

// Send queues a frame without blocking.
// It uses a read lock so the channel cannot be closed concurrently.
func (c *Client) Send(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the writer, which then closes the underlying connection.
// Calling Close more than once is safe.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drains the send queue onto the connection until the queue is
// closed or a write fails.
func (c *Client) writePump() {
	defer c.conn.Close(websocket.StatusNormalClosure, "connection closed")

	for frame := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			c.logger.Error("WebSocket write error", "error", err)
			return
		}
	}
}

// readPump reads frames until the connection fails and hands each one to
// onFrame. Only text and binary payloads are forwarded; the caller decides
// what a malformed payload means.
func (c *Client) readPump(ctx context.Context, onFrame func([]byte)) {
	for {
		_, payload, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				c.logger.Info("WebSocket closed normally by client")
			case errors.Is(err, io.EOF) || errors.Is(err, context.Canceled):
				c.logger.Debug("WebSocket read loop ended", "error", err)
			default:
				c.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}
		onFrame(payload)
	}
}
