// Package client connects a canvas session to the relay over a websocket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mindful-paint/internal/logger"
	"mindful-paint/internal/protocol"
)

var (
	ErrQueueFull = errors.New("send queue is full")
	ErrClosed    = errors.New("client is closed")
)

const (
	writeWait             = 10 * time.Second
	defaultPingPeriod     = 54 * time.Second
	defaultMaxMessageSize = 64 * 1024
	defaultSendBuffer     = 256
)

type Options struct {
	SendBuffer     int
	MaxMessageSize int64
	PingPeriod     time.Duration
	Logger         *slog.Logger
}

// Client manages the websocket connection to the relay. Emit never blocks,
// so it can be called while the canvas holds its lock.
type Client struct {
	conn     *websocket.Conn
	incoming chan protocol.Message
	outgoing chan []byte
	done     chan struct{}
	once     sync.Once
	log      *slog.Logger

	pingPeriod time.Duration
	pongWait   time.Duration
}

// WebsocketURL turns a server address such as "http://host:3000" or
// "host:3000" into the relay endpoint URL.
func WebsocketURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "ws://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// Dial connects to the relay and starts the pumps.
func Dial(ctx context.Context, server string, opts Options) (*Client, error) {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaultPingPeriod
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	endpoint, err := WebsocketURL(server)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:       conn,
		incoming:   make(chan protocol.Message, opts.SendBuffer),
		outgoing:   make(chan []byte, opts.SendBuffer),
		done:       make(chan struct{}),
		log:        opts.Logger.With("server", endpoint),
		pingPeriod: opts.PingPeriod,
		pongWait:   opts.PingPeriod * 10 / 9,
	}
	c.conn.SetReadLimit(opts.MaxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return c, nil
}

// Emit queues a message for the relay.
func (c *Client) Emit(event string, data any) error {
	msg, err := protocol.NewMessage(event, data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outgoing <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// Incoming returns the messages received from the relay. It is closed when
// the connection ends.
func (c *Client) Incoming() <-chan protocol.Message {
	return c.incoming
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("relay connection lost", logger.Err(err))
			}
			return
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Warn("relay write failed", logger.Err(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
