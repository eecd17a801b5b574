package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mindful-paint/internal/logger"
	"mindful-paint/internal/protocol"
	"mindful-paint/internal/relay"
)

const writeWait = 10 * time.Second

// Client is one websocket connection. It implements relay.Peer.
type Client struct {
	id     string
	Conn   *websocket.Conn
	send   chan []byte
	closed bool
	mu     sync.Mutex
	log    *slog.Logger
}

func (c *Client) ID() string { return c.id }

// Send queues a frame for the write pump. A full queue drops the frame.
func (c *Client) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) sendError(err error) {
	msg, encErr := protocol.NewMessage(protocol.EventError, protocol.ErrorPayload{Error: err.Error()})
	if encErr != nil {
		return
	}
	frame, encErr := json.Marshal(msg)
	if encErr != nil {
		return
	}
	c.Send(frame)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logger.Err(err))
		return
	}

	id := uuid.NewString()
	client := &Client{
		id:   id,
		Conn: conn,
		send: make(chan []byte, s.cfg.Relay.SendBuffer),
		log:  s.log.With("conn", id),
	}
	s.track(client)
	defer s.untrack(client)
	client.log.Info("client connected", "remote_ip", c.ClientIP())

	pingPeriod := s.cfg.Relay.PingPeriod
	go client.writePump(pingPeriod)
	client.readPump(c.Request.Context(), s.svc, s.cfg.Relay.MaxMessageSize, pingPeriod*10/9)
}

// writePump pumps frames from the send queue to the websocket and keeps the
// connection alive with pings.
func (c *Client) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps frames from the websocket into the relay until the
// connection fails. Rejected messages are answered with an error frame.
func (c *Client) readPump(ctx context.Context, svc *relay.Service, maxMessageSize int64, pongWait time.Duration) {
	defer func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		svc.Disconnect(c)
		c.Conn.Close()
		c.log.Info("client disconnected")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", logger.Err(err))
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("malformed frame", logger.Err(err))
			c.sendError(err)
			continue
		}
		if err := svc.Handle(ctx, c, msg); err != nil {
			c.log.Debug("message rejected", "type", msg.Type, logger.Err(err))
			c.sendError(err)
		}
	}
}
