package client

import (
	"context"
	"log/slog"
	"sync/atomic"

	"mindful-paint/internal/logger"
	"mindful-paint/internal/protocol"
)

// Source yields messages received from the relay.
type Source interface {
	Incoming() <-chan protocol.Message
}

// Applier renders relay messages, typically a canvas session.
type Applier interface {
	Apply(msg protocol.Message) error
}

// Recorder stores received messages for later replay.
type Recorder interface {
	Write(msg protocol.Message) error
}

// Handler routes incoming messages to the canvas, the recorder and the
// optional callbacks.
type Handler struct {
	src      Source
	canvas   Applier
	recorder Recorder
	log      *slog.Logger

	OnUserJoined func(connID string)
	OnError      func(message string)

	applied  atomic.Int64
	rejected atomic.Int64
}

type HandlerOption func(*Handler)

func WithRecorder(r Recorder) HandlerOption {
	return func(h *Handler) { h.recorder = r }
}

func WithHandlerLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) { h.log = log }
}

func NewHandler(src Source, canvas Applier, opts ...HandlerOption) *Handler {
	h := &Handler{src: src, canvas: canvas, log: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run dispatches messages until ctx is done or the source is closed.
func (h *Handler) Run(ctx context.Context) error {
	in := h.src.Incoming()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			h.handle(msg)
		}
	}
}

func (h *Handler) handle(msg protocol.Message) {
	switch msg.Type {
	case protocol.EventError:
		var payload protocol.ErrorPayload
		if err := msg.Decode(&payload); err != nil {
			h.log.Debug("malformed error frame", logger.Err(err))
			return
		}
		h.log.Warn("relay rejected a message", "reason", payload.Error)
		if h.OnError != nil {
			h.OnError(payload.Error)
		}
		return
	case protocol.EventUserJoined:
		var connID string
		if err := msg.Decode(&connID); err != nil {
			h.log.Debug("malformed user-joined frame", logger.Err(err))
		}
		h.log.Info("user joined the room", "conn", connID)
		if h.OnUserJoined != nil {
			h.OnUserJoined(connID)
		}
	}

	if h.recorder != nil {
		if err := h.recorder.Write(msg); err != nil {
			h.log.Warn("recording failed", logger.Err(err))
		}
	}

	if err := h.canvas.Apply(msg); err != nil {
		h.rejected.Add(1)
		h.log.Debug("message not rendered", "type", msg.Type, logger.Err(err))
		return
	}
	h.applied.Add(1)
}

// Counts returns how many messages were rendered and how many were rejected.
func (h *Handler) Counts() (applied, rejected int64) {
	return h.applied.Load(), h.rejected.Load()
}
