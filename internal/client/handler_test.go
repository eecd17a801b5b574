package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"mindful-paint/internal/canvas"
	"mindful-paint/internal/protocol"
)

type chanSource chan protocol.Message

func (c chanSource) Incoming() <-chan protocol.Message { return c }

type memRecorder struct {
	msgs []protocol.Message
}

func (r *memRecorder) Write(msg protocol.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustMessage(t *testing.T, typ string, data any) protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(typ, data)
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestHandlerRoutesMessages(t *testing.T) {
	session, err := canvas.NewSession(canvas.Options{Width: 200, Height: 200, Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	src := make(chanSource, 8)
	rec := &memRecorder{}
	h := NewHandler(src, session, WithRecorder(rec), WithHandlerLogger(quiet()))

	var joined []string
	var reasons []string
	h.OnUserJoined = func(connID string) { joined = append(joined, connID) }
	h.OnError = func(reason string) { reasons = append(reasons, reason) }

	src <- mustMessage(t, protocol.EventUserJoined, "conn-42")
	src <- mustMessage(t, protocol.EventDraw, protocol.DrawEvent{RoomID: "r", X: 50, Y: 50, Color: "#000000", Width: 10, Tool: "pen", Stroke: "s"})
	src <- mustMessage(t, protocol.EventDraw, protocol.DrawEvent{RoomID: "r", X: 50, Y: 50, Color: "#000000", Width: 10, Tool: "laser"})
	src <- mustMessage(t, protocol.EventError, protocol.ErrorPayload{Error: "room id must not be empty"})
	close(src)

	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if len(joined) != 1 || joined[0] != "conn-42" {
		t.Errorf("OnUserJoined got %v", joined)
	}
	if len(reasons) != 1 || reasons[0] != "room id must not be empty" {
		t.Errorf("OnError got %v", reasons)
	}
	if applied, rejected := h.Counts(); applied != 2 || rejected != 1 {
		t.Errorf("counts = %d applied, %d rejected", applied, rejected)
	}
	// error frames are answers to this client, not room traffic
	if len(rec.msgs) != 3 {
		t.Errorf("recorded %d messages, want 3", len(rec.msgs))
	}
	if a := session.Strokes().RGBAAt(50, 50).A; a == 0 {
		t.Error("remote draw was not rendered")
	}
}

func TestHandlerStopsOnContext(t *testing.T) {
	session, err := canvas.NewSession(canvas.Options{Width: 10, Height: 10, Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	h := NewHandler(make(chanSource), session, WithHandlerLogger(quiet()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v", err)
	}
}
