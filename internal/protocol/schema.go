package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names for WebSocket communication
const (
	EventJoinRoom   = "join-room"
	EventUserJoined = "user-joined"
	EventDraw       = "draw"
	EventDrawStart  = "draw-start"
	EventDrawEnd    = "draw-end"
	EventDrawShape  = "draw-shape"
	EventClear      = "clear-canvas"
	EventError      = "error"
)

var (
	ErrMissingRoom = errors.New("payload has no roomId")
	ErrBadRoomID   = errors.New("room id must be a JSON string")
)

// Message is the envelope for all WebSocket messages
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage encodes data as the payload of a message of the given type.
// A nil data produces a message without payload.
func NewMessage(typ string, data any) (Message, error) {
	msg := Message{Type: typ}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	msg.Data = raw
	return msg, nil
}

// Decode unmarshals the payload into dst.
func (m Message) Decode(dst any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: empty payload", m.Type)
	}
	if err := json.Unmarshal(m.Data, dst); err != nil {
		return fmt.Errorf("%s: %w", m.Type, err)
	}
	return nil
}

// IsForwarded reports whether the server relays the event verbatim to the
// other members of the payload's room.
func IsForwarded(event string) bool {
	switch event {
	case EventDraw, EventDrawStart, EventDrawEnd, EventDrawShape:
		return true
	}
	return false
}

// DrawEvent is a single point sample of a freehand stroke or spray dab.
type DrawEvent struct {
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Tool   string  `json:"tool"`
	Stroke string  `json:"stroke,omitempty"`
}

// ShapeEvent is a completed geometric shape.
type ShapeEvent struct {
	RoomID string  `json:"roomId"`
	Type   string  `json:"type"`
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
}

// StrokeEvent marks the start or the end of a freehand gesture.
type StrokeEvent struct {
	RoomID string `json:"roomId"`
	Stroke string `json:"stroke,omitempty"`
}

// ErrorPayload is sent to a client whose message was rejected.
type ErrorPayload struct {
	Error string `json:"error"`
}

// RoomOf extracts the roomId routing key from a forwarded payload without
// interpreting any other field.
func RoomOf(data json.RawMessage) (string, error) {
	var ref struct {
		RoomID string `json:"roomId"`
	}
	if len(data) == 0 {
		return "", ErrMissingRoom
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingRoom, err)
	}
	if ref.RoomID == "" {
		return "", ErrMissingRoom
	}
	return ref.RoomID, nil
}

// DecodeRoomID parses the bare room id payload of join-room and clear-canvas.
func DecodeRoomID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", ErrBadRoomID
	}
	return id, nil
}
