package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mindful-paint/internal/logger"
	"mindful-paint/internal/protocol"
)

var (
	ErrEmptyRoom    = errors.New("room id must not be empty")
	ErrUnknownEvent = errors.New("unknown event type")
)

const publishTimeout = 2 * time.Second

// Peer is a connection that can receive relayed frames.
type Peer interface {
	ID() string
	// Send queues an encoded frame without blocking. It returns false when
	// the frame was dropped.
	Send(frame []byte) bool
}

// RoomInfo describes the membership of a room.
type RoomInfo struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// Service owns the room membership map and routes events between peers.
type Service struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]Peer
	joined map[string]map[string]struct{} // peer id -> room ids

	bus    Bus
	origin string
	log    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBus fans deliveries out to other relay instances.
func WithBus(b Bus) Option {
	return func(s *Service) { s.bus = b }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithOrigin overrides the generated instance id used on the bus.
func WithOrigin(id string) Option {
	return func(s *Service) { s.origin = id }
}

// NewService creates a relay with no rooms.
func NewService(opts ...Option) *Service {
	s := &Service{
		rooms:  make(map[string]map[string]Peer),
		joined: make(map[string]map[string]struct{}),
		origin: uuid.NewString(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Origin returns the instance id stamped on bus envelopes.
func (s *Service) Origin() string { return s.origin }

// Handle dispatches one inbound message from sender.
func (s *Service) Handle(ctx context.Context, sender Peer, msg protocol.Message) error {
	switch {
	case msg.Type == protocol.EventJoinRoom:
		roomID, err := protocol.DecodeRoomID(msg.Data)
		if err != nil {
			return err
		}
		return s.Join(ctx, sender, roomID)
	case msg.Type == protocol.EventClear:
		roomID, err := protocol.DecodeRoomID(msg.Data)
		if err != nil {
			return err
		}
		return s.Clear(ctx, sender, roomID)
	case protocol.IsForwarded(msg.Type):
		return s.Forward(ctx, sender, msg.Type, msg.Data)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
}

// Join adds the peer to the room, creating the room if absent, and tells the
// existing members about the newcomer. A peer may be a member of several
// rooms at once.
func (s *Service) Join(ctx context.Context, p Peer, roomID string) error {
	if roomID == "" {
		return ErrEmptyRoom
	}

	s.mu.Lock()
	members, ok := s.rooms[roomID]
	if !ok {
		members = make(map[string]Peer)
		s.rooms[roomID] = members
	}
	members[p.ID()] = p

	rooms, ok := s.joined[p.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		s.joined[p.ID()] = rooms
	}
	rooms[roomID] = struct{}{}
	s.mu.Unlock()

	s.log.Info("peer joined room", "peer", p.ID(), "room", roomID)

	frame, err := encode(protocol.EventUserJoined, p.ID())
	if err != nil {
		return err
	}
	s.deliver(ctx, roomID, frame, p.ID(), false)
	return nil
}

// Forward relays a drawing event verbatim to every other member of the
// payload's room. The sender does not get an echo.
func (s *Service) Forward(ctx context.Context, sender Peer, event string, data json.RawMessage) error {
	if !protocol.IsForwarded(event) {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	roomID, err := protocol.RoomOf(data)
	if err != nil {
		return err
	}

	s.deliver(ctx, roomID, rawFrame(event, data), sender.ID(), false)
	return nil
}

// Clear tells every member of the room, the sender included, to clear its
// canvas.
func (s *Service) Clear(ctx context.Context, sender Peer, roomID string) error {
	if roomID == "" {
		return ErrEmptyRoom
	}
	frame, err := encode(protocol.EventClear, nil)
	if err != nil {
		return err
	}
	s.log.Debug("clear canvas", "peer", sender.ID(), "room", roomID)
	s.deliver(ctx, roomID, frame, sender.ID(), true)
	return nil
}

// Disconnect prunes the peer from every room it joined. Rooms left without
// members are dropped; a later join recreates them.
func (s *Service) Disconnect(p Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for roomID := range s.joined[p.ID()] {
		members := s.rooms[roomID]
		delete(members, p.ID())
		if len(members) == 0 {
			delete(s.rooms, roomID)
		}
	}
	delete(s.joined, p.ID())
}

// Members returns the sorted member ids of a room.
func (s *Service) Members(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.rooms[roomID]))
	for id := range s.rooms[roomID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rooms returns a snapshot of all rooms sorted by id.
func (s *Service) Rooms() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RoomInfo, 0, len(s.rooms))
	for roomID, members := range s.rooms {
		info := RoomInfo{ID: roomID, Members: make([]string, 0, len(members))}
		for id := range members {
			info.Members = append(info.Members, id)
		}
		sort.Strings(info.Members)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run consumes deliveries published by other instances until ctx is done.
// Without a bus it just waits for ctx.
func (s *Service) Run(ctx context.Context) error {
	if s.bus == nil {
		<-ctx.Done()
		return nil
	}
	err := s.bus.Subscribe(ctx, s.receive)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) receive(env Envelope) {
	if env.Origin == s.origin {
		return
	}
	exclude := env.Sender
	if env.ToSender {
		exclude = ""
	}
	s.broadcast(env.Room, env.Frame, exclude)
}

// deliver sends the frame to the local members of the room and publishes it
// for the other instances.
func (s *Service) deliver(ctx context.Context, roomID string, frame []byte, sender string, toSender bool) {
	exclude := sender
	if toSender {
		exclude = ""
	}
	s.broadcast(roomID, frame, exclude)

	if s.bus == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	env := Envelope{
		Origin:   s.origin,
		Sender:   sender,
		Room:     roomID,
		Frame:    frame,
		ToSender: toSender,
	}
	if err := s.bus.Publish(pctx, env); err != nil {
		s.log.Warn("bus publish failed", "room", roomID, logger.Err(err))
	}
}

func (s *Service) broadcast(roomID string, frame []byte, exclude string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, p := range s.rooms[roomID] {
		if id == exclude {
			continue
		}
		if !p.Send(frame) {
			s.log.Debug("frame dropped", "peer", id, "room", roomID)
		}
	}
}

// rawFrame wraps data in the message envelope without re-encoding it, so
// peers receive the payload byte for byte.
func rawFrame(event string, data json.RawMessage) []byte {
	frame := make([]byte, 0, len(event)+len(data)+22)
	frame = append(frame, `{"type":"`...)
	frame = append(frame, event...)
	frame = append(frame, `","data":`...)
	frame = append(frame, data...)
	return append(frame, '}')
}

func encode(event string, data any) ([]byte, error) {
	msg, err := protocol.NewMessage(event, data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}
