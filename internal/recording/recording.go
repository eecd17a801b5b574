// Package recording stores the frames a client received so a session can be
// rendered again later.
package recording

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"mindful-paint/internal/protocol"
)

// Entry is one received frame.
type Entry struct {
	OffsetMS int64  `msgpack:"offset_ms"`
	Type     string `msgpack:"type"`
	Data     []byte `msgpack:"data"`
}

// Message converts the entry back to a wire message.
func (e Entry) Message() protocol.Message {
	return protocol.Message{Type: e.Type, Data: e.Data}
}

// Writer appends entries to a stream. It is safe for concurrent use.
type Writer struct {
	mu    sync.Mutex
	enc   *msgpack.Encoder
	start time.Time
	now   func() time.Time
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: msgpack.NewEncoder(w), start: time.Now(), now: time.Now}
}

// Write records msg with its offset from the creation of the writer.
func (w *Writer) Write(msg protocol.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e := Entry{
		OffsetMS: w.now().Sub(w.start).Milliseconds(),
		Type:     msg.Type,
		Data:     msg.Data,
	}
	if err := w.enc.Encode(&e); err != nil {
		return fmt.Errorf("record %s: %w", msg.Type, err)
	}
	return nil
}

// Reader reads entries written by a Writer.
type Reader struct {
	dec *msgpack.Decoder
}

func NewReader(r io.Reader) *Reader {
	return &Reader{dec: msgpack.NewDecoder(r)}
}

// Next returns the next entry, or io.EOF at the end of the stream.
func (r *Reader) Next() (Entry, error) {
	var e Entry
	if err := r.dec.Decode(&e); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("read entry: %w", err)
	}
	return e, nil
}

// Applier renders messages, typically a canvas session.
type Applier interface {
	Apply(msg protocol.Message) error
}

// Stats summarises a replay.
type Stats struct {
	Applied  int
	Rejected int
	Duration time.Duration
}

// Replay applies every recorded entry in order. Entries the applier rejects
// are counted and skipped; a corrupt stream stops the replay.
func Replay(r io.Reader, a Applier) (Stats, error) {
	var st Stats
	rd := NewReader(r)
	for {
		e, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, err
		}
		if err := a.Apply(e.Message()); err != nil {
			st.Rejected++
		} else {
			st.Applied++
		}
		st.Duration = time.Duration(e.OffsetMS) * time.Millisecond
	}
}
