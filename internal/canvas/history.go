package canvas

// DefaultHistoryLimit is the number of snapshots kept for undo.
const DefaultHistoryLimit = 20

// History is a bounded linear undo/redo stack of raster snapshots.
//
// Step indexes the current entry. It is -1 only while the history is empty;
// otherwise 0 <= Step < Len.
type History struct {
	entries [][]byte
	step    int
	limit   int
}

// NewHistory returns an empty history holding at most limit entries. A
// non-positive limit selects DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{step: -1, limit: limit}
}

// Record drops any redo tail, appends the snapshot and makes it current.
// The oldest entry is evicted once the limit is exceeded.
func (h *History) Record(snapshot []byte) {
	h.entries = append(h.entries[:h.step+1], snapshot)
	h.step++
	if len(h.entries) > h.limit {
		h.entries[0] = nil
		h.entries = h.entries[1:]
		h.step--
	}
}

// Undo moves the cursor back one entry and returns the new current snapshot.
func (h *History) Undo() ([]byte, bool) {
	if h.step <= 0 {
		return nil, false
	}
	h.step--
	return h.entries[h.step], true
}

// Redo moves the cursor forward one entry and returns the new current
// snapshot.
func (h *History) Redo() ([]byte, bool) {
	if h.step >= len(h.entries)-1 {
		return nil, false
	}
	h.step++
	return h.entries[h.step], true
}

// Current returns the snapshot at the cursor.
func (h *History) Current() ([]byte, bool) {
	if h.step < 0 {
		return nil, false
	}
	return h.entries[h.step], true
}

func (h *History) Len() int  { return len(h.entries) }
func (h *History) Step() int { return h.step }
