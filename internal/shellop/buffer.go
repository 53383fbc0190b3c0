package shellop

import "sync"

// line is one captured output line, tagged with its source stream so the
// result can be returned interleaved or stdout-only.
type line struct {
	text   string
	stderr bool
}

// lineBuffer is a capped, ordered line store shared by the two drain
// goroutines. When the cap is exceeded the oldest line is evicted; appending
// never blocks, so a cap can never stall a drain loop.
type lineBuffer struct {
	mu    sync.Mutex
	cap   int // 0 = unbounded
	lines []line
}

func newLineBuffer(cap int) *lineBuffer {
	return &lineBuffer{cap: cap}
}

func (b *lineBuffer) append(text string, stderr bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line{text: text, stderr: stderr})
	if b.cap > 0 && len(b.lines) > b.cap {
		// Evict oldest. Copy down rather than reslicing so the backing
		// array does not pin evicted lines.
		n := copy(b.lines, b.lines[len(b.lines)-b.cap:])
		b.lines = b.lines[:n]
	}
}

// snapshot returns a copy of the buffered lines in arrival order. It is
// non-blocking and may be incomplete while draining is still in progress.
func (b *lineBuffer) snapshot() []line {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]line, len(b.lines))
	copy(out, b.lines)
	return out
}
