package shellop

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// maxLineBytes bounds a single captured line (1MB). Longer lines are
// truncated to this size but still consumed from the pipe in full.
const maxLineBytes = 1 << 20

// aggregator drains a process's stdout and stderr concurrently, line by
// line, until both reach EOF. Each stream gets its own goroutine so a full
// pipe buffer on one side never starves the other. Lines are appended to the
// shared buffer and, when streaming is enabled, mirrored to the logger as
// they arrive.
type aggregator struct {
	buf         *lineBuffer
	logger      *slog.Logger
	runID       string
	stream      bool
	stderrLevel slog.Level
	wg          sync.WaitGroup
}

func newAggregator(buf *lineBuffer, logger *slog.Logger, runID string, stream bool, stderrLevel slog.Level) *aggregator {
	return &aggregator{
		buf:         buf,
		logger:      logger,
		runID:       runID,
		stream:      stream,
		stderrLevel: stderrLevel,
	}
}

// drain starts both reader goroutines. wait blocks until they hit EOF.
func (a *aggregator) drain(stdout, stderr io.Reader) {
	a.wg.Add(2)
	go a.consume(stdout, false)
	go a.consume(stderr, true)
}

func (a *aggregator) wait() {
	a.wg.Wait()
}

// consume reads r to EOF no matter what the content looks like: a drain that
// stops early leaves the child blocked on a full pipe and the run wedged.
func (a *aggregator) consume(r io.Reader, isStderr bool) {
	defer a.wg.Done()

	stream := "stdout"
	level := slog.LevelInfo
	if isStderr {
		stream = "stderr"
		level = a.stderrLevel
	}

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		text, truncated, err := readLine(br)
		if text != "" || err == nil {
			if truncated {
				a.logger.Debug("output line truncated", "run", a.runID, "stream", stream, "limit", maxLineBytes)
			}
			if a.stream {
				a.logger.Log(context.Background(), level, text, "run", a.runID, "stream", stream)
			}
			a.buf.append(text, isStderr)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				// Pipe read errors usually mean the process was killed
				// mid-write; the exit code tells the real story.
				a.logger.Debug("stream read ended", "run", a.runID, "stream", stream, "err", err)
			}
			return
		}
	}
}

// readLine assembles one line, stripping the terminator. Content beyond
// maxLineBytes is dropped, not left in the pipe, so an oversized line never
// stalls the reader. err is io.EOF once the stream is exhausted; a line
// without a trailing newline is still returned.
func readLine(br *bufio.Reader) (text string, truncated bool, err error) {
	var b strings.Builder
	for {
		chunk, readErr := br.ReadSlice('\n')
		if readErr == nil {
			// Delimiter found; chunk ends in '\n'.
			truncated = writeCapped(&b, chunk[:len(chunk)-1]) || truncated
			return strings.TrimSuffix(b.String(), "\r"), truncated, nil
		}
		truncated = writeCapped(&b, chunk) || truncated
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		return b.String(), truncated, readErr
	}
}

// writeCapped appends chunk to b up to maxLineBytes, reporting whether
// anything was dropped.
func writeCapped(b *strings.Builder, chunk []byte) bool {
	room := maxLineBytes - b.Len()
	if room <= 0 {
		return len(chunk) > 0
	}
	if len(chunk) > room {
		b.Write(chunk[:room])
		return true
	}
	b.Write(chunk)
	return false
}
