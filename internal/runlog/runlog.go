// Package runlog implements the append-only run log shared by all build workers.
// A single goroutine owns the file; workers hand it complete blocks of lines over a
// channel so that output from concurrent builds never interleaves mid-line.
package runlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TimeFormat prefixes every line written to the log.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("run log is closed")

// Line is a single line of build output and the moment it was read.
type Line struct {
	At   time.Time
	Text string
}

type block struct {
	source string
	lines  []Line
}

// Writer serializes appends to one underlying writer.
type Writer struct {
	out    io.Writer
	closer io.Closer
	blocks chan block
	done   chan struct{}
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the log file at path in append mode and starts the writer.
func Open(path string, logger *slog.Logger) (*Writer, func(), error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, func() {}, fmt.Errorf("failed to create run log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open run log %s: %w", path, err)
	}
	w := newWriter(f, f, logger)
	return w, func() {
		if err := w.Close(); err != nil {
			logger.Error("failed to close run log", "path", path, "error", err)
		}
	}, nil
}

// New starts a writer over out. Closing the writer does not close out.
func New(out io.Writer, logger *slog.Logger) *Writer {
	return newWriter(out, nil, logger)
}

func newWriter(out io.Writer, closer io.Closer, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		out:    out,
		closer: closer,
		blocks: make(chan block, 64),
		done:   make(chan struct{}),
		logger: logger,
	}
	go w.loop()
	return w
}

// Append queues lines for writing as one contiguous block tagged with source.
// It blocks only while the internal buffer is full.
func (w *Writer) Append(source string, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	w.blocks <- block{source: source, lines: lines}
	return nil
}

// Close flushes pending blocks and stops the writer goroutine.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.blocks)
	w.mu.Unlock()

	<-w.done
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

func (w *Writer) loop() {
	defer close(w.done)
	buf := bufio.NewWriter(w.out)
	for b := range w.blocks {
		for _, l := range b.lines {
			fmt.Fprintf(buf, "%s [%s] %s\n", l.At.Format(TimeFormat), b.source, l.Text)
		}
		if err := buf.Flush(); err != nil {
			w.logger.Error("failed to write run log block", "source", b.source, "lines", len(b.lines), "error", err)
		}
	}
}
