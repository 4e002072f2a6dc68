// Package journal appends hover transitions to date-partitioned JSONL files.
package journal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("journal: closed")

// ErrFull is returned when the write buffer is saturated. The entry is dropped.
var ErrFull = errors.New("journal: buffer full")

// Entry is one journal line.
type Entry struct {
	Time     time.Time `json:"time"`
	Source   string    `json:"source,omitempty"`
	Event    string    `json:"event"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Previous string    `json:"previous,omitempty"`
	Active   string    `json:"active,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Writes   int       `json:"writes"`
}

// Options tunes a Writer. Zero values select the defaults.
type Options struct {
	BufferSize int
	MaxSizeMB  int
	MaxAgeDays int
	// Name is the file base name inside each date directory.
	Name string
	// Now is overridable for tests.
	Now func() time.Time
}

// Writer queues entries and writes them from a single goroutine.
// Files live at <dir>/<YYYY-MM-DD>/<name>.jsonl and rotate by size.
type Writer struct {
	dir  string
	opts Options

	entries chan Entry
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	mu   sync.Mutex
	date string
	out  *lumberjack.Logger
}

// New starts a writer rooted at dir.
func New(dir string, opts Options) *Writer {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 20
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = 30
	}
	if opts.Name == "" {
		opts.Name = "transitions"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w := &Writer{
		dir:     dir,
		opts:    opts,
		entries: make(chan Entry, opts.BufferSize),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Write queues e without blocking. A zero Time is stamped with Now.
func (w *Writer) Write(e Entry) error {
	if e.Time.IsZero() {
		e.Time = w.opts.Now().UTC()
	}
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case w.entries <- e:
		return nil
	case <-w.done:
		return ErrClosed
	default:
		slog.Warn("journal buffer full, dropping entry", "event", e.Event)
		return ErrFull
	}
}

// Close flushes queued entries and closes the current file.
func (w *Writer) Close() error {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		return nil
	}
	err := w.out.Close()
	w.out = nil
	return err
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case e := <-w.entries:
			w.write(e)
		case <-w.done:
			for {
				select {
				case e := <-w.entries:
					w.write(e)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) write(e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal journal entry", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := e.Time.UTC().Format("2006-01-02")
	if date != w.date || w.out == nil {
		if err := w.rotate(date); err != nil {
			slog.Error("failed to open journal file", "error", err, "date", date)
			return
		}
	}
	if _, err := w.out.Write(append(data, '\n')); err != nil {
		slog.Error("failed to write journal entry", "error", err)
	}
}

func (w *Writer) rotate(date string) error {
	if w.out != nil {
		if err := w.out.Close(); err != nil {
			slog.Debug("failed to close journal file", "error", err)
		}
		w.out = nil
	}
	dir := filepath.Join(w.dir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w.out = &lumberjack.Logger{
		Filename:   filepath.Join(dir, w.opts.Name+".jsonl"),
		MaxSize:    w.opts.MaxSizeMB,
		MaxBackups: 100,
		MaxAge:     w.opts.MaxAgeDays,
	}
	w.date = date
	slog.Info("opened journal file", "file", w.out.Filename)
	return nil
}

// Path returns the file entries stamped at t are written to.
func (w *Writer) Path(t time.Time) string {
	return filepath.Join(w.dir, t.UTC().Format("2006-01-02"), w.opts.Name+".jsonl")
}
