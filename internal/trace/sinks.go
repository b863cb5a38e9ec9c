package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Stream writes every accepted event to w. Write errors are dropped so a
// broken trace never fails a run.
type Stream struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	level  Level
	format Format
	start  time.Time
}

// NewStream builds a Stream. w is closed by Close when it is an io.Closer.
func NewStream(w io.Writer, level Level, format Format) *Stream {
	s := &Stream{
		w:      bufio.NewWriter(w),
		level:  level,
		format: format,
		start:  time.Now(),
	}
	if c, ok := w.(io.Closer); ok && !isStdStream(w) {
		s.closer = c
	}
	return s
}

func (s *Stream) Emit(ev *Event) {
	if ev == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.format {
	case FormatNDJSON:
		data, err := formatNDJSON(ev)
		if err != nil {
			return
		}
		_, _ = s.w.Write(data)
	default:
		_, _ = s.w.WriteString(formatText(ev, s.start))
	}
	_ = s.w.WriteByte('\n')
	if ev.Kind == KindHeartbeat {
		_ = s.w.Flush()
	}
}

func (s *Stream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

func (s *Stream) Close() error {
	err := s.Flush()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

func (s *Stream) Level() Level  { return s.level }
func (s *Stream) Enabled() bool { return s.level > LevelOff }

// Ring keeps the last n events in memory.
type Ring struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	full  bool
	level Level
}

func NewRing(n int, level Level) *Ring {
	if n <= 0 {
		n = defaultRingSize
	}
	return &Ring{buf: make([]Event, n), level: level}
}

func (r *Ring) Emit(ev *Event) {
	if ev == nil {
		return
	}
	r.mu.Lock()
	r.buf[r.next] = *ev
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// Snapshot returns the retained events, oldest first.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Event(nil), r.buf[:r.next]...)
	}
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Dump writes the snapshot as text, one event per line.
func (r *Ring) Dump(w io.Writer) error {
	events := r.Snapshot()
	if len(events) == 0 {
		return nil
	}
	start := events[0].Time
	for i := range events {
		if _, err := fmt.Fprintln(w, formatText(&events[i], start)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Ring) Flush() error  { return nil }
func (r *Ring) Close() error  { return nil }
func (r *Ring) Level() Level  { return r.level }
func (r *Ring) Enabled() bool { return r.level > LevelOff }

// Multi fans events out to several tracers.
type Multi struct {
	tracers []Tracer
	level   Level
}

func NewMulti(level Level, tracers ...Tracer) *Multi {
	return &Multi{tracers: tracers, level: level}
}

func (m *Multi) Emit(ev *Event) {
	for _, t := range m.tracers {
		t.Emit(ev)
	}
}

func (m *Multi) Flush() error {
	var errs []error
	for _, t := range m.tracers {
		errs = append(errs, t.Flush())
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, t := range m.tracers {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

func (m *Multi) Level() Level  { return m.level }
func (m *Multi) Enabled() bool { return m.level > LevelOff }

// Ring returns the first ring among the fanned-out tracers, if any.
func (m *Multi) Ring() *Ring {
	for _, t := range m.tracers {
		if r, ok := t.(*Ring); ok {
			return r
		}
	}
	return nil
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop discards everything.
var Nop Tracer = nopTracer{}

func isStdStream(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (f == os.Stdout || f == os.Stderr)
}
