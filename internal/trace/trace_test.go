package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"off", LevelOff, false},
		{"ERROR", LevelError, false},
		{"phase", LevelPhase, false},
		{"Detail", LevelDetail, false},
		{"debug", LevelDebug, false},
		{"loud", LevelOff, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopeDriver, true},
		{LevelPhase, ScopeMixin, false},
		{LevelDetail, ScopeMixin, true},
		{LevelDetail, ScopeDirective, false},
		{LevelDebug, ScopeDirective, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%v.ShouldEmit(%v) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestSpansNest(t *testing.T) {
	ring := NewRing(16, LevelDebug)
	run := Begin(ring, ScopeDriver, "generate", 0)
	mixin := Begin(ring, ScopeMixin, "CTMixin_$class_1$_0", run.ID())
	mixin.WithExtra("methods", "3").End("ok")
	run.End("")

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[1].ParentID != events[0].SpanID {
		t.Errorf("mixin parent = %d, want %d", events[1].ParentID, events[0].SpanID)
	}
	if events[2].Kind != KindSpanEnd || events[2].Extra["methods"] != "3" || events[2].Detail != "ok" {
		t.Errorf("unexpected mixin end event: %+v", events[2])
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("sequence not increasing at %d", i)
		}
	}
}

func TestSpanFilteredByLevel(t *testing.T) {
	ring := NewRing(8, LevelPhase)
	s := Begin(ring, ScopeDirective, "trampoline", 0)
	if s.ID() != 0 {
		t.Fatalf("filtered span has id %d", s.ID())
	}
	s.WithExtra("k", "v").End("done")
	if n := len(ring.Snapshot()); n != 0 {
		t.Fatalf("filtered span emitted %d events", n)
	}
}

func TestRingWrapsOldestFirst(t *testing.T) {
	ring := NewRing(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeDriver, name, "", 0)
	}
	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Name)
	}
	if got := strings.Join(names, ","); got != "c,d,e" {
		t.Fatalf("snapshot = %s, want c,d,e", got)
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 3 {
		t.Errorf("dump has %d lines, want 3", lines)
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDebug, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeMixin, "CTMixin_$class_2$_1", 0).End("written")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev["kind"] != "end" || ev["scope"] != "mixin" || ev["detail"] != "written" {
		t.Errorf("unexpected event: %v", ev)
	}
}

func TestStreamText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStream(&buf, LevelDetail, FormatText)
	Begin(tr, ScopeDriver, "generate", 0).End("")
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "-> driver generate") || !strings.Contains(out, "<- driver generate") {
		t.Fatalf("unexpected text output:\n%s", out)
	}
}

func TestNewModes(t *testing.T) {
	tr, err := New(Config{Level: LevelOff, Mode: ModeBoth})
	if err != nil || tr != Nop {
		t.Fatalf("off level: got %v, %v", tr, err)
	}
	tr, err = New(Config{Level: LevelDebug, Mode: ModeBoth, Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	multi, ok := tr.(*Multi)
	if !ok || multi.Ring() == nil {
		t.Fatalf("both mode built %T", tr)
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("empty context should yield Nop")
	}
	ring := NewRing(4, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatal("tracer not carried by context")
	}
}

func TestHeartbeat(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("disabled tracer should not start a heartbeat")
	}
	ring := NewRing(64, LevelPhase)
	h := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	events := ring.Snapshot()
	if len(events) == 0 {
		t.Fatal("no heartbeat observed")
	}
	if events[0].Kind != KindHeartbeat {
		t.Errorf("kind = %v, want heartbeat", events[0].Kind)
	}
}
