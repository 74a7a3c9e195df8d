package sys

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/disgo/events"
)

func TestLookupComponentHandler(t *testing.T) {
	var hit string
	handler := func(name string) func(*events.ComponentInteractionCreate) {
		return func(*events.ComponentInteractionCreate) { hit = name }
	}
	RegisterComponentHandler("test:exact", handler("exact"))
	RegisterComponentHandler("test:prefix:", handler("prefix"))
	RegisterComponentHandler("test:prefix:deep:", handler("deep"))

	tests := map[string]string{
		"test:exact":          "exact",
		"test:exact:more":     "",
		"test:prefix:42":      "prefix",
		"test:prefix:deep:42": "deep",
		"test:prefix":         "",
		"other:prefix:42":     "",
	}
	for id, want := range tests {
		hit = ""
		h, ok := lookupComponentHandler(id)
		if ok != (want != "") {
			t.Errorf("lookupComponentHandler(%q) ok = %v, want %v", id, ok, want != "")
			continue
		}
		if ok {
			h(nil)
		}
		if hit != want {
			t.Errorf("lookupComponentHandler(%q) ran %q, want %q", id, hit, want)
		}
	}
}

func TestDaemonsStartAndShutdown(t *testing.T) {
	var logged, stopped atomic.Int32
	ran := make(chan struct{}, 2)
	logf := func(string, ...any) { logged.Add(1) }

	RegisterDaemon(logf, func(context.Context) (bool, func(), func()) {
		return true, func() { ran <- struct{}{} }, func() { stopped.Add(1) }
	})
	RegisterDaemon(logf, func(context.Context) (bool, func(), func()) {
		return false, func() { ran <- struct{}{} }, func() { stopped.Add(1) }
	})

	StartDaemons(context.Background())
	StartDaemons(context.Background())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("accepted daemon never ran")
	}
	select {
	case <-ran:
		t.Fatal("a daemon ran twice or a declined daemon ran")
	case <-time.After(50 * time.Millisecond):
	}
	if got := logged.Load(); got != 1 {
		t.Errorf("start lines = %d, want 1", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ShutdownDaemons(ctx)
	ShutdownDaemons(ctx)
	if got := stopped.Load(); got != 1 {
		t.Errorf("stop hooks run = %d, want 1", got)
	}
}

func TestShutdownDaemonsHonorsDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	stopMu.Lock()
	stopHooks = append(stopHooks, func() { <-block })
	stopMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	ShutdownDaemons(ctx)
	if time.Since(start) > time.Second {
		t.Fatal("ShutdownDaemons ignored the context deadline")
	}
}
