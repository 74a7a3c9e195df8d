package proc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

type fakePlaylists struct {
	items []PlaylistItem
	err   error
}

func (f *fakePlaylists) Playlist(context.Context, string, int) ([]PlaylistItem, error) {
	return f.items, f.err
}

type jukeboxHarness struct {
	j    *Jukebox
	tool *fakeTool

	mu         sync.Mutex
	transports map[snowflake.ID]*fakeTransport
}

func newJukeboxHarness(t *testing.T) *jukeboxHarness {
	t.Helper()
	cfg := sys.DefaultConfig()
	cfg.TempDir = t.TempDir()
	cfg.RetryStep = time.Millisecond
	cfg.ReconnectDelay = 10 * time.Millisecond

	h := &jukeboxHarness{tool: newFakeTool(), transports: make(map[snowflake.ID]*fakeTransport)}
	h.j = NewJukebox(cfg, func(g snowflake.ID) Transport {
		h.mu.Lock()
		defer h.mu.Unlock()
		tr := newFakeTransport()
		h.transports[g] = tr
		return tr
	})
	h.j.Tool = h.tool
	h.j.Resolver.InfoFetcher = h.tool
	t.Cleanup(h.j.Shutdown)
	return h
}

func (h *jukeboxHarness) transport(g snowflake.ID) *fakeTransport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transports[g]
}

func TestJukeboxDriverPerGuild(t *testing.T) {
	h := newJukeboxHarness(t)
	a := h.j.Driver(1)
	if h.j.Driver(1) != a {
		t.Fatal("second Driver call built a new driver")
	}
	if h.j.Driver(2) == a {
		t.Fatal("guilds share a driver")
	}
	if _, ok := h.j.Lookup(3); ok {
		t.Fatal("Lookup created a driver")
	}
	if n := len(h.j.Guilds()); n != 2 {
		t.Fatalf("Guilds = %d", n)
	}
}

func TestJukeboxExpand(t *testing.T) {
	h := newJukeboxHarness(t)
	h.j.Playlists = &fakePlaylists{items: []PlaylistItem{
		{URL: "https://youtu.be/aaaaaaaaaaa", Title: "One"},
		{URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb", Title: "Two"},
	}}

	entries, err := h.j.Expand(context.Background(), "https://www.youtube.com/playlist?list=PLx", 9, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	e := entries[0]
	if e.URL != "https://www.youtube.com/watch?v=aaaaaaaaaaa" || e.RequestedBy != 9 || e.ReplyChannel != 8 || e.Resolved {
		t.Fatalf("entry = %+v", e)
	}

	h.j.Playlists = &fakePlaylists{}
	if _, err := h.j.Expand(context.Background(), "x", 9, 8); !errors.Is(err, ErrNoResults) {
		t.Fatalf("empty playlist err = %v", err)
	}
}

func TestParseSleep(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	at, err := ParseSleep(nil, " 45m ", now)
	if err != nil || !at.Equal(now.Add(45*time.Minute)) {
		t.Fatalf("ParseSleep = %v, %v", at, err)
	}
	if _, err := ParseSleep(nil, "whenever", now); err == nil {
		t.Fatal("garbage accepted")
	}
}

func TestJukeboxSleepTimers(t *testing.T) {
	h := newJukeboxHarness(t)
	guild := snowflake.ID(1)
	at := time.Now().Add(time.Hour)

	h.j.SetSleep(guild, at)
	got, ok := h.j.SleepAt(guild)
	if !ok || !got.Equal(at) {
		t.Fatalf("SleepAt = %v, %v", got, ok)
	}

	later := at.Add(time.Hour)
	h.j.SetSleep(guild, later)
	if got, _ := h.j.SleepAt(guild); !got.Equal(later) {
		t.Fatal("timer not replaced")
	}

	if !h.j.CancelSleep(guild) {
		t.Fatal("CancelSleep found nothing")
	}
	if h.j.CancelSleep(guild) {
		t.Fatal("second CancelSleep reported a timer")
	}
}

func TestJukeboxSleepStopsPlayback(t *testing.T) {
	openTestDB(t)
	h := newJukeboxHarness(t)
	guild := snowflake.ID(1)
	notifier := &fakeNotifier{}
	h.j.Notifier = notifier

	d := h.j.Driver(guild)
	if _, err := d.Enqueue(context.Background(), song("aaaaaaaaaaa", "Lullaby"), testVoice, false); err != nil {
		t.Fatal(err)
	}
	select {
	case <-h.transport(guild).started:
	case <-time.After(waitTimeout):
		t.Fatal("playback never started")
	}

	h.j.SetSleep(guild, time.Now().Add(20*time.Millisecond))
	eventually(t, "sleep to stop playback", func() bool {
		st, err := d.Status(context.Background())
		return err == nil && st.Current == nil
	})
	if _, ok := h.j.SleepAt(guild); ok {
		t.Fatal("fired timer still pending")
	}
	eventually(t, "sleep notice", func() bool { return notifier.saw(sys.MsgMusicSleepFired) })
}

func TestJukeboxRestoreAll(t *testing.T) {
	openTestDB(t)
	h := newJukeboxHarness(t)
	b := Backup{Queue: []Entry{*song("aaaaaaaaaaa", "A"), *song("bbbbbbbbbbb", "B")}, Volume: 30}
	if err := h.j.Store.SaveQueue(snowflake.ID(11), b); err != nil {
		t.Fatal(err)
	}

	if n := h.j.RestoreAll(context.Background()); n != 1 {
		t.Fatalf("RestoreAll = %d", n)
	}
	d, ok := h.j.Lookup(11)
	if !ok {
		t.Fatal("no driver for restored guild")
	}
	st, err := d.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Queue) != 2 || st.Volume != 30 || st.Current != nil {
		t.Fatalf("status = %+v", st)
	}
}

func TestJukeboxSweepOrphans(t *testing.T) {
	h := newJukeboxHarness(t)
	dir := h.j.cfg.TempDir
	orphan := filepath.Join(dir, ArtifactPrefix+"old.mp3")
	if err := os.WriteFile(orphan, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	swept, err := h.j.SweepOrphans()
	if err != nil || len(swept) != 1 {
		t.Fatalf("SweepOrphans = %+v, %v", swept, err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("orphan still on disk")
	}
}

func TestJukeboxShutdownIsIdempotent(t *testing.T) {
	h := newJukeboxHarness(t)
	h.j.Driver(1)
	h.j.SetSleep(1, time.Now().Add(time.Hour))
	h.j.Shutdown()
	h.j.Shutdown()
	if _, ok := h.j.SleepAt(1); ok {
		t.Fatal("sleep timer survived shutdown")
	}
}
