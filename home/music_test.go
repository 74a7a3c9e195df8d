package home

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func entry(id, title string, d time.Duration) proc.Entry {
	return proc.Entry{URL: "https://www.youtube.com/watch?v=" + id, Title: title, Duration: d}
}

func TestRenderQueueEmpty(t *testing.T) {
	if got := renderQueue(proc.Status{}, 1, time.Time{}); got != sys.MsgMusicQueueEmpty {
		t.Fatalf("renderQueue = %q", got)
	}
}

func TestRenderQueuePages(t *testing.T) {
	var q []proc.Entry
	for i := range 23 {
		q = append(q, entry(fmt.Sprintf("%011d", i), fmt.Sprintf("Song %d", i+1), time.Minute))
	}
	cur := q[0]
	st := proc.Status{Current: &cur, Queue: q, Volume: 40}

	first := renderQueue(st, 1, time.Time{})
	if !strings.Contains(first, fmt.Sprintf(sys.MsgMusicQueueHeader, 23, 1, 3)) {
		t.Fatalf("header missing in %q", first)
	}
	if !strings.Contains(first, fmt.Sprintf(sys.MsgMusicQueueCurrent, "Song 1", "1:00")) {
		t.Fatal("current entry not marked")
	}
	if !strings.Contains(first, fmt.Sprintf(sys.MsgMusicQueueItem, 2, "Song 2", "1:00")) {
		t.Fatal("positions do not start at 2")
	}
	if strings.Contains(first, "Song 11") {
		t.Fatal("page 1 overflows")
	}

	last := renderQueue(st, 99, time.Time{})
	if !strings.Contains(last, fmt.Sprintf(sys.MsgMusicQueueHeader, 23, 3, 3)) || !strings.Contains(last, "23. Song 23") {
		t.Fatalf("clamped page = %q", last)
	}

	at := time.Unix(1700000000, 0)
	if got := renderQueue(st, 0, at); !strings.Contains(got, fmt.Sprintf(sys.MsgMusicSleepPending, at.Unix())) {
		t.Fatal("sleep timer not shown")
	}
}

func TestEntryLength(t *testing.T) {
	if got := entryLength(proc.Entry{}); got != sys.MsgMusicUnknownLength {
		t.Errorf("unknown = %q", got)
	}
	if got := entryLength(proc.Entry{Duration: 3*time.Minute + 5*time.Second}); got != "3:05" {
		t.Errorf("known = %q", got)
	}
}

func TestPanelText(t *testing.T) {
	cur := entry("aaaaaaaaaaa", "Now", 4*time.Minute)
	next := entry("bbbbbbbbbbb", "Later", 0)
	st := proc.Status{
		Current:   &cur,
		Queue:     []proc.Entry{cur, next},
		Paused:    true,
		Repeat:    true,
		Volume:    75,
		Position:  30 * time.Second,
		Equalizer: proc.EqualizerSettings{Bass: 3, Speed: 1},
	}
	text := panelText(st, time.Time{})
	for _, want := range []string{
		sys.MsgMusicPanelPaused,
		fmt.Sprintf(sys.MsgMusicPanelNext, "Later"),
		fmt.Sprintf(sys.MsgMusicModes, sys.MsgMusicOn, sys.MsgMusicOff, 75),
		"0:30",
		"Bass +3 dB",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("panel %q missing %q", text, want)
		}
	}
	if strings.Contains(text, "<t:") {
		t.Error("sleep shown without a timer")
	}
}

func TestPanelRowsDisableBounds(t *testing.T) {
	cur := entry("aaaaaaaaaaa", "Now", time.Minute)
	rows := panelRows(proc.Status{Current: &cur, Volume: 100}, false)
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	for _, row := range rows {
		if len(row) > 5 {
			t.Fatalf("row of %d components", len(row))
		}
	}
}

func TestRenderPanelNothingPlaying(t *testing.T) {
	c := renderPanel(proc.Status{}, nil)
	if len(c.Components) != 1 {
		t.Fatalf("components = %d", len(c.Components))
	}
}

func TestRenderFavorites(t *testing.T) {
	if got := renderFavorites(nil); got != sys.MsgFavoritesEmpty {
		t.Fatalf("empty = %q", got)
	}

	favs := []proc.Entry{entry("aaaaaaaaaaa", "One", time.Minute), entry("bbbbbbbbbbb", "Two", 0)}
	got := renderFavorites(favs)
	for _, want := range []string{
		fmt.Sprintf(sys.MsgFavoritesHeader, 2),
		fmt.Sprintf(sys.MsgFavoritesItem, 1, "One", "1:00"),
		fmt.Sprintf(sys.MsgFavoritesItem, 2, "Two", sys.MsgMusicUnknownLength),
	} {
		if !strings.Contains(got, want) {
			t.Errorf("%q missing %q", got, want)
		}
	}

	var many []proc.Entry
	for i := range 200 {
		many = append(many, entry(fmt.Sprintf("%011d", i), strings.Repeat("x", 80), time.Minute))
	}
	if long := renderFavorites(many); len(long) > favoritesListLimit+10 || !strings.HasSuffix(long, "…") {
		t.Fatalf("long list not capped: %d bytes", len(long))
	}
}

func TestDiagnoseText(t *testing.T) {
	st := proc.Status{State: proc.StatePlaying, Position: 61 * time.Second}
	lines := diagnoseText(st)
	if len(lines) != 2 || lines[1] != sys.MsgMusicDiagnoseEmpty || !strings.Contains(lines[0], "playing") {
		t.Fatalf("lines = %q", lines)
	}

	st.LastStderr = strings.Repeat("a", diagnoseLimit) + "TAIL"
	lines = diagnoseText(st)
	if !strings.Contains(lines[1], "TAIL") || strings.Count(lines[1], "a") > diagnoseLimit {
		t.Fatalf("diagnostics not trimmed to the tail")
	}
}

func TestEqualizerText(t *testing.T) {
	got := equalizerText(proc.EqualizerSettings{Bass: -2, Treble: 4, Preset: "rock"})
	want := fmt.Sprintf(sys.MsgMusicEqualizer, -2, 4, 1.0, fmt.Sprintf(sys.MsgMusicEqualizerPreset, "rock"))
	if got != want {
		t.Fatalf("equalizerText = %q, want %q", got, want)
	}
}

func TestMusicErrorText(t *testing.T) {
	sys.GlobalConfig = sys.DefaultConfig()
	tests := []struct {
		err  error
		want string
	}{
		{errNotInVoice, sys.ErrMusicNotInVoice},
		{errOtherChannel, sys.ErrMusicOtherChannel},
		{proc.ErrClosed, sys.ErrMusicVoiceUnavailable},
		{fmt.Errorf("wrapped: %w", proc.ErrDuplicate), sys.ErrMusicDuplicate},
		{proc.ErrTooLong, fmt.Sprintf(sys.ErrMusicTooLong, "4:00:00")},
		{proc.ErrSeekBeyond, sys.ErrMusicSeekBeyond},
		{proc.ErrOverloaded, sys.ErrMusicSuggestBusy},
		{errors.New("ERROR: HTTP Error 403: Forbidden"), sys.ErrMusicGeneric},
	}
	for _, tt := range tests {
		if got := musicErrorText(tt.err); got != tt.want {
			t.Errorf("musicErrorText(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestSuggestErrorText(t *testing.T) {
	if got := suggestErrorText(proc.ErrNoSuggester); got != sys.ErrMusicSuggestOff {
		t.Errorf("no suggester = %q", got)
	}
	if got := suggestErrorText(errors.New("boom")); got != sys.ErrMusicSuggestFailed {
		t.Errorf("unknown = %q", got)
	}
}

func TestPresetChoices(t *testing.T) {
	choices := presetChoices()
	if len(choices) != len(proc.Presets) || len(choices) > 25 {
		t.Fatalf("choices = %d", len(choices))
	}
}
