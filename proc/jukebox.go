package proc

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
	"github.com/sho0pi/naturaltime"
)

// PlaylistSource expands a playlist URL into flat items.
type PlaylistSource interface {
	Playlist(ctx context.Context, url string, limit int) ([]PlaylistItem, error)
}

// Jukebox owns one driver per guild plus everything the drivers share.
type Jukebox struct {
	cfg          *sys.Config
	newTransport func(guildID snowflake.ID) Transport

	Tool      MediaTool
	Playlists PlaylistSource
	Resolver  *Resolver
	Sup       *Supervisor
	Filter    Filter
	Store     *Store
	Search    *Searcher
	Suggest   Suggester
	Notifier  Notifier

	mu      sync.Mutex
	drivers map[snowflake.ID]*Driver
	sleeps  map[snowflake.ID]*sleepTimer
	closed  bool
}

type sleepTimer struct {
	at    time.Time
	timer *time.Timer
}

// NewJukebox wires the shared yt-dlp, ffmpeg, cache and store. newTransport is
// called once per guild the first time it plays.
func NewJukebox(cfg *sys.Config, newTransport func(guildID snowflake.ID) Transport) *Jukebox {
	tool := NewYtdlp(cfg)
	sup := NewSupervisor()
	return &Jukebox{
		cfg:          cfg,
		newTransport: newTransport,
		Tool:         tool,
		Playlists:    tool,
		Resolver: &Resolver{
			Cache:            NewMetadataCache(cfg.MetadataCacheTTL),
			InfoFetcher:      tool,
			Timeout:          cfg.MetadataTimeout,
			StreamThreshold:  cfg.StreamThreshold,
			MaxDuration:      cfg.MaxDuration,
			StreamingEnabled: cfg.StreamingEnabled,
		},
		Sup:     sup,
		Filter:  NewFFmpegFilter(cfg.FfmpegPath, sup),
		Store:   NewStore(),
		Search:  NewSearcher(),
		Suggest: NewSuggester(cfg),
		drivers: make(map[snowflake.ID]*Driver),
		sleeps:  make(map[snowflake.ID]*sleepTimer),
	}
}

// Driver returns the guild's driver, creating it on first use.
func (j *Jukebox) Driver(guildID snowflake.ID) *Driver {
	j.mu.Lock()
	defer j.mu.Unlock()
	if d, ok := j.drivers[guildID]; ok {
		return d
	}
	var persister Persister
	if j.Store != nil {
		persister = j.Store
	}
	d := NewDriver(OptionsFromConfig(j.cfg, guildID), Deps{
		Transport:  j.newTransport(guildID),
		Tool:       j.Tool,
		Resolver:   j.Resolver,
		Supervisor: j.Sup,
		Filter:     j.Filter,
		Notifier:   j.Notifier,
		Persister:  persister,
	})
	j.drivers[guildID] = d
	return d
}

// Lookup returns the guild's driver only if one exists.
func (j *Jukebox) Lookup(guildID snowflake.ID) (*Driver, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	d, ok := j.drivers[guildID]
	return d, ok
}

// Guilds lists every guild with a driver.
func (j *Jukebox) Guilds() []snowflake.ID {
	j.mu.Lock()
	defer j.mu.Unlock()
	return lo.Keys(j.drivers)
}

// Info resolves metadata for url through the shared cache.
func (j *Jukebox) Info(ctx context.Context, url string) Info {
	return j.Resolver.Info(ctx, url)
}

// Expand lists a playlist as unresolved entries attributed to userID.
func (j *Jukebox) Expand(ctx context.Context, url string, userID, replyChannel snowflake.ID) ([]*Entry, error) {
	items, err := j.Playlists.Playlist(ctx, url, MaxPlaylistItems)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoResults
	}
	now := time.Now()
	return lo.Map(items, func(it PlaylistItem, _ int) *Entry {
		return &Entry{
			URL:          Normalize(it.URL),
			Title:        it.Title,
			RequestedBy:  userID,
			ReplyChannel: replyChannel,
			AddedAt:      now,
		}
	}), nil
}

// RestoreAll reloads every persisted queue. Guilds whose backup names a voice
// channel resume playing there.
func (j *Jukebox) RestoreAll(ctx context.Context) int {
	backups, err := j.Store.LoadQueues(ctx)
	if err != nil {
		sys.LogWarn(sys.MsgDatabaseQueueLoadFail, err)
		return 0
	}
	n := 0
	for guildID, b := range backups {
		if b.Empty() {
			continue
		}
		if err := j.Driver(guildID).Restore(ctx, b, 0); err != nil {
			sys.LogWarn(sys.MsgQueueRestoreFailed, guildID, err)
			continue
		}
		n++
	}
	return n
}

// ParseSleep reads a natural-language instant ("in 30 minutes", "at 11pm") or
// a Go duration ("45m") relative to now.
func ParseSleep(parser *naturaltime.Parser, input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if parser != nil {
		if t, err := parser.ParseDate(input, now); err == nil && t != nil {
			return *t, nil
		}
	}
	if d, err := time.ParseDuration(input); err == nil {
		return now.Add(d), nil
	}
	return time.Time{}, fmt.Errorf("could not parse time: %s", input)
}

// SetSleep stops guildID's playback at at, replacing any earlier timer.
func (j *Jukebox) SetSleep(guildID snowflake.ID, at time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if old, ok := j.sleeps[guildID]; ok {
		old.timer.Stop()
	}
	st := &sleepTimer{at: at}
	st.timer = time.AfterFunc(time.Until(at), func() { j.fireSleep(guildID, st) })
	j.sleeps[guildID] = st
	sys.LogQueue(sys.MsgQueueSleepSet, guildID, at.Format(time.RFC3339))
}

// CancelSleep clears the guild's timer and reports whether one was set.
func (j *Jukebox) CancelSleep(guildID snowflake.ID) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	st, ok := j.sleeps[guildID]
	if !ok {
		return false
	}
	st.timer.Stop()
	delete(j.sleeps, guildID)
	return true
}

// SleepAt returns the pending sleep instant of a guild.
func (j *Jukebox) SleepAt(guildID snowflake.ID) (time.Time, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	st, ok := j.sleeps[guildID]
	if !ok {
		return time.Time{}, false
	}
	return st.at, true
}

func (j *Jukebox) fireSleep(guildID snowflake.ID, st *sleepTimer) {
	j.mu.Lock()
	if j.sleeps[guildID] != st {
		j.mu.Unlock()
		return
	}
	delete(j.sleeps, guildID)
	d, ok := j.drivers[guildID]
	j.mu.Unlock()

	sys.LogQueue(sys.MsgQueueSleepFired, guildID)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st2, err := d.Status(ctx)
	if err == nil && j.Notifier != nil {
		if ch := replyChannelOf(st2); ch != 0 {
			j.Notifier.Notice(ch, sys.MsgMusicSleepFired)
		}
	}
	_, _ = d.Stop(ctx)
}

func replyChannelOf(st Status) snowflake.ID {
	if st.Current != nil && st.Current.ReplyChannel != 0 {
		return st.Current.ReplyChannel
	}
	for _, e := range st.Queue {
		if e.ReplyChannel != 0 {
			return e.ReplyChannel
		}
	}
	return 0
}

// SweepOrphans removes leftover artifacts. While children are running, files
// touched within the stall window are assumed to be in use.
func (j *Jukebox) SweepOrphans() ([]SweptFile, error) {
	var keep func(string) bool
	if j.Sup.Active() > 0 {
		keep = touchedWithin(j.cfg.StallTimeout)
	}
	return Sweep(j.cfg.TempDir, keep)
}

func touchedWithin(window time.Duration) func(string) bool {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && time.Since(info.ModTime()) < window
	}
}

// Shutdown closes every driver, kills stray children and stops sleep timers.
// Queues stay persisted.
func (j *Jukebox) Shutdown() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	drivers := lo.Values(j.drivers)
	for _, st := range j.sleeps {
		st.timer.Stop()
	}
	j.sleeps = make(map[snowflake.ID]*sleepTimer)
	j.mu.Unlock()

	var wg sync.WaitGroup
	for _, d := range drivers {
		wg.Add(1)
		go func(d *Driver) {
			defer wg.Done()
			d.Close()
		}(d)
	}
	wg.Wait()
	if n := j.Sup.KillAll(); n > 0 {
		sys.LogDownload("Killed %d leftover processes", n)
	}
}
