package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

// State is where a guild's playback currently stands.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAdvancing
	StateStreaming
	StateDownloading
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAdvancing:
		return "advancing"
	case StateStreaming:
		return "streaming"
	case StateDownloading:
		return "downloading"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Source is what the transport plays. Exactly one of Reader, Path and URL is
// used, in that order of preference.
type Source struct {
	Title  string
	URL    string
	Path   string
	Filter string
	Reader io.Reader
}

// Transport is the voice side of a guild: connection, playback and status line.
type Transport interface {
	Connect(ctx context.Context, channelID snowflake.ID) error
	// Play blocks until the source is exhausted (nil) or ctx is cancelled.
	Play(ctx context.Context, src Source) error
	SetPaused(paused bool)
	SetVolume(volume int)
	SetStatus(status string)
	// Position is how far into the current source playback has got.
	Position() time.Duration
	Disconnect(ctx context.Context)
}

// DownloadRequest is one attempt at fetching an entry to disk.
type DownloadRequest struct {
	URL      string
	Output   string
	Strategy Strategy
	Offset   time.Duration
	Long     bool
}

// MediaTool is the external downloader.
type MediaTool interface {
	InfoFetcher
	StreamURL(ctx context.Context, url string) (string, error)
	DownloadCmd(ctx context.Context, req DownloadRequest) *exec.Cmd
}

// Filter re-encodes an artifact through an audio filter chain.
type Filter interface {
	Open(ctx context.Context, path, chain string) (io.ReadCloser, error)
}

// Notifier posts user-facing updates. Implementations must not block.
type Notifier interface {
	Notice(channelID snowflake.ID, text string)
	NowPlaying(channelID snowflake.ID, st Status)
}

// Persister saves a guild's queue after every mutation.
type Persister interface {
	SaveQueue(guildID snowflake.ID, b Backup) error
}

// Status is a point-in-time copy of a driver for display.
type Status struct {
	GuildID    snowflake.ID
	State      State
	Channel    snowflake.ID
	Connected  bool
	Current    *Entry
	Queue      []Entry
	Repeat     bool
	Loop       bool
	Paused     bool
	Volume     int
	Position   time.Duration
	Equalizer  EqualizerSettings
	LastStderr string
}

// Idle reports whether nothing is playing, pending or connected.
func (s Status) Idle() bool {
	return s.State == StateIdle && !s.Connected && s.Current == nil && len(s.Queue) == 0
}

// Options are the per-guild knobs, usually taken from the global config.
type Options struct {
	GuildID          snowflake.ID
	TempDir          string
	StreamingEnabled bool
	LongThreshold    time.Duration
	MaxDuration      time.Duration
	DownloadTimeout  time.Duration
	LongTimeout      time.Duration
	StallTimeout     time.Duration
	StreamURLTimeout time.Duration
	ReconnectDelay   time.Duration
	MinArtifactBytes int64
	DefaultVolume    int
	Policy           Policy
}

// OptionsFromConfig maps the bot configuration onto driver options.
func OptionsFromConfig(cfg *sys.Config, guildID snowflake.ID) Options {
	return Options{
		GuildID:          guildID,
		TempDir:          cfg.TempDir,
		StreamingEnabled: cfg.StreamingEnabled,
		LongThreshold:    cfg.LongVideoThreshold,
		MaxDuration:      cfg.MaxDuration,
		DownloadTimeout:  cfg.DownloadTimeout,
		LongTimeout:      cfg.DownloadTimeoutLong,
		StallTimeout:     cfg.StallTimeout,
		StreamURLTimeout: cfg.StreamURLTimeout,
		ReconnectDelay:   cfg.ReconnectDelay,
		MinArtifactBytes: cfg.MinArtifactBytes,
		DefaultVolume:    cfg.DefaultVolume,
		Policy:           Policy{MaxAttempts: cfg.MaxAttempts, Step: cfg.RetryStep},
	}
}

// Deps are the collaborators a driver runs against.
type Deps struct {
	Transport  Transport
	Tool       MediaTool
	Resolver   *Resolver
	Supervisor *Supervisor
	Filter     Filter
	Equalizer  *Equalizer
	Notifier   Notifier
	Persister  Persister
}

// event is the owner-side half of a background job. current is false when the
// job was superseded; then it may only release resources.
type event func(current bool)

// Driver runs one guild's playback. All state below the channels belongs to the
// loop goroutine; public methods hand it closures and wait.
type Driver struct {
	opts Options
	deps Deps

	reqs   chan func()
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	queue        *Queue
	state        State
	current      *Entry
	advancing    bool
	seeking      bool
	seekOffset   time.Duration
	connected    bool
	channel      snowflake.ID
	replyChannel snowflake.ID
	volume       int
	paused       bool
	lastStderr   string

	gen       uint64
	jobCtx    context.Context
	jobCancel context.CancelFunc
}

// NewDriver starts the loop goroutine. Close stops it.
func NewDriver(opts Options, deps Deps) *Driver {
	if deps.Equalizer == nil {
		deps.Equalizer = NewEqualizer()
	}
	if deps.Supervisor == nil {
		deps.Supervisor = NewSupervisor()
	}
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy = DefaultPolicy()
	}
	if opts.DefaultVolume <= 0 || opts.DefaultVolume > 100 {
		opts.DefaultVolume = 50
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Driver{
		opts:   opts,
		deps:   deps,
		reqs:   make(chan func()),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		queue:  NewQueue(),
		volume: opts.DefaultVolume,
	}
	d.jobCtx, d.jobCancel = context.WithCancel(ctx)
	d.deps.Transport.SetVolume(d.volume)
	go d.run()
	return d
}

func (d *Driver) run() {
	defer close(d.done)
	for {
		select {
		case fn := <-d.reqs:
			d.safely(fn)
		case <-d.ctx.Done():
			d.shutdown()
			return
		}
	}
}

// safely runs fn on the loop. A panic drops whatever entry was in flight and
// moves on so the guild is never wedged.
func (d *Driver) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogError(sys.MsgQueuePanic, d.opts.GuildID, r)
			d.resetJobs()
			if d.current != nil {
				d.queue.Discard(d.current)
				d.current = nil
			}
			d.advancing = false
			d.seeking = false
			d.seekOffset = 0
			d.state = StateAdvancing
			d.persist()
			go d.post(d.advance)
		}
	}()
	fn()
}

func (d *Driver) shutdown() {
	d.jobCancel()
	if d.connected {
		d.connected = false
		d.disconnect()
	}
}

// post queues fn for the loop without waiting for it to run.
func (d *Driver) post(fn func()) bool {
	select {
	case d.reqs <- fn:
		return true
	case <-d.ctx.Done():
		return false
	}
}

// do runs fn on the loop and returns its error.
func (d *Driver) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	req := func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("panic: %v", r)
				panic(r)
			}
		}()
		errc <- fn()
	}
	select {
	case d.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.ctx.Done():
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrClosed
	}
}

// spawn runs job off the loop in the current generation and delivers its event.
func (d *Driver) spawn(name string, job func(ctx context.Context) event) {
	gen, ctx := d.gen, d.jobCtx
	go func() {
		ev := job(ctx)
		if ev == nil {
			return
		}
		delivered := d.post(func() {
			current := gen == d.gen
			if !current {
				sys.LogDebug(sys.MsgQueueStaleEvent, name, d.opts.GuildID)
			}
			ev(current)
		})
		if !delivered {
			ev(false)
		}
	}()
}

// resetJobs cancels everything in flight and starts a new generation.
func (d *Driver) resetJobs() {
	d.jobCancel()
	d.gen++
	d.jobCtx, d.jobCancel = context.WithCancel(d.ctx)
}

func (d *Driver) setState(s State) { d.state = s }

func (d *Driver) persist() {
	if d.deps.Persister == nil {
		return
	}
	if err := d.deps.Persister.SaveQueue(d.opts.GuildID, d.backup()); err != nil {
		sys.LogWarn(sys.MsgDatabaseQueueSaveFail, d.opts.GuildID, err)
	}
}

func (d *Driver) backup() Backup {
	b := Backup{
		Queue:            d.queue.Entries(),
		OriginalPlaylist: d.queue.Snapshot(),
		Repeat:           d.queue.Repeat,
		Loop:             d.queue.Loop,
		Volume:           d.volume,
		Channel:          d.channel,
		Timestamp:        time.Now(),
	}
	if d.current != nil {
		cur := *d.current
		b.Current = &cur
	}
	return b
}

func (d *Driver) notify(e *Entry, format string, args ...any) {
	if d.deps.Notifier == nil {
		return
	}
	ch := d.replyChannel
	if e != nil && e.ReplyChannel != 0 {
		ch = e.ReplyChannel
	}
	if ch == 0 {
		return
	}
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	d.deps.Notifier.Notice(ch, text)
}

func (d *Driver) status() Status {
	st := Status{
		GuildID:    d.opts.GuildID,
		State:      d.state,
		Channel:    d.channel,
		Connected:  d.connected,
		Queue:      d.queue.Entries(),
		Repeat:     d.queue.Repeat,
		Loop:       d.queue.Loop,
		Paused:     d.paused,
		Volume:     d.volume,
		Equalizer:  d.deps.Equalizer.Settings(),
		LastStderr: d.lastStderr,
	}
	if d.current != nil {
		cur := *d.current
		st.Current = &cur
		if d.state == StatePlaying {
			st.Position = d.seekOffset + d.deps.Transport.Position()
		} else {
			st.Position = d.seekOffset
		}
	}
	return st
}

func (d *Driver) idle() bool {
	return d.state == StateIdle && !d.connected && d.current == nil &&
		d.queue.Len() == 0 && !d.queue.CanRefill()
}

// advance begins a traversal toward playback unless one is already running or
// something is playing.
func (d *Driver) advance() {
	if d.advancing || d.state == StatePlaying {
		return
	}
	d.advancing = true
	d.step()
}

// step carries a traversal one hop forward. Every branch either hands off to a
// job or leaves advancing cleared.
func (d *Driver) step() {
	if d.current == nil {
		if d.queue.Len() == 0 {
			if !d.queue.Refill() {
				d.queue.ClearSnapshot()
				d.goIdle(true)
				d.persist()
				return
			}
			sys.LogQueue(sys.MsgQueueRefilled, d.queue.Len(), d.opts.GuildID)
			d.persist()
		}
		d.current = d.queue.Head()
		d.seekOffset = 0
		d.seeking = false
	}

	if !d.connected {
		d.connect()
		return
	}

	e := d.current
	d.setState(StateAdvancing)
	sys.LogQueue(sys.MsgQueueAdvance, d.opts.GuildID, e.URL)
	if !e.Resolved {
		d.resolve(e)
		return
	}
	if d.tooLong(e) {
		d.drop(e, fmt.Sprintf(sys.ErrMusicTooLong, FormatDuration(d.opts.MaxDuration)))
		return
	}
	d.route(e)
}

func (d *Driver) tooLong(e *Entry) bool {
	return d.opts.MaxDuration > 0 && e.Duration > d.opts.MaxDuration
}

// goIdle leaves voice and forgets the current entry. drained marks a natural
// end of the queue rather than a stop.
func (d *Driver) goIdle(drained bool) {
	active := d.connected || d.current != nil || d.state != StateIdle
	d.current = nil
	d.advancing = false
	d.seeking = false
	d.seekOffset = 0
	d.paused = false
	d.setState(StateIdle)
	d.deps.Transport.SetStatus("")
	if d.connected {
		d.connected = false
		d.disconnect()
	}
	if drained && active {
		sys.LogQueue(sys.MsgQueueEmpty, d.opts.GuildID)
		d.notify(nil, sys.MsgMusicQueueEnded)
	}
}

func (d *Driver) disconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.deps.Transport.Disconnect(ctx)
	sys.LogVoice(sys.MsgVoiceLeft, d.opts.GuildID)
}

func (d *Driver) connect() {
	d.setState(StateConnecting)
	channel := d.channel
	sys.LogVoice(sys.MsgVoiceJoining, channel, d.opts.GuildID)
	d.spawn("connect", func(ctx context.Context) event {
		err := d.deps.Transport.Connect(ctx, channel)
		return func(current bool) {
			if !current {
				return
			}
			if err != nil {
				sys.LogError(sys.MsgGenericError, err)
				d.notify(d.current, sys.ErrMusicConnectFailed)
				d.current = nil
				d.advancing = false
				d.setState(StateIdle)
				return
			}
			d.connected = true
			d.step()
		}
	})
}

func (d *Driver) resolve(e *Entry) {
	url := e.URL
	d.spawn("resolve", func(ctx context.Context) event {
		info := d.deps.Resolver.Info(ctx, url)
		return func(current bool) {
			if !current {
				return
			}
			if !info.Fallback {
				if e.Title == "" || e.Title == TitleUnavailable {
					e.Title = info.Title
				}
				e.Duration = info.Duration
				e.Streaming = info.Streaming
			} else if e.Title == "" {
				e.Title = info.Title
			}
			e.Resolved = true
			d.persist()
			if info.Long || d.tooLong(e) {
				d.drop(e, fmt.Sprintf(sys.ErrMusicTooLong, FormatDuration(d.opts.MaxDuration)))
				return
			}
			d.route(e)
		}
	})
}

// route picks streaming or downloading for e. Seeks always download.
func (d *Driver) route(e *Entry) {
	if e.Streaming && d.opts.StreamingEnabled && d.seekOffset == 0 {
		d.stream(e)
		return
	}
	d.download(e, 0)
}

func (d *Driver) stream(e *Entry) {
	d.setState(StateStreaming)
	url := e.URL
	timeout := d.opts.StreamURLTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	d.spawn("stream", func(ctx context.Context) event {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		direct, err := d.deps.Tool.StreamURL(sctx, url)
		return func(current bool) {
			if !current {
				return
			}
			if err != nil {
				sys.LogDownloadWarn(sys.MsgDownloadStreamURL, url, err)
				e.Streaming = false
				d.download(e, 0)
				return
			}
			d.notify(e, sys.MsgMusicStreaming, e.Title)
			d.play(e, Source{Title: e.Title, URL: direct})
		}
	})
}

func (d *Driver) download(e *Entry, delay time.Duration) {
	d.setState(StateDownloading)
	long := d.opts.LongThreshold > 0 && e.Duration > d.opts.LongThreshold
	req := DownloadRequest{
		URL:      e.URL,
		Output:   NewArtifactPath(d.opts.TempDir),
		Strategy: e.Format,
		Offset:   d.seekOffset,
		Long:     long,
	}
	job := Job{Name: e.URL, Timeout: d.opts.DownloadTimeout}
	if long {
		job.Timeout = d.opts.LongTimeout
		job.StallTimeout = d.opts.StallTimeout
	}
	if e.Retries == 0 && !d.seeking {
		d.notify(e, sys.MsgMusicDownloading, e.Title)
	}
	minBytes := d.opts.MinArtifactBytes

	d.spawn("download", func(ctx context.Context) event {
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return nil
			}
		}
		sys.LogDownload(sys.MsgDownloadStart, req.URL, req.Strategy, req.Output)
		job.Cmd = d.deps.Tool.DownloadCmd(ctx, req)
		out := d.deps.Supervisor.Run(ctx, job)

		var size int64
		var verr error
		if out.OK() {
			size, verr = ValidateArtifact(req.Output, minBytes)
		}
		if !out.OK() || verr != nil {
			Discard(req.Output)
		}

		return func(current bool) {
			if !current {
				Discard(req.Output)
				return
			}
			if out.Stderr != "" {
				d.lastStderr = out.Stderr
			}
			switch {
			case out.OK() && verr == nil:
				sys.LogDownload(sys.MsgDownloadDone, req.URL, size, out.Elapsed.Round(time.Millisecond))
				d.playArtifact(e, req.Output)
			case out.OK():
				d.drop(e, fmt.Sprintf(sys.ErrMusicInvalidFile, e.Title))
			default:
				d.retryOrDrop(e, out)
			}
		}
	})
}

func (d *Driver) retryOrDrop(e *Entry, out Outcome) {
	dec := d.opts.Policy.Decide(e.Title, e.Retries, out)
	if !dec.Retry {
		d.drop(e, dec.Message)
		return
	}
	e.Retries = dec.Attempt
	e.Format = dec.Strategy
	e.Alternate = true
	attempts := d.opts.Policy.MaxAttempts
	sys.LogDownload(sys.MsgDownloadRetry, e.URL, dec.Strategy, dec.Delay, dec.Attempt+1, attempts)
	d.notify(e, sys.MsgMusicRetry, e.Title, dec.Attempt+1, attempts)
	d.download(e, dec.Delay)
}

// drop abandons e with an optional notice and moves on.
func (d *Driver) drop(e *Entry, msg string) {
	sys.LogQueue(sys.MsgQueueDropped, e.URL, d.opts.GuildID, msg)
	if msg != "" {
		d.notify(e, msg)
	}
	d.finish(e)
	d.step()
}

// finish takes e out of the queue for good.
func (d *Driver) finish(e *Entry) {
	d.queue.Discard(e)
	if d.current == e {
		d.current = nil
	}
	d.seekOffset = 0
	d.seeking = false
	d.persist()
}

func (d *Driver) playArtifact(e *Entry, path string) {
	src := Source{Title: e.Title, Path: path}
	if chain := d.deps.Equalizer.Filter(); chain != "" && d.deps.Filter != nil {
		sys.LogDownload(sys.MsgDownloadFilter, chain, path)
		src.Filter = chain
	}
	d.play(e, src)
}

func (d *Driver) play(e *Entry, src Source) {
	d.setState(StatePlaying)
	d.advancing = false
	d.paused = false
	if !d.seeking {
		d.notify(e, sys.MsgMusicNowPlaying, e.Title)
		if d.deps.Notifier != nil {
			if ch := d.replyFor(e); ch != 0 {
				d.deps.Notifier.NowPlaying(ch, d.status())
			}
		}
	}
	d.seeking = false
	d.deps.Transport.SetPaused(false)
	d.deps.Transport.SetStatus("▶ " + e.Title)
	sys.LogVoice(sys.MsgVoicePlaybackStarted, e.Title)

	d.spawn("playback", func(ctx context.Context) event {
		err := d.playSource(ctx, src)
		if src.Path != "" {
			Discard(src.Path)
		}
		return func(current bool) {
			if !current {
				return
			}
			d.ended(e, err)
		}
	})
}

func (d *Driver) replyFor(e *Entry) snowflake.ID {
	if e != nil && e.ReplyChannel != 0 {
		return e.ReplyChannel
	}
	return d.replyChannel
}

func (d *Driver) playSource(ctx context.Context, src Source) error {
	if src.Filter != "" && src.Path != "" {
		rc, err := d.deps.Filter.Open(ctx, src.Path, src.Filter)
		if err != nil {
			sys.LogWarn(sys.MsgVoiceTranscoderFail, "filter", err)
		} else {
			defer rc.Close()
			src.Reader = rc
		}
	}
	return d.deps.Transport.Play(ctx, src)
}

// ended handles a playback that ran out on its own.
func (d *Driver) ended(e *Entry, err error) {
	d.deps.Transport.SetStatus("")
	d.advancing = true
	if err != nil && !errors.Is(err, context.Canceled) {
		sys.LogError(sys.MsgVoiceTranscoderFail, e.URL, err)
		d.drop(e, fmt.Sprintf(sys.ErrMusicPlaybackFailed, e.Title))
		return
	}
	sys.LogVoice(sys.MsgVoicePlaybackDone, e.Title)
	if d.queue.Loop && d.current == e {
		d.seekOffset = 0
		d.setState(StateAdvancing)
		d.route(e)
		return
	}
	d.finish(e)
	d.step()
}

// Enqueue appends e, or inserts it right after the current entry when next is
// set. voiceChannel is where to connect if not already connected.
func (d *Driver) Enqueue(ctx context.Context, e *Entry, voiceChannel snowflake.ID, next bool) (int, error) {
	var pos int
	err := d.do(ctx, func() error {
		var err error
		pos, err = d.enqueue(e, voiceChannel, next)
		if err != nil {
			return err
		}
		d.persist()
		d.advance()
		return nil
	})
	return pos, err
}

func (d *Driver) enqueue(e *Entry, voiceChannel snowflake.ID, next bool) (int, error) {
	if voiceChannel != 0 && !d.connected {
		d.channel = voiceChannel
	}
	if e.ReplyChannel != 0 {
		d.replyChannel = e.ReplyChannel
	}
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now()
	}

	var pos int
	var err error
	if next {
		at := 1
		if d.current != nil {
			at = d.queue.Index(d.current) + 1
		}
		pos, err = d.queue.Insert(e, d.current, at)
	} else {
		pos, err = d.queue.Enqueue(e, d.current)
	}
	if err != nil {
		sys.LogQueue(sys.MsgQueueDuplicate, e.URL, d.opts.GuildID)
		return 0, err
	}
	sys.LogQueue(sys.MsgQueueEnqueued, e.Title, e.URL, pos, d.opts.GuildID)
	return pos, nil
}

// EnqueueMany appends entries in order, skipping duplicates. Playback starts
// once, after the batch.
func (d *Driver) EnqueueMany(ctx context.Context, entries []*Entry, voiceChannel snowflake.ID) (added, skipped int, err error) {
	err = d.do(ctx, func() error {
		for _, e := range entries {
			if _, err := d.enqueue(e, voiceChannel, false); err != nil {
				skipped++
				continue
			}
			added++
		}
		if added > 0 {
			d.persist()
			d.advance()
		}
		return nil
	})
	return added, skipped, err
}

// Advance nudges the driver; it is a no-op while busy or playing.
func (d *Driver) Advance(ctx context.Context) error {
	return d.do(ctx, func() error {
		d.advance()
		return nil
	})
}

// Skip abandons the current entry and n-1 upcoming ones.
func (d *Driver) Skip(ctx context.Context, n int) (int, error) {
	var skipped int
	err := d.do(ctx, func() error {
		if d.current == nil {
			return ErrNotPlaying
		}
		n = max(n, 1)
		sys.LogVoice(sys.MsgVoicePlaybackStopped, d.current.Title)
		d.resetJobs()
		d.queue.Discard(d.current)
		d.current = nil
		skipped = 1 + d.queue.Drop(n-1)
		d.seekOffset = 0
		d.seeking = false
		d.paused = false
		d.persist()
		d.deps.Transport.SetStatus("")
		d.advancing = true
		d.setState(StateAdvancing)
		d.step()
		return nil
	})
	return skipped, err
}

// Stop clears everything and leaves voice. It reports false when already idle.
func (d *Driver) Stop(ctx context.Context) (bool, error) {
	var stopped bool
	err := d.do(ctx, func() error {
		stopped = d.stop()
		return nil
	})
	return stopped, err
}

func (d *Driver) stop() bool {
	if d.idle() {
		return false
	}
	d.resetJobs()
	d.queue.Clear()
	d.goIdle(false)
	d.persist()
	sys.LogQueue(sys.MsgQueueStopped, d.opts.GuildID)
	return true
}

// TogglePause flips pause and returns the new state.
func (d *Driver) TogglePause(ctx context.Context) (bool, error) {
	var paused bool
	err := d.do(ctx, func() error {
		if d.state != StatePlaying {
			return ErrNotPlaying
		}
		d.paused = !d.paused
		d.deps.Transport.SetPaused(d.paused)
		paused = d.paused
		return nil
	})
	return paused, err
}

// SetPaused pauses or resumes playback.
func (d *Driver) SetPaused(ctx context.Context, paused bool) error {
	return d.do(ctx, func() error {
		if d.state != StatePlaying {
			return ErrNotPlaying
		}
		d.paused = paused
		d.deps.Transport.SetPaused(paused)
		return nil
	})
}

// Move relocates the entry at from to to, both 1-indexed.
func (d *Driver) Move(ctx context.Context, from, to int) (Entry, error) {
	var moved Entry
	err := d.do(ctx, func() error {
		e, err := d.queue.Move(from, to)
		if err != nil {
			return err
		}
		moved = *e
		d.persist()
		return nil
	})
	return moved, err
}

// Remove deletes the entry at pos. Removing the playing entry skips it.
func (d *Driver) Remove(ctx context.Context, pos int) (Entry, error) {
	var removed Entry
	err := d.do(ctx, func() error {
		e, err := d.queue.RemoveAt(pos)
		if err != nil {
			return err
		}
		removed = *e
		if e == d.current {
			d.resetJobs()
			d.current = nil
			d.seekOffset = 0
			d.seeking = false
			d.deps.Transport.SetStatus("")
			d.persist()
			d.advancing = true
			d.setState(StateAdvancing)
			d.step()
			return nil
		}
		d.persist()
		return nil
	})
	return removed, err
}

// Shuffle permutes the upcoming entries, keeping the playing one in place.
func (d *Driver) Shuffle(ctx context.Context) error {
	return d.do(ctx, func() error {
		skip := 0
		if d.current != nil && d.queue.Head() == d.current {
			skip = 1
		}
		if err := d.queue.ShuffleFrom(skip); err != nil {
			return err
		}
		d.persist()
		return nil
	})
}

// ToggleRepeat flips playlist repeat and returns the new value.
func (d *Driver) ToggleRepeat(ctx context.Context) (bool, error) {
	var on bool
	err := d.do(ctx, func() error {
		d.queue.Repeat = !d.queue.Repeat
		on = d.queue.Repeat
		d.persist()
		return nil
	})
	return on, err
}

// ToggleLoop flips single-entry loop and returns the new value.
func (d *Driver) ToggleLoop(ctx context.Context) (bool, error) {
	var on bool
	err := d.do(ctx, func() error {
		d.queue.Loop = !d.queue.Loop
		on = d.queue.Loop
		d.persist()
		return nil
	})
	return on, err
}

// SetVolume applies a 0-100 volume live.
func (d *Driver) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 || volume > 100 {
		return ErrInvalidVolume
	}
	return d.do(ctx, func() error {
		d.volume = volume
		d.deps.Transport.SetVolume(volume)
		d.persist()
		return nil
	})
}

// Seek repositions the current download-path entry by re-fetching from the
// target offset. It returns the absolute target.
func (d *Driver) Seek(ctx context.Context, raw string) (time.Duration, error) {
	var target time.Duration
	err := d.do(ctx, func() error {
		e := d.current
		if e == nil || d.state != StatePlaying {
			return ErrNotPlaying
		}
		if e.Streaming {
			return ErrSeekStreaming
		}
		pos := d.seekOffset + d.deps.Transport.Position()
		t, err := ParseSeek(raw, pos)
		if err != nil {
			return err
		}
		if e.Duration > 0 && t >= e.Duration {
			return ErrSeekBeyond
		}
		target = t
		sys.LogQueue(sys.MsgQueueSeek, e.Title, FormatDuration(t), d.opts.GuildID)

		d.resetJobs()
		d.seeking = true
		d.seekOffset = t
		d.advancing = true
		d.deps.Transport.SetStatus("")
		d.download(e, 0)
		return nil
	})
	return target, err
}

// Equalizer exposes the guild's equalizer. Changes apply from the next download.
func (d *Driver) Equalizer() *Equalizer { return d.deps.Equalizer }

// Disconnected reports that voice dropped out from under the driver. The dead
// connection is released, the current entry stays queued and a reconnect is
// scheduled. It never blocks.
func (d *Driver) Disconnected() {
	go d.post(func() {
		if !d.connected {
			return
		}
		d.connected = false
		d.resetJobs()
		d.disconnect()
		d.current = nil
		d.advancing = false
		d.seeking = false
		d.seekOffset = 0
		d.paused = false
		d.setState(StateIdle)
		if d.queue.Len() == 0 {
			return
		}

		delay := d.opts.ReconnectDelay
		sys.LogVoice(sys.MsgVoiceLost, d.opts.GuildID, delay)
		d.notify(nil, sys.MsgMusicReconnecting, delay)
		gen := d.gen
		time.AfterFunc(delay, func() {
			d.post(func() {
				if gen != d.gen {
					return
				}
				sys.LogVoice(sys.MsgVoiceReconnecting, d.opts.GuildID)
				d.advance()
			})
		})
	})
}

// Restore loads a persisted backup into an idle driver. Playback resumes in
// voiceChannel, or the backup's own channel when that is 0; with neither the
// queue is only held.
func (d *Driver) Restore(ctx context.Context, b Backup, voiceChannel snowflake.ID) error {
	if voiceChannel == 0 {
		voiceChannel = b.Channel
	}
	return d.do(ctx, func() error {
		if !d.idle() {
			return nil
		}
		entries := b.Queue
		if b.Current != nil && !containsURL(entries, b.Current.URL) {
			entries = append([]Entry{*b.Current}, entries...)
		}
		d.queue.Restore(entries, b.OriginalPlaylist, b.Repeat, b.Loop)
		if b.Volume > 0 && b.Volume <= 100 {
			d.volume = b.Volume
			d.deps.Transport.SetVolume(b.Volume)
		}
		sys.LogDatabase(sys.MsgDatabaseQueueRestored, d.opts.GuildID, d.queue.Len())
		if voiceChannel != 0 && d.queue.Len() > 0 {
			d.channel = voiceChannel
			d.advance()
		}
		return nil
	})
}

func containsURL(entries []Entry, url string) bool {
	for _, e := range entries {
		if e.URL == url {
			return true
		}
	}
	return false
}

// Status returns a copy of the driver's state.
func (d *Driver) Status(ctx context.Context) (Status, error) {
	var st Status
	err := d.do(ctx, func() error {
		st = d.status()
		return nil
	})
	return st, err
}

// Close stops the loop, cancels every job and leaves voice. The persisted
// queue is kept for the next start.
func (d *Driver) Close() {
	d.cancel()
	<-d.done
}
