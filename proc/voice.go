package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

var (
	OpusSilence     = []byte{0xf8, 0xff, 0xfe}
	SilenceDuration = 1 * time.Second
)

const (
	joinAttempts   = 5
	frameDuration  = 20 * time.Millisecond
	frameBuffer    = 100
	maxStatusRunes = 128
)

// VoiceTransport plays Opus frames into one guild's voice channel.
type VoiceTransport struct {
	client  *bot.Client
	guildID snowflake.ID

	mu      sync.Mutex
	conn    voice.Conn
	channel snowflake.ID

	pauseMu   sync.RWMutex
	pauseChan chan struct{}

	volume atomic.Int32
	played atomic.Int64

	statusMu   sync.Mutex
	lastStatus string
}

func NewVoiceTransport(client *bot.Client, guildID snowflake.ID) *VoiceTransport {
	v := &VoiceTransport{
		client:    client,
		guildID:   guildID,
		pauseChan: make(chan struct{}),
	}
	close(v.pauseChan)
	v.volume.Store(100)
	return v
}

// Connect joins channelID, retrying with exponential backoff.
func (v *VoiceTransport) Connect(ctx context.Context, channelID snowflake.ID) error {
	if channelID == 0 {
		return errors.New("no voice channel")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn != nil && v.conn.ChannelID() == nil {
		// Discord closed the session; the old conn no longer sends audio.
		v.conn.Close(ctx)
		v.conn = nil
		v.channel = 0
	}
	if v.conn != nil && v.channel == channelID {
		return nil
	}
	if v.conn == nil {
		v.conn = v.client.VoiceManager.CreateConn(v.guildID)
	}

	var lastErr error
	for i := range joinAttempts {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			sys.LogVoice(sys.MsgVoiceJoinRetry, backoff, i+1, joinAttempts)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				lastErr = ctx.Err()
			}
			if ctx.Err() != nil {
				break
			}
		}
		if err := v.conn.Open(ctx, channelID, false, false); err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		sys.LogVoice(sys.MsgVoiceJoinFailed, v.guildID, joinAttempts, lastErr)
		v.conn.Close(context.WithoutCancel(ctx))
		v.conn = nil
		return lastErr
	}
	v.channel = channelID
	return nil
}

// Disconnect clears the status line and leaves the channel.
func (v *VoiceTransport) Disconnect(ctx context.Context) {
	v.SetStatus("")
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn == nil {
		return
	}
	v.conn.SetOpusFrameProvider(nil)
	v.conn.Close(ctx)
	v.conn = nil
	v.channel = 0
}

// Play transcodes src into the voice connection until it ends or ctx is done.
func (v *VoiceTransport) Play(ctx context.Context, src Source) error {
	v.mu.Lock()
	conn := v.conn
	v.mu.Unlock()
	if conn == nil {
		return ErrDisconnected
	}

	tr := NewTranscoder(&v.volume)
	defer tr.Close()
	in := src.URL
	if src.Path != "" {
		in = src.Path
	}
	if err := tr.Open(in, src.Reader); err != nil {
		return fmt.Errorf("open %s: %w", src.Title, err)
	}

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v.played.Store(0)
	finished := make(chan struct{})
	p := newStreamProvider(pctx, v)
	p.onFinish = func() { close(finished) }

	if !setProviderSafe(conn, p) {
		sys.LogVoice(sys.MsgVoiceProviderRetries, v.guildID)
	}
	setSpeakingSafe(pctx, conn)

	errc := make(chan error, 1)
	go func() { errc <- tr.Transcode(pctx, p.push) }()

	select {
	case <-finished:
		return <-errc
	case <-ctx.Done():
		cancel()
		<-errc
		setProviderSafe(conn, nil)
		return ctx.Err()
	}
}

// SetPaused holds or releases the frame provider.
func (v *VoiceTransport) SetPaused(paused bool) {
	v.pauseMu.Lock()
	defer v.pauseMu.Unlock()
	open := false
	select {
	case <-v.pauseChan:
		open = true
	default:
	}
	switch {
	case paused && open:
		v.pauseChan = make(chan struct{})
	case !paused && !open:
		close(v.pauseChan)
	}
}

func (v *VoiceTransport) pauseGate() <-chan struct{} {
	v.pauseMu.RLock()
	defer v.pauseMu.RUnlock()
	return v.pauseChan
}

// SetVolume takes effect from the next encoded frame.
func (v *VoiceTransport) SetVolume(volume int) {
	v.volume.Store(int32(min(max(volume, 0), 100)))
}

func (v *VoiceTransport) Position() time.Duration {
	return time.Duration(v.played.Load()) * frameDuration
}

// SetStatus updates the voice channel status line in the background.
func (v *VoiceTransport) SetStatus(status string) {
	status = sys.Truncate(status, maxStatusRunes)
	v.statusMu.Lock()
	if status == v.lastStatus {
		v.statusMu.Unlock()
		return
	}
	v.lastStatus = status
	v.statusMu.Unlock()

	v.mu.Lock()
	channelID := v.channel
	v.mu.Unlock()
	if channelID == 0 {
		return
	}
	go func(cid snowflake.ID, s string) {
		route := rest.NewEndpoint(http.MethodPut, "/channels/"+cid.String()+"/voice-status")
		if err := v.client.Rest.Do(route.Compile(nil), map[string]string{"status": s}, nil); err != nil {
			sys.LogVoice(sys.MsgVoiceStatusFail, cid, err)
		}
	}(channelID, status)
}

func setProviderSafe(conn voice.Conn, p voice.OpusFrameProvider) bool {
	for i := range 3 {
		if trySetProvider(conn, p) {
			return true
		}
		if i < 2 {
			time.Sleep(150 * time.Millisecond)
		}
	}
	return false
}

func trySetProvider(conn voice.Conn, p voice.OpusFrameProvider) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	conn.SetOpusFrameProvider(p)
	return true
}

func setSpeakingSafe(ctx context.Context, conn voice.Conn) {
	defer func() { _ = recover() }()
	conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone)
}

// streamProvider hands buffered frames to the voice sender. A nil frame ends
// the stream after a short tail of silence.
type streamProvider struct {
	ctx           context.Context
	v             *VoiceTransport
	frames        chan []byte
	once          sync.Once
	onFinish      func()
	draining      bool
	silenceFrames int
}

func newStreamProvider(ctx context.Context, v *VoiceTransport) *streamProvider {
	return &streamProvider{ctx: ctx, v: v, frames: make(chan []byte, frameBuffer)}
}

func (p *streamProvider) push(f []byte) {
	select {
	case p.frames <- f:
	case <-p.ctx.Done():
	}
}

func (p *streamProvider) finish() {
	p.once.Do(func() {
		if p.onFinish != nil {
			p.onFinish()
		}
	})
}

func (p *streamProvider) ProvideOpusFrame() ([]byte, error) {
	select {
	case <-p.v.pauseGate():
	case <-p.ctx.Done():
		return nil, io.EOF
	}

	if p.draining {
		if p.silenceFrames < int(SilenceDuration/frameDuration) {
			p.silenceFrames++
			return OpusSilence, nil
		}
		p.finish()
		return nil, io.EOF
	}

	select {
	case f := <-p.frames:
		if f == nil {
			p.draining = true
			return OpusSilence, nil
		}
		p.v.played.Add(1)
		return f, nil
	case <-p.ctx.Done():
		return nil, io.EOF
	case <-time.After(500 * time.Millisecond):
		return OpusSilence, nil
	}
}

func (p *streamProvider) Close() { p.finish() }
