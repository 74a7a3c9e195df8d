package proc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/leeineian/jukebox/sys"
)

// PresenceVisibleKey is the bot_config key that turns presence rotation off
// when set to "false".
const PresenceVisibleKey = "presence_visible"

// Presence rotates the bot's listening activity between summaries of what the
// jukebox is doing.
type Presence struct {
	j       *Jukebox
	set     func(ctx context.Context, text string) error
	clear   func(ctx context.Context) error
	started time.Time
	last    string
	kick    chan struct{}
}

// NewPresence builds a rotator. set publishes an activity line; clear drops it.
func NewPresence(j *Jukebox, set func(ctx context.Context, text string) error, clear func(ctx context.Context) error) *Presence {
	return &Presence{
		j:       j,
		set:     set,
		clear:   clear,
		started: time.Now(),
		kick:    make(chan struct{}, 1),
	}
}

func rotationInterval() time.Duration {
	return time.Duration(20+rand.IntN(41)) * time.Second
}

// Run rotates until ctx ends.
func (p *Presence) Run(ctx context.Context) {
	for {
		next := rotationInterval()
		p.update(ctx, next)
		select {
		case <-time.After(next):
		case <-p.kick:
		case <-ctx.Done():
			return
		}
	}
}

// Refresh asks Run to update now, for instance after visibility changed.
func (p *Presence) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Presence) update(ctx context.Context, next time.Duration) {
	if v, err := sys.GetBotConfig(ctx, PresenceVisibleKey); err == nil && v == "false" {
		p.last = ""
		if err := p.clear(ctx); err != nil {
			sys.LogQueue(sys.MsgQueuePresenceFail, err)
		}
		return
	}

	text := p.pick(p.Lines(ctx))
	if err := p.set(ctx, text); err != nil {
		sys.LogQueue(sys.MsgQueuePresenceFail, err)
		return
	}
	sys.LogDebug(sys.MsgQueuePresence, text, next)
}

// Lines lists the candidate activity texts for the current state.
func (p *Presence) Lines(ctx context.Context) []string {
	var playing, queued int
	var title string
	for _, g := range p.j.Guilds() {
		d, ok := p.j.Lookup(g)
		if !ok {
			continue
		}
		st, err := d.Status(ctx)
		if err != nil || st.Current == nil {
			continue
		}
		playing++
		n := len(st.Queue)
		if n > 0 && st.Queue[0].URL == st.Current.URL {
			n--
		}
		queued += n
		title = st.Current.Title
	}

	up := time.Since(p.started)
	lines := []string{fmt.Sprintf(sys.MsgPresenceUptime, int(up.Hours()), int(up.Minutes())%60)}
	switch {
	case playing == 0:
		return append(lines, sys.MsgPresenceIdle)
	case playing == 1 && title != "":
		lines = append(lines, fmt.Sprintf(sys.MsgPresenceListening, sys.Truncate(title, 120)))
	default:
		lines = append(lines, fmt.Sprintf(sys.MsgPresenceGuilds, playing))
	}
	if queued > 0 {
		lines = append(lines, fmt.Sprintf(sys.MsgPresenceQueued, queued))
	}
	return lines
}

// pick chooses a line other than the previous one when there is a choice.
func (p *Presence) pick(lines []string) string {
	choices := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != p.last {
			choices = append(choices, l)
		}
	}
	if len(choices) == 0 {
		choices = lines
	}
	p.last = choices[rand.IntN(len(choices))]
	return p.last
}
