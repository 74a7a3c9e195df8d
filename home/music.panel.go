package home

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"golang.org/x/time/rate"
)

const volumeStep = 10

type panelRef struct {
	channel snowflake.ID
	message snowflake.ID
}

// panelNotifier posts driver updates to text channels. Each guild keeps one
// live control panel; a new song replaces the previous panel message.
type panelNotifier struct {
	client *bot.Client
	j      *proc.Jukebox

	mu     sync.Mutex
	panels map[snowflake.ID]panelRef
	edits  map[snowflake.ID]*rate.Limiter
}

func newPanelNotifier(client *bot.Client, j *proc.Jukebox) *panelNotifier {
	return &panelNotifier{
		client: client,
		j:      j,
		panels: make(map[snowflake.ID]panelRef),
		edits:  make(map[snowflake.ID]*rate.Limiter),
	}
}

func (n *panelNotifier) Notice(channelID snowflake.ID, text string) {
	sys.SafeGo(func() {
		if _, err := sys.SendContainerV2(n.client, channelID, sys.TextContainer(text)); err != nil {
			sys.LogWarn(sys.MsgMusicNotifyFail, channelID, err)
		}
	})
}

func (n *panelNotifier) NowPlaying(channelID snowflake.ID, st proc.Status) {
	sys.SafeGo(func() {
		msg, err := sys.SendContainerV2(n.client, channelID, renderPanel(st, n.j))
		if err != nil {
			sys.LogWarn(sys.MsgMusicNotifyFail, channelID, err)
			return
		}
		n.mu.Lock()
		old, ok := n.panels[st.GuildID]
		n.panels[st.GuildID] = panelRef{channel: channelID, message: msg.ID}
		n.mu.Unlock()
		if ok {
			_ = n.client.Rest.DeleteMessage(old.channel, old.message)
		}
	})
}

// allowEdit rate limits panel re-renders per guild. Clicks beyond the limit
// still act, the panel just catches up on a later click.
func (n *panelNotifier) allowEdit(guildID snowflake.ID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.edits[guildID]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Second), 3)
		n.edits[guildID] = l
	}
	return l.Allow()
}

func (n *panelNotifier) forget(guildID, messageID snowflake.ID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ref, ok := n.panels[guildID]; ok && ref.message == messageID {
		delete(n.panels, guildID)
	}
}

// renderPanel builds the now-playing container with its buttons.
func renderPanel(st proc.Status, j *proc.Jukebox) discord.ContainerComponent {
	var sleepAt time.Time
	if j != nil {
		sleepAt, _ = j.SleepAt(st.GuildID)
	}
	if st.Current == nil {
		return sys.TextContainer(sys.ErrMusicNothingPlaying)
	}
	subs := []discord.ContainerSubComponent{
		discord.NewTextDisplay(panelText(st, sleepAt)),
		discord.NewSeparator(discord.SeparatorSpacingSizeSmall).WithDivider(true),
	}
	for _, row := range panelRows(st, j != nil && j.Suggest != nil) {
		subs = append(subs, discord.NewActionRow(row...))
	}
	return discord.NewContainer(subs...)
}

func panelText(st proc.Status, sleepAt time.Time) string {
	cur := st.Current
	title := cur.Title
	if title == "" {
		title = cur.URL
	}
	lines := []string{
		fmt.Sprintf(sys.MsgMusicPanelTitle, sys.Truncate(title, 200), cur.URL),
		fmt.Sprintf(sys.MsgMusicPanelMeta, proc.FormatDuration(st.Position), entryLength(*cur), cur.RequestedBy),
	}
	if st.Paused {
		lines = append(lines, sys.MsgMusicPanelPaused)
	}
	for _, e := range st.Queue {
		if e.URL != cur.URL {
			lines = append(lines, fmt.Sprintf(sys.MsgMusicPanelNext, sys.Truncate(e.Title, 100)))
			break
		}
	}
	lines = append(lines, fmt.Sprintf(sys.MsgMusicModes, onOff(st.Repeat), onOff(st.Loop), st.Volume))
	if !st.Equalizer.IsDefault() {
		lines = append(lines, equalizerText(st.Equalizer))
	}
	if !sleepAt.IsZero() {
		lines = append(lines, fmt.Sprintf(sys.MsgMusicSleepPending, sleepAt.Unix()))
	}
	return strings.Join(lines, "\n")
}

func panelRows(st proc.Status, suggest bool) [][]discord.InteractiveComponent {
	toggle := func(on bool) discord.ButtonStyle {
		if on {
			return discord.ButtonStyleSuccess
		}
		return discord.ButtonStyleSecondary
	}
	pause := discord.ButtonStylePrimary
	if st.Paused {
		pause = discord.ButtonStyleSuccess
	}
	return [][]discord.InteractiveComponent{
		{
			discord.NewButton(pause, sys.MsgMusicBtnPause, "music:pause", "", 0),
			discord.NewButton(discord.ButtonStylePrimary, sys.MsgMusicBtnSkip, "music:skip", "", 0),
			discord.NewButton(discord.ButtonStyleDanger, sys.MsgMusicBtnStop, "music:stop", "", 0),
			discord.NewButton(discord.ButtonStyleSecondary, sys.MsgMusicBtnShuffle, "music:shuffle", "", 0),
			discord.NewButton(discord.ButtonStyleSecondary, sys.MsgMusicBtnQueue, "music:queue", "", 0),
		},
		{
			discord.NewButton(toggle(st.Repeat), sys.MsgMusicBtnRepeat, "music:repeat", "", 0),
			discord.NewButton(toggle(st.Loop), sys.MsgMusicBtnLoop, "music:loop", "", 0),
			discord.NewButton(discord.ButtonStyleSecondary, sys.MsgMusicBtnVolDown, "music:voldown", "", 0).WithDisabled(st.Volume <= 0),
			discord.NewButton(discord.ButtonStyleSecondary, sys.MsgMusicBtnVolUp, "music:volup", "", 0).WithDisabled(st.Volume >= 100),
			discord.NewButton(discord.ButtonStyleSecondary, sys.MsgMusicBtnFavorite, "music:favorite", "", 0),
		},
		{
			discord.NewButton(discord.ButtonStyleSecondary, sys.MsgMusicBtnSuggest, "music:suggest", "", 0).WithDisabled(!suggest),
			discord.NewButton(discord.ButtonStyleSecondary, sys.MsgMusicBtnNow, "music:nowplaying", "", 0),
			discord.NewButton(discord.ButtonStyleSecondary, sys.MsgMusicBtnClose, "music:close", "", 0),
		},
	}
}

func handleMusicComponent(event *events.ComponentInteractionCreate) {
	action := strings.TrimPrefix(event.Data.CustomID(), "music:")
	j := box.Load()
	if j == nil || event.GuildID() == nil {
		respondMusicError(event, errNotReady)
		return
	}
	guildID := *event.GuildID()

	switch action {
	case "close":
		if n, ok := j.Notifier.(*panelNotifier); ok {
			n.forget(guildID, event.Message.ID)
		}
		_ = event.UpdateMessage(discord.NewMessageUpdate().
			WithIsComponentsV2(true).
			WithComponents(sys.TextContainer(sys.MsgMusicPanelClosed)))
		return
	case "queue":
		showQueueEphemeral(event, j, guildID)
		return
	case "nowplaying":
		showPanelEphemeral(event, j, guildID)
		return
	case "favorite":
		favoriteCurrent(event, j, guildID)
		return
	case "suggest":
		handleSuggestButton(event, j, guildID)
		return
	case "suggestions":
		handleSuggestionPick(event, j, guildID)
		return
	}

	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), guildID, event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}

	switch action {
	case "pause":
		_, err = d.TogglePause(ctx)
	case "skip":
		if _, err = d.Skip(ctx, 1); err == nil {
			_ = event.UpdateMessage(discord.NewMessageUpdate().
				WithIsComponentsV2(true).
				WithComponents(sys.TextContainer(fmt.Sprintf(sys.MsgMusicSkipped, 1))))
			return
		}
	case "stop":
		var stopped bool
		if stopped, err = d.Stop(ctx); err == nil {
			if !stopped {
				respondMusicError(event, proc.ErrNotPlaying)
				return
			}
			j.CancelSleep(guildID)
			_ = event.UpdateMessage(discord.NewMessageUpdate().
				WithIsComponentsV2(true).
				WithComponents(sys.TextContainer(sys.MsgMusicStopped)))
			return
		}
	case "shuffle":
		err = d.Shuffle(ctx)
	case "repeat":
		_, err = d.ToggleRepeat(ctx)
	case "loop":
		_, err = d.ToggleLoop(ctx)
	case "volup", "voldown":
		var st proc.Status
		if st, err = d.Status(ctx); err == nil {
			step := volumeStep
			if action == "voldown" {
				step = -volumeStep
			}
			err = d.SetVolume(ctx, min(max(st.Volume+step, 0), 100))
		}
	default:
		return
	}
	if err != nil {
		respondMusicError(event, err)
		return
	}
	refreshPanel(ctx, event, j, d)
}

func refreshPanel(ctx context.Context, event *events.ComponentInteractionCreate, j *proc.Jukebox, d *proc.Driver) {
	if n, ok := j.Notifier.(*panelNotifier); ok && !n.allowEdit(*event.GuildID()) {
		_ = event.DeferUpdateMessage()
		return
	}
	st, err := d.Status(ctx)
	if err != nil {
		_ = event.DeferUpdateMessage()
		return
	}
	_ = event.UpdateMessage(discord.NewMessageUpdate().
		WithIsComponentsV2(true).
		WithComponents(renderPanel(st, j)))
}

func showQueueEphemeral(event *events.ComponentInteractionCreate, j *proc.Jukebox, guildID snowflake.ID) {
	d, ok := j.Lookup(guildID)
	if !ok {
		_ = sys.RespondV2(event, sys.MsgMusicQueueEmpty, true)
		return
	}
	ctx, cancel := musicContext()
	defer cancel()
	st, err := d.Status(ctx)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	sleepAt, _ := j.SleepAt(guildID)
	_ = sys.RespondV2(event, renderQueue(st, 1, sleepAt), true)
}

func showPanelEphemeral(event *events.ComponentInteractionCreate, j *proc.Jukebox, guildID snowflake.ID) {
	d, ok := j.Lookup(guildID)
	if !ok {
		respondMusicError(event, proc.ErrNotPlaying)
		return
	}
	ctx, cancel := musicContext()
	defer cancel()
	st, err := d.Status(ctx)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	_ = sys.RespondContainerV2(event, renderPanel(st, j), true)
}

func favoriteCurrent(event *events.ComponentInteractionCreate, j *proc.Jukebox, guildID snowflake.ID) {
	ctx, cancel := musicContext()
	defer cancel()
	cur, err := currentEntry(ctx, j, guildID)
	if err != nil {
		_ = sys.RespondV2(event, sys.ErrFavoritesNothing, true)
		return
	}
	_ = sys.RespondV2(event, saveFavorite(ctx, j, event.User().ID, cur), true)
}

// currentEntry returns the guild's playing entry or ErrNotPlaying.
func currentEntry(ctx context.Context, j *proc.Jukebox, guildID snowflake.ID) (proc.Entry, error) {
	d, ok := j.Lookup(guildID)
	if !ok {
		return proc.Entry{}, proc.ErrNotPlaying
	}
	st, err := d.Status(ctx)
	if err != nil {
		return proc.Entry{}, err
	}
	if st.Current == nil {
		return proc.Entry{}, proc.ErrNotPlaying
	}
	return *st.Current, nil
}
