package home

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

const queuePageSize = 10

func handleMusicQueue(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	page, _ := data.OptInt("page")
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	d, ok := j.Lookup(*event.GuildID())
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
	sleepAt, _ := j.SleepAt(st.GuildID)
	_ = sys.RespondV2(event, renderQueue(st, page, sleepAt), false)
}

// renderQueue formats one page of the queue. Positions match those accepted by
// move and remove; the playing entry is marked instead of numbered.
func renderQueue(st proc.Status, page int, sleepAt time.Time) string {
	if len(st.Queue) == 0 && st.Current == nil {
		return sys.MsgMusicQueueEmpty
	}

	pages := max(1, (len(st.Queue)+queuePageSize-1)/queuePageSize)
	page = min(max(page, 1), pages)
	start := (page - 1) * queuePageSize
	end := min(start+queuePageSize, len(st.Queue))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(sys.MsgMusicQueueHeader, len(st.Queue), page, pages))
	for i := start; i < end; i++ {
		e := st.Queue[i]
		sb.WriteByte('\n')
		title := sys.Truncate(e.Title, 80)
		if title == "" {
			title = e.URL
		}
		if st.Current != nil && e.URL == st.Current.URL {
			sb.WriteString(fmt.Sprintf(sys.MsgMusicQueueCurrent, title, entryLength(e)))
			continue
		}
		sb.WriteString(fmt.Sprintf(sys.MsgMusicQueueItem, i+1, title, entryLength(e)))
	}
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(sys.MsgMusicModes, onOff(st.Repeat), onOff(st.Loop), st.Volume))
	if !sleepAt.IsZero() {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(sys.MsgMusicSleepPending, sleepAt.Unix()))
	}
	return sb.String()
}

func entryLength(e proc.Entry) string {
	if e.Duration <= 0 {
		return sys.MsgMusicUnknownLength
	}
	return proc.FormatDuration(e.Duration)
}

func handleMusicMove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	to := data.Int("to")
	e, err := d.Move(ctx, data.Int("from"), to)
	if errors.Is(err, proc.ErrOutOfRange) {
		_ = sys.RespondV2(event, outOfRangeText(d), true)
		return
	}
	if err != nil {
		respondMusicError(event, err)
		return
	}
	_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgMusicMoved, e.Title, to), false)
}

func handleMusicRemove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	e, err := d.Remove(ctx, data.Int("position"))
	if errors.Is(err, proc.ErrOutOfRange) {
		_ = sys.RespondV2(event, outOfRangeText(d), true)
		return
	}
	if err != nil {
		respondMusicError(event, err)
		return
	}
	_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgMusicRemoved, e.Title), false)
}

func outOfRangeText(d *proc.Driver) string {
	ctx, cancel := musicContext()
	defer cancel()
	st, err := d.Status(ctx)
	if err != nil || len(st.Queue) == 0 {
		return sys.MsgMusicQueueEmpty
	}
	return fmt.Sprintf(sys.ErrMusicOutOfRange, len(st.Queue))
}

func handleMusicShuffle(event *events.ApplicationCommandInteractionCreate) {
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	if err := d.Shuffle(ctx); err != nil {
		respondMusicError(event, err)
		return
	}
	_ = sys.RespondV2(event, sys.MsgMusicShuffled, false)
}
