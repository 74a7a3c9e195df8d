package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// playRequest is everything needed to queue one query for one caller.
type playRequest struct {
	guildID snowflake.ID
	voice   snowflake.ID
	userID  snowflake.ID
	reply   snowflake.ID
	query   string
	next    bool
}

func handleMusicPlay(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	guildID := *event.GuildID()

	ctx, cancel := context.WithTimeout(context.Background(), musicPlayTimeout)
	defer cancel()

	voice, err := listenerChannel(ctx, event.Client(), j, guildID, event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}

	position, _ := data.OptString("position")
	_ = event.DeferCreateMessage(false)

	text := playQuery(ctx, j, playRequest{
		guildID: guildID,
		voice:   voice,
		userID:  event.User().ID,
		reply:   event.Channel().ID(),
		query:   data.String("query"),
		next:    position == "next",
	})
	_ = sys.EditDeferredTextV2(event.Client(), event.ApplicationID(), event.Token(), text)
}

// playQuery resolves a query and queues the result, returning the reply text.
func playQuery(ctx context.Context, j *proc.Jukebox, req playRequest) string {
	res, err := j.Search.Resolve(ctx, req.query)
	if err != nil {
		return musicErrorText(err)
	}
	d := j.Driver(req.guildID)

	if proc.IsPlaylist(res.URL) {
		entries, err := j.Expand(ctx, res.URL, req.userID, req.reply)
		if err != nil {
			return musicErrorText(err)
		}
		added, skipped, err := d.EnqueueMany(ctx, entries, req.voice)
		if err != nil {
			return musicErrorText(err)
		}
		return fmt.Sprintf(sys.MsgMusicPlaylistQueued, added, skipped)
	}

	info := j.Info(ctx, res.URL)
	if info.Long {
		return musicErrorText(proc.ErrTooLong)
	}
	title := info.Title
	if info.Fallback && res.Title != "" {
		title = res.Title
	}
	e := &proc.Entry{
		URL:          res.URL,
		Title:        title,
		Duration:     info.Duration,
		Streaming:    info.Streaming,
		Resolved:     !info.Fallback,
		RequestedBy:  req.userID,
		ReplyChannel: req.reply,
	}
	pos, err := d.Enqueue(ctx, e, req.voice, req.next)
	if err != nil {
		return musicErrorText(err)
	}
	if req.next {
		return fmt.Sprintf(sys.MsgMusicQueuedNext, title)
	}
	return fmt.Sprintf(sys.MsgMusicQueued, title, pos)
}
