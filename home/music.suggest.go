package home

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
)

func handleMusicSuggest(event *events.ApplicationCommandInteractionCreate) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	_ = event.DeferCreateMessage(false)

	ctx, cancel := musicContext()
	defer cancel()
	container, err := suggestionsFor(ctx, j, *event.GuildID())
	if err != nil {
		_ = sys.EditDeferredTextV2(event.Client(), event.ApplicationID(), event.Token(), suggestErrorText(err))
		return
	}
	_ = sys.EditDeferredV2(event.Client(), event.ApplicationID(), event.Token(), container)
}

func handleSuggestButton(event *events.ComponentInteractionCreate, j *proc.Jukebox, guildID snowflake.ID) {
	_ = event.DeferCreateMessage(true)

	ctx, cancel := musicContext()
	defer cancel()
	container, err := suggestionsFor(ctx, j, guildID)
	if err != nil {
		_ = sys.EditDeferredTextV2(event.Client(), event.ApplicationID(), event.Token(), suggestErrorText(err))
		return
	}
	_ = sys.EditDeferredV2(event.Client(), event.ApplicationID(), event.Token(), container)
}

// handleSuggestionPick queues the song chosen from a suggestion menu.
func handleSuggestionPick(event *events.ComponentInteractionCreate, j *proc.Jukebox, guildID snowflake.ID) {
	data, ok := event.Data.(discord.StringSelectMenuInteractionData)
	if !ok || len(data.Values) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), musicPlayTimeout)
	defer cancel()
	voice, err := listenerChannel(ctx, event.Client(), j, guildID, event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	_ = event.DeferCreateMessage(false)

	text := playQuery(ctx, j, playRequest{
		guildID: guildID,
		voice:   voice,
		userID:  event.User().ID,
		reply:   event.Channel().ID(),
		query:   data.Values[0],
	})
	_ = sys.EditDeferredTextV2(event.Client(), event.ApplicationID(), event.Token(), text)
}

// suggestionsFor lists songs similar to the guild's current one as a select menu.
func suggestionsFor(ctx context.Context, j *proc.Jukebox, guildID snowflake.ID) (discord.ContainerComponent, error) {
	if j.Suggest == nil {
		return discord.ContainerComponent{}, proc.ErrNoSuggester
	}
	cur, err := currentEntry(ctx, j, guildID)
	if err != nil {
		return discord.ContainerComponent{}, err
	}
	lines, err := j.Suggest.SuggestSimilar(ctx, cur.Title)
	if err != nil {
		return discord.ContainerComponent{}, err
	}
	lines = lo.Uniq(lo.Map(lines, func(l string, _ int) string { return sys.Truncate(l, 100) }))
	if len(lines) == 0 {
		return discord.ContainerComponent{}, proc.ErrNoResults
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(sys.MsgMusicSuggestHeader, sys.Truncate(cur.Title, 100)))
	opts := make([]discord.StringSelectMenuOption, 0, len(lines))
	for i, l := range lines {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, l))
		opts = append(opts, discord.NewStringSelectMenuOption(l, l))
	}
	menu := discord.NewStringSelectMenu("music:suggestions", sys.MsgMusicSuggestPick, opts...)
	return discord.NewContainer(discord.NewTextDisplay(sb.String()), discord.NewActionRow(menu)), nil
}

func suggestErrorText(err error) string {
	switch {
	case errors.Is(err, proc.ErrOverloaded), errors.Is(err, proc.ErrNoSuggester),
		errors.Is(err, proc.ErrNotPlaying), errors.Is(err, proc.ErrNoResults),
		errors.Is(err, errNotReady):
		return musicErrorText(err)
	default:
		sys.LogWarn(sys.MsgGenericError, err)
		return sys.ErrMusicSuggestFailed
	}
}
