package home

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleFavoritesAdd(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	query, hasQuery := data.OptString("url")

	if !hasQuery {
		ctx, cancel := musicContext()
		defer cancel()
		cur, err := currentEntry(ctx, j, *event.GuildID())
		if err != nil {
			_ = sys.RespondV2(event, sys.ErrFavoritesNothing, true)
			return
		}
		_ = sys.RespondV2(event, saveFavorite(ctx, j, event.User().ID, cur), true)
		return
	}

	_ = event.DeferCreateMessage(true)
	ctx, cancel := context.WithTimeout(context.Background(), musicPlayTimeout)
	defer cancel()

	text := sys.ErrFavoritesNothing
	if res, err := j.Search.Resolve(ctx, query); err != nil {
		text = musicErrorText(err)
	} else if !proc.IsPlaylist(res.URL) {
		info := j.Info(ctx, res.URL)
		title := info.Title
		if info.Fallback && res.Title != "" {
			title = res.Title
		}
		text = saveFavorite(ctx, j, event.User().ID, proc.Entry{
			URL:       res.URL,
			Title:     title,
			Duration:  info.Duration,
			Streaming: info.Streaming,
		})
	}
	_ = sys.EditDeferredTextV2(event.Client(), event.ApplicationID(), event.Token(), text)
}

// saveFavorite stores e for userID and returns the reply text.
func saveFavorite(ctx context.Context, j *proc.Jukebox, userID snowflake.ID, e proc.Entry) string {
	err := j.Store.AddFavorite(ctx, userID, e)
	switch {
	case errors.Is(err, proc.ErrDuplicate):
		return sys.ErrFavoritesDuplicate
	case err != nil:
		sys.LogWarn(sys.MsgDatabaseFavoriteFail, userID, err)
		return sys.ErrFavoritesFailed
	}
	return fmt.Sprintf(sys.MsgFavoritesAdded, e.Title)
}
