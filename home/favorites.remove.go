package home

import (
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleFavoritesRemove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	ctx, cancel := musicContext()
	defer cancel()
	userID := event.User().ID

	e, err := j.Store.RemoveFavorite(ctx, userID, data.Int("position"))
	switch {
	case errors.Is(err, proc.ErrOutOfRange):
		favs, _ := j.Store.Favorites(ctx, userID)
		if len(favs) == 0 {
			_ = sys.RespondV2(event, sys.MsgFavoritesEmpty, true)
			return
		}
		_ = sys.RespondV2(event, fmt.Sprintf(sys.ErrMusicOutOfRange, len(favs)), true)
	case err != nil:
		sys.LogWarn(sys.MsgDatabaseFavoriteFail, userID, err)
		_ = sys.RespondV2(event, sys.ErrFavoritesFailed, true)
	default:
		_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgFavoritesRemoved, e.Title), true)
	}
}

func handleFavoritesClear(event *events.ApplicationCommandInteractionCreate) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	ctx, cancel := musicContext()
	defer cancel()
	n, err := j.Store.ClearFavorites(ctx, event.User().ID)
	if err != nil {
		sys.LogWarn(sys.MsgDatabaseFavoriteFail, event.User().ID, err)
		_ = sys.RespondV2(event, sys.ErrFavoritesFailed, true)
		return
	}
	_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgFavoritesCleared, n), true)
}
