package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
)

func handleFavoritesPlay(event *events.ApplicationCommandInteractionCreate) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	guildID := *event.GuildID()
	userID := event.User().ID

	ctx, cancel := context.WithTimeout(context.Background(), musicPlayTimeout)
	defer cancel()
	voice, err := listenerChannel(ctx, event.Client(), j, guildID, userID)
	if err != nil {
		respondMusicError(event, err)
		return
	}

	favs, err := j.Store.Favorites(ctx, userID)
	if err != nil {
		sys.LogWarn(sys.MsgDatabaseFavoriteFail, userID, err)
		_ = sys.RespondV2(event, sys.ErrFavoritesFailed, true)
		return
	}
	if len(favs) == 0 {
		_ = sys.RespondV2(event, sys.MsgFavoritesEmpty, true)
		return
	}

	reply := event.Channel().ID()
	entries := lo.Map(favs, func(f proc.Entry, _ int) *proc.Entry {
		f.RequestedBy = userID
		f.ReplyChannel = reply
		return &f
	})
	added, skipped, err := j.Driver(guildID).EnqueueMany(ctx, entries, voice)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgFavoritesQueued, added, skipped), false)
}
