package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

const favoritesListLimit = 3800

func handleFavoritesList(event *events.ApplicationCommandInteractionCreate) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	ctx, cancel := musicContext()
	defer cancel()
	favs, err := j.Store.Favorites(ctx, event.User().ID)
	if err != nil {
		sys.LogWarn(sys.MsgDatabaseFavoriteFail, event.User().ID, err)
		_ = sys.RespondV2(event, sys.ErrFavoritesFailed, true)
		return
	}
	_ = sys.RespondV2(event, renderFavorites(favs), true)
}

func renderFavorites(favs []proc.Entry) string {
	if len(favs) == 0 {
		return sys.MsgFavoritesEmpty
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(sys.MsgFavoritesHeader, len(favs)))
	for i, f := range favs {
		line := "\n" + fmt.Sprintf(sys.MsgFavoritesItem, i+1, sys.Truncate(f.Title, 80), entryLength(f))
		if sb.Len()+len(line) > favoritesListLimit {
			sb.WriteString("\n…")
			break
		}
		sb.WriteString(line)
	}
	return sb.String()
}
