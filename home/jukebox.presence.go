package home

import (
	"context"
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleJukeboxPresence(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	visible := data.Bool("visible")

	ctx, cancel := context.WithTimeout(context.Background(), musicOpTimeout)
	defer cancel()
	if err := sys.SetBotConfig(ctx, proc.PresenceVisibleKey, strconv.FormatBool(visible)); err != nil {
		sys.LogError(sys.MsgGenericError, err)
		_ = sys.RespondV2(event, sys.ErrMusicGeneric, true)
		return
	}
	if p := presence.Load(); p != nil {
		p.Refresh()
	}

	msg := sys.MsgMusicPresenceOff
	if visible {
		msg = sys.MsgMusicPresenceOn
	}
	_ = sys.RespondV2(event, msg, true)
}
