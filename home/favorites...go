package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "favorites",
		Description: "Your saved songs",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "add",
				Description: "Save a song, or the one playing now",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "url",
						Description: "YouTube link or search",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{Name: "list", Description: "Show your favorites"},
			discord.ApplicationCommandOptionSubCommand{Name: "play", Description: "Queue all your favorites"},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove a favorite",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{Name: "position", Description: "Position in your list", Required: true},
				},
			},
			discord.ApplicationCommandOptionSubCommand{Name: "clear", Description: "Remove all your favorites"},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		data := event.SlashCommandInteractionData()
		if data.SubCommandName == nil {
			return
		}

		switch *data.SubCommandName {
		case "add":
			handleFavoritesAdd(event, data)
		case "list":
			handleFavoritesList(event)
		case "play":
			handleFavoritesPlay(event)
		case "remove":
			handleFavoritesRemove(event, data)
		case "clear":
			handleFavoritesClear(event)
		}
	})
}
