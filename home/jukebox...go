package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/jukebox/sys"
)

func init() {
	adminPerm := discord.PermissionAdministrator

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "jukebox",
		Description:              "Jukebox maintenance (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "cleanup",
				Description: "Remove orphaned temporary audio files",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "diagnose",
				Description: "Show the last downloader output for this server",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "presence",
				Description: "Show what is playing in the bot's status",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionBool{
						Name:        "visible",
						Description: "Enable or disable the rotating status",
						Required:    true,
					},
				},
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		data := event.SlashCommandInteractionData()
		if data.SubCommandName == nil {
			return
		}

		switch *data.SubCommandName {
		case "cleanup":
			handleJukeboxCleanup(event)
		case "diagnose":
			handleJukeboxDiagnose(event)
		case "presence":
			handleJukeboxPresence(event, data)
		}
	})
}
