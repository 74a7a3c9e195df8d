package home

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/sho0pi/naturaltime"
)

const (
	musicOpTimeout   = 15 * time.Second
	musicPlayTimeout = 90 * time.Second
	orphanSweepEvery = 30 * time.Minute
	metadataSweep    = 5 * time.Minute
)

var (
	box         atomic.Pointer[proc.Jukebox]
	jukeboxOnce sync.Once
	sleepParser *naturaltime.Parser
	presence    atomic.Pointer[proc.Presence]

	errNotInVoice   = errors.New("caller is not in a voice channel")
	errOtherChannel = errors.New("bot is playing in another channel")
	errNotReady     = errors.New("jukebox is not ready")
)

func init() {
	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		jukeboxOnce.Do(func() { startJukebox(client) })
	})

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "music",
		Description: "YouTube jukebox",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "play",
				Description: "Queue a YouTube link, playlist or search",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:         "query",
						Description:  "URL or song name",
						Required:     true,
						Autocomplete: true,
					},
					discord.ApplicationCommandOptionString{
						Name:        "position",
						Description: "Where to queue it",
						Choices: []discord.ApplicationCommandOptionChoiceString{
							{Name: "end of queue", Value: "end"},
							{Name: "play next", Value: "next"},
						},
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "skip",
				Description: "Skip the current song",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "count",
						Description: "How many songs to skip",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "queue",
				Description: "Show the queue",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "page",
						Description: "Page number",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "move",
				Description: "Move a queued song",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{Name: "from", Description: "Current position", Required: true},
					discord.ApplicationCommandOptionInt{Name: "to", Description: "New position", Required: true},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove a queued song",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{Name: "position", Description: "Queue position", Required: true},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "volume",
				Description: "Set the playback volume",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{Name: "level", Description: "0-100", Required: true},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "seek",
				Description: "Jump within the current song",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "position",
						Description: "90, 1:30, +30 or -15",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{Name: "shuffle", Description: "Shuffle the upcoming songs"},
			discord.ApplicationCommandOptionSubCommand{Name: "repeat", Description: "Toggle repeating the playlist"},
			discord.ApplicationCommandOptionSubCommand{Name: "loop", Description: "Toggle looping the current song"},
			discord.ApplicationCommandOptionSubCommand{Name: "pause", Description: "Pause or resume"},
			discord.ApplicationCommandOptionSubCommand{Name: "stop", Description: "Stop and clear the queue"},
			discord.ApplicationCommandOptionSubCommand{Name: "nowplaying", Description: "Show the control panel"},
			discord.ApplicationCommandOptionSubCommand{Name: "suggest", Description: "Suggest songs like the current one"},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "sleep",
				Description: "Stop playback later",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "when",
						Description: "e.g. in 30 minutes, 1h, or cancel",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "equalizer",
				Description: "Adjust bass, treble and speed",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{Name: "bass", Description: "-10 to 10 dB"},
					discord.ApplicationCommandOptionInt{Name: "treble", Description: "-10 to 10 dB"},
					discord.ApplicationCommandOptionFloat{Name: "speed", Description: "0.5 to 2.0"},
					discord.ApplicationCommandOptionString{
						Name:        "preset",
						Description: "Named preset",
						Choices:     presetChoices(),
					},
				},
			},
		},
	}, handleMusic)

	sys.RegisterAutocompleteHandler("music", handleMusicAutocomplete)
	sys.RegisterComponentHandler("music:", handleMusicComponent)
	sys.RegisterVoiceStateUpdateHandler(onMusicVoiceState)
}

func handleMusic(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}

	switch *data.SubCommandName {
	case "play":
		handleMusicPlay(event, data)
	case "skip":
		handleMusicSkip(event, data)
	case "queue":
		handleMusicQueue(event, data)
	case "move":
		handleMusicMove(event, data)
	case "remove":
		handleMusicRemove(event, data)
	case "volume":
		handleMusicVolume(event, data)
	case "seek":
		handleMusicSeek(event, data)
	case "shuffle":
		handleMusicShuffle(event)
	case "repeat":
		handleMusicRepeat(event)
	case "loop":
		handleMusicLoop(event)
	case "pause":
		handleMusicPause(event)
	case "stop":
		handleMusicStop(event)
	case "nowplaying":
		handleMusicNowPlaying(event)
	case "suggest":
		handleMusicSuggest(event)
	case "sleep":
		handleMusicSleep(event, data)
	case "equalizer":
		handleMusicEqualizer(event, data)
	}
}

func startJukebox(client *bot.Client) {
	j := proc.NewJukebox(sys.GlobalConfig, func(guildID snowflake.ID) proc.Transport {
		return proc.NewVoiceTransport(client, guildID)
	})
	j.Notifier = newPanelNotifier(client, j)

	var err error
	if sleepParser, err = naturaltime.New(); err != nil {
		sys.LogWarn(sys.MsgQueueSleepParser, err)
	}
	box.Store(j)

	sys.RegisterDaemon(sys.LogDownload, func(ctx context.Context) (bool, func(), func()) {
		return true, func() { runJanitor(ctx, j) }, nil
	})
	sys.RegisterDaemon(sys.LogQueue, func(ctx context.Context) (bool, func(), func()) {
		return true, func() {
			if n := j.RestoreAll(ctx); n > 0 {
				sys.LogQueue(sys.MsgQueueRestoredAll, n)
			}
		}, j.Shutdown
	})

	p := proc.NewPresence(j,
		func(ctx context.Context, text string) error {
			return client.SetPresence(ctx,
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
				gateway.WithListeningActivity(text),
			)
		},
		func(ctx context.Context) error {
			return client.SetPresence(ctx,
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
				gateway.WithListeningActivity(sys.DefaultActivity),
			)
		},
	)
	presence.Store(p)
	sys.RegisterDaemon(sys.LogQueue, func(ctx context.Context) (bool, func(), func()) {
		return true, func() { p.Run(ctx) }, nil
	})
}

// runJanitor clears orphans left by a previous run, then keeps the metadata
// cache and temp dir tidy until ctx ends.
func runJanitor(ctx context.Context, j *proc.Jukebox) {
	_, _ = j.SweepOrphans()
	go j.Resolver.RunSweeper(ctx, metadataSweep)

	ticker := time.NewTicker(orphanSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.SweepOrphans(); err != nil {
				sys.LogDownloadWarn(sys.MsgDownloadCleanupErr, sys.GlobalConfig.TempDir, err)
			}
		}
	}
}

// onMusicVoiceState tells a guild's driver when the bot was dropped from voice.
func onMusicVoiceState(event *events.GuildVoiceStateUpdate) {
	j := box.Load()
	if j == nil || event.VoiceState.UserID != event.Client().ID() || event.VoiceState.ChannelID != nil {
		return
	}
	if d, ok := j.Lookup(event.VoiceState.GuildID); ok {
		d.Disconnected()
	}
}

func musicContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), musicOpTimeout)
}

// listenerChannel returns the caller's voice channel. It fails when the caller
// is not in voice or the bot is already playing elsewhere.
func listenerChannel(ctx context.Context, client *bot.Client, j *proc.Jukebox, guildID, userID snowflake.ID) (snowflake.ID, error) {
	vs, ok := client.Caches.VoiceState(guildID, userID)
	if !ok || vs.ChannelID == nil {
		return 0, errNotInVoice
	}
	if d, ok := j.Lookup(guildID); ok {
		st, err := d.Status(ctx)
		if err != nil {
			return 0, err
		}
		if st.Connected && st.Channel != 0 && st.Channel != *vs.ChannelID {
			return 0, errOtherChannel
		}
	}
	return *vs.ChannelID, nil
}

// controlDriver returns the guild's driver for a control that needs the caller
// listening alongside the bot.
func controlDriver(ctx context.Context, client *bot.Client, guildID, userID snowflake.ID) (*proc.Driver, error) {
	j := box.Load()
	if j == nil {
		return nil, errNotReady
	}
	d, ok := j.Lookup(guildID)
	if !ok {
		return nil, proc.ErrNotPlaying
	}
	if _, err := listenerChannel(ctx, client, j, guildID, userID); err != nil {
		return nil, err
	}
	return d, nil
}

// musicErrorText maps an error to the text shown to users. Raw tool output
// never reaches chat.
func musicErrorText(err error) string {
	switch {
	case errors.Is(err, errNotInVoice):
		return sys.ErrMusicNotInVoice
	case errors.Is(err, errOtherChannel):
		return sys.ErrMusicOtherChannel
	case errors.Is(err, errNotReady), errors.Is(err, proc.ErrClosed):
		return sys.ErrMusicVoiceUnavailable
	case errors.Is(err, proc.ErrNotPlaying):
		return sys.ErrMusicNothingPlaying
	case errors.Is(err, proc.ErrDuplicate):
		return sys.ErrMusicDuplicate
	case errors.Is(err, proc.ErrUnsupported):
		return sys.ErrMusicUnsupported
	case errors.Is(err, proc.ErrNoResults):
		return sys.ErrMusicNoResults
	case errors.Is(err, proc.ErrTooLong):
		return fmt.Sprintf(sys.ErrMusicTooLong, proc.FormatDuration(sys.GlobalConfig.MaxDuration))
	case errors.Is(err, proc.ErrNotEnough):
		return sys.ErrMusicNotEnough
	case errors.Is(err, proc.ErrSeekStreaming):
		return sys.ErrMusicSeekStreaming
	case errors.Is(err, proc.ErrSeekSyntax):
		return sys.ErrMusicSeekInvalid
	case errors.Is(err, proc.ErrSeekBeyond):
		return sys.ErrMusicSeekBeyond
	case errors.Is(err, proc.ErrInvalidVolume):
		return sys.ErrMusicVolumeRange
	case errors.Is(err, proc.ErrEqualizerRange):
		return sys.ErrMusicEqualizerRange
	case errors.Is(err, proc.ErrOverloaded):
		return sys.ErrMusicSuggestBusy
	case errors.Is(err, proc.ErrNoSuggester):
		return sys.ErrMusicSuggestOff
	default:
		sys.LogError(sys.MsgGenericError, err)
		return sys.ErrMusicGeneric
	}
}

func respondMusicError(event sys.MessageResponder, err error) {
	_ = sys.RespondV2(event, musicErrorText(err), true)
}

func onOff(on bool) string {
	if on {
		return sys.MsgMusicOn
	}
	return sys.MsgMusicOff
}

func presetChoices() []discord.ApplicationCommandOptionChoiceString {
	var out []discord.ApplicationCommandOptionChoiceString
	for _, name := range proc.PresetNames() {
		out = append(out, discord.ApplicationCommandOptionChoiceString{Name: name, Value: name})
	}
	return out
}

func handleMusicAutocomplete(event *events.AutocompleteInteractionCreate) {
	focused := event.Data.Focused()
	j := box.Load()
	if focused.Name != "query" || j == nil {
		_ = event.AutocompleteResult(nil)
		return
	}
	query := focused.String()
	if query == "" || proc.IsSupported(proc.Normalize(query)) {
		_ = event.AutocompleteResult(nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	results, err := j.Search.Search(ctx, query, 25)
	if err != nil {
		_ = event.AutocompleteResult(nil)
		return
	}

	var choices []discord.AutocompleteChoice
	for _, r := range results {
		if len(r.URL) > 100 {
			continue
		}
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  sys.Truncate(r.Title, 100),
			Value: r.URL,
		})
	}
	_ = event.AutocompleteResult(choices)
}
