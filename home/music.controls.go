package home

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicSkip(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	count, ok := data.OptInt("count")
	if !ok {
		count = 1
	}
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	n, err := d.Skip(ctx, count)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgMusicSkipped, n), false)
}

func handleMusicStop(event *events.ApplicationCommandInteractionCreate) {
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	stopped, err := d.Stop(ctx)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	if !stopped {
		respondMusicError(event, proc.ErrNotPlaying)
		return
	}
	box.Load().CancelSleep(*event.GuildID())
	_ = sys.RespondV2(event, sys.MsgMusicStopped, false)
}

func handleMusicPause(event *events.ApplicationCommandInteractionCreate) {
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	paused, err := d.TogglePause(ctx)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	msg := sys.MsgMusicResumed
	if paused {
		msg = sys.MsgMusicPaused
	}
	_ = sys.RespondV2(event, msg, false)
}

func handleMusicRepeat(event *events.ApplicationCommandInteractionCreate) {
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	on, err := d.ToggleRepeat(ctx)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	msg := sys.MsgMusicRepeatOff
	if on {
		msg = sys.MsgMusicRepeatOn
	}
	_ = sys.RespondV2(event, msg, false)
}

func handleMusicLoop(event *events.ApplicationCommandInteractionCreate) {
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	on, err := d.ToggleLoop(ctx)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	msg := sys.MsgMusicLoopOff
	if on {
		msg = sys.MsgMusicLoopOn
	}
	_ = sys.RespondV2(event, msg, false)
}

func handleMusicVolume(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	level := data.Int("level")
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	if err := d.SetVolume(ctx, level); err != nil {
		respondMusicError(event, err)
		return
	}
	_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgMusicVolume, level), false)
}

func handleMusicSeek(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	ctx, cancel := musicContext()
	defer cancel()
	d, err := controlDriver(ctx, event.Client(), *event.GuildID(), event.User().ID)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	target, err := d.Seek(ctx, data.String("position"))
	if err != nil {
		respondMusicError(event, err)
		return
	}
	_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgMusicSeek, proc.FormatDuration(target)), false)
}

func handleMusicNowPlaying(event *events.ApplicationCommandInteractionCreate) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	d, ok := j.Lookup(*event.GuildID())
	if !ok {
		respondMusicError(event, proc.ErrNotPlaying)
		return
	}
	ctx, cancel := musicContext()
	defer cancel()
	st, err := d.Status(ctx)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	if st.Current == nil {
		respondMusicError(event, proc.ErrNotPlaying)
		return
	}
	_ = sys.RespondContainerV2(event, renderPanel(st, j), false)
}

func handleMusicSleep(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	guildID := *event.GuildID()
	when := strings.TrimSpace(data.String("when"))

	switch strings.ToLower(when) {
	case "cancel", "off", "stop":
		j.CancelSleep(guildID)
		_ = sys.RespondV2(event, sys.MsgMusicSleepCancelled, false)
		return
	}

	now := time.Now()
	at, err := proc.ParseSleep(sleepParser, when, now)
	if err != nil {
		_ = sys.RespondV2(event, sys.ErrMusicSleepParse, true)
		return
	}
	if !at.After(now) {
		_ = sys.RespondV2(event, sys.ErrMusicSleepPast, true)
		return
	}
	j.SetSleep(guildID, at)
	_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgMusicSleepSet, fmt.Sprintf("<t:%d:R>", at.Unix())), false)
}

func handleMusicEqualizer(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	eq := j.Driver(*event.GuildID()).Equalizer()

	if preset, ok := data.OptString("preset"); ok {
		if _, err := eq.Apply(preset); err != nil {
			_ = sys.RespondV2(event, fmt.Sprintf(sys.ErrMusicUnknownPreset, preset), true)
			return
		}
	}

	bass, hasBass := data.OptInt("bass")
	treble, hasTreble := data.OptInt("treble")
	speed, hasSpeed := data.OptFloat("speed")
	if hasBass || hasTreble || hasSpeed {
		s := eq.Settings()
		if hasBass {
			s.Bass = bass
		}
		if hasTreble {
			s.Treble = treble
		}
		if hasSpeed {
			s.Speed = speed
		}
		if err := eq.Set(s); err != nil {
			respondMusicError(event, err)
			return
		}
	}

	_ = sys.RespondV2(event, equalizerText(eq.Settings()), false)
}

func equalizerText(s proc.EqualizerSettings) string {
	preset := ""
	if s.Preset != "" {
		preset = fmt.Sprintf(sys.MsgMusicEqualizerPreset, s.Preset)
	}
	speed := s.Speed
	if speed == 0 {
		speed = 1.0
	}
	return fmt.Sprintf(sys.MsgMusicEqualizer, s.Bass, s.Treble, speed, preset)
}
