package home

import (
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

const diagnoseLimit = 3500

func handleJukeboxDiagnose(event *events.ApplicationCommandInteractionCreate) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	d, ok := j.Lookup(*event.GuildID())
	if !ok {
		_ = sys.RespondV2(event, sys.MsgMusicDiagnoseEmpty, true)
		return
	}
	ctx, cancel := musicContext()
	defer cancel()
	st, err := d.Status(ctx)
	if err != nil {
		respondMusicError(event, err)
		return
	}
	_ = sys.RespondContainerV2(event, sys.TextContainer(diagnoseText(st)...), true)
}

func diagnoseText(st proc.Status) []string {
	state := fmt.Sprintf(sys.MsgMusicStateLine, st.State, proc.FormatDuration(st.Position))
	if st.LastStderr == "" {
		return []string{state, sys.MsgMusicDiagnoseEmpty}
	}
	tail := st.LastStderr
	if r := []rune(tail); len(r) > diagnoseLimit {
		tail = string(r[len(r)-diagnoseLimit:])
	}
	return []string{state, sys.MsgMusicDiagnoseHeader + "\n```\n" + tail + "\n```"}
}
