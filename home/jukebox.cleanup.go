package home

import (
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/sys"
)

func handleJukeboxCleanup(event *events.ApplicationCommandInteractionCreate) {
	j := box.Load()
	if j == nil {
		respondMusicError(event, errNotReady)
		return
	}
	swept, err := j.SweepOrphans()
	if err != nil {
		_ = sys.RespondV2(event, fmt.Sprintf(sys.ErrMusicCleanupFailed, err), true)
		return
	}
	removed := 0
	for _, f := range swept {
		if f.Err == nil {
			removed++
		}
	}
	_ = sys.RespondV2(event, fmt.Sprintf(sys.MsgMusicCleanupDone, removed), true)
}
