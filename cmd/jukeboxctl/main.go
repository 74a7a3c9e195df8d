// Command jukeboxctl inspects and maintains a jukebox bot installation from
// the shell: it reads the same database and temp directory the bot uses.
package main

import (
	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:   "jukeboxctl",
		Short: "Maintenance tools for the jukebox bot",
		SubCmds: []*cobra.Command{
			StopCmd(),
			CleanupCmd(),
			QueueCmd(),
			FavoritesCmd(),
		},
	}.Run()
}
