package main

import (
	"fmt"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/spf13/cobra"
)

type CleanupParams struct {
	Dir string `short:"d" optional:"true" help:"Temp directory to sweep (defaults to the configured one)."`
}

func CleanupCmd() *cobra.Command {
	return boa.CmdT[CleanupParams]{
		Use:         "cleanup",
		Short:       "Remove leftover audio artifacts",
		Long:        "Deletes temp audio files and download sidecars. Run it while the bot is stopped; a running bot sweeps its own directory.",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *CleanupParams, cmd *cobra.Command, args []string) {
			if err := runCleanup(params); err != nil {
				fail("cleanup", err)
			}
		},
	}.ToCobra()
}

func runCleanup(params *CleanupParams) error {
	dir := params.Dir
	if dir == "" {
		dir = sys.ReadConfig().TempDir
	}
	swept, err := proc.Sweep(dir, nil)
	if err != nil {
		return err
	}

	var removed int
	var bytes int64
	for _, f := range swept {
		if f.Err != nil {
			fmt.Printf("failed  %s: %v\n", f.Name, f.Err)
			continue
		}
		removed++
		bytes += f.Size
	}
	fmt.Printf("removed %d file(s), %.1f MiB from %s\n", removed, float64(bytes)/(1<<20), dir)
	return nil
}
