package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/leeineian/jukebox/sys"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
)

type StopParams struct {
	PIDFile string `short:"p" optional:"true" help:"Pid file written by the bot." default:".bot.pid"`
	Wait    int    `short:"w" optional:"true" help:"Seconds to wait for a graceful exit before killing." default:"20"`
	Force   bool   `short:"f" help:"Kill immediately instead of asking the bot to shut down."`
}

func StopCmd() *cobra.Command {
	return boa.CmdT[StopParams]{
		Use:         "stop",
		Short:       "Stop the running bot",
		Long:        "Sends SIGTERM to the bot recorded in the pid file so it can save queues and leave voice, then kills it if it does not exit in time.",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *StopParams, cmd *cobra.Command, args []string) {
			if err := runStop(params); err != nil {
				fail("stop", err)
			}
		},
	}.ToCobra()
}

func readPID(path string) (int32, error) {
	if path == "" {
		path = sys.PIDFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s holds no pid", path)
	}
	return int32(pid), nil
}

func runStop(params *StopParams) error {
	pid, err := readPID(params.PIDFile)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Println("bot is not running")
		return nil
	}
	if err != nil {
		return err
	}

	p, err := process.NewProcess(pid)
	if err != nil {
		fmt.Printf("bot is not running (stale pid %d)\n", pid)
		return nil
	}

	if params.Force {
		return p.Kill()
	}
	if err := p.Terminate(); err != nil {
		return fmt.Errorf("terminate %d: %w", pid, err)
	}

	deadline := time.Now().Add(time.Duration(params.Wait) * time.Second)
	for time.Now().Before(deadline) {
		if running, err := p.IsRunning(); err != nil || !running {
			fmt.Printf("stopped bot (pid %d)\n", pid)
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	fmt.Printf("bot (pid %d) did not exit within %ds, killing\n", pid, params.Wait)
	return p.Kill()
}
