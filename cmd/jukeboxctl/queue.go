package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/spf13/cobra"
)

type QueueParams struct {
	Database string `short:"D" optional:"true" help:"Path to the bot database (defaults to the configured one)."`
	Guild    string `short:"g" optional:"true" help:"Show the saved entries of a single guild."`
	Purge    bool   `help:"Delete the saved queue of --guild instead of showing it."`
}

func QueueCmd() *cobra.Command {
	return boa.CmdT[QueueParams]{
		Use:         "queue",
		Short:       "Show saved guild queues",
		Long:        "Lists the queue backups the bot restores on startup. With --guild, lists that guild's entries.",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *QueueParams, cmd *cobra.Command, args []string) {
			if err := runQueue(cmd.Context(), params); err != nil {
				fail("queue", err)
			}
		},
	}.ToCobra()
}

func runQueue(ctx context.Context, params *QueueParams) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if params.Purge && params.Guild == "" {
		return fmt.Errorf("--purge needs --guild")
	}
	if err := openDatabase(ctx, params.Database); err != nil {
		return err
	}
	defer sys.CloseDatabase()

	if params.Purge {
		if err := sys.DeleteQueueBackup(ctx, params.Guild); err != nil {
			return err
		}
		fmt.Printf("deleted saved queue of guild %s\n", params.Guild)
		return nil
	}
	if params.Guild != "" {
		return showGuildQueue(ctx, params.Guild)
	}

	rows, err := sys.ListQueueBackups(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no saved queues")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Guild", "Now playing", "Queued", "Repeat", "Loop", "Volume", "Saved"})
	for _, r := range rows {
		b, err := proc.DecodeBackup(r.Payload)
		if err != nil {
			t.AppendRow(table.Row{r.GuildID, "(unreadable: " + err.Error() + ")", "", "", "", "", age(r.UpdatedAt)})
			continue
		}
		current := "-"
		if b.Current != nil {
			current = sys.Truncate(b.Current.Title, 40)
		}
		t.AppendRow(table.Row{r.GuildID, current, len(b.Queue), yesNo(b.Repeat), yesNo(b.Loop), b.Volume, age(r.UpdatedAt)})
	}
	t.Render()
	return nil
}

func showGuildQueue(ctx context.Context, guildID string) error {
	row, ok, err := sys.LoadQueueBackup(ctx, guildID)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("no saved queue for guild %s\n", guildID)
		return nil
	}
	b, err := proc.DecodeBackup(row.Payload)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Title", "Length", "Mode", "URL"})
	for i, e := range b.Queue {
		t.AppendRow(table.Row{i + 1, sys.Truncate(e.Title, 50), entryLength(e), entryMode(e), e.URL})
	}
	t.Render()
	return nil
}

func entryLength(e proc.Entry) string {
	if e.Duration <= 0 {
		return "?"
	}
	return proc.FormatDuration(e.Duration)
}

func entryMode(e proc.Entry) string {
	if e.Streaming {
		return "stream"
	}
	return "download"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return time.Since(t).Round(time.Second).String() + " ago"
}
