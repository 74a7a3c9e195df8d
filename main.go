package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/leeineian/jukebox/home"
	"github.com/leeineian/jukebox/sys"
)

const shutdownGrace = 20 * time.Second

type flags struct {
	silent   bool
	skipReg  bool
	clearAll bool
}

func parseFlags() flags {
	var f flags
	flag.BoolVar(&f.silent, "silent", false, "Disable all log output")
	flag.BoolVar(&f.skipReg, "skip-reg", false, "Skip command registration")
	flag.BoolVar(&f.clearAll, "clear-all", false, "Re-upload commands and clear stale guild and global sets")
	flag.Parse()
	return f
}

func main() {
	// LogFatal panics with its message so deferred cleanup runs first.
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		msg, ok := r.(string)
		if !ok {
			panic(r)
		}
		fmt.Fprintf(os.Stderr, "\n[FATAL] %s\n", msg)
		os.Exit(1)
	}()

	f := parseFlags()
	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal(sys.MsgConfigFailedToLoad, err)
	}
	sys.InitLogger(f.silent || cfg.Silent, true)

	lock, err := lockInstance(sys.PIDFile)
	if err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
	defer lock.release()

	if err := run(cfg, f); err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
}

func run(cfg *sys.Config, f flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sys.SetAppContext(ctx)

	if err := sys.InitDatabase(ctx, cfg.DatabasePath); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer sys.CloseDatabase()

	name := sys.GetProjectName()
	if n, _, err := sys.GetBotUsername(ctx, cfg.Token); err != nil {
		sys.LogError(sys.MsgBotUsernameFail, err)
	} else {
		name = n
	}
	sys.LogInfo(sys.MsgBotStarting, name)

	if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
		sys.LogWarn(sys.MsgBotTempDirFail, cfg.TempDir, err)
	}

	client, err := sys.CreateClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}
	defer client.Close(context.Background())

	if f.skipReg {
		sys.LogInfo(sys.MsgBotSkipRegistration)
	} else if err := sys.RegisterCommands(client, cfg.GuildID, f.clearAll); err != nil {
		sys.LogError(sys.MsgBotRegisterFail, err)
	}

	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	<-ctx.Done()
	if !f.silent {
		fmt.Println()
	}

	sys.LogInfo(sys.MsgBotStoppingDaemons)
	graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	sys.ShutdownDaemons(graceCtx)

	if self, ok := client.Caches.SelfUser(); ok {
		name = self.Username
	}
	sys.LogInfo(sys.MsgBotShutdown, name)
	return nil
}
