package sys

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
)

type (
	CommandHandler      func(event *events.ApplicationCommandInteractionCreate)
	AutocompleteHandler func(event *events.AutocompleteInteractionCreate)
	ComponentHandler    func(event *events.ComponentInteractionCreate)
	VoiceStateHandler   func(event *events.GuildVoiceStateUpdate)
	ReadyHook           func(ctx context.Context, client *bot.Client)
)

// registry collects everything the home package registers from init.
type registry struct {
	mu           sync.RWMutex
	commands     []discord.ApplicationCommandCreate
	byCommand    map[string]CommandHandler
	autocomplete map[string]AutocompleteHandler
	components   map[string]ComponentHandler
	voiceStates  []VoiceStateHandler
	readyHooks   []ReadyHook
	daemons      []daemon
}

var handlers = &registry{
	byCommand:    map[string]CommandHandler{},
	autocomplete: map[string]AutocompleteHandler{},
	components:   map[string]ComponentHandler{},
}

func RegisterCommand(cmd discord.ApplicationCommandCreate, handler func(event *events.ApplicationCommandInteractionCreate)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.commands = append(handlers.commands, cmd)
	handlers.byCommand[cmd.CommandName()] = handler
}

func RegisterAutocompleteHandler(cmdName string, handler func(event *events.AutocompleteInteractionCreate)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.autocomplete[cmdName] = handler
}

// RegisterComponentHandler binds a custom ID. IDs ending in ":" match as prefixes.
func RegisterComponentHandler(customID string, handler func(event *events.ComponentInteractionCreate)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.components[customID] = handler
}

func RegisterVoiceStateUpdateHandler(handler func(event *events.GuildVoiceStateUpdate)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.voiceStates = append(handlers.voiceStates, handler)
}

// OnClientReady runs cb once the gateway reports ready, before daemons start.
func OnClientReady(cb func(ctx context.Context, client *bot.Client)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.readyHooks = append(handlers.readyHooks, cb)
}

// Commands returns a copy of every registered command.
func Commands() []discord.ApplicationCommandCreate {
	handlers.mu.RLock()
	defer handlers.mu.RUnlock()
	return append([]discord.ApplicationCommandCreate(nil), handlers.commands...)
}

func onReady(event *events.Ready) {
	took := time.Since(StartupTime).Milliseconds()
	LogInfo(MsgBotReady, event.User.Username, event.User.ID.String(), os.Getpid(), took)

	TriggerClientReady(AppContext, event.Client())
	StartDaemons(AppContext)
}

func TriggerClientReady(ctx context.Context, client *bot.Client) {
	handlers.mu.RLock()
	hooks := append([]ReadyHook(nil), handlers.readyHooks...)
	handlers.mu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, client)
	}
}

func dispatchCommand(event *events.ApplicationCommandInteractionCreate) {
	handlers.mu.RLock()
	h := handlers.byCommand[event.Data.CommandName()]
	handlers.mu.RUnlock()
	if h != nil {
		SafeGo(func() { h(event) })
	}
}

func dispatchAutocomplete(event *events.AutocompleteInteractionCreate) {
	handlers.mu.RLock()
	h := handlers.autocomplete[event.Data.CommandName]
	handlers.mu.RUnlock()
	if h != nil {
		SafeGo(func() { h(event) })
	}
}

func dispatchComponent(event *events.ComponentInteractionCreate) {
	if h, ok := lookupComponentHandler(event.Data.CustomID()); ok {
		SafeGo(func() { h(event) })
	}
}

func dispatchVoiceState(event *events.GuildVoiceStateUpdate) {
	handlers.mu.RLock()
	hs := append([]VoiceStateHandler(nil), handlers.voiceStates...)
	handlers.mu.RUnlock()
	for _, h := range hs {
		SafeGo(func() { h(event) })
	}
}

// lookupComponentHandler prefers an exact custom ID, then the longest
// registered prefix ending in ":".
func lookupComponentHandler(customID string) (func(event *events.ComponentInteractionCreate), bool) {
	handlers.mu.RLock()
	defer handlers.mu.RUnlock()

	if h, ok := handlers.components[customID]; ok {
		return h, true
	}
	var (
		best    ComponentHandler
		bestLen int
	)
	for prefix, h := range handlers.components {
		if strings.HasSuffix(prefix, ":") && strings.HasPrefix(customID, prefix) && len(prefix) > bestLen {
			best, bestLen = h, len(prefix)
		}
	}
	return best, best != nil
}

// daemon is a background loop started after the gateway is ready. Its start
// func decides whether to run and returns the loop and an optional stop hook.
type daemon struct {
	log   func(format string, v ...any)
	start func(ctx context.Context) (bool, func(), func())
}

var (
	daemonsOnce sync.Once
	stopMu      sync.Mutex
	stopHooks   []func()
)

func RegisterDaemon(logger func(format string, v ...any), starter func(ctx context.Context) (bool, func(), func())) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.daemons = append(handlers.daemons, daemon{log: logger, start: starter})
}

// StartDaemons runs every daemon whose start func accepts. Only the first call
// has any effect, so a gateway resume does not spawn duplicates.
func StartDaemons(ctx context.Context) {
	daemonsOnce.Do(func() {
		handlers.mu.RLock()
		all := append([]daemon(nil), handlers.daemons...)
		handlers.mu.RUnlock()

		var loops []func()
		for _, d := range all {
			ok, loop, stop := d.start(ctx)
			if !ok || loop == nil {
				continue
			}
			if stop != nil {
				stopMu.Lock()
				stopHooks = append(stopHooks, stop)
				stopMu.Unlock()
			}
			d.log(MsgDaemonStarting)
			loops = append(loops, loop)
		}
		for _, loop := range loops {
			SafeGo(loop)
		}
	})
}

// ShutdownDaemons calls every stop hook concurrently and waits for them or ctx.
func ShutdownDaemons(ctx context.Context) {
	stopMu.Lock()
	hooks := stopHooks
	stopHooks = nil
	stopMu.Unlock()

	var wg sync.WaitGroup
	for _, stop := range hooks {
		wg.Go(stop)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
