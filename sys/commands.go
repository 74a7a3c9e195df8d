package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

const (
	modeGlobal = "global"
	modeGuild  = "guild"
)

// noCommands is sent to empty a command set; a nil slice would encode as null.
var noCommands = []discord.ApplicationCommandCreate{}

// syncState is what the previous run recorded in bot_config.
type syncState struct {
	Mode  string
	Hash  string
	Guild string
}

// syncPlan lists the REST calls one registration run makes.
type syncPlan struct {
	Mode        string
	Upload      bool
	ClearGlobal bool
	ClearGuild  string
}

func commandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// planSync compares the current command set against the last run. An empty
// guild means global registration. A guild that is no longer the target is
// cleared. Switching to guild mode, or force, clears the global set.
func planSync(guild, hash string, last syncState, force bool) syncPlan {
	p := syncPlan{Mode: modeGlobal}
	if guild != "" {
		p.Mode = modeGuild
	}
	p.Upload = force || hash == "" || hash != last.Hash || p.Mode != last.Mode

	if last.Guild != "" && last.Guild != guild {
		p.ClearGuild = last.Guild
	}
	if p.Mode == modeGuild && (last.Mode != p.Mode || force) {
		p.ClearGlobal = true
	}
	return p
}

func loadSyncState(ctx context.Context) syncState {
	var s syncState
	s.Mode, _ = GetBotConfig(ctx, keyCommandMode)
	s.Hash, _ = GetBotConfig(ctx, keyCommandHash)
	s.Guild, _ = GetBotConfig(ctx, keyCommandHome)
	return s
}

// RegisterCommands uploads the registered commands globally, or to guildIDStr
// when set, skipping the upload when nothing changed since the last run.
func RegisterCommands(client *bot.Client, guildIDStr string, forceScan bool) error {
	ctx := context.Background()
	cmds := Commands()
	hash := commandHash(cmds)
	last := loadSyncState(ctx)
	plan := planSync(guildIDStr, hash, last, forceScan)

	LogLoader(MsgLoaderSyncCommands, strings.ToUpper(plan.Mode))
	if last.Mode != "" && last.Mode != plan.Mode {
		LogLoader(MsgLoaderTransition, last.Mode, plan.Mode)
	}
	if !plan.Upload {
		LogLoader(MsgLoaderUpToDate, hash[:8])
	}

	var err error
	if plan.Mode == modeGlobal {
		err = uploadGlobal(client, cmds, plan)
	} else {
		err = uploadGuild(client, guildIDStr, cmds, plan)
	}
	if err != nil {
		return err
	}
	if plan.ClearGuild != "" {
		clearStaleGuild(client, plan.ClearGuild)
	}

	_ = SetBotConfig(ctx, keyCommandMode, plan.Mode)
	_ = SetBotConfig(ctx, keyCommandHome, guildIDStr)
	if hash != "" {
		_ = SetBotConfig(ctx, keyCommandHash, hash)
	}
	return nil
}

func uploadGlobal(client *bot.Client, cmds []discord.ApplicationCommandCreate, plan syncPlan) error {
	if !plan.Upload {
		return nil
	}
	LogLoader(MsgLoaderProdStarting)
	created, err := client.Rest.SetGlobalCommands(client.ApplicationID, cmds)
	if err != nil {
		return fmt.Errorf(MsgLoaderProdFail, err)
	}
	for _, c := range created {
		LogLoader(MsgLoaderProdRegistered, c.Name())
	}
	return nil
}

// uploadGuild logs REST failures instead of returning them.
func uploadGuild(client *bot.Client, guildIDStr string, cmds []discord.ApplicationCommandCreate, plan syncPlan) error {
	guildID, err := snowflake.Parse(guildIDStr)
	if err != nil {
		return fmt.Errorf(MsgLoaderInvalidGuild, err)
	}

	if plan.Upload {
		LogLoader(MsgLoaderDevStarting, guildIDStr)
		if created, err := client.Rest.SetGuildCommands(client.ApplicationID, guildID, cmds); err != nil {
			LogWarn(MsgLoaderDevFail, err)
		} else {
			for _, c := range created {
				LogLoader(MsgLoaderDevRegistered, c.Name())
			}
		}
	}

	if plan.ClearGlobal {
		existing, err := client.Rest.GetGlobalCommands(client.ApplicationID, false)
		if err == nil && len(existing) > 0 {
			LogLoader(MsgLoaderDevGlobalClear)
			if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, noCommands); err != nil {
				LogWarn(MsgLoaderDevGlobalClearFail, err)
			}
		}
	}
	return nil
}

func clearStaleGuild(client *bot.Client, guildIDStr string) {
	id, err := snowflake.Parse(guildIDStr)
	if err != nil {
		return
	}
	existing, err := client.Rest.GetGuildCommands(client.ApplicationID, id, false)
	if err != nil || len(existing) == 0 {
		return
	}
	LogLoader(MsgLoaderCleanup, guildIDStr)
	_, _ = client.Rest.SetGuildCommands(client.ApplicationID, id, noCommands)
}

// ClearCommands removes every global command and the commands of guildIDStr, if set.
func ClearCommands(client *bot.Client, guildIDStr string) error {
	if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, noCommands); err != nil {
		return err
	}
	if guildIDStr != "" {
		guildID, err := snowflake.Parse(guildIDStr)
		if err != nil {
			return fmt.Errorf(MsgLoaderInvalidGuild, err)
		}
		if _, err := client.Rest.SetGuildCommands(client.ApplicationID, guildID, noCommands); err != nil {
			return err
		}
	}
	_ = SetBotConfig(context.Background(), keyCommandHash, "")
	LogLoader(MsgBotCommandsCleared)
	return nil
}
