package sys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/godave/golibdave"
	"github.com/disgoorg/snowflake/v2"
)

// PIDFile holds the running bot's pid under an exclusive flock.
const PIDFile = ".bot.pid"

// bot_config keys owned by the loader.
const (
	keyCachedName  = "cached_bot_name"
	keyCachedID    = "cached_bot_id"
	keyCommandHash = "last_cmd_hash"
	keyCommandMode = "last_reg_mode"
	keyCommandHome = "last_guild_id"
)

const currentUserURL = "https://discord.com/api/v10/users/@me"

// DefaultActivity is shown while the rotating presence is off or not started.
const DefaultActivity = "/music play"

var (
	AppContext  = context.Background()
	StartupTime = time.Now()

	// HttpClient is shared by outbound API calls that are not Discord REST.
	HttpClient = &http.Client{Timeout: 10 * time.Second}
)

func SetAppContext(ctx context.Context) {
	AppContext = ctx
}

// SafeGo runs f on its own goroutine and logs instead of crashing on panic.
func SafeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r)
				fmt.Printf("%s\n", debug.Stack())
			}
		}()
		f()
	}()
}

// CreateClient builds the gateway client with the intents and caches the
// jukebox needs: guilds, channels and voice states, plus DAVE voice sessions.
func CreateClient(ctx context.Context, cfg *Config) (*bot.Client, error) {
	restHTTP := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 50,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return disgo.New(cfg.Token,
		bot.WithLogger(slog.Default()),
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildVoiceStates),
			gateway.WithPresenceOpts(
				gateway.WithListeningActivity(DefaultActivity),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagVoiceStates),
		),
		bot.WithVoiceManagerConfigOpts(
			voice.WithDaveSessionCreateFunc(golibdave.NewSession),
		),
		bot.WithRestClientConfigOpts(rest.WithHTTPClient(restHTTP)),
		bot.WithEventListenerFunc(dispatchCommand),
		bot.WithEventListenerFunc(dispatchAutocomplete),
		bot.WithEventListenerFunc(dispatchComponent),
		bot.WithEventListenerFunc(dispatchVoiceState),
		bot.WithEventListenerFunc(onReady),
	)
}

type selfIdentity struct {
	ID       snowflake.ID `json:"id"`
	Username string       `json:"username"`
}

// GetBotUsername returns the bot's name and ID. A previous answer stored in
// bot_config wins; otherwise Discord is asked and the answer is stored.
func GetBotUsername(ctx context.Context, token string) (string, snowflake.ID, error) {
	cached := cachedIdentity(ctx)
	if cached.Username != "" && cached.ID != 0 {
		return cached.Username, cached.ID, nil
	}

	self, err := fetchIdentity(ctx, token)
	if err != nil {
		switch {
		case cached.Username != "":
			return cached.Username, cached.ID, nil
		case errors.Is(err, errRateLimited):
			return GetProjectName(), 0, nil
		default:
			return "", 0, err
		}
	}

	_ = SetBotConfig(ctx, keyCachedName, self.Username)
	_ = SetBotConfig(ctx, keyCachedID, self.ID.String())
	return self.Username, self.ID, nil
}

var errRateLimited = errors.New("discord API rate limited")

func cachedIdentity(ctx context.Context) selfIdentity {
	var id selfIdentity
	id.Username, _ = GetBotConfig(ctx, keyCachedName)
	if raw, _ := GetBotConfig(ctx, keyCachedID); raw != "" {
		id.ID, _ = snowflake.Parse(raw)
	}
	return id
}

func fetchIdentity(ctx context.Context, token string) (selfIdentity, error) {
	var self selfIdentity
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, currentUserURL, nil)
	if err != nil {
		return self, err
	}
	req.Header.Set("Authorization", "Bot "+token)

	resp, err := HttpClient.Do(req)
	if err != nil {
		return self, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return self, errRateLimited
	default:
		return self, fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&self)
	return self, err
}
