package sys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Environment Variables
	EnvDiscordToken        = "DISCORD_TOKEN"
	EnvGuildID             = "GUILD_ID"
	EnvSilent              = "SILENT"
	EnvDebug               = "DEBUG"
	EnvAudioTempDir        = "AUDIO_TEMP_DIR"
	EnvYtdlpPath           = "YTDLP_PATH"
	EnvFfmpegPath          = "FFMPEG_PATH"
	EnvYoutubeProxy        = "YOUTUBE_PROXY"
	EnvStreamingEnabled    = "STREAMING_ENABLED"
	EnvStreamThreshold     = "STREAM_THRESHOLD"
	EnvMaxDuration         = "MAX_DURATION"
	EnvLongVideoThreshold  = "LONG_VIDEO_THRESHOLD"
	EnvDownloadTimeout     = "DOWNLOAD_TIMEOUT"
	EnvDownloadTimeoutLong = "DOWNLOAD_TIMEOUT_LONG"
	EnvStallTimeout        = "STALL_TIMEOUT"
	EnvMetadataTimeout     = "METADATA_TIMEOUT"
	EnvStreamURLTimeout    = "STREAM_URL_TIMEOUT"
	EnvMetadataCacheTTL    = "METADATA_CACHE_TTL"
	EnvRetryStep           = "RETRY_STEP"
	EnvReconnectDelay      = "RECONNECT_DELAY"
	EnvMinArtifactBytes    = "MIN_ARTIFACT_BYTES"
	EnvMaxAttempts         = "MAX_ATTEMPTS"
	EnvDefaultVolume       = "DEFAULT_VOLUME"
	EnvGeminiAPIKey        = "GEMINI_API_KEY"
	EnvGeminiModel         = "GEMINI_MODEL"

	// ConfigFileName is read when present and fills anything the environment left empty.
	ConfigFileName = "config.json"
)

// Config holds every tunable of the bot.
type Config struct {
	Token        string
	GuildID      string
	DatabasePath string
	Silent       bool

	TempDir      string
	YtdlpPath    string
	FfmpegPath   string
	YoutubeProxy string

	StreamingEnabled    bool
	StreamThreshold     time.Duration
	MaxDuration         time.Duration
	LongVideoThreshold  time.Duration
	DownloadTimeout     time.Duration
	DownloadTimeoutLong time.Duration
	StallTimeout        time.Duration
	MetadataTimeout     time.Duration
	StreamURLTimeout    time.Duration
	MetadataCacheTTL    time.Duration
	RetryStep           time.Duration
	ReconnectDelay      time.Duration
	MinArtifactBytes    int64
	MaxAttempts         int
	DefaultVolume       int

	GeminiAPIKey string
	GeminiModel  string
}

var GlobalConfig *Config

// fileConfig mirrors the legacy config.json layout. Timeouts are milliseconds,
// thresholds are seconds.
type fileConfig struct {
	Token                      string `json:"token"`
	GuildID                    string `json:"guildId"`
	GeminiAPIKey               string `json:"geminiApiKey"`
	MaxFileSize                int64  `json:"maxFileSize"`
	DownloadTimeout            int64  `json:"downloadTimeout"`
	DownloadTimeoutLong        int64  `json:"downloadTimeoutLong"`
	LongVideoDurationThreshold int64  `json:"longVideoDurationThreshold"`
}

// DefaultConfig returns the built-in defaults with no environment applied.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:        filepath.Join(".", GetProjectName()+".db"),
		TempDir:             ".tracks",
		YtdlpPath:           "yt-dlp",
		FfmpegPath:          "ffmpeg",
		StreamingEnabled:    true,
		StreamThreshold:     900 * time.Second,
		MaxDuration:         4 * time.Hour,
		LongVideoThreshold:  time.Hour,
		DownloadTimeout:     180 * time.Second,
		DownloadTimeoutLong: 30 * time.Minute,
		StallTimeout:        5 * time.Minute,
		MetadataTimeout:     10 * time.Second,
		StreamURLTimeout:    15 * time.Second,
		MetadataCacheTTL:    30 * time.Minute,
		RetryStep:           5 * time.Second,
		ReconnectDelay:      5 * time.Second,
		MinArtifactBytes:    10000,
		MaxAttempts:         3,
		DefaultVolume:       50,
		GeminiModel:         "gemini-1.5-flash",
	}
}

// LoadConfig initializes the configuration from .env, the environment and config.json.
func LoadConfig() (*Config, error) {
	cfg := ReadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

// ReadConfig applies .env, the environment and config.json over the defaults
// without validating. Offline tooling uses it since it needs no token.
func ReadConfig() *Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	cfg.Token = os.Getenv(EnvDiscordToken)
	cfg.GuildID = os.Getenv(EnvGuildID)
	cfg.Silent, _ = strconv.ParseBool(os.Getenv(EnvSilent))
	cfg.GeminiAPIKey = os.Getenv(EnvGeminiAPIKey)
	cfg.YoutubeProxy = os.Getenv(EnvYoutubeProxy)

	if v := os.Getenv(EnvAudioTempDir); v != "" {
		cfg.TempDir = v
	}
	if v := os.Getenv(EnvYtdlpPath); v != "" {
		cfg.YtdlpPath = v
	}
	if v := os.Getenv(EnvFfmpegPath); v != "" {
		cfg.FfmpegPath = v
	}
	if v := os.Getenv(EnvGeminiModel); v != "" {
		cfg.GeminiModel = v
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvStreamingEnabled)); err == nil {
		cfg.StreamingEnabled = v
	}

	envDuration(EnvStreamThreshold, &cfg.StreamThreshold)
	envDuration(EnvMaxDuration, &cfg.MaxDuration)
	envDuration(EnvLongVideoThreshold, &cfg.LongVideoThreshold)
	envDuration(EnvDownloadTimeout, &cfg.DownloadTimeout)
	envDuration(EnvDownloadTimeoutLong, &cfg.DownloadTimeoutLong)
	envDuration(EnvStallTimeout, &cfg.StallTimeout)
	envDuration(EnvMetadataTimeout, &cfg.MetadataTimeout)
	envDuration(EnvStreamURLTimeout, &cfg.StreamURLTimeout)
	envDuration(EnvMetadataCacheTTL, &cfg.MetadataCacheTTL)
	envDuration(EnvRetryStep, &cfg.RetryStep)
	envDuration(EnvReconnectDelay, &cfg.ReconnectDelay)

	if n, err := strconv.ParseInt(os.Getenv(EnvMinArtifactBytes), 10, 64); err == nil && n > 0 {
		cfg.MinArtifactBytes = n
	}
	if n, err := strconv.Atoi(os.Getenv(EnvMaxAttempts)); err == nil && n > 0 {
		cfg.MaxAttempts = n
	}
	if n, err := strconv.Atoi(os.Getenv(EnvDefaultVolume)); err == nil && n >= 0 && n <= 100 {
		cfg.DefaultVolume = n
	}

	if err := cfg.applyFile(ConfigFileName); err != nil {
		LogWarn(MsgConfigFileInvalid, ConfigFileName, err)
	}
	return cfg
}

// applyFile fills empty fields from a legacy config.json. A missing file is not an error.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return err
	}

	if c.Token == "" {
		c.Token = fc.Token
	}
	if c.GuildID == "" {
		c.GuildID = fc.GuildID
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = fc.GeminiAPIKey
	}
	if os.Getenv(EnvDownloadTimeout) == "" && fc.DownloadTimeout > 0 {
		c.DownloadTimeout = time.Duration(fc.DownloadTimeout) * time.Millisecond
	}
	if os.Getenv(EnvDownloadTimeoutLong) == "" && fc.DownloadTimeoutLong > 0 {
		c.DownloadTimeoutLong = time.Duration(fc.DownloadTimeoutLong) * time.Millisecond
	}
	if os.Getenv(EnvLongVideoThreshold) == "" && fc.LongVideoDurationThreshold > 0 {
		c.LongVideoThreshold = time.Duration(fc.LongVideoDurationThreshold) * time.Second
	}
	return nil
}

// envDuration accepts Go durations ("90s", "5m") or bare seconds.
func envDuration(key string, dst *time.Duration) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		*dst = d
		return
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		*dst = time.Duration(secs) * time.Second
		return
	}
	LogWarn(MsgConfigBadDuration, key, raw)
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return errors.New(MsgConfigInvalidGuildID)
	}
	if c.StreamThreshold >= c.MaxDuration {
		return fmt.Errorf(MsgConfigThresholdOrder, c.StreamThreshold, c.MaxDuration)
	}
	return nil
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "jukebox"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			} else {
				projectName = "jukebox"
			}
		}
	}
	return projectName
}
