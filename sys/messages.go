package sys

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad   = "Failed to load config: %v"
	MsgConfigMissingToken   = "DISCORD_TOKEN is not set in .env file"
	MsgConfigInvalidGuildID = "GUILD_ID must be a 17-20 digit snowflake"
	MsgConfigThresholdOrder = "STREAM_THRESHOLD (%s) must be lower than MAX_DURATION (%s)"
	MsgConfigFileInvalid    = "Ignoring %s: %v"
	MsgConfigBadDuration    = "Ignoring %s=%q: not a duration"
	MsgDatabaseInitSuccess  = "Database initialized successfully"
	MsgDatabaseTableError   = "Failed to create table: %w"
	MsgDatabasePragmaError  = "Failed to set pragma %s: %w"
	MsgDBMigrationFail      = "Migration failed: %w"
	MsgDaemonStarting       = "Starting..."
	MsgBotStarting          = "Starting %s..."
	MsgBotReady             = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown          = "Shutting down %s..."
	MsgBotKillingOld        = "Killing running instance... (PID: %d)"
	MsgBotKillFail          = "Failed to kill old instance: %v"
	MsgBotOldTerminated     = "Old instance terminated."
	MsgBotPIDWriteFail      = "Failed to write PID file: %v"
	MsgBotRegisterFail      = "Command registration failed: %v"
	MsgBotClearFail         = "Failed to clear commands: %v"
	MsgBotCommandsCleared   = "Cleared all registered commands."
	MsgBotPIDOpenFail       = "Failed to open PID file: %v"
	MsgBotPIDLockFail       = "Failed to lock PID file: %v"
	MsgBotStubborn          = "Old process %d is stubborn. Sending SIGKILL..."
	MsgBotSkipRegistration  = "Skipping command registration as requested."
	MsgBotStoppingDaemons   = "Shutting down all daemons..."
	MsgBotUsernameFail      = "Failed to get bot username: %v"
	MsgBotTempDirFail       = "Failed to prepare temp dir %s: %v"
	MsgGenericError         = "%v"

	// --- Loader ---
	MsgLoaderSyncCommands       = "Syncing %s commands..."
	MsgLoaderUpToDate           = "Commands are up to date. (Hash: %s)"
	MsgLoaderTransition         = "[TRANSITION] Switching from %s to %s mode."
	MsgLoaderCleanup            = "[CLEANUP] Removing commands from previous dev guild: %s"
	MsgLoaderDevStarting        = "[DEV] Registering commands to guild: %s"
	MsgLoaderDevRegistered      = "[DEV] Registered: %s"
	MsgLoaderDevFail            = "[DEV] Registration failed: %v"
	MsgLoaderDevGlobalClear     = "[DEV] Verifying global commands are cleared..."
	MsgLoaderDevGlobalClearFail = "[DEV] Global clear skipped (likely rate limited): %v"
	MsgLoaderProdStarting       = "[PROD] Registering commands globally..."
	MsgLoaderProdRegistered     = "[PROD] Registered: %s"
	MsgLoaderProdFail           = "[PROD] Global registration failed: %w"
	MsgLoaderInvalidGuild       = "invalid GUILD_ID: %w"
	MsgLoaderPanicRecovered     = "Panic recovered in handler: %v"

	// --- Database ---
	MsgDatabaseQueueSaveFail  = "Failed to save queue backup for guild %s: %v"
	MsgDatabaseQueueLoadFail  = "Failed to load queue backups: %v"
	MsgDatabaseQueueRestored  = "Restored queue for guild %s (%d entries)"
	MsgDatabaseFavoriteFail   = "Favorites query failed for user %s: %v"
	MsgDatabaseCorruptBackup  = "Discarding unreadable queue backup for guild %s: %v"
	ErrDatabaseNotInitialized = "database is not initialized"

	// --- Voice ---
	MsgVoiceJoining         = "Joining channel %s in guild %s"
	MsgVoiceJoinRetry       = "Retrying voice connection in %v (Attempt %d/%d)"
	MsgVoiceJoinFailed      = "Failed to connect to voice in guild %s after %d attempts: %v"
	MsgVoiceLeft            = "Left voice in guild %s"
	MsgVoiceStatusFail      = "Failed to update status for %s: %v"
	MsgVoicePlaybackStarted = "Playback started: %s"
	MsgVoicePlaybackDone    = "Playback finished: %s"
	MsgVoicePlaybackStopped = "Playback stopped: %s"
	MsgVoiceTranscoderFail  = "Transcoder %s failed: %v"
	MsgVoiceLost            = "Lost voice connection in guild %s; reconnecting in %v"
	MsgVoiceReconnecting    = "Reconnecting voice in guild %s"
	MsgVoiceProviderRetries = "Exhausted retries for SetOpusFrameProvider in guild %s"

	// --- Queue ---
	MsgQueueEnqueued      = "Queued %s (%s) at position %d in guild %s"
	MsgQueueDuplicate     = "Rejected duplicate %s in guild %s"
	MsgQueueAdvance       = "Advancing guild %s: %s"
	MsgQueueEmpty         = "Queue drained in guild %s"
	MsgQueueRefilled      = "Repeat refilled %d entries in guild %s"
	MsgQueueDropped       = "Dropped %s in guild %s: %s"
	MsgQueueStopped       = "Stopped playback in guild %s"
	MsgQueueSeek          = "Seeking %s to %s in guild %s"
	MsgQueuePanic         = "Driver for guild %s recovered from panic: %v"
	MsgQueueStaleEvent    = "Ignoring stale %s event in guild %s"
	MsgQueueRestoreFailed = "Failed to restore queue for guild %s: %v"
	MsgQueueSleepSet      = "Sleep timer for guild %s fires at %s"
	MsgQueueSleepFired    = "Sleep timer fired for guild %s"
	MsgQueueRestoredAll   = "Resumed %d saved queues"
	MsgQueueSleepParser   = "Natural time parser unavailable, sleep accepts durations only: %v"
	MsgQueuePresence      = "Presence set to %q (next in %v)"
	MsgQueuePresenceFail  = "Failed to update presence: %v"

	// --- Download ---
	MsgDownloadStart      = "Downloading %s [%s] -> %s"
	MsgDownloadDone       = "Downloaded %s (%d bytes, %s)"
	MsgDownloadFailed     = "Download of %s ended with %s (exit %d)"
	MsgDownloadRetry      = "Retrying %s with %s in %v (attempt %d/%d)"
	MsgDownloadKilled     = "Killed process tree of pid %d"
	MsgDownloadKillFail   = "Failed to kill pid %d: %v"
	MsgDownloadStreamURL  = "Stream URL for %s failed, falling back to download: %v"
	MsgDownloadLookupFail = "Metadata lookup for %s failed: %v"
	MsgDownloadCleanup    = "Removed %s"
	MsgDownloadCleanupErr = "Failed to remove %s: %v"
	MsgDownloadSwept      = "Swept %d orphaned artifacts from %s"
	MsgDownloadFilter     = "Applying filter %s to %s"

	// --- User-facing (Music) ---
	MsgMusicNowPlaying      = "▶️ **Now playing**: %s"
	MsgMusicDownloading     = "📥 **Downloading**: %s"
	MsgMusicStreaming       = "📡 **Streaming**: %s"
	MsgMusicQueued          = "➕ Added **%s** to the queue (position %d)"
	MsgMusicQueuedNext      = "⏭️ **%s** plays next"
	MsgMusicPlaylistQueued  = "📜 Added **%d** songs from the playlist (%d skipped)"
	MsgMusicSkipped         = "⏭️ Skipped %d song(s)"
	MsgMusicStopped         = "⏹️ Playback stopped and queue cleared"
	MsgMusicPaused          = "⏸️ Paused"
	MsgMusicResumed         = "▶️ Resumed"
	MsgMusicShuffled        = "🔀 Queue shuffled"
	MsgMusicRepeatOn        = "🔁 Repeat playlist enabled"
	MsgMusicRepeatOff       = "🔁 Repeat playlist disabled"
	MsgMusicLoopOn          = "🔂 Loop current song enabled"
	MsgMusicLoopOff         = "🔂 Loop current song disabled"
	MsgMusicVolume          = "🔊 Volume set to **%d%%**"
	MsgMusicMoved           = "↕️ Moved **%s** to position %d"
	MsgMusicRemoved         = "🗑️ Removed **%s**"
	MsgMusicSeek            = "⏩ Seeking to **%s**"
	MsgMusicRetry           = "🔄 Retrying **%s** with another format (attempt %d/%d)"
	MsgMusicQueueEnded      = "✅ Queue finished"
	MsgMusicReconnecting    = "🔌 Voice connection lost, reconnecting in %v"
	MsgMusicQueueHeader     = "**Queue** (%d songs) · page %d/%d"
	MsgMusicQueueCurrent    = "▶️ %s `%s`"
	MsgMusicQueueItem       = "%d. %s `%s`"
	MsgMusicQueueEmpty      = "The queue is empty."
	MsgMusicModes           = "Repeat: %s · Loop: %s · Volume: %d%%"
	MsgMusicEqualizer       = "🎛️ Bass %+d dB · Treble %+d dB · Speed %.2fx%s"
	MsgMusicEqualizerPreset = " · Preset **%s**"
	MsgMusicSleepSet        = "😴 Playback stops %s"
	MsgMusicSleepCancelled  = "😴 Sleep timer cancelled"
	MsgMusicSleepFired      = "😴 Sleep timer reached, stopping playback"
	MsgMusicSuggestHeader   = "✨ Songs similar to **%s**"
	MsgMusicPanelClosed     = "Controls closed."
	MsgMusicCleanupDone     = "🧹 Removed %d orphaned temp files"
	MsgMusicDiagnoseEmpty   = "No diagnostic output recorded for this server."
	MsgMusicPresenceOn      = "Now-playing presence has been **enabled**."
	MsgMusicPresenceOff     = "Now-playing presence has been **disabled**."
	MsgPresenceListening    = "♪ %s"
	MsgPresenceGuilds       = "music in %d servers"
	MsgPresenceQueued       = "%d songs queued"
	MsgPresenceUptime       = "up %dh %dm"
	MsgPresenceIdle         = "/music play"
	MsgMusicDiagnoseHeader  = "**Last tool diagnostics**"
	MsgMusicStateLine       = "State: `%s` · Position: `%s`"
	MsgMusicPanelTitle      = "▶️ **[%s](%s)**"
	MsgMusicPanelMeta       = "`%s / %s` · requested by <@%s>"
	MsgMusicPanelNext       = "Up next: %s"
	MsgMusicPanelPaused     = "⏸️ Paused"
	MsgMusicSleepPending    = "😴 Stops <t:%d:R>"
	MsgMusicSuggestPick     = "Queue a suggestion..."
	MsgMusicSuggestQueued   = "✨ Queued **%s**"
	MsgMusicOn              = "on"
	MsgMusicOff             = "off"
	MsgMusicUnknownLength   = "?:??"
	MsgMusicNotifyFail      = "Failed to post to channel %s: %v"

	// --- Control panel buttons ---
	MsgMusicBtnPause    = "⏯️ Pause"
	MsgMusicBtnSkip     = "⏭️ Skip"
	MsgMusicBtnStop     = "⏹️ Stop"
	MsgMusicBtnShuffle  = "🔀 Shuffle"
	MsgMusicBtnQueue    = "📜 Queue"
	MsgMusicBtnRepeat   = "🔁 Repeat"
	MsgMusicBtnLoop     = "🔂 Loop"
	MsgMusicBtnVolDown  = "🔉 -10"
	MsgMusicBtnVolUp    = "🔊 +10"
	MsgMusicBtnFavorite = "⭐ Save"
	MsgMusicBtnSuggest  = "✨ Similar"
	MsgMusicBtnNow      = "🎵 Now"
	MsgMusicBtnClose    = "✖️ Close"

	// --- User-facing (Favorites) ---
	MsgFavoritesAdded   = "⭐ Saved **%s** to your favorites"
	MsgFavoritesRemoved = "🗑️ Removed **%s** from your favorites"
	MsgFavoritesCleared = "🗑️ Cleared %d favorites"
	MsgFavoritesHeader  = "**Your favorites** (%d)"
	MsgFavoritesItem    = "%d. %s `%s`"
	MsgFavoritesEmpty   = "You have no favorites yet. Save one with `/favorites add`!"
	MsgFavoritesQueued  = "⭐ Queued **%d** favorites (%d already queued)"

	// --- User-facing errors ---
	ErrMusicNotInVoice       = "You must be in a voice channel to use this."
	ErrMusicOtherChannel     = "I'm already playing in another voice channel."
	ErrMusicNothingPlaying   = "Nothing is playing right now."
	ErrMusicDuplicate        = "That song is already in the queue or playing."
	ErrMusicUnsupported      = "That doesn't look like a supported YouTube link."
	ErrMusicNoResults        = "No results found for that search."
	ErrMusicTooLong          = "That video is too long (limit %s)."
	ErrMusicOutOfRange       = "Position out of range (1-%d)."
	ErrMusicNotEnough        = "Need at least 2 songs in the queue to shuffle."
	ErrMusicSeekStreaming    = "Seeking isn't available for streamed songs."
	ErrMusicSeekInvalid      = "Couldn't understand that position. Use `90`, `1:30`, `+30` or `-15`."
	ErrMusicSeekBeyond       = "That position is past the end of the song."
	ErrMusicVolumeRange      = "Volume must be between 0 and 100."
	ErrMusicConnectFailed    = "❌ Couldn't join the voice channel."
	ErrMusicNotCompatible    = "❌ **%s** is not compatible after %d attempts."
	ErrMusicStreamingFormat  = "❌ **%s** uses a problematic streaming format."
	ErrMusicUnavailable      = "❌ **%s** is unavailable."
	ErrMusicPrivate          = "❌ **%s** is private."
	ErrMusicAgeRestricted    = "❌ **%s** is age-restricted."
	ErrMusicRegionBlocked    = "❌ **%s** is blocked in this region."
	ErrMusicRateLimited      = "❌ YouTube is rate limiting requests, **%s** was skipped."
	ErrMusicDownloadFailed   = "❌ Couldn't download **%s**."
	ErrMusicTimedOut         = "⏰ Download of **%s** took too long."
	ErrMusicStalled          = "⏰ Download of **%s** stopped making progress."
	ErrMusicInvalidFile      = "❌ Downloaded file for **%s** was invalid."
	ErrMusicPlaybackFailed   = "❌ Playback of **%s** failed."
	ErrMusicSuggestOff       = "Suggestions are not configured."
	ErrMusicSuggestBusy      = "The suggestion service is overloaded, try again shortly."
	ErrMusicSuggestFailed    = "Couldn't get suggestions right now."
	ErrMusicSleepParse       = "Couldn't parse that time. Try `in 30 minutes`, `1h`, or `cancel`."
	ErrMusicSleepPast        = "The sleep time must be in the future!"
	ErrMusicEqualizerRange   = "Bass and treble must be within -10..10, speed within 0.5..2.0."
	ErrMusicUnknownPreset    = "Unknown preset %q."
	ErrFavoritesDuplicate    = "That song is already in your favorites."
	ErrFavoritesNothing      = "Nothing to save: give a URL or play something first."
	ErrFavoritesFailed       = "Failed to update your favorites."
	ErrMusicGeneric          = "Something went wrong, please try again."
	ErrMusicCleanupFailed    = "Cleanup failed: %v"
	ErrMusicVoiceUnavailable = "Voice is not ready yet, try again in a moment."
)
