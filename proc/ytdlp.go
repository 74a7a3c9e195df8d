package proc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/leeineian/jukebox/sys"
	"github.com/lrstanley/go-ytdlp"
)

// MaxPlaylistItems caps how many entries a playlist import may add.
const MaxPlaylistItems = 100

// PlaylistItem is one flat entry of an expanded playlist.
type PlaylistItem struct {
	URL      string
	Title    string
	Duration time.Duration
}

// Ytdlp drives the yt-dlp binary for metadata, stream URLs, downloads and playlists.
type Ytdlp struct {
	Path  string
	Proxy string
}

// NewYtdlp builds the adapter from the bot configuration.
func NewYtdlp(cfg *sys.Config) *Ytdlp {
	return &Ytdlp{Path: cfg.YtdlpPath, Proxy: cfg.YoutubeProxy}
}

func (y *Ytdlp) command() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig()
	if y.Path != "" {
		cmd.SetExecutable(y.Path)
	}
	if y.Proxy != "" {
		cmd.Proxy(y.Proxy)
	}
	return cmd
}

func baseArgs() []string {
	return []string{
		"--no-check-certificates",
		"--extractor-args", "youtube:player_client=android,web",
	}
}

func stderrOf(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	return res.Stderr
}

// FetchInfo fetches title and duration without downloading.
func (y *Ytdlp) FetchInfo(ctx context.Context, url string) (string, time.Duration, error) {
	res, err := y.command().
		NoPlaylist().
		Print("%(title)s\t%(duration)s").
		Run(ctx, append(baseArgs(), "--skip-download", url)...)
	if err != nil {
		return "", 0, &ToolError{Kind: KindFatal, Message: "metadata", Stderr: stderrOf(res), Err: err}
	}
	for _, l := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		title, dur, ok := strings.Cut(l, "\t")
		if !ok {
			continue
		}
		return title, parseSeconds(dur), nil
	}
	return "", 0, errors.New("yt-dlp printed no metadata")
}

// StreamURL asks for a direct media URL of the best audio format.
func (y *Ytdlp) StreamURL(ctx context.Context, url string) (string, error) {
	res, err := y.command().
		NoPlaylist().
		Format("bestaudio/best").
		Print("%(url)s").
		Run(ctx, append(baseArgs(), "--skip-download", url)...)
	if err != nil {
		return "", &ToolError{Kind: KindTransport, Message: "stream url", Stderr: stderrOf(res), Err: err}
	}
	direct := strings.TrimSpace(res.Stdout)
	if i := strings.IndexByte(direct, '\n'); i >= 0 {
		direct = direct[:i]
	}
	if !strings.HasPrefix(direct, "http") {
		return "", fmt.Errorf("yt-dlp returned no stream url for %s", url)
	}
	return direct, nil
}

// DownloadCmd builds the command that fetches req.URL as mp3 into req.Output.
// The caller runs it under a Supervisor.
func (y *Ytdlp) DownloadCmd(ctx context.Context, req DownloadRequest) *exec.Cmd {
	args := baseArgs()
	args = append(args, req.Strategy.Args(req.Offset)...)
	args = append(args, ReliabilityArgs(req.Long)...)
	args = append(args, "--newline", req.URL)

	// Progress overrides Quiet so the stall detector sees "[download] NN%" lines.
	cmd := y.command().
		NoPlaylist().
		NoPart().
		Progress().
		ExtractAudio().
		AudioFormat("mp3").
		Output(req.Output).
		BuildCommand(ctx, args...)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	return cmd
}

// Playlist lists up to limit entries of a playlist without resolving each one.
func (y *Ytdlp) Playlist(ctx context.Context, url string, limit int) ([]PlaylistItem, error) {
	if limit <= 0 || limit > MaxPlaylistItems {
		limit = MaxPlaylistItems
	}
	res, err := y.command().
		FlatPlaylist().
		Print("%(id)s\t%(title)s\t%(duration)s").
		PlaylistItems(fmt.Sprintf("1-%d", limit)).
		Run(ctx, append(baseArgs(), "--yes-playlist", url)...)
	if err != nil {
		return nil, &ToolError{Kind: KindFatal, Message: "playlist", Stderr: stderrOf(res), Err: err}
	}
	return parsePlaylist(res.Stdout, limit), nil
}

func parsePlaylist(out string, limit int) []PlaylistItem {
	var items []PlaylistItem
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		ps := strings.Split(l, "\t")
		if len(ps) < 2 || ps[0] == "" || ps[0] == "NA" {
			continue
		}
		title := ps[1]
		if title == "" || title == "NA" || title == "[Private video]" || title == "[Deleted video]" {
			continue
		}
		it := PlaylistItem{URL: "https://www.youtube.com/watch?v=" + ps[0], Title: RepairTitle(title)}
		if len(ps) >= 3 {
			it.Duration = parseSeconds(ps[2])
		}
		items = append(items, it)
		if len(items) == limit {
			break
		}
	}
	return items
}

// parseSeconds reads yt-dlp's duration field, which may be fractional or "NA".
func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
