package proc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leeineian/jukebox/sys"
)

// Strategy is a named format directive for the download tool.
type Strategy int

const (
	StrategyDefault Strategy = iota
	StrategyWorst
	StrategyAudioCodec
	StrategyLowRes
	StrategySegmented
	StrategyAltClient
)

// fallbackOrder is walked by retry count for generic retryable failures.
var fallbackOrder = []Strategy{StrategyWorst, StrategyAudioCodec, StrategyLowRes}

func (s Strategy) String() string {
	switch s {
	case StrategyDefault:
		return "default"
	case StrategyWorst:
		return "worst"
	case StrategyAudioCodec:
		return "audio-codec"
	case StrategyLowRes:
		return "low-res"
	case StrategySegmented:
		return "segmented"
	case StrategyAltClient:
		return "alt-client"
	default:
		return "strategy(" + strconv.Itoa(int(s)) + ")"
	}
}

func (s Strategy) format() string {
	switch s {
	case StrategyWorst:
		return "worstaudio/worst"
	case StrategyAudioCodec:
		return "bestaudio[acodec=opus]/bestaudio[ext=m4a]/bestaudio"
	case StrategyLowRes:
		return "best[height<=360]/worst"
	case StrategySegmented:
		return "bestaudio[protocol^=m3u8]/best[protocol^=m3u8]/best"
	default:
		return "bestaudio/best"
	}
}

// Args maps the strategy to tool arguments. A positive offset adds a section cut.
func (s Strategy) Args(offset time.Duration) []string {
	args := []string{"-f", s.format()}
	if s == StrategyAltClient {
		args = append(args, "--extractor-args", "youtube:player_client=ios,web_creator")
	}
	if offset > 0 {
		args = append(args, "--download-sections", fmt.Sprintf("*%d-inf", int64(offset/time.Second)))
	}
	return args
}

// ReliabilityArgs are the retry and socket flags, harsher for long-form entries.
func ReliabilityArgs(long bool) []string {
	if long {
		return []string{"--retries", "10", "--fragment-retries", "10", "--socket-timeout", "60"}
	}
	return []string{"--retries", "3", "--fragment-retries", "3", "--socket-timeout", "30"}
}

// VerdictKind is the row of the classification table that matched.
type VerdictKind int

const (
	VerdictUnknown VerdictKind = iota
	VerdictFormatUnavailable
	VerdictStreamingFatal
	VerdictSegmented
	VerdictForbidden
	VerdictFatal
	VerdictConnection
	VerdictTimeout
	VerdictKilled
	VerdictSpawn
)

func (k VerdictKind) String() string {
	return [...]string{"unknown", "format-unavailable", "streaming-fatal", "segmented", "forbidden", "fatal", "connection", "timeout", "killed", "spawn"}[k]
}

// Verdict is the classification of one failed tool run.
type Verdict struct {
	Kind      VerdictKind
	Retry     bool
	Fatal     bool
	Streaming bool
	Transient bool
	// Message is a user-facing format string taking the entry title.
	Message string
}

var (
	formatUnavailableMarkers = []string{"requested format is not available", "requested format not available"}
	segmentedMarkers         = []string{"m3u8", "hls", "dash manifest"}
	segmentedErrorMarkers    = []string{"giving up", "unable to continue", "aborting", "fatal error"}
	forbiddenMarkers         = []string{"http error 403", "403: forbidden", "403 forbidden"}
	connectionMarkers        = []string{
		"unable to extract", "unable to download", "connection reset", "connection refused",
		"timed out", "network is unreachable", "temporary failure in name resolution",
		"incompleteread", "urlopen error", "remote end closed", "extractorerror", "got error",
	}
)

type fatalMarker struct {
	needles []string
	message string
}

// fatalMarkers is checked in order; the first hit decides the user message.
var fatalMarkers = []fatalMarker{
	{[]string{"http error 429", "too many requests", "rate-limit", "rate limit", "confirm you're not a bot", "confirm you’re not a bot"}, sys.ErrMusicRateLimited},
	{[]string{"private video", "video is private"}, sys.ErrMusicPrivate},
	{[]string{"confirm your age", "age-restricted", "age restricted", "inappropriate for some users"}, sys.ErrMusicAgeRestricted},
	{[]string{"not available in your country", "geo restrict", "geo-restrict", "blocked it in your country", "region"}, sys.ErrMusicRegionBlocked},
	{[]string{"video unavailable", "has been removed", "is not available", "no longer available", "account associated with this video has been terminated"}, sys.ErrMusicUnavailable},
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// Classify evaluates the decision table in precedence order; first match wins.
func Classify(stderr string) Verdict {
	s := strings.ToLower(stderr)

	if containsAny(s, formatUnavailableMarkers) {
		return Verdict{Kind: VerdictFormatUnavailable, Retry: true, Transient: true, Message: sys.ErrMusicDownloadFailed}
	}

	if containsAny(s, segmentedMarkers) {
		if containsAny(s, segmentedErrorMarkers) || fatalMessage(s) != "" {
			return Verdict{Kind: VerdictStreamingFatal, Fatal: true, Streaming: true, Message: sys.ErrMusicStreamingFormat}
		}
		return Verdict{Kind: VerdictSegmented, Retry: true, Streaming: true, Transient: true, Message: sys.ErrMusicStreamingFormat}
	}

	if containsAny(s, forbiddenMarkers) {
		return Verdict{Kind: VerdictForbidden, Retry: true, Transient: true, Message: sys.ErrMusicDownloadFailed}
	}

	if msg := fatalMessage(s); msg != "" {
		return Verdict{Kind: VerdictFatal, Fatal: true, Message: msg}
	}

	if containsAny(s, connectionMarkers) {
		return Verdict{Kind: VerdictConnection, Retry: true, Transient: true, Message: sys.ErrMusicDownloadFailed}
	}

	return Verdict{Kind: VerdictUnknown, Message: sys.ErrMusicDownloadFailed}
}

func fatalMessage(s string) string {
	for _, m := range fatalMarkers {
		if containsAny(s, m.needles) {
			return m.message
		}
	}
	return ""
}

// NextStrategy picks the directive for the next attempt after a retryable verdict.
// retries is the number of failed attempts so far, including the one just classified.
func NextStrategy(retries int, v Verdict) Strategy {
	switch v.Kind {
	case VerdictSegmented:
		return StrategySegmented
	case VerdictForbidden:
		return StrategyAltClient
	}
	i := retries - 1
	if i < 0 {
		i = 0
	}
	if i >= len(fallbackOrder) {
		i = len(fallbackOrder) - 1
	}
	return fallbackOrder[i]
}

// Policy bounds retries and spaces them out.
type Policy struct {
	MaxAttempts int
	Step        time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Step: 5 * time.Second}
}

// Backoff is the delay before the given 1-indexed attempt: (attempt-1) * Step.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return time.Duration(attempt-1) * p.Step
}

// Decision is what the driver does with an entry after a failed attempt.
type Decision struct {
	Retry    bool
	Strategy Strategy
	Delay    time.Duration
	Attempt  int
	Verdict  Verdict
	// Message is the final user notice, empty when nothing should be said.
	Message string
}

// Decide turns a failed outcome into a retry or a drop. retries is the count of
// failed attempts before this one.
func (p Policy) Decide(title string, retries int, o Outcome) Decision {
	var v Verdict
	switch o.Kind {
	case OutcomeKilled:
		return Decision{Verdict: Verdict{Kind: VerdictKilled}}
	case OutcomeTimedOut:
		v = Verdict{Kind: VerdictTimeout, Retry: true, Transient: true, Message: sys.ErrMusicTimedOut}
	case OutcomeStalled:
		v = Verdict{Kind: VerdictTimeout, Retry: true, Transient: true, Message: sys.ErrMusicStalled}
	default:
		if o.Err != nil && o.ExitCode < 0 {
			v = Verdict{Kind: VerdictSpawn, Message: sys.ErrMusicDownloadFailed}
		} else {
			v = Classify(o.Stderr)
		}
	}

	failed := retries + 1
	d := Decision{Verdict: v, Attempt: failed}
	if !v.Retry {
		d.Message = fmt.Sprintf(v.Message, title)
		return d
	}

	max := p.MaxAttempts
	if max <= 0 {
		max = 3
	}
	if failed >= max {
		d.Message = fmt.Sprintf(sys.ErrMusicNotCompatible, title, max)
		return d
	}

	d.Retry = true
	d.Strategy = NextStrategy(failed, v)
	d.Delay = p.Backoff(failed + 1)
	return d
}
