package proc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/leeineian/jukebox/sys"
	"github.com/raitonoberu/ytmusic"
	"golang.org/x/time/rate"
)

// MaxSuggestions caps every suggestion list.
const MaxSuggestions = 10

// Suggester proposes songs similar to a title as "Artist - Title" lines.
type Suggester interface {
	SuggestSimilar(ctx context.Context, title string) ([]string, error)
}

// NewSuggester picks Gemini when a key is configured, YouTube Music otherwise,
// and wraps either in the shared rate limit.
func NewSuggester(cfg *sys.Config) Suggester {
	var inner Suggester = &MusicSuggester{}
	if cfg.GeminiAPIKey != "" {
		inner = &GeminiSuggester{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Client: sys.HttpClient,
		}
	}
	return NewLimitedSuggester(inner, rate.Every(10*time.Second), 3)
}

// LimitedSuggester rejects calls beyond its token bucket with ErrOverloaded.
type LimitedSuggester struct {
	inner   Suggester
	limiter *rate.Limiter
}

func NewLimitedSuggester(inner Suggester, every rate.Limit, burst int) *LimitedSuggester {
	return &LimitedSuggester{inner: inner, limiter: rate.NewLimiter(every, burst)}
}

func (l *LimitedSuggester) SuggestSimilar(ctx context.Context, title string) ([]string, error) {
	if !l.limiter.Allow() {
		return nil, ErrOverloaded
	}
	return l.inner.SuggestSimilar(ctx, title)
}

// GeminiSuggester asks the Gemini generateContent endpoint.
type GeminiSuggester struct {
	APIKey   string
	Model    string
	Client   *http.Client
	Endpoint string
}

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiSuggester) SuggestSimilar(ctx context.Context, title string) ([]string, error) {
	prompt := fmt.Sprintf("Suggest %d songs similar to %q. Reply with one \"Artist - Title\" per line and nothing else.", MaxSuggestions, title)
	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}})
	if err != nil {
		return nil, err
	}

	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(geminiEndpoint, g.Model, g.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrOverloaded
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("gemini returned %s", resp.Status)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	var text strings.Builder
	for _, c := range out.Candidates {
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
			text.WriteByte('\n')
		}
	}
	return ParseSuggestions(text.String()), nil
}

var listMarker = regexp.MustCompile(`^\s*(\d+[.)]|[-*•])\s*`)

// ParseSuggestions strips list markers and markdown from model output and keeps
// at most MaxSuggestions non-empty lines.
func ParseSuggestions(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		l = listMarker.ReplaceAllString(l, "")
		l = strings.Trim(strings.TrimSpace(l), "*_`\"")
		if l == "" {
			continue
		}
		out = append(out, l)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// MusicSuggester searches YouTube Music for the title and returns the other hits.
type MusicSuggester struct{}

func (MusicSuggester) SuggestSimilar(_ context.Context, title string) ([]string, error) {
	r, err := ytmusic.TrackSearch(title).Next()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, t := range r.Tracks {
		if t.VideoID == "" || strings.EqualFold(t.Title, title) {
			continue
		}
		line := t.Title
		if len(t.Artists) > 0 {
			line = t.Artists[0].Name + " - " + t.Title
		}
		out = append(out, line)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out, nil
}
