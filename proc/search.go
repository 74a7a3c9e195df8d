package proc

import (
	"context"
	"strings"
	"time"

	"github.com/leeineian/jukebox/sys"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

// SearchResult is one candidate video for a free-text query.
type SearchResult struct {
	URL   string
	Title string
}

// Searcher turns free text into YouTube videos: web search first, YouTube
// Music when that yields nothing.
type Searcher struct {
	Timeout time.Duration
	// web and music are swapped out in tests.
	web   func(ctx context.Context, q string) ([]SearchResult, error)
	music func(ctx context.Context, q string) ([]SearchResult, error)
}

func NewSearcher() *Searcher {
	return &Searcher{Timeout: 5 * time.Second, web: webSearch, music: musicSearch}
}

func webSearch(ctx context.Context, q string) ([]SearchResult, error) {
	c := ytsearch.NewClient(nil)
	r, err := c.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	var out []SearchResult
	for _, v := range r.Results {
		if v.VideoID == "" {
			continue
		}
		out = append(out, SearchResult{URL: "https://www.youtube.com/watch?v=" + v.VideoID, Title: v.Title})
	}
	return out, nil
}

func musicSearch(_ context.Context, q string) ([]SearchResult, error) {
	r, err := ytmusic.TrackSearch(q).Next()
	if err != nil {
		return nil, err
	}
	var out []SearchResult
	for _, v := range r.Tracks {
		if v.VideoID == "" {
			continue
		}
		title := v.Title
		if len(v.Artists) > 0 {
			title = v.Artists[0].Name + " - " + title
		}
		out = append(out, SearchResult{URL: "https://www.youtube.com/watch?v=" + v.VideoID, Title: title})
	}
	return out, nil
}

// Search returns up to limit results for q.
func (s *Searcher) Search(ctx context.Context, q string, limit int) ([]SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrNoResults
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	res, err := s.web(ctx, q)
	if err != nil {
		sys.LogDebug("Web search for %q failed: %v", q, err)
	}
	if len(res) == 0 {
		res, err = s.music(ctx, q)
		if err != nil {
			sys.LogDebug("Music search for %q failed: %v", q, err)
		}
	}
	if len(res) == 0 {
		return nil, ErrNoResults
	}
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// Resolve maps a play query to a normalized URL. Supported links pass through;
// anything else is searched and the first hit wins. Unsupported links are
// rejected rather than searched.
func (s *Searcher) Resolve(ctx context.Context, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if looksLikeURL(query) {
		n := Normalize(query)
		if !IsSupported(n) {
			return SearchResult{}, ErrUnsupported
		}
		return SearchResult{URL: n}, nil
	}
	res, err := s.Search(ctx, query, 1)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{URL: Normalize(res[0].URL), Title: res[0].Title}, nil
}

func looksLikeURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") ||
		strings.HasPrefix(l, "www.") || strings.HasPrefix(l, "youtu.be/") || strings.HasPrefix(l, "youtube.com/")
}
