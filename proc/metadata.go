package proc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/leeineian/jukebox/sys"
)

// TitleUnavailable is the placeholder used when metadata could not be fetched.
const TitleUnavailable = "Title unavailable"

// Info is the resolved metadata of one URL.
type Info struct {
	Title     string
	Duration  time.Duration
	Streaming bool
	Long      bool
	CachedAt  time.Time
	Fallback  bool
}

// InfoFetcher fetches title and duration for a URL, usually through the media tool.
type InfoFetcher interface {
	FetchInfo(ctx context.Context, url string) (title string, duration time.Duration, err error)
}

// MetadataCache memoizes Info by normalized URL with a fixed expiry.
type MetadataCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]Info
	now     func() time.Time
}

func NewMetadataCache(ttl time.Duration) *MetadataCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MetadataCache{
		ttl:     ttl,
		entries: make(map[string]Info),
		now:     time.Now,
	}
}

// Get never serves an entry older than the TTL; expired hits are evicted.
func (c *MetadataCache) Get(url string) (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.entries[url]
	if !ok {
		return Info{}, false
	}
	if c.now().Sub(info.CachedAt) > c.ttl {
		delete(c.entries, url)
		return Info{}, false
	}
	return info, true
}

func (c *MetadataCache) Put(url string, info Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info.CachedAt = c.now()
	c.entries[url] = info
}

// Sweep evicts expired entries and returns how many were removed.
func (c *MetadataCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, v := range c.entries {
		if now.Sub(v.CachedAt) > c.ttl {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *MetadataCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Resolver answers Info lookups from the cache and falls back to the fetcher.
type Resolver struct {
	Cache            *MetadataCache
	InfoFetcher      InfoFetcher
	Timeout          time.Duration
	StreamThreshold  time.Duration
	MaxDuration      time.Duration
	StreamingEnabled bool
}

// Info never fails: lookup errors and timeouts yield an uncached fallback record.
func (r *Resolver) Info(ctx context.Context, url string) Info {
	if r.Cache != nil {
		if info, ok := r.Cache.Get(url); ok {
			return info
		}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	title, dur, err := r.InfoFetcher.FetchInfo(pctx, url)
	if err != nil {
		sys.LogDownloadWarn(sys.MsgDownloadLookupFail, url, err)
		return Info{Title: TitleUnavailable, Fallback: true}
	}

	info := r.Classify(dur)
	info.Title = RepairTitle(strings.TrimSpace(title))
	if info.Title == "" {
		info.Title = TitleUnavailable
	}
	if r.Cache != nil {
		r.Cache.Put(url, info)
	}
	return info
}

// Classify derives the streaming and long-form flags from a duration.
func (r *Resolver) Classify(d time.Duration) Info {
	info := Info{Duration: d}
	if r.StreamThreshold > 0 {
		info.Streaming = r.StreamingEnabled && d > r.StreamThreshold
	}
	if r.MaxDuration > 0 {
		info.Long = d > r.MaxDuration
	}
	return info
}

// RunSweeper evicts expired entries every interval until ctx is done.
func (r *Resolver) RunSweeper(ctx context.Context, interval time.Duration) {
	if r.Cache == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Cache.Sweep(); n > 0 {
				sys.LogDebug("Evicted %d metadata entries", n)
			}
		}
	}
}

var mojibake = strings.NewReplacer(
	"Ã¡", "á", "Ã©", "é", "Ã­", "í", "Ã³", "ó", "Ãº", "ú",
	"Ã¤", "ä", "Ã«", "ë", "Ã¯", "ï", "Ã¶", "ö", "Ã¼", "ü",
	"Ã±", "ñ", "Ã‡", "Ç", "Ã§", "ç",
)

// RepairTitle maps common UTF-8-as-Latin-1 mis-decodings back. Display only.
func RepairTitle(s string) string {
	if !strings.Contains(s, "Ã") {
		return s
	}
	return mojibake.Replace(s)
}
