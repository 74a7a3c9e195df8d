package proc

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	playlistPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	supportedPattern = regexp.MustCompile(`^https?://(www\.|music\.|m\.)?(youtube\.com/(watch\?v=|playlist\?list=|shorts/)|youtu\.be/)[A-Za-z0-9_-]+`)

	// Characters that break argument passing or come from chat markup around links.
	urlJunk = strings.NewReplacer("[", "", "]", "", "<", "", ">", "", "\"", "", "'", "", "`", "", " ", "", "\t", "", "\n", "")
)

// Normalize canonicalizes a YouTube link. Unrecognized input is returned unchanged.
func Normalize(raw string) string {
	id, list, ok := parseYouTube(raw)
	if !ok {
		return raw
	}
	switch {
	case id != "" && list != "":
		return "https://www.youtube.com/watch?v=" + id + "&list=" + list
	case list != "":
		return "https://www.youtube.com/playlist?list=" + list
	default:
		return "https://www.youtube.com/watch?v=" + id
	}
}

// IsSupported is a syntactic check only; the resource may not exist.
func IsSupported(u string) bool {
	return supportedPattern.MatchString(u)
}

// VideoID extracts the 11-character video id, or "".
func VideoID(u string) string {
	id, _, _ := parseYouTube(u)
	return id
}

// PlaylistID extracts the playlist id, or "".
func PlaylistID(u string) string {
	_, list, _ := parseYouTube(u)
	return list
}

// IsPlaylist reports whether u names a playlist without a specific video.
func IsPlaylist(u string) bool {
	id, list, ok := parseYouTube(u)
	return ok && id == "" && list != ""
}

func parseYouTube(raw string) (id, list string, ok bool) {
	s := strings.TrimSpace(raw)
	if dec, err := url.PathUnescape(s); err == nil {
		s = dec
	}
	s = urlJunk.Replace(s)
	if s == "" {
		return "", "", false
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", "", false
	}

	host := strings.ToLower(u.Hostname())
	for _, p := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, p)
	}

	q := u.Query()
	list = q.Get("list")
	if list != "" && !playlistPattern.MatchString(list) {
		list = ""
	}

	switch host {
	case "youtube.com":
		switch {
		case u.Path == "/watch":
			id = q.Get("v")
		case u.Path == "/playlist":
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = firstSegment(strings.TrimPrefix(u.Path, "/shorts/"))
		case strings.HasPrefix(u.Path, "/embed/"):
			id = firstSegment(strings.TrimPrefix(u.Path, "/embed/"))
		default:
			return "", "", false
		}
	case "youtu.be":
		id = firstSegment(strings.TrimPrefix(u.Path, "/"))
	default:
		return "", "", false
	}

	if !videoIDPattern.MatchString(id) {
		id = ""
	}
	if id == "" && list == "" {
		return "", "", false
	}
	return id, list, true
}

func firstSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}
