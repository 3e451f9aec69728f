// Package linkcheck validates the content links buyers attach to cards.
package linkcheck

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/exact3design/soundcard/internal/apperr"
)

// Kind identifies the playable content behind a link.
type Kind string

const (
	// KindYouTube is a hosted YouTube video.
	KindYouTube Kind = "youtube"
	// KindAudio is a direct https audio file.
	KindAudio Kind = "audio"
)

// User-facing rejection messages.
const (
	MsgEmpty          = "Please paste a link."
	MsgInvalidURL     = "That doesn't look like a valid URL."
	MsgInsecureScheme = "Please use an https:// link."
	MsgBadYouTube     = "That YouTube link looks off. Please paste a standard YouTube link (watch / youtu.be / shorts)."
	MsgUnsupported    = "Link not supported. Use an unlisted YouTube link, or a direct https audio link ending in .mp3, .m4a, or .wav."
)

// Link is a validated content reference.
type Link struct {
	Kind    Kind
	VideoID string // Set when Kind is KindYouTube.
	URL     string // Set when Kind is KindAudio.
}

var (
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	youTubeHosts = map[string]struct{}{
		"youtube.com":       {},
		"m.youtube.com":     {},
		"music.youtube.com": {},
	}

	audioExtensions = []string{".mp3", ".m4a", ".wav"}
)

const shortLinkHost = "youtu.be"

// Validate parses raw into a Link or returns an InvalidInput error whose message
// can be shown to the buyer. YouTube hosts are checked before audio extensions,
// so a malformed video id on a YouTube host never becomes an audio link.
func Validate(raw string) (Link, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return Link{}, apperr.InvalidInput(MsgEmpty)
	}

	u, errParse := url.Parse(input)
	if errParse != nil || u.Scheme == "" {
		return Link{}, apperr.InvalidInput(MsgInvalidURL)
	}
	if u.Scheme != "https" {
		return Link{}, apperr.InvalidInput(MsgInsecureScheme)
	}
	if u.Host == "" {
		return Link{}, apperr.InvalidInput(MsgInvalidURL)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if videoID := extractVideoID(host, u); videoID != "" {
		if !videoIDPattern.MatchString(videoID) {
			return Link{}, apperr.InvalidInput(MsgBadYouTube)
		}
		return Link{Kind: KindYouTube, VideoID: videoID}, nil
	}

	lowerPath := strings.ToLower(u.Path)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return Link{Kind: KindAudio, URL: input}, nil
		}
	}

	return Link{}, apperr.InvalidInput(MsgUnsupported)
}

// extractVideoID returns the candidate video id for YouTube-style URLs, or "".
func extractVideoID(host string, u *url.URL) string {
	var id string
	switch {
	case isYouTubeHost(host):
		if u.Path == "/watch" {
			id = u.Query().Get("v")
		} else if strings.HasPrefix(u.Path, "/shorts/") {
			id = pathSegment(u.Path, 1)
		}
	case host == shortLinkHost:
		id = pathSegment(u.Path, 0)
	}
	return strings.TrimSpace(id)
}

func isYouTubeHost(host string) bool {
	_, ok := youTubeHosts[host]
	return ok
}

// pathSegment returns the n-th segment of an absolute path, or "".
func pathSegment(p string, n int) string {
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	if n >= len(parts) {
		return ""
	}
	return parts[n]
}
