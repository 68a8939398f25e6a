package documents

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	viewerPathPattern = regexp.MustCompile(`^/(?:document|file|spreadsheets|presentation)/(?:u/\d+/)?d/([A-Za-z0-9_-]{10,})`)
	bareIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{20,}$`)
	viewerHosts       = map[string]bool{
		"docs.google.com":  true,
		"drive.google.com": true,
	}
)

// ViewerURLResolver recognizes hosted document viewer links such as
// https://docs.google.com/document/d/<id>/edit and https://drive.google.com/open?id=<id>.
// A bare id of at least 20 characters is taken as is.
type ViewerURLResolver struct{}

func (ViewerURLResolver) DocumentIDFromURL(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if bareIDPattern.MatchString(rawURL) {
		return rawURL, true
	}

	u, err := url.Parse(rawURL)
	if err != nil || !viewerHosts[strings.ToLower(u.Host)] {
		return "", false
	}

	if m := viewerPathPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1], true
	}

	if id := u.Query().Get("id"); id != "" {
		return id, true
	}

	return "", false
}
