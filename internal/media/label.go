package media

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var knownSources = map[string]string{
	"instagram.com": "Instagram",
	"youtube.com":   "YouTube",
	"youtu.be":      "YouTube",
	"facebook.com":  "Facebook",
	"fb.com":        "Facebook",
	"tiktok.com":    "TikTok",
	"vimeo.com":     "Vimeo",
}

// SourceLabel derives a display label for a media origin from its URL.
// Well-known platforms get their branded name; anything else falls back to
// a title-cased form of the registrable host.
func SourceLabel(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "Web"
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	for suffix, label := range knownSources {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return label
		}
	}
	name := host
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		name = name[:idx]
	}
	if name == "" {
		return "Web"
	}
	return cases.Title(language.English).String(name)
}
