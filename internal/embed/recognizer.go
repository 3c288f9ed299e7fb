// Package embed classifies URLs against the ordered rule table of embed
// services note.com can render, and builds embed descriptors for them.
package embed

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/notedown/internal/errors"
)

// Service identifiers as note.com expects them in the
// embedded-service attribute.
const (
	ServiceYouTube         = "youtube"
	ServiceTwitter         = "twitter"
	ServiceNote            = "note"
	ServiceGist            = "gist"
	ServiceExternalArticle = "external_article"
	ServiceOEmbed          = "oembed"
)

type rule struct {
	service string
	pattern *regexp.Regexp
}

// Ordered rule table, first match wins. The rules are anchored and mutually
// exclusive; the gist-subdomain rule is listed before any github host could
// be matched generally, and money.note.com before the note.com article rule.
var rules = []rule{
	{ServiceYouTube, regexp.MustCompile(`^https?://(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)[\w-]+$`)},
	{ServiceTwitter, regexp.MustCompile(`^https?://(?:www\.)?(?:twitter\.com|x\.com)/\w+/status/\d+$`)},
	{ServiceGist, regexp.MustCompile(`^https?://gist\.github\.com/[\w-]+/\w+$`)},
	{ServiceOEmbed, regexp.MustCompile(`^https?://money\.note\.com/(?:companies|us-companies|indices|investments)/[\w-]+/?$`)},
	{ServiceNote, regexp.MustCompile(`^https?://note\.com/\w+/n/\w+$`)},
	{ServiceExternalArticle, regexp.MustCompile(`^https?://zenn\.dev/[\w-]+/articles/[\w-]+$`)},
}

// Classify returns the service identifier for a URL, or "" when the URL is
// not a supported embed. Total and pure: any input is acceptable.
func Classify(url string) string {
	url = strings.TrimSpace(url)
	for _, r := range rules {
		if r.pattern.MatchString(url) {
			return r.service
		}
	}
	return ""
}

// IsEmbedURL reports whether a URL maps to a supported embed service.
func IsEmbedURL(url string) bool {
	return Classify(url) != ""
}

// Descriptor is the canonical metadata needed to render a third-party embed:
// the source URL, the service identifier, and a content key. The key starts
// as a local placeholder and is exchanged for a server-registered key via the
// embed-key API.
type Descriptor struct {
	URL        string
	Service    string
	ContentKey string
}

// NewDescriptor builds a Descriptor for a URL. An empty service is filled in
// by Classify; an unclassifiable URL yields a recoverable validation error so
// callers can fall back to a plain link. An empty key gets a fresh local
// placeholder key.
func NewDescriptor(url, service, key string) (Descriptor, error) {
	if service == "" {
		service = Classify(url)
	}
	if service == "" {
		return Descriptor{}, errors.ValidationError("unsupported embed URL").WithContext("url", url)
	}
	if key == "" {
		key = NewLocalKey()
	}
	return Descriptor{URL: url, Service: service, ContentKey: key}, nil
}

// NewLocalKey generates a local placeholder content key in note.com's format:
// "emb" followed by 13 hex characters.
func NewLocalKey() string {
	return "emb" + strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
}
