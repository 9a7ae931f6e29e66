package catalog

import (
	"net/url"
	"strings"
)

// Preference keys shared by every PreferenceRepository implementation.
const (
	KeyPlaylistURL       = "iptv_playlist_url"
	KeyVisibleCategories = "visible_categories"
	KeyCategoryOrder     = "category_order"
	KeyBlockedURLs       = "blocked_urls"
)

// ParsePlaylistURL validates a playlist source. Only absolute http and https
// URLs are accepted.
func ParsePlaylistURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, ErrInvalidPlaylistURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, nil
	default:
		return nil, ErrInvalidPlaylistURL
	}
}
