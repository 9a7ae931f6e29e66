package channel

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Uncategorized is the group label used when a playlist entry carries no group-title.
const Uncategorized = "Uncategorized"

// Channel represents a playable entry of a playlist.
// It is immutable once constructed; the id is generated per parse and never persisted.
type Channel struct {
	id        string
	name      string
	logoURL   *url.URL
	streamURL *url.URL
	group     string
}

// NewChannel creates a new Channel with a freshly generated id.
// Returns ErrEmptyName if the name is empty or contains only whitespace.
// Returns ErrInvalidStreamURL if streamURL is nil or not absolute.
// An empty group is normalized to Uncategorized.
func NewChannel(name string, logoURL, streamURL *url.URL, group string) (Channel, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Channel{}, ErrEmptyName
	}
	if streamURL == nil || !streamURL.IsAbs() {
		return Channel{}, ErrInvalidStreamURL
	}
	if group == "" {
		group = Uncategorized
	}

	return Channel{
		id:        uuid.NewString(),
		name:      trimmed,
		logoURL:   cloneURL(logoURL),
		streamURL: cloneURL(streamURL),
		group:     group,
	}, nil
}

// ID returns the channel's identifier.
func (c Channel) ID() string {
	return c.id
}

// Name returns the channel's display name.
func (c Channel) Name() string {
	return c.name
}

// LogoURL returns the channel logo, or nil when the playlist carried none.
func (c Channel) LogoURL() *url.URL {
	return cloneURL(c.logoURL)
}

// StreamURL returns the channel's stream location.
func (c Channel) StreamURL() *url.URL {
	return cloneURL(c.streamURL)
}

// StreamKey returns the string form of the stream URL, used to block channels.
func (c Channel) StreamKey() string {
	if c.streamURL == nil {
		return ""
	}
	return c.streamURL.String()
}

// Group returns the raw group label from the playlist.
func (c Channel) Group() string {
	return c.group
}

// IsLive reports whether the channel looks like a continuous live stream.
func (c Channel) IsLive() bool {
	return ClassifyLive(c)
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	clone := *u
	if u.User != nil {
		user := *u.User
		clone.User = &user
	}
	return &clone
}
