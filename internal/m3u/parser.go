// Package m3u turns extended M3U playlist text into channel categories.
// Parsing never fails: malformed attributes fall back to defaults and entries
// without a usable stream URL are dropped.
package m3u

import (
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/alorle/iptv-catalog/internal/channel"
)

const (
	extinfPrefix = "#EXTINF"

	// UnknownChannel is the display name used when an #EXTINF line has no title.
	UnknownChannel = "Unknown Channel"
)

// scanState is the metadata accumulated for the entry being assembled.
type scanState struct {
	group string
	logo  *url.URL
	name  *string
}

func newScanState() scanState {
	return scanState{group: channel.Uncategorized}
}

// Parse scans playlist text line by line and returns one category per distinct
// group label, sorted by name. Channels keep encounter order within a category.
func Parse(text string) []channel.Category {
	buckets := make(map[string][]channel.Channel)
	state := newScanState()

	for _, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, extinfPrefix) {
			state = parseExtinf(line)
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		if ch, ok := buildChannel(state, line); ok {
			buckets[ch.Group()] = append(buckets[ch.Group()], ch)
		}
		state = newScanState()
	}

	categories := make([]channel.Category, 0, len(buckets))
	for name, channels := range buckets {
		categories = append(categories, channel.NewCategory(name, channels))
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name() < categories[j].Name()
	})

	return categories
}

// splitLines splits on every newline kind, including lone carriage returns.
func splitLines(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '\n', '\r', '\v', '\f', '\u0085', '\u2028', '\u2029':
			return true
		}
		return false
	})
}

func parseExtinf(line string) scanState {
	state := newScanState()

	if group, ok := quotedAttribute(line, "group-title"); ok && group != "" {
		state.group = group
	}

	if logo, ok := quotedAttribute(line, "tvg-logo"); ok {
		state.logo = parseLogoURL(logo)
	}

	name := UnknownChannel
	if idx := strings.LastIndex(line, ","); idx >= 0 {
		if title := strings.TrimSpace(line[idx+1:]); title != "" {
			name = title
		}
	}
	state.name = &name

	return state
}

// quotedAttribute returns the value of key="value" on the line.
// A missing key or a value without its closing quote reports false.
func quotedAttribute(line, key string) (string, bool) {
	marker := key + `="`
	start := strings.Index(line, marker)
	if start < 0 {
		return "", false
	}
	rest := line[start+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func parseLogoURL(raw string) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}

// ParseStreamURL reports whether line is an acceptable stream location:
// an absolute URL with a scheme and no embedded whitespace or control characters.
func ParseStreamURL(line string) (*url.URL, bool) {
	if strings.IndexFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return nil, false
	}
	u, err := url.Parse(line)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	if u.Host == "" && u.Opaque == "" && u.Path == "" {
		return nil, false
	}
	return u, true
}

func buildChannel(state scanState, line string) (channel.Channel, bool) {
	if state.name == nil {
		return channel.Channel{}, false
	}
	stream, ok := ParseStreamURL(line)
	if !ok {
		return channel.Channel{}, false
	}
	ch, err := channel.NewChannel(*state.name, state.logo, stream, state.group)
	if err != nil {
		return channel.Channel{}, false
	}
	return ch, true
}
