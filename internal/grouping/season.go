package grouping

import (
	"regexp"
	"sort"
	"strings"

	"github.com/alorle/iptv-catalog/internal/channel"
)

var seasonPattern = regexp.MustCompile(`(?i)S(\d+)|Season\s*(\d+)`)

type seasonBucket struct {
	number   string
	channels []channel.Channel
}

// groupSeasons splits a series run into per-season sub-groups followed by the
// channels that carry no season marker. Seasons too small to form a group
// stay as plain leaves in name order.
func (g *Grouper) groupSeasons(run []channel.Channel, parentID string) []channel.Item {
	buckets := make(map[string]*seasonBucket)
	seasonOf := make([]string, len(run))

	for i, ch := range run {
		number, ok := seasonNumber(ch.Name())
		if !ok {
			continue
		}
		b, exists := buckets[number]
		if !exists {
			b = &seasonBucket{number: number}
			buckets[number] = b
		}
		b.channels = append(b.channels, ch)
		seasonOf[i] = number
	}

	ordered := make([]*seasonBucket, 0, len(buckets))
	for _, b := range buckets {
		if len(b.channels) >= g.cfg.MinClusterSize {
			ordered = append(ordered, b)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return lessNumeric(ordered[i].number, ordered[j].number)
	})

	items := make([]channel.Item, 0, len(ordered)+len(run))
	grouped := make(map[string]bool, len(ordered))
	for _, b := range ordered {
		name := "Season " + b.number
		items = append(items, channel.NewGroupItem(parentID+"_"+name, name, leaves(b.channels)))
		grouped[b.number] = true
	}

	for i, ch := range run {
		if seasonOf[i] != "" && grouped[seasonOf[i]] {
			continue
		}
		items = append(items, channel.NewChannelItem(ch))
	}

	return items
}

// seasonNumber extracts the season number from name with leading zeros removed.
func seasonNumber(name string) (string, bool) {
	m := seasonPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	if digits == "" {
		return "", false
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}
	return digits, true
}

// lessNumeric compares two normalized decimal strings without overflow.
func lessNumeric(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
