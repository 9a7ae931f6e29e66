// Package grouping discovers series structure in flat channel lists using only
// naming heuristics: series/episode patterns, season markers and shared prefixes.
package grouping

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/alorle/iptv-catalog/internal/channel"
)

const groupIDPrefix = "group_"

// seriesPattern captures the series base name in group 1 and a number in group 2.
type seriesPattern struct {
	re *regexp.Regexp
	// seasonMarker reports that group 2 is a season number.
	seasonMarker bool
}

// Tried in order, first match wins.
var seriesPatterns = []seriesPattern{
	{re: regexp.MustCompile(`(?i)^(.*?)\s+S(\d+)`), seasonMarker: true},
	{re: regexp.MustCompile(`(?i)^(.*?)\s+E(\d+)`)},
}

// Grouper clusters related channels into a tree of channel and group items.
// It is safe for concurrent use.
type Grouper struct {
	cfg Config
}

// New creates a Grouper. Zero thresholds are replaced by defaults.
func New(cfg Config) *Grouper {
	def := DefaultConfig()
	if cfg.MinGroupingSize <= 0 {
		cfg.MinGroupingSize = def.MinGroupingSize
	}
	if cfg.MinPrefixLength <= 0 {
		cfg.MinPrefixLength = def.MinPrefixLength
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = def.MinClusterSize
	}
	if cfg.SeriesKeyMode == "" {
		cfg.SeriesKeyMode = def.SeriesKeyMode
	}
	return &Grouper{cfg: cfg}
}

// Config returns the effective configuration.
func (g *Grouper) Config() Config {
	return g.cfg
}

// GroupChannels returns the grouped tree for channels. The result does not
// depend on input order: channels are sorted by name before the sweep.
func (g *Grouper) GroupChannels(channels []channel.Channel) []channel.Item {
	sorted := sortByName(channels)

	if len(sorted) < g.cfg.MinGroupingSize {
		return leaves(sorted)
	}

	items := make([]channel.Item, 0, len(sorted))
	ids := newIDSet()

	i := 0
	for i < len(sorted) {
		key, ok := g.seriesKey(sorted[i].Name())
		if !ok && i+1 < len(sorted) {
			key, ok = g.prefixKey(sorted[i].Name(), sorted[i+1].Name())
		}

		if ok {
			end := runEnd(sorted, i, key)
			if end-i >= g.cfg.MinClusterSize {
				id := ids.unique(groupIDPrefix + key)
				children := g.groupSeasons(sorted[i:end], id)
				items = append(items, channel.NewGroupItem(id, key, children))
				i = end
				continue
			}
		}

		items = append(items, channel.NewChannelItem(sorted[i]))
		i++
	}

	return items
}

// seriesKey applies the series patterns to name.
func (g *Grouper) seriesKey(name string) (string, bool) {
	for _, p := range seriesPatterns {
		m := p.re.FindStringSubmatchIndex(name)
		if m == nil {
			continue
		}
		base := strings.TrimSpace(name[m[2]:m[3]])
		if base == "" {
			continue
		}
		if p.seasonMarker && g.cfg.SeriesKeyMode == SeriesKeySeason {
			return strings.TrimSpace(name[:m[1]]), true
		}
		return base, true
	}
	return "", false
}

// prefixKey derives a group key from the shared prefix of two names.
func (g *Grouper) prefixKey(a, b string) (string, bool) {
	prefix := commonPrefix(a, b)
	if len([]rune(prefix)) <= g.cfg.MinPrefixLength {
		return "", false
	}
	key := strings.TrimRight(prefix, "0123456789")
	key = strings.TrimFunc(key, isSeparator)
	if key == "" {
		return "", false
	}
	return key, true
}

// runEnd returns the end of the contiguous run starting at i whose names start
// with key. The channel at i always belongs to the run.
func runEnd(sorted []channel.Channel, i int, key string) int {
	j := i + 1
	for j < len(sorted) && strings.HasPrefix(sorted[j].Name(), key) {
		j++
	}
	return j
}

func commonPrefix(a, b string) string {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return string(ra[:n])
}

func isSeparator(r rune) bool {
	switch r {
	case '-', '_', ':', '|', ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// sortByName returns a copy ordered by name, then stream key, then id,
// using plain byte-wise comparison.
func sortByName(channels []channel.Channel) []channel.Channel {
	sorted := append([]channel.Channel(nil), channels...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Name() != b.Name() {
			return a.Name() < b.Name()
		}
		if a.StreamKey() != b.StreamKey() {
			return a.StreamKey() < b.StreamKey()
		}
		return a.ID() < b.ID()
	})
	return sorted
}

func leaves(channels []channel.Channel) []channel.Item {
	items := make([]channel.Item, len(channels))
	for i, ch := range channels {
		items[i] = channel.NewChannelItem(ch)
	}
	return items
}

// idSet keeps group ids unique among siblings.
type idSet map[string]int

func newIDSet() idSet {
	return make(idSet)
}

func (s idSet) unique(id string) string {
	n := s[id]
	s[id] = n + 1
	if n == 0 {
		return id
	}
	return fmt.Sprintf("%s_%d", id, n+1)
}
