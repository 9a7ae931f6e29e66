// Package catalog holds the published view of a loaded playlist together with
// the user preferences that shape it.
package catalog

import (
	"time"

	"github.com/alorle/iptv-catalog/internal/channel"
)

// Snapshot is one consistent, immutable state of the catalog. A new Snapshot
// is published for every change; consumers never see a partial update.
type Snapshot struct {
	// Categories in display order. Blocked channels are already removed and
	// every category carries its grouped tree.
	Categories []channel.Category
	Visible    map[string]bool
	Order      []string
	Blocked    map[string]bool
	IsLoading  bool
	// Err is the failure of the most recent load, if any. Categories still
	// hold the last good catalog.
	Err      error
	LoadedAt time.Time
	// Version increases with every publication.
	Version uint64
}

// VisibleCategories returns the categories marked visible, in display order.
func (s *Snapshot) VisibleCategories() []channel.Category {
	out := make([]channel.Category, 0, len(s.Categories))
	for _, c := range s.Categories {
		if s.Visible[c.Name()] {
			out = append(out, c)
		}
	}
	return out
}

// IsVisible reports whether the named category is shown.
func (s *Snapshot) IsVisible(name string) bool {
	return s.Visible[name]
}

// Category looks up a category by name.
func (s *Snapshot) Category(name string) (channel.Category, bool) {
	for _, c := range s.Categories {
		if c.Name() == name {
			return c, true
		}
	}
	return channel.Category{}, false
}

// FindChannel looks up a channel by id across all categories.
func (s *Snapshot) FindChannel(id string) (channel.Channel, bool) {
	for _, c := range s.Categories {
		for _, ch := range c.Channels() {
			if ch.ID() == id {
				return ch, true
			}
		}
	}
	return channel.Channel{}, false
}

// ChannelCount returns the number of channels across all categories.
func (s *Snapshot) ChannelCount() int {
	n := 0
	for _, c := range s.Categories {
		n += c.Len()
	}
	return n
}

// GroupCount returns the number of group nodes across all grouped trees.
func (s *Snapshot) GroupCount() int {
	n := 0
	for _, c := range s.Categories {
		items, _ := c.GroupedItems()
		n += countGroups(items)
	}
	return n
}

func countGroups(items []channel.Item) int {
	n := 0
	for _, it := range items {
		if it.IsGroup() {
			n += 1 + countGroups(it.Children())
		}
	}
	return n
}
