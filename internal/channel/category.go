package channel

import "github.com/google/uuid"

// Category is a named bucket of channels derived from the playlist's group-title.
// Values are copied on every change; the grouped tree is a cache that is dropped
// whenever the channel list changes.
type Category struct {
	id       string
	name     string
	channels []Channel
	grouped  []Item
}

// NewCategory creates a Category with a generated id and no grouped tree.
func NewCategory(name string, channels []Channel) Category {
	return Category{
		id:       uuid.NewString(),
		name:     name,
		channels: append([]Channel(nil), channels...),
	}
}

// ID returns the category identifier.
func (c Category) ID() string {
	return c.id
}

// Name returns the category name.
func (c Category) Name() string {
	return c.name
}

// Channels returns a copy of the channels in encounter order.
func (c Category) Channels() []Channel {
	return append([]Channel(nil), c.channels...)
}

// Len returns the number of channels in the category.
func (c Category) Len() int {
	return len(c.channels)
}

// GroupedItems returns the cached grouped tree and whether it has been computed.
func (c Category) GroupedItems() ([]Item, bool) {
	if c.grouped == nil {
		return nil, false
	}
	return append([]Item(nil), c.grouped...), true
}

// WithChannels returns a copy holding the given channels, keeping the id.
// The grouped cache is invalidated.
func (c Category) WithChannels(channels []Channel) Category {
	return Category{
		id:       c.id,
		name:     c.name,
		channels: append([]Channel(nil), channels...),
	}
}

// WithGroupedItems returns a copy carrying items as its grouped tree.
func (c Category) WithGroupedItems(items []Item) Category {
	c.channels = append([]Channel(nil), c.channels...)
	c.grouped = append(make([]Item, 0, len(items)), items...)
	return c
}

// Without returns a copy without the channels for which drop returns true,
// and whether anything was removed. The grouped cache survives only when
// nothing was removed.
func (c Category) Without(drop func(Channel) bool) (Category, bool) {
	kept := make([]Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		if !drop(ch) {
			kept = append(kept, ch)
		}
	}
	if len(kept) == len(c.channels) {
		return c, false
	}
	return c.WithChannels(kept), true
}
