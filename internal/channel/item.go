package channel

// ItemKind discriminates the two cases of Item.
type ItemKind int

const (
	// KindChannel is a leaf holding a single channel.
	KindChannel ItemKind = iota
	// KindGroup is a synthetic cluster holding child items.
	KindGroup
)

// Item is a node of the grouped channel tree: either a channel leaf or a
// group owning its children outright. Trees are built bottom-up, so they
// never contain cycles.
type Item struct {
	kind     ItemKind
	channel  Channel
	id       string
	name     string
	children []Item
}

// NewChannelItem wraps a channel as a leaf.
func NewChannelItem(ch Channel) Item {
	return Item{kind: KindChannel, channel: ch}
}

// NewGroupItem creates a group node with a copy of children.
func NewGroupItem(id, name string, children []Item) Item {
	return Item{
		kind:     KindGroup,
		id:       id,
		name:     name,
		children: append([]Item(nil), children...),
	}
}

// Kind returns which case the item holds.
func (i Item) Kind() ItemKind {
	return i.kind
}

// IsGroup reports whether the item is a group node.
func (i Item) IsGroup() bool {
	return i.kind == KindGroup
}

// Channel returns the wrapped channel for leaves.
func (i Item) Channel() (Channel, bool) {
	if i.kind != KindChannel {
		return Channel{}, false
	}
	return i.channel, true
}

// ID returns the channel id for leaves and the stable group id for groups.
func (i Item) ID() string {
	if i.kind == KindChannel {
		return i.channel.ID()
	}
	return i.id
}

// Name returns the channel name for leaves and the group label for groups.
func (i Item) Name() string {
	if i.kind == KindChannel {
		return i.channel.Name()
	}
	return i.name
}

// Children returns a copy of the group's children; nil for leaves.
func (i Item) Children() []Item {
	if i.kind != KindGroup {
		return nil
	}
	return append([]Item(nil), i.children...)
}

// Leaves returns every channel under the item in depth-first order.
func (i Item) Leaves() []Channel {
	if i.kind == KindChannel {
		return []Channel{i.channel}
	}
	var out []Channel
	for _, child := range i.children {
		out = append(out, child.Leaves()...)
	}
	return out
}

// LeafCount returns the number of channels under the item.
func (i Item) LeafCount() int {
	if i.kind == KindChannel {
		return 1
	}
	n := 0
	for _, child := range i.children {
		n += child.LeafCount()
	}
	return n
}

// Flatten returns every channel of a forest in depth-first order.
func Flatten(items []Item) []Channel {
	var out []Channel
	for _, it := range items {
		out = append(out, it.Leaves()...)
	}
	return out
}
