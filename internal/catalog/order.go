package catalog

import (
	"math"
	"sort"

	"github.com/alorle/iptv-catalog/internal/channel"
)

// SortByOrder returns categories sorted by their position in order.
// Categories missing from order sort last and keep their relative order.
func SortByOrder(categories []channel.Category, order []string) []channel.Category {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		if _, dup := rank[name]; !dup {
			rank[name] = i
		}
	}
	key := func(name string) int {
		if i, ok := rank[name]; ok {
			return i
		}
		return math.MaxInt
	}

	sorted := append([]channel.Category(nil), categories...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i].Name()) < key(sorted[j].Name())
	})
	return sorted
}

// Move relocates the elements at the from offsets so they sit before the
// element originally at offset to. Moved elements keep their relative order.
// to may equal len(order) to move to the end.
func Move(order []string, from []int, to int) ([]string, error) {
	if len(from) == 0 {
		return nil, ErrInvalidMove
	}
	if to < 0 || to > len(order) {
		return nil, ErrInvalidMove
	}

	picked := make(map[int]bool, len(from))
	for _, i := range from {
		if i < 0 || i >= len(order) || picked[i] {
			return nil, ErrInvalidMove
		}
		picked[i] = true
	}

	moved := make([]string, 0, len(from))
	rest := make([]string, 0, len(order)-len(from))
	insertAt := to
	for i, name := range order {
		if picked[i] {
			moved = append(moved, name)
			if i < to {
				insertAt--
			}
			continue
		}
		rest = append(rest, name)
	}

	out := make([]string, 0, len(order))
	out = append(out, rest[:insertAt]...)
	out = append(out, moved...)
	out = append(out, rest[insertAt:]...)
	return out, nil
}
