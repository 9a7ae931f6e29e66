package channel_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/alorle/iptv-catalog/internal/channel"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

func TestNewChannel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		stream    string
		group     string
		wantName  string
		wantGroup string
		wantError error
	}{
		{
			name:      "valid channel",
			input:     "BBC News",
			stream:    "http://stream/bbc",
			group:     "News",
			wantName:  "BBC News",
			wantGroup: "News",
		},
		{
			name:      "name is trimmed",
			input:     "  BBC News  ",
			stream:    "http://stream/bbc",
			group:     "News",
			wantName:  "BBC News",
			wantGroup: "News",
		},
		{
			name:      "empty group becomes uncategorized",
			input:     "BBC News",
			stream:    "http://stream/bbc",
			wantName:  "BBC News",
			wantGroup: channel.Uncategorized,
		},
		{
			name:      "empty name",
			input:     "   ",
			stream:    "http://stream/bbc",
			wantError: channel.ErrEmptyName,
		},
		{
			name:      "relative stream url",
			input:     "BBC News",
			stream:    "stream/bbc",
			wantError: channel.ErrInvalidStreamURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := channel.NewChannel(tt.input, nil, mustURL(t, tt.stream), tt.group)
			if !errors.Is(err, tt.wantError) {
				t.Fatalf("expected error %v, got %v", tt.wantError, err)
			}
			if tt.wantError != nil {
				return
			}
			if ch.Name() != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, ch.Name())
			}
			if ch.Group() != tt.wantGroup {
				t.Errorf("expected group %q, got %q", tt.wantGroup, ch.Group())
			}
			if ch.ID() == "" {
				t.Error("expected generated id")
			}
			if ch.StreamKey() != tt.stream {
				t.Errorf("expected stream key %q, got %q", tt.stream, ch.StreamKey())
			}
		})
	}

	t.Run("nil stream url", func(t *testing.T) {
		_, err := channel.NewChannel("BBC", nil, nil, "News")
		if !errors.Is(err, channel.ErrInvalidStreamURL) {
			t.Errorf("expected ErrInvalidStreamURL, got %v", err)
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		a, _ := channel.NewChannel("A", nil, mustURL(t, "http://x/a"), "")
		b, _ := channel.NewChannel("A", nil, mustURL(t, "http://x/a"), "")
		if a.ID() == b.ID() {
			t.Error("expected distinct ids for distinct channels")
		}
	})

	t.Run("urls are copied", func(t *testing.T) {
		stream := mustURL(t, "http://x/a")
		ch, _ := channel.NewChannel("A", nil, stream, "")
		stream.Path = "/changed"
		if ch.StreamURL().Path != "/a" {
			t.Errorf("channel stream url changed with caller's value: %s", ch.StreamURL())
		}
		ch.StreamURL().Path = "/changed"
		if ch.StreamKey() != "http://x/a" {
			t.Errorf("channel stream url changed through accessor: %s", ch.StreamKey())
		}
	})
}

func TestClassifyLive(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   bool
	}{
		{"BBC News", "http://stream/bbc", true},
		{"BBC News", "http://stream/bbc.ts", true},
		{"BBC News", "http://stream/live.m3u8", true},
		{"Movie", "http://vod/movie.mp4", false},
		{"Movie", "http://vod/movie.MKV", false},
		{"Movie", "http://vod/movie.avi?token=1", false},
		{"Movie", "http://vod/movie.mov", false},
		{"Movie", "http://vod/movie.flv", false},
		{"Movie", "http://vod/movie.wmv", false},
		{"Show S01E02", "http://vod/show", false},
		{"Show E12", "http://vod/show", false},
		{"Show season 3", "http://vod/show", false},
		{"Show Season3", "http://vod/show", false},
		{"ESPN2", "http://stream/espn2", true},
		{"s01e02 lowercase", "http://vod/show", true},
	}

	for _, tt := range tests {
		t.Run(tt.name+" "+tt.stream, func(t *testing.T) {
			ch, err := channel.NewChannel(tt.name, nil, mustURL(t, tt.stream), "")
			if err != nil {
				t.Fatalf("failed to create channel: %v", err)
			}
			if got := channel.ClassifyLive(ch); got != tt.want {
				t.Errorf("ClassifyLive() = %v, want %v", got, tt.want)
			}
			if ch.IsLive() != tt.want {
				t.Errorf("IsLive() = %v, want %v", ch.IsLive(), tt.want)
			}
		})
	}
}

func TestCategory(t *testing.T) {
	a, _ := channel.NewChannel("A", nil, mustURL(t, "http://x/a"), "News")
	b, _ := channel.NewChannel("B", nil, mustURL(t, "http://x/b"), "News")

	cat := channel.NewCategory("News", []channel.Channel{a, b})
	if cat.ID() == "" {
		t.Fatal("expected generated category id")
	}
	if _, ok := cat.GroupedItems(); ok {
		t.Error("expected no grouped cache on a new category")
	}

	grouped := cat.WithGroupedItems([]channel.Item{channel.NewChannelItem(a), channel.NewChannelItem(b)})
	items, ok := grouped.GroupedItems()
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 cached items, got %d (ok=%v)", len(items), ok)
	}

	t.Run("removing channels invalidates cache", func(t *testing.T) {
		filtered, changed := grouped.Without(func(ch channel.Channel) bool { return ch.ID() == a.ID() })
		if !changed {
			t.Fatal("expected a change")
		}
		if filtered.ID() != cat.ID() {
			t.Error("expected id to be kept")
		}
		if filtered.Len() != 1 {
			t.Errorf("expected 1 channel, got %d", filtered.Len())
		}
		if _, ok := filtered.GroupedItems(); ok {
			t.Error("expected grouped cache to be invalidated")
		}
	})

	t.Run("no-op removal keeps cache", func(t *testing.T) {
		same, changed := grouped.Without(func(channel.Channel) bool { return false })
		if changed {
			t.Fatal("expected no change")
		}
		if _, ok := same.GroupedItems(); !ok {
			t.Error("expected grouped cache to survive")
		}
	})

	t.Run("empty grouped tree counts as computed", func(t *testing.T) {
		empty := channel.NewCategory("Empty", nil).WithGroupedItems(nil)
		if _, ok := empty.GroupedItems(); !ok {
			t.Error("expected empty grouped tree to be cached")
		}
	})
}

func TestItem(t *testing.T) {
	a, _ := channel.NewChannel("A", nil, mustURL(t, "http://x/a"), "")
	b, _ := channel.NewChannel("B", nil, mustURL(t, "http://x/b"), "")
	c, _ := channel.NewChannel("C", nil, mustURL(t, "http://x/c"), "")

	season := channel.NewGroupItem("group_Show_Season 1", "Season 1", []channel.Item{
		channel.NewChannelItem(a),
		channel.NewChannelItem(b),
	})
	root := channel.NewGroupItem("group_Show", "Show", []channel.Item{season, channel.NewChannelItem(c)})

	if !root.IsGroup() || root.Kind() != channel.KindGroup {
		t.Error("expected root to be a group")
	}
	if root.ID() != "group_Show" || root.Name() != "Show" {
		t.Errorf("unexpected root id/name: %q %q", root.ID(), root.Name())
	}
	if root.LeafCount() != 3 {
		t.Errorf("expected 3 leaves, got %d", root.LeafCount())
	}

	leaves := root.Leaves()
	want := []string{"A", "B", "C"}
	for i, ch := range leaves {
		if ch.Name() != want[i] {
			t.Errorf("leaf %d: expected %q, got %q", i, want[i], ch.Name())
		}
	}

	leaf := channel.NewChannelItem(a)
	if got, ok := leaf.Channel(); !ok || got.ID() != a.ID() {
		t.Error("expected leaf to wrap channel A")
	}
	if leaf.ID() != a.ID() || leaf.Name() != "A" {
		t.Error("expected leaf id and name to come from the channel")
	}
	if leaf.Children() != nil {
		t.Error("expected no children on a leaf")
	}
	if _, ok := root.Channel(); ok {
		t.Error("expected group not to wrap a channel")
	}

	if n := len(channel.Flatten([]channel.Item{root, leaf})); n != 4 {
		t.Errorf("expected 4 flattened channels, got %d", n)
	}
}
