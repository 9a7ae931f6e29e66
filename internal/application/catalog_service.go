package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alorle/iptv-catalog/internal/catalog"
	"github.com/alorle/iptv-catalog/internal/channel"
	"github.com/alorle/iptv-catalog/internal/grouping"
	"github.com/alorle/iptv-catalog/internal/m3u"
	"github.com/alorle/iptv-catalog/internal/port/driven"
	"github.com/alorle/iptv-catalog/metrics"
)

// CatalogService owns the published catalog and the view preferences that
// shape it. Loads fetch, parse, filter and group off the caller's path and
// publish a complete Snapshot at the end; user edits are persisted and
// published immediately.
type CatalogService struct {
	source  driven.PlaylistSource
	prefs   driven.PreferenceRepository
	grouper *grouping.Grouper
	logger  *slog.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc
	loads      sync.WaitGroup

	snapshot atomic.Pointer[catalog.Snapshot]

	// mu guards everything below. Publication happens with mu held so
	// subscribers observe snapshots in order.
	mu          sync.Mutex
	playlistURL string
	categories  []channel.Category
	visible     map[string]bool
	order       []string
	blocked     map[string]bool
	loading     bool
	lastErr     error
	loadedAt    time.Time
	version     uint64
	generation  uint64
	cancelLoad  context.CancelFunc
	subscribers map[uint64]chan *catalog.Snapshot
	nextSubID   uint64
}

// NewCatalogService creates a CatalogService and restores saved preferences.
// A nil grouper uses the default configuration and a nil logger uses slog.Default().
func NewCatalogService(
	ctx context.Context,
	source driven.PlaylistSource,
	prefs driven.PreferenceRepository,
	grouper *grouping.Grouper,
	logger *slog.Logger,
) (*CatalogService, error) {
	if grouper == nil {
		grouper = grouping.New(grouping.DefaultConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &CatalogService{
		source:      source,
		prefs:       prefs,
		grouper:     grouper,
		logger:      logger,
		visible:     make(map[string]bool),
		blocked:     make(map[string]bool),
		subscribers: make(map[uint64]chan *catalog.Snapshot),
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	if err := s.restorePreferences(ctx); err != nil {
		s.cancelBase()
		return nil, err
	}

	s.mu.Lock()
	s.publishLocked()
	s.mu.Unlock()

	return s, nil
}

func (s *CatalogService) restorePreferences(ctx context.Context) error {
	url, err := s.prefs.GetString(ctx, catalog.KeyPlaylistURL)
	switch {
	case err == nil:
		s.playlistURL = url
	case !errors.Is(err, catalog.ErrPreferenceNotFound):
		return fmt.Errorf("restoring playlist url: %w", err)
	}

	visible, err := s.getStrings(ctx, catalog.KeyVisibleCategories)
	if err != nil {
		return fmt.Errorf("restoring visible categories: %w", err)
	}
	for _, name := range visible {
		s.visible[name] = true
	}

	s.order, err = s.getStrings(ctx, catalog.KeyCategoryOrder)
	if err != nil {
		return fmt.Errorf("restoring category order: %w", err)
	}

	blocked, err := s.getStrings(ctx, catalog.KeyBlockedURLs)
	if err != nil {
		return fmt.Errorf("restoring blocked urls: %w", err)
	}
	for _, key := range blocked {
		s.blocked[key] = true
	}

	return nil
}

func (s *CatalogService) getStrings(ctx context.Context, key string) ([]string, error) {
	values, err := s.prefs.GetStrings(ctx, key)
	if errors.Is(err, catalog.ErrPreferenceNotFound) {
		return nil, nil
	}
	return values, err
}

// Snapshot returns the most recently published catalog state.
func (s *CatalogService) Snapshot() *catalog.Snapshot {
	return s.snapshot.Load()
}

// Subscribe returns a channel that receives the current Snapshot and then
// every new one. A slow reader only sees the latest Snapshot. The channel
// is closed when ctx is done or the service is closed.
func (s *CatalogService) Subscribe(ctx context.Context) <-chan *catalog.Snapshot {
	ch := make(chan *catalog.Snapshot, 1)

	s.mu.Lock()
	if s.baseCtx.Err() != nil {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.snapshot.Load()
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.baseCtx.Done():
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
	}()

	return ch
}

// PlaylistURL returns the saved playlist source, or "" if none is set.
func (s *CatalogService) PlaylistURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlistURL
}

// SetPlaylistURL validates and saves the playlist source. It does not load it.
// Returns catalog.ErrInvalidPlaylistURL for anything but an absolute http(s) URL.
func (s *CatalogService) SetPlaylistURL(ctx context.Context, raw string) error {
	u, err := catalog.ParsePlaylistURL(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prefs.SetString(ctx, catalog.KeyPlaylistURL, u.String()); err != nil {
		return fmt.Errorf("saving playlist url: %w", err)
	}
	s.playlistURL = u.String()
	return nil
}

// LoadPlaylist fetches, parses, filters and groups the saved playlist and
// publishes the result. It blocks until the load finishes.
//
// Fetch and decode failures are published as the snapshot error and keep the
// previous catalog. A load overtaken by a newer one is cancelled, publishes
// nothing and returns catalog.ErrLoadSuperseded.
func (s *CatalogService) LoadPlaylist(ctx context.Context) error {
	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.baseCtx, cancel)
	defer stop()

	gen, url, err := s.beginLoad(cancel)
	if err != nil {
		return err
	}
	defer s.loads.Done()

	return s.runLoad(loadCtx, gen, url)
}

// LoadPlaylistAsync starts a load in the background and returns once it is
// registered. Only a missing playlist source or a closed service are
// reported; the outcome of the load itself is published.
func (s *CatalogService) LoadPlaylistAsync() error {
	loadCtx, cancel := context.WithCancel(s.baseCtx)

	gen, url, err := s.beginLoad(cancel)
	if err != nil {
		cancel()
		return err
	}

	go func() {
		defer s.loads.Done()
		defer cancel()
		if err := s.runLoad(loadCtx, gen, url); err != nil && !errors.Is(err, catalog.ErrLoadSuperseded) {
			s.logger.Debug("background playlist load failed", "error", err)
		}
	}()
	return nil
}

// Wait blocks until every load started so far has finished.
func (s *CatalogService) Wait() {
	s.loads.Wait()
}

// Close cancels in-flight loads, closes subscriber channels and waits for
// background work to stop.
func (s *CatalogService) Close() {
	s.mu.Lock()
	s.cancelBase()
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	s.mu.Unlock()

	s.loads.Wait()
}

// beginLoad registers a new load generation, cancelling the previous one,
// and publishes the loading state. On success the caller owns one count of
// s.loads.
func (s *CatalogService) beginLoad(cancel context.CancelFunc) (uint64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.baseCtx.Err(); err != nil {
		return 0, "", err
	}
	if s.playlistURL == "" {
		return 0, "", catalog.ErrNoPlaylistSource
	}

	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.loads.Add(1)
	s.generation++
	s.cancelLoad = cancel
	s.loading = true
	s.lastErr = nil
	s.publishLocked()

	return s.generation, s.playlistURL, nil
}

func (s *CatalogService) runLoad(ctx context.Context, gen uint64, url string) error {
	start := time.Now()
	s.logger.Info("loading playlist", "url", url, "generation", gen)

	categories, err := s.fetchAndBuild(ctx, url)
	return s.finishLoad(gen, start, categories, err)
}

// fetchAndBuild runs the pipeline. It only reads shared state through
// blockedKeys.
func (s *CatalogService) fetchAndBuild(ctx context.Context, url string) ([]channel.Category, error) {
	body, err := s.source.Fetch(ctx, url)
	if err != nil {
		var fetchErr *catalog.FetchError
		if !errors.As(err, &fetchErr) {
			err = &catalog.FetchError{URL: url, Err: err}
		}
		return nil, err
	}

	text, err := catalog.Decode(body)
	if err != nil {
		return nil, err
	}

	blocked := s.blockedKeys()
	parsed := m3u.Parse(text)

	categories := make([]channel.Category, 0, len(parsed))
	for _, c := range parsed {
		if err := ctx.Err(); err != nil {
			return nil, &catalog.FetchError{URL: url, Err: err}
		}
		c, _ = c.Without(func(ch channel.Channel) bool { return blocked[ch.StreamKey()] })
		if c.Len() == 0 {
			continue
		}
		categories = append(categories, s.group(c))
	}
	return categories, nil
}

func (s *CatalogService) finishLoad(gen uint64, start time.Time, categories []channel.Category, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(start)
	if gen != s.generation {
		metrics.RecordCatalogLoad(metrics.LoadSuperseded, elapsed)
		s.logger.Debug("discarding superseded playlist load", "generation", gen, "current", s.generation)
		return catalog.ErrLoadSuperseded
	}

	s.loading = false
	s.cancelLoad = nil

	if err != nil {
		result := metrics.LoadFetchError
		if errors.Is(err, catalog.ErrDecode) {
			result = metrics.LoadDecodeError
		}
		metrics.RecordCatalogLoad(result, elapsed)
		s.lastErr = err
		s.publishLocked()
		s.logger.Error("playlist load failed", "error", err, "duration", elapsed)
		return err
	}

	// Keys blocked while the fetch was in flight.
	categories = s.removeBlockedLocked(categories, func(ch channel.Channel) bool {
		return s.blocked[ch.StreamKey()]
	})

	s.categories = catalog.SortByOrder(categories, s.order)
	s.lastErr = nil
	s.loadedAt = time.Now()
	s.initPreferencesLocked()
	s.publishLocked()

	metrics.RecordCatalogLoad(metrics.LoadSuccess, elapsed)
	s.logger.Info("playlist loaded",
		"categories", len(s.categories),
		"channels", countChannels(s.categories),
		"duration", elapsed,
	)
	return nil
}

// initPreferencesLocked makes every category visible and records the current
// order when those preferences are still empty.
func (s *CatalogService) initPreferencesLocked() {
	ctx := context.Background()

	if len(s.visible) == 0 {
		names := categoryNames(s.categories)
		for _, name := range names {
			s.visible[name] = true
		}
		if err := s.prefs.SetStrings(ctx, catalog.KeyVisibleCategories, names); err != nil {
			s.logger.Error("failed to save visible categories", "error", err)
		}
	}

	if len(s.order) == 0 {
		s.order = categoryNames(s.categories)
		if err := s.prefs.SetStrings(ctx, catalog.KeyCategoryOrder, s.order); err != nil {
			s.logger.Error("failed to save category order", "error", err)
		}
	}
}

// BlockChannel hides every channel streaming from ch's URL, now and in future
// loads. The catalog is updated in place without a reload.
func (s *CatalogService) BlockChannel(ctx context.Context, ch channel.Channel) error {
	key := ch.StreamKey()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.blocked[key] {
		keys := append(sortedKeys(s.blocked), key)
		sort.Strings(keys)
		if err := s.prefs.SetStrings(ctx, catalog.KeyBlockedURLs, keys); err != nil {
			return fmt.Errorf("saving blocked urls: %w", err)
		}
		s.blocked[key] = true
	}

	s.categories = s.removeBlockedLocked(s.categories, func(c channel.Channel) bool {
		return c.StreamKey() == key
	})
	s.publishLocked()

	s.logger.Info("channel blocked", "name", ch.Name(), "url", key)
	return nil
}

// BlockChannelByID blocks the channel with the given id in the current
// catalog. Returns channel.ErrChannelNotFound if it is not there.
func (s *CatalogService) BlockChannelByID(ctx context.Context, id string) (channel.Channel, error) {
	ch, ok := s.Snapshot().FindChannel(id)
	if !ok {
		return channel.Channel{}, channel.ErrChannelNotFound
	}
	return ch, s.BlockChannel(ctx, ch)
}

// UnblockChannel removes key from the blocked set and reloads the playlist in
// the background so the channel can reappear. Unknown keys are a no-op.
func (s *CatalogService) UnblockChannel(ctx context.Context, key string) error {
	s.mu.Lock()
	if !s.blocked[key] {
		s.mu.Unlock()
		return nil
	}

	remaining := make([]string, 0, len(s.blocked)-1)
	for _, k := range sortedKeys(s.blocked) {
		if k != key {
			remaining = append(remaining, k)
		}
	}
	if err := s.prefs.SetStrings(ctx, catalog.KeyBlockedURLs, remaining); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("saving blocked urls: %w", err)
	}
	delete(s.blocked, key)
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Info("channel unblocked", "url", key)

	if err := s.LoadPlaylistAsync(); err != nil && !errors.Is(err, catalog.ErrNoPlaylistSource) {
		return err
	}
	return nil
}

// BlockedStreamKeys returns the blocked stream URLs in sorted order.
func (s *CatalogService) BlockedStreamKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.blocked)
}

// ToggleCategoryVisibility flips whether name is shown and returns the new
// visibility.
func (s *CatalogService) ToggleCategoryVisibility(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]bool, len(s.visible)+1)
	for k := range s.visible {
		next[k] = true
	}
	visible := !next[name]
	if visible {
		next[name] = true
	} else {
		delete(next, name)
	}

	if err := s.prefs.SetStrings(ctx, catalog.KeyVisibleCategories, sortedKeys(next)); err != nil {
		return !visible, fmt.Errorf("saving visible categories: %w", err)
	}
	s.visible = next
	s.publishLocked()
	return visible, nil
}

// MoveCategory moves the entries of the saved order at the from offsets to
// sit before offset to, then re-sorts the catalog.
// Returns catalog.ErrInvalidMove for out of range or duplicate offsets.
func (s *CatalogService) MoveCategory(ctx context.Context, from []int, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := catalog.Move(s.order, from, to)
	if err != nil {
		return err
	}
	if err := s.prefs.SetStrings(ctx, catalog.KeyCategoryOrder, order); err != nil {
		return fmt.Errorf("saving category order: %w", err)
	}
	s.order = order
	s.applyOrderLocked()
	return nil
}

// ApplyOrder re-sorts the catalog by the saved category order. Categories
// missing from the order go last.
func (s *CatalogService) ApplyOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyOrderLocked()
}

func (s *CatalogService) applyOrderLocked() {
	s.categories = catalog.SortByOrder(s.categories, s.order)
	s.publishLocked()
}

// ClearPlaylist forgets the saved playlist source and empties the catalog.
// Any load in flight is cancelled.
func (s *CatalogService) ClearPlaylist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prefs.Delete(ctx, catalog.KeyPlaylistURL); err != nil {
		return fmt.Errorf("clearing playlist url: %w", err)
	}

	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.generation++
	s.playlistURL = ""
	s.categories = nil
	s.loading = false
	s.lastErr = nil
	s.loadedAt = time.Time{}
	s.publishLocked()

	s.logger.Info("playlist cleared")
	return nil
}

// removeBlockedLocked drops matching channels, regroups the categories that
// changed and drops the ones left empty.
func (s *CatalogService) removeBlockedLocked(categories []channel.Category, drop func(channel.Channel) bool) []channel.Category {
	out := make([]channel.Category, 0, len(categories))
	for _, c := range categories {
		next, changed := c.Without(drop)
		if next.Len() == 0 {
			continue
		}
		if changed {
			next = s.group(next)
		}
		out = append(out, next)
	}
	return out
}

func (s *CatalogService) group(c channel.Category) channel.Category {
	return c.WithGroupedItems(s.grouper.GroupChannels(c.Channels()))
}

func (s *CatalogService) blockedKeys() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make(map[string]bool, len(s.blocked))
	for k := range s.blocked {
		keys[k] = true
	}
	return keys
}

// publishLocked stores a new Snapshot and hands it to subscribers.
// Must be called with mu held.
func (s *CatalogService) publishLocked() {
	s.version++

	snap := &catalog.Snapshot{
		Categories: append([]channel.Category(nil), s.categories...),
		Visible:    copySet(s.visible),
		Order:      append([]string(nil), s.order...),
		Blocked:    copySet(s.blocked),
		IsLoading:  s.loading,
		Err:        s.lastErr,
		LoadedAt:   s.loadedAt,
		Version:    s.version,
	}
	s.snapshot.Store(snap)

	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}

	metrics.SetCatalogSize(snap.ChannelCount(), len(snap.Categories), snap.GroupCount())
	metrics.SetBlockedStreams(len(snap.Blocked))
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		if v {
			out[k] = true
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func categoryNames(categories []channel.Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name()
	}
	return names
}

func countChannels(categories []channel.Category) int {
	n := 0
	for _, c := range categories {
		n += c.Len()
	}
	return n
}
