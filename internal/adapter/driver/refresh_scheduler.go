package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/alorle/iptv-catalog/internal/catalog"
)

// Reloader starts a background playlist load.
type Reloader interface {
	LoadPlaylistAsync() error
}

// RefreshScheduler reloads the playlist on a cron schedule.
type RefreshScheduler struct {
	cron     *cron.Cron
	reloader Reloader
	logger   *slog.Logger
}

// NewRefreshScheduler creates a scheduler for the given cron expression
// (standard five fields or descriptors such as "@every 6h").
func NewRefreshScheduler(spec string, reloader Reloader, logger *slog.Logger) (*RefreshScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &RefreshScheduler{
		cron:     cron.New(),
		reloader: reloader,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *RefreshScheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling new reloads. The returned context is done once a
// running trigger has returned.
func (s *RefreshScheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *RefreshScheduler) trigger() {
	err := s.reloader.LoadPlaylistAsync()
	switch {
	case err == nil:
		s.logger.Info("scheduled playlist reload started")
	case errors.Is(err, catalog.ErrNoPlaylistSource):
		s.logger.Debug("scheduled playlist reload skipped, no playlist source")
	default:
		s.logger.Warn("scheduled playlist reload failed to start", "error", err)
	}
}
