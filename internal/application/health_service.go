package application

import (
	"context"

	"github.com/alorle/iptv-catalog/internal/catalog"
	"github.com/alorle/iptv-catalog/internal/port/driven"
)

// SnapshotProvider exposes the published catalog state.
type SnapshotProvider interface {
	Snapshot() *catalog.Snapshot
}

// HealthService orchestrates health checks for the application and its dependencies.
type HealthService struct {
	db      driven.PreferenceRepository
	catalog SnapshotProvider
}

// NewHealthService creates a new health check service.
func NewHealthService(db driven.PreferenceRepository, catalog SnapshotProvider) *HealthService {
	return &HealthService{
		db:      db,
		catalog: catalog,
	}
}

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Status string // "ok" or "error"
	Error  string // empty if status is "ok", otherwise contains error message
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status  string          // "ok" if all components are healthy, "degraded" otherwise
	DB      ComponentHealth // preference store health
	Catalog ComponentHealth // outcome of the last playlist load
}

// Check performs health checks on all dependencies.
// Returns the overall health status and individual component statuses.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status: "ok",
	}

	if err := s.db.Ping(ctx); err != nil {
		status.DB = ComponentHealth{
			Status: "error",
			Error:  err.Error(),
		}
		status.Status = "degraded"
	} else {
		status.DB = ComponentHealth{
			Status: "ok",
		}
	}

	// A failed load keeps serving the previous catalog, so it degrades rather than fails.
	if snap := s.catalog.Snapshot(); snap != nil && snap.Err != nil {
		status.Catalog = ComponentHealth{
			Status: "error",
			Error:  snap.Err.Error(),
		}
		status.Status = "degraded"
	} else {
		status.Catalog = ComponentHealth{
			Status: "ok",
		}
	}

	return status
}
