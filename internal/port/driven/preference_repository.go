package driven

import "context"

// PreferenceRepository defines the interface for persisted user preferences.
// Values are last-write-wins with no versioning.
// This is a driven port that will be implemented by concrete adapters (e.g., BoltDB).
type PreferenceRepository interface {
	// GetString retrieves a scalar preference. Returns catalog.ErrPreferenceNotFound
	// if the key has never been written.
	GetString(ctx context.Context, key string) (string, error)

	// SetString stores a scalar preference.
	SetString(ctx context.Context, key, value string) error

	// GetStrings retrieves a string collection preference. Returns
	// catalog.ErrPreferenceNotFound if the key has never been written.
	GetStrings(ctx context.Context, key string) ([]string, error)

	// SetStrings stores a string collection preference, preserving order.
	SetStrings(ctx context.Context, key string, values []string) error

	// Delete removes a preference. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks if the repository (database) is accessible and operational.
	// Returns nil if healthy, otherwise returns an error describing the issue.
	Ping(ctx context.Context) error
}
