package driven

import "context"

// PlaylistSource defines the interface for fetching raw playlist bodies.
// This is a driven port that will be implemented by concrete adapters (e.g., HTTP client).
type PlaylistSource interface {
	// Fetch retrieves the playlist at url. Transport failures and non-success
	// responses are returned as *catalog.FetchError.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
