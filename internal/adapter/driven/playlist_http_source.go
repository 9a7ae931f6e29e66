package driven

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alorle/iptv-catalog/circuitbreaker"
	"github.com/alorle/iptv-catalog/internal/catalog"
	"github.com/alorle/iptv-catalog/internal/port/driven"
)

const (
	// HTTP client timeout for fetching playlists
	defaultFetchTimeout = 30 * time.Second

	// Many IPTV panels reject requests without a player User-Agent
	DefaultUserAgent = "IPTV Smarters Pro"

	// Upper bound on the playlist body size
	maxPlaylistBytes = 256 << 20
)

// PlaylistHTTPSource implements the PlaylistSource port by downloading playlists
// over HTTP. Calls go through a circuit breaker so an unreachable provider
// fails fast instead of stalling every reload.
type PlaylistHTTPSource struct {
	httpClient *http.Client
	userAgent  string
	breaker    circuitbreaker.CircuitBreaker
}

// NewPlaylistHTTPSource creates a new HTTP-based playlist source adapter.
// A zero timeout uses the default, an empty userAgent uses DefaultUserAgent
// and a nil breaker disables circuit breaking.
func NewPlaylistHTTPSource(timeout time.Duration, userAgent string, breaker circuitbreaker.CircuitBreaker) *PlaylistHTTPSource {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &PlaylistHTTPSource{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		breaker:    breaker,
	}
}

// Fetch downloads the playlist body from rawURL.
func (s *PlaylistHTTPSource) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if s.breaker == nil {
		body, err := s.fetch(ctx, rawURL)
		if err != nil {
			return nil, &catalog.FetchError{URL: rawURL, Err: err}
		}
		return body, nil
	}

	var body []byte
	var fetchErr error
	err := s.breaker.Execute(func() error {
		body, fetchErr = s.fetch(ctx, rawURL)
		if fetchErr != nil && ctx.Err() != nil {
			// Cancellation is not an upstream failure.
			return nil
		}
		return fetchErr
	})
	if err == nil {
		err = fetchErr
	}
	if err != nil {
		return nil, &catalog.FetchError{URL: rawURL, Err: err}
	}
	return body, nil
}

func (s *PlaylistHTTPSource) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxPlaylistBytes {
		return nil, errPlaylistTooLarge
	}

	return body, nil
}

var errPlaylistTooLarge = errors.New("playlist exceeds size limit")

// Ensure PlaylistHTTPSource implements the driven.PlaylistSource interface
var _ driven.PlaylistSource = (*PlaylistHTTPSource)(nil)
