package driver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alorle/iptv-catalog/internal/application"
	"github.com/alorle/iptv-catalog/internal/catalog"
	"github.com/alorle/iptv-catalog/internal/channel"
)

// CatalogHTTPHandler handles HTTP requests for the playlist catalog.
type CatalogHTTPHandler struct {
	service *application.CatalogService
}

// NewCatalogHTTPHandler creates a new HTTP handler for the catalog.
func NewCatalogHTTPHandler(service *application.CatalogService) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{service: service}
}

// catalogResponse represents the published catalog in JSON format.
type catalogResponse struct {
	Version     uint64             `json:"version"`
	Loading     bool               `json:"loading"`
	Error       string             `json:"error,omitempty"`
	LoadedAt    string             `json:"loaded_at,omitempty"`
	PlaylistURL string             `json:"playlist_url,omitempty"`
	Categories  []categoryResponse `json:"categories"`
}

// categoryResponse represents a category summary in JSON format.
type categoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Visible      bool   `json:"visible"`
	ChannelCount int    `json:"channel_count"`
}

// channelResponse represents a channel in JSON format.
type channelResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LogoURL   string `json:"logo_url,omitempty"`
	StreamURL string `json:"stream_url"`
	Group     string `json:"group"`
	IsLive    bool   `json:"is_live"`
}

// itemResponse represents a node of the grouped channel tree.
type itemResponse struct {
	Type     string           `json:"type"`
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Channel  *channelResponse `json:"channel,omitempty"`
	Children []itemResponse   `json:"children,omitempty"`
}

type moveRequest struct {
	From []int `json:"from"`
	To   *int  `json:"to"`
}

type sourceRequest struct {
	URL string `json:"url"`
}

type sourceResponse struct {
	URL string `json:"url"`
}

type blockRequest struct {
	ChannelID string `json:"channel_id"`
}

type blockedResponse struct {
	URLs []string `json:"urls"`
}

type visibilityResponse struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

type orderResponse struct {
	Order []string `json:"order"`
}

type reloadResponse struct {
	Status string `json:"status"`
}

// ServeHTTP routes the request to the appropriate handler based on method and path.
func (h *CatalogHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/catalog")

	switch {
	// GET /catalog
	case path == "" || path == "/":
		if r.Method != http.MethodGet {
			break
		}
		h.handleGet(w, r)
		return

	// POST /catalog/reload
	case path == "/reload":
		if r.Method != http.MethodPost {
			break
		}
		h.handleReload(w, r)
		return

	// GET, PUT, DELETE /catalog/source
	case path == "/source":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, sourceResponse{URL: h.service.PlaylistURL()})
			return
		case http.MethodPut:
			h.handleSetSource(w, r)
			return
		case http.MethodDelete:
			h.handleClearSource(w, r)
			return
		}

	// GET, POST, DELETE /catalog/blocked
	case path == "/blocked":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, blockedResponse{URLs: h.service.BlockedStreamKeys()})
			return
		case http.MethodPost:
			h.handleBlock(w, r)
			return
		case http.MethodDelete:
			h.handleUnblock(w, r)
			return
		}

	// POST /catalog/categories/move
	case path == "/categories/move":
		if r.Method != http.MethodPost {
			break
		}
		h.handleMove(w, r)
		return

	// /catalog/categories/{name}/{action}
	case strings.HasPrefix(path, "/categories/"):
		rest := strings.TrimPrefix(path, "/categories/")
		i := strings.LastIndex(rest, "/")
		if i <= 0 {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		name, action := rest[:i], rest[i+1:]

		switch {
		case action == "items" && r.Method == http.MethodGet:
			h.handleItems(w, r, name)
			return
		case action == "visibility" && r.Method == http.MethodPost:
			h.handleToggleVisibility(w, r, name)
			return
		case action != "items" && action != "visibility":
			writeError(w, http.StatusNotFound, "not found")
			return
		}

	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// handleGet handles GET /catalog
func (h *CatalogHTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	includeHidden := r.URL.Query().Get("hidden") == "true"

	resp := catalogResponse{
		Version:     snap.Version,
		Loading:     snap.IsLoading,
		PlaylistURL: h.service.PlaylistURL(),
		Categories:  make([]categoryResponse, 0, len(snap.Categories)),
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	if !snap.LoadedAt.IsZero() {
		resp.LoadedAt = snap.LoadedAt.UTC().Format(time.RFC3339)
	}

	for _, c := range snap.Categories {
		visible := snap.IsVisible(c.Name())
		if !visible && !includeHidden {
			continue
		}
		resp.Categories = append(resp.Categories, categoryResponse{
			ID:           c.ID(),
			Name:         c.Name(),
			Visible:      visible,
			ChannelCount: c.Len(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleReload handles POST /catalog/reload. With ?wait=true the request
// blocks until the load finishes.
func (h *CatalogHTTPHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") == "true" {
		if err := h.service.LoadPlaylist(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		h.handleGet(w, r)
		return
	}

	if err := h.service.LoadPlaylistAsync(); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, reloadResponse{Status: "loading"})
}

// handleItems handles GET /catalog/categories/{name}/items
func (h *CatalogHTTPHandler) handleItems(w http.ResponseWriter, r *http.Request, name string) {
	c, ok := h.service.Snapshot().Category(name)
	if !ok {
		writeError(w, http.StatusNotFound, catalog.ErrCategoryNotFound.Error())
		return
	}

	items, ok := c.GroupedItems()
	if !ok {
		items = make([]channel.Item, 0, c.Len())
		for _, ch := range c.Channels() {
			items = append(items, channel.NewChannelItem(ch))
		}
	}

	writeJSON(w, http.StatusOK, toItemResponses(items))
}

// handleToggleVisibility handles POST /catalog/categories/{name}/visibility
func (h *CatalogHTTPHandler) handleToggleVisibility(w http.ResponseWriter, r *http.Request, name string) {
	visible, err := h.service.ToggleCategoryVisibility(r.Context(), name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visibilityResponse{Name: name, Visible: visible})
}

// handleMove handles POST /catalog/categories/move
func (h *CatalogHTTPHandler) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.MoveCategory(r.Context(), req.From, *req.To); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: h.service.Snapshot().Order})
}

// handleSetSource handles PUT /catalog/source. The new source is loaded in the background.
func (h *CatalogHTTPHandler) handleSetSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SetPlaylistURL(r.Context(), req.URL); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.service.LoadPlaylistAsync(); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sourceResponse{URL: h.service.PlaylistURL()})
}

// handleClearSource handles DELETE /catalog/source
func (h *CatalogHTTPHandler) handleClearSource(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearPlaylist(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBlock handles POST /catalog/blocked
func (h *CatalogHTTPHandler) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ch, err := h.service.BlockChannelByID(r.Context(), req.ChannelID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChannelResponse(ch))
}

// handleUnblock handles DELETE /catalog/blocked?url=...
func (h *CatalogHTTPHandler) handleUnblock(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("url")
	if key == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	if err := h.service.UnblockChannel(r.Context(), key); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps domain errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, channel.ErrChannelNotFound), errors.Is(err, catalog.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrInvalidMove), errors.Is(err, catalog.ErrInvalidPlaylistURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNoPlaylistSource), errors.Is(err, catalog.ErrLoadSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrFetch), errors.Is(err, catalog.ErrDecode):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// toChannelResponse converts a channel domain object to an API response.
func toChannelResponse(ch channel.Channel) channelResponse {
	resp := channelResponse{
		ID:        ch.ID(),
		Name:      ch.Name(),
		StreamURL: ch.StreamKey(),
		Group:     ch.Group(),
		IsLive:    ch.IsLive(),
	}
	if logo := ch.LogoURL(); logo != nil {
		resp.LogoURL = logo.String()
	}
	return resp
}

func toItemResponses(items []channel.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, it := range items {
		if ch, ok := it.Channel(); ok {
			c := toChannelResponse(ch)
			out[i] = itemResponse{Type: "channel", ID: ch.ID(), Name: ch.Name(), Channel: &c}
			continue
		}
		out[i] = itemResponse{
			Type:     "group",
			ID:       it.ID(),
			Name:     it.Name(),
			Children: toItemResponses(it.Children()),
		}
	}
	return out
}
