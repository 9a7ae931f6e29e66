package memory

import (
	"context"
	"sync"

	"github.com/alorle/iptv-catalog/internal/catalog"
)

// PreferenceRepository keeps preferences in process memory. It is used when
// no database path is configured and in tests.
type PreferenceRepository struct {
	mu      sync.RWMutex
	strings map[string]string
	lists   map[string][]string
}

func NewPreferenceRepository() *PreferenceRepository {
	return &PreferenceRepository{
		strings: make(map[string]string),
		lists:   make(map[string][]string),
	}
}

func (r *PreferenceRepository) GetString(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.strings[key]
	if !ok {
		return "", catalog.ErrPreferenceNotFound
	}
	return v, nil
}

func (r *PreferenceRepository) SetString(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lists, key)
	r.strings[key] = value
	return nil
}

func (r *PreferenceRepository) GetStrings(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.lists[key]
	if !ok {
		return nil, catalog.ErrPreferenceNotFound
	}
	return append([]string{}, v...), nil
}

func (r *PreferenceRepository) SetStrings(ctx context.Context, key string, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.strings, key)
	r.lists[key] = append([]string{}, values...)
	return nil
}

func (r *PreferenceRepository) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.strings, key)
	delete(r.lists, key)
	return nil
}

func (r *PreferenceRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
