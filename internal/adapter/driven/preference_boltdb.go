package driven

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/alorle/iptv-catalog/internal/catalog"
)

const (
	preferencesBucket = "preferences"
)

// PreferenceBoltDBRepository implements the PreferenceRepository port using BoltDB.
type PreferenceBoltDBRepository struct {
	db *bbolt.DB
}

// NewPreferenceBoltDBRepository creates a new BoltDB-backed preference repository.
// It initializes the required bucket if it doesn't exist.
func NewPreferenceBoltDBRepository(db *bbolt.DB) (*PreferenceBoltDBRepository, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(preferencesBucket))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &PreferenceBoltDBRepository{db: db}, nil
}

// preferenceDTO is used for JSON serialization.
type preferenceDTO struct {
	Value     json.RawMessage `json:"value"`
	UpdatedAt string          `json:"updated_at"`
}

// GetString retrieves a scalar preference from BoltDB.
func (r *PreferenceBoltDBRepository) GetString(ctx context.Context, key string) (string, error) {
	var value string
	if err := r.get(ctx, key, &value); err != nil {
		return "", err
	}
	return value, nil
}

// SetString stores a scalar preference in BoltDB.
func (r *PreferenceBoltDBRepository) SetString(ctx context.Context, key, value string) error {
	return r.put(ctx, key, value)
}

// GetStrings retrieves a string collection preference from BoltDB.
func (r *PreferenceBoltDBRepository) GetStrings(ctx context.Context, key string) ([]string, error) {
	var values []string
	if err := r.get(ctx, key, &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// SetStrings stores a string collection preference in BoltDB.
func (r *PreferenceBoltDBRepository) SetStrings(ctx context.Context, key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	return r.put(ctx, key, values)
}

// Delete removes a preference from BoltDB.
func (r *PreferenceBoltDBRepository) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(preferencesBucket))
		if bucket == nil {
			return errors.New("preferences bucket not found")
		}
		return bucket.Delete([]byte(key))
	})
}

// Ping checks if the BoltDB database is accessible and operational.
func (r *PreferenceBoltDBRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(preferencesBucket)) == nil {
			return errors.New("preferences bucket not found")
		}
		return nil
	})
}

func (r *PreferenceBoltDBRepository) get(ctx context.Context, key string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(preferencesBucket))
		if bucket == nil {
			return errors.New("preferences bucket not found")
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return catalog.ErrPreferenceNotFound
		}

		var dto preferenceDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			return fmt.Errorf("decoding preference %q: %w", key, err)
		}
		if err := json.Unmarshal(dto.Value, dst); err != nil {
			return fmt.Errorf("decoding preference %q: %w", key, err)
		}
		return nil
	})
}

func (r *PreferenceBoltDBRepository) put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	data, err := json.Marshal(preferenceDTO{
		Value:     raw,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(preferencesBucket))
		if bucket == nil {
			return errors.New("preferences bucket not found")
		}
		return bucket.Put([]byte(key), data)
	})
}
