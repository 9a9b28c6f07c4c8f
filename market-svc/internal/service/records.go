package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"homecook-market/market-svc/internal/storage"

	log "github.com/sirupsen/logrus"
)

const maxCASAttempts = 5

func loadRecord(ctx context.Context, store KVStore, key string, dest interface{}) error {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func saveRecord(ctx context.Context, store KVStore, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, payload); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// scanRecords decodes every record under prefix, skipping ones that do not
// decode.
func scanRecords[T any](ctx context.Context, store KVStore, prefix string) ([]T, error) {
	values, err := store.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}

	records := make([]T, 0, len(values))
	for _, raw := range values {
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			log.WithField("prefix", prefix).Warnf("skipping undecodable record: %v", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// mutateRecord applies mutate to the record under key with compare-and-swap,
// re-reading and re-applying when another writer got there first.
func mutateRecord[T any](ctx context.Context, store KVStore, key string, mutate func(*T) error) (*T, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		raw, err := store.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}

		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if err := mutate(&record); err != nil {
			return nil, err
		}

		updated, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}

		swapped, err := store.CompareAndSwap(ctx, key, raw, updated)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("swap %s: %w", key, err)
		}
		if swapped {
			return &record, nil
		}
	}
	return nil, fmt.Errorf("%w: too many concurrent updates to %s", ErrConflict, key)
}
