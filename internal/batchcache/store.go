// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package batchcache persists recommendation batches and preference records
// in an embedded BadgerDB store. Batches expire after a TTL; preference
// records do not, since they back the offline profile fallback.
package batchcache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/movierec/movierec/internal/metrics"
	"github.com/movierec/movierec/internal/recommend"
)

// Key prefixes for BadgerDB storage.
const (
	batchKeyPrefix   = "batch:"
	profileKeyPrefix = "profile:"
)

// Options configures the store.
type Options struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string

	// InMemory runs Badger without persistence. Used in tests.
	InMemory bool

	// TTL is the batch freshness window.
	TTL time.Duration
}

// Store is the local expiring batch cache. It implements
// recommend.BatchStore and recommend.ProfileCache.
//
// Corrupt or expired entries are repaired by deletion and reported as
// misses, never as errors: a cache that can fail a fetch is worse than no
// cache.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger zerolog.Logger

	// now is injectable for expiry tests.
	now func() time.Time
}

// Open opens or creates the store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(opts Options, logger zerolog.Logger) (*Store, error) {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}

	path := opts.Path
	if opts.InMemory {
		// Badger rejects a directory path in in-memory mode.
		path = ""
	}

	badgerOpts := badger.DefaultOptions(path).
		WithInMemory(opts.InMemory).
		WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open batch cache: %w", err)
	}

	return &Store{
		db:     db,
		ttl:    opts.TTL,
		logger: logger.With().Str("component", "batchcache").Logger(),
		now:    time.Now,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func batchKey(userID string, filter recommend.ContentType) []byte {
	return []byte(batchKeyPrefix + userID + ":" + string(filter))
}

func profileKey(userID string) []byte {
	return []byte(profileKeyPrefix + userID)
}

// Get returns the cached batch for a user and filter, or (nil, nil) on a
// miss. Expired and corrupt entries are deleted and reported as misses.
func (s *Store) Get(userID string, filter recommend.ContentType) (*recommend.Batch, error) {
	key := batchKey(userID, filter)

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.BatchCacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached batch: %w", err)
	}

	var batch recommend.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		metrics.BatchCacheCorruptions.Inc()
		metrics.BatchCacheMisses.Inc()
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("corrupt cache entry, deleting")
		s.deleteKey(key)
		return nil, nil
	}

	// Badger enforces the TTL too, but its granularity is coarse; the
	// authoritative freshness check is against CreatedAt.
	if s.now().Sub(batch.CreatedAt) > s.ttl {
		metrics.BatchCacheMisses.Inc()
		s.deleteKey(key)
		return nil, nil
	}

	metrics.BatchCacheHits.Inc()
	return &batch, nil
}

// Put stores a batch under the user and filter key with the store TTL.
func (s *Store) Put(userID string, filter recommend.ContentType, b *recommend.Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(batchKey(userID, filter), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
}

// Delete removes the cached batch for a user and filter.
func (s *Store) Delete(userID string, filter recommend.ContentType) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(batchKey(userID, filter))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Profile returns the locally cached raw preference record, or (nil, nil)
// when absent.
func (s *Store) Profile(userID string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(userID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached profile: %w", err)
	}
	return data, nil
}

// PutProfile stores a raw preference record without a TTL; it is the
// fallback when the user data store is unreachable.
func (s *Store) PutProfile(userID string, raw []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(userID), raw)
	})
}

// RunValueLogGC runs one value log garbage collection pass. Returns
// badger.ErrNoRewrite when there was nothing to collect.
func (s *Store) RunValueLogGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// deleteKey removes a key best-effort; used for corrupt entry repair.
func (s *Store) deleteKey(key []byte) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		s.logger.Warn().Err(err).Msg("failed to delete cache entry")
	}
}
