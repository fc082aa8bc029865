// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"context"

	"github.com/movierec/movierec/internal/profile"
)

// Note: the provider interfaces live in this package so the engine has no
// dependency on client or storage implementations; those packages implement
// these interfaces without creating import cycles.

// CacheQuery parameterizes a server-side recommendation cache lookup.
type CacheQuery struct {
	ContentType  ContentType
	Limit        int
	ExcludeIDs   []int
	Profile      *profile.Profile
	FavoriteIDs  []int
	WatchlistIDs []int
}

// CacheProvider is the server-side recommendation cache collaborator.
type CacheProvider interface {
	// Recommendations returns pre-computed recommendations honoring the
	// exclusion list. May return fewer items than requested.
	Recommendations(ctx context.Context, q CacheQuery) ([]CatalogItem, error)
}

// DiscoverQuery parameterizes one page of a catalog discovery request.
type DiscoverQuery struct {
	ContentType ContentType

	// GenreIDs restricts results to these genres.
	GenreIDs []int

	// ReleaseAfter/ReleaseBefore bound the release date (YYYY-MM-DD);
	// empty means unbounded.
	ReleaseAfter  string
	ReleaseBefore string

	// Language is an ISO 639-1 original-language filter; empty means any.
	Language string

	// RuntimeMin/RuntimeMax bound the runtime in minutes; zero means
	// unbounded.
	RuntimeMin int
	RuntimeMax int

	// Page is the 1-based result page.
	Page int
}

// CatalogProvider is the catalog discovery/search collaborator.
type CatalogProvider interface {
	// Discover returns one page of items matching the query, sorted by
	// descending popularity.
	Discover(ctx context.Context, q DiscoverQuery) ([]CatalogItem, error)

	// TopRated returns one page of top-rated items of the given type.
	TopRated(ctx context.Context, ct ContentType, page int) ([]CatalogItem, error)

	// Trending returns one page of trending/popular items.
	Trending(ctx context.Context, ct ContentType, page int) ([]CatalogItem, error)

	// Details fetches full metadata for a single item.
	Details(ctx context.Context, ct ContentType, id int) (*CatalogItem, error)
}

// UserDataProvider is the external user data store: favorites, watchlist,
// and the raw (un-normalized) preference record.
type UserDataProvider interface {
	Favorites(ctx context.Context, userID string) ([]MediaRef, error)
	Watchlist(ctx context.Context, userID string) ([]MediaRef, error)

	// Preferences returns the raw preference record for the Validator to
	// normalize. A missing record is (nil, nil).
	Preferences(ctx context.Context, userID string) ([]byte, error)
}

// BatchStore is the local expiring batch cache, keyed by user and
// content-type filter.
type BatchStore interface {
	// Get returns the cached batch or (nil, nil) on a miss. Expired and
	// corrupt entries are removed and reported as misses, never errors.
	Get(userID string, filter ContentType) (*Batch, error)

	Put(userID string, filter ContentType, b *Batch) error

	Delete(userID string, filter ContentType) error
}

// ProfileCache is the local fallback store for preference records, used
// when the user data store is unreachable.
type ProfileCache interface {
	Profile(userID string) ([]byte, error)
	PutProfile(userID string, raw []byte) error
}
