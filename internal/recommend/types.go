// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"time"

	"github.com/movierec/movierec/internal/profile"
)

// ContentType aliases the profile content type for catalog items and
// filters. An empty filter means no explicit restriction.
type ContentType = profile.ContentType

// Content type values re-exported for call-site readability.
const (
	ContentTypeMovie  = profile.ContentTypeMovie
	ContentTypeShow   = profile.ContentTypeShow
	ContentTypeEither = profile.ContentTypeEither
)

// CatalogItem is one movie or show as produced by the catalog collaborators.
// Items are immutable within one aggregation pass.
type CatalogItem struct {
	// ID is unique per content type.
	ID int `json:"id"`

	// Type is movie or show.
	Type ContentType `json:"type"`

	Title    string `json:"title"`
	Overview string `json:"overview"`

	PosterPath   string `json:"poster_path,omitempty"`
	BackdropPath string `json:"backdrop_path,omitempty"`

	// VoteAverage is the average rating, 0-10.
	VoteAverage float64 `json:"vote_average"`

	// Popularity is an unbounded positive float with a long tail.
	Popularity float64 `json:"popularity"`

	// ReleaseDate is YYYY-MM-DD; may be empty for unreleased items.
	ReleaseDate string `json:"release_date,omitempty"`

	GenreIDs []int `json:"genre_ids,omitempty"`
}

// Displayable reports whether an item has the artwork and overview needed
// for presentation. Items failing this are filtered before scoring.
func (c *CatalogItem) Displayable() bool {
	return c.PosterPath != "" && c.Overview != ""
}

// Source identifies which tier produced a batch or item.
type Source string

// Tier sources in priority order.
const (
	SourceCache           Source = "cache"
	SourcePreferenceMatch Source = "preference-match"
	SourceFavoritesMatch  Source = "favorites-match"
	SourceSupplementary   Source = "supplementary"
	SourceGeneric         Source = "generic"
	SourceNone            Source = "none"
)

// reasonForSource is the fixed source-to-reason table. Reasons are
// user-facing and selected by the first tier that contributed results.
var reasonForSource = map[Source]string{
	SourceCache:           "Fresh picks matched to your profile",
	SourcePreferenceMatch: "Matched to your taste profile",
	SourceFavoritesMatch:  "Because of titles you favorited",
	SourceSupplementary:   "Top-rated titles you haven't seen",
	SourceGeneric:         "Popular with viewers right now",
	SourceNone:            "No recommendations found",
}

// Reason returns the user-facing reason string for a source.
func (s Source) Reason() string {
	if r, ok := reasonForSource[s]; ok {
		return r
	}
	return reasonForSource[SourceNone]
}

// ScoredItem is a catalog item with its relevance score and explanation.
type ScoredItem struct {
	CatalogItem

	// Score is the 0-100 integer relevance score.
	Score int `json:"score"`

	// Reason explains why this item was recommended.
	Reason string `json:"reason"`

	// Source tags the tier that produced the item.
	Source Source `json:"source"`
}

// Batch is one ordered set of scored recommendations, cached and paged via
// the rotation window.
type Batch struct {
	Items []ScoredItem `json:"items"`

	// Source is the first tier that contributed a successful result.
	Source Source `json:"source"`

	// Reason is the user-facing explanation for the batch.
	Reason string `json:"reason"`

	CreatedAt time.Time `json:"created_at"`
}

// Empty reports whether the batch carries no items (the terminal
// exhaustion state, which is not an error).
func (b *Batch) Empty() bool {
	return b == nil || len(b.Items) == 0
}

// IDs returns the item identifiers in batch order.
func (b *Batch) IDs() []int {
	if b == nil {
		return nil
	}
	ids := make([]int, len(b.Items))
	for i := range b.Items {
		ids[i] = b.Items[i].ID
	}
	return ids
}

// MediaRef is a favorites or watchlist entry: a media id plus its type.
type MediaRef struct {
	ID   int         `json:"id"`
	Type ContentType `json:"type"`
}

// RefIDs extracts the ids from a list of media refs.
func RefIDs(refs []MediaRef) []int {
	ids := make([]int, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}
