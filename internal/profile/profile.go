// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package profile normalizes raw user preference records into one canonical
// shape and classifies them into confidence tiers.
//
// Preference records arrive from two storage paths with inconsistent shapes:
// either flat or nested under a "questionnaire" key. Normalize collapses both
// into a single Profile so downstream code never reconciles shapes ad hoc.
// An absent profile is represented by a nil *Profile.
package profile

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// ContentType is the user's declared content preference.
type ContentType string

// Declared content type values.
const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeShow   ContentType = "show"
	ContentTypeEither ContentType = "either"
)

// Profile is the canonical, flattened user preference profile.
// It is read-only to the engine.
type Profile struct {
	// Completed indicates the user finished onboarding.
	Completed bool `json:"completed"`

	// ContentType is movie, show, or either.
	ContentType ContentType `json:"content_type"`

	// GenreRatings maps TMDb genre IDs to a 1-10 rating.
	GenreRatings map[int]int `json:"genre_ratings"`

	// Moods are free-form mood tags (exciting, relaxing, ...).
	Moods []string `json:"moods"`

	// Era is a release era preference (eighties, nineties, two_thousands,
	// recent, any).
	Era string `json:"era"`

	// Language is an ISO 639-1 original language preference.
	Language string `json:"language"`

	// Runtime is a runtime preference (short, medium, long, any).
	Runtime string `json:"runtime"`
}

// rawProfile mirrors the wire shapes. Genre rating keys arrive as strings.
type rawProfile struct {
	Completed    *bool          `json:"completed"`
	ContentType  string         `json:"contentType"`
	GenreRatings map[string]int `json:"genreRatings"`
	Moods        []string       `json:"moods"`
	Era          string         `json:"era"`
	Language     string         `json:"language"`
	Runtime      string         `json:"runtime"`
	Question     *rawProfile    `json:"questionnaire"`
}

// Normalize parses a raw preference record, tolerating both the flat and the
// nested ("questionnaire") wire shapes. A nil or empty record yields a nil
// Profile and no error; malformed JSON is an error.
func Normalize(raw []byte) (*Profile, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var rp rawProfile
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, fmt.Errorf("parse preference record: %w", err)
	}

	// The nested shape wraps the same fields one level down.
	if rp.Question != nil {
		rp = *rp.Question
	}

	if isEmpty(&rp) {
		return nil, nil
	}

	p := &Profile{
		ContentType:  normalizeContentType(rp.ContentType),
		GenreRatings: make(map[int]int, len(rp.GenreRatings)),
		Moods:        rp.Moods,
		Era:          rp.Era,
		Language:     rp.Language,
		Runtime:      rp.Runtime,
	}
	if rp.Completed != nil {
		p.Completed = *rp.Completed
	}

	for key, rating := range rp.GenreRatings {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue // skip unparseable genre keys rather than failing the record
		}
		if rating < 1 || rating > 10 {
			continue
		}
		p.GenreRatings[id] = rating
	}

	return p, nil
}

// isEmpty reports whether a raw record carries no usable signal.
func isEmpty(rp *rawProfile) bool {
	return rp.Completed == nil &&
		rp.ContentType == "" &&
		len(rp.GenreRatings) == 0 &&
		len(rp.Moods) == 0 &&
		rp.Era == "" &&
		rp.Language == "" &&
		rp.Runtime == ""
}

// normalizeContentType maps wire values onto the canonical set. Unknown
// values fall back to either.
func normalizeContentType(s string) ContentType {
	switch s {
	case "movie", "movies":
		return ContentTypeMovie
	case "show", "shows", "tv":
		return ContentTypeShow
	case "":
		return ""
	default:
		return ContentTypeEither
	}
}
