// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package profile

// Tier buckets preference-data sufficiency.
type Tier string

// Confidence tiers, weakest to strongest.
const (
	TierNone      Tier = "none"
	TierMinimal   Tier = "minimal"
	TierGood      Tier = "good"
	TierExcellent Tier = "excellent"
)

// minGenreRatings is the essential-field threshold for genre signal.
const minGenreRatings = 3

// behavioralThreshold is the favorites+watchlist count above which
// aggregation may proceed without declared preferences.
const behavioralThreshold = 5

// Verdict is the structured classification of a preference record.
type Verdict struct {
	// Sufficient reports whether declared preferences alone support
	// aggregation.
	Sufficient bool `json:"sufficient"`

	// Tier is the qualitative sufficiency bucket.
	Tier Tier `json:"tier"`

	// Confidence is 0-100.
	Confidence int `json:"confidence"`

	// BehavioralFallback reports that declared preferences are missing
	// but favorites/watchlist volume permits aggregation from behavioral
	// data. This is an explicit fallback path, never a silent skip.
	BehavioralFallback bool `json:"behavioral_fallback"`

	// Message is user-facing guidance for this verdict.
	Message string `json:"message"`
}

// Guidance messages by verdict.
const (
	msgOnboarding = "Complete your taste profile to get personalized recommendations."
	msgBehavioral = "Recommending from your favorites and watchlist. Complete your taste profile for better matches."
	msgMinimal    = "Recommendations based on your top genres. Add moods and era preferences to sharpen them."
	msgGood       = "Recommendations tuned to your taste profile."
	msgExcellent  = "Recommendations tuned to your complete taste profile."
)

// Classify assigns a confidence tier to a normalized profile given the
// user's favorites and watchlist counts. It is pure: no I/O, no mutation.
//
// Rules:
//   - Absent profile, or missing essential fields -> none / confidence 0.
//     With favorites+watchlist >= 5 the verdict flags the behavioral
//     fallback so the caller can aggregate from behavioral data.
//   - Essentials only (completed, content type, >= 3 genre ratings) ->
//     minimal / 60.
//   - Essentials plus at most 2 missing optional fields -> good / 80.
//   - Essentials plus every optional field -> excellent / 95.
func Classify(p *Profile, favorites, watchlist int) Verdict {
	behavioral := favorites+watchlist >= behavioralThreshold

	if p == nil || !hasEssentials(p) {
		v := Verdict{
			Sufficient:         false,
			Tier:               TierNone,
			Confidence:         0,
			BehavioralFallback: behavioral,
			Message:            msgOnboarding,
		}
		if behavioral {
			v.Message = msgBehavioral
		}
		return v
	}

	switch missing := missingOptionals(p); {
	case missing == 0:
		return Verdict{Sufficient: true, Tier: TierExcellent, Confidence: 95, Message: msgExcellent}
	case missing <= 2:
		return Verdict{Sufficient: true, Tier: TierGood, Confidence: 80, Message: msgGood}
	default:
		return Verdict{Sufficient: true, Tier: TierMinimal, Confidence: 60, Message: msgMinimal}
	}
}

// hasEssentials reports whether the essential fields are present:
// completion flag, content type, and at least 3 genre ratings.
func hasEssentials(p *Profile) bool {
	return p.Completed && p.ContentType != "" && len(p.GenreRatings) >= minGenreRatings
}

// missingOptionals counts absent optional fields: moods, era, language,
// runtime.
func missingOptionals(p *Profile) int {
	missing := 0
	if len(p.Moods) == 0 {
		missing++
	}
	if p.Era == "" || p.Era == "any" {
		missing++
	}
	if p.Language == "" {
		missing++
	}
	if p.Runtime == "" || p.Runtime == "any" {
		missing++
	}
	return missing
}
