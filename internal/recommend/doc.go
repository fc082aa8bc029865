// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package recommend implements the personalized-recommendation aggregation
// engine: tiered fetching across unreliable data sources, deterministic
// heuristic scoring, exclusion tracking, batch rotation, and the per-user
// retry/timeout supervisor.
//
// The engine composes four prioritized tiers (server-side cache, preference
// discovery, top-rated supplementary, generic trending) until a minimum item
// count is reached. Tier failures are absorbed, never propagated; only total
// exhaustion yields an empty (non-error) result.
//
// The package defines the provider interfaces it consumes (CacheProvider,
// CatalogProvider, UserDataProvider, BatchStore) and has no dependency on
// their implementations, so it can be tested with in-memory fakes.
package recommend
