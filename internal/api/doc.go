// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package api provides the HTTP surface of the recommendation engine using
// the Chi router: per-user recommendation endpoints backed by session
// supervisors, a catalog title search passthrough, and the health and
// metrics endpoints.
package api
