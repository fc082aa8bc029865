// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors. Struct tag rules are applied
// first, then cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Engine.WindowSize > c.Engine.BatchSize {
		return fmt.Errorf("engine.window_size (%d) must not exceed engine.batch_size (%d)",
			c.Engine.WindowSize, c.Engine.BatchSize)
	}

	if c.Engine.MinResults > c.Engine.BatchSize {
		return fmt.Errorf("engine.min_results (%d) must not exceed engine.batch_size (%d)",
			c.Engine.MinResults, c.Engine.BatchSize)
	}

	if c.RecCache.Enabled && c.RecCache.URL == "" {
		return fmt.Errorf("reccache.url is required when reccache.enabled is true")
	}

	return nil
}
