// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPService adapts an *http.Server to suture.Service: it serves until the
// context is canceled, then shuts down gracefully within the timeout.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// NewHTTPService wraps an HTTP server for supervision.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration, logger zerolog.Logger) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		logger:          logger.With().Str("component", "http-server").Logger(),
	}
}

// Serve implements suture.Service.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("graceful shutdown failed, closing")
		_ = s.server.Close()
	}
	<-errCh
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *HTTPService) String() string {
	return "http-server"
}
