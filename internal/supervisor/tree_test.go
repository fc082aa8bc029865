// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/movierec/movierec/internal/logging"
)

// startedService signals when the supervisor first runs it.
type startedService struct {
	started chan struct{}
}

func (s *startedService) Serve(ctx context.Context) error {
	select {
	case <-s.started:
	default:
		close(s.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *startedService) String() string { return "started-service" }

func TestTreeRunsServices(t *testing.T) {
	tree := NewTree(logging.Slogger(), DefaultTreeConfig())

	svc := &startedService{started: make(chan struct{})}
	tree.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("service never started")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}

func TestTreeConfigDefaults(t *testing.T) {
	tree := NewTree(logging.Slogger(), TreeConfig{})

	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v", tree.config.FailureThreshold)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v", tree.config.ShutdownTimeout)
	}
}

func TestHTTPServiceStopsOnCancel(t *testing.T) {
	server := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NewServeMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	svc := NewHTTPService(server, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	// Give the listener a moment to come up, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("http service did not stop after cancel")
	}
}

func TestHTTPServiceReportsListenError(t *testing.T) {
	server := &http.Server{
		Addr:              "127.0.0.1:-1",
		Handler:           http.NewServeMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	svc := NewHTTPService(server, time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := svc.Serve(ctx); err == nil {
		t.Fatal("expected listen error")
	}
}
