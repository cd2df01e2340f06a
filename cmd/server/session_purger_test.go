package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeTokenStore struct {
	calls chan time.Time
	err   error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{calls: make(chan time.Time, 1)}
}

func (f *fakeTokenStore) PurgeExpired(_ context.Context, now time.Time) error {
	select {
	case f.calls <- now:
	default:
	}
	return f.err
}

type manualTicker struct {
	c       chan time.Time
	stopped chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{
		c:       make(chan time.Time, 1),
		stopped: make(chan struct{}),
	}
}

func (m *manualTicker) C() <-chan time.Time {
	return m.c
}

func (m *manualTicker) Stop() {
	select {
	case <-m.stopped:
		return
	default:
		close(m.stopped)
	}
}

func (m *manualTicker) Tick() {
	select {
	case m.c <- time.Now():
	default:
	}
}

func TestStartSessionPurgeWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := newManualTicker()
	store := newFakeTokenStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stop := startSessionPurgeWorkerWithTicker(ctx, logger, store, time.Minute, func(time.Duration) purgeTicker {
		return ticker
	})

	ticker.Tick()
	select {
	case <-store.calls:
	case <-time.After(time.Second):
		t.Fatal("expected purge to be invoked")
	}

	cancel()
	stop()

	select {
	case <-ticker.stopped:
	case <-time.After(time.Second):
		t.Fatal("expected ticker to stop after context cancellation")
	}
}

func TestStartSessionPurgeWorkerSurvivesErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := newManualTicker()
	store := newFakeTokenStore()
	store.err = errors.New("connection reset")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stop := startSessionPurgeWorkerWithTicker(ctx, logger, store, time.Minute, func(time.Duration) purgeTicker {
		return ticker
	})
	defer stop()

	for i := 0; i < 2; i++ {
		ticker.Tick()
		select {
		case <-store.calls:
		case <-time.After(time.Second):
			t.Fatalf("expected purge attempt %d despite errors", i+1)
		}
	}
}

func TestStartSessionPurgeWorkerNoopCases(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stop := startSessionPurgeWorker(context.Background(), logger, nil, time.Minute)
	stop()

	stop = startSessionPurgeWorker(context.Background(), logger, newFakeTokenStore(), 0)
	stop()
	stop()
}
