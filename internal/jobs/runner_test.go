package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"whisperline/internal/calls"
	"whisperline/internal/users"
)

type staticDirectory struct{}

func (staticDirectory) Get(ctx context.Context, id string) (users.User, error) {
	return users.User{ID: id, IsWhisper: true, IsAvailable: true, Coins: 10}, nil
}

func TestRunner_RunsFirstPassAndStops(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.SeedAccount("caller-1", 5)
	repo.SeedAccount("whisper-1", 0)

	svc := calls.NewService(repo, staticDirectory{}, nil)
	if _, err := svc.Request(context.Background(), "caller-1", "whisper-1"); err != nil {
		t.Fatalf("request: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRunner(svc, nil, calls.DefaultRetention, log)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	// The first expire pass runs on startup; the call is still within its
	// ringing window, so it must survive.
	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
