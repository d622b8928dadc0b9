package daemon_test

import (
	"context"
	"testing"
	"time"

	"reprint/internal/daemon"
	"reprint/internal/testsupport"
)

type fakeListener struct {
	started chan struct{}
	closed  bool
}

func (f *fakeListener) Listen(ctx context.Context) error {
	close(f.started)
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeListener) Close() {
	f.closed = true
}

func TestDaemonLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	listener := &fakeListener{started: make(chan struct{})}
	d, err := daemon.New(cfg, st, listener, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-listener.started:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never started")
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon must fail")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped")
	}
	if !listener.closed {
		t.Fatal("listener was not closed on stop")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	first := &fakeListener{started: make(chan struct{})}
	d1, err := daemon.New(cfg, st, first, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d1.Start(context.Background()); err != nil {
		t.Fatalf("Start first daemon: %v", err)
	}
	defer d1.Stop()

	second := &fakeListener{started: make(chan struct{})}
	d2, err := daemon.New(cfg, st, second, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d2.Start(context.Background()); err == nil {
		d2.Stop()
		t.Fatal("second daemon must not acquire the lock")
	}
}

func TestDaemonRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
