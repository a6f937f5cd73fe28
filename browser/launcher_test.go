package browser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mdview/mdview/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLauncher_OpensOnceWhenReachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	var opened atomic.Int32
	l := &browser.Launcher{
		URL:      srv.URL,
		Interval: 2 * time.Millisecond,
		Open: func(url string) error {
			opened.Add(1)
			assert.Equal(t, srv.URL, url)
			return nil
		},
	}

	err := l.WaitAndOpen(context.Background(), make(chan struct{}))

	require.NoError(t, err)
	assert.Equal(t, int32(1), opened.Load())
}

func TestLauncher_WaitsForServerToComeUp(t *testing.T) {
	t.Parallel()

	// Given a server that starts listening only after a delay
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	go func() {
		time.Sleep(20 * time.Millisecond)
		srv.Start()
	}()
	defer srv.Close()

	var opened atomic.Int32
	l := &browser.Launcher{
		URL:      "http://" + srv.Listener.Addr().String(),
		Interval: 2 * time.Millisecond,
		Open: func(string) error {
			opened.Add(1)
			return nil
		},
	}

	err := l.WaitAndOpen(context.Background(), make(chan struct{}))

	require.NoError(t, err)
	assert.Equal(t, int32(1), opened.Load())
}

func TestLauncher_ShutdownBeforeReachable(t *testing.T) {
	t.Parallel()

	// Given a URL nothing listens on
	var opened atomic.Int32
	l := &browser.Launcher{
		URL:      "http://127.0.0.1:1",
		Interval: 2 * time.Millisecond,
		Open: func(string) error {
			opened.Add(1)
			return nil
		},
	}

	shutdown := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- l.WaitAndOpen(context.Background(), shutdown) }()

	close(shutdown)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("launcher did not observe shutdown")
	}
	assert.Equal(t, int32(0), opened.Load(), "browser must not open after shutdown")
}

func TestLauncher_ContextCancellation(t *testing.T) {
	t.Parallel()

	l := &browser.Launcher{
		URL:      "http://127.0.0.1:1",
		Interval: 2 * time.Millisecond,
		Open:     func(string) error { return nil },
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.WaitAndOpen(ctx, make(chan struct{}))

	assert.ErrorIs(t, err, context.Canceled)
}
