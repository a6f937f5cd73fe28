package http

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mdview/mdview"
	"github.com/mdview/mdview/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testReader returns a reader whose marker and content are driven by the
// given atomics.
func testReader(marker *atomic.Value, content *atomic.Value) *mock.Reader {
	return &mock.Reader{
		LastUpdatedFn: func(string) (mdview.VersionMarker, error) {
			return marker.Load().(mdview.VersionMarker), nil
		},
		ReadFn: func(string) ([]byte, error) {
			return []byte(content.Load().(string)), nil
		},
	}
}

func testRenderer() *mock.Renderer {
	return &mock.Renderer{
		RenderFn: func(_ context.Context, text string) (string, error) {
			return "<html>" + text + "</html>", nil
		},
	}
}

func newRunningServer(t *testing.T) (*Server, func()) {
	t.Helper()

	var marker, content atomic.Value
	marker.Store(mdview.VersionMarker("t0"))
	content.Store("v0")

	s := &Server{
		Reader:       testReader(&marker, &content),
		Renderer:     testRenderer(),
		Autorefresh:  true,
		Quiet:        true,
		PollInterval: 2 * time.Millisecond,
	}
	shutdown := make(chan struct{})
	s.shutdown = shutdown
	return s, func() { close(shutdown) }
}

// Story: Server Lifecycle
// Run is an exclusive idle → running → idle cycle.

func TestServer_Run_AlreadyRunning(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &Server{
		Reader:      &mock.Reader{},
		Renderer:    testRenderer(),
		Autorefresh: true,
		Quiet:       true,
		Listener:    ln,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	baseURL := "http://" + ln.Addr().String()
	waitReachable(t, baseURL)

	// A second concurrent run fails fast
	err = s.Run(context.Background())
	assert.Equal(t, mdview.ECONFLICT, mdview.ErrorCode(err))

	// And the running instance is untouched
	resp, err := http.Get(baseURL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_Run_RestartAfterStop(t *testing.T) {
	t.Parallel()

	run := func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		s := &Server{
			Reader:   &mock.Reader{},
			Renderer: testRenderer(),
			Quiet:    true,
			Listener: ln,
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()
		waitReachable(t, "http://"+ln.Addr().String())
		cancel()
		require.NoError(t, <-done)

		// The run left the server idle again
		assert.Nil(t, s.shutdownChannel())
	}

	run()
}

func TestServer_Run_ShutdownEndsOpenSessions(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var marker, content atomic.Value
	marker.Store(mdview.VersionMarker("t0"))
	content.Store("v0")

	s := &Server{
		Reader:       testReader(&marker, &content),
		Renderer:     testRenderer(),
		Autorefresh:  true,
		Quiet:        true,
		PollInterval: 5 * time.Millisecond,
		Listener:     ln,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	waitReachable(t, "http://"+ln.Addr().String())

	// Given an open refresh stream
	resp, err := http.Get("http://" + ln.Addr().String() + mdview.DefaultURLPrefix + "/refresh/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// When the server shuts down
	cancel()

	// Then the stream ends promptly with no events
	streamDone := make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(resp.Body)
		streamDone <- b
	}()
	select {
	case b := <-streamDone:
		assert.Empty(t, b, "idle stream must close without events")
	case <-time.After(5 * time.Second):
		t.Fatal("open session did not observe shutdown")
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

// Story: Refresh Endpoint
// The SSE endpoint guards its preconditions before streaming.

func TestHandleRefresh_DisabledReturnsNotFound(t *testing.T) {
	t.Parallel()

	s := &Server{
		Reader:      &mock.Reader{},
		Renderer:    testRenderer(),
		Autorefresh: false,
		Quiet:       true,
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, mdview.DefaultURLPrefix+"/refresh/", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRefresh_NotRunningReturnsEmptyBody(t *testing.T) {
	t.Parallel()

	s := &Server{
		Reader:      &mock.Reader{},
		Renderer:    testRenderer(),
		Autorefresh: true,
		Quiet:       true,
	}
	// No Run in progress: shutdown channel is nil

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, mdview.DefaultURLPrefix+"/refresh/README.md", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleRefresh_DrainingServerAcceptsNoWatchers(t *testing.T) {
	t.Parallel()

	s, stop := newRunningServer(t)
	stop() // already draining

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, mdview.DefaultURLPrefix+"/refresh/", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleRefresh_StreamsEventPairs(t *testing.T) {
	t.Parallel()

	var marker, content atomic.Value
	marker.Store(mdview.VersionMarker("t0"))
	content.Store("v0")

	s := &Server{
		Reader:       testReader(&marker, &content),
		Renderer:     testRenderer(),
		Autorefresh:  true,
		Quiet:        true,
		PollInterval: 2 * time.Millisecond,
	}
	shutdown := make(chan struct{})
	s.shutdown = shutdown
	defer close(shutdown)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + mdview.DefaultURLPrefix + "/refresh/README.md")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	time.Sleep(10 * time.Millisecond) // session records its baseline
	content.Store("v1")
	marker.Store(mdview.VersionMarker("t1"))

	reader := bufio.NewReader(resp.Body)
	lines := make(chan string, 16)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				lines <- line
			}
			if err != nil {
				close(lines)
				return
			}
		}
	}()

	first := nextLine(t, lines)
	assert.Equal(t, `data: {"updating": true}`, strings.TrimRight(first, "\r\n"))

	second := nextDataLine(t, lines)
	assert.Equal(t, `data: {"content":"<html>v1</html>"}`, strings.TrimRight(second, "\r\n"))
}

func nextLine(t *testing.T, lines <-chan string) string {
	t.Helper()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before expected line")
			}
			if strings.TrimSpace(line) == "" {
				continue // frame separator
			}
			return line
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for stream line")
		}
	}
}

func nextDataLine(t *testing.T, lines <-chan string) string {
	t.Helper()
	for {
		line := nextLine(t, lines)
		if strings.HasPrefix(line, "data: ") {
			return line
		}
	}
}

func waitReachable(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server never became reachable")
}
