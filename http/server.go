// Package http provides the preview web server: page rendering, cached
// style assets, and the live-refresh event stream.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/mdview/mdview"
	"github.com/mdview/mdview/assets"
	"github.com/mdview/mdview/browser"
)

// DefaultPollInterval is the wait between change polls in a refresh
// session.
const DefaultPollInterval = 300 * time.Millisecond

// drainTimeout bounds how long shutdown waits for open connections.
const drainTimeout = 5 * time.Second

// Server serves a Reader's documents as rendered HTML. The zero value is
// not usable; populate Addr, Reader, and Renderer before calling Run.
//
// A Server moves between two states: idle and running. Run performs the
// whole idle → running → idle cycle; a second concurrent Run fails with
// ECONFLICT and leaves the running instance untouched.
type Server struct {
	Addr      string
	URLPrefix string // defaults to mdview.DefaultURLPrefix

	Reader   mdview.Reader
	Renderer mdview.Renderer
	Assets   *assets.Manager // nil disables styles

	Title        string // overrides the filename-derived page title
	Quiet        bool   // suppress request and change-detection logging
	Autorefresh  bool
	WideStyle    bool
	PollInterval time.Duration // defaults to DefaultPollInterval

	OpenBrowser bool
	Browser     *browser.Launcher // optional; built from Addr when nil

	Logger *slog.Logger

	// Listener serves in place of Addr when set. Tests use it to bind
	// port 0.
	Listener net.Listener

	// shutdown is the per-run signal shared by every refresh session and
	// the browser helper. Non-nil exactly while the server is running;
	// closed exactly once, at the start of teardown. Guarded by mu only
	// at the run transition; steady-state readers receive the channel
	// once and select on it.
	mu       sync.Mutex
	shutdown chan struct{}
}

// Run starts the server and blocks until the serving loop returns, which
// happens when ctx is canceled or the listener fails. Before returning it
// signals every live refresh session and waits for the browser helper to
// join. Returns ECONFLICT if the server is already running.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown != nil {
		s.mu.Unlock()
		return mdview.Errorf(mdview.ECONFLICT, "server is already running")
	}
	shutdown := make(chan struct{})
	s.shutdown = shutdown
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.shutdown = nil
		s.mu.Unlock()
	}()

	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Handler(),
	}

	var g errgroup.Group
	if s.OpenBrowser {
		launcher := s.Browser
		if launcher == nil {
			launcher = &browser.Launcher{URL: "http://" + s.Addr}
		}
		g.Go(func() error {
			// Errors here (including cancellation) must not take the
			// server down; opening a browser is best effort.
			if err := launcher.WaitAndOpen(ctx, shutdown); err != nil && !errors.Is(err, context.Canceled) {
				s.logger().Warn("browser launch failed", "error", err)
			}
			return nil
		})
	}

	stop := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		select {
		case <-ctx.Done():
			sctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		case <-stop:
		}
	}()

	if !s.Quiet {
		s.logger().Info("serving", "addr", s.addr())
	}

	var err error
	if s.Listener != nil {
		err = srv.Serve(s.Listener)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	if !s.Quiet {
		s.logger().Info("shutting down")
	}

	// Wake every live refresh session, then wait for connections to drain
	// and the browser helper to join before reporting stopped.
	close(shutdown)
	close(stop)
	<-drained
	_ = g.Wait()

	return err
}

// Handler returns the route table. Exposed so exports and tests can drive
// the handlers without a listening server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if !s.Quiet {
		r.Use(middleware.Logger)
	}

	prefix := s.urlPrefix()
	r.Get(prefix+"/refresh/", s.handleRefresh)
	r.Get(prefix+"/refresh/*", s.handleRefresh)
	r.Get(prefix+"/asset/*", s.handleAsset)
	r.Get(prefix+"/rate-limit-preview", s.handleRateLimitPreview)
	r.Get("/", s.handlePage)
	r.Get("/*", s.handlePage)

	return r
}

// shutdownChannel returns the current run's shutdown signal, or nil when
// the server is not running. Sessions must capture the channel once at
// accept time so they never observe a signal from a later run.
func (s *Server) shutdownChannel() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Server) urlPrefix() string {
	if s.URLPrefix != "" {
		return s.URLPrefix
	}
	return mdview.DefaultURLPrefix
}

func (s *Server) pollInterval() time.Duration {
	if s.PollInterval > 0 {
		return s.PollInterval
	}
	return DefaultPollInterval
}

func (s *Server) addr() string {
	if s.Listener != nil {
		return s.Listener.Addr().String()
	}
	return s.Addr
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
