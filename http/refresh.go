package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mdview/mdview"
)

// Watcher runs a single refresh session: it polls a document's version
// marker at a fixed interval and emits an (updating, content) event pair
// for every observed change. Sessions are not restartable; each
// connection gets a fresh Watcher invocation.
type Watcher struct {
	Reader   mdview.Reader
	Renderer mdview.Renderer

	// Interval between polls. Defaults to DefaultPollInterval.
	Interval time.Duration

	// Shutdown is the process-wide teardown signal. The session ends
	// within one poll interval of it closing.
	Shutdown <-chan struct{}

	Quiet  bool
	Logger *slog.Logger
}

// Watch polls subpath until shutdown, client disconnect (ctx), document
// removal, a binary transition, or a terminal render error. Every
// detected change invokes emit with an updating event and, unless the
// session ends first, a content event carrying the re-rendered HTML.
//
// A nil return means the session ended cleanly (no event loss, nothing
// for the client to act on). A non-nil return is terminal for the
// session only; it never affects other sessions or the server.
func (w *Watcher) Watch(ctx context.Context, subpath string, emit func(mdview.Event) error) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", uuid.NewString(), "path", subpath)

	// Draining servers accept no new watchers.
	select {
	case <-w.Shutdown:
		return nil
	default:
	}

	filename := w.Reader.FilenameFor(subpath)

	last, err := w.Reader.LastUpdated(subpath)
	if err != nil {
		if mdview.ErrorCode(err) == mdview.ENOTFOUND {
			return nil
		}
		return err
	}

	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil // client went away
		case <-w.Shutdown:
			return nil
		case <-ticker.C:
		}

		updated, err := w.Reader.LastUpdated(subpath)
		if err != nil {
			if mdview.ErrorCode(err) == mdview.ENOTFOUND {
				return nil // removed between polls; no longer watchable
			}
			return err
		}
		if updated == last {
			continue
		}
		last = updated

		if !w.Quiet {
			logger.Info("change detected, refreshing", "file", filename)
		}
		if err := emit(mdview.Event{Updating: true}); err != nil {
			return err
		}

		// Binary assets are not live-rendered.
		if w.Reader.IsBinary(subpath) {
			return nil
		}

		raw, err := w.Reader.Read(subpath)
		if err != nil {
			if mdview.ErrorCode(err) == mdview.ENOTFOUND {
				return nil
			}
			return err
		}

		content, err := w.Renderer.Render(ctx, string(raw))
		if err != nil {
			return err
		}

		if err := emit(mdview.Event{Content: content}); err != nil {
			return err
		}
	}
}

// handleRefresh serves the long-lived text/event-stream for a document.
// Events are framed as "data: <json>\r\n\r\n". The response is an empty
// body when the server is not actively running, and 404 when autorefresh
// is disabled by configuration.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.Autorefresh {
		http.NotFound(w, r)
		return
	}

	subpath := chi.URLParam(r, "*")
	if normalized := s.Reader.NormalizeSubpath(subpath); normalized != subpath {
		http.Redirect(w, r, s.urlPrefix()+"/refresh/"+normalized, http.StatusFound)
		return
	}

	// Capture the signal once; a session must never observe a signal
	// from a prior or future run.
	shutdown := s.shutdownChannel()
	if shutdown == nil || isClosed(shutdown) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	watcher := &Watcher{
		Reader:   s.Reader,
		Renderer: s.Renderer,
		Interval: s.pollInterval(),
		Shutdown: shutdown,
		Quiet:    s.Quiet,
		Logger:   s.logger(),
	}

	err := watcher.Watch(r.Context(), subpath, func(ev mdview.Event) error {
		// Marshal directly so the default encoder does not re-escape the
		// HTML inside content payloads.
		payload, err := ev.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\r\n\r\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are long gone, so a rate-limited render cannot become
		// a 403 here; the next full page load will surface it.
		s.logger().Error("refresh session ended", "path", subpath, "code", mdview.ErrorCode(err), "error", err)
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
