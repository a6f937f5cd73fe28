// Package browser opens the user's web browser once the local server is
// reachable.
package browser

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/browser"
)

// DefaultPollInterval is how often reachability is probed.
const DefaultPollInterval = 100 * time.Millisecond

// Launcher polls a URL until the server answers, then opens the browser
// exactly once. It is run as a background helper during a server run and
// must join before the run is considered stopped.
type Launcher struct {
	// URL is the address handed to the browser and probed for readiness.
	URL string

	// Interval between reachability probes. Defaults to
	// DefaultPollInterval.
	Interval time.Duration

	// Open opens a URL in the user's browser. Defaults to the platform
	// opener; tests replace it.
	Open func(url string) error

	// Client used for reachability probes.
	Client *http.Client
}

// WaitAndOpen blocks until the URL answers any HTTP response, then opens
// the browser. It returns without opening when the context is canceled or
// the shutdown channel closes first.
func (l *Launcher) WaitAndOpen(ctx context.Context, shutdown <-chan struct{}) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	open := l.Open
	if open == nil {
		open = browser.OpenURL
	}
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: interval}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-shutdown:
			return nil
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, l.URL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			continue // not listening yet
		}
		resp.Body.Close()

		return open(l.URL)
	}
}
