// ABOUTME: Wake probe coordinator for cold-starting backends
// ABOUTME: Throttles and deduplicates liveness probes per API origin

package wake

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMinInterval is how long a completed probe keeps an origin warm.
	DefaultMinInterval = 120 * time.Second
	// DefaultProbeTimeout bounds a single probe.
	DefaultProbeTimeout = 15 * time.Second

	probePath = "/api/health"
)

type originState struct {
	lastWakeAt time.Time
}

// Coordinator throttles wake probes against possibly-sleeping backends.
// Probes are best-effort: a failed probe is logged and forgotten, never
// surfaced to callers. Under concurrent Warm calls for the same origin,
// exactly one probe is in flight and every caller observes its completion.
type Coordinator struct {
	httpClient   *http.Client
	minInterval  time.Duration
	probeTimeout time.Duration

	mu      sync.Mutex
	origins map[string]*originState
	group   singleflight.Group
}

// New creates a coordinator. A nil httpClient gets a default client; the
// probe deadline is applied per-request, so the client needs no timeout of
// its own. Zero durations fall back to the defaults.
func New(httpClient *http.Client, minInterval, probeTimeout time.Duration) *Coordinator {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Coordinator{
		httpClient:   httpClient,
		minInterval:  minInterval,
		probeTimeout: probeTimeout,
		origins:      make(map[string]*originState),
	}
}

// Warm issues a wake probe for the origin unless one completed within the
// throttle window. force bypasses the window (used before a retry, when the
// previous attempt suggests the backend is still asleep). If a probe is
// already in flight for this origin, the caller attaches to its outcome
// instead of issuing a second one.
//
// The probe runs detached from ctx so that one caller's cancellation never
// kills the probe its siblings are waiting on; ctx only releases this
// caller from the wait.
func (c *Coordinator) Warm(ctx context.Context, origin string, force bool) {
	c.mu.Lock()
	st, ok := c.origins[origin]
	if !ok {
		st = &originState{}
		c.origins[origin] = st
	}
	if !force && !st.lastWakeAt.IsZero() && time.Since(st.lastWakeAt) < c.minInterval {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ch := c.group.DoChan(origin, func() (interface{}, error) {
		c.probe(origin)

		c.mu.Lock()
		st.lastWakeAt = time.Now()
		c.mu.Unlock()
		return nil, nil
	})

	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// probe issues the bounded no-op GET. Result and error are ignored beyond
// logging; warmth is stamped either way since a responding-but-unhealthy
// backend is awake all the same.
func (c *Coordinator) probe(origin string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+probePath, nil)
	if err != nil {
		slog.Debug("wake probe request build failed", "origin", origin, "error", err)
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("wake probe failed", "origin", origin, "error", err)
		return
	}
	resp.Body.Close()
	slog.Debug("wake probe completed", "origin", origin, "status", resp.StatusCode)
}

// Reset clears all recorded warmth. Intended for tests and for explicit
// lifecycle resets by the embedding application.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.origins = make(map[string]*originState)
	c.mu.Unlock()
}
