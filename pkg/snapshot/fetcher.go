package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrBadContentType is returned when the receiver answers with a
// non-JSON content type.
var ErrBadContentType = fmt.Errorf("snapshot: response content-type is not application/json")

// ErrBadStatus is returned when the receiver answers with a non-200
// status code.
type ErrBadStatus struct {
	StatusCode int
}

func (e *ErrBadStatus) Error() string {
	return fmt.Sprintf("snapshot: unexpected status %d", e.StatusCode)
}

// FlightResolver substitutes a callsign for aircraft whose current
// snapshot omits one. It is the hex->flight persistence cache's only
// contract with this package; the cache itself (disk persistence,
// optional online lookup) lives outside this module's scope.
type FlightResolver interface {
	Lookup(hex string) (flight string, ok bool)
}

// FetchOptions configures Fetcher.
type FetchOptions struct {
	// Timeout bounds a single HTTP round trip. Default 15s.
	Timeout time.Duration

	// MaxRetries is how many additional attempts are made after the
	// first failure. Default 3.
	MaxRetries int

	// RetryDelay is the base delay; attempt N sleeps N*RetryDelay
	// (linear backoff), default 1s.
	RetryDelay time.Duration

	// MinInterval paces successive Fetch calls no closer together
	// than this, using a token-bucket limiter so bursts of retries
	// within one cycle don't hammer the receiver. Zero disables pacing.
	MinInterval time.Duration

	// Resolver substitutes "[<hex>]" when a snapshot's flight is
	// missing and the resolver has no mapping either.
	Resolver FlightResolver
}

// DefaultFetchOptions returns spec.md's documented defaults.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Timeout:    15 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Fetcher polls a single URL for an aircraft snapshot.
type Fetcher struct {
	url        string
	httpClient *http.Client
	opts       FetchOptions
	limiter    *rate.Limiter
}

// NewFetcher builds a Fetcher for url using opts. Zero-value fields in
// opts fall back to DefaultFetchOptions.
func NewFetcher(url string, opts FetchOptions) *Fetcher {
	defaults := DefaultFetchOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaults.MaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}

	var limiter *rate.Limiter
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}

	return &Fetcher{
		url:        url,
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		limiter:    limiter,
	}
}

// Fetch retrieves one snapshot, retrying up to opts.MaxRetries times
// with linearly growing delay (attempt*RetryDelay) on transport
// failure, bad status or bad content type. On success, each
// aircraft's Flight is trimmed and, if still empty, substituted via
// the resolver (falling back to the "[<hex>]" placeholder).
func (f *Fetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	var lastErr error

	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * f.opts.RetryDelay
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("snapshot: fetch cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		snap, err := f.fetchOnce(ctx)
		if err == nil {
			return snap, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("snapshot: max retries (%d) exceeded: %w", f.opts.MaxRetries, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context) (*Snapshot, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("snapshot: rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot: fetching %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &ErrBadStatus{StatusCode: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrBadContentType
	}

	var wire wireSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("snapshot: decoding response: %w", err)
	}

	now := time.Now().UTC()
	for i := range wire.Aircraft {
		ac := &wire.Aircraft[i]
		if ac.Flight != nil {
			trimmed := strings.TrimSpace(*ac.Flight)
			ac.Flight = &trimmed
		}
		if ac.Flight == nil || *ac.Flight == "" {
			ac.Flight = resolveFlight(ac.Hex, f.opts.Resolver)
		}
	}

	return &Snapshot{
		Aircraft: wire.Aircraft,
		Meta: Meta{
			Timestamp:     now,
			AircraftCount: len(wire.Aircraft),
		},
	}, nil
}

// resolveFlight looks up hex in resolver, falling back to the
// "[<hex>]" placeholder spec.md specifies for unresolved callsigns.
func resolveFlight(hex string, resolver FlightResolver) *string {
	if resolver != nil {
		if flight, ok := resolver.Lookup(hex); ok && flight != "" {
			return &flight
		}
	}
	placeholder := fmt.Sprintf("[%s]", hex)
	return &placeholder
}
