package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/core/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseSlack     = 5 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
)

// HTTPClientOptions tunes the Telegram API client. Zero values select defaults.
type HTTPClientOptions struct {
	// LongPollTimeout is added to the response header deadline so getUpdates
	// calls that legitimately hang for the poll window are not cut short.
	LongPollTimeout time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	// Base replaces the network transport; used by tests.
	Base http.RoundTripper
}

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	base := opts.Base
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshake,
			ResponseHeaderTimeout: opts.LongPollTimeout + defaultResponseSlack,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultRetryAttempts
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	timeout := defaultClientTimeout
	if floor := opts.LongPollTimeout + 2*defaultResponseSlack; floor > timeout {
		timeout = floor
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &retryTransport{
			base:       base,
			maxRetries: retries,
			backoff:    backoff,
		},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		currReq := req
		if attempt > 1 {
			currReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				currReq.Body = body
			} else if req.Body != nil && req.Body != http.NoBody {
				return nil, lastErr
			}
		}

		resp, err := base.RoundTrip(currReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := t.backoff * time.Duration(attempt)
		logger.Debug(req.Context(), "tg", "http.retry",
			slog.String("op", path.Base(req.URL.Path)),
			slog.Int("attempts", attempt),
			slog.Duration("backoff", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}
