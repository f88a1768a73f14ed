// Package httpx builds the retrying HTTP client used for registry lookups
// and endpoint probes.
package httpx

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/felixgeelhaar/guardian/internal/log"
	"github.com/felixgeelhaar/guardian/internal/version"
)

// Options tune the retry policy.
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	UserAgent    string
	// Logger receives retry diagnostics at DEBUG. Nil uses the session logger.
	Logger *log.Logger
}

// DefaultOptions suit interactive use: a few quick retries, short timeout.
func DefaultOptions() Options {
	return Options{
		RetryMax:     2,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
		Timeout:      10 * time.Second,
		UserAgent:    version.GetInfo().UserAgent(),
	}
}

// NewClient creates a retrying client.
func NewClient(opts Options) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = opts.RetryWaitMin
	client.RetryWaitMax = opts.RetryWaitMax
	client.HTTPClient.Timeout = opts.Timeout
	if opts.UserAgent != "" {
		client.HTTPClient.Transport = userAgent{base: client.HTTPClient.Transport, value: opts.UserAgent}
	}
	if opts.Logger == nil {
		opts.Logger = log.DefaultLogger()
	}
	client.Logger = leveled{opts.Logger}
	// Return the last response instead of a generic "giving up" error so
	// callers can report the status code.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// Standard exposes the retrying client as a plain *http.Client.
func Standard(opts Options) *http.Client {
	return NewClient(opts).StandardClient()
}

// leveled routes retryablehttp's chatter to DEBUG.
type leveled struct{ l *log.Logger }

func (w leveled) Error(msg string, kv ...interface{}) { w.l.Debug(msg, kv...) }
func (w leveled) Info(msg string, kv ...interface{})  { w.l.Debug(msg, kv...) }
func (w leveled) Debug(msg string, kv ...interface{}) { w.l.Debug(msg, kv...) }
func (w leveled) Warn(msg string, kv ...interface{})  { w.l.Debug(msg, kv...) }

type userAgent struct {
	base  http.RoundTripper
	value string
}

func (u userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", u.value)
	}
	base := u.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
