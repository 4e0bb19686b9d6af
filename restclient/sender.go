package restclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Sender performs exactly one HTTP exchange. It never follows redirects;
// the RequestBuilder does that itself.
type Sender interface {
	Send(ctx context.Context, out *Outgoing) (*Incoming, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, out *Outgoing) (*Incoming, error)

// Send calls f(ctx, out).
func (f SenderFunc) Send(ctx context.Context, out *Outgoing) (*Incoming, error) {
	return f(ctx, out)
}

// Outgoing is a fully composed request.
type Outgoing struct {
	Method Method
	URI    string

	// Headers are raw "Name: value" lines in the order they were added.
	Headers []string

	Body []byte

	// Proto is the protocol the request is meant for, e.g. "HTTP/1.1".
	Proto string

	// UserAgent is used when no User-Agent line is present in Headers.
	UserAgent string

	// FullURI puts the absolute URI in the request line.
	FullURI bool
}

// Incoming is the response to one Outgoing request.
type Incoming struct {
	// StatusLine is e.g. "HTTP/1.1 301 Moved Permanently".
	StatusLine string
	StatusCode int
	Proto      string

	// Headers are "Name: value" lines, one per value.
	Headers []string

	Body []byte
}

// Compile-time interface check.
var _ Sender = (*HTTPSender)(nil)

// HTTPSender is the default Sender, built on net/http and speaking HTTP/1.1.
// Each hop goes through the rate limiter, the circuit breaker and the
// OpenTelemetry transport when those are configured.
type HTTPSender struct {
	client *http.Client
	logger zerolog.Logger
}

// NewHTTPSender creates an HTTPSender from the same options New accepts.
// Options that only concern the builder are ignored.
func NewHTTPSender(opts ...Option) *HTTPSender {
	return newHTTPSender(newConfig(opts...))
}

func newHTTPSender(cfg *internalConfig) *HTTPSender {
	var base http.RoundTripper = cfg.buildTransport()
	if cfg.MockTransport != nil {
		base = cfg.MockTransport
	}

	limited := newRateLimitTransport(base, cfg.Config.RateLimit)
	withBreaker := newCircuitBreakerTransport(limited, cfg)
	instrumented := newOtelTransport(withBreaker, cfg)

	return &HTTPSender{
		client: &http.Client{
			Transport: instrumented,
			Timeout:   cfg.Config.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: cfg.Logger,
	}
}

// HTTP returns the underlying *http.Client.
func (s *HTTPSender) HTTP() *http.Client {
	return s.client
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, out *Outgoing) (*Incoming, error) {
	var body io.Reader
	if len(out.Body) > 0 {
		body = bytes.NewReader(out.Body)
	}

	req, err := http.NewRequestWithContext(ctx, out.Method.String(), out.URI, body)
	if err != nil {
		return nil, err
	}

	s.applyHeaders(req, out.Headers)

	if req.Header.Get(headerUserAgent) == "" {
		ua := out.UserAgent
		if ua == "" {
			ua = DefaultUserAgent
		}
		req.Header.Set(headerUserAgent, ua)
	}

	if out.FullURI && req.URL.Host != "" {
		req.URL.Opaque = "//" + req.URL.Host + req.URL.EscapedPath()
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	proto := resp.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}

	return &Incoming{
		StatusLine: proto + " " + statusText(resp),
		StatusCode: resp.StatusCode,
		Proto:      proto,
		Headers:    headerLines(resp.Header),
		Body:       respBody,
	}, nil
}

// applyHeaders copies raw header lines onto req. Lines without a colon
// cannot be expressed by net/http and are dropped.
func (s *HTTPSender) applyHeaders(req *http.Request, lines []string) {
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			s.logger.Warn().Str("header", line).Msg("restclient: skipping malformed header line")
			continue
		}
		value = strings.TrimSpace(value)

		if strings.EqualFold(name, "Host") {
			req.Host = value
			continue
		}
		req.Header.Add(name, value)
	}
}

// statusText returns "301 Moved Permanently" even for responses whose Status
// lacks the numeric prefix.
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	status := strings.TrimSpace(resp.Status)
	switch {
	case strings.HasPrefix(status, code):
		return status
	case status == "":
		return strings.TrimSpace(code + " " + http.StatusText(resp.StatusCode))
	default:
		return code + " " + status
	}
}

// headerLines renders h as "Name: value" lines sorted by name, one line per
// value.
func headerLines(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range h[k] {
			lines = append(lines, k+": "+v)
		}
	}
	return lines
}
