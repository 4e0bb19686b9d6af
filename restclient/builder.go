package restclient

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// defaultProto is the protocol every request is composed for.
const defaultProto = "HTTP/1.1"

var errNoResponse = errors.New("sender returned no response")

// RequestBuilder accumulates one request and sends it.
//
// Every setter returns the builder so calls can be chained. A builder may be
// sent more than once; each SendRequest recomposes the request from the
// current state. It is not safe for concurrent use.
type RequestBuilder struct {
	client *Client

	uri      string
	method   Method
	headers  []string
	body     map[string]string
	query    string
	encoding EncodingMode

	// err is the first verb validation error under strict validation.
	err error

	last *Result
}

// SetURI replaces the target URI.
func (rb *RequestBuilder) SetURI(uri string) *RequestBuilder {
	rb.uri = uri
	return rb
}

// SetMethod sets the verb, case-insensitively.
//
// With lenient validation (the default) an unknown verb becomes GET. With
// strict validation the method is left unchanged and an *InvalidVerbError is
// recorded, returned by Err and by SendRequest. An empty verb is invalid here.
func (rb *RequestBuilder) SetMethod(method string) *RequestBuilder {
	m, err := ParseMethod(method)
	if method == "" {
		err = &InvalidVerbError{Verb: method}
	}
	if err == nil {
		rb.method = m
		return rb
	}

	if rb.client.config.Config.StrictVerbValidation {
		if rb.err == nil {
			rb.err = err
		}
		rb.client.logger.Warn().Str("verb", method).Msg("restclient: rejected invalid verb")
		return rb
	}

	rb.client.logger.Debug().Str("verb", method).Msg("restclient: invalid verb, using GET")
	rb.method = MethodGet
	return rb
}

// SetBody replaces the body data. The map is copied.
func (rb *RequestBuilder) SetBody(data map[string]string) *RequestBuilder {
	if data == nil {
		rb.body = nil
		return rb
	}
	rb.body = maps.Clone(data)
	return rb
}

// SetGetQueryString URL-encodes data as the query string sent with GET.
// It is ignored for other verbs.
func (rb *RequestBuilder) SetGetQueryString(data map[string]string) *RequestBuilder {
	rb.query = encodeForm(data)
	return rb
}

// AddHeader appends a raw "Name: value" line. Lines are sent in the order
// they were added and are never deduplicated.
func (rb *RequestBuilder) AddHeader(line string) *RequestBuilder {
	rb.headers = append(rb.headers, line)
	return rb
}

// SendAsJSON encodes the POST/PUT body as a JSON object.
func (rb *RequestBuilder) SendAsJSON() *RequestBuilder {
	rb.encoding = EncodingJSON
	return rb
}

// SendAsURLFormEncoded encodes the POST/PUT body as key=value pairs.
func (rb *RequestBuilder) SendAsURLFormEncoded() *RequestBuilder {
	rb.encoding = EncodingURLForm
	return rb
}

// URI returns the target URI.
func (rb *RequestBuilder) URI() string {
	return rb.uri
}

// Method returns the current verb.
func (rb *RequestBuilder) Method() Method {
	return rb.method
}

// Headers returns a copy of the header lines added so far.
func (rb *RequestBuilder) Headers() []string {
	return append([]string(nil), rb.headers...)
}

// PostData returns a copy of the body data.
func (rb *RequestBuilder) PostData() map[string]string {
	return maps.Clone(rb.body)
}

// Encoding returns the body encoding mode.
func (rb *RequestBuilder) Encoding() EncodingMode {
	return rb.encoding
}

// Err returns the verb validation error recorded under strict validation.
func (rb *RequestBuilder) Err() error {
	return rb.err
}

// LastResult returns the result of the latest successful SendRequest, or an
// empty Result if nothing was sent yet.
func (rb *RequestBuilder) LastResult() *Result {
	if rb.last == nil {
		return &Result{}
	}
	return rb.last
}

// CurlCommand renders the request SendRequest would send as a cURL command.
// It returns an empty string when the request cannot be composed.
func (rb *RequestBuilder) CurlCommand() string {
	out, err := rb.compose()
	if err != nil {
		return ""
	}
	return generateCurlCommand(out)
}

// compose builds the outgoing request from the current state without
// modifying it.
func (rb *RequestBuilder) compose() (*Outgoing, error) {
	cfg := rb.client.config.Config

	out := &Outgoing{
		Method:    rb.method,
		URI:       rb.uri,
		Headers:   append([]string(nil), rb.headers...),
		Proto:     defaultProto,
		UserAgent: cfg.UserAgent,
		FullURI:   cfg.RequestFullURI,
	}

	switch {
	case rb.method.hasBody():
		body, lines, err := encodeBody(rb.encoding, rb.body)
		if err != nil {
			return nil, err
		}
		out.Body = body
		out.Headers = append(out.Headers, lines...)
	case rb.method == MethodGet:
		out.URI = appendQuery(rb.uri, rb.query)
		if cfg.LegacyGETContentType {
			out.Headers = append(out.Headers, headerContentType+": "+legacyGETContentType)
		}
	}

	return out, nil
}

// SendRequest sends the request and returns the final response.
//
// A 301 or 302 with a usable Location header is followed exactly once,
// re-sending the same method, header lines and body to the new target. A
// second redirect is returned as-is.
//
// HTTP error statuses are not errors: the returned error is only set when
// the request could not be composed or sent. On error the previous
// LastResult is kept.
func (rb *RequestBuilder) SendRequest(ctx context.Context) (*Result, error) {
	if rb.err != nil {
		return nil, rb.err
	}
	if rb.uri == "" {
		return nil, ErrMissingURI
	}

	out, err := rb.compose()
	if err != nil {
		return nil, err
	}

	cfg := rb.client.config
	sendID := uuid.NewString()
	logger := rb.client.logger.With().
		Str("send_id", sendID).
		Str("method", out.Method.String()).
		Logger()

	attrs := append(cfg.baseAttributes(), attribute.String("http.request.method", out.Method.String()))

	ctx, span := cfg.Tracer.Start(ctx, "RestClient "+out.Method.String(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithAttributes(
			attribute.String("restclient.send_id", sendID),
			attribute.String("restclient.encoding", rb.encoding.String()),
			attribute.String("url.full", out.URI),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		cfg.Metrics.recordSendDuration(ctx, time.Since(start), attrs)
	}()

	if cfg.Config.Debug {
		logPayload(logger, out)
	}

	in, err := rb.send(ctx, logger, out)
	if err != nil {
		setSpanError(span, err, transportErrorKind(err))
		return nil, err
	}

	uri := out.URI
	redirected := false

	if isRedirect(in) {
		target, ok := redirectTarget(out.URI, in)
		cfg.Metrics.recordRedirect(ctx, ok, attrs)

		if ok {
			span.AddEvent("redirect", trace.WithAttributes(
				attribute.Int("http.response.status_code", statusCodeOf(in)),
				attribute.String("url.full", target),
			))
			logger.Debug().
				Str("from", out.URI).
				Str("to", target).
				Msg("restclient: following redirect")

			hop := *out
			hop.URI = target

			in, err = rb.send(ctx, logger, &hop)
			if err != nil {
				setSpanError(span, err, transportErrorKind(err))
				return nil, err
			}
			uri = target
			redirected = true
		} else {
			logger.Warn().
				Int("status", statusCodeOf(in)).
				Msg("restclient: redirect without usable Location, returning response")
		}
	}

	res := newResult(uri, in, redirected)
	span.SetAttributes(
		attribute.Int("http.response.status_code", res.StatusCode),
		attribute.Bool("restclient.redirected", redirected),
	)

	rb.last = res
	return res, nil
}

// send performs one hop and wraps failures in a *TransportError.
func (rb *RequestBuilder) send(
	ctx context.Context,
	logger zerolog.Logger,
	out *Outgoing,
) (*Incoming, error) {
	debug := rb.client.config.Config.Debug
	if debug {
		logRequest(logger, out)
	}

	start := time.Now()
	in, err := rb.client.sender.Send(ctx, out)
	if err == nil && in == nil {
		err = errNoResponse
	}
	if err != nil {
		var terr *TransportError
		if !errors.As(err, &terr) {
			terr = newTransportError(out.Method, out.URI, err)
		}
		logger.Warn().
			Err(err).
			Str("uri", out.URI).
			Str("kind", terr.Kind).
			Msg("restclient: request failed")
		return nil, terr
	}

	if debug {
		logResponse(logger, in, time.Since(start))
	}
	return in, nil
}

func transportErrorKind(err error) string {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return classifyError(err)
}
