package restclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http/httptrace"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error type classifications used for TransportError.Kind and the
// error.type attribute.
const (
	ErrorTypeTimeout           = "timeout"
	ErrorTypeConnectionRefused = "connection_refused"
	ErrorTypeDNSError          = "dns_error"
	ErrorTypeTLSError          = "tls_error"
	ErrorTypeCancelled         = "cancelled"
	ErrorTypeConnectionReset   = "connection_reset"
	ErrorTypeEOF               = "eof"
	ErrorTypeCircuitOpen       = "circuit_open"
	ErrorTypeRateLimited       = "rate_limited"
	ErrorTypeInvalidRequest    = "invalid_request"
	ErrorTypeUnknown           = "unknown"
)

// networkTrace holds timing data collected from httptrace.ClientTrace.
type networkTrace struct {
	dnsStart time.Time
	dnsDone  time.Time
	dnsAddrs []string

	connectStart time.Time
	connectDone  time.Time

	tlsStart    time.Time
	tlsDone     time.Time
	protocolVer string

	gotConnTime time.Time
	connReused  bool
	connRemote  string

	wroteRequestTime  time.Time
	firstResponseTime time.Time
}

// createClientTrace creates an httptrace.ClientTrace that populates nt.
func createClientTrace(nt *networkTrace) *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			nt.gotConnTime = time.Now()
			nt.connReused = info.Reused
			if info.Conn != nil {
				if addr := info.Conn.RemoteAddr(); addr != nil {
					nt.connRemote = addr.String()
				}
			}
		},
		DNSStart: func(_ httptrace.DNSStartInfo) {
			nt.dnsStart = time.Now()
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			nt.dnsDone = time.Now()
			for _, addr := range info.Addrs {
				nt.dnsAddrs = append(nt.dnsAddrs, addr.String())
			}
		},
		ConnectStart: func(_, _ string) {
			nt.connectStart = time.Now()
		},
		ConnectDone: func(_, _ string, _ error) {
			nt.connectDone = time.Now()
		},
		TLSHandshakeStart: func() {
			nt.tlsStart = time.Now()
		},
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			nt.tlsDone = time.Now()
			nt.protocolVer = state.NegotiatedProtocol
		},
		WroteRequest: func(_ httptrace.WroteRequestInfo) {
			nt.wroteRequestTime = time.Now()
		},
		GotFirstResponseByte: func() {
			nt.firstResponseTime = time.Now()
		},
	}
}

// addTraceEvents adds span events for network timing.
func (nt *networkTrace) addTraceEvents(span trace.Span) {
	if !nt.dnsStart.IsZero() && !nt.dnsDone.IsZero() {
		span.AddEvent("dns.done", trace.WithTimestamp(nt.dnsDone),
			trace.WithAttributes(
				attribute.Float64("dns.duration_ms", msBetween(nt.dnsStart, nt.dnsDone)),
				attribute.StringSlice("dns.addresses", nt.dnsAddrs),
			))
	}

	if !nt.connectStart.IsZero() && !nt.connectDone.IsZero() {
		span.AddEvent("connect.done", trace.WithTimestamp(nt.connectDone),
			trace.WithAttributes(
				attribute.Float64("connect.duration_ms", msBetween(nt.connectStart, nt.connectDone)),
			))
	}

	if !nt.tlsStart.IsZero() && !nt.tlsDone.IsZero() {
		span.AddEvent("tls.done", trace.WithTimestamp(nt.tlsDone),
			trace.WithAttributes(
				attribute.Float64("tls.duration_ms", msBetween(nt.tlsStart, nt.tlsDone)),
				attribute.String("tls.protocol", nt.protocolVer),
			))
	}

	if !nt.gotConnTime.IsZero() {
		span.AddEvent("got_conn", trace.WithTimestamp(nt.gotConnTime),
			trace.WithAttributes(
				attribute.Bool("connection.reused", nt.connReused),
				attribute.String("network.peer.address", nt.connRemote),
			))
	}

	if !nt.wroteRequestTime.IsZero() {
		span.AddEvent("wrote_request", trace.WithTimestamp(nt.wroteRequestTime))
	}

	if !nt.firstResponseTime.IsZero() {
		var ttfbMs float64
		if !nt.wroteRequestTime.IsZero() {
			ttfbMs = msBetween(nt.wroteRequestTime, nt.firstResponseTime)
		}
		span.AddEvent("got_first_response_byte", trace.WithTimestamp(nt.firstResponseTime),
			trace.WithAttributes(attribute.Float64("ttfb_ms", ttfbMs)))
	}
}

// recordTimingMetrics records network timing metrics.
func (nt *networkTrace) recordTimingMetrics(
	ctx context.Context,
	m *metrics,
	attrs []attribute.KeyValue,
) {
	if m == nil {
		return
	}

	if !nt.dnsStart.IsZero() && !nt.dnsDone.IsZero() {
		m.recordDNSDuration(ctx, nt.dnsDone.Sub(nt.dnsStart), attrs)
	}
	if !nt.connectStart.IsZero() && !nt.connectDone.IsZero() {
		m.recordConnectionDuration(ctx, nt.connectDone.Sub(nt.connectStart), attrs)
	}
	if !nt.tlsStart.IsZero() && !nt.tlsDone.IsZero() {
		m.recordTLSDuration(ctx, nt.tlsDone.Sub(nt.tlsStart), attrs)
	}
	if !nt.wroteRequestTime.IsZero() && !nt.firstResponseTime.IsZero() {
		m.recordTTFB(ctx, nt.firstResponseTime.Sub(nt.wroteRequestTime), attrs)
	}
}

func msBetween(start, end time.Time) float64 {
	return float64(end.Sub(start).Microseconds()) / 1000
}

// classifyError returns an error.type classification for the given error.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return ErrorTypeCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrorTypeCircuitOpen
	}
	if errors.Is(err, ErrRateLimited) {
		return ErrorTypeRateLimited
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeDNSError
	}

	var tlsRecordErr *tls.RecordHeaderError
	if errors.As(err, &tlsRecordErr) {
		return ErrorTypeTLSError
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ErrorTypeTLSError
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrorTypeConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return ErrorTypeConnectionReset
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrorTypeEOF
	}

	// Fallback for wrapped errors that lost their type.
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout"):
		return ErrorTypeTimeout
	case strings.Contains(errStr, "connection refused"):
		return ErrorTypeConnectionRefused
	case strings.Contains(errStr, "connection reset"):
		return ErrorTypeConnectionReset
	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "dns"):
		return ErrorTypeDNSError
	case strings.Contains(errStr, "tls") || strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "x509"):
		return ErrorTypeTLSError
	case strings.Contains(errStr, "eof"):
		return ErrorTypeEOF
	case strings.Contains(errStr, "unsupported protocol scheme") ||
		strings.Contains(errStr, "missing protocol scheme") ||
		strings.Contains(errStr, "invalid url") ||
		strings.Contains(errStr, "invalid uri") ||
		strings.Contains(errStr, "no host in request"):
		return ErrorTypeInvalidRequest
	}

	return ErrorTypeUnknown
}

// errorTypeFromStatusCode returns error.type for HTTP status codes.
// Per OTel semconv, the status code itself is used as the error type for 4xx/5xx.
func errorTypeFromStatusCode(statusCode int) string {
	if statusCode >= 400 {
		return strconv.Itoa(statusCode)
	}
	return ""
}

// setSpanError records an error on the span with proper status and attributes.
func setSpanError(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errorType != "" {
		span.SetAttributes(attribute.String("error.type", errorType))
	}
}
