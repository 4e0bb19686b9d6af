package restclient

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// debugLogger receives debug output when WithDebug is used without WithLogger.
var debugLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// generateCurlCommand creates a cURL command equivalent to out.
//
// Header lines are emitted in the order they were added. Authorization and
// other credentials are included as-is.
//
//	curl --http1.1 -X POST 'https://api.example.com/users' \
//	  -H 'Content-Type: application/json; charset=utf-8' \
//	  -d '{"name":"John"}'
func generateCurlCommand(out *Outgoing) string {
	parts := []string{"curl"}

	if out.Proto == defaultProto {
		parts = append(parts, "--http1.1")
	}

	if out.Method != MethodGet {
		parts = append(parts, "-X", out.Method.String())
	}

	parts = append(parts, shellQuote(out.URI))

	hasUA := false
	for _, line := range out.Headers {
		if name, _, ok := strings.Cut(line, ":"); ok &&
			strings.EqualFold(strings.TrimSpace(name), headerUserAgent) {
			hasUA = true
		}
		parts = append(parts, "-H", shellQuote(line))
	}
	if !hasUA && out.UserAgent != "" {
		parts = append(parts, "-A", shellQuote(out.UserAgent))
	}

	if len(out.Body) > 0 {
		parts = append(parts, "-d", shellQuote(string(out.Body)))
	}

	return strings.Join(parts, " ")
}

// shellQuote wraps s in single quotes, escaping embedded quotes.
func shellQuote(s string) string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(s, "'", "'\\''"))
}

// logPayload echoes the composed request before it is sent.
func logPayload(logger zerolog.Logger, out *Outgoing) {
	logger.Debug().
		Str("uri", out.URI).
		Strs("headers", out.Headers).
		Str("body", string(out.Body)).
		Msg("restclient payload")
}

// logRequest logs one hop.
func logRequest(logger zerolog.Logger, out *Outgoing) {
	logger.Debug().
		Str("uri", out.URI).
		Str("proto", out.Proto).
		Int("body_size", len(out.Body)).
		Msg("HTTP request")
}

// logResponse logs the response to one hop.
func logResponse(logger zerolog.Logger, in *Incoming, duration time.Duration) {
	logger.Debug().
		Int("status", in.StatusCode).
		Str("status_line", in.StatusLine).
		Dur("duration_ms", duration).
		Int("content_length", len(in.Body)).
		Msg("HTTP response")
}
