package restclient

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// isRedirect reports whether the response asks for a redirect hop.
// Only 301 and 302 are followed.
func isRedirect(in *Incoming) bool {
	switch statusCodeOf(in) {
	case http.StatusMovedPermanently, http.StatusFound:
		return true
	default:
		return false
	}
}

// statusCodeOf returns in.StatusCode, falling back to the code parsed from
// the status line for senders that only fill StatusLine.
func statusCodeOf(in *Incoming) int {
	if in == nil {
		return 0
	}
	if in.StatusCode != 0 {
		return in.StatusCode
	}
	return parseStatusLine(in.StatusLine)
}

// parseStatusLine extracts the code from "HTTP/1.1 301 Moved Permanently".
func parseStatusLine(line string) int {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

// headerValue scans header lines in order and returns the value of the
// first line whose name matches. The value is the text after the first
// space, trimmed.
func headerValue(lines []string, name string) (string, bool) {
	for _, line := range lines {
		key, _, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(key), name) {
			continue
		}
		_, value, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		return value, true
	}
	return "", false
}

// redirectTarget returns the absolute URI the redirect points to. A missing
// or unparsable Location yields false, in which case the 3xx response is
// returned to the caller unchanged.
func redirectTarget(current string, in *Incoming) (string, bool) {
	location, ok := headerValue(in.Headers, headerLocation)
	if !ok {
		return "", false
	}

	target, err := url.Parse(location)
	if err != nil {
		return "", false
	}
	if target.IsAbs() {
		return target.String(), true
	}

	base, err := url.Parse(current)
	if err != nil || !base.IsAbs() {
		return "", false
	}
	return base.ResolveReference(target).String(), true
}
