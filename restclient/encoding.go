package restclient

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// EncodingMode selects how POST and PUT bodies are serialized.
type EncodingMode int

const (
	// EncodingURLForm sends key=value pairs as application/x-www-form-urlencoded.
	EncodingURLForm EncodingMode = iota

	// EncodingJSON sends a JSON object as application/json.
	EncodingJSON
)

// Content types emitted by the builder.
const (
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeJSON = "application/json; charset=utf-8"

	legacyGETContentType = "text/html; charset=utf-8"
)

const (
	headerContentType   = "Content-Type"
	headerContentLength = "Content-Length"
	headerLocation      = "Location"
	headerUserAgent     = "User-Agent"

	encodingNameURLForm    = "form"
	encodingNameURLFormAlt = "urlformencoded"
	encodingNameJSON       = "json"
)

func (e EncodingMode) String() string {
	switch e {
	case EncodingJSON:
		return encodingNameJSON
	default:
		return encodingNameURLForm
	}
}

// ParseEncodingMode parses "form", "urlformencoded" or "json", ignoring case.
func ParseEncodingMode(s string) (EncodingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", encodingNameURLForm, encodingNameURLFormAlt:
		return EncodingURLForm, nil
	case encodingNameJSON:
		return EncodingJSON, nil
	default:
		return EncodingURLForm, fmt.Errorf("restclient: unknown encoding mode %q", s)
	}
}

// MarshalText lets the mode appear as a string in YAML config files.
func (e EncodingMode) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EncodingMode) UnmarshalText(text []byte) error {
	mode, err := ParseEncodingMode(string(text))
	if err != nil {
		return err
	}
	*e = mode
	return nil
}

var errInvalidUTF8 = errors.New("invalid UTF-8")

// encodeForm percent-encodes data as key=value pairs joined by '&',
// sorted by key, with spaces as '+'.
func encodeForm(data map[string]string) string {
	if len(data) == 0 {
		return ""
	}
	values := make(url.Values, len(data))
	for k, v := range data {
		values.Set(k, v)
	}
	return values.Encode()
}

// encodeBody serializes data for mode and returns the body together with the
// header lines describing it.
func encodeBody(mode EncodingMode, data map[string]string) ([]byte, []string, error) {
	switch mode {
	case EncodingJSON:
		for k, v := range data {
			if !utf8.ValidString(k) {
				return nil, nil, &EncodingError{
					Mode: mode,
					Err:  fmt.Errorf("key %q: %w", k, errInvalidUTF8),
				}
			}
			if !utf8.ValidString(v) {
				return nil, nil, &EncodingError{
					Mode: mode,
					Err:  fmt.Errorf("value of key %q: %w", k, errInvalidUTF8),
				}
			}
		}
		if data == nil {
			data = map[string]string{}
		}
		body, err := json.Marshal(data)
		if err != nil {
			return nil, nil, &EncodingError{Mode: mode, Err: err}
		}
		return body, []string{
			headerContentType + ": " + ContentTypeJSON,
			headerContentLength + ": " + strconv.Itoa(len(body)),
		}, nil
	default:
		return []byte(encodeForm(data)), []string{
			headerContentType + ": " + ContentTypeForm,
		}, nil
	}
}

// appendQuery adds an encoded query string to uri.
func appendQuery(uri, query string) string {
	if query == "" {
		return uri
	}
	if strings.Contains(uri, "?") {
		if strings.HasSuffix(uri, "?") || strings.HasSuffix(uri, "&") {
			return uri + query
		}
		return uri + "&" + query
	}
	return uri + "?" + query
}
