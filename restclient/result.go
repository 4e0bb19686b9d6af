package restclient

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Result is the final response of a SendRequest call.
//
// It keeps the raw body and decodes it as JSON only on demand, so callers
// talking to non-JSON endpoints never go through a decoder. A nil *Result is
// a valid empty value.
//
//	res, err := rb.SendRequest(ctx)
//	if err != nil {
//	    return err // the request could not be sent
//	}
//	if !res.IsSuccess() {
//	    return fmt.Errorf("create user: %s", res.StatusLine)
//	}
//	id := res.Get("id").String()
type Result struct {
	// StatusCode is the numeric status, e.g. 200.
	StatusCode int

	// StatusLine is the raw status line, e.g. "HTTP/1.1 200 OK".
	StatusLine string

	// Proto is the response protocol, e.g. "HTTP/1.1".
	Proto string

	// Headers are the response header lines in "Name: value" form.
	Headers []string

	// URI is the target that produced this response. After a redirect hop
	// it is the Location target.
	URI string

	// Redirected is true when one redirect hop was followed.
	Redirected bool

	body []byte

	decoded    any
	decodeErr  error
	decodeDone bool
}

func newResult(uri string, in *Incoming, redirected bool) *Result {
	return &Result{
		StatusCode: statusCodeOf(in),
		StatusLine: in.StatusLine,
		Proto:      in.Proto,
		Headers:    append([]string(nil), in.Headers...),
		URI:        uri,
		Redirected: redirected,
		body:       in.Body,
	}
}

// Body returns the raw response body.
func (r *Result) Body() []byte {
	if r == nil {
		return nil
	}
	return r.body
}

// String returns the raw response body as a string.
func (r *Result) String() string {
	if r == nil {
		return ""
	}
	return string(r.body)
}

// Decoded returns the body decoded as JSON. The value is computed once and
// cached. An empty body decodes to an empty map.
func (r *Result) Decoded() (any, error) {
	if r == nil || len(r.body) == 0 {
		return map[string]any{}, nil
	}
	if !r.decodeDone {
		r.decodeErr = json.Unmarshal(r.body, &r.decoded)
		r.decodeDone = true
	}
	return r.decoded, r.decodeErr
}

// JSON decodes the body into v.
func (r *Result) JSON(v any) error {
	if r == nil || len(r.body) == 0 {
		return nil
	}
	return json.Unmarshal(r.body, v)
}

// Get runs a gjson path query against the body.
//
//	res.Get("user.name").String()
func (r *Result) Get(path string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.body, path)
}

// Header returns the value of the first response header line named name.
func (r *Result) Header(name string) string {
	if r == nil {
		return ""
	}
	v, _ := headerValue(r.Headers, name)
	return v
}

// IsSuccess returns true if the status code is 2xx.
func (r *Result) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect returns true for 301 and 302. Seeing one on a Result means the
// redirect could not be followed or a second hop was requested.
func (r *Result) IsRedirect() bool {
	return r != nil &&
		(r.StatusCode == http.StatusMovedPermanently || r.StatusCode == http.StatusFound)
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Result) IsError() bool {
	return r != nil && r.StatusCode >= 400
}
