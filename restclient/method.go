package restclient

import (
	"net/http"
	"strings"
)

// Method is an HTTP verb accepted by the builder.
type Method string

// Allowed verbs.
const (
	MethodGet    Method = http.MethodGet
	MethodDelete Method = http.MethodDelete
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
)

// AllowedMethods lists the verbs a RequestBuilder can send, in the order
// they are documented.
var AllowedMethods = []Method{MethodGet, MethodDelete, MethodPost, MethodPut}

// String returns the verb.
func (m Method) String() string {
	return string(m)
}

// Valid reports whether m is one of AllowedMethods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodDelete, MethodPost, MethodPut:
		return true
	default:
		return false
	}
}

// hasBody reports whether the verb carries an encoded body.
func (m Method) hasBody() bool {
	return m == MethodPost || m == MethodPut
}

// ParseMethod upper-cases s and validates it.
//
// An empty string means "unset" and parses as GET. Any other value outside
// AllowedMethods returns an *InvalidVerbError together with GET.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return MethodGet, nil
	}

	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return MethodGet, &InvalidVerbError{Verb: s}
	}
	return m, nil
}
