package restclient

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// MockTransport is an http.RoundTripper for tests. It sits under the full
// HTTPSender chain, so telemetry, the breaker and the rate limiter still run.
//
//	mock := restclient.NewMockTransport().
//	    StubRedirect("/old", http.StatusMovedPermanently, "/new").
//	    StubPath("/new", http.StatusOK, `{"ok":true}`)
//
//	client := restclient.New(restclient.WithMockTransport(mock))
type MockTransport struct {
	mu          sync.RWMutex
	stubs       []stub
	defaultResp *stubResponse
	defaultErr  error
	requests    []*http.Request
	bodies      [][]byte
	requestHook func(*http.Request)
}

type stub struct {
	matcher  func(*http.Request) bool
	response *stubResponse
	err      error
}

// stubResponse keeps the body as bytes so concurrent requests can each get
// a fresh reader.
type stubResponse struct {
	resp *http.Response
	body []byte
}

func newStubResponseFrom(resp *http.Response) *stubResponse {
	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
	}
	return &stubResponse{resp: resp, body: body}
}

// NewMockTransport creates an empty MockTransport. Requests with no matching
// stub fail.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubResponse answers every unmatched request with statusCode and body.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResp = newStubResponseFrom(newStubResponse(statusCode, body, nil))
	return m
}

// StubError fails every unmatched request with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultErr = err
	return m
}

// StubPath answers requests for path.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.Path == path
	}, statusCode, body)
}

// StubMethod answers requests with the given verb.
func (m *MockTransport) StubMethod(method Method, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.Method == method.String()
	}, statusCode, body)
}

// StubRedirect answers requests for path with a redirect to location.
// An empty location produces a redirect without a Location header.
func (m *MockTransport) StubRedirect(path string, statusCode int, location string) *MockTransport {
	header := make(http.Header)
	if location != "" {
		header.Set(headerLocation, location)
	}
	return m.StubFuncResponse(func(req *http.Request) bool {
		return req.URL.Path == path
	}, newStubResponse(statusCode, "", header))
}

// StubFunc answers requests matching the predicate.
func (m *MockTransport) StubFunc(
	matcher func(*http.Request) bool,
	statusCode int,
	body string,
) *MockTransport {
	return m.StubFuncResponse(matcher, newStubResponse(statusCode, body, nil))
}

// StubFuncResponse answers requests matching the predicate with a copy of resp.
func (m *MockTransport) StubFuncResponse(
	matcher func(*http.Request) bool,
	resp *http.Response,
) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, response: newStubResponseFrom(resp)})
	return m
}

// StubFuncError fails requests matching the predicate with err.
func (m *MockTransport) StubFuncError(matcher func(*http.Request) bool, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, err: err})
	return m
}

// OnRequest sets a hook called for each request before it is answered.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, body)
	hook := m.requestHook
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// First match wins.
	for _, s := range m.stubs {
		if s.matcher(req) {
			if s.err != nil {
				return nil, s.err
			}
			return cloneResponse(s.response, req), nil
		}
	}

	if m.defaultErr != nil {
		return nil, m.defaultErr
	}
	if m.defaultResp != nil {
		return cloneResponse(m.defaultResp, req), nil
	}

	return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
}

// Requests returns all requests made through this transport.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*http.Request{}, m.requests...)
}

// RequestBodies returns the body of each request, in order. Requests
// without a body have a nil entry.
func (m *MockTransport) RequestBodies() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]byte{}, m.bodies...)
}

// RequestCount returns the number of requests made.
func (m *MockTransport) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil if none.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears all recorded requests and stubs.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.bodies = nil
	m.stubs = nil
	m.defaultResp = nil
	m.defaultErr = nil
	m.requestHook = nil
}

func newStubResponse(statusCode int, body string, header http.Header) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        strconv.Itoa(statusCode) + " " + http.StatusText(statusCode),
		StatusCode:    statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewBufferString(body)),
		ContentLength: int64(len(body)),
	}
}

// cloneResponse builds a fresh response from a stub so it can be served
// more than once.
func cloneResponse(sr *stubResponse, req *http.Request) *http.Response {
	resp := sr.resp
	contentLength := resp.ContentLength
	if contentLength == 0 {
		contentLength = int64(len(sr.body))
	}

	return &http.Response{
		Status:        resp.Status,
		StatusCode:    resp.StatusCode,
		Proto:         resp.Proto,
		ProtoMajor:    resp.ProtoMajor,
		ProtoMinor:    resp.ProtoMinor,
		Header:        resp.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(sr.body)),
		ContentLength: contentLength,
		Request:       req,
	}
}

// WithMockTransport replaces the base transport with mock.
func WithMockTransport(mock *MockTransport) Option {
	return func(cfg *internalConfig) {
		cfg.MockTransport = mock
	}
}
