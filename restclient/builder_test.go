package restclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"syscall"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"
)

const testBaseURL = "http://api.test"

func newMockClient(mock *MockTransport, opts ...Option) *Client {
	all := append([]Option{WithMockTransport(mock), WithDisableNetworkTrace()}, opts...)
	return New(all...)
}

func TestClient_Request(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		data       map[string]string
		wantMethod Method
		wantBody   map[string]string
		wantQuery  string
	}{
		{
			name:       "given empty method, then defaults to GET and data becomes the query",
			method:     "",
			data:       map[string]string{"q": "go lang"},
			wantMethod: MethodGet,
			wantQuery:  "q=go+lang",
		},
		{
			name:       "given lower-case post, then normalises and data becomes the body",
			method:     "post",
			data:       map[string]string{"a": "1"},
			wantMethod: MethodPost,
			wantBody:   map[string]string{"a": "1"},
		},
		{
			name:       "given Put, then normalises to PUT",
			method:     "Put",
			data:       map[string]string{"id": "9"},
			wantMethod: MethodPut,
			wantBody:   map[string]string{"id": "9"},
		},
		{
			name:       "given delete, then data is kept as body but not sent",
			method:     "delete",
			data:       map[string]string{"id": "9"},
			wantMethod: MethodDelete,
			wantBody:   map[string]string{"id": "9"},
		},
		{
			name:       "given unknown verb in lenient mode, then falls back to GET",
			method:     "PATCH",
			data:       map[string]string{"a": "1"},
			wantMethod: MethodGet,
			wantQuery:  "a=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := New().Request(testBaseURL+"/x", tt.method, tt.data)

			assert.Equal(t, tt.wantMethod, rb.Method())
			assert.Equal(t, tt.wantBody, rb.PostData())
			assert.Equal(t, tt.wantQuery, rb.query)
			assert.NoError(t, rb.Err())
			assert.Equal(t, testBaseURL+"/x", rb.URI())
		})
	}
}

func TestRequestBuilder_StrictVerbValidation(t *testing.T) {
	t.Run("given invalid verb at construction, then records error and refuses to send", func(t *testing.T) {
		mock := NewMockTransport().StubResponse(http.StatusOK, "")
		client := newMockClient(mock, WithStrictVerbValidation(true))

		rb := client.Request(testBaseURL, "PATCH", nil)

		assert.Equal(t, MethodGet, rb.Method())
		require.Error(t, rb.Err())
		assert.True(t, errors.Is(rb.Err(), ErrInvalidVerb))

		res, err := rb.SendRequest(context.Background())
		assert.Nil(t, res)
		assert.Equal(t, rb.Err(), err)
		assert.Zero(t, mock.RequestCount())
	})

	t.Run("given invalid SetMethod, then keeps previous method", func(t *testing.T) {
		client := New(WithStrictVerbValidation(true))

		rb := client.Request(testBaseURL, "PUT", nil).SetMethod("TRACE")

		assert.Equal(t, MethodPut, rb.Method())
		var verbErr *InvalidVerbError
		require.ErrorAs(t, rb.Err(), &verbErr)
		assert.Equal(t, "TRACE", verbErr.Verb)
	})

	t.Run("given error recorded, then a later valid SetMethod does not clear it", func(t *testing.T) {
		client := New(WithStrictVerbValidation(true))

		rb := client.Request(testBaseURL, "HEAD", nil).SetMethod("post")

		assert.Equal(t, MethodPost, rb.Method())
		assert.Error(t, rb.Err())
	})

	t.Run("given empty SetMethod in strict mode, then records InvalidVerbError", func(t *testing.T) {
		client := New(WithStrictVerbValidation(true))

		rb := client.Request(testBaseURL, "POST", map[string]string{"a": "1"}).SetMethod("")

		assert.Equal(t, MethodPost, rb.Method())
		var verbErr *InvalidVerbError
		require.ErrorAs(t, rb.Err(), &verbErr)
		assert.Empty(t, verbErr.Verb)
	})

	t.Run("given empty method at construction in strict mode, then uses GET without error", func(t *testing.T) {
		rb := New(WithStrictVerbValidation(true)).Request(testBaseURL, "", nil)

		assert.Equal(t, MethodGet, rb.Method())
		assert.NoError(t, rb.Err())
	})

	t.Run("given empty SetMethod in lenient mode, then falls back to GET", func(t *testing.T) {
		rb := New().Request(testBaseURL, "POST", nil).SetMethod("")

		assert.Equal(t, MethodGet, rb.Method())
		assert.NoError(t, rb.Err())
	})

	t.Run("given lenient mode, then SetMethod falls back to GET", func(t *testing.T) {
		rb := New().Request(testBaseURL, "PUT", nil).SetMethod("TRACE")

		assert.Equal(t, MethodGet, rb.Method())
		assert.NoError(t, rb.Err())
	})
}

func TestRequestBuilder_Setters(t *testing.T) {
	t.Run("given SetBody twice, then replaces wholesale", func(t *testing.T) {
		rb := New().Request(testBaseURL, "POST", map[string]string{"a": "1"}).
			SetBody(map[string]string{"b": "2"})

		assert.Equal(t, map[string]string{"b": "2"}, rb.PostData())
	})

	t.Run("given caller mutates the map, then builder keeps its copy", func(t *testing.T) {
		data := map[string]string{"a": "1"}
		rb := New().Request(testBaseURL, "POST", nil).SetBody(data)

		data["a"] = "changed"
		got := rb.PostData()
		got["b"] = "added"

		assert.Equal(t, map[string]string{"a": "1"}, rb.PostData())
	})

	t.Run("given headers added, then preserves order and duplicates", func(t *testing.T) {
		rb := New().Request(testBaseURL, "GET", nil).
			AddHeader("A: 1").
			AddHeader("B: 2").
			AddHeader("A: 1")

		headers := rb.Headers()
		assert.Equal(t, []string{"A: 1", "B: 2", "A: 1"}, headers)

		headers[0] = "changed"
		assert.Equal(t, "A: 1", rb.Headers()[0])
	})

	t.Run("given both encoding calls, then last call wins", func(t *testing.T) {
		rb := New().Request(testBaseURL, "POST", nil)

		assert.Equal(t, EncodingURLForm, rb.Encoding())
		assert.Equal(t, EncodingURLForm, rb.SendAsJSON().SendAsURLFormEncoded().Encoding())
		assert.Equal(t, EncodingJSON, rb.SendAsURLFormEncoded().SendAsJSON().Encoding())
	})

	t.Run("given default encoding configured, then new builders start with it", func(t *testing.T) {
		rb := New(WithDefaultEncoding(EncodingJSON)).Request(testBaseURL, "POST", nil)
		assert.Equal(t, EncodingJSON, rb.Encoding())
	})

	t.Run("given SetURI, then replaces target", func(t *testing.T) {
		rb := New().Request(testBaseURL+"/a", "GET", nil).SetURI(testBaseURL + "/b")
		assert.Equal(t, testBaseURL+"/b", rb.URI())
	})
}

func TestRequestBuilder_LastResult_BeforeSend(t *testing.T) {
	rb := New().Request(testBaseURL, "GET", nil)

	res := rb.LastResult()
	require.NotNil(t, res)
	assert.Zero(t, res.StatusCode)

	decoded, err := res.Decoded()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, decoded)
}

func TestRequestBuilder_SendRequest_Bodies(t *testing.T) {
	tests := []struct {
		name             string
		method           string
		data             map[string]string
		query            map[string]string
		json             bool
		legacyGET        bool
		wantBody         string
		wantContentTypes []string
		wantRawQuery     string
	}{
		{
			name:             "given POST form, then sends sorted form body with one Content-Type",
			method:           "POST",
			data:             map[string]string{"b": "x y", "a": "1"},
			wantBody:         "a=1&b=x+y",
			wantContentTypes: []string{ContentTypeForm},
		},
		{
			name:             "given PUT json, then sends JSON object",
			method:           "PUT",
			data:             map[string]string{"name": "Ada"},
			json:             true,
			wantBody:         `{"name":"Ada"}`,
			wantContentTypes: []string{ContentTypeJSON},
		},
		{
			name:             "given POST with no data, then sends empty form body",
			method:           "POST",
			wantBody:         "",
			wantContentTypes: []string{ContentTypeForm},
		},
		{
			name:         "given GET with data, then sends query and no body",
			method:       "GET",
			data:         map[string]string{"q": "a b"},
			wantRawQuery: "q=a+b",
		},
		{
			name:             "given GET with legacy content type, then sends text/html line",
			method:           "GET",
			legacyGET:        true,
			wantContentTypes: []string{"text/html; charset=utf-8"},
		},
		{
			name:         "given GET with SetGetQueryString, then replaces the constructor query",
			method:       "GET",
			data:         map[string]string{"q": "old"},
			query:        map[string]string{"page": "2", "q": "new"},
			wantRawQuery: "page=2&q=new",
		},
		{
			name:             "given POST with SetGetQueryString, then leaves URI and body untouched",
			method:           "POST",
			data:             map[string]string{"a": "1"},
			query:            map[string]string{"page": "2"},
			wantBody:         "a=1",
			wantContentTypes: []string{ContentTypeForm},
		},
		{
			name:   "given DELETE with data, then sends no body and no Content-Type",
			method: "DELETE",
			data:   map[string]string{"id": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockTransport().StubResponse(http.StatusOK, "")
			client := newMockClient(mock, WithLegacyGETContentType(tt.legacyGET))

			rb := client.Request(testBaseURL+"/items", tt.method, tt.data)
			if tt.json {
				rb.SendAsJSON()
			}
			if tt.query != nil {
				rb.SetGetQueryString(tt.query)
			}

			_, err := rb.SendRequest(context.Background())
			require.NoError(t, err)
			require.Equal(t, 1, mock.RequestCount())

			req := mock.LastRequest()
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.wantBody, string(mock.RequestBodies()[0]))
			assert.Equal(t, tt.wantContentTypes, req.Header.Values("Content-Type"))
			assert.Equal(t, tt.wantRawQuery, req.URL.RawQuery)
			assert.Equal(t, "/items", req.URL.Path)
		})
	}
}

func TestRequestBuilder_SendRequest_JSONRoundTrip(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusOK, `{"ok":true}`)
	client := newMockClient(mock)

	data := map[string]string{"user": "zoë", "note": `a "quoted" & <tagged> value`}
	res, err := client.Request(testBaseURL+"/users/1", "PUT", data).
		SendAsJSON().
		SendRequest(context.Background())
	require.NoError(t, err)

	body := mock.RequestBodies()[0]
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, data, decoded)

	req := mock.LastRequest()
	assert.Equal(t, int64(len(body)), req.ContentLength)
	assert.Equal(t, []string{strconv.Itoa(len(body))}, req.Header.Values("Content-Length"))

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, res.Get("ok").Bool())

	got, err := res.Decoded()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, got)
}

func TestRequestBuilder_SendRequest_Redirects(t *testing.T) {
	t.Run("given one 301, then follows once with identical payload", func(t *testing.T) {
		mock := NewMockTransport().
			StubRedirect("/old", http.StatusMovedPermanently, "/new").
			StubPath("/new", http.StatusOK, `{"moved":true}`)
		client := newMockClient(mock)

		rb := client.Request(testBaseURL+"/old", "POST", map[string]string{"a": "1"}).
			AddHeader("X-Trace: abc").
			SendAsJSON()

		res, err := rb.SendRequest(context.Background())
		require.NoError(t, err)

		require.Equal(t, 2, mock.RequestCount())
		reqs := mock.Requests()
		bodies := mock.RequestBodies()

		assert.Equal(t, http.MethodPost, reqs[1].Method)
		assert.Equal(t, "/new", reqs[1].URL.Path)
		assert.Equal(t, bodies[0], bodies[1])
		assert.Equal(t, reqs[0].Header.Values("X-Trace"), reqs[1].Header.Values("X-Trace"))
		assert.Equal(t, reqs[0].Header.Values("Content-Type"), reqs[1].Header.Values("Content-Type"))

		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.True(t, res.Redirected)
		assert.Equal(t, testBaseURL+"/new", res.URI)
		assert.True(t, res.Get("moved").Bool())
		assert.Same(t, res, rb.LastResult())
	})

	t.Run("given two redirects, then returns the second verbatim", func(t *testing.T) {
		second := newStubResponse(http.StatusMovedPermanently, "second", http.Header{"Location": {"/c"}})
		mock := NewMockTransport().
			StubRedirect("/a", http.StatusFound, testBaseURL+"/b").
			StubFuncResponse(func(r *http.Request) bool { return r.URL.Path == "/b" }, second).
			StubPath("/c", http.StatusOK, "third")
		client := newMockClient(mock)

		res, err := client.Request(testBaseURL+"/a", "GET", nil).SendRequest(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, mock.RequestCount())
		assert.Equal(t, http.StatusMovedPermanently, res.StatusCode)
		assert.Equal(t, "second", res.String())
		assert.Equal(t, "/c", res.Header("Location"))
		assert.True(t, res.IsRedirect())
	})

	t.Run("given redirect without Location, then returns the 3xx", func(t *testing.T) {
		mock := NewMockTransport().StubRedirect("/x", http.StatusFound, "")
		client := newMockClient(mock)

		res, err := client.Request(testBaseURL+"/x", "GET", nil).SendRequest(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, mock.RequestCount())
		assert.Equal(t, http.StatusFound, res.StatusCode)
		assert.False(t, res.Redirected)
	})

	t.Run("given 303, then does not follow", func(t *testing.T) {
		mock := NewMockTransport().StubRedirect("/x", http.StatusSeeOther, "/y")
		client := newMockClient(mock)

		res, err := client.Request(testBaseURL+"/x", "POST", nil).SendRequest(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, mock.RequestCount())
		assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	})
}

func TestRequestBuilder_SendRequest_Errors(t *testing.T) {
	t.Run("given no URI, then returns ErrMissingURI", func(t *testing.T) {
		_, err := New().Request("", "GET", nil).SendRequest(context.Background())
		assert.ErrorIs(t, err, ErrMissingURI)
	})

	t.Run("given invalid UTF-8 in json body, then returns EncodingError without sending", func(t *testing.T) {
		mock := NewMockTransport().StubResponse(http.StatusOK, "")
		client := newMockClient(mock)

		_, err := client.Request(testBaseURL, "POST", map[string]string{"k": "\xff"}).
			SendAsJSON().
			SendRequest(context.Background())

		assert.ErrorIs(t, err, ErrEncoding)
		assert.Zero(t, mock.RequestCount())
	})

	t.Run("given transport failure, then returns TransportError and keeps last result", func(t *testing.T) {
		mock := NewMockTransport().StubResponse(http.StatusOK, `{"n":1}`)
		client := newMockClient(mock)
		rb := client.Request(testBaseURL+"/n", "GET", nil)

		first, err := rb.SendRequest(context.Background())
		require.NoError(t, err)

		mock.Reset()
		mock.StubError(syscall.ECONNREFUSED)

		res, err := rb.SendRequest(context.Background())
		assert.Nil(t, res)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, syscall.ECONNREFUSED)

		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, ErrorTypeConnectionRefused, terr.Kind)
		assert.Equal(t, MethodGet, terr.Method)

		assert.Same(t, first, rb.LastResult())
	})

	t.Run("given HTTP 500, then returns result without error", func(t *testing.T) {
		mock := NewMockTransport().StubResponse(http.StatusInternalServerError, "oops")
		client := newMockClient(mock)

		res, err := client.Request(testBaseURL, "DELETE", nil).SendRequest(context.Background())
		require.NoError(t, err)
		assert.True(t, res.IsError())
		assert.Equal(t, "HTTP/1.1 500 Internal Server Error", res.StatusLine)
	})
}

func TestRequestBuilder_SendRequest_Telemetry(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	mock := NewMockTransport().
		StubRedirect("/old", http.StatusFound, "/new").
		StubPath("/new", http.StatusOK, "")
	client := newMockClient(mock, WithTracerProvider(tp))

	_, err := client.Request(testBaseURL+"/old", "POST", nil).SendRequest(context.Background())
	require.NoError(t, err)

	spans := exporter.GetSpans().Snapshots()
	require.Len(t, spans, 3)

	var root sdktrace.ReadOnlySpan
	hops := 0
	for _, s := range spans {
		switch s.Name() {
		case "RestClient POST":
			root = s
		case "HTTP POST":
			hops++
		}
	}
	require.NotNil(t, root)
	assert.Equal(t, 2, hops)

	for _, s := range spans {
		if s.Name() == "HTTP POST" {
			assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
		}
	}

	require.Len(t, root.Events(), 1)
	assert.Equal(t, "redirect", root.Events()[0].Name)

	sendID, ok := spanAttr(root, "restclient.send_id")
	require.True(t, ok)
	assert.NotEmpty(t, sendID.AsString())
}

func TestRequestBuilder_SendRequest_DebugLogging(t *testing.T) {
	var logs bytes.Buffer
	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := newMockClient(mock, WithLogger(zerolog.New(&logs)), WithDebug(true))

	_, err := client.Request(testBaseURL, "POST", map[string]string{"a": "1"}).
		SendRequest(context.Background())
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "restclient payload")
	assert.Contains(t, out, `"body":"a=1"`)
	assert.Contains(t, out, "HTTP response")
	assert.Contains(t, out, `"send_id":"`)
}

func TestRequestBuilder_ParallelBuilders(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusOK, `{"ok":true}`)
	client := newMockClient(mock)

	const n = 20
	results := make([]*Result, n)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			res, err := client.Request(testBaseURL+"/jobs", "POST",
				map[string]string{"id": strconv.Itoa(i)}).
				SendAsJSON().
				SendRequest(ctx)
			if err != nil {
				return fmt.Errorf("builder %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, n, mock.RequestCount())
	for i, res := range results {
		require.NotNil(t, res, "result %d", i)
		assert.True(t, res.IsSuccess())
	}

	seen := make(map[string]bool, n)
	for _, body := range mock.RequestBodies() {
		var decoded map[string]string
		require.NoError(t, json.Unmarshal(body, &decoded))
		seen[decoded["id"]] = true
	}
	assert.Len(t, seen, n)
}
