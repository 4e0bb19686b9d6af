package restclient

import (
	"errors"
	"strconv"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncodingMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    EncodingMode
		wantErr bool
	}{
		{name: "given empty string, then returns form", input: "", want: EncodingURLForm},
		{name: "given form, then returns form", input: "form", want: EncodingURLForm},
		{name: "given urlformencoded, then returns form", input: "URLFormEncoded", want: EncodingURLForm},
		{name: "given json in upper case, then returns json", input: "JSON", want: EncodingJSON},
		{name: "given xml, then returns error", input: "xml", want: EncodingURLForm, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEncodingMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodingMode_Text(t *testing.T) {
	text, err := EncodingJSON.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "json", string(text))

	var mode EncodingMode
	require.NoError(t, mode.UnmarshalText([]byte("json")))
	assert.Equal(t, EncodingJSON, mode)

	assert.Error(t, mode.UnmarshalText([]byte("yaml")))
	assert.Equal(t, EncodingJSON, mode, "failed unmarshal leaves the value untouched")
}

func TestEncodeForm(t *testing.T) {
	tests := []struct {
		name string
		data map[string]string
		want string
	}{
		{
			name: "given nil map, then returns empty string",
			data: nil,
			want: "",
		},
		{
			name: "given unsorted keys, then sorts them",
			data: map[string]string{"b": "x y", "a": "1"},
			want: "a=1&b=x+y",
		},
		{
			name: "given reserved characters, then percent-encodes them",
			data: map[string]string{"q": "a&b=c", "path": "/x?y"},
			want: "path=%2Fx%3Fy&q=a%26b%3Dc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeForm(tt.data))
		})
	}
}

func TestEncodeBody(t *testing.T) {
	t.Run("given form mode, then emits one form Content-Type line", func(t *testing.T) {
		body, lines, err := encodeBody(EncodingURLForm, map[string]string{"a": "1", "b": "x y"})

		require.NoError(t, err)
		assert.Equal(t, "a=1&b=x+y", string(body))
		assert.Equal(t, []string{"Content-Type: application/x-www-form-urlencoded"}, lines)
	})

	t.Run("given json mode, then round-trips and sets Content-Length", func(t *testing.T) {
		data := map[string]string{"name": "Zoë", "quote": `say "hi"`}
		body, lines, err := encodeBody(EncodingJSON, data)
		require.NoError(t, err)

		var decoded map[string]string
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, data, decoded)

		assert.Equal(t, []string{
			"Content-Type: application/json; charset=utf-8",
			"Content-Length: " + strconv.Itoa(len(body)),
		}, lines)
	})

	t.Run("given json mode and nil data, then sends an empty object", func(t *testing.T) {
		body, _, err := encodeBody(EncodingJSON, nil)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(body))
	})

	t.Run("given json mode and invalid UTF-8, then returns EncodingError", func(t *testing.T) {
		_, _, err := encodeBody(EncodingJSON, map[string]string{"k": "\xff\xfe"})

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEncoding))
		assert.True(t, errors.Is(err, errInvalidUTF8))

		var encErr *EncodingError
		require.ErrorAs(t, err, &encErr)
		assert.Equal(t, EncodingJSON, encErr.Mode)
		assert.Contains(t, err.Error(), `value of key "k"`)
	})

	t.Run("given json mode and invalid UTF-8 key, then names the key", func(t *testing.T) {
		_, _, err := encodeBody(EncodingJSON, map[string]string{"\xff": "v"})

		require.Error(t, err)
		assert.True(t, errors.Is(err, errInvalidUTF8))
		assert.Contains(t, err.Error(), `key "\xff"`)
		assert.NotContains(t, err.Error(), "value of key")
	})
}

func TestAppendQuery(t *testing.T) {
	tests := []struct {
		name  string
		uri   string
		query string
		want  string
	}{
		{name: "given empty query, then returns uri unchanged", uri: "http://h/p", query: "", want: "http://h/p"},
		{name: "given plain uri, then adds question mark", uri: "http://h/p", query: "a=1", want: "http://h/p?a=1"},
		{name: "given existing query, then joins with ampersand", uri: "http://h/p?x=1", query: "a=1", want: "http://h/p?x=1&a=1"},
		{name: "given trailing question mark, then appends directly", uri: "http://h/p?", query: "a=1", want: "http://h/p?a=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, appendQuery(tt.uri, tt.query))
		})
	}
}
