package restclient

import (
	"github.com/rs/zerolog"
)

// Client creates RequestBuilders that share one configuration, one logger
// and one transport chain. A Client is safe for concurrent use; the builders
// it creates are not.
//
//	client := restclient.New(
//	    restclient.WithServiceName("billing"),
//	    restclient.WithDefaultEncoding(restclient.EncodingJSON),
//	)
//
//	res, err := client.Request("https://api.example.com/invoices", "post",
//	    map[string]string{"customer": "42"}).
//	    AddHeader("Authorization: Bearer " + token).
//	    SendRequest(ctx)
type Client struct {
	config *internalConfig
	sender Sender
	logger zerolog.Logger
}

// New creates a Client. Without WithSender, requests go through an
// HTTPSender built from the same options.
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	sender := cfg.Sender
	if sender == nil {
		sender = newHTTPSender(cfg)
	}

	return &Client{
		config: cfg,
		sender: sender,
		logger: cfg.Logger,
	}
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.config.Config
}

// Request creates a RequestBuilder for uri.
//
// An empty method means GET. For GET, data becomes the query string;
// for any other verb it becomes the body, encoded when the request is sent.
func (c *Client) Request(uri, method string, data map[string]string) *RequestBuilder {
	rb := &RequestBuilder{
		client:   c,
		uri:      uri,
		method:   MethodGet,
		encoding: c.config.Config.DefaultEncoding,
	}

	if method != "" {
		rb.SetMethod(method)
	}
	if rb.method == MethodGet {
		rb.SetGetQueryString(data)
	} else {
		rb.SetBody(data)
	}

	return rb
}
