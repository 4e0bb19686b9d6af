// Package restclient provides a fluent builder for single, synchronous
// HTTP requests with OpenTelemetry instrumentation.
//
// # Quick Start
//
//	client := restclient.New(restclient.WithServiceName("my-service"))
//
//	res, err := client.Request("https://api.example.com/users", "POST",
//	    map[string]string{"name": "Ada"}).
//	    SendAsJSON().
//	    SendRequest(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.StatusCode, res.Get("id").String())
//
// # Verbs
//
// GET, DELETE, POST and PUT are accepted, case-insensitively. GET data is
// sent as the query string; POST and PUT data as the body; DELETE sends no
// body. Unknown verbs fall back to GET unless WithStrictVerbValidation is
// set, in which case the builder records an *InvalidVerbError.
//
// # Bodies
//
// Bodies are URL-form-encoded by default (keys sorted, spaces as '+').
// SendAsJSON switches to a JSON object with a Content-Length line. The last
// of SendAsJSON and SendAsURLFormEncoded wins.
//
// # Redirects
//
// A 301 or 302 response with a Location header is followed once, with the
// same verb, header lines and body. Anything after that is returned as-is.
//
// # Configuration
//
// Config can be built in code from DefaultConfig or loaded from YAML:
//
//	cfg, err := restclient.LoadConfig("restclient.yaml")
//	client := restclient.New(restclient.WithConfig(cfg))
//
// # Testing
//
// Use MockTransport to stub responses under the real transport chain, or
// the mocks package to replace the Sender entirely.
package restclient
