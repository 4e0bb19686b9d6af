package restclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/restkit/restclient"

	// DefaultUserAgent is sent when no User-Agent header line is added.
	DefaultUserAgent = "Linux/Go restclient"
)

// =============================================================================
// Config
// =============================================================================

// Config holds the client configuration. Use DefaultConfig() and modify the
// fields you need, or load it from YAML with LoadConfig.
//
//	cfg := restclient.DefaultConfig()
//	cfg.Timeout = 5 * time.Second
//	cfg.DefaultEncoding = restclient.EncodingJSON
//
//	client := restclient.New(restclient.WithConfig(cfg))
type Config struct {
	// Timeout limits a single hop, from dial to the last body byte.
	// Zero means no timeout.
	//
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// DialTimeout is the maximum time to establish a TCP connection.
	//
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ResponseHeaderTimeout is the time to wait for response headers after
	// the request is written. Zero falls back to Timeout.
	//
	// Default: 0
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`

	// UserAgent is sent unless a User-Agent header line is added explicitly.
	//
	// Default: DefaultUserAgent
	UserAgent string `yaml:"user_agent"`

	// StrictVerbValidation rejects verbs outside GET, DELETE, POST and PUT
	// with an *InvalidVerbError instead of falling back to GET.
	//
	// Default: false
	StrictVerbValidation bool `yaml:"strict_verb_validation"`

	// RequestFullURI sends the absolute URI in the request line
	// ("GET http://host/path HTTP/1.1") instead of only the path.
	//
	// Default: true
	RequestFullURI bool `yaml:"request_full_uri"`

	// DefaultEncoding is the body encoding new builders start with.
	//
	// Default: EncodingURLForm
	DefaultEncoding EncodingMode `yaml:"default_encoding"`

	// LegacyGETContentType adds "Content-Type: text/html; charset=utf-8"
	// to GET requests for servers that expect it.
	//
	// Default: false
	LegacyGETContentType bool `yaml:"legacy_get_content_type"`

	// ServiceName labels spans, metrics and the circuit breaker.
	ServiceName string `yaml:"service_name"`

	// Debug enables request, response and payload logs.
	Debug bool `yaml:"debug"`

	// RateLimit throttles hops across all builders of a Client.
	// Zero RequestsPerSecond disables it.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		Timeout:               30 * time.Second,
		DialTimeout:           5 * time.Second,
		ResponseHeaderTimeout: 0,
		UserAgent:             DefaultUserAgent,
		StrictVerbValidation:  false,
		RequestFullURI:        true,
		DefaultEncoding:       EncodingURLForm,
		LegacyGETContentType:  false,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Keys missing from
// the file keep their default values.
//
//	timeout: 10s
//	user_agent: billing-sync/1.0
//	default_encoding: json
//	rate_limit:
//	  requests_per_second: 20
//	  burst: 5
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("restclient: read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML bytes on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("restclient: parse config: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return cfg, nil
}

// =============================================================================
// Internal Configuration
// =============================================================================

// internalConfig holds everything New needs to assemble a Client.
type internalConfig struct {
	Config Config

	// === OpenTelemetry ===

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *metrics

	// EnableNetworkTrace adds DNS/connect/TLS events to hop spans.
	EnableNetworkTrace bool

	Propagators propagation.TextMapPropagator

	// === Logging ===

	Logger    zerolog.Logger
	loggerSet bool

	// === Transport ===

	// Sender replaces the HTTP transport entirely.
	Sender Sender

	// MockTransport replaces the base http.Transport under the
	// instrumentation chain.
	MockTransport *MockTransport

	BreakerConfig *BreakerConfig
}

// newConfig creates a new internalConfig with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		Config:             DefaultConfig(),
		TracerProvider:     otel.GetTracerProvider(),
		MeterProvider:      otel.GetMeterProvider(),
		EnableNetworkTrace: true,
		Logger:             zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Config.UserAgent == "" {
		cfg.Config.UserAgent = DefaultUserAgent
	}
	if cfg.Config.Debug && !cfg.loggerSet {
		cfg.Logger = debugLogger
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Metric creation only fails on invalid instrument definitions; a nil
	// *metrics records nothing.
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates the base HTTP/1.1 transport.
func (cfg *internalConfig) buildTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.Config.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: cfg.Config.ResponseHeaderTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		DisableCompression:    true,
		ForceAttemptHTTP2:     false,
		// A non-nil empty map disables HTTP/2 negotiation.
		TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
}

// baseAttributes returns attributes common to all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.Config.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.Config.ServiceName))
	}
	return attrs
}

// =============================================================================
// Options
// =============================================================================

// Option configures a Client.
type Option func(*internalConfig)

// WithConfig replaces the whole Config. Apply it before the single-field
// options, which edit the Config in place.
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.Config = c
	}
}

// WithServiceName sets the name used on spans, metrics and the breaker.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.Config.ServiceName = name
	}
}

// WithTracerProvider sets the TracerProvider. Default: otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets the MeterProvider. Default: otel.GetMeterProvider().
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}

// WithPropagators sets the propagators injected into outgoing headers.
// Default: TraceContext and Baggage.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *internalConfig) {
		cfg.Propagators = p
	}
}

// WithDisableNetworkTrace turns off DNS, connect and TLS span events.
func WithDisableNetworkTrace() Option {
	return func(cfg *internalConfig) {
		cfg.EnableNetworkTrace = false
	}
}

// WithLogger sets the logger. Default: zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
		cfg.loggerSet = true
	}
}

// WithDebug enables request, response and payload logs. Without WithLogger
// they go to stdout.
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Config.Debug = enabled
	}
}

// WithUserAgent sets the default User-Agent.
func WithUserAgent(ua string) Option {
	return func(cfg *internalConfig) {
		cfg.Config.UserAgent = ua
	}
}

// WithTimeout sets the per-hop timeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *internalConfig) {
		cfg.Config.Timeout = d
	}
}

// WithStrictVerbValidation makes invalid verbs an error instead of GET.
func WithStrictVerbValidation(strict bool) Option {
	return func(cfg *internalConfig) {
		cfg.Config.StrictVerbValidation = strict
	}
}

// WithRequestFullURI toggles the absolute-form request line.
func WithRequestFullURI(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Config.RequestFullURI = enabled
	}
}

// WithDefaultEncoding sets the encoding new builders start with.
func WithDefaultEncoding(mode EncodingMode) Option {
	return func(cfg *internalConfig) {
		cfg.Config.DefaultEncoding = mode
	}
}

// WithLegacyGETContentType adds "Content-Type: text/html; charset=utf-8"
// to GET requests.
func WithLegacyGETContentType(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Config.LegacyGETContentType = enabled
	}
}

// WithRateLimit throttles hops across every builder of the Client.
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.Config.RateLimit = rl
	}
}

// WithCircuitBreaker wraps hops in a circuit breaker.
//
//	client := restclient.New(
//	    restclient.WithServiceName("inventory"),
//	    restclient.WithCircuitBreaker(restclient.DefaultBreakerConfig()),
//	)
func WithCircuitBreaker(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = &bc
	}
}

// WithSender replaces the HTTP transport with s. Telemetry on hops, the
// breaker and the rate limiter live in HTTPSender and are bypassed.
func WithSender(s Sender) Option {
	return func(cfg *internalConfig) {
		cfg.Sender = s
	}
}
