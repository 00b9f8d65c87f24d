package client

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultEndpoint is the sidecar address used when no endpoint option
	// is given.
	DefaultEndpoint = "http://localhost:3500"
	// DefaultTimeout bounds each sidecar call unless overridden.
	DefaultTimeout = 30 * time.Second
)

type options struct {
	endpoint   string
	timeout    time.Duration
	appID      string
	httpClient *http.Client
	logger     zerolog.Logger

	redisAddr     string
	redisPassword string
	redisDB       int

	sqlPath string
}

func defaultOptions() options {
	return options{
		endpoint: DefaultEndpoint,
		timeout:  DefaultTimeout,
		logger:   zerolog.Nop(),
	}
}

// Option configures the client.
type Option func(*options)

// WithEndpoint points the client at a sidecar other than localhost:3500.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithTimeout sets the per-call timeout. Zero disables it, leaving only the
// caller's context deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithAppID identifies the calling application to the sidecar.
func WithAppID(appID string) Option {
	return func(o *options) { o.appID = appID }
}

// WithHTTPClient substitutes the underlying HTTP client, e.g. for custom
// TLS or proxy settings. The caller keeps ownership.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRedis enables the native Redis namespace against the given server.
// Without this option Redis() returns the not-implemented stub.
func WithRedis(addr, password string, db int) Option {
	return func(o *options) {
		o.redisAddr = addr
		o.redisPassword = password
		o.redisDB = db
	}
}

// WithSQL enables the native SQL namespace on a local SQLite database.
// Without this option SQL() returns the not-implemented stub.
func WithSQL(path string) Option {
	return func(o *options) { o.sqlPath = path }
}
