// Package client is the Cloud Runtimes SDK entry point. A Client talks to
// the local sidecar daemon (cloudrtd) over HTTP and exposes the capability
// namespaces: core (state, invocation, pub/sub, configuration, secrets,
// bindings), enhanced (lock, file, telemetry), native (redis, sql, object
// store) and saas (email, sms, encryption).
//
// Capabilities the runtime does not provide never succeed silently: the
// daemon answers 501 for unconfigured components, and namespaces that need
// local configuration the client was not given (Redis, SQL) return stubs
// whose every method fails with cloudruntimes.ErrNotImplemented.
package client

import (
	"github.com/rs/zerolog"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/sqlstore"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/native"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/saas"
)

// Client is the Cloud Runtimes client facade.
type Client struct {
	t      *transport
	logger zerolog.Logger

	state      *stateClient
	invocation *invocationClient
	pubsub     *pubsubClient
	config     *configurationClient
	secrets    *secretsClient
	binding    *bindingClient

	lock      *lockClient
	file      *fileClient
	telemetry *telemetryClient

	redis native.Redis
	sql   native.SQL

	email      *emailClient
	sms        *smsClient
	encryption encryptionClient
}

// New builds a client against the sidecar at http://localhost:3500 unless
// options say otherwise.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	t, err := newTransport(o.endpoint, o.httpClient, o.timeout, o.appID, o.logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		t:      t,
		logger: o.logger,

		state:      &stateClient{t: t},
		invocation: &invocationClient{t: t},
		pubsub:     newPubSubClient(t),
		config:     newConfigurationClient(t),
		secrets:    &secretsClient{t: t},
		binding:    &bindingClient{t: t},

		lock:      &lockClient{t: t},
		file:      &fileClient{t: t},
		telemetry: newTelemetryClient(),

		redis: notImplementedRedis{},
		sql:   notImplementedSQL{},

		email: &emailClient{t: t},
		sms:   &smsClient{t: t},
	}

	if o.redisAddr != "" {
		rdb, err := newRedisClient(o.redisAddr, o.redisPassword, o.redisDB)
		if err != nil {
			return nil, err
		}
		c.redis = rdb
	}
	if o.sqlPath != "" {
		svc, err := sqlstore.Open(o.sqlPath, sqlstore.DefaultConfig())
		if err != nil {
			return nil, err
		}
		c.sql = svc
	}

	return c, nil
}

// State is the state management namespace.
func (c *Client) State() core.State { return c.state }

// Invocation is the service invocation namespace.
func (c *Client) Invocation() core.Invocation { return c.invocation }

// PubSub is the publish/subscribe namespace.
func (c *Client) PubSub() core.PubSub { return c.pubsub }

// Configuration is the configuration management namespace.
func (c *Client) Configuration() core.Configuration { return c.config }

// Secrets is the secret management namespace.
func (c *Client) Secrets() core.Secrets { return c.secrets }

// Binding is the resource binding namespace.
func (c *Client) Binding() core.Binding { return c.binding }

// Lock is the distributed lock namespace.
func (c *Client) Lock() enhanced.Lock { return c.lock }

// File is the file access namespace.
func (c *Client) File() enhanced.File { return c.file }

// Telemetry is the observability namespace.
func (c *Client) Telemetry() enhanced.Telemetry { return c.telemetry }

// Redis is the native Redis namespace. Without WithRedis it fails every
// call with CR_NOT_IMPLEMENTED.
func (c *Client) Redis() native.Redis { return c.redis }

// SQL is the native SQL namespace. Without WithSQL it fails every call with
// CR_NOT_IMPLEMENTED.
func (c *Client) SQL() native.SQL { return c.sql }

// ObjectStore is the object storage namespace backed by the named daemon
// store.
func (c *Client) ObjectStore(store string) native.ObjectStore {
	return &objectStoreClient{t: c.t, store: store}
}

// Email is the transactional email namespace.
func (c *Client) Email() saas.Email { return c.email }

// SMS is the text message namespace.
func (c *Client) SMS() saas.SMS { return c.sms }

// Encryption is the in-process cryptographic namespace.
func (c *Client) Encryption() saas.Encryption { return c.encryption }

// Close cancels active subscriptions and releases native connections.
func (c *Client) Close() error {
	c.pubsub.close()
	c.config.close()

	var firstErr error
	if err := c.redis.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.sql.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
