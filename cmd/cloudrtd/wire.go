package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/api"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/binding"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/config"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/configstore"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/health"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/invoke"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/lock"
	crtlog "github.com/cloud-runtimes/cloudruntimes-go/internal/log"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/objstore"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/pubsub"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/saas"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/secrets"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/sqlstore"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/state"
)

// wire builds every configured component. The returned cleanup closes them
// in reverse construction order.
func wire(cfg config.Config) (api.Deps, func(), error) {
	logger := crtlog.WithComponent("wiring")

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn().Err(err).Msg("component close failed")
			}
		}
	}
	fail := func(err error) (api.Deps, func(), error) {
		cleanup()
		return api.Deps{}, func() {}, err
	}

	deps := api.Deps{
		Config: cfg,
		Health: health.NewManager(cfg.Version),

		States:       make(map[string]state.Store, len(cfg.StateStores)),
		Brokers:      make(map[string]*pubsub.Broker, len(cfg.PubSubs)),
		ConfigStores: make(map[string]*configstore.Store, len(cfg.ConfigStores)),
		SecretStores: make(map[string]secrets.Store, len(cfg.SecretStores)),
		LockStores:   make(map[string]lock.Store, len(cfg.LockStores)),
		FileStores:   make(map[string]*objstore.Store, len(cfg.FileStores)),
	}

	for _, sc := range cfg.StateStores {
		var store state.Store
		var err error
		switch sc.Driver {
		case config.DriverMemory:
			store = state.NewMemoryStore()
		case config.DriverBadger:
			path := sc.Path
			if path == "" {
				path = filepath.Join(cfg.DataDir, "state", sc.Name)
			}
			store, err = state.OpenBadgerStore(path)
		case config.DriverRedis:
			store, err = state.NewRedisStore(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB)
		}
		if err != nil {
			return fail(fmt.Errorf("state store %q: %w", sc.Name, err))
		}
		deps.States[sc.Name] = store
		closers = append(closers, store.Close)

		name := sc.Name
		deps.Health.Register(health.CheckerFunc{
			CheckerName: "state/" + name,
			Fn:          func(ctx context.Context) error { return deps.States[name].Ping(ctx) },
		})
	}

	for _, pc := range cfg.PubSubs {
		broker := pubsub.NewBroker(pc.Name, pc.BufferSize)
		deps.Brokers[pc.Name] = broker
		closers = append(closers, func() error { broker.Close(); return nil })
	}

	for _, cc := range cfg.ConfigStores {
		store, err := configstore.New(cc.Name, cc.Path, cc.Watch)
		if err != nil {
			return fail(err)
		}
		deps.ConfigStores[cc.Name] = store
		closers = append(closers, store.Close)
	}

	for _, sc := range cfg.SecretStores {
		switch sc.Driver {
		case config.DriverEnv:
			deps.SecretStores[sc.Name] = secrets.NewEnvStore(sc.Name, sc.Prefix)
		case config.DriverFile:
			store, err := secrets.NewFileStore(sc.Name, sc.Path)
			if err != nil {
				return fail(err)
			}
			deps.SecretStores[sc.Name] = store
		}
	}

	for _, lc := range cfg.LockStores {
		var store lock.Store
		var err error
		switch lc.Driver {
		case config.DriverMemory:
			store = lock.NewMemoryStore(lc.Name)
		case config.DriverRedis:
			store, err = lock.NewRedisStore(lc.Name, lc.Redis.Addr, lc.Redis.Password, lc.Redis.DB)
		}
		if err != nil {
			return fail(fmt.Errorf("lock store %q: %w", lc.Name, err))
		}
		deps.LockStores[lc.Name] = store
		closers = append(closers, store.Close)
	}

	for _, fc := range cfg.FileStores {
		store, err := objstore.New(fc.Name, fc.Root)
		if err != nil {
			return fail(err)
		}
		deps.FileStores[fc.Name] = store
	}

	if cfg.SQL.Enabled {
		svc, err := sqlstore.Open(cfg.SQL.Path, sqlstore.DefaultConfig())
		if err != nil {
			return fail(err)
		}
		deps.SQL = svc
		closers = append(closers, svc.Close)
		deps.Health.Register(health.CheckerFunc{CheckerName: "sql", Fn: svc.Ping})
	}

	if len(cfg.Apps) > 0 {
		proxy := invoke.NewProxy(nil, 0)
		for _, app := range cfg.Apps {
			proxy.Register(app.ID, app.BaseURL)
		}
		deps.Invoker = proxy
	}

	if len(cfg.Bindings) > 0 {
		registry := binding.NewRegistry(nil)
		for _, bc := range cfg.Bindings {
			registry.Register(bc.Name, bc.Direction, bc.URL, bc.Metadata)
		}
		deps.Bindings = registry
	}

	if cfg.SaaS.EmailEnabled || cfg.SaaS.SMSEnabled {
		outboxStore, ok := deps.States[cfg.SaaS.OutboxStore]
		if !ok {
			return fail(fmt.Errorf("saas: outbox_store %q is not a configured state store", cfg.SaaS.OutboxStore))
		}
		provider := saas.NewProvider(saas.NewOutbox(outboxStore), cfg.SaaS.TemplateDir)
		if cfg.SaaS.EmailEnabled {
			deps.Email = provider
		}
		if cfg.SaaS.SMSEnabled {
			deps.SMS = provider
		}
	}

	return deps, cleanup, nil
}
