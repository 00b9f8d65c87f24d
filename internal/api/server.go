// Package api implements the cloudrtd HTTP surface: the v1.0 capability
// endpoints plus health and metrics.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/binding"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/config"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/configstore"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/health"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/invoke"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/lock"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/objstore"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/pubsub"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/saas"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/secrets"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/state"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/native"
)

const maxBodyBytes = 32 << 20

// Deps carries the wired components the server routes to. Nil maps and nil
// services mean the capability is not configured; its endpoints then answer
// 501 with a CR_NOT_IMPLEMENTED envelope.
type Deps struct {
	Config config.Config
	Health *health.Manager

	States       map[string]state.Store
	Brokers      map[string]*pubsub.Broker
	ConfigStores map[string]*configstore.Store
	SecretStores map[string]secrets.Store
	LockStores   map[string]lock.Store
	FileStores   map[string]*objstore.Store

	SQL      native.SQL
	Invoker  *invoke.Proxy
	Bindings *binding.Registry

	Email *saas.Provider
	SMS   *saas.Provider
}

// Server serves the daemon API.
type Server struct {
	deps Deps
}

// NewServer builds the server from its wired dependencies.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// Router assembles the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	if s.deps.Config.RateLimit.Enabled {
		r.Use(rateLimitMiddleware(s.deps.Config.RateLimit))
	}

	r.Get("/healthz", s.deps.Health.Handler())
	r.Get("/readyz", s.deps.Health.ReadyHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1.0", func(r chi.Router) {
		r.Route("/state/{store}", func(r chi.Router) {
			r.Post("/", s.handleStateSave)
			r.Post("/bulk", s.handleStateGetBulk)
			r.Post("/transaction", s.handleStateTransaction)
			r.Get("/{key}", s.handleStateGet)
			r.Delete("/{key}", s.handleStateDelete)
		})

		r.Post("/publish/{pubsub}/{topic}", s.handlePublish)
		r.Get("/subscribe/{pubsub}/{topic}", s.handleSubscribe)

		r.Route("/configuration/{store}", func(r chi.Router) {
			r.Get("/", s.handleConfigGet)
			r.Post("/", s.handleConfigSave)
			r.Delete("/", s.handleConfigDelete)
			r.Get("/subscribe", s.handleConfigSubscribe)
		})

		r.Get("/secrets/{store}/bulk", s.handleSecretGetBulk)
		r.Get("/secrets/{store}/{key}", s.handleSecretGet)

		r.HandleFunc("/invoke/{appID}/method/*", s.handleInvoke)

		r.Get("/bindings", s.handleBindingList)
		r.Post("/bindings/{name}", s.handleBindingInvoke)

		r.Route("/lock/{store}", func(r chi.Router) {
			r.Post("/try", s.handleLockTry)
			r.Post("/unlock", s.handleLockUnlock)
			r.Post("/renew", s.handleLockRenew)
			r.Get("/{resource}", s.handleLockStatus)
		})

		r.Route("/files/{store}", func(r chi.Router) {
			r.Get("/", s.handleFileList)
			r.Post("/op", s.handleFileOp)
			r.Put("/*", s.handleFilePut)
			r.Get("/*", s.handleFileGet)
			r.Delete("/*", s.handleFileDelete)
		})

		r.Route("/objects/{store}", func(r chi.Router) {
			r.Get("/", s.handleBucketList)
			r.Post("/{bucket}", s.handleBucketCreate)
			r.Delete("/{bucket}", s.handleBucketDelete)
			r.Get("/{bucket}", s.handleObjectList)
			r.Put("/{bucket}/*", s.handleObjectPut)
			r.Get("/{bucket}/*", s.handleObjectGet)
			r.Delete("/{bucket}/*", s.handleObjectDelete)
		})

		r.Route("/saas", func(r chi.Router) {
			r.Post("/email", s.handleEmailSend)
			r.Post("/email/template", s.handleEmailTemplate)
			r.Get("/email/{id}/status", s.handleEmailStatus)
			r.Post("/sms", s.handleSMSSend)
			r.Post("/sms/template", s.handleSMSTemplate)
			r.Get("/sms/{id}/status", s.handleSMSStatus)
		})
	})

	return r
}

// Component lookups. A miss is the not-implemented case, never a plain 404:
// callers must be able to distinguish "no such key" from "no such runtime".

func (s *Server) stateStore(name string) (state.Store, error) {
	if store, ok := s.deps.States[name]; ok {
		return store, nil
	}
	return nil, notImplemented("state", name)
}

func (s *Server) broker(name string) (*pubsub.Broker, error) {
	if b, ok := s.deps.Brokers[name]; ok {
		return b, nil
	}
	return nil, notImplemented("pubsub", name)
}

func (s *Server) configStore(name string) (*configstore.Store, error) {
	if c, ok := s.deps.ConfigStores[name]; ok {
		return c, nil
	}
	return nil, notImplemented("configuration", name)
}

func (s *Server) secretStore(name string) (secrets.Store, error) {
	if st, ok := s.deps.SecretStores[name]; ok {
		return st, nil
	}
	return nil, notImplemented("secrets", name)
}

func (s *Server) lockStore(name string) (lock.Store, error) {
	if st, ok := s.deps.LockStores[name]; ok {
		return st, nil
	}
	return nil, notImplemented("lock", name)
}

func (s *Server) fileStore(name string) (*objstore.Store, error) {
	if st, ok := s.deps.FileStores[name]; ok {
		return st, nil
	}
	return nil, notImplemented("file", name)
}

// objectStore resolves the object capability. It shares the file store
// backends; buckets are the first-level directories.
func (s *Server) objectStore(name string) (*objstore.Store, error) {
	if st, ok := s.deps.FileStores[name]; ok {
		return st, nil
	}
	return nil, notImplemented("objectstore", name)
}
