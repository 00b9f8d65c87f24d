package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/binding"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/invoke"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/lock"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/log"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/objstore"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/pubsub"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/saas"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/secrets"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/state"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// notImplemented builds the envelope for an unconfigured component.
func notImplemented(capability, name string) error {
	return cloudruntimes.NotImplementedf(capability).WithDetail("name", name)
}

// writeError renders err as the coded JSON envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	coded := classify(err)
	status := cloudruntimes.HTTPStatus(coded.Code)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).Error().Err(err).Str("code", coded.Code).Msg("request failed")
	}
	writeJSON(w, status, coded)
}

// classify maps component errors onto the coded taxonomy. Errors that are
// already coded pass through.
func classify(err error) *cloudruntimes.Error {
	var coded *cloudruntimes.Error
	if errors.As(err, &coded) {
		return coded
	}

	switch {
	case errors.Is(err, state.ErrKeyNotFound),
		errors.Is(err, secrets.ErrSecretNotFound),
		errors.Is(err, objstore.ErrNotFound),
		errors.Is(err, invoke.ErrAppNotFound),
		errors.Is(err, binding.ErrBindingNotFound),
		errors.Is(err, saas.ErrMessageNotFound),
		errors.Is(err, saas.ErrTemplateNotFound):
		return cloudruntimes.Wrap(cloudruntimes.CodeNotFound, err, err.Error())

	case errors.Is(err, state.ErrETagMismatch),
		errors.Is(err, lock.ErrNotHeld),
		errors.Is(err, objstore.ErrBucketNotEmpty):
		return cloudruntimes.Wrap(cloudruntimes.CodeConflict, err, err.Error())

	case errors.Is(err, objstore.ErrInvalidPath),
		errors.Is(err, binding.ErrUnsupportedOperation),
		errors.Is(err, saas.ErrValidation):
		return cloudruntimes.Wrap(cloudruntimes.CodeParam, err, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return cloudruntimes.Wrap(cloudruntimes.CodeTimeout, err, "operation timed out")

	case errors.Is(err, pubsub.ErrBrokerClosed):
		return cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "pubsub shutting down")

	default:
		return cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, err.Error())
	}
}

// decodeBody parses a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "invalid request body: %v", err)
	}
	return nil
}

// paramError is a convenience for handler-level validation.
func paramError(format string, args ...any) error {
	return cloudruntimes.Errorf(cloudruntimes.CodeParam, format, args...)
}
