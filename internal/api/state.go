package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/state"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

func firstWrite(opts *core.StateOptions) bool {
	return opts != nil && opts.Concurrency == core.ConcurrencyFirstWrite
}

func (s *Server) handleStateGet(w http.ResponseWriter, r *http.Request) {
	store, err := s.stateStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("ETag", item.ETag)
	w.Header().Set("Content-Type", core.ContentTypeBinary)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(item.Value)
}

func (s *Server) handleStateSave(w http.ResponseWriter, r *http.Request) {
	store, err := s.stateStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var items []core.SetStateItem
	if err := decodeBody(r, &items); err != nil {
		writeError(w, r, err)
		return
	}
	for _, item := range items {
		if item.Key == "" {
			writeError(w, r, paramError("state item with empty key"))
			return
		}
		_, err := store.Set(r.Context(), &state.SetRequest{
			Key:        item.Key,
			Value:      item.Value,
			ETag:       item.ETag,
			FirstWrite: firstWrite(item.Options),
			Metadata:   item.Metadata,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStateDelete(w http.ResponseWriter, r *http.Request) {
	store, err := s.stateStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = store.Delete(r.Context(), &state.DeleteRequest{
		Key:        chi.URLParam(r, "key"),
		ETag:       r.Header.Get("If-Match"),
		FirstWrite: r.URL.Query().Get("concurrency") == core.ConcurrencyFirstWrite.String(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkGetRequest struct {
	Keys        []string `json:"keys"`
	Parallelism int      `json:"parallelism,omitempty"`
}

func (s *Server) handleStateGetBulk(w http.ResponseWriter, r *http.Request) {
	store, err := s.stateStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req bulkGetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Keys) == 0 {
		writeError(w, r, paramError("bulk get needs at least one key"))
		return
	}

	// Results hold request order; per-key failures ride in the item.
	out := make([]core.BulkStateItem, len(req.Keys))
	for i, key := range req.Keys {
		out[i].Key = key
		item, err := store.Get(r.Context(), key)
		switch {
		case errors.Is(err, state.ErrKeyNotFound):
			out[i].Error = err.Error()
		case err != nil:
			writeError(w, r, err)
			return
		default:
			out[i].Value = item.Value
			out[i].ETag = item.ETag
			out[i].Metadata = item.Metadata
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type transactionRequest struct {
	Operations []core.TransactionOperation `json:"operations"`
	Metadata   core.Metadata               `json:"metadata,omitempty"`
}

func (s *Server) handleStateTransaction(w http.ResponseWriter, r *http.Request) {
	store, err := s.stateStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Operations) == 0 {
		writeError(w, r, paramError("transaction needs at least one operation"))
		return
	}

	ops := make([]state.TransactionOp, 0, len(req.Operations))
	for _, op := range req.Operations {
		if op.Item.Key == "" {
			writeError(w, r, paramError("transaction operation with empty key"))
			return
		}
		switch op.Type {
		case core.OperationUpsert:
			ops = append(ops, state.TransactionOp{Set: state.SetRequest{
				Key:        op.Item.Key,
				Value:      op.Item.Value,
				ETag:       op.Item.ETag,
				FirstWrite: firstWrite(op.Item.Options),
				Metadata:   op.Item.Metadata,
			}})
		case core.OperationDelete:
			ops = append(ops, state.TransactionOp{Delete: true, Del: state.DeleteRequest{
				Key:        op.Item.Key,
				ETag:       op.Item.ETag,
				FirstWrite: firstWrite(op.Item.Options),
			}})
		default:
			writeError(w, r, paramError("unknown transaction operation %q", op.Type))
			return
		}
	}

	if err := store.Multi(r.Context(), ops); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
