package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

type tryLockBody struct {
	Resource   string `json:"resource"`
	Owner      string `json:"owner,omitempty"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func (s *Server) handleLockTry(w http.ResponseWriter, r *http.Request) {
	store, err := s.lockStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body tryLockBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Resource == "" {
		writeError(w, r, paramError("resource must not be empty"))
		return
	}
	if body.TTLSeconds <= 0 {
		writeError(w, r, paramError("ttl_seconds must be positive"))
		return
	}
	owner := body.Owner
	if owner == "" {
		owner = uuid.NewString()
	}

	ok, err := store.TryLock(r.Context(), body.Resource, owner, time.Duration(body.TTLSeconds)*time.Second)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := enhanced.TryLockResponse{Success: ok}
	if ok {
		resp.Owner = owner
	}
	writeJSON(w, http.StatusOK, resp)
}

type unlockBody struct {
	Resource string `json:"resource"`
	Owner    string `json:"owner"`
}

func (s *Server) handleLockUnlock(w http.ResponseWriter, r *http.Request) {
	store, err := s.lockStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body unlockBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Resource == "" || body.Owner == "" {
		writeError(w, r, paramError("resource and owner must not be empty"))
		return
	}

	status, err := store.Unlock(r.Context(), body.Resource, body.Owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enhanced.UnlockResponse{Status: status})
}

type renewBody struct {
	Resource   string `json:"resource"`
	Owner      string `json:"owner"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func (s *Server) handleLockRenew(w http.ResponseWriter, r *http.Request) {
	store, err := s.lockStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body renewBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Resource == "" || body.Owner == "" || body.TTLSeconds <= 0 {
		writeError(w, r, paramError("resource, owner and a positive ttl_seconds required"))
		return
	}

	if err := store.Renew(r.Context(), body.Resource, body.Owner, time.Duration(body.TTLSeconds)*time.Second); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	store, err := s.lockStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	status, err := store.Status(r.Context(), chi.URLParam(r, "resource"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
