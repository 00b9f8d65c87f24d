package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSecretGet(w http.ResponseWriter, r *http.Request) {
	store, err := s.secretStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	secret, err := store.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, secret)
}

func (s *Server) handleSecretGetBulk(w http.ResponseWriter, r *http.Request) {
	store, err := s.secretStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := store.GetBulk(r.Context(), r.URL.Query()["key"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
