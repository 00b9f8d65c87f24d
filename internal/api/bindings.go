package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/binding"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

type invokeBindingBody struct {
	Operation string        `json:"operation"`
	Data      []byte        `json:"data,omitempty"`
	Metadata  core.Metadata `json:"metadata,omitempty"`
}

func (s *Server) handleBindingInvoke(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bindings == nil {
		writeError(w, r, cloudruntimes.NotImplementedf("binding"))
		return
	}

	var body invokeBindingBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Operation == "" {
		writeError(w, r, paramError("operation must not be empty"))
		return
	}

	resp, err := s.deps.Bindings.Invoke(r.Context(), &core.InvokeBindingRequest{
		Name:      chi.URLParam(r, "name"),
		Operation: body.Operation,
		Data:      body.Data,
		Metadata:  body.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.InvokeBindingResponse{Data: resp.Data, Metadata: resp.Metadata})
}

type bindingListResponse struct {
	Inputs  []core.BindingInfo `json:"inputs"`
	Outputs []core.BindingInfo `json:"outputs"`
}

func (s *Server) handleBindingList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bindings == nil {
		writeError(w, r, cloudruntimes.NotImplementedf("binding"))
		return
	}
	writeJSON(w, http.StatusOK, bindingListResponse{
		Inputs:  s.deps.Bindings.List(binding.DirectionInput),
		Outputs: s.deps.Bindings.List(binding.DirectionOutput),
	})
}
