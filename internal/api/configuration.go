package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/configstore"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

func selectorFromQuery(r *http.Request) (string, configstore.Selector) {
	q := r.URL.Query()
	return q.Get("appid"), configstore.Selector{
		Keys:  q["key"],
		Group: q.Get("group"),
		Label: q.Get("label"),
	}
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	store, err := s.configStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	appID, sel := selectorFromQuery(r)
	if appID == "" {
		writeError(w, r, paramError("appid query parameter required"))
		return
	}
	items := store.Get(appID, sel)
	if items == nil {
		items = []core.ConfigurationItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

type saveConfigRequest struct {
	AppID    string                   `json:"app_id"`
	Items    []core.ConfigurationItem `json:"items"`
	Metadata core.Metadata            `json:"metadata,omitempty"`
}

func (s *Server) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	store, err := s.configStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req saveConfigRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.AppID == "" {
		writeError(w, r, paramError("app_id must not be empty"))
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, paramError("save needs at least one item"))
		return
	}
	for _, item := range req.Items {
		if item.Key == "" {
			writeError(w, r, paramError("configuration item with empty key"))
			return
		}
	}

	if err := store.Save(req.AppID, req.Items); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfigDelete(w http.ResponseWriter, r *http.Request) {
	store, err := s.configStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	appID, sel := selectorFromQuery(r)
	if appID == "" {
		writeError(w, r, paramError("appid query parameter required"))
		return
	}
	if err := store.Delete(appID, sel); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConfigSubscribe streams configuration updates as server-sent
// events.
func (s *Server) handleConfigSubscribe(w http.ResponseWriter, r *http.Request) {
	store, err := s.configStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	appID, sel := selectorFromQuery(r)
	if appID == "" {
		writeError(w, r, paramError("appid query parameter required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, cloudruntimes.NewError(cloudruntimes.CodeSystem, "streaming unsupported"))
		return
	}

	sub := store.Subscribe(appID, sel)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case update, open := <-sub.C:
			if !open {
				return
			}
			payload, err := json.Marshal(update)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
