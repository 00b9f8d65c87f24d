package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/log"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	broker, err := s.broker(chi.URLParam(r, "pubsub"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	topic := chi.URLParam(r, "topic")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, paramError("reading event payload: %v", err))
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = core.ContentTypeJSON
	}
	ev := &core.TopicEvent{
		Data:            data,
		DataContentType: contentType,
		Type:            r.URL.Query().Get("type"),
		Source:          r.URL.Query().Get("source"),
	}

	id, err := broker.Publish(r.Context(), topic, ev)
	if err != nil {
		writeError(w, r, cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "publish failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// handleSubscribe streams topic events as server-sent events until the
// client goes away.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	broker, err := s.broker(chi.URLParam(r, "pubsub"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	topic := chi.URLParam(r, "topic")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, cloudruntimes.NewError(cloudruntimes.CodeSystem, "streaming unsupported"))
		return
	}

	sub := broker.Subscribe(topic)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Debug().Str(log.FieldTopic, topic).Msg("subscriber attached")

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub.C:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				logger.Warn().Err(err).Msg("dropping unmarshalable event")
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
