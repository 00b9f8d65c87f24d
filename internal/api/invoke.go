package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

// handleInvoke proxies a method call to the registered application, passing
// the caller's verb, query string and body through.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if s.deps.Invoker == nil {
		writeError(w, r, cloudruntimes.NotImplementedf("invocation"))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, paramError("reading request body: %v", err))
		return
	}

	req := &core.InvokeMethodRequest{
		AppID:       chi.URLParam(r, "appID"),
		Method:      chi.URLParam(r, "*"),
		Verb:        r.Method,
		Data:        data,
		ContentType: r.Header.Get("Content-Type"),
		QueryString: r.URL.RawQuery,
	}

	resp, status, err := s.deps.Invoker.Invoke(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(resp.Data)
}
