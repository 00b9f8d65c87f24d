package api

import (
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

// filePath returns the wildcard path segment, percent-decoded so encoded
// separators cannot smuggle traversal past the router.
func filePath(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func (s *Server) handleFilePut(w http.ResponseWriter, r *http.Request) {
	store, err := s.fileStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, paramError("reading file body: %v", err))
		return
	}

	etag, err := store.Put(r.Context(), filePath(r), data, r.Header.Get("Content-Type"), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFileGet(w http.ResponseWriter, r *http.Request) {
	store, err := s.fileStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := store.Get(r.Context(), filePath(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	store, err := s.fileStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.Delete(r.Context(), filePath(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFileList(w http.ResponseWriter, r *http.Request) {
	store, err := s.fileStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	files, err := store.List(r.Context(), q.Get("prefix"), q.Get("recursive") == "true")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if files == nil {
		files = []enhanced.FileInfo{}
	}
	writeJSON(w, http.StatusOK, files)
}

type fileOpBody struct {
	Op   string `json:"op"` // copy, move, mkdir or stat
	Path string `json:"path"`
	Dest string `json:"dest,omitempty"`
}

// handleFileOp covers the operations that don't map cleanly onto a single
// HTTP verb against a path.
func (s *Server) handleFileOp(w http.ResponseWriter, r *http.Request) {
	store, err := s.fileStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body fileOpBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Path == "" {
		writeError(w, r, paramError("path must not be empty"))
		return
	}

	switch body.Op {
	case "copy", "move":
		if body.Dest == "" {
			writeError(w, r, paramError("%s needs a dest", body.Op))
			return
		}
		if body.Op == "copy" {
			err = store.Copy(r.Context(), body.Path, body.Dest)
		} else {
			err = store.Move(r.Context(), body.Path, body.Dest)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "mkdir":
		if err := store.Mkdir(r.Context(), body.Path); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "stat":
		info, err := store.Stat(r.Context(), body.Path)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	default:
		writeError(w, r, paramError("unknown op %q", body.Op))
	}
}
