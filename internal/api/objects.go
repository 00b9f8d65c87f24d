package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/native"
)

func (s *Server) handleBucketList(w http.ResponseWriter, r *http.Request) {
	store, err := s.objectStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	buckets, err := store.ListBuckets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if buckets == nil {
		buckets = []string{}
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleBucketCreate(w http.ResponseWriter, r *http.Request) {
	store, err := s.objectStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.CreateBucket(r.Context(), chi.URLParam(r, "bucket")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBucketDelete(w http.ResponseWriter, r *http.Request) {
	store, err := s.objectStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.DeleteBucket(r.Context(), chi.URLParam(r, "bucket")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleObjectList(w http.ResponseWriter, r *http.Request) {
	store, err := s.objectStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	maxKeys, _ := strconv.Atoi(q.Get("max_keys"))
	objects, err := store.ListObjects(r.Context(), &native.ListObjectsRequest{
		Bucket:  chi.URLParam(r, "bucket"),
		Prefix:  q.Get("prefix"),
		MaxKeys: maxKeys,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if objects == nil {
		objects = []native.ObjectInfo{}
	}
	writeJSON(w, http.StatusOK, objects)
}

func (s *Server) handleObjectPut(w http.ResponseWriter, r *http.Request) {
	store, err := s.objectStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, paramError("reading object body: %v", err))
		return
	}

	etag, err := store.PutObject(r.Context(), &native.PutObjectRequest{
		Bucket:      chi.URLParam(r, "bucket"),
		Key:         filePath(r),
		Data:        data,
		ContentType: r.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNoContent)
}

// handleObjectGet serves the object's bytes, or its metadata as JSON when
// the meta query flag is set.
func (s *Server) handleObjectGet(w http.ResponseWriter, r *http.Request) {
	store, err := s.objectStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	bucket, key := chi.URLParam(r, "bucket"), filePath(r)

	if r.URL.Query().Get("meta") == "true" {
		info, err := store.HeadObject(r.Context(), bucket, key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
		return
	}

	data, err := store.GetObject(r.Context(), bucket, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := store.HeadObject(r.Context(), bucket, key)
	if err == nil && info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleObjectDelete(w http.ResponseWriter, r *http.Request) {
	store, err := s.objectStore(chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.DeleteObject(r.Context(), chi.URLParam(r, "bucket"), filePath(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
