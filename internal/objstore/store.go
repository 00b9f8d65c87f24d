// Package objstore implements the filesystem store behind both the file
// access API and the S3-shaped object API. Objects live under
// root/<bucket>/<key>; file paths address the same tree directly. Each
// regular file carries a metadata sidecar holding its etag, content type
// and user metadata.
package objstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/native"
)

const sidecarSuffix = ".crtmeta"

var (
	// ErrNotFound is returned for absent files, objects and buckets.
	ErrNotFound = errors.New("objstore: not found")
	// ErrInvalidPath is returned for paths that escape the store root.
	ErrInvalidPath = errors.New("objstore: invalid path")
	// ErrBucketNotEmpty is returned when deleting a bucket that still holds objects.
	ErrBucketNotEmpty = errors.New("objstore: bucket not empty")
)

type sidecar struct {
	ETag        string            `json:"etag"`
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Store is one named filesystem-backed store.
type Store struct {
	name string
	root string
}

// New creates the root directory if needed and returns the store.
func New(name, root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("objstore %s: %w", name, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("objstore %s: creating root: %w", name, err)
	}
	return &Store{name: name, root: abs}, nil
}

// Name returns the store's component name.
func (s *Store) Name() string { return s.name }

// resolve maps a store-relative path onto the filesystem, rejecting
// escapes from the root.
func (s *Store) resolve(rel string) (string, error) {
	rel = path.Clean(strings.TrimPrefix(rel, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}
	if strings.HasSuffix(rel, sidecarSuffix) {
		return "", fmt.Errorf("%w: reserved suffix", ErrInvalidPath)
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// Get returns the contents of the file at rel.
func (s *Store) Get(_ context.Context, rel string) ([]byte, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	return data, err
}

// Put writes the file at rel atomically, creating parents as needed, and
// returns the new etag.
func (s *Store) Put(_ context.Context, rel string, data []byte, contentType string, metadata map[string]string) (string, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", err
	}

	etag := uuid.NewString()
	meta, err := json.Marshal(sidecar{ETag: etag, ContentType: contentType, Metadata: metadata})
	if err != nil {
		return "", err
	}
	if err := renameio.WriteFile(abs, data, 0o600); err != nil {
		return "", err
	}
	if err := renameio.WriteFile(abs+sidecarSuffix, meta, 0o600); err != nil {
		return "", err
	}
	return etag, nil
}

// Stat describes the file or directory at rel.
func (s *Store) Stat(_ context.Context, rel string) (*enhanced.FileInfo, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	if err != nil {
		return nil, err
	}
	info := fileInfoFrom(rel, fi)
	if !fi.IsDir() {
		if sc, err := s.readSidecar(abs); err == nil {
			info.ETag = sc.ETag
		}
	}
	return info, nil
}

// List returns entries below prefix. Non-recursive listings return the
// immediate children only; recursive ones walk the whole subtree and skip
// directories.
func (s *Store) List(_ context.Context, prefix string, recursive bool) ([]enhanced.FileInfo, error) {
	abs, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return nil, nil
	}

	var out []enhanced.FileInfo
	if !recursive {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), sidecarSuffix) {
				continue
			}
			fi, err := entry.Info()
			if err != nil {
				continue
			}
			out = append(out, *fileInfoFrom(path.Join(prefix, entry.Name()), fi))
		}
		return out, nil
	}

	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), sidecarSuffix) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		out = append(out, *fileInfoFrom(filepath.ToSlash(rel), fi))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the file at rel and its sidecar. Deleting an absent file
// is not an error.
func (s *Store) Delete(_ context.Context, rel string) error {
	abs, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(abs + sidecarSuffix); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Copy duplicates src to dst with a fresh etag.
func (s *Store) Copy(ctx context.Context, src, dst string) error {
	data, err := s.Get(ctx, src)
	if err != nil {
		return err
	}
	var contentType string
	var metadata map[string]string
	if abs, rerr := s.resolve(src); rerr == nil {
		if sc, serr := s.readSidecar(abs); serr == nil {
			contentType = sc.ContentType
			metadata = sc.Metadata
		}
	}
	_, err = s.Put(ctx, dst, data, contentType, metadata)
	return err
}

// Move renames src to dst.
func (s *Store) Move(ctx context.Context, src, dst string) error {
	if err := s.Copy(ctx, src, dst); err != nil {
		return err
	}
	return s.Delete(ctx, src)
}

// Mkdir creates a directory (and parents) at rel.
func (s *Store) Mkdir(_ context.Context, rel string) error {
	abs, err := s.resolve(rel)
	if err != nil {
		return err
	}
	return os.MkdirAll(abs, 0o750)
}

func (s *Store) readSidecar(abs string) (*sidecar, error) {
	data, err := os.ReadFile(abs + sidecarSuffix)
	if err != nil {
		return nil, err
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func fileInfoFrom(rel string, fi fs.FileInfo) *enhanced.FileInfo {
	return &enhanced.FileInfo{
		Name:    rel,
		Size:    fi.Size(),
		Mode:    fi.Mode().String(),
		ModTime: fi.ModTime().UTC(),
		IsDir:   fi.IsDir(),
	}
}

// Object API. Buckets are the first-level directories of the tree.

func objectPath(bucket, key string) string {
	return path.Join(bucket, key)
}

// CreateBucket creates the bucket directory.
func (s *Store) CreateBucket(ctx context.Context, bucket string) error {
	if bucket == "" || strings.Contains(bucket, "/") {
		return fmt.Errorf("%w: bad bucket name %q", ErrInvalidPath, bucket)
	}
	return s.Mkdir(ctx, bucket)
}

// DeleteBucket removes an empty bucket.
func (s *Store) DeleteBucket(_ context.Context, bucket string) error {
	abs, err := s.resolve(bucket)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(abs)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: bucket %s", ErrNotFound, bucket)
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrBucketNotEmpty, bucket)
	}
	return os.Remove(abs)
}

// ListBuckets returns the bucket names in lexical order.
func (s *Store) ListBuckets(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			out = append(out, entry.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// PutObject writes one object into its bucket. The bucket is created on
// first use.
func (s *Store) PutObject(ctx context.Context, req *native.PutObjectRequest) (string, error) {
	return s.Put(ctx, objectPath(req.Bucket, req.Key), req.Data, req.ContentType, req.Metadata)
}

// GetObject returns the object's contents.
func (s *Store) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	return s.Get(ctx, objectPath(bucket, key))
}

// HeadObject describes an object without reading it.
func (s *Store) HeadObject(ctx context.Context, bucket, key string) (*native.ObjectInfo, error) {
	info, err := s.Stat(ctx, objectPath(bucket, key))
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
	}
	obj := &native.ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         info.Size,
		ETag:         info.ETag,
		LastModified: info.ModTime,
	}
	if abs, err := s.resolve(objectPath(bucket, key)); err == nil {
		if sc, err := s.readSidecar(abs); err == nil {
			obj.ContentType = sc.ContentType
		}
	}
	return obj, nil
}

// DeleteObject removes an object. Absent objects are not an error.
func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	return s.Delete(ctx, objectPath(bucket, key))
}

// ListObjects lists the bucket's objects below a key prefix, lexically
// ordered, truncated at MaxKeys when positive.
func (s *Store) ListObjects(ctx context.Context, req *native.ListObjectsRequest) ([]native.ObjectInfo, error) {
	files, err := s.List(ctx, req.Bucket, true)
	if err != nil {
		return nil, err
	}

	var out []native.ObjectInfo
	for _, fi := range files {
		key := strings.TrimPrefix(fi.Name, req.Bucket+"/")
		if req.Prefix != "" && !strings.HasPrefix(key, req.Prefix) {
			continue
		}
		info, err := s.HeadObject(ctx, req.Bucket, key)
		if err != nil {
			continue
		}
		out = append(out, *info)
		if req.MaxKeys > 0 && len(out) == req.MaxKeys {
			break
		}
	}
	return out, nil
}
