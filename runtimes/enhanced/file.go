package enhanced

import (
	"context"
	"time"
)

// FileInfo describes one stored file or directory.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Mode    string    `json:"mode,omitempty"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir"`
	ETag    string    `json:"etag,omitempty"`
}

// PutFileRequest writes a file, creating parent directories as needed.
type PutFileRequest struct {
	StoreName   string
	Path        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// ListFilesRequest lists files below a prefix.
type ListFilesRequest struct {
	StoreName string
	Prefix    string
	Recursive bool
	Metadata  map[string]string
}

// File is the file access capability.
type File interface {
	GetFile(ctx context.Context, storeName, path string) ([]byte, error)
	PutFile(ctx context.Context, req *PutFileRequest) error
	ListFiles(ctx context.Context, req *ListFilesRequest) ([]FileInfo, error)
	StatFile(ctx context.Context, storeName, path string) (*FileInfo, error)
	DeleteFile(ctx context.Context, storeName, path string) error
	CopyFile(ctx context.Context, storeName, src, dst string) error
	MoveFile(ctx context.Context, storeName, src, dst string) error
	CreateDirectory(ctx context.Context, storeName, path string) error
}
