package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cloudconnect/cloudconnect/pkg/metrics"
)

// LocalStore writes blobs to a directory tree on local disk, one subdirectory
// per owner. Retrieval URLs are base URL paths the HTTP layer can serve
// statically.
type LocalStore struct {
	root    string
	baseURL string
}

// LocalConfig configures the disk-backed store.
type LocalConfig struct {
	Root    string
	BaseURL string
}

// NewLocalStore prepares the root directory and returns a disk-backed store.
func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, errors.New("local store: root directory is required")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local store: create root: %w", err)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "/files"
	}

	return &LocalStore{root: root, baseURL: baseURL}, nil
}

// Root exposes the directory served by the HTTP static route.
func (s *LocalStore) Root() string {
	return s.root
}

// BaseURL exposes the URL prefix under which blobs are reachable.
func (s *LocalStore) BaseURL() string {
	return s.baseURL
}

// Put stores the blob under <root>/<owner>/<unique-name> and returns its URL path.
func (s *LocalStore) Put(ctx context.Context, input PutInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(input.Owner) == "" {
		return "", errors.New("local store: owner is required")
	}

	object := objectName(input.Name)
	dir := filepath.Join(s.root, input.Owner)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.BlobUploads.WithLabelValues("local", "failure").Inc()
		return "", fmt.Errorf("local store: create owner directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, object), input.Data, 0o644); err != nil {
		metrics.BlobUploads.WithLabelValues("local", "failure").Inc()
		return "", fmt.Errorf("local store: write blob: %w", err)
	}

	metrics.BlobUploads.WithLabelValues("local", "success").Inc()
	metrics.UploadedBytes.WithLabelValues("local").Add(float64(len(input.Data)))

	return s.baseURL + "/" + input.Owner + "/" + object, nil
}

// Delete removes the blob referenced by a URL previously returned from Put.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rel, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || rel == "" || strings.Contains(rel, "..") {
		return ErrInvalidObjectURL
	}

	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("local store: remove blob: %w", err)
	}
	return nil
}

// objectName prefixes the sanitised display name with a random identifier so
// repeated uploads of the same name never overwrite each other.
func objectName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "blob"
	}
	return uuid.NewString() + "_" + base
}
