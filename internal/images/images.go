// Package images resolves IMAGE placeholder payloads to local files the
// editor's upload affordance can consume. Local paths are validated in place;
// remote URLs are downloaded to a temp file owned by the caller.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/notedown/internal/errors"
)

// MaxBytes is the default size cap for image payloads.
const MaxBytes = 10 << 20 // 10 MiB

// allowedExtensions lists the image file types note.com accepts.
var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// extensionByType maps response content types to a file extension for
// downloads whose URL carries none.
var extensionByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Resolver turns an IMAGE payload (local path or http(s) URL) into a local
// file path.
type Resolver struct {
	client   *http.Client
	maxBytes int64
	tempDir  string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithMaxBytes overrides the size cap.
func WithMaxBytes(n int64) Option {
	return func(r *Resolver) { r.maxBytes = n }
}

// WithTempDir sets the directory downloads land in (defaults to the system
// temp dir).
func WithTempDir(dir string) Option {
	return func(r *Resolver) { r.tempDir = dir }
}

// NewResolver creates a Resolver with a 30s download timeout by default.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: MaxBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a local file path for the payload. For remote URLs the file
// is a temp download and cleanup removes it; for local paths cleanup is a
// no-op. The returned path is valid until cleanup is called.
func (r *Resolver) Resolve(ctx context.Context, payload string) (string, func(), error) {
	if strings.HasPrefix(payload, "http://") || strings.HasPrefix(payload, "https://") {
		return r.download(ctx, payload)
	}
	if err := r.validateLocal(payload); err != nil {
		return "", nil, err
	}
	return payload, func() {}, nil
}

func (r *Resolver) validateLocal(p string) error {
	ext := strings.ToLower(filepath.Ext(p))
	if !allowedExtensions[ext] {
		return errors.ValidationError("unsupported image file type").WithContext("path", p)
	}
	info, err := os.Stat(p)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "image file not readable").WithContext("path", p)
	}
	if info.IsDir() {
		return errors.ValidationError("image path is a directory").WithContext("path", p)
	}
	if info.Size() > r.maxBytes {
		return errors.ValidationError("image file too large").
			WithContext("path", p).
			WithContext("size", info.Size()).
			WithContext("limit", r.maxBytes)
	}
	return nil
}

func (r *Resolver) download(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, errors.WrapError(err, errors.CategoryValidation, "bad image URL").WithContext("url", url)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", nil, errors.WrapError(err, errors.CategoryNetwork, "image download failed").WithContext("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, errors.New(errors.CategoryNetwork, errors.SeverityWarning,
			fmt.Sprintf("image download returned status %d", resp.StatusCode)).WithContext("url", url)
	}

	ctype := strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0])
	if !strings.HasPrefix(ctype, "image/") {
		return "", nil, errors.ValidationError("remote content is not an image").
			WithContext("url", url).
			WithContext("content_type", ctype)
	}
	if resp.ContentLength > r.maxBytes {
		return "", nil, errors.ValidationError("remote image too large").
			WithContext("url", url).
			WithContext("size", resp.ContentLength).
			WithContext("limit", r.maxBytes)
	}

	ext := strings.ToLower(path.Ext(req.URL.Path))
	if !allowedExtensions[ext] {
		ext = extensionByType[ctype]
	}
	if ext == "" {
		return "", nil, errors.ValidationError("cannot determine image file type").
			WithContext("url", url).
			WithContext("content_type", ctype)
	}

	tmp, err := os.CreateTemp(r.tempDir, "notedown-image-*"+ext)
	if err != nil {
		return "", nil, errors.WrapError(err, errors.CategoryInternal, "create temp image file")
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	// Content-Length can lie or be absent; enforce the cap on actual bytes.
	n, err := io.Copy(tmp, io.LimitReader(resp.Body, r.maxBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		cleanup()
		return "", nil, errors.WrapError(err, errors.CategoryNetwork, "image download interrupted").WithContext("url", url)
	}
	if closeErr != nil {
		cleanup()
		return "", nil, errors.WrapError(closeErr, errors.CategoryInternal, "write temp image file")
	}
	if n > r.maxBytes {
		cleanup()
		return "", nil, errors.ValidationError("remote image too large").
			WithContext("url", url).
			WithContext("limit", r.maxBytes)
	}

	return tmp.Name(), cleanup, nil
}
