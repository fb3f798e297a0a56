// Package storage resolves inventory source URIs to readable content on the
// local filesystem or in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	infraconfig "github.com/ggc/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Source schemes
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
)

// ErrInvalidURI is returned for source URIs that cannot be resolved
var ErrInvalidURI = errors.New("invalid source uri")

// Source is a readable inventory input
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	URI() string
	Scheme() string
}

// FileSource reads a local file
type FileSource struct {
	Path string
}

// Open opens the file for reading
func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	return f, nil
}

// URI returns the file path
func (s FileSource) URI() string { return s.Path }

// Scheme returns "file"
func (s FileSource) Scheme() string { return SchemeFile }

// SourceResolver maps URIs to sources. The S3 client is created on first use.
type SourceResolver struct {
	cfg    *infraconfig.StorageConfig
	logger *zap.Logger

	mu     sync.Mutex
	client ObjectGetter
}

// ResolverOption configures a SourceResolver
type ResolverOption func(*SourceResolver)

// WithLogger sets the resolver logger
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *SourceResolver) {
		r.logger = logger
	}
}

// WithS3Client uses client instead of building one from configuration
func WithS3Client(client ObjectGetter) ResolverOption {
	return func(r *SourceResolver) {
		r.client = client
	}
}

// NewSourceResolver creates a resolver; cfg may be nil when only local files are used
func NewSourceResolver(cfg *infraconfig.StorageConfig, opts ...ResolverOption) *SourceResolver {
	r := &SourceResolver{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve parses uri. "s3://bucket/key" selects object storage, "file://path" or a bare path the filesystem.
func (r *SourceResolver) Resolve(uri string) (Source, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURI)
	}

	switch {
	case strings.HasPrefix(uri, SchemeS3+"://"):
		bucket, key, err := ParseS3URI(uri)
		if err != nil {
			return nil, err
		}
		client, err := r.s3Client()
		if err != nil {
			return nil, err
		}
		return &S3Source{client: client, bucket: bucket, key: key, logger: r.logger}, nil
	case strings.HasPrefix(uri, SchemeFile+"://"):
		u, err := url.Parse(uri)
		if err != nil || u.Path == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidURI, uri)
		}
		return FileSource{Path: u.Path}, nil
	case strings.Contains(uri, "://"):
		return nil, fmt.Errorf("%w: unsupported scheme in %s", ErrInvalidURI, uri)
	default:
		return FileSource{Path: uri}, nil
	}
}

func (r *SourceResolver) s3Client() (ObjectGetter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}
	client, err := NewS3Client(context.Background(), r.cfg)
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}
