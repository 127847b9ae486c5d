// Package blobstore builds the document store and sync ledger from DSNs.
//
// Supported schemes:
//
//	s3://bucket[/prefix]    one object per document (default)
//	file:///path/to/dir     one file per document
//	memory://               process-local, for tests and dry runs
//	postgres://...          token_documents and sync_records tables
//	sqlite:///path/to/db    same tables in a local SQLite file
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"bodysync/internal/adapter/memory"
	"bodysync/internal/adapter/postgres"
	"bodysync/internal/adapter/sqlite"
	"bodysync/internal/domain"
)

// Backend is what a DSN resolves to. Ledger is nil for backends that cannot
// hold one. Close releases any connection.
type Backend struct {
	Blobs  domain.BlobStore
	Ledger domain.SyncLogRepository
	closer io.Closer
}

// Close releases the backend.
func (b *Backend) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Open resolves dsn to a Backend. Errors wrap domain.ErrConfig for
// malformed DSNs and domain.ErrPersistence for unreachable databases.
func Open(ctx context.Context, dsn string) (*Backend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: storage dsn is empty", domain.ErrConfig)
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: storage dsn: %w", domain.ErrConfig, err)
	}

	switch scheme := strings.ToLower(parsed.Scheme); scheme {
	case "s3":
		store, err := NewS3Store(ctx, parsed.Host, s3Prefix(parsed.Path))
		if err != nil {
			return nil, err
		}
		return &Backend{Blobs: store}, nil
	case "", "file":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return &Backend{Blobs: NewFileStore(path)}, nil
	case "memory", "mem":
		db := memory.New()
		return &Backend{Blobs: db, Ledger: db}, nil
	case "postgres", "postgresql":
		db, err := postgres.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: open postgres: %w", domain.ErrPersistence, err)
		}
		return &Backend{Blobs: db, Ledger: db, closer: db}, nil
	case "sqlite":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		db, err := sqlite.New(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return &Backend{Blobs: db, Ledger: db, closer: db}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported storage scheme %q", domain.ErrConfig, scheme)
	}
}

func s3Prefix(path string) string {
	p := strings.Trim(path, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if parsed.Scheme == "" {
		return raw, nil
	}
	path := parsed.Host + parsed.Path
	if path == "" {
		path = parsed.Opaque
	}
	if path == "" {
		return "", fmt.Errorf("%w: storage dsn %q has no path", domain.ErrConfig, raw)
	}
	return path, nil
}
