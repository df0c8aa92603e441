// Package datasource selects and opens the backend a browsing session runs
// against: a project's GraphQL endpoints, or a local SQLite database that
// stands in for them offline.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/api/gql"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a local SQLite database
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeGraphQL is a remote project endpoint
	SourceTypeGraphQL SourceType = "graphql"
)

// ErrNoSource is returned when neither a database nor an endpoint is configured.
var ErrNoSource = errors.New("no data source configured: set a database path or an endpoint")

// DataSource describes the backend chosen for a session.
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Location is the database path or the endpoint URL
	Location string `json:"location"`
	// ModTime is the last modification time of a database file
	ModTime time.Time `json:"mod_time,omitempty"`
	// Size is the database file size in bytes
	Size int64 `json:"size,omitempty"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	if s.Type == SourceTypeSQLite {
		return fmt.Sprintf("%s (%s, mod=%s, %d bytes, %s)", s.Location, s.Type, s.ModTime.Format(time.RFC3339), s.Size, status)
	}
	return fmt.Sprintf("%s (%s, %s)", s.Location, s.Type, status)
}

// Options configures source selection.
type Options struct {
	Database       string
	Endpoint       string
	SystemEndpoint string
	Token          string
	Project        string
	Timeout        time.Duration
	// Logger receives selection messages when set
	Logger func(msg string)
}

// Describe picks the source for opts without opening it. A database path
// takes precedence over an endpoint.
func Describe(opts Options) (DataSource, error) {
	switch {
	case opts.Database != "":
		path, err := filepath.Abs(opts.Database)
		if err != nil {
			return DataSource{}, fmt.Errorf("resolving database path: %w", err)
		}
		src := DataSource{Type: SourceTypeSQLite, Location: path, Valid: true}
		info, err := os.Stat(path)
		switch {
		case err == nil && info.IsDir():
			src.Valid = false
			src.ValidationError = "is a directory"
		case err == nil:
			src.ModTime = info.ModTime()
			src.Size = info.Size()
		case errors.Is(err, os.ErrNotExist):
			// created on open
		default:
			src.Valid = false
			src.ValidationError = err.Error()
		}
		return src, nil
	case opts.Endpoint != "":
		src := DataSource{Type: SourceTypeGraphQL, Location: opts.Endpoint, Valid: true}
		u, err := url.Parse(opts.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			src.Valid = false
			src.ValidationError = "endpoint must be an http(s) URL"
		}
		return src, nil
	default:
		return DataSource{}, ErrNoSource
	}
}

// Open selects and opens the backend for opts.
func Open(ctx context.Context, opts Options) (api.Backend, DataSource, error) {
	logf := opts.Logger
	if logf == nil {
		logf = func(string) {}
	}
	src, err := Describe(opts)
	if err != nil {
		return nil, src, err
	}
	if !src.Valid {
		return nil, src, fmt.Errorf("invalid source %s: %s", src.Location, src.ValidationError)
	}
	logf(fmt.Sprintf("Using source: %s", src))

	switch src.Type {
	case SourceTypeSQLite:
		b, err := OpenSQLite(src.Location)
		if err != nil {
			return nil, src, fmt.Errorf("failed to open SQLite source %s: %w", src.Location, err)
		}
		return b, src, nil
	case SourceTypeGraphQL:
		c, err := gql.New(gql.Options{
			Endpoint:       opts.Endpoint,
			SystemEndpoint: opts.SystemEndpoint,
			Token:          opts.Token,
			Project:        opts.Project,
			Timeout:        opts.Timeout,
		})
		if err != nil {
			return nil, src, err
		}
		return c, src, nil
	default:
		return nil, src, fmt.Errorf("unknown source type: %s", src.Type)
	}
}
