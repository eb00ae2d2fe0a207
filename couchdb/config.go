// Package couchdb is the concrete store.Binding implementation over
// CouchDB: a Kivik client, Mango query execution, and a bulk-docs
// flush path, built around the schema-agnostic maps the connector CORE
// produces and consumes.
package couchdb

import (
	"context"
	"fmt"

	kivik "github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb" // registers the "couch" driver
)

// Config configures a connection to one CouchDB server. Every
// collection the connector serves is a distinct database: one collection
// maps to one database.
type Config struct {
	URL             string
	Username        string
	Password        string
	CreateIfMissing bool
	// Emulator marks a local/test CouchDB instance, enabling the
	// contention back-off jitter the transaction runner applies.
	Emulator bool
}

// dsn builds the connection string Kivik expects, embedding credentials
// when supplied.
func (c Config) dsn() string {
	if c.Username == "" {
		return c.URL
	}
	return fmt.Sprintf("%s://%s:%s@%s", schemeOf(c.URL), c.Username, c.Password, hostOf(c.URL))
}

func schemeOf(url string) string {
	for i := 0; i < len(url); i++ {
		if url[i] == ':' {
			return url[:i]
		}
	}
	return "http"
}

func hostOf(url string) string {
	for i := 0; i < len(url); i++ {
		if url[i] == ':' && i+2 < len(url) && url[i+1] == '/' && url[i+2] == '/' {
			return url[i+3:]
		}
	}
	return url
}

// Connect dials CouchDB and returns a *kivik.Client ready for use by
// NewBinding. Kept separate from NewBinding so callers that already hold
// a *kivik.Client (e.g. shared across several Bindings) can skip it.
func Connect(ctx context.Context, cfg Config) (*kivik.Client, error) {
	client, err := kivik.New("couch", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("couchdb: connect: %w", err)
	}
	return client, nil
}

// EnsureDB creates name if it does not already exist and cfg permits it.
func EnsureDB(ctx context.Context, client *kivik.Client, cfg Config, name string) error {
	exists, err := client.DBExists(ctx, name)
	if err != nil {
		return fmt.Errorf("couchdb: checking database %q: %w", name, err)
	}
	if exists {
		return nil
	}
	if !cfg.CreateIfMissing {
		return fmt.Errorf("couchdb: database %q does not exist", name)
	}
	if err := client.CreateDB(ctx, name); err != nil {
		return fmt.Errorf("couchdb: creating database %q: %w", name, err)
	}
	return nil
}
