package ports

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by ResultCache.Get when no entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// CachedResult is an inferred network stored for reuse.
type CachedResult struct {
	Newick         string    `json:"newick"`
	Trees          int       `json:"trees"`
	Taxa           int       `json:"taxa"`
	Quartets       int       `json:"quartets"`
	Reticulations  int       `json:"reticulations"`
	Irreconcilable int       `json:"irreconcilable"`
	Root           string    `json:"root"`
	CreatedAt      time.Time `json:"created_at"`
}

// ResultCache persists inference results keyed by a fingerprint of the
// input trees and the options that shape the output.
type ResultCache interface {
	// Put stores the result under key, replacing any previous entry.
	Put(ctx context.Context, key string, result *CachedResult) error

	// Get retrieves the result for key.
	// Returns ErrCacheMiss if the key does not exist.
	Get(ctx context.Context, key string) (*CachedResult, error)

	// Delete removes the entry for key.
	Delete(ctx context.Context, key string) error

	// List returns the keys currently held.
	List(ctx context.Context) ([]string, error)
}
