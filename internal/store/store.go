// Package store provides atomic whole-collection persistence for the roster,
// the attendance ledger and the admin credentials.
//
// Collections are only ever read or replaced in full. Callers that
// read-modify-write a collection must serialize against other writers of the
// same collection themselves.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Collection names a persisted record set.
type Collection string

const (
	Roster      Collection = "students"
	Ledger      Collection = "attendance"
	Credentials Collection = "admin"
)

// Collections lists every collection the service persists.
var Collections = []Collection{Roster, Ledger, Credentials}

// Backend stores opaque JSON documents, one per collection.
type Backend interface {
	// Load returns the stored document, or nil if the collection has never been written.
	Load(ctx context.Context, c Collection) ([]byte, error)
	// Save atomically replaces the stored document.
	Save(ctx context.Context, c Collection, data []byte) error
	// Close releases backend resources.
	Close() error
}

// Read returns the records of a collection. A missing, unreadable or corrupt
// collection reads as empty; the failure is logged rather than returned.
func Read[T any](ctx context.Context, b Backend, c Collection) []T {
	data, err := b.Load(ctx, c)
	if err != nil {
		log.Printf("warning: reading collection %s: %v", c, err)
		return []T{}
	}
	return decode[T](c, data)
}

// ReadForUpdate returns the records of a collection that is about to be
// replaced. Unlike Read it returns Load failures, so the caller aborts
// instead of writing an empty collection back. A corrupt document still
// reads as empty.
func ReadForUpdate[T any](ctx context.Context, b Backend, c Collection) ([]T, error) {
	data, err := b.Load(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", c, err)
	}
	return decode[T](c, data), nil
}

func decode[T any](c Collection, data []byte) []T {
	if len(data) == 0 {
		return []T{}
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("warning: collection %s is corrupt, treating as empty: %v", c, err)
		return []T{}
	}
	if records == nil {
		return []T{}
	}
	return records
}

// Replace atomically overwrites a collection with records.
func Replace[T any](ctx context.Context, b Backend, c Collection, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding collection %s: %w", c, err)
	}
	if err := b.Save(ctx, c, data); err != nil {
		return fmt.Errorf("saving collection %s: %w", c, err)
	}
	return nil
}
