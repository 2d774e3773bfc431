// Package storage defines the contract every table-store backend implements,
// together with the record and filter types shared by all of them.
//
// The store is deliberately primitive: key-based get/put/delete plus a linear
// scan with an equality-conjunction filter. There are no transactions and no
// conditional writes; Put is a blind upsert keyed by the record's "id"
// attribute.
package storage

import (
	"context"
	"errors"
)

// ErrUnknownTable is returned by backends when the requested table is not one
// of the provisioned ones.
var ErrUnknownTable = errors.New("unknown table")

// Storage is the table-store seam the services depend on.
type Storage interface {
	// Get returns the record stored under key, or found == false.
	Get(ctx context.Context, table string, key int64) (Record, bool, error)

	// Put stores the record under its "id" attribute, overwriting any
	// record already stored under the same key.
	Put(ctx context.Context, table string, record Record) error

	// Delete removes the record stored under key and returns it;
	// found == false means nothing was removed.
	Delete(ctx context.Context, table string, key int64) (Record, bool, error)

	// Scan walks the whole table and returns the records matching filter.
	// Cost is proportional to the table size, not to the match count.
	Scan(ctx context.Context, table string, filter Filter) ([]Record, error)

	// Count returns the number of records in the table.
	Count(ctx context.Context, table string) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
