// Package mockstorage provides a testify-based mock implementation of the
// table-store interface. It is used for unit testing HTTP handlers by
// simulating storage behavior, including failures no real backend produces on
// demand.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/prepdeck/prepdeck/internal/db/storage"
)

// StorageMock is a testify mock that implements the storage.Storage
// interface.
type StorageMock struct {
	mock.Mock
}

// Get mocks a key lookup.
func (m *StorageMock) Get(ctx context.Context, table string, key int64) (storage.Record, bool, error) {
	args := m.Called(ctx, table, key)
	record, _ := args.Get(0).(storage.Record)
	return record, args.Bool(1), args.Error(2)
}

// Put mocks an upsert.
func (m *StorageMock) Put(ctx context.Context, table string, record storage.Record) error {
	args := m.Called(ctx, table, record)
	return args.Error(0)
}

// Delete mocks a removal.
func (m *StorageMock) Delete(ctx context.Context, table string, key int64) (storage.Record, bool, error) {
	args := m.Called(ctx, table, key)
	record, _ := args.Get(0).(storage.Record)
	return record, args.Bool(1), args.Error(2)
}

// Scan mocks a filtered linear scan.
func (m *StorageMock) Scan(ctx context.Context, table string, filter storage.Filter) ([]storage.Record, error) {
	args := m.Called(ctx, table, filter)
	records, _ := args.Get(0).([]storage.Record)
	return records, args.Error(1)
}

// Count mocks a table-size query.
func (m *StorageMock) Count(ctx context.Context, table string) (int64, error) {
	args := m.Called(ctx, table)
	return args.Get(0).(int64), args.Error(1)
}

// Ping mocks a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks resource release.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
