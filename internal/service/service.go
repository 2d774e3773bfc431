// Package service implements the business rules of the backend: field
// validation, identity assignment, email uniqueness, credential checks and
// score-range enforcement, all on top of the table-store seam.
package service

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/prepdeck/prepdeck/internal/db/storage"
)

type tableStore interface {
	Get(ctx context.Context, table string, key int64) (storage.Record, bool, error)
	Put(ctx context.Context, table string, record storage.Record) error
	Delete(ctx context.Context, table string, key int64) (storage.Record, bool, error)
	Scan(ctx context.Context, table string, filter storage.Filter) ([]storage.Record, error)
	Count(ctx context.Context, table string) (int64, error)
	Ping(ctx context.Context) error
}

type changeNotifier interface {
	Notify()
}

// Service holds the long-lived storage handle; it is constructed once per
// process and shared across requests.
type Service struct {
	db       tableStore
	notifier changeNotifier
	now      func() time.Time
}

// InitOption customizes New.
type InitOption func(*Service)

// WithNow replaces the clock used for identity assignment and created_at
// stamps. Meant for tests.
func WithNow(now func() time.Time) InitOption {
	return func(s *Service) {
		s.now = now
	}
}

// New creates the service. notifier may be nil when no backend needs flush
// notifications.
func New(db tableStore, notifier changeNotifier, optionsProto ...InitOption) *Service {
	s := &Service{
		db:       db,
		notifier: notifier,
		now:      time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(s)
	}

	return s
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) notifyChanged() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

// newRecordID assigns identity the store's way: the current time in
// milliseconds since epoch. Two calls in the same millisecond collide and the
// later Put overwrites the earlier record.
func (s *Service) newRecordID() int64 {
	return s.now().UnixMilli()
}

func isAllDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// isMissing mirrors the truthiness rules the contract inherited: nil, empty
// strings and numeric zeros all count as absent.
func isMissing(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	}
	return false
}

// toInt64 coerces a request value to an integer: integral numbers pass,
// fractional numbers truncate, decimal strings parse, anything else fails.
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(math.Trunc(v)), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return int64(math.Trunc(f)), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, strconv.ErrSyntax
}

func runeLength(value string) int {
	return utf8.RuneCountInString(value)
}
