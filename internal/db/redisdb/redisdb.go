// Package redisdb implements the table store on Redis. Every logical table is
// a single hash whose fields are record ids and whose values are the records
// serialized as JSON. Scans read the whole hash and filter client-side, which
// keeps the linear-scan contract identical across backends.
package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepdeck/prepdeck/internal/db/storage"
)

// RedisDB is a Redis-backed implementation of the table store.
type RedisDB struct {
	client *redis.Client
}

// New connects to the Redis instance at addr and verifies the connection
// within connectionTimeout.
func New(ctx context.Context, addr, password string, connectionTimeout time.Duration) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf(
			"in internal/db/redisdb/redisdb.go/New(): error while `client.Ping()` calling: %w",
			err,
		)
	}

	return &RedisDB{client: client}, nil
}

func fieldKey(key int64) string {
	return strconv.FormatInt(key, 10)
}

// Get returns the record stored under key.
func (db *RedisDB) Get(ctx context.Context, table string, key int64) (storage.Record, bool, error) {
	doc, err := db.client.HGet(ctx, table, fieldKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	record, err := storage.DecodeRecord(doc)
	if err != nil {
		return nil, false, err
	}

	return record, true, nil
}

// Put stores the record under its "id" attribute, overwriting unconditionally.
func (db *RedisDB) Put(ctx context.Context, table string, record storage.Record) error {
	key, ok := storage.KeyOf(record)
	if !ok {
		return fmt.Errorf("record for table %q has no integer id", table)
	}

	doc, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return db.client.HSet(ctx, table, fieldKey(key), doc).Err()
}

// Delete removes the record stored under key and returns it. The read and the
// removal are two commands; the store offers no stronger atomicity anyway.
func (db *RedisDB) Delete(ctx context.Context, table string, key int64) (storage.Record, bool, error) {
	doc, err := db.client.HGet(ctx, table, fieldKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if err := db.client.HDel(ctx, table, fieldKey(key)).Err(); err != nil {
		return nil, false, err
	}

	record, err := storage.DecodeRecord(doc)
	if err != nil {
		return nil, false, err
	}

	return record, true, nil
}

// Scan reads the whole hash and returns the records matching the filter.
func (db *RedisDB) Scan(ctx context.Context, table string, filter storage.Filter) ([]storage.Record, error) {
	docs, err := db.client.HGetAll(ctx, table).Result()
	if err != nil {
		return nil, err
	}

	result := []storage.Record{}
	for _, doc := range docs {
		record, err := storage.DecodeRecord([]byte(doc))
		if err != nil {
			return nil, err
		}
		if storage.Matches(record, filter) {
			result = append(result, record)
		}
	}

	return result, nil
}

// Count returns the number of records in the table.
func (db *RedisDB) Count(ctx context.Context, table string) (int64, error) {
	return db.client.HLen(ctx, table).Result()
}

// Ping checks connectivity to the Redis instance.
func (db *RedisDB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (db *RedisDB) Close() error {
	return db.client.Close()
}
