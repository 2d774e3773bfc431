// Package jsondb implements the table store on top of a single JSON snapshot
// file. All reads and writes are served from an in-memory cache; the cache is
// written back on Flush and Close.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/prepdeck/prepdeck/internal/db/storage"
)

// Tables maps a table name to its records keyed by the decimal form of the
// record id. String keys keep the structure JSON-serializable.
type Tables map[string]map[string]storage.Record

// CacheStruct is the serialized shape of the database file.
type CacheStruct struct {
	Tables Tables
}

// JSONDB is a file-backed table store. The zero value is not usable; construct
// it with New, or embed a prefilled Cache (see memorystorage).
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Tables": {}
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache any) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(jsonData); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	// Numbers stay arbitrary-precision until the response layer decides
	// whether they render as ints or floats.
	decoder.UseNumber()

	return decoder.Decode(cache)
}

// New loads the database file, creating it with an empty table set when it
// does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
		if err := parseJSONFile(db.fileName, &db.Cache); err != nil {
			return nil, err
		}
	}

	if db.Cache.Tables == nil {
		db.Cache.Tables = Tables{}
	}

	return &db, nil
}

func recordKey(key int64) string {
	return strconv.FormatInt(key, 10)
}

func cloneRecord(record storage.Record) storage.Record {
	clone := make(storage.Record, len(record))
	for attr, value := range record {
		clone[attr] = value
	}
	return clone
}

// Get returns a copy of the record stored under key.
func (db *JSONDB) Get(ctx context.Context, table string, key int64) (storage.Record, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	record, found := db.Cache.Tables[table][recordKey(key)]
	if !found {
		return nil, false, nil
	}

	return cloneRecord(record), true, nil
}

// Put stores the record under its "id" attribute, overwriting unconditionally.
func (db *JSONDB) Put(ctx context.Context, table string, record storage.Record) error {
	key, ok := storage.KeyOf(record)
	if !ok {
		return fmt.Errorf("record for table %q has no integer id", table)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.Cache.Tables[table] == nil {
		db.Cache.Tables[table] = map[string]storage.Record{}
	}
	db.Cache.Tables[table][recordKey(key)] = cloneRecord(record)

	return nil
}

// Delete removes the record stored under key and returns it.
func (db *JSONDB) Delete(ctx context.Context, table string, key int64) (storage.Record, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	record, found := db.Cache.Tables[table][recordKey(key)]
	if !found {
		return nil, false, nil
	}
	delete(db.Cache.Tables[table], recordKey(key))

	return record, true, nil
}

// Scan walks the whole table and returns copies of the records matching the
// filter. Iteration order is unspecified.
func (db *JSONDB) Scan(ctx context.Context, table string, filter storage.Filter) ([]storage.Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []storage.Record{}
	for _, record := range db.Cache.Tables[table] {
		if storage.Matches(record, filter) {
			result = append(result, cloneRecord(record))
		}
	}

	return result, nil
}

// Count returns the number of records in the table.
func (db *JSONDB) Count(ctx context.Context, table string) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Tables[table])), nil
}

// Flush writes the cache back to the database file. It is a no-op for caches
// without a backing file.
func (db *JSONDB) Flush(ctx context.Context) error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

// Close persists the cache to disk.
func (db *JSONDB) Close() error {
	return db.Flush(context.Background())
}

// Ping always succeeds: the cache is local memory.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}
