// Package postgresdb implements the table store on PostgreSQL. Every logical
// table is a two-column relation (bigint id, jsonb doc), so records keep their
// schemaless attribute-map shape and scans stay linear full-table reads with a
// client-side filter, matching the behavior of the other backends.
package postgresdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/prepdeck/prepdeck/internal/db/storage"
	"github.com/prepdeck/prepdeck/internal/models"
)

// PostgresDB is a PostgreSQL-backed implementation of the table store.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

// tableIdents whitelists the provisioned tables; table names are interpolated
// into SQL and must never come from request data.
var tableIdents = map[string]string{
	models.UsersTable:    `"users"`,
	models.FeedbackTable: `"interview_feedback"`,
}

func tableIdent(table string) (string, error) {
	ident, ok := tableIdents[table]
	if !ok {
		return "", fmt.Errorf("%w: %q", storage.ErrUnknownTable, table)
	}
	return ident, nil
}

type initOptions struct {
	DBPreReset bool
}

// InitOption customizes New.
type InitOption func(*initOptions)

// WithDBPreReset truncates the provisioned tables right after connecting.
// Meant for integration tests only.
func WithDBPreReset(preReset bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = preReset
	}
}

// New establishes a connection to the PostgreSQL database, runs schema
// migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	return result, nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	for _, ident := range tableIdents {
		if _, err := db.database.ExecContext(ctx, `TRUNCATE TABLE `+ident); err != nil {
			return err
		}
	}

	return nil
}

// Get returns the record stored under key.
func (db *PostgresDB) Get(ctx context.Context, table string, key int64) (storage.Record, bool, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return nil, false, err
	}

	row := db.database.QueryRowContext(
		ctx,
		`SELECT doc FROM `+ident+` WHERE id = $1`,
		key,
	)

	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

// Put upserts the record under its "id" attribute.
func (db *PostgresDB) Put(ctx context.Context, table string, record storage.Record) error {
	ident, err := tableIdent(table)
	if err != nil {
		return err
	}

	key, ok := storage.KeyOf(record)
	if !ok {
		return fmt.Errorf("record for table %q has no integer id", table)
	}

	doc, err := json.Marshal(record)
	if err != nil {
		return err
	}

	_, err = db.database.ExecContext(
		ctx,
		`
			INSERT INTO `+ident+` (id, doc)
				VALUES ($1, $2)
				ON CONFLICT (id) DO UPDATE
				SET doc = EXCLUDED.doc
		`,
		key,
		doc,
	)

	return err
}

// Delete removes the record stored under key and returns it.
func (db *PostgresDB) Delete(ctx context.Context, table string, key int64) (storage.Record, bool, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return nil, false, err
	}

	row := db.database.QueryRowContext(
		ctx,
		`DELETE FROM `+ident+` WHERE id = $1 RETURNING doc`,
		key,
	)

	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

// Scan reads the whole table and filters client-side, keeping the linear-scan
// contract identical across backends.
func (db *PostgresDB) Scan(ctx context.Context, table string, filter storage.Filter) ([]storage.Record, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return nil, err
	}

	rows, err := db.database.QueryContext(ctx, `SELECT doc FROM `+ident)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []storage.Record{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}

		record, err := storage.DecodeRecord(doc)
		if err != nil {
			return nil, err
		}

		if storage.Matches(record, filter) {
			result = append(result, record)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Count returns the number of records in the table.
func (db *PostgresDB) Count(ctx context.Context, table string) (int64, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return 0, err
	}

	row := db.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+ident)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// Ping checks database connectivity within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(pingCtx)
}

// Close closes the underlying connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}
