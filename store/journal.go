package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ridge/quarry/retry"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// journal is the durable copy of the store: one SQLite table per kind, one
// row per record, fields encoded as a JSON object keyed by DB names
type journal struct {
	db      *sql.DB
	backoff retry.Backoff
}

// busy wraps errors caused by another connection holding the database lock
// with retry.Retriable
func busy(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_BUSY {
		return retry.Retriable(err)
	}
	return err
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func openJournal(ctx context.Context, path string, kinds []*Kind, backoff retry.Backoff) (*journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	// a single connection serializes journal writes
	db.SetMaxOpenConns(1)

	for _, kind := range kinds {
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, record TEXT NOT NULL)", quoteIdent(kind.DBName))
		err := retry.Do(ctx, backoff, func() error {
			_, err := db.ExecContext(ctx, stmt)
			return busy(err)
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create journal table for %s: %w", kind, err)
		}
	}
	return &journal{db: db, backoff: backoff}, nil
}

func (j *journal) load(ctx context.Context, kind *Kind) ([]any, error) {
	rows, err := j.db.QueryContext(ctx, fmt.Sprintf("SELECT id, record FROM %s ORDER BY id", quoteIdent(kind.DBName)))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	defer rows.Close()

	var res []any
	for rows.Next() {
		var id, record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", kind, err)
		}
		obj, err := decodeRecord(kind, record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", EID{Kind: kind, ID: id}, err)
		}
		if kind.idOf(obj) != id {
			return nil, fmt.Errorf("journal row %s holds a record with identity %q", EID{Kind: kind, ID: id}, kind.idOf(obj))
		}
		res = append(res, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	return res, nil
}

// write applies the changes in one transaction, retrying it while the
// database is locked
func (j *journal) write(ctx context.Context, changes []Change) error {
	return retry.Do(ctx, j.backoff, func() error {
		return busy(j.writeOnce(ctx, changes))
	})
}

func (j *journal) writeOnce(ctx context.Context, changes []Change) (err error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journal transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, change := range changes {
		table := quoteIdent(change.EID.Kind.DBName)
		if change.After == nil {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), change.EID.ID); err != nil {
				return fmt.Errorf("failed to journal deletion of %s: %w", change.EID, err)
			}
			continue
		}
		record, err := encodeRecord(change.EID.Kind, change.After)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", change.EID, err)
		}
		stmt := fmt.Sprintf("INSERT INTO %s (id, record) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET record = excluded.record", table)
		if _, err := tx.ExecContext(ctx, stmt, change.EID.ID, record); err != nil {
			return fmt.Errorf("failed to journal %s: %w", change.EID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal transaction: %w", err)
	}
	return nil
}

func (j *journal) close() error {
	return j.db.Close()
}

func encodeRecord(kind *Kind, obj any) (string, error) {
	v := reflect.ValueOf(obj)
	fields := make(map[string]any, len(kind.Fields))
	for _, field := range kind.Fields {
		fields[field.DBName] = v.FieldByIndex(field.Index).Interface()
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRecord(kind *Kind, record string) (any, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(record), &fields); err != nil {
		return nil, err
	}
	v := reflect.New(kind.Type).Elem()
	for _, field := range kind.Fields {
		raw, ok := fields[field.DBName]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, v.FieldByIndex(field.Index).Addr().Interface()); err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
	}
	return v.Interface(), nil
}
