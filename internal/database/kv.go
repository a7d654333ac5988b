package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// iterateBatch is the number of rows fetched per query while iterating.
// Rows are released before the callback runs, so callbacks may write to
// the database.
const iterateBatch = 256

// Get returns the value stored under key.
func (cdb *CrawlDB) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	var value []byte
	err := cdb.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value.
func (cdb *CrawlDB) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	query := `
	INSERT INTO entries (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	if _, err := cdb.db.ExecContext(ctx, query, key, value, formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (cdb *CrawlDB) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := cdb.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes every key and returns how many were removed.
func (cdb *CrawlDB) DeleteAll(ctx context.Context) (int64, error) {
	result, err := cdb.db.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete all entries: %w", err)
	}
	return result.RowsAffected()
}

// DeletePrefix removes every key that starts with prefix and returns how
// many were removed. An empty prefix removes everything.
func (cdb *CrawlDB) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return cdb.DeleteAll(ctx)
	}
	query, args := prefixQuery(`DELETE FROM entries WHERE key >= ?`, prefix)
	result, err := cdb.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete prefix %s: %w", prefix, err)
	}
	return result.RowsAffected()
}

// Count returns the number of keys starting with prefix.
func (cdb *CrawlDB) Count(ctx context.Context, prefix string) (int, error) {
	query, args := prefixQuery(`SELECT COUNT(*) FROM entries WHERE key >= ?`, prefix)
	var n int
	if err := cdb.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// Iterate calls fn for every key starting with prefix, in ascending key
// order. Returning StopIteration() from fn ends the walk without error;
// any other error aborts it and is returned.
func (cdb *CrawlDB) Iterate(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	after := ""
	first := true
	for {
		batch, err := cdb.page(ctx, prefix, after, first)
		if err != nil {
			return err
		}
		for _, e := range batch {
			if err := fn(e.key, e.value); err != nil {
				if errors.Is(err, errStopIteration) {
					return nil
				}
				return err
			}
		}
		if len(batch) < iterateBatch {
			return nil
		}
		after = batch[len(batch)-1].key
		first = false
	}
}

type entry struct {
	key   string
	value []byte
}

// page loads the next batch of entries after the given key.
func (cdb *CrawlDB) page(ctx context.Context, prefix, after string, first bool) ([]entry, error) {
	query, args := prefixQuery(`SELECT key, value FROM entries WHERE key >= ?`, prefix)
	if !first {
		query += ` AND key > ?`
		args = append(args, after)
	}
	query += ` ORDER BY key LIMIT ?`
	args = append(args, iterateBatch)

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	defer rows.Close()

	batch := make([]entry, 0, iterateBatch)
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.key, &e.value); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		batch = append(batch, e)
	}
	return batch, rows.Err()
}

// prefixQuery appends the upper bound of a prefix range to a query that
// already ends with "key >= ?".
func prefixQuery(query, prefix string) (string, []any) {
	args := []any{prefix}
	if end, ok := prefixEnd(prefix); ok {
		query += ` AND key < ?`
		args = append(args, end)
	}
	return query, args
}

// prefixEnd returns the smallest string greater than every string with the
// given prefix. It reports false when no such bound exists.
func prefixEnd(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}
