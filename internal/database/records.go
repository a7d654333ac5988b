package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/sitemapper/internal/model"
)

// PutRecord stores rec under its canonical URL.
func (cdb *CrawlDB) PutRecord(ctx context.Context, rec *model.Record) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	return cdb.Put(ctx, rec.URL, data)
}

// GetRecord returns the record stored for u.
func (cdb *CrawlDB) GetRecord(ctx context.Context, u model.URL) (*model.Record, error) {
	data, err := cdb.Get(ctx, u.Key())
	if err != nil {
		return nil, err
	}
	return model.DecodeRecord(data)
}

// RecordFilter selects records in ListRecords. Zero fields match everything.
type RecordFilter struct {
	// Prefix restricts keys to a URL prefix, e.g. "https://example.com/docs".
	Prefix string

	// RunID restricts records to one run.
	RunID string

	// States restricts records to the given states.
	States []model.RecordState

	// Extension restricts records to URLs whose last path segment has this
	// extension (without the dot, case-insensitive).
	Extension string
}

func (f RecordFilter) match(rec *model.Record) bool {
	if f.RunID != "" && rec.RunID != f.RunID {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if rec.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Extension != "" {
		u, err := model.NormalizeURL(rec.URL, nil)
		if err != nil || u.Extension() != strings.ToLower(strings.TrimPrefix(f.Extension, ".")) {
			return false
		}
	}
	return true
}

// ListRecords returns the records matching filter in key order.
// Values that fail to decode are skipped.
func (cdb *CrawlDB) ListRecords(ctx context.Context, filter RecordFilter) ([]*model.Record, error) {
	records := make([]*model.Record, 0)
	err := cdb.Iterate(ctx, filter.Prefix, func(_ string, value []byte) error {
		rec, err := model.DecodeRecord(value)
		if err != nil {
			return nil //nolint:nilerr // skip malformed records
		}
		if filter.match(rec) {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteSubtree removes the record for root and every record below it:
// keys under root's path ("/...") and keys with a query on root's path.
// It returns how many records were removed.
func (cdb *CrawlDB) DeleteSubtree(ctx context.Context, root model.URL) (int64, error) {
	if root.IsZero() {
		return 0, fmt.Errorf("%w: zero url", ErrEmptyKey)
	}
	key := root.Key()
	if root.Path() == "/" && root.Query() == "" {
		// Every key on the host starts with "scheme://host/".
		return cdb.DeletePrefix(ctx, key)
	}

	result, err := cdb.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", key, err)
	}
	total, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	for _, p := range []string{key + "/", key + "?"} {
		n, err := cdb.DeletePrefix(ctx, p)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
