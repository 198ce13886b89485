package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/balcaopos/balcao/pkg/syncer"
)

// activeFromFields derives the active column from the soft-delete field.
// Records are active unless the fields document says otherwise.
func activeFromFields(fields map[string]any, previous bool) bool {
	raw, ok := fields["active"]
	if !ok {
		return previous
	}
	active, ok := raw.(bool)
	if !ok {
		return previous
	}
	return active
}

// FindByIdentity returns the stored record or (nil, nil) when absent.
// Lookup is by the raw identity token, whatever its shape: legacy rows
// may hold tokens that no longer parse, and the resolver handles those.
func (s *Store) FindByIdentity(ctx context.Context, tenant, kind, identity string) (*syncer.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT fields, last_modified FROM records
		 WHERE tenant = ? AND kind = ? AND identity = ?`,
		tenant, kind, identity)

	var rawFields string
	var modified int64
	if err := row.Scan(&rawFields, &modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning %s %q: %w", kind, identity, err)
	}

	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(rawFields), &fields); err != nil {
		return nil, fmt.Errorf("decoding fields of %s %q: %w", kind, identity, err)
	}

	return &syncer.Record{
		Kind:         kind,
		Identity:     identity,
		Fields:       fields,
		LastModified: time.Unix(0, modified).UTC(),
	}, nil
}

func (s *Store) Insert(ctx context.Context, tenant string, rec syncer.Record) error {
	rawFields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encoding fields of %s %q: %w", rec.Kind, rec.Identity, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (tenant, kind, identity, fields, active, last_modified)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tenant, rec.Kind, rec.Identity, string(rawFields),
		activeFromFields(rec.Fields, true), rec.LastModified.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting %s %q: %w", rec.Kind, rec.Identity, err)
	}
	return nil
}

// UpdateFields merges the given fields into the stored document and
// advances last_modified, all in one short transaction.
func (s *Store) UpdateFields(ctx context.Context, tenant, kind, identity string, fields map[string]any, modified time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update of %s %q: %w", kind, identity, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT fields, active FROM records
		 WHERE tenant = ? AND kind = ? AND identity = ?`,
		tenant, kind, identity)

	var rawFields string
	var active bool
	if err := row.Scan(&rawFields, &active); err != nil {
		return fmt.Errorf("loading %s %q for update: %w", kind, identity, err)
	}

	merged := make(map[string]any)
	if err := json.Unmarshal([]byte(rawFields), &merged); err != nil {
		return fmt.Errorf("decoding fields of %s %q: %w", kind, identity, err)
	}
	for k, v := range fields {
		merged[k] = v
	}

	encoded, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding fields of %s %q: %w", kind, identity, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE records SET fields = ?, active = ?, last_modified = ?
		 WHERE tenant = ? AND kind = ? AND identity = ?`,
		string(encoded), activeFromFields(fields, active), modified.UnixNano(),
		tenant, kind, identity)
	if err != nil {
		return fmt.Errorf("updating %s %q: %w", kind, identity, err)
	}

	return tx.Commit()
}

// QueryActiveSince returns active records modified strictly after since
// (all active records when since is nil), ordered by last_modified
// ascending as the pull contract requires.
func (s *Store) QueryActiveSince(ctx context.Context, tenant string, since *time.Time) ([]syncer.Record, error) {
	query := `SELECT kind, identity, fields, last_modified FROM records
	          WHERE tenant = ? AND active = 1`
	args := []any{tenant}
	if since != nil {
		query += ` AND last_modified > ?`
		args = append(args, since.UnixNano())
	}
	query += ` ORDER BY last_modified ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []syncer.Record
	for rows.Next() {
		var rec syncer.Record
		var rawFields string
		var modified int64
		if err := rows.Scan(&rec.Kind, &rec.Identity, &rawFields, &modified); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Fields = make(map[string]any)
		if err := json.Unmarshal([]byte(rawFields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("decoding fields of %s %q: %w", rec.Kind, rec.Identity, err)
		}
		rec.LastModified = time.Unix(0, modified).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Exists satisfies the resolver's reference checker.
func (s *Store) Exists(ctx context.Context, tenant, kind, identity string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM records WHERE tenant = ? AND kind = ? AND identity = ?`,
		tenant, kind, identity)

	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking %s %q: %w", kind, identity, err)
	}
	return true, nil
}

// Purge removes all records of the given kinds for the tenant. This is
// the administrative reset; it is not reachable from the sync path.
func (s *Store) Purge(ctx context.Context, tenant string, kinds []string) (int64, error) {
	if len(kinds) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(kinds))
	placeholders = placeholders[:len(placeholders)-1]

	args := []any{tenant}
	for _, kind := range kinds {
		args = append(args, kind)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE tenant = ? AND kind IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("purging %v: %w", kinds, err)
	}
	return res.RowsAffected()
}
