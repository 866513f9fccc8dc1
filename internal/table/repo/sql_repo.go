package repo

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// SQLRepo stores the meeting table in a relational database (PostgreSQL or
// SQLite) using one TEXT column per table column plus a position column for
// row order. A companion <name>_meta table holds the snapshot version.
// Columns outside table.Columns are not persisted.
type SQLRepo struct {
	db   *sqlx.DB
	name string
	meta string
}

// NewSQLRepo returns a repo writing to the named table.
func NewSQLRepo(db *sqlx.DB, name string) (*SQLRepo, error) {
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("invalid table name %q", name)
	}
	return &SQLRepo{db: db, name: name, meta: name + "_meta"}, nil
}

// EnsureTable creates the data and meta tables if they do not exist
// (idempotent).
func (r *SQLRepo) EnsureTable(ctx context.Context) error {
	cols := make([]string, 0, len(table.Columns)+1)
	cols = append(cols, quoteIdent("position")+" INTEGER NOT NULL")
	for _, c := range table.Columns {
		cols = append(cols, quoteIdent(c)+" TEXT NOT NULL DEFAULT ''")
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", r.name, strings.Join(cols, ",\n  "))
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	metaDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id INTEGER PRIMARY KEY,
  version BIGINT NOT NULL DEFAULT 0
)`, r.meta)
	if _, err := r.db.ExecContext(ctx, metaDDL); err != nil {
		return err
	}
	seed := fmt.Sprintf("INSERT INTO %s (id, version) VALUES (1, 0) ON CONFLICT (id) DO NOTHING", r.meta)
	_, err := r.db.ExecContext(ctx, seed)
	return err
}

// Fetch reads every row ordered by position.
func (r *SQLRepo) Fetch(ctx context.Context) (*table.Snapshot, error) {
	var version int64
	if err := r.db.GetContext(ctx, &version, fmt.Sprintf("SELECT version FROM %s WHERE id = 1", r.meta)); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}

	selected := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		selected[i] = quoteIdent(c)
	}
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY "position"`, strings.Join(selected, ", "), r.name)
	rows, err := r.db.QueryxContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &table.Snapshot{Version: version}
	for rows.Next() {
		m := map[string]interface{}{}
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		row := make(table.Row, len(m))
		for k, v := range m {
			row[k] = cellString(v)
		}
		snap.Rows = append(snap.Rows, row)
	}
	return snap, rows.Err()
}

// Replace deletes every row and inserts snap.Rows inside one transaction.
func (r *SQLRepo) Replace(ctx context.Context, snap *table.Snapshot, checkVersion bool) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	versionQ := fmt.Sprintf("SELECT version FROM %s WHERE id = 1", r.meta)
	if r.db.DriverName() == "postgres" {
		versionQ += " FOR UPDATE"
	}
	var current int64
	if err := tx.GetContext(ctx, &current, versionQ); err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	if checkVersion && current != snap.Version {
		return current, table.ErrStale
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+r.name); err != nil {
		return 0, fmt.Errorf("clear table: %w", err)
	}

	names := make([]string, 0, len(table.Columns)+1)
	binds := make([]string, 0, len(table.Columns)+1)
	names = append(names, quoteIdent("position"))
	binds = append(binds, ":position")
	for _, c := range table.Columns {
		names = append(names, quoteIdent(c))
		binds = append(binds, ":"+c)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.name, strings.Join(names, ", "), strings.Join(binds, ", "))
	stmt, err := tx.PrepareNamedContext(ctx, insert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, row := range snap.Rows {
		args := map[string]interface{}{"position": i}
		for _, c := range table.Columns {
			args[c] = row.Get(c)
		}
		if _, err := stmt.ExecContext(ctx, args); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET version = version + 1 WHERE id = 1", r.meta)); err != nil {
		return 0, fmt.Errorf("bump version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return current + 1, nil
}

// quoteIdent quotes a column name; "groups" and "position" are keywords in
// some dialects.
func quoteIdent(name string) string { return `"` + name + `"` }

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

var _ table.Store = (*SQLRepo)(nil)
