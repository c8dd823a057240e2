package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstore/internal/repositories"
	"github.com/desertthunder/plstore/internal/shared"
)

// SchemaVersion is the version stored in PRAGMA user_version.
const SchemaVersion = 1

const identityRowID = 42

//go:embed sql/schema_v1.sql
var schemaV1 string

// column mirrors one row of PRAGMA table_info.
type column struct {
	Name    string
	Type    string
	NotNull bool
	PK      bool
}

// foreignKey mirrors one row of PRAGMA foreign_key_list.
type foreignKey struct {
	Table    string
	From     string
	To       string
	OnUpdate string
	OnDelete string
}

type index struct {
	Name    string
	Unique  bool
	Columns string
}

type tableShape struct {
	// AutoIncrement is not reported by any PRAGMA; it is read from the table's DDL.
	AutoIncrement bool
	Columns       []column
	ForeignKeys   []foreignKey
	Indexes       []index
}

func (s tableShape) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "autoincrement=%t columns=[", s.AutoIncrement)
	for i, c := range s.Columns {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s:%s", c.Name, c.Type)
		if c.NotNull {
			b.WriteString(":notnull")
		}
		if c.PK {
			b.WriteString(":pk")
		}
	}
	b.WriteString("] foreign_keys=[")
	for i, fk := range s.ForeignKeys {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s->%s(%s) update=%s delete=%s", fk.From, fk.Table, fk.To, fk.OnUpdate, fk.OnDelete)
	}
	b.WriteString("] indexes=[")
	for i, idx := range s.Indexes {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s(%s) unique=%t", idx.Name, idx.Columns, idx.Unique)
	}
	b.WriteString("]")
	return b.String()
}

func (s tableShape) equal(o tableShape) bool {
	return s.AutoIncrement == o.AutoIncrement &&
		slices.Equal(s.Columns, o.Columns) &&
		slices.Equal(s.ForeignKeys, o.ForeignKeys) &&
		slices.Equal(s.Indexes, o.Indexes)
}

// expectedShapes is the version 1 layout as SQLite reports it.
var expectedShapes = map[string]tableShape{
	repositories.TablePlaylists: {
		Columns: []column{
			{Name: "id", Type: "INTEGER", PK: true},
			{Name: "name", Type: "TEXT", NotNull: true},
			{Name: "createdAt", Type: "INTEGER", NotNull: true},
		},
		AutoIncrement: true,
	},
	repositories.TablePlaylistItems: {
		Columns: []column{
			{Name: "id", Type: "INTEGER", PK: true},
			{Name: "playlistId", Type: "INTEGER", NotNull: true},
			{Name: "mediaId", Type: "INTEGER", NotNull: true},
			{Name: "mediaUri", Type: "TEXT", NotNull: true},
			{Name: "addedAt", Type: "INTEGER", NotNull: true},
		},
		ForeignKeys: []foreignKey{
			{Table: "playlists", From: "playlistId", To: "id", OnUpdate: "NO ACTION", OnDelete: "CASCADE"},
		},
		Indexes: []index{
			{Name: "index_playlist_items_playlistId", Columns: "playlistId"},
		},
		AutoIncrement: true,
	},
}

// statements splits a script into executable statements with comments removed.
func statements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(removeComments(stmt))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// removeComments strips single-line comments and blank lines.
func removeComments(sql string) string {
	lines := strings.Split(sql, "\n")
	var result []string
	for _, line := range lines {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// identityHash fingerprints the schema script. Whitespace and comments do not count.
func identityHash(script string) string {
	stmts := statements(script)
	for i, stmt := range stmts {
		stmts[i] = strings.Join(strings.Fields(stmt), " ")
	}
	sum := sha256.Sum256([]byte(strings.Join(stmts, ";\n")))
	return hex.EncodeToString(sum[:])
}

// ensureSchema creates the version 1 schema on a fresh file and validates it on every open.
func ensureSchema(ctx context.Context, db *sql.DB, logger *log.Logger) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return shared.ClassifyError("read schema version", err)
	}

	switch version {
	case 0:
		if err := createSchema(ctx, db); err != nil {
			// A foreign table of the same name makes the DDL fail; report it as a mismatch.
			if verr := validateTables(ctx, db); verr != nil {
				logger.Error("schema validation failed", "err", verr)
				return verr
			}
			return err
		}
		if err := validateTables(ctx, db); err != nil {
			logger.Error("schema validation failed", "err", err)
			return err
		}
		if err := stampSchema(ctx, db); err != nil {
			return err
		}
		logger.Info("created schema", "version", SchemaVersion)
		return nil
	case SchemaVersion:
	default:
		return &shared.SchemaError{
			Table:    "user_version",
			Expected: fmt.Sprintf("%d", SchemaVersion),
			Found:    fmt.Sprintf("%d", version),
		}
	}

	if err := checkIdentity(ctx, db); err != nil {
		logger.Error("schema identity mismatch", "err", err)
		return err
	}
	if err := validateTables(ctx, db); err != nil {
		logger.Error("schema validation failed", "err", err)
		return err
	}
	logger.Debug("validated schema", "version", version)
	return nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return shared.ClassifyError("create schema", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements(schemaV1) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return shared.ClassifyError("create schema", fmt.Errorf("%w\nStatement: %s", err, stmt))
		}
	}

	return shared.ClassifyError("create schema", tx.Commit())
}

// stampSchema records the fingerprint and version once the tables are known good.
func stampSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return shared.ClassifyError("stamp schema", err)
	}
	defer tx.Rollback()

	stmts := []struct {
		query string
		args  []any
	}{
		{query: `CREATE TABLE IF NOT EXISTS store_master (id INTEGER PRIMARY KEY, identity_hash TEXT)`},
		{
			query: `INSERT OR REPLACE INTO store_master (id, identity_hash) VALUES (?, ?)`,
			args:  []any{identityRowID, identityHash(schemaV1)},
		},
		{query: fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			return shared.ClassifyError("stamp schema", err)
		}
	}

	return shared.ClassifyError("stamp schema", tx.Commit())
}

func checkIdentity(ctx context.Context, db *sql.DB) error {
	want := identityHash(schemaV1)

	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'store_master')`,
	).Scan(&exists)
	if err != nil {
		return shared.ClassifyError("check schema identity", err)
	}
	if !exists {
		return &shared.SchemaError{Table: "store_master", Expected: want, Found: "missing"}
	}

	var found sql.NullString
	err = db.QueryRowContext(ctx, `SELECT identity_hash FROM store_master WHERE id = ?`, identityRowID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return &shared.SchemaError{Table: "store_master", Expected: want, Found: "missing"}
	}
	if err != nil {
		return shared.ClassifyError("check schema identity", err)
	}
	if found.String != want {
		return &shared.SchemaError{Table: "store_master", Expected: want, Found: found.String}
	}
	return nil
}

func validateTables(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{repositories.TablePlaylists, repositories.TablePlaylistItems} {
		want := expectedShapes[table]
		got, err := readShape(ctx, db, table)
		if err != nil {
			return shared.ClassifyError("validate schema", err)
		}
		if !want.equal(got) {
			return &shared.SchemaError{Table: table, Expected: want.String(), Found: got.String()}
		}
	}
	return nil
}

// readShape reads a table's layout. Each PRAGMA cursor is closed before the
// next query since the writer pool holds a single connection.
func readShape(ctx context.Context, db *sql.DB, table string) (tableShape, error) {
	var shape tableShape
	var err error

	shape.AutoIncrement, err = tableAutoIncrement(ctx, db, table)
	if err != nil {
		return shape, err
	}
	shape.Columns, err = tableColumns(ctx, db, table)
	if err != nil {
		return shape, err
	}
	shape.ForeignKeys, err = tableForeignKeys(ctx, db, table)
	if err != nil {
		return shape, err
	}
	shape.Indexes, err = tableIndexes(ctx, db, table)
	return shape, err
}

func tableAutoIncrement(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var ddl sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(ddl.String), "AUTOINCREMENT"), nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []column
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultVal sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, column{
			Name:    name,
			Type:    strings.ToUpper(colType),
			NotNull: notNull != 0,
			PK:      pk != 0,
		})
	}

	return columns, rows.Err()
}

func tableForeignKeys(ctx context.Context, db *sql.DB, table string) ([]foreignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []foreignKey
	for rows.Next() {
		var id, seq int
		var fk foreignKey
		var match string
		if err := rows.Scan(&id, &seq, &fk.Table, &fk.From, &fk.To, &fk.OnUpdate, &fk.OnDelete, &match); err != nil {
			return nil, err
		}
		keys = append(keys, fk)
	}

	return keys, rows.Err()
}

func tableIndexes(ctx context.Context, db *sql.DB, table string) ([]index, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", table))
	if err != nil {
		return nil, err
	}

	var indexes []index
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		// Only explicit CREATE INDEX statements; autoindexes for constraints are covered by table_info.
		if origin == "c" {
			indexes = append(indexes, index{Name: name, Unique: unique != 0})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range indexes {
		cols, err := indexColumns(ctx, db, indexes[i].Name)
		if err != nil {
			return nil, err
		}
		indexes[i].Columns = strings.Join(cols, ",")
	}

	slices.SortFunc(indexes, func(a, b index) int { return strings.Compare(a.Name, b.Name) })
	return indexes, nil
}

func indexColumns(ctx context.Context, db *sql.DB, name string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var seqno, cid int
		var col sql.NullString
		if err := rows.Scan(&seqno, &cid, &col); err != nil {
			return nil, err
		}
		cols = append(cols, col.String)
	}

	return cols, rows.Err()
}
