// Package ddltrack interprets QUERY_EVENT SQL text to maintain
// versioned table definitions: CREATE TABLE establishes a table's
// column list, ALTER TABLE applies structural deltas to it.
//
// The teacher library carries QUERY_EVENT's raw SQL (events.go) but
// never interprets it — this package is new, grounded on §4.4's
// regex-anchored recognizer and the column-list parser redesigned per
// §9 (nested parentheses in ENUM/SET/DECIMAL type lists, skipping
// index/constraint clauses, instead of the source's naive comma split).
package ddltrack

import "github.com/ghc888/MaxScale/internal/gtid"

// TableCreate is the definitive shape of one database.table, as last
// established by a CREATE TABLE and amended by any ALTER TABLEs since.
type TableCreate struct {
	Database    string
	Table       string
	ColumnNames []string
	DDL         string // verbatim CREATE TABLE text
	Version     int    // monotonic, incremented on schema-affecting change
	GTID        gtid.GTID
}

// Key returns "database.table", the identifier TableMap and the
// registry index tables on.
func (t *TableCreate) Key() string {
	return t.Database + "." + t.Table
}

// ColumnCount returns len(ColumnNames); invariant: always equals the
// column_count seen on the matching TABLE_MAP_EVENT.
func (t *TableCreate) ColumnCount() int {
	return len(t.ColumnNames)
}

// clone returns a deep-enough copy for use as the "before" state when
// applying an ALTER, so the prior version's column slice is never
// mutated in place.
func (t *TableCreate) clone() *TableCreate {
	cp := *t
	cp.ColumnNames = append([]string(nil), t.ColumnNames...)
	return &cp
}
