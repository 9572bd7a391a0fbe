package ddltrack

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ghc888/MaxScale/internal/gtid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	reBegin  = regexp.MustCompile(`(?i)^begin$`)
	reCommit = regexp.MustCompile(`(?i)^commit$`)
)

// ErrNoPriorCreate is the schema error (§7) raised when an ALTER TABLE
// targets a database.table the tracker has never seen CREATE TABLE for.
var ErrNoPriorCreate = errors.New("ddltrack: alter with no prior create")

// Statement classifies the outcome of feeding one QUERY_EVENT through
// the tracker.
type Statement int

const (
	// StatementOther is any QUERY_EVENT that isn't schema-affecting and
	// isn't a BEGIN/COMMIT marker (e.g. DML against a transactional
	// table, reported via XID_EVENT instead).
	StatementOther Statement = iota
	StatementCreate
	StatementAlter
	StatementBegin
	StatementCommit
)

// Tracker interprets QUERY_EVENT SQL text and maintains the definitive
// TableCreate for every database.table observed, persisting CREATE
// statements to a sidecar file (§4.4, §6).
type Tracker struct {
	mu     sync.RWMutex
	tables map[string]*TableCreate // keyed by "database.table"
	store  *Store
}

// NewTracker returns a Tracker persisting through store. store may be
// nil to run without a sidecar file (used by tests).
func NewTracker(store *Store) *Tracker {
	return &Tracker{tables: make(map[string]*TableCreate), store: store}
}

// Lookup returns the current TableCreate for "database.table", if any.
func (t *Tracker) Lookup(key string) (*TableCreate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tc, ok := t.tables[key]
	return tc, ok
}

// HandleQuery classifies and, for CREATE/ALTER TABLE, applies sql
// (already stripped of comments is not required — HandleQuery
// normalizes it itself). schema is the QUERY_EVENT's own schema name,
// substituted when the statement's identifier isn't schema-qualified.
func (t *Tracker) HandleQuery(schema, sql string, g gtid.GTID) (Statement, *TableCreate, error) {
	norm := normalizeSQL(sql)
	switch {
	case reBegin.MatchString(norm):
		return StatementBegin, nil, nil
	case reCommit.MatchString(norm):
		return StatementCommit, nil, nil
	case reCreateTable.MatchString(norm):
		tc, err := t.applyCreate(schema, norm, g)
		return StatementCreate, tc, err
	case reAlterTable.MatchString(norm):
		tc, err := t.applyAlterStatement(schema, norm, g)
		return StatementAlter, tc, err
	default:
		return StatementOther, nil, nil
	}
}

func (t *Tracker) applyCreate(schema, norm string, g gtid.GTID) (*TableCreate, error) {
	rest := reCreateTable.ReplaceAllString(norm, "")
	db, table, rest, ok := splitIdentifier(rest)
	if !ok || table == "" {
		return nil, fmt.Errorf("ddltrack: cannot parse identifier in CREATE TABLE: %q", norm)
	}
	if db == "" {
		db = schema
	}
	cols, ok := parseColumnList(rest)
	if !ok {
		return nil, fmt.Errorf("ddltrack: cannot locate column list in CREATE TABLE %s.%s", db, table)
	}
	tc := &TableCreate{
		Database:    db,
		Table:       table,
		ColumnNames: cols,
		DDL:         norm,
		Version:     1,
		GTID:        g,
	}

	t.mu.Lock()
	if prior, ok := t.tables[tc.Key()]; ok {
		tc.Version = prior.Version + 1
	}
	t.tables[tc.Key()] = tc
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Append(tc.DDL); err != nil {
			log.WithError(err).WithField("table", tc.Key()).Warn("ddltrack: failed to persist CREATE TABLE")
		}
	}
	return tc, nil
}

func (t *Tracker) applyAlterStatement(schema, norm string, g gtid.GTID) (*TableCreate, error) {
	rest := reAlterTable.ReplaceAllString(norm, "")
	db, table, rest, ok := splitIdentifier(rest)
	if !ok || table == "" {
		return nil, fmt.Errorf("ddltrack: cannot parse identifier in ALTER TABLE: %q", norm)
	}
	if db == "" {
		db = schema
	}
	key := db + "." + table

	t.mu.Lock()
	defer t.mu.Unlock()
	prior, ok := t.tables[key]
	if !ok {
		return nil, errors.Wrapf(ErrNoPriorCreate, "table %s", key)
	}
	next := applyAlter(prior, strings.TrimSpace(rest))
	next.DDL = norm
	next.GTID = g
	t.tables[next.Key()] = next
	if next.Key() != key {
		delete(t.tables, key)
	}
	return next, nil
}

// ReplayCreate feeds one verbatim CREATE TABLE statement (as persisted
// by Store) back through the tracker on startup, without re-persisting
// it. The statement must carry a schema-qualified table name, since the
// QUERY_EVENT's own schema context isn't preserved in table-ddl.list.
func (t *Tracker) ReplayCreate(ddl string) error {
	norm := normalizeSQL(ddl)
	if !reCreateTable.MatchString(norm) {
		return fmt.Errorf("ddltrack: not a CREATE TABLE statement: %q", ddl)
	}
	rest := reCreateTable.ReplaceAllString(norm, "")
	db, table, rest, ok := splitIdentifier(rest)
	if !ok || table == "" || db == "" {
		return fmt.Errorf("ddltrack: replayed CREATE TABLE must be schema-qualified: %q", ddl)
	}
	cols, ok := parseColumnList(rest)
	if !ok {
		return fmt.Errorf("ddltrack: cannot locate column list in replayed CREATE TABLE %s.%s", db, table)
	}
	tc := &TableCreate{Database: db, Table: table, ColumnNames: cols, DDL: norm, Version: 1}
	t.mu.Lock()
	if prior, ok := t.tables[tc.Key()]; ok {
		tc.Version = prior.Version + 1
	}
	t.tables[tc.Key()] = tc
	t.mu.Unlock()
	return nil
}

// All returns every TableCreate currently tracked, for checkpoint/debug
// dumps. The returned slice is a snapshot, safe to range over.
func (t *Tracker) All() []*TableCreate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*TableCreate, 0, len(t.tables))
	for _, tc := range t.tables {
		out = append(out, tc)
	}
	return out
}
