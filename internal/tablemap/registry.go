package tablemap

import (
	"fmt"
	"sync"

	"github.com/ghc888/MaxScale/internal/ddltrack"
	"github.com/ghc888/MaxScale/internal/gtid"
)

// activeSlots is the size of the fixed active-map array indexed by
// table_id % activeSlots, per §3/§4.5.
const activeSlots = 1024

// TableMap is the ephemeral binding between a binlog table id and the
// TableCreate it currently refers to (§3).
type TableMap struct {
	ID       uint64
	Create   *ddltrack.TableCreate
	Columns  []Column // snapshot of column_types/metadata at bind time
	Version  int      // copied from Create.Version at bind time
	GTID     gtid.GTID
	Database string
	Table    string
}

// Key returns "database.table", the identifier the keyed registry
// indexes on.
func (m *TableMap) Key() string {
	return m.Database + "." + m.Table
}

// Registry owns every live TableMap: a fixed-size active slot array for
// the hot decode path (table_id -> TableMap) and a keyed lookup by
// "database.table" that Bind consults to detect a changed version or
// table id (§3's ownership note: TableMap entries are owned by table_maps and
// weakly referenced by active_maps).
type Registry struct {
	mu      sync.RWMutex
	active  [activeSlots]*TableMap
	byTable map[string]*TableMap
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byTable: make(map[string]*TableMap)}
}

// Lookup returns the TableMap currently bound to a table_id, as seen by
// the row-event decoder.
func (r *Registry) Lookup(tableID uint64) (*TableMap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.active[tableID%activeSlots]
	if m == nil || m.ID != tableID {
		return nil, false
	}
	return m, true
}

// ErrNoSuchTable is returned by Bind when body's db.table has no known
// TableCreate: the event is a schema error (§7) and must be skipped.
type ErrNoSuchTable struct {
	Database, Table string
}

func (e ErrNoSuchTable) Error() string {
	return fmt.Sprintf("tablemap: no TableCreate for %s.%s", e.Database, e.Table)
}

// Bind publishes a TableMap for a decoded TABLE_MAP_EVENT, looking up
// the definitive TableCreate by "database.table" (via lookupCreate) and
// creating a fresh TableMap whenever the create's version has advanced
// past any prior binding for this key (§4.5). isNew reports whether a
// new AvroTable file must be opened for this version (the caller does
// that, since file/schema lifecycle belongs to internal/avrocontainer).
func (r *Registry) Bind(body TableMapBody, g gtid.GTID, lookupCreate func(key string) (*ddltrack.TableCreate, bool)) (tm *TableMap, isNew bool, err error) {
	key := body.SchemaName + "." + body.TableName
	tc, ok := lookupCreate(key)
	if !ok {
		return nil, false, ErrNoSuchTable{Database: body.SchemaName, Table: body.TableName}
	}
	if len(body.Columns) != tc.ColumnCount() {
		return nil, false, fmt.Errorf("tablemap: %s column count %d does not match create's %d", key, len(body.Columns), tc.ColumnCount())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prior, havePrior := r.byTable[key]
	if havePrior && prior.Version == tc.Version && prior.ID == body.TableID {
		prior.GTID = g
		return prior, false, nil
	}

	tm = &TableMap{
		ID:       body.TableID,
		Create:   tc,
		Columns:  body.Columns,
		Version:  tc.Version,
		GTID:     g,
		Database: body.SchemaName,
		Table:    body.TableName,
	}
	r.byTable[key] = tm
	r.active[body.TableID%activeSlots] = tm
	return tm, true, nil
}

// Release clears the active slot for tableID if that slot is still bound
// to tableID. The dummy release-all-maps sentinel uses ReleaseAll, not
// Release.
func (r *Registry) Release(tableID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.active[tableID%activeSlots]; m != nil && m.ID == tableID {
		r.active[tableID%activeSlots] = nil
	}
}

// ReleaseAll clears every active slot, used by the dummy table id
// release-all-maps sentinel (§4.6).
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.active {
		r.active[i] = nil
	}
}
