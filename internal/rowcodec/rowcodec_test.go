package rowcodec

import (
	"testing"

	"github.com/ghc888/MaxScale/internal/binlogstream"
	"github.com/ghc888/MaxScale/internal/codec"
	"github.com/ghc888/MaxScale/internal/ddltrack"
	"github.com/ghc888/MaxScale/internal/gtid"
	"github.com/ghc888/MaxScale/internal/tablemap"
)

func bindSingleLongColumn(t *testing.T, db, table string, id uint64) *tablemap.TableMap {
	t.Helper()
	tr := ddltrack.NewTracker(nil)
	if _, _, err := tr.HandleQuery(db, "CREATE TABLE "+table+" (a INT)", gtid.GTID{}); err != nil {
		t.Fatal(err)
	}
	reg := tablemap.NewRegistry()
	body := tablemap.TableMapBody{
		TableID: id, SchemaName: db, TableName: table,
		Columns: []tablemap.Column{{Ordinal: 0, Type: tablemap.TypeLong, Nullable: false}},
	}
	tm, _, err := reg.Bind(body, gtid.GTID{Domain: 0, ServerID: 1, Sequence: 1}, tr.Lookup)
	if err != nil {
		t.Fatal(err)
	}
	return tm
}

// TestSimpleInsertScenario matches spec scenario 2: CREATE TABLE t(a
// INT), TABLE_MAP db=d tbl=t id=42 types=[LONG], WRITE_ROWS_v2 body
// {table_id=42, flags=0x0001, ncols=1, present=0x01, null=0x00,
// value=0x0A000000} decodes to one record {a: 10}.
func TestSimpleInsertScenario(t *testing.T) {
	tm := bindSingleLongColumn(t, "d", "t", 42)

	var payload []byte
	payload = append(payload, 42, 0, 0, 0, 0, 0) // table_id, 6 bytes LE
	payload = append(payload, 0x01, 0x00)        // flags
	payload = append(payload, 0x02, 0x00)        // v2 extra-data length (2 = none)
	payload = append(payload, 0x01)              // lenenc ncols = 1
	payload = append(payload, 0x01)              // present bitmap
	payload = append(payload, 0x00)              // row null bitmap
	payload = append(payload, 0x0a, 0x00, 0x00, 0x00)

	c := codec.NewCursor(payload)
	h, err := DecodeRowsHeader(c, binlogstream.WriteRowsEventV2, 6)
	if err != nil {
		t.Fatal(err)
	}
	if h.TableID != 42 {
		t.Fatalf("got table id %d", h.TableID)
	}
	g := gtid.GTID{Domain: 0, ServerID: 1, Sequence: 1}
	records, err := DecodeRows(c, tm, binlogstream.WriteRowsEventV2, g)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Kind != EventInsert {
		t.Fatalf("got kind %s", records[0].Kind)
	}
	v, ok := records[0].Values[0].(int64)
	if !ok || v != 10 {
		t.Fatalf("got value %#v", records[0].Values[0])
	}
}

// TestUpdateRoundTrip matches spec scenario 3.
func TestUpdateRoundTrip(t *testing.T) {
	tr := ddltrack.NewTracker(nil)
	if _, _, err := tr.HandleQuery("d", "CREATE TABLE t (a INT, b VARCHAR(20))", gtid.GTID{}); err != nil {
		t.Fatal(err)
	}
	reg := tablemap.NewRegistry()
	body := tablemap.TableMapBody{
		TableID: 1, SchemaName: "d", TableName: "t",
		Columns: []tablemap.Column{
			{Ordinal: 0, Type: tablemap.TypeLong},
			{Ordinal: 1, Type: tablemap.TypeVarchar, Meta: 20},
		},
	}
	tm, _, err := reg.Bind(body, gtid.GTID{}, tr.Lookup)
	if err != nil {
		t.Fatal(err)
	}

	var payload []byte
	payload = append(payload, 1, 0, 0, 0, 0, 0)
	payload = append(payload, 0, 0) // flags
	payload = append(payload, 0x02, 0x00)
	payload = append(payload, 2)       // ncols
	payload = append(payload, 0x03)    // present before
	payload = append(payload, 0x03)    // present after
	payload = append(payload, 0x00)    // null bitmap before
	payload = append(payload, 1, 0, 0, 0) // a=1
	payload = append(payload, 1, 'x')     // b="x" lenenc(1)+"x"
	payload = append(payload, 0x00)       // null bitmap after
	payload = append(payload, 2, 0, 0, 0) // a=2
	payload = append(payload, 2, 'y', 'y')

	c := codec.NewCursor(payload)
	if _, err := DecodeRowsHeader(c, binlogstream.UpdateRowsEventV2, 6); err != nil {
		t.Fatal(err)
	}
	records, err := DecodeRows(c, tm, binlogstream.UpdateRowsEventV2, gtid.GTID{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Kind != EventUpdateBefore || records[1].Kind != EventUpdateAfter {
		t.Fatalf("got kinds %s, %s", records[0].Kind, records[1].Kind)
	}
	if records[0].Values[0].(int64) != 1 || records[0].Values[1].(string) != "x" {
		t.Fatalf("got before %#v", records[0].Values)
	}
	if records[1].Values[0].(int64) != 2 || records[1].Values[1].(string) != "yy" {
		t.Fatalf("got after %#v", records[1].Values)
	}
}

func TestColumnCountMismatch(t *testing.T) {
	tm := bindSingleLongColumn(t, "d", "t", 1)
	var payload []byte
	payload = append(payload, 2) // ncols = 2, but tm has 1 column
	c := codec.NewCursor(payload)
	_, err := DecodeRows(c, tm, binlogstream.WriteRowsEventV2, gtid.GTID{})
	if err != ErrColumnCountMismatch {
		t.Fatalf("got %v", err)
	}
}
