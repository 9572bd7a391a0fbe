package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghc888/MaxScale/internal/avrocontainer"
	"github.com/ghc888/MaxScale/internal/binlogstream"
	"github.com/ghc888/MaxScale/internal/checkpoint"
)

// fixtureBuilder assembles a synthetic binlog file byte-by-byte, in the
// same style as internal/binlogstream's own framer_test.go.
type fixtureBuilder struct {
	buf    []byte
	offset uint32
}

func newFixtureBuilder() *fixtureBuilder {
	return &fixtureBuilder{buf: append([]byte(nil), binlogstream.Magic...), offset: 4}
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func le32(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }
func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func (b *fixtureBuilder) add(typ binlogstream.EventType, serverID uint32, body []byte) {
	size := uint32(binlogstream.HeaderSize + len(body))
	next := b.offset + size
	hdr := make([]byte, binlogstream.HeaderSize)
	hdr[4] = byte(typ)
	copy(hdr[5:9], le32(serverID))
	copy(hdr[9:13], le32(size))
	copy(hdr[13:17], le32(next))
	b.buf = append(b.buf, hdr...)
	b.buf = append(b.buf, body...)
	b.offset = next
}

func fdeBody() []byte {
	var b []byte
	b = append(b, le16(4)...) // binlog_version
	sv := make([]byte, 50)
	copy(sv, []byte("5.6.24-debug-log"))
	b = append(b, sv...)
	b = append(b, le32(0)...) // create_timestamp
	b = append(b, 19)         // event_header_length
	table := make([]byte, 40)
	table[binlogstream.TableMapEvent-1] = 6      // post-header len < 8 -> 4-byte table ids
	table[binlogstream.WriteRowsEventV2-1] = 6   // same, for the rows event
	b = append(b, table...)
	return b
}

func gtidBody(sequence uint64, domain uint32) []byte {
	var b []byte
	b = append(b, le64(sequence)...)
	b = append(b, le32(domain)...)
	b = append(b, 0) // flags: no group commit id
	return b
}

func queryBody(schema, query string) []byte {
	var b []byte
	b = append(b, le32(0)...)            // slave_proxy_id
	b = append(b, le32(0)...)            // execution_time
	b = append(b, byte(len(schema)))     // db_name_len
	b = append(b, le16(0)...)            // error_code
	b = append(b, le16(0)...)            // status_vars_len
	b = append(b, []byte(schema)...)
	b = append(b, 0) // NUL after schema
	b = append(b, []byte(query)...)
	return b
}

func tableMapBody(tableID uint32, schema, table string) []byte {
	var b []byte
	b = append(b, le32(tableID)...)
	b = append(b, le16(0)...) // flags
	b = append(b, byte(len(schema)))
	b = append(b, []byte(schema)...)
	b = append(b, 0)
	b = append(b, byte(len(table)))
	b = append(b, []byte(table)...)
	b = append(b, 0)
	b = append(b, 2)          // numCol lenenc = 2
	b = append(b, 0x03, 0x0f) // TypeLong (id), TypeVarchar (name)
	b = append(b, 2)          // metadata block length lenenc: only varchar's 2 bytes
	b = append(b, le16(64)...)
	b = append(b, 0x02) // nullable bitmap: name (bit 1) nullable
	return b
}

func writeRowsV2Body(tableID uint32, rows [][2]interface{}) []byte {
	var b []byte
	b = append(b, le32(tableID)...)
	b = append(b, le16(0)...) // flags
	b = append(b, le16(2)...) // v2 extra-data length: 2 == no extra data
	b = append(b, 2)          // numCol lenenc
	b = append(b, 0x03)       // present bitmap: both columns present
	for _, row := range rows {
		b = append(b, 0x00) // null bitmap: nothing null
		b = append(b, le32(uint32(row[0].(int)))...)
		name := row[1].(string)
		b = append(b, byte(len(name)))
		b = append(b, []byte(name)...)
	}
	return b
}

// buildFixture writes a binlog file with a FORMAT_DESCRIPTION_EVENT, a
// CREATE TABLE, a two-row WRITE_ROWS_V2, and a closing XID, each
// preceded by its own GTID_EVENT, matching row-based replication's
// actual event ordering.
func buildFixture(t *testing.T, dir, name string) {
	t.Helper()
	b := newFixtureBuilder()
	b.add(binlogstream.FormatDescriptionEvent, 1, fdeBody())
	b.add(binlogstream.GTIDEvent, 1, gtidBody(10, 0))
	b.add(binlogstream.QueryEvent, 1, queryBody("testdb", "CREATE TABLE testdb.accounts (id INT, name VARCHAR(64))"))
	b.add(binlogstream.GTIDEvent, 1, gtidBody(11, 0))
	b.add(binlogstream.TableMapEvent, 1, tableMapBody(100, "testdb", "accounts"))
	b.add(binlogstream.WriteRowsEventV2, 1, writeRowsV2Body(100, [][2]interface{}{
		{1, "alice"},
		{2, "bob"},
	}))
	b.add(binlogstream.XidEvent, 1, le64(0))
	if err := os.WriteFile(filepath.Join(dir, name), b.buf, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunOnceConvertsRowsAndFlushesOnXid(t *testing.T) {
	binDir := t.TempDir()
	avroDir := t.TempDir()
	buildFixture(t, binDir, "testbinlog.000001")

	cfg := Config{
		BinlogDir:      binDir,
		AvroDir:        avroDir,
		CheckpointPath: filepath.Join(avroDir, "avro-conversion.ini"),
		DDLListPath:    filepath.Join(avroDir, "table-ddl.list"),
		RowTarget:      1000,
		TrxTarget:      1,
	}
	inst, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close()

	err = inst.RunOnce(context.Background())
	if !errors.Is(err, ErrLastFile) {
		t.Fatalf("RunOnce error = %v, want ErrLastFile", err)
	}

	avroPath := inst.avroPath("testdb", "accounts", 1)
	reader, err := avrocontainer.OpenReader(avroPath)
	if err != nil {
		t.Fatalf("open written avro file: %v", err)
	}
	defer reader.Close()

	records, err := reader.NextBlock()
	if err != nil {
		t.Fatalf("read block: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["GTID"] != "0-1-11:0" {
		t.Errorf("record 0 GTID = %v, want 0-1-11:0", records[0]["GTID"])
	}
	if records[1]["GTID"] != "0-1-11:0" {
		t.Errorf("record 1 GTID = %v, want 0-1-11:0", records[1]["GTID"])
	}

	ckpt := checkpoint.Open(cfg.CheckpointPath)
	st, err := ckpt.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.File != "testbinlog.000001" {
		t.Errorf("checkpoint file = %q, want testbinlog.000001", st.File)
	}
	if st.GTID.Sequence != 11 {
		t.Errorf("checkpoint gtid sequence = %d, want 11", st.GTID.Sequence)
	}
}

func TestRunOnceSkipsUnmappedRowsEvent(t *testing.T) {
	binDir := t.TempDir()
	avroDir := t.TempDir()

	b := newFixtureBuilder()
	b.add(binlogstream.FormatDescriptionEvent, 1, fdeBody())
	b.add(binlogstream.WriteRowsEventV2, 1, writeRowsV2Body(999, [][2]interface{}{{1, "x"}}))
	b.add(binlogstream.XidEvent, 1, le64(0))
	if err := os.WriteFile(filepath.Join(binDir, "testbinlog.000001"), b.buf, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		BinlogDir:      binDir,
		AvroDir:        avroDir,
		CheckpointPath: filepath.Join(avroDir, "avro-conversion.ini"),
		DDLListPath:    filepath.Join(avroDir, "table-ddl.list"),
	}
	inst, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close()

	err = inst.RunOnce(context.Background())
	if !errors.Is(err, ErrLastFile) {
		t.Fatalf("RunOnce error = %v, want ErrLastFile", err)
	}
}
