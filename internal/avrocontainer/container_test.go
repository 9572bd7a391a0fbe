package avrocontainer

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/linkedin/goavro/v2"
)

const testSchema = `{"type":"record","name":"d_t","fields":[{"name":"a","type":"int"}]}`

func TestCreateWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.t.000001.avro")

	at, err := OpenOrCreate(path, testSchema)
	if err != nil {
		t.Fatal(err)
	}
	at.Append(map[string]interface{}{"a": 1})
	at.Append(map[string]interface{}{"a": 2})
	if err := at.Finalize(); err != nil {
		t.Fatal(err)
	}
	at.Append(map[string]interface{}{"a": 3})
	if err := at.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var all []map[string]interface{}
	for {
		block, err := r.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, block...)
	}
	if len(all) != 3 {
		t.Fatalf("got %d records, want 3", len(all))
	}
	for i, want := range []int32{1, 2, 3} {
		got, ok := all[i]["a"].(int32)
		if !ok || got != want {
			t.Fatalf("record %d: got %#v, want %d", i, all[i]["a"], want)
		}
	}
}

func TestOpenExistingAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.t.000001.avro")

	at1, err := OpenOrCreate(path, testSchema)
	if err != nil {
		t.Fatal(err)
	}
	at1.Append(map[string]interface{}{"a": 1})
	if err := at1.Close(); err != nil {
		t.Fatal(err)
	}

	at2, err := OpenOrCreate(path, testSchema)
	if err != nil {
		t.Fatal(err)
	}
	at2.Append(map[string]interface{}{"a": 2})
	if err := at2.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var all []map[string]interface{}
	for {
		block, err := r.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, block...)
	}
	if len(all) != 2 {
		t.Fatalf("got %d records after reopen-append, want 2", len(all))
	}
}

func TestOpenExistingSchemaMismatchFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.t.000001.avro")
	at, err := OpenOrCreate(path, testSchema)
	if err != nil {
		t.Fatal(err)
	}
	at.Close()

	otherSchema := `{"type":"record","name":"d_t","fields":[{"name":"b","type":"string"}]}`
	if _, err := OpenOrCreate(path, otherSchema); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}

func TestFinalizeTruncatesOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.t.000001.avro")
	at, err := OpenOrCreate(path, testSchema)
	if err != nil {
		t.Fatal(err)
	}
	sizeBefore, err := at.file.Seek(0, io.SeekEnd)
	if err != nil {
		t.Fatal(err)
	}

	at.Append(map[string]interface{}{"a": 1})
	at.file.Close() // force the next Write to fail
	if err := at.Finalize(); err == nil {
		t.Fatal("expected finalize to fail on a closed file")
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != sizeBefore {
		t.Fatalf("got size %d, want %d (unchanged)", fi.Size(), sizeBefore)
	}
}

func TestNativeRecordNullAndUnion(t *testing.T) {
	schema := `{"type":"record","name":"x","fields":[
		{"name":"GTID","type":"string"},
		{"name":"timestamp","type":"int"},
		{"name":"event_type","type":{"type":"enum","name":"event_type","symbols":["insert","update_before","update_after","delete"]}},
		{"name":"a","type":["null","long"]}
	]}`
	cdc, err := goavro.NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	rec := NativeRecord("0-1-1", 1000, "insert", []string{"a"}, []string{"long"}, []interface{}{int64(42)})
	if _, err := cdc.BinaryFromNative(nil, rec); err != nil {
		t.Fatalf("encode with value: %v", err)
	}
	recNull := NativeRecord("0-1-1", 1000, "insert", []string{"a"}, []string{"long"}, []interface{}{nil})
	if _, err := cdc.BinaryFromNative(nil, recNull); err != nil {
		t.Fatalf("encode with null: %v", err)
	}
}
