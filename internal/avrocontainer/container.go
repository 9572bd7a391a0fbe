// Package avrocontainer implements the Avro Object Container File
// format (§4.2, §6): a 4-byte magic, a metadata map carrying the JSON
// schema, a 16-byte sync marker, then a sequence of blocks of
// (record-count, byte-size, payload, sync-marker).
//
// goavro.Codec (github.com/linkedin/goavro/v2) handles per-record
// native-to-binary encoding, the hard part — union-typed nullable
// fields and schema validation — grounded on the retrieved
// cockroachdb changefeedccl/avro.go's use of goavro.Codec and
// goavro.Union. The container framing itself is written by hand rather
// than through goavro.NewOCFWriter: that API always emits a fresh
// header and has no append-to-existing-file mode, which conflicts with
// §3's "AvroTable... supports create-or-append on an existing file"
// and §4.2's truncate-to-prior-size-on-partial-failure invariant, both
// of which need direct control over the file handle. See DESIGN.md.
package avrocontainer

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/ghc888/MaxScale/internal/codec"
	"github.com/linkedin/goavro/v2"
)

var magic = [4]byte{'O', 'b', 'j', 1}

const syncMarkerSize = 16

// AvroTable is one open container file for a single (database, table,
// version): parsed codec, the schema text, and an in-memory pending
// block awaiting finalization (§3's AvroTable, §4.2's in-memory
// datablock).
type AvroTable struct {
	Path       string
	SchemaText string

	codec      *goavro.Codec
	file       *os.File
	syncMarker [syncMarkerSize]byte
	pending    []map[string]interface{}
}

// OpenOrCreate opens path for appending if it already exists and its
// embedded schema matches schemaText byte-exact (§3 invariant); an
// existing file whose schema differs is an error. A missing or empty
// file is created fresh with a new random sync marker.
func OpenOrCreate(path, schemaText string) (*AvroTable, error) {
	cdc, err := goavro.NewCodec(schemaText)
	if err != nil {
		return nil, fmt.Errorf("avrocontainer: invalid schema: %w", err)
	}

	if fi, statErr := os.Stat(path); statErr == nil && fi.Size() > 0 {
		return openExisting(path, schemaText, cdc)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	t := &AvroTable{Path: path, SchemaText: schemaText, codec: cdc, file: f}
	if _, err := rand.Read(t.syncMarker[:]); err != nil {
		f.Close()
		return nil, err
	}
	if err := t.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

func openExisting(path, schemaText string, cdc *goavro.Codec) (*AvroTable, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	hdr, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if hdr.schema != schemaText {
		f.Close()
		return nil, fmt.Errorf("avrocontainer: %s: schema on disk does not match in-memory schema", path)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	t := &AvroTable{Path: path, SchemaText: schemaText, codec: cdc, file: f}
	t.syncMarker = hdr.syncMarker
	return t, nil
}

// Append queues one Avro-native record, to be written on the next
// Finalize call.
func (t *AvroTable) Append(record map[string]interface{}) {
	t.pending = append(t.pending, record)
}

// Pending reports how many records are queued but not yet finalized.
func (t *AvroTable) Pending() int {
	return len(t.pending)
}

// Finalize encodes every pending record into one data block and writes
// it. On any I/O failure partway through, the file is truncated back
// to the size it held before Finalize started and the write cursor is
// restored to end-of-file (§4.2, §8's durability invariant); the
// in-memory pending block is left untouched so the caller can retry.
func (t *AvroTable) Finalize() error {
	if len(t.pending) == 0 {
		return nil
	}
	var payload bytes.Buffer
	for _, rec := range t.pending {
		b, err := t.codec.BinaryFromNative(nil, rec)
		if err != nil {
			return fmt.Errorf("avrocontainer: encode record: %w", err)
		}
		payload.Write(b)
	}

	priorSize, err := t.file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if err := t.writeBlock(len(t.pending), payload.Bytes()); err != nil {
		t.file.Truncate(priorSize)
		t.file.Seek(0, io.SeekEnd)
		return err
	}
	t.pending = t.pending[:0]
	return nil
}

func (t *AvroTable) writeBlock(count int, payload []byte) error {
	var hdr []byte
	hdr = append(hdr, codec.ZigZagLong(int64(count))...)
	hdr = append(hdr, codec.ZigZagLong(int64(len(payload)))...)
	if _, err := t.file.Write(hdr); err != nil {
		return err
	}
	if _, err := t.file.Write(payload); err != nil {
		return err
	}
	if _, err := t.file.Write(t.syncMarker[:]); err != nil {
		return err
	}
	return t.file.Sync()
}

// Close flushes any pending records and closes the underlying file.
func (t *AvroTable) Close() error {
	if err := t.Finalize(); err != nil {
		t.file.Close()
		return err
	}
	return t.file.Close()
}

// Header exposes the binary preamble (magic, schema metadata, sync
// marker) a streaming client needs before receiving data blocks (§4.9
// "write the schema preamble... Avro: the file's binary header").
func (t *AvroTable) Header() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeaderTo(&buf, t.SchemaText, t.syncMarker); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *AvroTable) writeHeader() error {
	return writeHeaderTo(t.file, t.SchemaText, t.syncMarker)
}
