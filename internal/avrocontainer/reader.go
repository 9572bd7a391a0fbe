package avrocontainer

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ghc888/MaxScale/internal/codec"
	"github.com/linkedin/goavro/v2"
)

// Reader streams records back out of a container file written by
// AvroTable, block by block — used by tests (round-trip law, §8) and
// by the client session engine's Avro passthrough path (§4.9), which
// forwards whole encoded blocks rather than re-decoding them.
type Reader struct {
	file       *os.File
	codec      *goavro.Codec
	SchemaText string
	syncMarker [syncMarkerSize]byte
}

// OpenReader opens path read-only and parses its header.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	hdr, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	cdc, err := goavro.NewCodec(hdr.schema)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{file: f, codec: cdc, SchemaText: hdr.schema, syncMarker: hdr.syncMarker}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Header rebuilds the binary preamble (magic, schema metadata, sync
// marker) from the already-parsed schema and sync marker, for resending
// to a streaming client (§4.9, §6's "Avro: the file's binary header").
func (r *Reader) Header() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeaderTo(&buf, r.SchemaText, r.syncMarker); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rawBlock reads one data block's count and payload off the file,
// verifying the trailing sync marker. Returns io.EOF (unwrapped) once
// the file is exhausted exactly at a block boundary.
func (r *Reader) rawBlock() (count int64, payload []byte, err error) {
	br := byteReader{r.file}
	count, err = readZigZagLong(br)
	if err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, err
	}
	size, err := readZigZagLong(br)
	if err != nil {
		return 0, nil, err
	}
	payload = make([]byte, size)
	if _, err := io.ReadFull(r.file, payload); err != nil {
		return 0, nil, err
	}
	var marker [syncMarkerSize]byte
	if _, err := io.ReadFull(r.file, marker[:]); err != nil {
		return 0, nil, err
	}
	if marker != r.syncMarker {
		return 0, nil, fmt.Errorf("avrocontainer: sync marker mismatch mid-file")
	}
	return count, payload, nil
}

// NextBlock reads and decodes the next data block, returning io.EOF
// once the file is exhausted.
func (r *Reader) NextBlock() ([]map[string]interface{}, error) {
	count, payload, err := r.rawBlock()
	if err != nil {
		return nil, err
	}
	records := make([]map[string]interface{}, 0, count)
	for i := int64(0); i < count; i++ {
		native, rest, err := r.codec.NativeFromBinary(payload)
		if err != nil {
			return nil, fmt.Errorf("avrocontainer: decode record %d: %w", i, err)
		}
		rec, ok := native.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("avrocontainer: decoded record is not a map")
		}
		records = append(records, rec)
		payload = rest
	}
	return records, nil
}

// NextRawBlock reads the next data block and re-emits it byte-for-byte
// (count, size, payload, sync marker) to w without decoding any
// records — the Avro client path forwards whole encoded blocks
// unchanged (§4.9). It returns the number of records the block
// contains, or io.EOF once the file is exhausted.
func (r *Reader) NextRawBlock(w io.Writer) (int64, error) {
	count, payload, err := r.rawBlock()
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(codec.ZigZagLong(count)); err != nil {
		return 0, err
	}
	if _, err := w.Write(codec.ZigZagLong(int64(len(payload)))); err != nil {
		return 0, err
	}
	if _, err := w.Write(payload); err != nil {
		return 0, err
	}
	if _, err := w.Write(r.syncMarker[:]); err != nil {
		return 0, err
	}
	return count, nil
}
