package avrocontainer

import (
	"fmt"
	"io"

	"github.com/ghc888/MaxScale/internal/codec"
)

// byteReader reads exactly one byte at a time from r, unlike
// bufio.Reader which may read ahead past what it hands back — fatal
// here since callers need the underlying file's cursor left exactly
// after the header once parsing stops.
type byteReader struct{ r io.Reader }

func (b byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

type fileHeader struct {
	schema     string
	syncMarker [syncMarkerSize]byte
}

// writeHeaderTo writes magic + the avro.schema/avro.codec metadata map
// + the sync marker to w, per the Avro Object Container File spec's
// header shape.
func writeHeaderTo(w io.Writer, schemaText string, syncMarker [syncMarkerSize]byte) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	meta := [][2][]byte{
		{[]byte("avro.schema"), []byte(schemaText)},
		{[]byte("avro.codec"), []byte("null")},
	}
	// Avro map<bytes> encoding: one block of len(meta) entries (a
	// positive count, no separate byte-size prefix needed since we
	// write exactly one block), each entry a long-length-prefixed key
	// string followed by a long-length-prefixed byte value, terminated
	// by a zero-count block.
	if _, err := w.Write(codec.ZigZagLong(int64(len(meta)))); err != nil {
		return err
	}
	for _, kv := range meta {
		if _, err := w.Write(codec.ZigZagLong(int64(len(kv[0])))); err != nil {
			return err
		}
		if _, err := w.Write(kv[0]); err != nil {
			return err
		}
		if _, err := w.Write(codec.ZigZagLong(int64(len(kv[1])))); err != nil {
			return err
		}
		if _, err := w.Write(kv[1]); err != nil {
			return err
		}
	}
	if _, err := w.Write(codec.ZigZagLong(0)); err != nil { // terminal empty block
		return err
	}
	_, err := w.Write(syncMarker[:])
	return err
}

// readHeader parses the header at the start of f (f's cursor must be
// at offset 0) and leaves the cursor positioned right after the sync
// marker, ready to read data blocks.
func readHeader(f io.Reader) (fileHeader, error) {
	br := byteReader{f}
	var hdr fileHeader

	var m [4]byte
	if _, err := io.ReadFull(f, m[:]); err != nil {
		return hdr, err
	}
	if m != magic {
		return hdr, fmt.Errorf("avrocontainer: bad magic bytes")
	}

	meta := make(map[string][]byte)
	for {
		count, err := readZigZagLong(br)
		if err != nil {
			return hdr, err
		}
		if count == 0 {
			break
		}
		n := count
		if n < 0 {
			// negative count: followed by a byte-size long we don't
			// need since we read item-by-item regardless.
			if _, err := readZigZagLong(br); err != nil {
				return hdr, err
			}
			n = -n
		}
		for i := int64(0); i < n; i++ {
			key, err := readZigZagBytes(br)
			if err != nil {
				return hdr, err
			}
			val, err := readZigZagBytes(br)
			if err != nil {
				return hdr, err
			}
			meta[string(key)] = val
		}
	}
	hdr.schema = string(meta["avro.schema"])

	if _, err := io.ReadFull(f, hdr.syncMarker[:]); err != nil {
		return hdr, err
	}
	return hdr, nil
}

func readZigZagLong(br io.ByteReader) (int64, error) {
	var v uint64
	for shift := uint(0); ; shift += 7 {
		if shift >= 64 {
			return 0, fmt.Errorf("avrocontainer: zigzag overflow")
		}
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
	}
	return int64(v>>1) ^ -(int64(v) & 1), nil
}

func readZigZagBytes(br io.ByteReader) ([]byte, error) {
	n, err := readZigZagLong(br)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	for i := range buf {
		b, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}
