package binlogstream

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// header builds a 19-byte event header.
func header(typ EventType, size uint32, nextPos uint32) []byte {
	b := make([]byte, HeaderSize)
	// timestamp
	b[0], b[1], b[2], b[3] = 0, 0, 0, 0
	b[4] = byte(typ)
	// server id
	b[5], b[6], b[7], b[8] = 1, 0, 0, 0
	b[9] = byte(size)
	b[10] = byte(size >> 8)
	b[11] = byte(size >> 16)
	b[12] = byte(size >> 24)
	b[13] = byte(nextPos)
	b[14] = byte(nextPos >> 8)
	b[15] = byte(nextPos >> 16)
	b[16] = byte(nextPos >> 24)
	b[17], b[18] = 0, 0
	return b
}

func TestOpenFramerBadMagic(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "binlog.000001", []byte{0x00, 0x00, 0x00, 0x00})
	_, err := OpenFramer(p)
	if err == nil {
		t.Fatal("expected magic error")
	}
}

func TestFramerReadsOneEvent(t *testing.T) {
	dir := t.TempDir()
	var buf []byte
	buf = append(buf, Magic...)
	// a minimal XID_EVENT: header(19) + 8-byte xid body, next_pos = 4+19+8 = 31
	evt := header(XidEvent, 27, 31)
	evt = append(evt, make([]byte, 8)...)
	buf = append(buf, evt...)

	p := writeFile(t, dir, "binlog.000001", buf)
	fr, err := OpenFramer(p)
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()

	e, err := fr.NextEvent()
	if err != nil {
		t.Fatal(err)
	}
	if e.Header.EventType != XidEvent {
		t.Fatalf("got type %v", e.Header.EventType)
	}
	if len(e.Payload) != 9 { // 8 bytes + NUL terminator
		t.Fatalf("got payload len %d", len(e.Payload))
	}
	if fr.Offset() != 31 {
		t.Fatalf("got offset %d, want 31", fr.Offset())
	}
}

func TestFramerDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	var buf []byte
	buf = append(buf, Magic...)
	// event_size claims far more than the file actually holds
	evt := header(XidEvent, 1000, 1004)
	buf = append(buf, evt...)

	p := writeFile(t, dir, "binlog.000001", buf)
	fr, err := OpenFramer(p)
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()

	if _, err := fr.NextEvent(); err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestNextSequential(t *testing.T) {
	next, err := NextSequential("binlog.000001")
	if err != nil {
		t.Fatal(err)
	}
	if next != "binlog.000002" {
		t.Fatalf("got %q", next)
	}
}
