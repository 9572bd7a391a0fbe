package binlogstream

import (
	"strings"

	"github.com/ghc888/MaxScale/internal/codec"
)

// FormatDescriptionEvent is the first event in every binlog file (after
// the 4-byte magic). It teaches the framer the post-header length of
// every other event type, and whether a trailing CRC32 checksum is
// present on every subsequent event.
//
// Generalizes the teacher's FormatDescriptionEvent (events.go) by
// additionally extracting the checksum-algorithm tail byte per §4.3:
// "If the tail byte past the length table is 0x01, CRC32 checksums are
// present".
type FormatDescriptionEvent struct {
	BinlogVersion          uint16
	ServerVersion          string
	CreateTimestamp        uint32
	EventHeaderLength      uint8
	EventTypeHeaderLengths []byte
	ChecksumPresent        bool
}

// checksumAlgorithmCRC32 is the one MariaDB checksum algorithm id this
// converter understands; anything else (e.g. none=0xff) has no trailing
// checksum to strip.
const checksumAlgorithmCRC32 = 0x01

// ParseFormatDescriptionEvent decodes payload (the event body, header
// already stripped) at the fixed offsets given in §4.3: the payload at
// offset 2+50+4 carries event_header_length followed by the per-type
// post-header length table, whose tail byte is the checksum algorithm.
func ParseFormatDescriptionEvent(payload []byte) (FormatDescriptionEvent, error) {
	c := codec.NewCursor(payload)
	var e FormatDescriptionEvent
	var err error
	if e.BinlogVersion, err = c.Uint16(); err != nil {
		return e, err
	}
	sv, err := c.String(50)
	if err != nil {
		return e, err
	}
	if i := strings.IndexByte(sv, 0); i != -1 {
		sv = sv[:i]
	}
	e.ServerVersion = sv
	if e.CreateTimestamp, err = c.Uint32(); err != nil {
		return e, err
	}
	hdrLen, err := c.Uint8()
	if err != nil {
		return e, err
	}
	e.EventHeaderLength = hdrLen

	rest := c.Remaining()
	if len(rest) == 0 {
		return e, nil
	}
	e.EventTypeHeaderLengths = append([]byte(nil), rest...)
	if tail := e.EventTypeHeaderLengths[len(e.EventTypeHeaderLengths)-1]; tail == checksumAlgorithmCRC32 {
		e.ChecksumPresent = true
	}
	return e, nil
}

// PostHeaderLength returns the post-header length MariaDB declared for
// typ, or def if the format description event's table doesn't cover it.
func (e FormatDescriptionEvent) PostHeaderLength(typ EventType, def int) int {
	if int(typ) >= 1 && int(typ) <= len(e.EventTypeHeaderLengths) {
		return int(e.EventTypeHeaderLengths[typ-1])
	}
	return def
}
