package binlogstream

import (
	"fmt"

	"github.com/ghc888/MaxScale/internal/codec"
)

// HeaderSize is the fixed size of a binlog event header (§4.3).
const HeaderSize = 19

// EventHeader is the fixed 19-byte header preceding every event body.
//
// https://dev.mysql.com/doc/internals/en/binlog-event-header.html
type EventHeader struct {
	Timestamp uint32
	EventType EventType
	ServerID  uint32
	EventSize uint32
	NextPos   uint32
	Flags     uint16
}

// ParseHeader decodes the 19-byte header at the start of buf and
// validates it against §4.3: event_size >= 19, event_type within the
// MariaDB 10 range, and (once next_pos is nonzero) next_pos ==
// offset+event_size and next_pos > offset.
func ParseHeader(buf []byte, offset uint32) (EventHeader, error) {
	if len(buf) < HeaderSize {
		return EventHeader{}, fmt.Errorf("%w: event header needs %d bytes, got %d", ErrTruncated, HeaderSize, len(buf))
	}
	c := codec.NewCursor(buf)
	var h EventHeader
	h.Timestamp, _ = c.Uint32()
	typ, _ := c.Uint8()
	h.EventType = EventType(typ)
	h.ServerID, _ = c.Uint32()
	h.EventSize, _ = c.Uint32()
	h.NextPos, _ = c.Uint32()
	h.Flags, _ = c.Uint16()

	if h.EventSize < HeaderSize {
		return h, fmt.Errorf("%w: event_size %d smaller than header size", ErrTruncated, h.EventSize)
	}
	if h.EventType > MaxEventTypeMariaDB10 {
		return h, fmt.Errorf("%w: event_type %#x exceeds MAX_EVENT_TYPE_MARIADB10", ErrTruncated, typ)
	}
	if h.NextPos > 0 {
		if h.NextPos != offset+h.EventSize || h.NextPos <= offset {
			return h, fmt.Errorf("%w: next_pos %d inconsistent with offset %d and event_size %d",
				ErrTruncated, h.NextPos, offset, h.EventSize)
		}
	}
	return h, nil
}
