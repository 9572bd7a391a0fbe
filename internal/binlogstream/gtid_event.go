package binlogstream

import "github.com/ghc888/MaxScale/internal/codec"

// GTIDEventBody is a MariaDB GTID_EVENT/ANONYMOUS_GTID_EVENT payload:
// sequence number and domain id, the two fields of §3's GTID tuple that
// aren't already carried by the enclosing event header's ServerID.
//
// No teacher analog exists (the teacher predates MariaDB GTID
// replication, see DESIGN.md); the field layout follows MariaDB's
// documented GTID_EVENT wire format.
type GTIDEventBody struct {
	SequenceNumber uint64
	DomainID       uint32
	Flags          uint8
}

const flGroupCommitID = 0x02

// ParseGTIDEvent decodes a GTID_EVENT/ANONYMOUS_GTID_EVENT payload.
func ParseGTIDEvent(payload []byte) (GTIDEventBody, error) {
	c := codec.NewCursor(payload)
	var e GTIDEventBody
	var err error
	if e.SequenceNumber, err = c.Uint64(); err != nil {
		return e, err
	}
	if e.DomainID, err = c.Uint32(); err != nil {
		return e, err
	}
	flags, err := c.Uint8()
	if err != nil {
		return e, err
	}
	e.Flags = flags
	if flags&flGroupCommitID != 0 {
		if err := c.Skip(8); err != nil {
			return e, err
		}
	}
	return e, nil
}
