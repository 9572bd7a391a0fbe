// Package gtid implements the MariaDB Global Transaction Identifier
// tuple used to track replication position and to order records
// delivered to client sessions.
package gtid

import (
	"fmt"
	"strconv"
	"strings"
)

// GTID is the tuple (domain, server_id, sequence, event_num). event_num
// increments within a transaction; the other three fields come off the
// wire GTID_EVENT / ANONYMOUS_GTID_EVENT payload.
type GTID struct {
	Domain   uint32
	ServerID uint32
	Sequence uint64
	EventNum uint32
}

// String renders "domain-server_id-sequence:event_num", matching
// avro-conversion.ini's persisted form.
func (g GTID) String() string {
	return fmt.Sprintf("%d-%d-%d:%d", g.Domain, g.ServerID, g.Sequence, g.EventNum)
}

// Less reports whether g precedes other in lexicographic
// (domain, server_id, sequence, event_num) order.
func (g GTID) Less(other GTID) bool {
	if g.Domain != other.Domain {
		return g.Domain < other.Domain
	}
	if g.ServerID != other.ServerID {
		return g.ServerID < other.ServerID
	}
	if g.Sequence != other.Sequence {
		return g.Sequence < other.Sequence
	}
	return g.EventNum < other.EventNum
}

// GE reports whether g is greater than or equal to other under the same
// ordering as Less.
func (g GTID) GE(other GTID) bool {
	return !g.Less(other)
}

// Zero reports whether g is the zero-value GTID, used to distinguish
// "no GTID requested" from an explicit seek.
func (g GTID) Zero() bool {
	return g == GTID{}
}

// Parse parses "domain-server_id-sequence" or
// "domain-server_id-sequence:event_num" as sent by REQUEST-DATA (§6) or
// stored in avro-conversion.ini.
func Parse(s string) (GTID, error) {
	var g GTID
	main := s
	if i := strings.IndexByte(s, ':'); i != -1 {
		main = s[:i]
		n, err := strconv.ParseUint(s[i+1:], 10, 32)
		if err != nil {
			return GTID{}, fmt.Errorf("gtid: invalid event_num in %q: %w", s, err)
		}
		g.EventNum = uint32(n)
	}
	parts := strings.Split(main, "-")
	if len(parts) != 3 {
		return GTID{}, fmt.Errorf("gtid: invalid GTID %q", s)
	}
	domain, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return GTID{}, fmt.Errorf("gtid: invalid domain in %q: %w", s, err)
	}
	serverID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return GTID{}, fmt.Errorf("gtid: invalid server_id in %q: %w", s, err)
	}
	seq, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return GTID{}, fmt.Errorf("gtid: invalid sequence in %q: %w", s, err)
	}
	g.Domain, g.ServerID, g.Sequence = uint32(domain), uint32(serverID), seq
	return g, nil
}

// NextEvent returns a copy of g with EventNum incremented, used while
// walking the row records of a single transaction.
func (g GTID) NextEvent() GTID {
	g.EventNum++
	return g
}
