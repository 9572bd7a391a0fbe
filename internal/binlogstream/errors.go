package binlogstream

import "errors"

// ErrTruncated is returned when the binlog stream ends mid-event, or an
// event header fails the event_size/next_pos sanity checks of §4.3.
// Per §7 this is the one class of I/O error on binlog reads that stops
// the conversion loop, rewinding to the last known commit.
var ErrTruncated = errors.New("binlogstream: truncated or malformed event")

// ErrBadMagic is returned when a binlog file does not begin with the
// 4-byte magic 0xfe 0x62 0x69 0x6e.
var ErrBadMagic = errors.New("binlogstream: Avro magic marker bytes are not correct")

// ErrNoSuchFile names a binlog file missing from the binlog directory.
// Nothing in this package returns it.
var ErrNoSuchFile = errors.New("binlogstream: no such binlog file")

// ErrOpenTransaction names end-of-file reached with a transaction still
// open (§4.8 step 7). The driver's Run treats it as pause-and-retry, but
// neither the framer nor the driver returns it: the framer reports io.EOF
// at end of file whether or not a transaction is open.
var ErrOpenTransaction = errors.New("binlogstream: open transaction at end of file")
