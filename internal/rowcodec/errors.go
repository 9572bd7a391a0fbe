package rowcodec

import "errors"

// ErrColumnCountMismatch is returned when a row event's column count
// doesn't match the bound TableMap (§4.6 step 1). The caller skips the
// event and logs; it is not fatal to the conversion driver.
var ErrColumnCountMismatch = errors.New("rowcodec: row event column count does not match table map")

// ErrDummyRowsEvent names the 0x00ffffff/ROW_EVENT_END_STATEMENT
// release-all-maps sentinel (§4.6), which carries no decodable row
// image. Nothing returns it; callers compare the header's TableID
// against DummyTableID instead.
var ErrDummyRowsEvent = errors.New("rowcodec: dummy rows event carries no row image")
