package converter

import "errors"

// ErrLastFile is returned by RunOnce when the current binlog file has
// no more events and no next sequentially-numbered file exists yet
// (§4.8 step 6's AVRO_LAST_FILE): the caller should pause and retry.
var ErrLastFile = errors.New("converter: no further binlog file available")
