package binlogstream

import "github.com/ghc888/MaxScale/internal/codec"

// RotateEventBody is written when mysqld switches to a new binary log
// file, or (read from a local dump directory) to signal the converter
// should continue in NextBinlog. Grounded on the teacher's RotateEvent
// (rotate_event.go).
type RotateEventBody struct {
	Position   uint64
	NextBinlog string
}

// ParseRotateEvent decodes a ROTATE_EVENT payload.
func ParseRotateEvent(payload []byte, binlogVersion uint16) (RotateEventBody, error) {
	c := codec.NewCursor(payload)
	var e RotateEventBody
	if binlogVersion > 1 {
		pos, err := c.Uint64()
		if err != nil {
			return e, err
		}
		e.Position = pos
	}
	e.NextBinlog = string(c.Remaining())
	return e, nil
}
