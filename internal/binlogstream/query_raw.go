package binlogstream

import "github.com/ghc888/MaxScale/internal/codec"

// QueryEventBody is the raw decode of a QUERY_EVENT, before DDL
// recognition (internal/ddltrack) interprets its SQL text.
//
// §4.4 fixes the layout: db_name_len at offset 8, variable-block length
// at offset 11, payload body at 13+varblock+1+db_name_len. This mirrors
// field-for-field the teacher's QueryEvent.decode (events.go).
type QueryEventBody struct {
	SlaveProxyID  uint32
	ExecutionTime uint32
	ErrorCode     uint16
	StatusVars    []byte
	Schema        string
	Query         string
}

// ParseQueryEvent decodes a QUERY_EVENT payload.
func ParseQueryEvent(payload []byte) (QueryEventBody, error) {
	c := codec.NewCursor(payload)
	var e QueryEventBody
	var err error
	if e.SlaveProxyID, err = c.Uint32(); err != nil {
		return e, err
	}
	if e.ExecutionTime, err = c.Uint32(); err != nil {
		return e, err
	}
	schemaLen, err := c.Uint8() // offset 8: db_name_len
	if err != nil {
		return e, err
	}
	if e.ErrorCode, err = c.Uint16(); err != nil {
		return e, err
	}
	statusVarsLen, err := c.Uint16() // offset 11: variable-block length
	if err != nil {
		return e, err
	}
	if e.StatusVars, err = c.Bytes(int(statusVarsLen)); err != nil {
		return e, err
	}
	if e.Schema, err = c.String(int(schemaLen)); err != nil {
		return e, err
	}
	if err = c.Skip(1); err != nil { // NUL terminator after schema name
		return e, err
	}
	e.Query = string(c.Remaining())
	return e, nil
}
