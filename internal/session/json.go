package session

import (
	"encoding/json"
	"fmt"

	"github.com/ghc888/MaxScale/internal/gtid"
)

// recordGTID extracts and parses the GTID field every record carries
// (schema.go's fixed GTID:string field), used for seek comparisons and
// for tracking the last-delivered position (§4.9 "Track the GTID of
// each row emitted (JSON path only)").
func recordGTID(rec map[string]interface{}) (gtid.GTID, error) {
	raw, ok := rec["GTID"].(string)
	if !ok {
		return gtid.GTID{}, fmt.Errorf("session: record has no GTID field")
	}
	return gtid.Parse(raw)
}

// jsonLine renders rec as one newline-terminated JSON line, unwrapping
// goavro-style ["null", value] unions so clients see plain scalars.
func jsonLine(rec map[string]interface{}) ([]byte, error) {
	plain := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		plain[k] = unwrapUnion(v)
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// unwrapUnion turns goavro's decoded map[string]interface{}{"type": v}
// union representation back into the bare value.
func unwrapUnion(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 1 {
		return v
	}
	for _, inner := range m {
		return inner
	}
	return v
}
