package avrocontainer

import "github.com/linkedin/goavro/v2"

// NativeRecord assembles one Avro-native record matching the schema
// Schema() generates (§4.5/§6): GTID, timestamp, event_type, then one
// nullable field per column. values[i] being nil produces an Avro
// null; otherwise it's wrapped in a ["null", avroTypes[i]] union,
// mirroring goavro.Union's use in the retrieved changefeedccl/avro.go.
func NativeRecord(gtidStr string, timestamp int32, eventType string, columnNames, avroTypes []string, values []interface{}) map[string]interface{} {
	rec := map[string]interface{}{
		"GTID":       gtidStr,
		"timestamp":  timestamp,
		"event_type": eventType,
	}
	for i, name := range columnNames {
		if i >= len(values) || values[i] == nil {
			rec[name] = nil
			continue
		}
		rec[name] = goavro.Union(avroTypes[i], values[i])
	}
	return rec
}
