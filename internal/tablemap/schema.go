package tablemap

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// avroField is one entry of a generated record schema's "fields" array.
type avroField struct {
	Name string      `json:"name"`
	Type interface{} `json:"type"`
}

// avroRecordSchema is the JSON shape goavro.NewCodec expects for a
// record schema.
type avroRecordSchema struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

// Schema returns the JSON text of the Avro record schema for tm: fixed
// GTID/timestamp/event_type fields followed by one nullable field per
// source column, in TableCreate.ColumnNames order (§4.5/§6). The
// record's name is derived from the table identity so files for
// distinct tables never collide inside a shared schema registry.
func Schema(tm *TableMap) (string, error) {
	fields := []avroField{
		{Name: "GTID", Type: "string"},
		{Name: "timestamp", Type: "int"},
		{Name: "event_type", Type: map[string]interface{}{
			"type":    "enum",
			"name":    "event_type",
			"symbols": []string{"insert", "update_before", "update_after", "delete"},
		}},
	}
	names := tm.Create.ColumnNames
	if len(names) != len(tm.Columns) {
		return "", fmt.Errorf("tablemap: %s has %d names but %d columns bound", tm.Key(), len(names), len(tm.Columns))
	}
	for i, col := range tm.Columns {
		fields = append(fields, avroField{
			Name: names[i],
			Type: []string{"null", col.Type.AvroType()},
		})
	}

	schema := avroRecordSchema{
		Type:   "record",
		Name:   fmt.Sprintf("%s_%s", tm.Database, tm.Table),
		Fields: fields,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(schema); err != nil {
		return "", err
	}
	return buf.String(), nil
}
