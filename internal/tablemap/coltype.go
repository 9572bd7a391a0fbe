// Package tablemap decodes TABLE_MAP_EVENT and maintains the registry
// that binds a binlog table id to the TableCreate it currently refers
// to: a fixed 1024-slot active array for the hot decode path and a
// keyed "database.table" lookup, bumping version and publishing a fresh
// Avro field layout whenever the mapped shape changes (§4.5).
//
// It generalizes the teacher's rbr.go TableMapEvent.decode and Column
// type. The teacher also carries an older, near-duplicate prototype in
// table_map_event.go with lowercase fields; we keep rbr.go's exported
// shape and drop the duplicate (see DESIGN.md).
package tablemap

import "fmt"

// ColumnType identifies a column's on-wire MySQL type code, as carried
// in TABLE_MAP_EVENT. Mirrors the teacher's types.go ColumnType.
type ColumnType uint8

const (
	TypeDecimal    ColumnType = 0x00
	TypeTiny       ColumnType = 0x01
	TypeShort      ColumnType = 0x02
	TypeLong       ColumnType = 0x03
	TypeFloat      ColumnType = 0x04
	TypeDouble     ColumnType = 0x05
	TypeNull       ColumnType = 0x06
	TypeTimestamp  ColumnType = 0x07
	TypeLongLong   ColumnType = 0x08
	TypeInt24      ColumnType = 0x09
	TypeDate       ColumnType = 0x0a
	TypeTime       ColumnType = 0x0b
	TypeDateTime   ColumnType = 0x0c
	TypeYear       ColumnType = 0x0d
	TypeNewDate    ColumnType = 0x0e
	TypeVarchar    ColumnType = 0x0f
	TypeBit        ColumnType = 0x10
	TypeTimestamp2 ColumnType = 0x11
	TypeDateTime2  ColumnType = 0x12
	TypeTime2      ColumnType = 0x13
	TypeJSON       ColumnType = 0xf5
	TypeNewDecimal ColumnType = 0xf6
	TypeEnum       ColumnType = 0xf7
	TypeSet        ColumnType = 0xf8
	TypeTinyBlob   ColumnType = 0xf9
	TypeMediumBlob ColumnType = 0xfa
	TypeLongBlob   ColumnType = 0xfb
	TypeBlob       ColumnType = 0xfc
	TypeVarString  ColumnType = 0xfd
	TypeString     ColumnType = 0xfe
	TypeGeometry   ColumnType = 0xff
)

var typeNames = map[ColumnType]string{
	TypeDecimal: "decimal", TypeTiny: "tiny", TypeShort: "short", TypeLong: "long",
	TypeFloat: "float", TypeDouble: "double", TypeNull: "null", TypeTimestamp: "timestamp",
	TypeLongLong: "longlong", TypeInt24: "int24", TypeDate: "date", TypeTime: "time",
	TypeDateTime: "datetime", TypeYear: "year", TypeNewDate: "newdate", TypeVarchar: "varchar",
	TypeBit: "bit", TypeTimestamp2: "timestamp2", TypeDateTime2: "datetime2", TypeTime2: "time2",
	TypeJSON: "json", TypeNewDecimal: "newdecimal", TypeEnum: "enum", TypeSet: "set",
	TypeTinyBlob: "tinyblob", TypeMediumBlob: "mediumblob", TypeLongBlob: "longblob",
	TypeBlob: "blob", TypeVarString: "varstring", TypeString: "string", TypeGeometry: "geometry",
}

func (t ColumnType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("0x%02x", uint8(t))
}

// IsNumeric reports whether t carries the extended-metadata UNSIGNED
// flag (sub-type 1 of TABLE_MAP_EVENT's optional metadata).
func (t ColumnType) IsNumeric() bool {
	switch t {
	case TypeTiny, TypeShort, TypeInt24, TypeLong, TypeLongLong,
		TypeFloat, TypeDouble, TypeDecimal, TypeNewDecimal:
		return true
	}
	return false
}

// IsString reports whether t is subject to a default/explicit
// character-set sub-event.
func (t ColumnType) IsString() bool {
	switch t {
	case TypeVarchar, TypeBlob, TypeVarString, TypeString:
		return true
	}
	return false
}

// IsEnumSet reports whether t carries permitted string values.
func (t ColumnType) IsEnumSet() bool {
	return t == TypeEnum || t == TypeSet
}

// AvroType returns the Avro primitive type §4.7/§6 maps this column's
// decoded value to: "int", "long", "float", "double", "bytes", or
// "string".
func (t ColumnType) AvroType() string {
	switch t {
	case TypeTiny, TypeShort, TypeInt24, TypeYear, TypeBit:
		return "int"
	case TypeLong, TypeLongLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeDecimal, TypeNewDecimal, TypeBlob, TypeTinyBlob, TypeMediumBlob,
		TypeLongBlob, TypeGeometry:
		return "bytes"
	default:
		return "string"
	}
}

// Column is one column's shape as declared by TABLE_MAP_EVENT.
type Column struct {
	Ordinal  int
	Type     ColumnType
	Nullable bool
	Unsigned bool
	Meta     uint16
	Charset  uint64
	Name     string
	Values   []string
}
