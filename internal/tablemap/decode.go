package tablemap

import (
	"fmt"

	"github.com/ghc888/MaxScale/internal/codec"
)

// TableMapBody is the decoded payload of one TABLE_MAP_EVENT (§4.5),
// before it is bound to a TableCreate.
type TableMapBody struct {
	TableID    uint64
	Flags      uint16
	SchemaName string
	TableName  string
	Columns    []Column
}

// DecodeTableMapEvent parses a TABLE_MAP_EVENT payload. tableIDSize is
// 4 or 6, per the FORMAT_DESCRIPTION_EVENT's post-header length for
// this event type (§4.3/§4.5).
func DecodeTableMapEvent(payload []byte, tableIDSize int) (TableMapBody, error) {
	c := codec.NewCursor(payload)
	var body TableMapBody
	var err error

	if tableIDSize == 4 {
		v, e := c.Uint32()
		body.TableID, err = uint64(v), e
	} else {
		body.TableID, err = c.Uint48()
	}
	if err != nil {
		return body, err
	}
	if body.Flags, err = c.Uint16(); err != nil {
		return body, err
	}
	schemaLen, err := c.Uint8()
	if err != nil {
		return body, err
	}
	if body.SchemaName, err = c.String(int(schemaLen)); err != nil {
		return body, err
	}
	if err := c.Skip(1); err != nil { // trailing NUL
		return body, err
	}
	tableLen, err := c.Uint8()
	if err != nil {
		return body, err
	}
	if body.TableName, err = c.String(int(tableLen)); err != nil {
		return body, err
	}
	if err := c.Skip(1); err != nil {
		return body, err
	}

	numCol, err := c.LenencInt()
	if err != nil {
		return body, err
	}
	body.Columns = make([]Column, numCol)
	for i := range body.Columns {
		body.Columns[i].Ordinal = i
		typ, err := c.Uint8()
		if err != nil {
			return body, err
		}
		body.Columns[i].Type = ColumnType(typ)
	}

	if _, err := c.LenencInt(); err != nil { // metadata block length
		return body, err
	}
	for i := range body.Columns {
		if err := decodeMeta(c, &body.Columns[i]); err != nil {
			return body, err
		}
	}

	nullable, err := c.Bytes(int((numCol + 7) / 8))
	if err != nil {
		return body, err
	}
	for i := range body.Columns {
		body.Columns[i].Nullable = bitSet(nullable, i)
	}

	if err := decodeExtendedMetadata(c, &body); err != nil {
		return body, err
	}

	return body, nil
}

func bitSet(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<uint(i%8)) != 0
}

func decodeMeta(c *codec.Cursor, col *Column) error {
	switch col.Type {
	case TypeBlob, TypeDouble, TypeFloat, TypeGeometry, TypeJSON,
		TypeTime2, TypeDateTime2, TypeTimestamp2:
		v, err := c.Uint8()
		col.Meta = uint16(v)
		return err
	case TypeVarchar, TypeBit, TypeDecimal, TypeNewDecimal,
		TypeSet, TypeEnum, TypeVarString:
		v, err := c.Uint16()
		col.Meta = v
		return err
	case TypeString, TypeNewDate:
		b, err := c.Bytes(2)
		if err != nil {
			return err
		}
		meta := uint16(b[0])<<8 | uint16(b[1])
		if meta >= 256 {
			b0, b1 := b[0], b[1]
			if b0&0x30 != 0x30 {
				col.Meta = uint16(b1) | (uint16((b0&0x30)^0x30) << 4)
				col.Type = ColumnType(b0 | 0x30)
			} else {
				col.Meta = uint16(b1)
				col.Type = ColumnType(b0)
			}
		} else {
			col.Meta = meta
		}
		return nil
	default:
		return nil
	}
}

// decodeExtendedMetadata reads the optional sub-events appended after
// the null bitmap when binlog_row_metadata=FULL (§4.5, grounded on
// rbr.go's TableMapEvent.decode loop). Unknown sub-event types are
// skipped by their declared size so future MariaDB additions don't
// break decoding.
func decodeExtendedMetadata(c *codec.Cursor, body *TableMapBody) error {
	for c.Len() > 0 {
		typ, err := c.Uint8()
		if err != nil {
			return err
		}
		size, err := c.LenencInt()
		if err != nil {
			return err
		}
		end := c.Offset() + int(size)
		switch typ {
		case 1:
			if err := decodeUnsigned(c, body.Columns); err != nil {
				return err
			}
		case 2:
			if err := decodeDefaultCharset(c, body.Columns, end, ColumnType.IsString); err != nil {
				return err
			}
		case 3:
			if err := decodeCharset(c, body.Columns, end, ColumnType.IsString); err != nil {
				return err
			}
		case 4:
			for i := range body.Columns {
				name, err := c.LenencStr()
				if err != nil {
					return err
				}
				body.Columns[i].Name = string(name)
			}
		case 5:
			if err := decodeValues(c, body.Columns, end, TypeSet); err != nil {
				return err
			}
		case 6:
			if err := decodeValues(c, body.Columns, end, TypeEnum); err != nil {
				return err
			}
		case 10:
			if err := decodeDefaultCharset(c, body.Columns, end, ColumnType.IsEnumSet); err != nil {
				return err
			}
		case 11:
			if err := decodeCharset(c, body.Columns, end, ColumnType.IsEnumSet); err != nil {
				return err
			}
		default:
			if err := c.Skip(end - c.Offset()); err != nil {
				return err
			}
		}
		if c.Offset() != end {
			return fmt.Errorf("tablemap: sub-event type %d left %d unread bytes", typ, end-c.Offset())
		}
	}
	return nil
}

func decodeUnsigned(c *codec.Cursor, cols []Column) error {
	n := 0
	for _, col := range cols {
		if col.Type.IsNumeric() {
			n++
		}
	}
	bitmap, err := c.Bytes((n + 7) / 8)
	if err != nil {
		return err
	}
	idx := 0
	for i := range cols {
		if cols[i].Type.IsNumeric() {
			cols[i].Unsigned = bitSet(bitmap, idx)
			idx++
		}
	}
	return nil
}

func decodeDefaultCharset(c *codec.Cursor, cols []Column, end int, f func(ColumnType) bool) error {
	def, err := c.LenencInt()
	if err != nil {
		return err
	}
	for c.Offset() < end {
		ord, err := c.LenencInt()
		if err != nil {
			return err
		}
		charset, err := c.LenencInt()
		if err != nil {
			return err
		}
		if int(ord) < len(cols) {
			cols[ord].Charset = charset
		}
	}
	for i := range cols {
		if f(cols[i].Type) && cols[i].Charset == 0 {
			cols[i].Charset = def
		}
	}
	return nil
}

func decodeCharset(c *codec.Cursor, cols []Column, end int, f func(ColumnType) bool) error {
	for i := range cols {
		if f(cols[i].Type) {
			charset, err := c.LenencInt()
			if err != nil {
				return err
			}
			cols[i].Charset = charset
		}
	}
	_ = end
	return nil
}

func decodeValues(c *codec.Cursor, cols []Column, end int, typ ColumnType) error {
	icol := 0
	for c.Offset() < end {
		nVal, err := c.LenencInt()
		if err != nil {
			return err
		}
		vals := make([]string, nVal)
		for i := range vals {
			v, err := c.LenencStr()
			if err != nil {
				return err
			}
			vals[i] = string(v)
		}
		for icol < len(cols) && cols[icol].Type != typ {
			icol++
		}
		if icol >= len(cols) {
			return fmt.Errorf("tablemap: more %s value-lists than %s columns", typ, typ)
		}
		cols[icol].Values = vals
		icol++
	}
	return nil
}
