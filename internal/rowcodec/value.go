package rowcodec

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ghc888/MaxScale/internal/codec"
	"github.com/ghc888/MaxScale/internal/tablemap"
)

// decodeColumn reads one non-null column value from c per the §4.7
// type decoding matrix, dispatching on col's wire type and metadata.
// Generalizes the teacher's Column.decodeValue (types.go) to the
// spec's simplified VARCHAR/VAR_STRING/DECIMAL/NEWDECIMAL/GEOMETRY
// lenenc treatment and Avro-native output types instead of Go
// interfaces destined for fmt/driver scanning.
func decodeColumn(c *codec.Cursor, col tablemap.Column) (interface{}, error) {
	switch col.Type {
	case tablemap.TypeTiny:
		v, err := c.Uint8()
		if err != nil {
			return nil, err
		}
		if col.Unsigned {
			return int32(v), nil
		}
		return int32(int8(v)), nil
	case tablemap.TypeShort:
		v, err := c.Uint16()
		if err != nil {
			return nil, err
		}
		if col.Unsigned {
			return int32(v), nil
		}
		return int32(int16(v)), nil
	case tablemap.TypeInt24:
		v, err := c.Uint24()
		if err != nil {
			return nil, err
		}
		if col.Unsigned {
			return int32(v), nil
		}
		if v&0x00800000 != 0 {
			v |= 0xff000000
		}
		return int32(v), nil
	case tablemap.TypeLong:
		v, err := c.Uint32()
		if err != nil {
			return nil, err
		}
		if col.Unsigned {
			return int64(v), nil
		}
		return int64(int32(v)), nil
	case tablemap.TypeLongLong:
		v, err := c.Uint64()
		if err != nil {
			return nil, err
		}
		if col.Unsigned {
			// Avro "long" is signed 64-bit; an unsigned value past
			// math.MaxInt64 cannot roundtrip, same ceiling the teacher's
			// int64()-cast accepts implicitly.
			return int64(v), nil
		}
		return int64(v), nil
	case tablemap.TypeFloat:
		v, err := c.Uint32()
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(v), nil
	case tablemap.TypeDouble:
		v, err := c.Uint64()
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(v), nil
	case tablemap.TypeYear:
		v, err := decodeYear(c)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case tablemap.TypeDate:
		return decodeDate(c)
	case tablemap.TypeTime:
		return decodeTime(c)
	case tablemap.TypeTimestamp:
		return decodeTimestamp(c)
	case tablemap.TypeTimestamp2:
		return decodeTimestamp2(c, col.Meta)
	case tablemap.TypeDateTime2:
		return decodeDateTime2(c, col.Meta)
	case tablemap.TypeVarchar, tablemap.TypeVarString,
		tablemap.TypeDecimal, tablemap.TypeNewDecimal, tablemap.TypeGeometry:
		b, err := c.LenencStr()
		if err != nil {
			return nil, err
		}
		if col.Type == tablemap.TypeVarchar || col.Type == tablemap.TypeVarString {
			return string(b), nil
		}
		return append([]byte(nil), b...), nil
	case tablemap.TypeString:
		var n int
		if col.Meta < 256 {
			v, err := c.Uint8()
			if err != nil {
				return nil, err
			}
			n = int(v)
		} else {
			v, err := c.Uint16()
			if err != nil {
				return nil, err
			}
			n = int(v)
		}
		s, err := c.String(n)
		return s, err
	case tablemap.TypeEnum:
		width := int(col.Meta)
		if width != 1 && width != 2 {
			return nil, fmt.Errorf("rowcodec: invalid enum pack length %d", width)
		}
		idx, err := c.FixedUint(width)
		if err != nil {
			return nil, err
		}
		if idx == 0 || int(idx) > len(col.Values) {
			return "", nil
		}
		return col.Values[idx-1], nil
	case tablemap.TypeSet:
		width := int(col.Meta)
		if width < 1 || width > 8 {
			return nil, fmt.Errorf("rowcodec: invalid set pack length %d", width)
		}
		bits, err := c.FixedUint(width)
		if err != nil {
			return nil, err
		}
		var parts []string
		for i, v := range col.Values {
			if bits&(1<<uint(i)) != 0 {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, ","), nil
	case tablemap.TypeBlob, tablemap.TypeTinyBlob, tablemap.TypeMediumBlob, tablemap.TypeLongBlob:
		n, err := c.FixedUint(int(col.Meta))
		if err != nil {
			return nil, err
		}
		b, err := c.Bytes(int(n))
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	case tablemap.TypeBit:
		nbits := (col.Meta>>8)*8 + (col.Meta & 0xff)
		nbytes := (int(nbits) + 7) / 8
		v, err := c.BigEndianUint(nbytes)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case tablemap.TypeJSON:
		n, err := c.FixedUint(int(col.Meta))
		if err != nil {
			return nil, err
		}
		buf, err := c.Bytes(int(n))
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return "", nil
		}
		tree, err := new(jsonBinDecoder).decodeValue(buf)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: decoding json column: %w", err)
		}
		text, err := json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: re-encoding json column: %w", err)
		}
		return string(text), nil
	default:
		return nil, fmt.Errorf("rowcodec: decode of column type %s is not implemented", col.Type)
	}
}
