package rowcodec

import (
	"fmt"
	"time"

	"github.com/ghc888/MaxScale/internal/codec"
)

// decodeDate reads the classic 3-byte DATE encoding: low 5 bits day,
// next 4 bits month, remaining bits year (§4.7).
func decodeDate(c *codec.Cursor) (string, error) {
	v, err := c.Uint24()
	if err != nil {
		return "", err
	}
	if v == 0 {
		return "0000-00-00", nil
	}
	day := v & 0x1f
	month := (v >> 5) & 0xf
	year := v >> 9
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

// decodeTime reads the classic 3-byte TIME encoding: a base-100
// decimal-packed HHMMSS integer (§4.7).
func decodeTime(c *codec.Cursor) (string, error) {
	v, err := c.Uint24()
	if err != nil {
		return "", err
	}
	sec := v % 100
	v /= 100
	min := v % 100
	v /= 100
	hour := v
	return fmt.Sprintf("%02d:%02d:%02d", hour, min, sec), nil
}

// decodeTimestamp reads the classic 4-byte TIMESTAMP: big-endian Unix
// seconds (§4.7). Formatted in UTC; the source's "local time" is not
// reproducible without a captured server timezone, so UTC is the
// deterministic choice here.
func decodeTimestamp(c *codec.Cursor) (string, error) {
	sec, err := c.BigEndianUint(4)
	if err != nil {
		return "", err
	}
	return formatUnix(int64(sec), 0), nil
}

// fractionalSeconds reads the ceil(decimals/2)-byte big-endian
// fractional-seconds field shared by TIMESTAMP2/DATETIME2/TIME2,
// scaling the stored value up to microseconds. Grounded on the
// teacher's types.go fractionalSeconds (the magnitude math is carried
// over unchanged).
func fractionalSeconds(c *codec.Cursor, meta uint16) (int64, error) {
	n := (meta + 1) / 2
	if n == 0 {
		return 0, nil
	}
	v, err := c.BigEndianUint(int(n))
	if err != nil {
		return 0, err
	}
	scale := int64(1)
	for i := 0; i < 3-int(n); i++ {
		scale *= 100
	}
	return int64(v) * scale, nil
}

// decodeTimestamp2 reads TIMESTAMP2: 4-byte big-endian seconds plus a
// fractional-seconds tail sized by meta (§4.7).
func decodeTimestamp2(c *codec.Cursor, meta uint16) (string, error) {
	sec, err := c.BigEndianUint(4)
	if err != nil {
		return "", err
	}
	frac, err := fractionalSeconds(c, meta)
	if err != nil {
		return "", err
	}
	return formatUnix(int64(sec), frac), nil
}

// decodeDateTime2 reads DATETIME2: a 5-byte big-endian value biased by
// 0x8000000000, decomposed per §4.7's exact bit layout, plus a
// fractional-seconds tail sized by meta.
func decodeDateTime2(c *codec.Cursor, meta uint16) (string, error) {
	raw, err := c.BigEndianUint(5)
	if err != nil {
		return "", err
	}
	n := int64(raw) - 0x8000000000
	if n < 0 {
		n = -n
	}
	date := n >> 17
	t := n & 0x1ffff
	sec := t & 0x3f
	min := (t >> 6) & 0x3f
	hour := t >> 12
	mday := date & 0x1f
	yearmonth := date >> 5
	mon := yearmonth % 13
	year := yearmonth / 13

	frac, err := fractionalSeconds(c, meta)
	if err != nil {
		return "", err
	}
	s := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", year, mon, mday, hour, min, sec)
	if frac != 0 {
		s = fmt.Sprintf("%s.%06d", s, frac)
	}
	return s, nil
}

// formatUnix mirrors the teacher's time.Unix-based TIMESTAMP2 decode
// (types.go), pinned to UTC rather than the process's local zone so the
// formatted string is reproducible across machines.
func formatUnix(sec, microFrac int64) string {
	t := time.Unix(sec, microFrac*1000).UTC()
	if microFrac == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.000000")
}

// decodeYear reads the 1-byte YEAR encoding: offset from 1900, with 0
// meaning the zero-year (§4.7).
func decodeYear(c *codec.Cursor) (int, error) {
	v, err := c.Uint8()
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, nil
	}
	return 1900 + int(v), nil
}
