package codec

// ZigZagLong encodes n using Avro's zig-zag variable-length long
// encoding: (n<<1) ^ (n>>63), emitted 7 bits at a time with the high bit
// set on every byte but the last.
func ZigZagLong(n int64) []byte {
	zz := uint64(n<<1) ^ uint64(n>>63)
	var out []byte
	for {
		b := byte(zz & 0x7f)
		zz >>= 7
		if zz != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// LenencInt encodes n as a MySQL length-encoded integer.
func LenencInt(n uint64) []byte {
	switch {
	case n < 0xfb:
		return []byte{byte(n)}
	case n < 1<<16:
		return []byte{0xfc, byte(n), byte(n >> 8)}
	case n < 1<<24:
		return []byte{0xfd, byte(n), byte(n >> 8), byte(n >> 16)}
	default:
		b := make([]byte, 9)
		b[0] = 0xfe
		for i := 0; i < 8; i++ {
			b[1+i] = byte(n >> (8 * i))
		}
		return b
	}
}

// LenencStr encodes s as a length-encoded string.
func LenencStr(s []byte) []byte {
	return append(LenencInt(uint64(len(s))), s...)
}
