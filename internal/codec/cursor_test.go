package codec

import "testing"

func TestUint16(t *testing.T) {
	c := NewCursor([]byte{0x34, 0x12})
	v, err := c.Uint16()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x1234 {
		t.Fatalf("got %#x, want 0x1234", v)
	}
}

func TestUint24(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03})
	v, err := c.Uint24()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x030201 {
		t.Fatalf("got %#x, want 0x030201", v)
	}
}

func TestUnpack5(t *testing.T) {
	c := NewCursor([]byte{0x00, 0x00, 0x00, 0x00, 0x01})
	v, err := c.Unpack5()
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Fatalf("got %d, want 1", v)
	}
}

func TestLenencIntForms(t *testing.T) {
	cases := []struct {
		buf  []byte
		want uint64
	}{
		{[]byte{0x05}, 5},
		{[]byte{0xfc, 0x01, 0x01}, 0x0101},
		{[]byte{0xfd, 0x01, 0x00, 0x01}, 0x010001},
		{[]byte{0xfe, 1, 0, 0, 0, 0, 0, 0, 0}, 1},
	}
	for _, c := range cases {
		cur := NewCursor(c.buf)
		v, err := cur.LenencInt()
		if err != nil {
			t.Fatal(err)
		}
		if v != c.want {
			t.Fatalf("got %d, want %d", v, c.want)
		}
	}
}

func TestLenencStrRoundTrip(t *testing.T) {
	encoded := LenencStr([]byte("hello"))
	c := NewCursor(encoded)
	v, err := c.LenencStr()
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "hello" {
		t.Fatalf("got %q", v)
	}
}

func TestShortBufferNeverOverreads(t *testing.T) {
	c := NewCursor([]byte{0x01})
	if _, err := c.Uint32(); err != ErrShortBuffer {
		t.Fatalf("got %v, want ErrShortBuffer", err)
	}
	if c.Offset() != 0 {
		t.Fatalf("cursor advanced on failed read: offset=%d", c.Offset())
	}
}

func TestZigZagLongRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 64, -64, 1 << 20, -(1 << 20)} {
		enc := ZigZagLong(n)
		c := NewCursor(enc)
		got, err := c.ZigZagLong()
		if err != nil {
			t.Fatal(err)
		}
		if got != n {
			t.Fatalf("got %d, want %d", got, n)
		}
	}
}
