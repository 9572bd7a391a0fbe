package gtid

import "testing"

func TestParseAndString(t *testing.T) {
	g, err := Parse("0-1-5")
	if err != nil {
		t.Fatal(err)
	}
	if g.Domain != 0 || g.ServerID != 1 || g.Sequence != 5 {
		t.Fatalf("got %+v", g)
	}
	g2, err := Parse("0-1-5:3")
	if err != nil {
		t.Fatal(err)
	}
	if g2.EventNum != 3 {
		t.Fatalf("got %+v", g2)
	}
	if g2.String() != "0-1-5:3" {
		t.Fatalf("got %q", g2.String())
	}
}

func TestLessOrdering(t *testing.T) {
	a := GTID{Domain: 0, ServerID: 1, Sequence: 1, EventNum: 0}
	b := GTID{Domain: 0, ServerID: 1, Sequence: 1, EventNum: 1}
	c := GTID{Domain: 0, ServerID: 1, Sequence: 2, EventNum: 0}
	if !a.Less(b) || !b.Less(c) || !a.Less(c) {
		t.Fatalf("ordering broken: a=%v b=%v c=%v", a, b, c)
	}
	if c.Less(a) {
		t.Fatalf("c should not be less than a")
	}
}

func TestSeekComparison(t *testing.T) {
	req := GTID{Domain: 0, ServerID: 1, Sequence: 5}
	row := GTID{Domain: 0, ServerID: 1, Sequence: 5, EventNum: 2}
	if !row.GE(req) {
		t.Fatalf("expected row %v to satisfy seek to %v", row, req)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("not-a-gtid"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Parse("1-2"); err == nil {
		t.Fatal("expected error for missing sequence")
	}
}
