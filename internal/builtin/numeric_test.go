package builtin

import "testing"

func TestFloorDivIntMatchesFloorDivisionLaw(t *testing.T) {
	cases := []struct{ a, b, wantQ int64 }{
		{7, 2, 3},
		{-7, 2, -4},
		{7, -2, -4},
		{-7, -2, 3},
		{10, 3, 3},
		{-10, 3, -4},
	}
	for _, c := range cases {
		q := floorDivInt(c.a, c.b)
		if q != c.wantQ {
			t.Fatalf("floorDivInt(%d,%d): want %d, got %d", c.a, c.b, c.wantQ, q)
		}
		r := c.a - q*c.b
		if c.a != q*c.b+r {
			t.Fatalf("floor division law violated for (%d,%d)", c.a, c.b)
		}
	}
}

func TestGcdInt(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{12, 18, 6},
		{-12, 18, 6},
		{0, 5, 5},
		{7, 13, 1},
	}
	for _, c := range cases {
		got := gcdInt(c.a, c.b)
		if got != c.want {
			t.Fatalf("gcdInt(%d,%d): want %d, got %d", c.a, c.b, c.want, got)
		}
	}
}

func TestCmpIntAndCmpFloat(t *testing.T) {
	if cmpInt(1, 2) != -1 || cmpInt(2, 1) != 1 || cmpInt(1, 1) != 0 {
		t.Fatalf("cmpInt ordering wrong")
	}
	if cmpFloat(1.5, 2.5) != -1 || cmpFloat(2.5, 1.5) != 1 || cmpFloat(1.0, 1.0) != 0 {
		t.Fatalf("cmpFloat ordering wrong")
	}
}

func TestIntRangeAndIntRangeDown(t *testing.T) {
	up := intRange(0, 3)
	if len(up) != 3 || up[0].(int64) != 0 || up[2].(int64) != 2 {
		t.Fatalf("want [0,1,2], got %#v", up)
	}
	down := intRangeDown(3, 0)
	if len(down) != 4 || down[0].(int64) != 3 || down[3].(int64) != 0 {
		t.Fatalf("want [3,2,1,0], got %#v", down)
	}
}
