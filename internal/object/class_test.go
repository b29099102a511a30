package object

import "testing"

func TestAncestorsOrderPrependSelfIncludeSuper(t *testing.T) {
	obj := NewClass("Object", nil)
	a := NewClass("A", obj)
	m1 := NewModule("M1")
	m2 := NewModule("M2")
	p1 := NewModule("P1")
	a.Include(m1)
	a.Include(m2)
	a.Prepend(p1)

	anc := a.Ancestors()
	names := make([]string, len(anc))
	for i, m := range anc {
		names[i] = m.Name
	}
	want := []string{"P1", "A", "M2", "M1", "Object"}
	if len(names) != len(want) {
		t.Fatalf("want %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("want %v, got %v", want, names)
		}
	}
}

func TestIncludeMostRecentWinsAtLookup(t *testing.T) {
	obj := NewClass("Object", nil)
	c := NewClass("C", obj)
	m1 := NewModule("M1")
	m1.Methods["v"] = &Method{Name: "v"}
	m2 := NewModule("M2")
	m2.Methods["v"] = &Method{Name: "v"}
	c.Include(m1)
	c.Include(m2)

	meth, ok := c.Lookup("v")
	if !ok || meth != m2.Methods["v"] {
		t.Fatalf("want the most recently included module's method to win")
	}
}

func TestEpochBumpsOnRedefinition(t *testing.T) {
	obj := NewClass("Object", nil)
	c := NewClass("C", obj)
	before := c.Epoch()
	c.DefineMethod(&Method{Name: "x"})
	if c.Epoch() == before {
		t.Fatalf("want epoch to bump after DefineMethod")
	}
	beforeInclude := c.Epoch()
	c.Include(NewModule("M"))
	if c.Epoch() == beforeInclude {
		t.Fatalf("want epoch to bump after Include")
	}
}

func TestMethodCacheInvalidatesOnRedefinition(t *testing.T) {
	obj := NewClass("Object", nil)
	c := NewClass("C", obj)
	original := &Method{Name: "v"}
	c.DefineMethod(original)

	var mc MethodCache
	m, ok := mc.Lookup(0, c, "v")
	if !ok || m != original {
		t.Fatalf("want the original method on first lookup")
	}

	replacement := &Method{Name: "v"}
	c.DefineMethod(replacement)

	m, ok = mc.Lookup(0, c, "v")
	if !ok || m != replacement {
		t.Fatalf("want the cache to observe the redefinition, got %#v", m)
	}
	if len(mc.entries) != 1 {
		t.Fatalf("want the stale entry replaced in place, not appended (len=%d)", len(mc.entries))
	}
}

func TestMethodCacheMissReturnsFalse(t *testing.T) {
	obj := NewClass("Object", nil)
	c := NewClass("C", obj)
	var mc MethodCache
	_, ok := mc.Lookup(0, c, "nope")
	if ok {
		t.Fatalf("want a miss for an undefined method")
	}
}
