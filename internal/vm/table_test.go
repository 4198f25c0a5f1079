package vm

import "testing"

func TestTableSetGetDelete(t *testing.T) {
	tbl := NewTable()
	machine := New(Options{})

	a := machine.InternString("alpha")
	b := machine.InternString("beta")

	if ok := tbl.Set(ObjVal(a), NumberVal(1)); !ok {
		t.Fatalf("Set on fresh key should report new entry")
	}
	if ok := tbl.Set(ObjVal(a), NumberVal(2)); ok {
		t.Fatalf("Set on existing key should report false (not new)")
	}

	v, ok := tbl.Get(ObjVal(a))
	if !ok || v.AsNumber() != 2 {
		t.Fatalf("Get(a) = %v, %v; want 2, true", v, ok)
	}

	if _, ok := tbl.Get(ObjVal(b)); ok {
		t.Fatalf("Get(b) should miss before Set")
	}

	if !tbl.Delete(ObjVal(a)) {
		t.Fatalf("Delete(a) should succeed")
	}
	if _, ok := tbl.Get(ObjVal(a)); ok {
		t.Fatalf("Get(a) should miss after Delete")
	}
}

func TestTableGrowsAndSurvivesTombstones(t *testing.T) {
	tbl := NewTable()
	machine := New(Options{})

	var keys []*ObjString
	for i := 0; i < 200; i++ {
		keys = append(keys, machine.InternString(string(rune('a'+i%26))+string(rune('A'+i%17))+string(rune(i))))
	}
	for i, k := range keys {
		tbl.Set(ObjVal(k), NumberVal(float64(i)))
	}
	// Delete every other entry to scatter tombstones through the probe sequence.
	for i := 0; i < len(keys); i += 2 {
		tbl.Delete(ObjVal(keys[i]))
	}
	for i, k := range keys {
		v, ok := tbl.Get(ObjVal(k))
		if i%2 == 0 {
			if ok {
				t.Fatalf("key %d should have been deleted", i)
			}
			continue
		}
		if !ok || v.AsNumber() != float64(i) {
			t.Fatalf("key %d = %v, %v; want %d, true", i, v, ok, i)
		}
	}
}

func TestFindInternedStringIdentity(t *testing.T) {
	machine := New(Options{})
	a := machine.InternString("shared")
	b := machine.InternString("shared")
	if a != b {
		t.Fatalf("interning the same text twice should yield the same *ObjString pointer")
	}
}
