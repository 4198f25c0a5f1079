package vm

import "math"

// entryState distinguishes the three states a Table slot can be in, so
// that probe sequences survive deletion without shrinking the array.
type entryState uint8

const (
	entryAbsent entryState = iota
	entryPresent
	entryTombstone
)

type tableEntry struct {
	state entryState
	key   Value
	value Value
}

const tableMaxLoad = 0.75
const tableInitialCapacity = 8

// Table is an open-addressed, linear-probed map from Value to Value, used
// both as the VM's globals table and the interning set, and as the
// backing store for ObjClass.Methods / ObjInstance.Fields. nil is not a
// valid key.
type Table struct {
	count   int // includes tombstones, so probe distances stay bounded
	entries []tableEntry
}

func NewTable() *Table {
	return &Table{}
}

// Get returns the value stored under key, if any.
func (t *Table) Get(key Value) (Value, bool) {
	if len(t.entries) == 0 {
		return NilVal, false
	}
	e := t.findEntry(t.entries, key)
	if e.state != entryPresent {
		return NilVal, false
	}
	return e.value, true
}

// Set upserts key -> value, growing the backing array first if the load
// factor would exceed 0.75. Returns true if key was not already present.
func (t *Table) Set(key Value, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow(growCapacity(len(t.entries)))
	}
	e := t.findEntry(t.entries, key)
	isNewKey := e.state != entryPresent
	if isNewKey && e.state == entryAbsent {
		t.count++
	}
	e.state = entryPresent
	e.key = key
	e.value = value
	return isNewKey
}

// Delete replaces a present entry with a tombstone. Count is deliberately
// not decremented: tombstones keep probe sequences for later keys intact.
func (t *Table) Delete(key Value) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.state != entryPresent {
		return false
	}
	e.state = entryTombstone
	e.key = NilVal
	e.value = BoolVal(true)
	return true
}

// AddAll copies every present entry of src into dst, used by INHERIT to
// seed a subclass's method table from its superclass.
func AddAll(src, dst *Table) {
	for i := range src.entries {
		e := &src.entries[i]
		if e.state == entryPresent {
			dst.Set(e.key, e.value)
		}
	}
}

// FindInternedString looks up a string by raw bytes+hash, used only by
// the interning set: an exact byte comparison, skipping tombstones.
func (t *Table) FindInternedString(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash % capacity
	for {
		e := &t.entries[index]
		switch e.state {
		case entryAbsent:
			return nil
		case entryPresent:
			if s, ok := e.key.obj.(*ObjString); ok && s.hash == hash && s.chars == chars {
				return s
			}
		case entryTombstone:
			// keep probing
		}
		index = (index + 1) % capacity
	}
}

// RemoveWhite deletes every entry whose key is an unmarked heap object.
// Used by the collector to prune the interning set of dead strings before
// sweep reclaims them.
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.state == entryPresent {
			if obj, ok := e.key.obj.(Obj); ok && e.key.Type == ValObj {
				if !obj.objHeader().marked {
					e.state = entryTombstone
					e.key = NilVal
					e.value = BoolVal(true)
				}
			}
		}
	}
}

// ForEach visits every present entry; used by the GC to mark table
// contents and by Class/Instance iteration helpers.
func (t *Table) ForEach(fn func(key, value Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.state == entryPresent {
			fn(e.key, e.value)
		}
	}
}

func growCapacity(capacity int) int {
	if capacity < tableInitialCapacity {
		return tableInitialCapacity
	}
	return capacity * 2
}

// findEntry probes from hash(key) mod capacity, remembering the first
// tombstone seen so Set can reuse it; lookups continue past tombstones.
func (t *Table) findEntry(entries []tableEntry, key Value) *tableEntry {
	capacity := uint32(len(entries))
	index := hashValue(key) % capacity
	isNaNNumber := func(v Value) bool { return v.Type == ValNumber && math.IsNaN(v.num) }
	var tombstone *tableEntry
	for {
		e := &entries[index]
		switch e.state {
		case entryAbsent:
			if tombstone != nil {
				return tombstone
			}
			return e
		case entryTombstone:
			if tombstone == nil {
				tombstone = e
			}
		case entryPresent:
			// NaN never equals itself under ValuesEqual; match NaN keys
			// here so a NaN key can be found again.
			if ValuesEqual(e.key, key) || (isNaNNumber(e.key) && isNaNNumber(key)) {
				return e
			}
		}
		index = (index + 1) % capacity
	}
}

// grow reallocates the backing array at the new capacity and reinserts
// every present entry; tombstones are dropped and the count is rebuilt
// from scratch.
func (t *Table) grow(capacity int) {
	fresh := make([]tableEntry, capacity)
	t.count = 0
	for i := range fresh {
		fresh[i].state = entryAbsent
	}
	for i := range t.entries {
		e := &t.entries[i]
		if e.state != entryPresent {
			continue
		}
		dst := t.findEntry(fresh, e.key)
		dst.state = entryPresent
		dst.key = e.key
		dst.value = e.value
		t.count++
	}
	t.entries = fresh
}
