package vm

import (
	"hash/fnv"
	"reflect"
)

// Obj is satisfied by every heap-allocated lox value. Kind reports the
// object's variant (the GC and the VM themselves use Go type switches);
// String gives the textual rendering used by PRINT and by error messages.
type Obj interface {
	Kind() ObjKind
	String() string
	objHeader() *header
}

type ObjKind uint8

const (
	ObjKindString ObjKind = iota
	ObjKindFunction
	ObjKindNative
	ObjKindClosure
	ObjKindUpvalue
	ObjKindClass
	ObjKindInstance
	ObjKindBoundMethod
)

// header is embedded in every heap object. next links it into the
// collector's intrusive object list; marked is the GC's black/white bit.
type header struct {
	marked bool
	next   Obj
	size   int
}

func (h *header) objHeader() *header { return h }

// hashPointer gives a stable, cheap hash for heap objects that are not
// strings (functions, classes, ...). Identity is what matters; the bit
// pattern of the pointer is enough.
func hashPointer(o Obj) uint32 {
	h := fnv.New32a()
	p := reflect.ValueOf(o).Pointer()
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(p >> (8 * uint(i)))
	}
	h.Write(buf[:])
	return h.Sum32()
}

// ObjString is an immutable, interned byte string. Equality between two
// ObjStrings with equal bytes is guaranteed by construction: they are the
// same object (see VM.InternString).
type ObjString struct {
	header
	chars string
	hash  uint32
}

func (s *ObjString) Kind() ObjKind { return ObjKindString }
func (s *ObjString) String() string { return s.chars }

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// ObjFunction is a compiled function body: its arity, how many upvalues it
// closes over, and the chunk that holds its bytecode. Top-level script
// code is itself an ObjFunction with arity 0 and a nil Name.
type ObjFunction struct {
	header
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *ObjString
}

func (f *ObjFunction) Kind() ObjKind { return ObjKindFunction }
func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.chars + ">"
}

// NativeFn is the native-function ABI: arg count plus a slice view onto the
// first argument, returning the result value or an error message.
type NativeFn func(argCount int, args []Value) (Value, error)

type ObjNative struct {
	header
	Name string
	Fn   NativeFn
}

func (n *ObjNative) Kind() ObjKind   { return ObjKindNative }
func (n *ObjNative) String() string  { return "<native fn " + n.Name + ">" }

// ObjUpvalue aliases a stack slot while open (Slot >= 0 indexes into the
// owning VM's value stack); once closed (Slot == -1) it owns its value in
// Closed instead.
type ObjUpvalue struct {
	header
	vm       *VM
	Slot     int
	Closed   Value
	NextOpen *ObjUpvalue // VM-wide open list, sorted by descending stack address
}

func (u *ObjUpvalue) Kind() ObjKind  { return ObjKindUpvalue }
func (u *ObjUpvalue) String() string { return "upvalue" }

func (u *ObjUpvalue) isOpen() bool { return u.Slot >= 0 }

// Get reads the aliased stack slot (open) or the owned value (closed).
func (u *ObjUpvalue) Get() Value {
	if u.isOpen() {
		return u.vm.stack[u.Slot]
	}
	return u.Closed
}

// Set writes through to the aliased stack slot (open) or the owned value
// (closed).
func (u *ObjUpvalue) Set(v Value) {
	if u.isOpen() {
		u.vm.stack[u.Slot] = v
	} else {
		u.Closed = v
	}
}

// ObjClosure pairs a function with its captured upvalues. Distinct
// closures may share the same ObjFunction.
type ObjClosure struct {
	header
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Kind() ObjKind  { return ObjKindClosure }
func (c *ObjClosure) String() string { return c.Function.String() }

// ObjClass is a single-inheritance class: a name and a method table
// mapping method-name string -> closure.
type ObjClass struct {
	header
	Name    *ObjString
	Methods *Table
}

func (c *ObjClass) Kind() ObjKind  { return ObjKindClass }
func (c *ObjClass) String() string { return c.Name.chars }

// ObjInstance is a class instance carrying its own field table.
type ObjInstance struct {
	header
	Class  *ObjClass
	Fields *Table
}

func (i *ObjInstance) Kind() ObjKind  { return ObjKindInstance }
func (i *ObjInstance) String() string { return i.Class.Name.chars + " instance" }

// ObjBoundMethod bundles a receiver with the closure found on its class,
// produced by GET_PROPERTY / GET_SUPER when the looked-up name resolves to
// a method rather than a field.
type ObjBoundMethod struct {
	header
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) Kind() ObjKind  { return ObjKindBoundMethod }
func (b *ObjBoundMethod) String() string { return b.Method.String() }
