package vm

import (
	"container/list"
	"reflect"
	"sync"
)

// grayListPool reuses the gray worklist's container/list.List across
// collection cycles; a VM that triggers many small collections (tight
// allocation loops) would otherwise allocate a fresh list header every
// time.
var grayListPool = sync.Pool{New: func() interface{} { return list.New() }}

// registerObject links a freshly allocated object at the head of the
// intrusive object list and charges its approximate size against the
// allocation-pressure counter, collecting first if charging this object
// would push the counter past nextGC (or unconditionally under stress
// mode).
func (vm *VM) registerObject(o Obj, size int) {
	if vm.stressGC || vm.bytesAllocated+uint64(size) > vm.nextGC {
		vm.collectGarbage()
	}
	h := o.objHeader()
	h.next = vm.objects
	h.size = size
	vm.objects = o
	vm.bytesAllocated += uint64(size)
}

func (vm *VM) NewFunction() *ObjFunction {
	fn := &ObjFunction{}
	vm.registerObject(fn, 64)
	return fn
}

func (vm *VM) NewNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Fn: fn}
	vm.registerObject(n, 32)
	return n
}

func (vm *VM) NewClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	vm.registerObject(c, 32+8*fn.UpvalueCount)
	return c
}

func (vm *VM) NewUpvalue(slot int) *ObjUpvalue {
	u := &ObjUpvalue{vm: vm, Slot: slot}
	vm.registerObject(u, 32)
	return u
}

func (vm *VM) NewClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name, Methods: NewTable()}
	vm.registerObject(c, 48)
	return c
}

func (vm *VM) NewInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class, Fields: NewTable()}
	vm.registerObject(i, 48)
	return i
}

func (vm *VM) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	vm.registerObject(b, 32)
	return b
}

// collectGarbage runs one synchronous stop-the-world mark-sweep cycle:
// mark roots, trace to a fixed point, prune the weak intern set, sweep.
func (vm *VM) collectGarbage() {
	gray := grayListPool.Get().(*list.List)
	defer func() {
		gray.Init()
		grayListPool.Put(gray)
	}()
	vm.markRoots(gray)
	vm.traceReferences(gray)
	vm.strings.RemoveWhite()
	vm.sweep()
	vm.nextGC = vm.bytesAllocated * vm.growFactor
	if vm.nextGC == 0 {
		vm.nextGC = 1024 * 1024
	}
	if vm.log != nil {
		vm.log.Printf("gc: collected, %d bytes live, next at %d", vm.bytesAllocated, vm.nextGC)
	}
}

func (vm *VM) markRoots(gray *list.List) {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i], gray)
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].Closure, gray)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		vm.markObject(uv, gray)
	}
	vm.globals.ForEach(func(k, v Value) {
		vm.markValue(k, gray)
		vm.markValue(v, gray)
	})
	vm.markObject(vm.initString, gray)
	for _, fn := range vm.compilerRoots {
		vm.markObject(fn, gray)
	}
}

func (vm *VM) markValue(v Value, gray *list.List) {
	if v.Type == ValObj {
		vm.markObject(v.obj, gray)
	}
}

// markObject blackens nothing itself; it flags an object gray (marked)
// and enqueues it for traceReferences to expand, unless it is nil or
// already marked.
func (vm *VM) markObject(o Obj, gray *list.List) {
	if o == nil || reflect.ValueOf(o).IsNil() {
		return
	}
	h := o.objHeader()
	if h.marked {
		return
	}
	h.marked = true
	gray.PushBack(o)
}

// traceReferences drains the gray worklist, pushing each object's
// referents until the worklist is empty (the mark phase's fixed point).
func (vm *VM) traceReferences(gray *list.List) {
	for gray.Len() > 0 {
		e := gray.Back()
		gray.Remove(e)
		vm.blacken(e.Value.(Obj), gray)
	}
}

func (vm *VM) blacken(o Obj, gray *list.List) {
	switch obj := o.(type) {
	case *ObjString, *ObjNative:
		// leaves
	case *ObjFunction:
		vm.markObject(obj.Name, gray)
		for _, c := range obj.Chunk.Constants {
			vm.markValue(c, gray)
		}
	case *ObjClosure:
		vm.markObject(obj.Function, gray)
		for _, uv := range obj.Upvalues {
			vm.markObject(uv, gray)
		}
	case *ObjUpvalue:
		vm.markValue(obj.Get(), gray)
	case *ObjClass:
		vm.markObject(obj.Name, gray)
		obj.Methods.ForEach(func(k, v Value) {
			vm.markValue(k, gray)
			vm.markValue(v, gray)
		})
	case *ObjInstance:
		vm.markObject(obj.Class, gray)
		obj.Fields.ForEach(func(k, v Value) {
			vm.markValue(k, gray)
			vm.markValue(v, gray)
		})
	case *ObjBoundMethod:
		vm.markValue(obj.Receiver, gray)
		vm.markObject(obj.Method, gray)
	}
}

// sweep walks the intrusive object list; marked objects are unmarked and
// kept, unmarked objects are unlinked so the Go GC can reclaim them. This
// is a logical free: the underlying memory is returned to the host
// allocator (Go's own collector), not to a free list, matching the
// "host allocator" discipline spec.md §4.3 asks gray-stack handling to
// respect.
func (vm *VM) sweep() {
	var prev Obj
	cur := vm.objects
	for cur != nil {
		h := cur.objHeader()
		if h.marked {
			h.marked = false
			prev = cur
			cur = h.next
			continue
		}
		unreached := cur
		cur = h.next
		if prev == nil {
			vm.objects = cur
		} else {
			prev.objHeader().next = cur
		}
		vm.bytesAllocated -= uint64(unreached.objHeader().size)
	}
}
