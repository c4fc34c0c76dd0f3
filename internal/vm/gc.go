package vm

import (
	"fmt"
	"os"
	"reflect"
)

const gcHeapGrowFactor = 2

// objectSize is a rough accounting size used only to drive the
// allocation-pressure trigger; Go's own allocator and runtime GC own the
// actual memory, this collector's job is to uphold the mark/sweep
// protocol and liveness invariants over the Obj graph (§4.6), not to
// manage raw bytes.
func objectSize(o Obj) int {
	switch v := o.(type) {
	case *ObjString:
		return 32 + len(v.Chars)
	case *ObjFunction:
		return 64
	case *ObjNative:
		return 32
	case *ObjUpvalue:
		return 24
	case *ObjClosure:
		return 32 + 8*len(v.Upvalues)
	case *ObjClass:
		return 32
	case *ObjInstance:
		return 24
	case *ObjBoundMethod:
		return 24
	}
	return 16
}

// trackAlloc is the VM's allocator hook (§9 Design Notes): every new
// heap object passes through here so bytesAllocated stays accurate and
// the GC trigger stays centralized. It links obj onto the object list
// and may run a full collection first if growth pressure warrants it.
func (vm *VM) trackAlloc(obj Obj) {
	vm.bytesAllocated += objectSize(obj)

	if vm.cfg.StressGC {
		vm.collectGarbage()
	} else if vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}

	obj.header().next = vm.objects
	vm.objects = obj
}

// markValue marks value's underlying object, if it has one. A no-op for
// non-Obj values.
func (vm *VM) markValue(value Value) {
	if value.Type == ValObj {
		vm.markObject(value.Obj)
	}
}

// markObject marks obj and pushes it onto the gray stack for tracing.
// Marking is idempotent and markObject(nil) is a no-op, including for a
// nil pointer held in the Obj interface (an unnamed function's Name, a
// closure upvalue slot not yet filled).
func (vm *VM) markObject(obj Obj) {
	if obj == nil || reflect.ValueOf(obj).IsNil() {
		return
	}
	h := obj.header()
	if h.marked {
		return
	}
	h.marked = true
	vm.grayStack = append(vm.grayStack, obj)
}

func (vm *VM) markArray(values []Value) {
	for _, v := range values {
		vm.markValue(v)
	}
}

// markRoots marks every value directly reachable by the VM without
// following another object's references (§4.6 phase 1).
func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}

	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}

	for up := vm.openUpvalues; up != nil; up = up.Next {
		vm.markObject(up)
	}

	vm.globals.mark(vm)

	for c := vm.currentCompiler; c != nil; c = c.enclosing {
		vm.markObject(c.function)
	}

	vm.markObject(vm.initString)
}

// blackenObject traces obj's outgoing references, marking each in turn.
func (vm *VM) blackenObject(obj Obj) {
	switch o := obj.(type) {
	case *ObjBoundMethod:
		vm.markValue(o.Receiver)
		vm.markObject(o.Method)
	case *ObjClass:
		vm.markObject(o.Name)
		o.Methods.mark(vm)
	case *ObjClosure:
		vm.markObject(o.Function)
		for _, up := range o.Upvalues {
			vm.markObject(up)
		}
	case *ObjFunction:
		vm.markObject(o.Name)
		vm.markArray(o.Chunk.Constants)
	case *ObjInstance:
		vm.markObject(o.Class)
		o.Fields.mark(vm)
	case *ObjUpvalue:
		vm.markValue(o.Closed)
	case *ObjNative, *ObjString:
		// no outgoing object references
	}
}

func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		obj := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blackenObject(obj)
	}
}

// sweep walks the object list, unlinking every object that survived
// marking as unmarked (unreachable) and clearing the mark bit on
// survivors so the next cycle starts clean (§4.6 phase 4).
func (vm *VM) sweep() {
	var previous Obj
	object := vm.objects
	for object != nil {
		h := object.header()
		if h.marked {
			h.marked = false
			previous = object
			object = h.next
			continue
		}
		unreached := object
		object = h.next
		vm.bytesAllocated -= objectSize(unreached)
		if previous != nil {
			previous.header().next = object
		} else {
			vm.objects = object
		}
	}
}

// collectGarbage runs one full mark-sweep cycle.
func (vm *VM) collectGarbage() {
	before := vm.bytesAllocated
	if vm.cfg.GCLogging {
		fmt.Fprintf(os.Stderr, "-- gc begin\n")
	}

	vm.markRoots()
	vm.traceReferences()
	vm.strings.removeWhite()
	vm.sweep()
	vm.nextGC = vm.bytesAllocated * gcHeapGrowFactor

	if vm.cfg.GCLogging {
		fmt.Fprintf(os.Stderr, "-- gc end   collected %d bytes (from %d to %d) next at %d\n",
			before-vm.bytesAllocated, before, vm.bytesAllocated, vm.nextGC)
	}
}
