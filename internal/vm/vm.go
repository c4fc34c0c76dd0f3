// Package vm implements the bytecode chunk format, value and object
// model, compiler, garbage collector, and stack machine described in
// SPEC_FULL.md §3–§4.6.
package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/glimmer-lang/glimmer/internal/config"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// ErrCompile and ErrRuntime are the two failure sentinels Interpret can
// return; the driver maps them to exit codes 65 and 70 respectively
// (§6, §7). A nil error means the program ran to completion.
var (
	ErrCompile = errors.New("compile error")
	ErrRuntime = errors.New("runtime error")
)

// CallFrame is one live invocation: the closure being executed, the
// instruction pointer into its chunk, and the base stack slot where its
// locals (slot 0 is the callee itself) begin.
type CallFrame struct {
	closure   *ObjClosure
	ip        int
	slotsBase int
}

// VM is the single-threaded interpreter: operand stack, call frames,
// globals, the interned-string set, the open-upvalue list, and the GC's
// object graph and accounting (§4.5, §9 "global VM state"). There is
// exactly one VM per running program; the REPL reuses one across lines.
type VM struct {
	frames     [framesMax]CallFrame
	frameCount int

	stack    [stackMax]Value
	stackTop int

	globals      *Table
	strings      *Table
	openUpvalues *ObjUpvalue
	initString   *ObjString

	objects        Obj
	bytesAllocated int
	nextGC         int
	grayStack      []Obj

	currentCompiler *Compiler

	cfg *config.Config
	out io.Writer
}

// New returns a freshly initialized VM with default configuration and
// stdout as its print target.
func New() *VM {
	vm := &VM{
		globals: NewTable(),
		strings: NewTable(),
		cfg:     config.Default(),
		out:     os.Stdout,
		nextGC:  1 << 20,
	}
	vm.initString = vm.internString("init")
	vm.defineNative("clock", 0, nativeClock)
	return vm
}

// SetConfig installs cfg's debug toggles (§10.3).
func (vm *VM) SetConfig(cfg *config.Config) { vm.cfg = cfg }

// SetOutput redirects `print` output, used by tests to capture stdout.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// Interpret compiles and runs source against this VM's existing global
// state, so a REPL can accumulate globals across calls. Returns
// ErrCompile, ErrRuntime, or nil.
func (vm *VM) Interpret(source string) error {
	function, ok := Compile(vm, source)
	if !ok {
		return ErrCompile
	}

	vm.push(ObjValue(function))
	closure := vm.newClosure(function)
	vm.pop()
	vm.push(ObjValue(closure))
	if err := vm.callClosure(closure, 0); err != nil {
		vm.resetStack()
		return err
	}

	if vm.cfg.Debug {
		fmt.Fprint(os.Stderr, Disassemble(function.Chunk, scriptName(function)))
	}

	return vm.run()
}

// Run executes an already-compiled top-level function directly, skipping
// the scanner and compiler entirely — the entry point for `run-compiled`
// (§11.1, §11.3).
func (vm *VM) Run(function *ObjFunction) error {
	vm.push(ObjValue(function))
	closure := vm.newClosure(function)
	vm.pop()
	vm.push(ObjValue(closure))
	if err := vm.callClosure(closure, 0); err != nil {
		vm.resetStack()
		return err
	}
	return vm.run()
}

func scriptName(f *ObjFunction) string {
	if f.Name == nil {
		return "<script>"
	}
	return f.Name.Chars
}

// --- stack -----------------------------------------------------------

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) frame() *CallFrame { return &vm.frames[vm.frameCount-1] }

// --- interning ---------------------------------------------------------

// internString returns the unique interned ObjString for s, allocating
// one only if content equality against the strings table fails. The
// fresh string is pushed on the stack across the table insert (§5
// "notable specified stashings"); Table.Set itself does not go through
// trackAlloc, so the insert never starts a collection.
func (vm *VM) internString(s string) *ObjString {
	hash := hashString(s)
	if interned := vm.strings.FindString(s, hash); interned != nil {
		return interned
	}
	str := &ObjString{Chars: s, Hash: hash}
	vm.trackAlloc(str)
	vm.push(ObjValue(str))
	vm.strings.Set(str, NilValue())
	vm.pop()
	return str
}

// --- allocation helpers -------------------------------------------------

func (vm *VM) newFunction() *ObjFunction {
	f := &ObjFunction{Chunk: NewChunk()}
	vm.trackAlloc(f)
	return f
}

func (vm *VM) newClosure(function *ObjFunction) *ObjClosure {
	c := &ObjClosure{Function: function, Upvalues: make([]*ObjUpvalue, function.UpvalueCount)}
	vm.trackAlloc(c)
	return c
}

func (vm *VM) newClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name, Methods: NewTable()}
	vm.trackAlloc(c)
	return c
}

func (vm *VM) newInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class, Fields: NewTable()}
	vm.trackAlloc(i)
	return i
}

func (vm *VM) newBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	vm.trackAlloc(b)
	return b
}

// defineNative registers a native function as a global, pushing both
// the interned name and the fresh ObjNative before the table insert and
// popping after, matching the stashing rule §5 calls out by name.
func (vm *VM) defineNative(name string, arity int, fn NativeFn) {
	nameStr := vm.internString(name)
	native := &ObjNative{Name: name, Arity: arity, Fn: fn}
	vm.trackAlloc(native)

	vm.push(ObjValue(nameStr))
	vm.push(ObjValue(native))
	vm.globals.Set(nameStr, vm.peek(0))
	vm.pop()
	vm.pop()
}

// --- upvalues ------------------------------------------------------------

// slotIndex recovers the stack index a still-open upvalue's Location
// points at, by pointer arithmetic against the VM's fixed stack array
// (stable for the VM's lifetime — it is never resized).
func (vm *VM) slotIndex(loc *Value) int {
	return int((uintptr(unsafe.Pointer(loc)) - uintptr(unsafe.Pointer(&vm.stack[0]))) / unsafe.Sizeof(vm.stack[0]))
}

// captureUpvalue returns the open upvalue for the stack slot at index,
// reusing one already open at that slot, otherwise creating one and
// inserting it into the VM's location-descending open list.
func (vm *VM) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	up := vm.openUpvalues
	for up != nil && vm.slotIndex(up.Location) > slot {
		prev = up
		up = up.Next
	}
	if up != nil && vm.slotIndex(up.Location) == slot {
		return up
	}

	created := &ObjUpvalue{Location: &vm.stack[slot]}
	vm.trackAlloc(created)
	created.Next = up
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose location is at or above
// lastSlot, copying the live value into the upvalue itself (§4.5).
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.slotIndex(vm.openUpvalues.Location) >= lastSlot {
		up := vm.openUpvalues
		up.close()
		vm.openUpvalues = up.Next
	}
}

// --- errors --------------------------------------------------------------

func (vm *VM) runtimeError(format string, args ...interface{}) error {
	fmt.Fprintf(os.Stderr, format+"\n", args...)

	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		function := frame.closure.Function
		line := function.Chunk.GetLine(frame.ip - 1)
		if function.Name == nil {
			fmt.Fprintf(os.Stderr, "[line %d] in script\n", line)
		} else {
			fmt.Fprintf(os.Stderr, "[line %d] in %s()\n", line, function.Name.Chars)
		}
	}

	return ErrRuntime
}
