package vm

import "fmt"

// ObjString is an immutable interned byte string with a precomputed
// FNV-1a hash. Any two ObjStrings with equal Chars are the same pointer
// (see VM.internString).
type ObjString struct {
	objHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) objType() ObjType { return ObjTypeString }
func (s *ObjString) inspect() string  { return s.Chars }

func hashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// ObjFunction is a compiled function prototype: immutable once the
// compiler finishes with it.
type ObjFunction struct {
	objHeader
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *ObjString // nil for the top-level script
}

func (f *ObjFunction) objType() ObjType { return ObjTypeFunction }
func (f *ObjFunction) inspect() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeFn is the Go-side implementation of a native function: it
// receives its argument slice and returns a Value. Per §4.5, arity is
// metadata only and is not enforced at the call site.
type NativeFn func(vm *VM, args []Value) (Value, error)

// ObjNative wraps a native function with its declared (unchecked) arity.
type ObjNative struct {
	objHeader
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *ObjNative) objType() ObjType { return ObjTypeNative }
func (n *ObjNative) inspect() string  { return "<native fn>" }

// ObjUpvalue is a heap cell referring to a captured variable. While open,
// Location points into the live VM stack; Next threads the open-upvalue
// list, maintained by the VM in strictly decreasing Location order.
type ObjUpvalue struct {
	objHeader
	Location *Value
	Closed   Value
	Next     *ObjUpvalue
}

func (u *ObjUpvalue) objType() ObjType { return ObjTypeUpvalue }
func (u *ObjUpvalue) inspect() string  { return "upvalue" }

func (u *ObjUpvalue) isOpen() bool { return u.Location != &u.Closed }

func (u *ObjUpvalue) close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// ObjClosure pairs a function prototype with the upvalues it captured at
// creation time.
type ObjClosure struct {
	objHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) objType() ObjType { return ObjTypeClosure }
func (c *ObjClosure) inspect() string  { return c.Function.inspect() }

// ObjClass is a named bag of methods. Methods are copied in from the
// superclass at OP_INHERIT time, not looked up through a parent link.
type ObjClass struct {
	objHeader
	Name    *ObjString
	Methods *Table
}

func (c *ObjClass) objType() ObjType { return ObjTypeClass }
func (c *ObjClass) inspect() string  { return c.Name.Chars }

// ObjInstance is a live object of some class, with its own mutable field
// table.
type ObjInstance struct {
	objHeader
	Class  *ObjClass
	Fields *Table
}

func (i *ObjInstance) objType() ObjType { return ObjTypeInstance }
func (i *ObjInstance) inspect() string  { return fmt.Sprintf("%s instance", i.Class.Name.Chars) }

// ObjBoundMethod pairs a receiver with one of its class's closures,
// produced by OP_GET_PROPERTY when the property names a method rather
// than a field.
type ObjBoundMethod struct {
	objHeader
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) objType() ObjType { return ObjTypeBoundMethod }
func (b *ObjBoundMethod) inspect() string  { return b.Method.inspect() }
