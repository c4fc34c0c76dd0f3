package vm

import "strconv"

// ValueType discriminates the cases of Value.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj
)

// Value is the VM's dynamic value representation: a small tagged union
// rather than a NaN-boxed word (see SPEC_FULL.md §9 on that tradeoff).
type Value struct {
	Type   ValueType
	Bool   bool
	Number float64
	Obj    Obj
}

func NilValue() Value             { return Value{Type: ValNil} }
func BoolValue(b bool) Value      { return Value{Type: ValBool, Bool: b} }
func NumberValue(n float64) Value { return Value{Type: ValNumber, Number: n} }
func ObjValue(o Obj) Value        { return Value{Type: ValObj, Obj: o} }

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }

// IsFalsey reports whether v counts as false for control flow: nil and
// the boolean false are falsey, everything else is truthy.
func (v Value) IsFalsey() bool {
	return v.Type == ValNil || (v.Type == ValBool && !v.Bool)
}

// Equal implements value equality: Nil=Nil, bools by payload, numbers by
// IEEE equality (so NaN != NaN), and Obj references by identity, which
// for interned strings coincides with content equality.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return v.Bool == other.Bool
	case ValNumber:
		return v.Number == other.Number
	case ValObj:
		return v.Obj == other.Obj
	}
	return false
}

func (v Value) objType() ObjType {
	if v.Type != ValObj || v.Obj == nil {
		return 0
	}
	return v.Obj.objType()
}

func (v Value) isString() bool { return v.Type == ValObj && v.objType() == ObjTypeString }

func (v Value) asString() *ObjString {
	return v.Obj.(*ObjString)
}

// String renders v the way the `print` statement does (§6 Runtime output).
func (v Value) String() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.Number)
	case ValObj:
		return v.Obj.inspect()
	}
	return "?"
}

// formatNumber renders a float64 in "%g" style (exponent form for very
// large or small magnitudes) using the shortest decimal digits that
// round-trip; unlike C's "%g" it is not limited to six significant digits.
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}
