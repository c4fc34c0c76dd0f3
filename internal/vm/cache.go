package vm

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// cacheMagic versions the on-disk format so run-compiled can refuse a
// cache written by an incompatible build instead of misinterpreting it.
const cacheMagic = "glimc01"

// cacheValue is a CBOR-friendly rendering of Value: at most one of the
// typed fields is meaningful, selected by Tag.
type cacheValue struct {
	Tag    ValueType `cbor:"tag"`
	Bool   bool      `cbor:"bool,omitempty"`
	Number float64   `cbor:"number,omitempty"`
	Str    string    `cbor:"str,omitempty"`
	Fn     *cacheFn  `cbor:"fn,omitempty"`
}

// cacheLineRun mirrors lineRun with exported fields, since lineRun's are
// unexported and invisible to cbor's reflection-based encoder.
type cacheLineRun struct {
	Offset int `cbor:"offset"`
	Line   int `cbor:"line"`
}

// cacheFn is a serializable snapshot of one ObjFunction prototype,
// recursively including any nested prototypes reachable through its own
// constant pool (closures created for nested `fun` declarations).
type cacheFn struct {
	Arity        int            `cbor:"arity"`
	UpvalueCount int            `cbor:"upvalues"`
	Name         string         `cbor:"name"`
	HasName      bool           `cbor:"has_name"`
	Code         []byte         `cbor:"code"`
	Lines        []cacheLineRun `cbor:"lines"`
	Constants    []cacheValue   `cbor:"constants"`
}

// cacheFile is the top-level on-disk shape written by `glimmer compile`
// and read back by `glimmer run-compiled`.
type cacheFile struct {
	Magic string  `cbor:"magic"`
	Main  cacheFn `cbor:"main"`
}

func toCacheValue(v Value) cacheValue {
	cv := cacheValue{Tag: v.Type}
	switch v.Type {
	case ValBool:
		cv.Bool = v.Bool
	case ValNumber:
		cv.Number = v.Number
	case ValObj:
		switch obj := v.Obj.(type) {
		case *ObjString:
			cv.Str = obj.Chars
		case *ObjFunction:
			fn := toCacheFn(obj)
			cv.Fn = &fn
		default:
			panic(fmt.Sprintf("cache: unsupported constant object type %v", obj.objType()))
		}
	}
	return cv
}

func toCacheFn(f *ObjFunction) cacheFn {
	cf := cacheFn{
		Arity:        f.Arity,
		UpvalueCount: f.UpvalueCount,
		Code:         append([]byte(nil), f.Chunk.Code...),
	}
	for _, run := range f.Chunk.lines {
		cf.Lines = append(cf.Lines, cacheLineRun{Offset: run.offset, Line: run.line})
	}
	if f.Name != nil {
		cf.HasName = true
		cf.Name = f.Name.Chars
	}
	for _, c := range f.Chunk.Constants {
		cf.Constants = append(cf.Constants, toCacheValue(c))
	}
	return cf
}

func (vm *VM) fromCacheValue(cv cacheValue) Value {
	switch cv.Tag {
	case ValNil:
		return NilValue()
	case ValBool:
		return BoolValue(cv.Bool)
	case ValNumber:
		return NumberValue(cv.Number)
	case ValObj:
		if cv.Fn != nil {
			return ObjValue(vm.fromCacheFn(*cv.Fn))
		}
		return ObjValue(vm.internString(cv.Str))
	}
	return NilValue()
}

func (vm *VM) fromCacheFn(cf cacheFn) *ObjFunction {
	f := vm.newFunction()
	f.Arity = cf.Arity
	f.UpvalueCount = cf.UpvalueCount
	if cf.HasName {
		f.Name = vm.internString(cf.Name)
	}
	f.Chunk.Code = append([]byte(nil), cf.Code...)
	for _, run := range cf.Lines {
		f.Chunk.lines = append(f.Chunk.lines, lineRun{offset: run.Offset, line: run.Line})
	}
	for _, c := range cf.Constants {
		f.Chunk.Constants = append(f.Chunk.Constants, vm.fromCacheValue(c))
	}
	return f
}

// SaveCache writes the compiled top-level function to path as a CBOR
// bytecode cache, for later use by LoadCache.
func (vm *VM) SaveCache(function *ObjFunction, path string) error {
	file := cacheFile{Magic: cacheMagic, Main: toCacheFn(function)}
	data, err := cbor.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode bytecode cache: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadCache reads a bytecode cache written by SaveCache and reconstructs
// its top-level ObjFunction, interning its nested strings against this
// VM's string table.
func (vm *VM) LoadCache(path string) (*ObjFunction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file cacheFile
	if err := cbor.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode bytecode cache: %w", err)
	}
	if file.Magic != cacheMagic {
		return nil, fmt.Errorf("not a glimmer bytecode cache (or wrong version): %s", path)
	}
	return vm.fromCacheFn(file.Main), nil
}
