package vm

import "fmt"

func (vm *VM) readByte() byte {
	f := vm.frame()
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readConstant() Value {
	idx := vm.readByte()
	return vm.frame().closure.Function.Chunk.Constants[idx]
}

func (vm *VM) readJumpOffset() int {
	hi := vm.readByte()
	lo := vm.readByte()
	return int(hi)<<8 | int(lo)
}

// run is the fetch-decode-execute loop: one byte fetched from the
// current frame's ip, dispatched, repeated until the top-level script
// returns or a runtime error unwinds out (§4.5).
func (vm *VM) run() error {
	for {
		if vm.cfg.TraceExec {
			vm.traceExecution()
		}

		instruction := Opcode(vm.readByte())
		switch instruction {
		case OpConstant:
			vm.push(vm.readConstant())
		case OpNil:
			vm.push(NilValue())
		case OpTrue:
			vm.push(BoolValue(true))
		case OpFalse:
			vm.push(BoolValue(false))
		case OpPop:
			vm.pop()

		case OpGetLocal:
			slot := vm.readByte()
			vm.push(vm.stack[vm.frame().slotsBase+int(slot)])
		case OpSetLocal:
			slot := vm.readByte()
			vm.stack[vm.frame().slotsBase+int(slot)] = vm.peek(0)

		case OpGetGlobal:
			name := vm.readConstant().asString()
			value, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}
			vm.push(value)
		case OpDefineGlobal:
			name := vm.readConstant().asString()
			vm.globals.Set(name, vm.pop())
		case OpSetGlobal:
			name := vm.readConstant().asString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}

		case OpGetUpvalue:
			slot := vm.readByte()
			vm.push(*vm.frame().closure.Upvalues[slot].Location)
		case OpSetUpvalue:
			slot := vm.readByte()
			*vm.frame().closure.Upvalues[slot].Location = vm.peek(0)

		case OpGetProperty:
			if err := vm.execGetProperty(); err != nil {
				return err
			}
		case OpSetProperty:
			if err := vm.execSetProperty(); err != nil {
				return err
			}
		case OpGetSuper:
			name := vm.readConstant().asString()
			superclass := vm.pop().Obj.(*ObjClass)
			if err := vm.bindMethod(superclass, name); err != nil {
				return err
			}

		case OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(a.Equal(b)))
		case OpGreater:
			if err := vm.greater(); err != nil {
				return err
			}
		case OpLesser:
			if err := vm.lesser(); err != nil {
				return err
			}
		case OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case OpSubtract:
			if err := vm.numericBinary(func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case OpMultiply:
			if err := vm.numericBinary(func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case OpDivide:
			if err := vm.numericBinary(func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}
		case OpNot:
			vm.push(BoolValue(vm.pop().IsFalsey()))
		case OpNegate:
			if err := vm.negate(); err != nil {
				return err
			}

		case OpPrint:
			fmt.Fprintln(vm.out, vm.pop().String())

		case OpJump:
			offset := vm.readJumpOffset()
			vm.frame().ip += offset
		case OpJumpIfFalse:
			offset := vm.readJumpOffset()
			if vm.peek(0).IsFalsey() {
				vm.frame().ip += offset
			}
		case OpLoop:
			offset := vm.readJumpOffset()
			vm.frame().ip -= offset

		case OpCall:
			argCount := int(vm.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
		case OpInvoke:
			name := vm.readConstant().asString()
			argCount := int(vm.readByte())
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
		case OpSuperInvoke:
			name := vm.readConstant().asString()
			argCount := int(vm.readByte())
			superclass := vm.pop().Obj.(*ObjClass)
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return err
			}

		case OpClosure:
			function := vm.readConstant().Obj.(*ObjFunction)
			closure := vm.newClosure(function)
			vm.push(ObjValue(closure))
			for i := 0; i < function.UpvalueCount; i++ {
				isLocal := vm.readByte()
				index := vm.readByte()
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(vm.frame().slotsBase + int(index))
				} else {
					closure.Upvalues[i] = vm.frame().closure.Upvalues[index]
				}
			}
		case OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case OpReturn:
			result := vm.pop()
			slotsBase := vm.frame().slotsBase
			vm.closeUpvalues(slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = slotsBase
			vm.push(result)

		case OpClass:
			name := vm.readConstant().asString()
			vm.push(ObjValue(vm.newClass(name)))
		case OpInherit:
			superclassVal := vm.peek(1)
			if superclassVal.Type != ValObj || superclassVal.objType() != ObjTypeClass {
				return vm.runtimeError("superclass must be a class")
			}
			superclass := superclassVal.Obj.(*ObjClass)
			subclass := vm.peek(0).Obj.(*ObjClass)
			superclass.Methods.AddAll(subclass.Methods)
			vm.pop()
		case OpMethod:
			name := vm.readConstant().asString()
			method := vm.peek(0)
			class := vm.peek(1).Obj.(*ObjClass)
			class.Methods.Set(name, method)
			vm.pop()

		default:
			return vm.runtimeError("unknown opcode %d", instruction)
		}
	}
}

func (vm *VM) execGetProperty() error {
	receiver := vm.peek(0)
	if receiver.Type != ValObj || receiver.objType() != ObjTypeInstance {
		return vm.runtimeError("only instances have properties")
	}
	instance := receiver.Obj.(*ObjInstance)
	name := vm.readConstant().asString()

	if value, ok := instance.Fields.Get(name); ok {
		vm.pop()
		vm.push(value)
		return nil
	}
	return vm.bindMethod(instance.Class, name)
}

func (vm *VM) execSetProperty() error {
	receiver := vm.peek(1)
	if receiver.Type != ValObj || receiver.objType() != ObjTypeInstance {
		return vm.runtimeError("only instances have fields")
	}
	instance := receiver.Obj.(*ObjInstance)
	name := vm.readConstant().asString()

	instance.Fields.Set(name, vm.peek(0))
	value := vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}
