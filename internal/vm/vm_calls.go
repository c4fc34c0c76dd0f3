package vm

// callValue dispatches a call to whatever is in callee: a closure, a
// native, a class (constructs an instance and runs `init` if present),
// or a bound method (rebinds the receiver into slot 0 of the call).
// Anything else is a runtime error (§4.5 "Call dispatch").
func (vm *VM) callValue(callee Value, argCount int) error {
	if callee.Type == ValObj {
		switch obj := callee.Obj.(type) {
		case *ObjClosure:
			return vm.callClosure(obj, argCount)
		case *ObjNative:
			return vm.callNative(obj, argCount)
		case *ObjClass:
			instance := vm.newInstance(obj)
			vm.stack[vm.stackTop-argCount-1] = ObjValue(instance)
			if initializer, ok := obj.Methods.Get(vm.initString); ok {
				return vm.callClosure(initializer.Obj.(*ObjClosure), argCount)
			}
			if argCount != 0 {
				return vm.runtimeError("expected 0 arguments but got %d", argCount)
			}
			return nil
		case *ObjBoundMethod:
			vm.stack[vm.stackTop-argCount-1] = obj.Receiver
			return vm.callClosure(obj.Method, argCount)
		}
	}
	return vm.runtimeError("can only call functions and classes")
}

// callClosure pushes a new call frame for closure, failing on arity
// mismatch or call-depth overflow (§3 invariants: FRAMES_MAX = 64).
func (vm *VM) callClosure(closure *ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("expected %d arguments but got %d", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("stack overflow")
	}

	frame := &vm.frames[vm.frameCount]
	frame.closure = closure
	frame.ip = 0
	frame.slotsBase = vm.stackTop - argCount - 1
	vm.frameCount++
	return nil
}

// callNative invokes a native function directly against the argument
// slice already sitting on the operand stack; arity is metadata only
// and is not enforced here (§4.5, §9 open question).
func (vm *VM) callNative(native *ObjNative, argCount int) error {
	args := vm.stack[vm.stackTop-argCount : vm.stackTop]
	result, err := native.Fn(vm, args)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

// bindMethod looks up name on class and, if found, pops the receiver
// and pushes a fresh bound method pairing it with the method closure.
func (vm *VM) bindMethod(class *ObjClass, name *ObjString) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("undefined property '%s'", name.Chars)
	}
	bound := vm.newBoundMethod(vm.peek(0), method.Obj.(*ObjClosure))
	vm.pop()
	vm.push(ObjValue(bound))
	return nil
}

// invoke implements OP_INVOKE's fast path: if the receiver is an
// instance with a field of this name, the field's value is called
// generically (it may be any callable); otherwise the class method is
// called directly without allocating an intermediate bound method.
func (vm *VM) invoke(name *ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	if receiver.Type != ValObj || receiver.objType() != ObjTypeInstance {
		return vm.runtimeError("only instances have methods")
	}
	instance := receiver.Obj.(*ObjInstance)

	if value, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = value
		return vm.callValue(value, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *ObjClass, name *ObjString, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("undefined property '%s'", name.Chars)
	}
	return vm.callClosure(method.Obj.(*ObjClosure), argCount)
}
