package vm

import (
	"errors"
	"fmt"
	"sync"

	"hookgen/internal/bytecode"
	"hookgen/internal/descriptor"
)

// maxFrameDepth bounds nested calls.
const maxFrameDepth = 256

// Native implements a method in Go. Instance natives receive the receiver
// as args[0]. Void natives return the zero Value.
type Native func(m *Machine, args []Value) (Value, error)

// CallSite is a linked invokedynamic instruction.
type CallSite interface {
	Call(args []Value) (Value, error)
}

// Bootstrap links an invokedynamic instruction the first time it runs.
type Bootstrap func(name, desc string, args []bytecode.Const) (CallSite, error)

// ErrNullPointer reports a member access through null.
var ErrNullPointer = errors.New("null pointer")

// ClassCastError reports a failed checkcast.
type ClassCastError struct {
	From, To string
}

func (e *ClassCastError) Error() string {
	return fmt.Sprintf("%s cannot be cast to %s", e.From, e.To)
}

type class struct {
	name    string
	super   string
	methods map[string]*bytecode.Method
}

type siteKey struct {
	method *bytecode.Method
	pc     int
}

// Machine holds loaded classes, natives and linked call sites. It is safe
// for concurrent use once classes and natives are registered.
type Machine struct {
	mu         sync.RWMutex
	classes    map[string]*class
	natives    map[string]Native
	bootstraps map[bytecode.Handle]Bootstrap
	statics    map[string]Value

	linkMu sync.Mutex
	sites  sync.Map // siteKey -> CallSite
	labels sync.Map // *bytecode.Method -> map[int]int
}

// New creates a machine with the java.lang natives generated code relies on.
func New() *Machine {
	m := &Machine{
		classes:    make(map[string]*class),
		natives:    make(map[string]Native),
		bootstraps: make(map[bytecode.Handle]Bootstrap),
		statics:    make(map[string]Value),
	}
	registerLang(m)
	return m
}

// Define loads c. A class can be defined once.
func (m *Machine) Define(c *bytecode.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[c.Name]; ok {
		return fmt.Errorf("class %s already defined", c.Name)
	}
	super := c.Super
	if super == "" && c.Name != "java/lang/Object" {
		super = "java/lang/Object"
	}
	cl := &class{name: c.Name, super: super, methods: make(map[string]*bytecode.Method)}
	for _, meth := range c.Methods {
		key := meth.Name + meth.Desc
		if _, dup := cl.methods[key]; dup {
			return fmt.Errorf("class %s: duplicate method %s", c.Name, key)
		}
		cl.methods[key] = meth
	}
	m.classes[c.Name] = cl
	return nil
}

// Weave merges the methods of mixin into the already defined target, the
// way the weaving engine copies handler methods into the class it patches.
func (m *Machine) Weave(target string, mixin *bytecode.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cl, ok := m.classes[target]
	if !ok {
		return fmt.Errorf("weave %s: target %s is not defined", mixin.Name, target)
	}
	for _, meth := range mixin.Methods {
		key := meth.Name + meth.Desc
		if _, dup := cl.methods[key]; dup {
			return fmt.Errorf("weave %s: %s already has %s", mixin.Name, target, key)
		}
	}
	for _, meth := range mixin.Methods {
		cl.methods[meth.Name+meth.Desc] = meth
	}
	return nil
}

// RegisterNative implements owner.name desc in Go.
func (m *Machine) RegisterNative(owner, name, desc string, fn Native) {
	m.mu.Lock()
	m.natives[owner+"."+name+desc] = fn
	m.mu.Unlock()
}

// RegisterBootstrap installs the linker for call sites naming h.
func (m *Machine) RegisterBootstrap(h bytecode.Handle, b Bootstrap) {
	m.mu.Lock()
	m.bootstraps[h] = b
	m.mu.Unlock()
}

// Static reads a static field.
func (m *Machine) Static(owner, name, desc string) Value {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.statics[owner+"."+name]; ok {
		return v
	}
	return Zero(desc)
}

// SetStatic stores a static field.
func (m *Machine) SetStatic(owner, name string, v Value) {
	m.mu.Lock()
	m.statics[owner+"."+name] = v
	m.mu.Unlock()
}

// Invoke calls owner.name desc. For instance methods args[0] is the
// receiver and the call dispatches on its class.
func (m *Machine) Invoke(owner, name, desc string, args ...Value) (Value, error) {
	params, _, err := descriptor.ParseMethodType(desc)
	if err != nil {
		return Value{}, err
	}
	op := bytecode.OpInvokestatic
	if len(args) == len(params)+1 {
		op = bytecode.OpInvokevirtual
	} else if len(args) != len(params) {
		return Value{}, fmt.Errorf("%s.%s%s: got %d arguments", owner, name, desc, len(args))
	}
	return m.invoke(op, owner, name, desc, args, 0)
}

// superOf returns the superclass of name, or "" at the root.
func (m *Machine) superOf(name string) string {
	if name == "java/lang/Object" {
		return ""
	}
	if s, ok := langSupers[name]; ok {
		return s
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cl, ok := m.classes[name]; ok {
		return cl.super
	}
	return "java/lang/Object"
}

// resolve walks the hierarchy from start looking for a native or a method.
func (m *Machine) resolve(start, name, desc string) (Native, *bytecode.Method) {
	for c := start; c != ""; c = m.superOf(c) {
		m.mu.RLock()
		fn := m.natives[c+"."+name+desc]
		var meth *bytecode.Method
		if cl, ok := m.classes[c]; ok {
			meth = cl.methods[name+desc]
		}
		m.mu.RUnlock()
		if fn != nil {
			return fn, nil
		}
		if meth != nil {
			return nil, meth
		}
	}
	return nil, nil
}

// runtimeClass returns the class a receiver dispatches on.
func runtimeClass(v Value) string {
	switch r := v.Ref.(type) {
	case *Object:
		return r.Class
	case *Box:
		return r.Class
	case string:
		return "java/lang/String"
	case *ClassRef:
		return "java/lang/Class"
	default:
		return "java/lang/Object"
	}
}

func (m *Machine) invoke(op bytecode.Op, owner, name, desc string, args []Value, depth int) (Value, error) {
	start := owner
	if op != bytecode.OpInvokestatic {
		recv := args[0]
		if recv.IsNull() {
			return Value{}, fmt.Errorf("invoke %s.%s%s: %w", owner, name, desc, ErrNullPointer)
		}
		if fn, ok := recv.Ref.(Lambda); ok {
			return fn(args[1:])
		}
		if op == bytecode.OpInvokevirtual || op == bytecode.OpInvokeinterface {
			start = runtimeClass(recv)
		}
	}
	fn, meth := m.resolve(start, name, desc)
	if fn == nil && meth == nil && start != owner {
		fn, meth = m.resolve(owner, name, desc)
	}
	switch {
	case fn != nil:
		return fn(m, args)
	case meth != nil:
		if meth.IsStatic() != (op == bytecode.OpInvokestatic) {
			return Value{}, fmt.Errorf("%s %s.%s%s: static mismatch", op, owner, name, desc)
		}
		return m.execute(meth, args, depth+1)
	default:
		return Value{}, fmt.Errorf("no method %s.%s%s", owner, name, desc)
	}
}

// execute runs meth with args laid out in its local slots.
func (m *Machine) execute(meth *bytecode.Method, args []Value, depth int) (ret Value, err error) {
	if depth > maxFrameDepth {
		return Value{}, fmt.Errorf("stack overflow: frame depth exceeded %d", maxFrameDepth)
	}
	params, _, err := descriptor.ParseMethodType(meth.Desc)
	if err != nil {
		return Value{}, err
	}
	f := NewFrame(meth)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s%s at %d: %v", meth.Name, meth.Desc, f.PC, r)
		}
	}()

	slot, next := 0, 0
	if !meth.IsStatic() {
		f.SetLocal(0, args[0])
		slot, next = 1, 1
	}
	if len(args)-next != len(params) {
		return Value{}, fmt.Errorf("%s%s: got %d arguments", meth.Name, meth.Desc, len(args))
	}
	for i, p := range params {
		f.SetLocal(slot, args[next+i])
		slot += descriptor.Slots(p)
	}

	labels := m.labelsOf(meth)
	for f.PC < len(meth.Code) {
		insn := &meth.Code[f.PC]
		pc := f.PC
		f.PC++
		ret, done, err := m.step(f, insn, pc, labels, depth)
		if err != nil {
			return Value{}, fmt.Errorf("%s%s at %d: %w", meth.Name, meth.Desc, pc, err)
		}
		if done {
			return ret, nil
		}
	}
	return Value{}, fmt.Errorf("%s%s: control fell off the end", meth.Name, meth.Desc)
}

func (m *Machine) labelsOf(meth *bytecode.Method) map[int]int {
	if v, ok := m.labels.Load(meth); ok {
		return v.(map[int]int)
	}
	labels := make(map[int]int)
	for pc, insn := range meth.Code {
		if insn.Op == bytecode.OpLabel {
			labels[insn.Var] = pc
		}
	}
	v, _ := m.labels.LoadOrStore(meth, labels)
	return v.(map[int]int)
}

// popArgs pops the arguments of desc, plus the receiver when withRecv.
func popArgs(f *Frame, desc string, withRecv bool) ([]Value, bool, error) {
	params, ret, err := descriptor.ParseMethodType(desc)
	if err != nil {
		return nil, false, err
	}
	n := len(params)
	if withRecv {
		n++
	}
	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = f.Pop()
	}
	return args, ret.String() == "V", nil
}

func constValue(c *bytecode.Const) (Value, error) {
	switch c.Kind {
	case bytecode.ConstInt:
		return Int(int32(c.Int)), nil
	case bytecode.ConstLong:
		return Long(c.Int), nil
	case bytecode.ConstFloat:
		return Float(float32(c.Float)), nil
	case bytecode.ConstDouble:
		return Double(c.Float), nil
	case bytecode.ConstString:
		return Ref(c.Str), nil
	case bytecode.ConstClass:
		return Ref(&ClassRef{Name: c.Str}), nil
	default:
		return Value{}, fmt.Errorf("ldc: unsupported constant kind %d", c.Kind)
	}
}

// step executes one instruction. done reports a return.
func (m *Machine) step(f *Frame, insn *bytecode.Insn, pc int, labels map[int]int, depth int) (Value, bool, error) {
	switch insn.Op {
	case bytecode.OpNop, bytecode.OpLabel:
	case bytecode.OpAconstNull:
		f.Push(Null())
	case bytecode.OpLdc:
		v, err := constValue(insn.Const)
		if err != nil {
			return Value{}, false, err
		}
		f.Push(v)
	case bytecode.OpIload, bytecode.OpLload, bytecode.OpFload, bytecode.OpDload, bytecode.OpAload:
		f.Push(f.GetLocal(insn.Var))
	case bytecode.OpAastore:
		v, idx, ref := f.Pop(), f.Pop(), f.Pop()
		arr, ok := ref.Ref.(*Array)
		if !ok {
			return Value{}, false, fmt.Errorf("aastore: %w", ErrNullPointer)
		}
		if idx.Int < 0 || idx.Int >= int64(len(arr.Elements)) {
			return Value{}, false, fmt.Errorf("aastore: index %d out of bounds for length %d", idx.Int, len(arr.Elements))
		}
		arr.Elements[idx.Int] = v
	case bytecode.OpPop:
		f.Pop()
	case bytecode.OpDup:
		f.Push(f.Peek())
	case bytecode.OpIfeq, bytecode.OpIfne, bytecode.OpGoto:
		taken := true
		if insn.Op != bytecode.OpGoto {
			v := f.Pop()
			taken = (v.Int == 0) == (insn.Op == bytecode.OpIfeq)
		}
		if taken {
			target, ok := labels[insn.Var]
			if !ok {
				return Value{}, false, fmt.Errorf("%s: unknown label %d", insn.Op, insn.Var)
			}
			f.PC = target
		}
	case bytecode.OpIreturn, bytecode.OpLreturn, bytecode.OpFreturn, bytecode.OpDreturn, bytecode.OpAreturn:
		return f.Pop(), true, nil
	case bytecode.OpReturn:
		return Value{}, true, nil
	case bytecode.OpGetstatic:
		f.Push(m.Static(insn.Owner, insn.Name, insn.Desc))
	case bytecode.OpPutstatic:
		m.SetStatic(insn.Owner, insn.Name, f.Pop())
	case bytecode.OpGetfield:
		obj, ok := f.Pop().Ref.(*Object)
		if !ok {
			return Value{}, false, fmt.Errorf("getfield %s.%s: %w", insn.Owner, insn.Name, ErrNullPointer)
		}
		f.Push(obj.Field(insn.Name, insn.Desc))
	case bytecode.OpPutfield:
		v := f.Pop()
		obj, ok := f.Pop().Ref.(*Object)
		if !ok {
			return Value{}, false, fmt.Errorf("putfield %s.%s: %w", insn.Owner, insn.Name, ErrNullPointer)
		}
		obj.SetField(insn.Name, v)
	case bytecode.OpInvokevirtual, bytecode.OpInvokespecial, bytecode.OpInvokestatic, bytecode.OpInvokeinterface:
		args, void, err := popArgs(f, insn.Desc, insn.Op != bytecode.OpInvokestatic)
		if err != nil {
			return Value{}, false, err
		}
		ret, err := m.invoke(insn.Op, insn.Owner, insn.Name, insn.Desc, args, depth)
		if err != nil {
			return Value{}, false, err
		}
		if !void {
			f.Push(ret)
		}
	case bytecode.OpInvokedynamic:
		site, err := m.link(f.Method, pc, insn)
		if err != nil {
			return Value{}, false, err
		}
		args, void, err := popArgs(f, insn.Desc, false)
		if err != nil {
			return Value{}, false, err
		}
		ret, err := site.Call(args)
		if err != nil {
			return Value{}, false, fmt.Errorf("invokedynamic %s: %w", insn.Name, err)
		}
		if !void {
			f.Push(ret)
		}
	case bytecode.OpNew:
		f.Push(Ref(NewObject(insn.Owner)))
	case bytecode.OpAnewarray:
		n := f.Pop()
		if n.Int < 0 {
			return Value{}, false, fmt.Errorf("anewarray: negative size %d", n.Int)
		}
		elems := make([]Value, n.Int)
		for i := range elems {
			elems[i] = Null()
		}
		f.Push(Ref(&Array{Elem: insn.Owner, Elements: elems}))
	case bytecode.OpCheckcast:
		v := f.Peek()
		if !m.IsInstance(v, insn.Owner) {
			return Value{}, false, &ClassCastError{From: runtimeClass(v), To: insn.Owner}
		}
	case bytecode.OpInstanceof:
		v := f.Pop()
		f.Push(Bool(!v.IsNull() && m.IsInstance(v, insn.Owner)))
	default:
		return Value{}, false, fmt.Errorf("unsupported opcode %s", insn.Op)
	}
	return Value{}, false, nil
}

// link returns the call site of the invokedynamic at pc, bootstrapping it
// on first use.
func (m *Machine) link(meth *bytecode.Method, pc int, insn *bytecode.Insn) (CallSite, error) {
	key := siteKey{method: meth, pc: pc}
	if s, ok := m.sites.Load(key); ok {
		return s.(CallSite), nil
	}
	m.linkMu.Lock()
	defer m.linkMu.Unlock()
	if s, ok := m.sites.Load(key); ok {
		return s.(CallSite), nil
	}
	if insn.Bootstrap == nil {
		return nil, fmt.Errorf("invokedynamic %s: no bootstrap method", insn.Name)
	}
	m.mu.RLock()
	bsm := m.bootstraps[*insn.Bootstrap]
	m.mu.RUnlock()
	if bsm == nil {
		return nil, fmt.Errorf("invokedynamic %s: unknown bootstrap %s.%s", insn.Name, insn.Bootstrap.Owner, insn.Bootstrap.Name)
	}
	site, err := bsm(insn.Name, insn.Desc, insn.BootstrapArgs)
	if err != nil {
		return nil, fmt.Errorf("bootstrap %s: %w", insn.Name, err)
	}
	m.sites.Store(key, site)
	return site, nil
}

// IsInstance reports whether v can be cast to class, an internal name or an
// array descriptor. Null casts to anything; host lambdas implement every
// interface.
func (m *Machine) IsInstance(v Value, class string) bool {
	if v.IsNull() || class == "java/lang/Object" {
		return true
	}
	switch v.Ref.(type) {
	case *Array:
		return len(class) > 0 && class[0] == '['
	case Lambda:
		return true
	}
	for c := runtimeClass(v); c != ""; c = m.superOf(c) {
		if c == class {
			return true
		}
	}
	return false
}
