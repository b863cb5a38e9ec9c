package trampoline

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"hookgen/internal/bytecode"
	"hookgen/internal/classpath"
	"hookgen/internal/descriptor"
	"hookgen/internal/directive"
	"hookgen/internal/mapping"
	"hookgen/internal/signature"
)

// Trampoline is one synthesized method together with the names it was
// given.
type Trampoline struct {
	ID        int
	Signature *signature.Signature
	Method    *bytecode.Method
	// IndyName names the dispatch call site.
	IndyName string
}

// Synthesizer emits trampolines. Its counters make method and call site
// names unique across one generation run, so use a single Synthesizer per
// run.
type Synthesizer struct {
	table   *mapping.Table
	ann     *Annotator
	rt      Runtime
	modID   string
	methods int
	sites   int
}

// NewSynthesizer creates a synthesizer. modID prefixes every method name.
func NewSynthesizer(table *mapping.Table, modID string, rt Runtime) *Synthesizer {
	return &Synthesizer{
		table: table,
		ann:   NewAnnotator(table),
		rt:    rt,
		modID: modID,
	}
}

// Annotator exposes the annotator used for directive metadata.
func (s *Synthesizer) Annotator() *Annotator { return s.ann }

// MethodName builds the trampoline name for a directive of kind targeting
// the logical method name. Angle brackets of constructors become '$'.
func MethodName(modID string, kind directive.Kind, target string, counter int) string {
	return fmt.Sprintf("%s_%s_%s_%d", modID, kind, injectionName(target), counter)
}

// IndyName builds the name of a dispatch call site.
func IndyName(target string, kind directive.Kind, counter int) string {
	return fmt.Sprintf("invokeDynamic_%s_%s_%d", injectionName(target), kind, counter)
}

func injectionName(name string) string {
	return strings.NewReplacer("<", "$", ">", "$").Replace(name)
}

// emitter carries the state of one method body.
type emitter struct {
	b     *bytecode.Builder
	sig   *signature.Signature
	abi   []descriptor.Type
	slots []int
}

// Synthesize emits the trampoline of directive id.
func (s *Synthesizer) Synthesize(id int, sig *signature.Signature) (*Trampoline, error) {
	d := sig.Directive
	ldcID, err := safecast.Conv[int32](id)
	if err != nil {
		return nil, fmt.Errorf("%s: directive id %d: %w", d.Describe(), id, err)
	}
	abi := sig.ABITypes()
	desc, err := descriptor.MappedMethodType(s.table, abi, sig.Return)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Describe(), err)
	}
	ret, err := sig.Return.Mapped(s.table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Describe(), err)
	}

	access := classpath.AccPrivate
	if sig.Static {
		access |= classpath.AccStatic
	}
	name := MethodName(s.modID, d.Kind, sig.Target.Name.Logical, s.methods)
	s.methods++

	e := &emitter{
		b:     bytecode.NewMethod(access, name, desc),
		sig:   sig,
		abi:   abi,
		slots: paramSlots(abi, sig.Static),
	}
	b := e.b

	attached := b.NewLabel()
	b.LdcInt(int(ldcID))
	b.Invoke(bytecode.OpInvokestatic, s.rt.Attached.Owner, s.rt.Attached.Name, s.rt.Attached.Desc, false)
	b.Jump(bytecode.OpIfne, attached)
	if err := s.notAttached(e, ret); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Describe(), err)
	}
	e.returnValue(ret)
	b.Mark(attached)

	receiver := 0
	if !sig.Static {
		receiver = 1
	}
	b.LdcInt(len(abi) + receiver)
	b.TypeInsn(bytecode.OpAnewarray, "java/lang/Object")
	if !sig.Static {
		b.Op(bytecode.OpDup).LdcInt(0).Load("Ljava/lang/Object;", 0).Op(bytecode.OpAastore)
	}
	for i := range abi {
		b.Op(bytecode.OpDup).LdcInt(i + receiver)
		e.load(i)
		b.Box(abi[i].String())
		b.Op(bytecode.OpAastore)
	}

	indy := IndyName(sig.Target.Name.Logical, d.Kind, s.sites)
	s.sites++
	b.InvokeDynamic(indy, DispatchDesc, s.rt.Bootstrap, bytecode.Const{Kind: bytecode.ConstInt, Int: int64(ldcID)})
	b.Unbox(ret)
	e.returnValue(ret)

	m, err := b.Finish()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Describe(), err)
	}
	ann, err := s.ann.Directive(sig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Describe(), err)
	}
	m.Annotations = append(m.Annotations, ann)
	m.ParamAnnotations = s.ann.Locals(sig)
	return &Trampoline{ID: id, Signature: sig, Method: m, IndyName: indy}, nil
}

func paramSlots(abi []descriptor.Type, static bool) []int {
	slots := make([]int, len(abi))
	next := 0
	if !static {
		next = 1
	}
	for i, t := range abi {
		slots[i] = next
		next += descriptor.Slots(t)
	}
	return slots
}

func (e *emitter) load(i int) {
	e.b.Load(e.abi[i].String(), e.slots[i])
}

// returnValue returns the value on top of the stack. Void trampolines
// always hold one value there, which is dropped.
func (e *emitter) returnValue(ret string) {
	if ret == "V" {
		e.b.Op(bytecode.OpPop)
	}
	e.b.Return(ret)
}

// notAttached emits the body that runs while no handler is attached. It
// leaves exactly one value of the return type on the stack, or one
// placeholder for void trampolines.
func (s *Synthesizer) notAttached(e *emitter, ret string) error {
	d := e.sig.Directive
	switch d.Kind {
	case directive.KindInject, directive.KindModifyArgs:
		e.b.Op(bytecode.OpAconstNull)
	case directive.KindModifyArg:
		index := 0
		if d.CaptureAllParams != nil && *d.CaptureAllParams && d.Index != nil {
			index = *d.Index
		}
		e.load(index)
	case directive.KindModifyConstant, directive.KindModifyExpressionValue, directive.KindModifyReceiver,
		directive.KindModifyReturnValue, directive.KindModifyVariable:
		e.load(0)
	case directive.KindWrapWithCondition:
		e.b.LdcInt(1)
	case directive.KindRedirect:
		return s.original(e)
	case directive.KindWrapOperation:
		s.callOperation(e, ret)
	default:
		return fmt.Errorf("no default behavior for kind %s", d.Kind)
	}
	return nil
}

// original performs the intercepted operation on the trampoline's own
// parameters.
func (s *Synthesizer) original(e *emitter) error {
	op := e.sig.Op
	if op == nil {
		return fmt.Errorf("redirect without a resolved operation")
	}
	b := e.b
	n := len(op.Operands())
	switch op.Kind {
	case directive.TargetField:
		for i := 0; i < n; i++ {
			e.load(i)
		}
		var code bytecode.Op
		switch {
		case op.Get && op.Static:
			code = bytecode.OpGetstatic
		case op.Get:
			code = bytecode.OpGetfield
		case op.Static:
			code = bytecode.OpPutstatic
		default:
			code = bytecode.OpPutfield
		}
		b.Field(code, op.Owner, op.Name, op.Desc)
		if !op.Get {
			b.Op(bytecode.OpAconstNull)
		}
	case directive.TargetInvoke:
		for i := 0; i < n; i++ {
			e.load(i)
		}
		code := bytecode.OpInvokevirtual
		switch {
		case op.Static:
			code = bytecode.OpInvokestatic
		case op.Interface:
			code = bytecode.OpInvokeinterface
		}
		b.Invoke(code, op.Owner, op.Name, op.Desc, op.Interface)
		if op.Return == descriptor.Void {
			b.Op(bytecode.OpAconstNull)
		}
	case directive.TargetNew:
		b.TypeInsn(bytecode.OpNew, op.Owner)
		b.Op(bytecode.OpDup)
		for i := 0; i < n; i++ {
			e.load(i)
		}
		b.Invoke(bytecode.OpInvokespecial, op.Owner, "<init>", op.Desc, false)
	default:
		return fmt.Errorf("redirect cannot perform a %s operation", op.Kind)
	}
	return nil
}

// callOperation hands the operands to the Operation parameter, which runs
// the original operation, and unboxes its result.
func (s *Synthesizer) callOperation(e *emitter, ret string) {
	b := e.b
	opIndex := len(e.sig.Params) - 1
	for i, p := range e.sig.Params {
		if p.Local == nil && p.Type == signature.Operation {
			opIndex = i
			break
		}
	}
	e.load(opIndex)
	b.LdcInt(opIndex)
	b.TypeInsn(bytecode.OpAnewarray, "java/lang/Object")
	for i := 0; i < opIndex; i++ {
		b.Op(bytecode.OpDup).LdcInt(i)
		e.load(i)
		b.Box(e.abi[i].String())
		b.Op(bytecode.OpAastore)
	}
	b.Invoke(bytecode.OpInvokeinterface, OperationCall.Owner, OperationCall.Name, OperationCall.Desc, true)
	b.Unbox(ret)
}
