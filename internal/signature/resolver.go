package signature

import (
	"fmt"
	"strings"

	"hookgen/internal/classpath"
	"hookgen/internal/descriptor"
	"hookgen/internal/directive"
	"hookgen/internal/mapping"
)

// Param is one trampoline parameter. Local is set for captured locals.
type Param struct {
	Type  descriptor.Type
	Local *directive.Local
}

// ABIType is the type the parameter has in the emitted method: a mutable
// captured local is passed as a reference cell.
func (p Param) ABIType() descriptor.Type {
	if p.Local != nil && p.Local.IsMutable() {
		return RefCell(p.Type)
	}
	return p.Type
}

// Op is the operation an injection point intercepts, with its member names
// already translated to the runtime scheme.
type Op struct {
	Kind      directive.TargetKind
	Owner     string // runtime internal name
	Name      string // runtime member name, "<init>" for NEW
	Desc      string // runtime method type or field type
	Static    bool
	Interface bool
	Get       bool

	// Logical types.
	Receiver descriptor.Type
	Type     descriptor.Type // field type or constructed type
	Params   []descriptor.Type
	Return   descriptor.Type
}

// Operands lists the values the operation consumes, receiver first.
func (o *Op) Operands() []descriptor.Type {
	var out []descriptor.Type
	switch o.Kind {
	case directive.TargetInvoke:
		if !o.Static {
			out = append(out, o.Receiver)
		}
		out = append(out, o.Params...)
	case directive.TargetField:
		if !o.Static {
			out = append(out, o.Receiver)
		}
		if !o.Get {
			out = append(out, o.Type)
		}
	case directive.TargetNew:
		out = append(out, o.Params...)
	}
	return out
}

// Result is the type the operation leaves on the stack.
func (o *Op) Result() descriptor.Type {
	switch o.Kind {
	case directive.TargetInvoke:
		return o.Return
	case directive.TargetField:
		if o.Get {
			return o.Type
		}
		return descriptor.Void
	case directive.TargetNew:
		return o.Type
	default:
		return descriptor.Boolean
	}
}

// Signature is the computed calling convention of one trampoline.
type Signature struct {
	Directive *directive.Directive
	Target    *mapping.Method
	Runtime   *classpath.Method
	Params    []Param
	Return    descriptor.Type
	// Static mirrors the target method; the trampoline is injected into the
	// target class and must share its staticness.
	Static bool
	// Op is set for redirect, wrapOperation and wrapWithCondition.
	Op *Op
	// Variable is the resolved modifyVariable local.
	Variable *directive.Local
}

// ABITypes returns the emitted parameter types.
func (s *Signature) ABITypes() []descriptor.Type {
	out := make([]descriptor.Type, len(s.Params))
	for i, p := range s.Params {
		out[i] = p.ABIType()
	}
	return out
}

// String renders the logical method type, e.g. "(Lx/Args;I)V".
func (s *Signature) String() string {
	var sb strings.Builder
	if s.Static {
		sb.WriteString("static ")
	}
	sb.WriteString(descriptor.MethodType(s.ABITypes(), s.Return))
	return sb.String()
}

// Resolver computes signatures against a mapping table.
type Resolver struct {
	table *mapping.Table
}

// NewResolver creates a resolver backed by table.
func NewResolver(table *mapping.Table) *Resolver {
	return &Resolver{table: table}
}

// Resolve computes the signature of d applied to class.
func (r *Resolver) Resolve(class *mapping.Class, d *directive.Directive) (*Signature, error) {
	ref, err := descriptor.ParseMethod(d.Method, false)
	if err != nil {
		return nil, err
	}
	target, runtime, err := r.table.FindMethod(class, ref)
	if err != nil {
		return nil, err
	}
	s := &Signature{Directive: d, Target: target, Runtime: runtime, Static: runtime.IsStatic()}

	switch d.Kind {
	case directive.KindInject:
		err = r.inject(s)
	case directive.KindRedirect:
		err = r.redirect(s)
	case directive.KindModifyArg:
		err = r.modifyArg(s)
	case directive.KindModifyArgs:
		s.Params = []Param{{Type: Args}}
		s.Return = descriptor.Void
	case directive.KindModifyConstant:
		err = r.modifyConstant(s)
	case directive.KindModifyExpressionValue:
		err = r.modifyExpressionValue(s)
	case directive.KindModifyReceiver:
		err = r.modifyReceiver(s)
	case directive.KindModifyReturnValue:
		err = r.modifyReturnValue(s)
	case directive.KindModifyVariable:
		err = r.modifyVariable(s)
	case directive.KindWrapOperation:
		err = r.wrapOperation(s)
	case directive.KindWrapWithCondition:
		err = r.wrapWithCondition(s)
	default:
		err = fmt.Errorf("unknown directive kind %s", d.Kind)
	}
	if err != nil {
		return nil, err
	}

	for i := range d.Locals {
		l, t, err := r.local(s, d.Locals[i], "Local")
		if err != nil {
			return nil, err
		}
		s.Params = append(s.Params, Param{Type: t, Local: &l})
	}
	return s, nil
}

func fail(d *directive.Directive, kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Directive: d.Describe(), Msg: fmt.Sprintf(format, args...)}
}

func (r *Resolver) at(s *Signature) (*directive.AtTarget, error) {
	at := s.Directive.SingleAt()
	if at == nil {
		return nil, fail(s.Directive, ErrInvalidLocationForKind, "an injection point is required")
	}
	t, err := at.ParseTarget()
	if err != nil {
		return nil, &Error{Kind: ErrInvalidLocationForKind, Directive: s.Directive.Describe(), Msg: "invalid injection point", Err: err}
	}
	return t, nil
}

func (r *Resolver) inject(s *Signature) error {
	ret, err := s.Target.ReturnType()
	if err != nil {
		return err
	}
	token := CallbackInfoReturnable
	if ret == descriptor.Void {
		token = CallbackInfo
	}
	s.Params = []Param{{Type: token}}
	s.Return = descriptor.Void
	return nil
}

func (r *Resolver) redirect(s *Signature) error {
	at, err := r.at(s)
	if err != nil {
		return err
	}
	switch at.Kind {
	case directive.TargetInvoke, directive.TargetNew, directive.TargetField:
	default:
		return fail(s.Directive, ErrInvalidLocationForKind, "redirect cannot target %s", at.Kind)
	}
	op, err := r.op(s.Directive, at)
	if err != nil {
		return err
	}
	s.Op = op
	s.Params = params(op.Operands())
	s.Return = op.Result()
	return nil
}

func (r *Resolver) modifyArg(s *Signature) error {
	at, err := r.at(s)
	if err != nil {
		return err
	}
	if at.Kind != directive.TargetInvoke {
		return fail(s.Directive, ErrInvalidLocationForKind, "modifyArg expects an INVOKE injection point, got %s", at.Kind)
	}
	callParams := at.Method.Params
	if s.Directive.Index == nil {
		return fail(s.Directive, ErrOutOfBoundsIndex, "modifyArg requires an argument index")
	}
	index := *s.Directive.Index
	if index < 0 || index >= len(callParams) {
		return fail(s.Directive, ErrOutOfBoundsIndex, "modifyArg received an out-of-bounds index %d for %s", index, at.Method)
	}
	if s.Directive.CaptureAllParams != nil && *s.Directive.CaptureAllParams {
		s.Params = params(callParams)
	} else {
		s.Params = []Param{{Type: callParams[index]}}
	}
	s.Return = callParams[index]
	return nil
}

func (r *Resolver) modifyConstant(s *Signature) error {
	if s.Directive.Constant == nil {
		return fail(s.Directive, ErrInvalidLocationForKind, "modifyConstant requires a constant")
	}
	t, err := s.Directive.Constant.Type()
	if err != nil {
		return &Error{Kind: ErrInvalidLocationForKind, Directive: s.Directive.Describe(), Msg: "invalid constant", Err: err}
	}
	s.Params = []Param{{Type: t}}
	s.Return = t
	return nil
}

func (r *Resolver) modifyExpressionValue(s *Signature) error {
	at, err := r.at(s)
	if err != nil {
		return err
	}
	var t descriptor.Type
	switch at.Kind {
	case directive.TargetInvoke:
		t = at.Method.Return
	case directive.TargetField:
		t = at.Field.Type
	case directive.TargetNew:
		t = at.New.Type
	case directive.TargetConstant:
		t = at.ConstType
	default:
		return fail(s.Directive, ErrInvalidLocationForKind, "modifyExpressionValue cannot target %s", at.Kind)
	}
	if t == descriptor.Void {
		return fail(s.Directive, ErrVoidReturnIncompatible, "modifyExpressionValue cannot target a void method")
	}
	s.Params = []Param{{Type: t}}
	s.Return = t
	return nil
}

func (r *Resolver) modifyReceiver(s *Signature) error {
	at, err := r.at(s)
	if err != nil {
		return err
	}
	var owner descriptor.Object
	switch at.Kind {
	case directive.TargetInvoke:
		op, err := r.op(s.Directive, at)
		if err != nil {
			return err
		}
		if op.Static {
			return fail(s.Directive, ErrInvalidLocationForKind, "modifyReceiver targeting INVOKE expects a non-static call, %s is static", at.Method)
		}
		owner = *at.Method.Owner
		s.Params = append([]Param{{Type: owner}}, params(at.Method.Params)...)
	case directive.TargetField:
		if !at.HasOpcode {
			return fail(s.Directive, ErrMissingOpcode, "modifyReceiver targeting FIELD expects an opcode value")
		}
		if at.IsStatic {
			return fail(s.Directive, ErrInvalidLocationForKind, "modifyReceiver targeting FIELD expects a non-static field access")
		}
		owner = *at.Field.Owner
		s.Params = []Param{{Type: owner}}
		if !at.IsGet {
			s.Params = append(s.Params, Param{Type: at.Field.Type})
		}
	default:
		return fail(s.Directive, ErrInvalidLocationForKind, "modifyReceiver cannot target %s", at.Kind)
	}
	s.Return = owner
	return nil
}

func (r *Resolver) modifyReturnValue(s *Signature) error {
	ret, err := s.Target.ReturnType()
	if err != nil {
		return err
	}
	if ret == descriptor.Void {
		return fail(s.Directive, ErrVoidReturnIncompatible, "modifyReturnValue cannot target a void method")
	}
	s.Params = []Param{{Type: ret}}
	s.Return = ret
	return nil
}

func (r *Resolver) modifyVariable(s *Signature) error {
	if s.Directive.Variable == nil {
		return fail(s.Directive, ErrInvalidLocal, "modifyVariable must specify print, or type and either ordinal or index")
	}
	l, t, err := r.local(s, *s.Directive.Variable, "ModifyVariable")
	if err != nil {
		return err
	}
	s.Variable = &l
	s.Params = []Param{{Type: t}}
	s.Return = t
	return nil
}

func (r *Resolver) wrapOperation(s *Signature) error {
	if len(s.Directive.At) == 0 {
		c := s.Directive.Constant
		if c == nil || c.ClassValue == nil {
			return fail(s.Directive, ErrInvalidLocationForKind, "wrapOperation targeting INSTANCEOF must specify constant.classValue")
		}
		s.Op = &Op{Kind: directive.TargetConstant, Type: descriptor.ObjectOf(*c.ClassValue)}
		s.Params = []Param{{Type: Object}, {Type: Operation}}
		s.Return = descriptor.Boolean
		return nil
	}
	at, err := r.at(s)
	if err != nil {
		return err
	}
	switch at.Kind {
	case directive.TargetInvoke, directive.TargetNew, directive.TargetField:
	default:
		return fail(s.Directive, ErrInvalidLocationForKind, "wrapOperation cannot target %s", at.Kind)
	}
	op, err := r.op(s.Directive, at)
	if err != nil {
		return err
	}
	s.Op = op
	s.Params = append(params(op.Operands()), Param{Type: Operation})
	s.Return = op.Result()
	return nil
}

func (r *Resolver) wrapWithCondition(s *Signature) error {
	at, err := r.at(s)
	if err != nil {
		return err
	}
	switch at.Kind {
	case directive.TargetInvoke:
	case directive.TargetField:
		if at.HasOpcode && at.IsGet {
			return fail(s.Directive, ErrInvalidLocationForKind, "wrapWithCondition targeting FIELD expects opcode to be PUTFIELD or PUTSTATIC")
		}
	default:
		return fail(s.Directive, ErrInvalidLocationForKind, "wrapWithCondition cannot target %s", at.Kind)
	}
	op, err := r.op(s.Directive, at)
	if err != nil {
		return err
	}
	s.Op = op
	s.Params = params(op.Operands())
	s.Return = descriptor.Boolean
	return nil
}

// op resolves the intercepted operation. FIELD targets need an opcode so
// that the access direction and staticness are known.
func (r *Resolver) op(d *directive.Directive, at *directive.AtTarget) (*Op, error) {
	switch at.Kind {
	case directive.TargetInvoke:
		m := at.Method
		owner, err := r.ownerClass(m.Owner.InternalName())
		if err != nil {
			return nil, err
		}
		found, rm, err := r.table.FindMethod(owner, m)
		if err != nil {
			return nil, err
		}
		op := &Op{
			Kind:     directive.TargetInvoke,
			Owner:    owner.Name.Runtime,
			Name:     found.Name.Runtime,
			Desc:     found.RuntimeDesc(),
			Static:   rm.IsStatic(),
			Receiver: *m.Owner,
			Params:   m.Params,
			Return:   m.Return,
		}
		if info, ok := r.table.Hierarchy().Lookup(owner.Name.Runtime); ok {
			op.Interface = info.Access.Has(classpath.AccInterface)
		}
		return op, nil
	case directive.TargetField:
		if !at.HasOpcode {
			return nil, fail(d, ErrMissingOpcode, "%s targeting FIELD expects an opcode value", d.Kind)
		}
		f := at.Field
		owner, err := r.table.ClassName(f.Owner.InternalName())
		if err != nil {
			return nil, err
		}
		desc, err := f.Type.Mapped(r.table)
		if err != nil {
			return nil, err
		}
		return &Op{
			Kind:     directive.TargetField,
			Owner:    owner,
			Name:     r.table.FieldName(f.Owner.InternalName(), f.Name),
			Desc:     desc,
			Static:   at.IsStatic,
			Get:      at.IsGet,
			Receiver: *f.Owner,
			Type:     f.Type,
		}, nil
	case directive.TargetNew:
		c := at.New
		owner, err := r.table.ClassName(c.Type.InternalName())
		if err != nil {
			return nil, err
		}
		desc, err := descriptor.MappedMethodType(r.table, c.Params, descriptor.Void)
		if err != nil {
			return nil, err
		}
		return &Op{
			Kind:   directive.TargetNew,
			Owner:  owner,
			Name:   "<init>",
			Desc:   desc,
			Static: true,
			Type:   c.Type,
			Params: c.Params,
			Return: c.Type,
		}, nil
	default:
		return nil, fail(d, ErrInvalidLocationForKind, "%s has no operation to intercept", at.Kind)
	}
}

// ownerClass finds the class declaring an invoked method. Classes outside
// the mapped packages may be absent from the table and are read from the
// runtime classpath instead.
func (r *Resolver) ownerClass(name string) (*mapping.Class, error) {
	if c, ok := r.table.Lookup(name); ok {
		return c, nil
	}
	if r.table.InMappedPackage(name) {
		return r.table.ResolveClass(name)
	}
	return r.table.UnmappedClass(name)
}

// local types a captured local. A (type, ordinal) pair is turned into an
// absolute index when the target's local layout is known.
func (r *Resolver) local(s *Signature, l directive.Local, name string) (directive.Local, descriptor.Type, error) {
	t, err := directive.LocalType(l, name)
	if err != nil {
		return l, nil, &Error{Kind: ErrInvalidLocal, Directive: s.Directive.Describe(), Msg: "invalid local", Err: err}
	}
	if l.IsPrint() || l.Index != nil || l.Ordinal == nil {
		return l, t, nil
	}
	mapped, err := t.Mapped(r.table)
	if err != nil {
		return l, nil, &Error{Kind: ErrInvalidLocal, Directive: s.Directive.Describe(), Msg: "invalid local type", Err: err}
	}
	rt, err := descriptor.ParseType(mapped)
	if err != nil {
		return l, nil, err
	}
	slot, ok, err := s.Runtime.LocalByOrdinal(rt, *l.Ordinal)
	if err != nil {
		return l, nil, &Error{Kind: ErrInvalidLocal, Directive: s.Directive.Describe(), Msg: "unreadable local layout", Err: err}
	}
	if !ok {
		if len(s.Runtime.Locals) > 0 {
			return l, nil, fail(s.Directive, ErrInvalidLocal, "%s %s: no local of type %s with ordinal %d", s.Target.Owner.Name.Logical, s.Target.Name.Logical, t, *l.Ordinal)
		}
		// Layout unknown past the parameters; the engine resolves the ordinal.
		return l, t, nil
	}
	index := slot.Index
	l.Index = &index
	l.Ordinal = nil
	return l, t, nil
}

func params(types []descriptor.Type) []Param {
	out := make([]Param, len(types))
	for i, t := range types {
		out[i] = Param{Type: t}
	}
	return out
}
