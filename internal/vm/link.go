package vm

import (
	"fmt"

	"hookgen/internal/bytecode"
	"hookgen/internal/dispatch"
)

// LinkDispatch connects generated code to reg. attached is the static (I)Z
// query trampolines make before dispatching; call sites naming bootstrap
// are linked to the registry entry of their id argument.
func (m *Machine) LinkDispatch(reg *dispatch.Registry, attached, bootstrap bytecode.Handle) {
	m.RegisterNative(attached.Owner, attached.Name, attached.Desc, func(_ *Machine, args []Value) (Value, error) {
		return Bool(reg.IsAttached(int(args[0].Int))), nil
	})
	m.RegisterBootstrap(bootstrap, func(name, desc string, args []bytecode.Const) (CallSite, error) {
		if len(args) != 1 || args[0].Kind != bytecode.ConstInt {
			return nil, fmt.Errorf("call site %s: want a single int id argument", name)
		}
		site, err := reg.Link(int(args[0].Int), name)
		if err != nil {
			return nil, err
		}
		return &dispatchSite{site: site}, nil
	})
}

// dispatchSite adapts a dispatch.Site to the Object[] -> Object shape of
// trampoline call sites. Trampolines only reach their call site after the
// attached check, so a concurrent detach completes with the old handler.
type dispatchSite struct {
	site *dispatch.Site
}

func (d *dispatchSite) Call(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("%s: want one argument array, got %d values", d.site.Name(), len(args))
	}
	arr, ok := args[0].Ref.(*Array)
	if !ok {
		return Value{}, fmt.Errorf("%s: argument is not an array", d.site.Name())
	}
	in := make([]any, len(arr.Elements))
	for i, v := range arr.Elements {
		in[i] = ToGo(v)
	}
	out, err := d.site.InvokeAttached(in)
	if err != nil {
		return Value{}, err
	}
	return FromGo(out)
}
