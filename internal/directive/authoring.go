package directive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Authoring files describe mixins in TOML:
//
//	[[mixin]]
//	target = "net/minecraft/client/MinecraftClient"
//	priority = 1000
//
//	[[mixin.widen]]
//	field = "itemUseCooldown"
//	mutable = true
//
//	[[mixin.injector]]
//	kind = "inject"
//	method = "tick()V"
//	at = [{ value = "HEAD" }]
//	locals = [{ type = "I", ordinal = 0 }]

type fileModel struct {
	Mixins []mixinModel `toml:"mixin"`
}

type mixinModel struct {
	Target    string          `toml:"target"`
	Priority  *int            `toml:"priority"`
	Remap     *bool           `toml:"remap"`
	Widen     []widenModel    `toml:"widen"`
	Injectors []injectorModel `toml:"injector"`
}

type widenModel struct {
	Field   string `toml:"field"`
	Method  string `toml:"method"`
	Mutable bool   `toml:"mutable"`
}

type injectorModel struct {
	Kind        string  `toml:"kind"`
	Method      string  `toml:"method"`
	ID          *string `toml:"id"`
	Remap       *bool   `toml:"remap"`
	Require     *int    `toml:"require"`
	Expect      *int    `toml:"expect"`
	Allow       *int    `toml:"allow"`
	Constraints *string `toml:"constraints"`

	At     []atModel    `toml:"at"`
	Slice  []sliceModel `toml:"slice"`
	Locals []localModel `toml:"locals"`
	Const  *constModel  `toml:"constant"`

	Cancellable      *bool `toml:"cancellable"`
	Index            *int  `toml:"index"`
	CaptureAllParams *bool `toml:"captureAllParams"`

	Print   *bool   `toml:"print"`
	Ordinal *int    `toml:"ordinal"`
	Type    *string `toml:"type"`
}

type atModel struct {
	Value   string   `toml:"value"`
	ID      *string  `toml:"id"`
	Slice   *string  `toml:"slice"`
	Shift   *string  `toml:"shift"`
	By      *int     `toml:"by"`
	Args    []string `toml:"args"`
	Target  *string  `toml:"target"`
	Ordinal *int     `toml:"ordinal"`
	Opcode  any      `toml:"opcode"`
	Remap   *bool    `toml:"remap"`
}

type sliceModel struct {
	ID   *string  `toml:"id"`
	From *atModel `toml:"from"`
	To   *atModel `toml:"to"`
}

type localModel struct {
	Print   *bool   `toml:"print"`
	Index   *int    `toml:"index"`
	Ordinal *int    `toml:"ordinal"`
	Type    *string `toml:"type"`
	Mutable *bool   `toml:"mutable"`
}

type constModel struct {
	NullValue            *bool    `toml:"nullValue"`
	IntValue             *int32   `toml:"intValue"`
	FloatValue           *float32 `toml:"floatValue"`
	LongValue            *int64   `toml:"longValue"`
	DoubleValue          *float64 `toml:"doubleValue"`
	StringValue          *string  `toml:"stringValue"`
	ClassValue           *string  `toml:"classValue"`
	Ordinal              *int     `toml:"ordinal"`
	Slice                *string  `toml:"slice"`
	ExpandZeroConditions []string `toml:"expandZeroConditions"`
	Log                  *bool    `toml:"log"`
}

var opcodeNames = map[string]int{
	"GETSTATIC": OpGetStatic,
	"PUTSTATIC": OpPutStatic,
	"GETFIELD":  OpGetField,
	"PUTFIELD":  OpPutField,
}

// SourceError locates an authoring problem. Index is -1 for problems with
// the mixin header or its wideners.
type SourceError struct {
	Source string
	Mixin  int
	Index  int
	Err    error
}

func (e *SourceError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: mixin #%d: %v", e.Source, e.Mixin+1, e.Err)
	}
	return fmt.Sprintf("%s: mixin #%d injector #%d: %v", e.Source, e.Mixin+1, e.Index+1, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// LoadErrors collects every authoring problem of a load.
type LoadErrors []*SourceError

func (e LoadErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d directive errors:", len(e))
	for _, err := range e {
		sb.WriteString("\n  ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// LoadFiles expands the glob patterns and loads every matching file in
// sorted order. Patterns are relative to root.
func LoadFiles(root string, patterns []string) ([]*Group, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(root, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad directive pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)

	var (
		groups []*Group
		errs   LoadErrors
	)
	for _, path := range files {
		gs, err := LoadFile(path)
		if err != nil {
			var le LoadErrors
			if errors.As(err, &le) {
				errs = append(errs, le...)
				groups = append(groups, gs...)
				continue
			}
			return nil, err
		}
		groups = append(groups, gs...)
	}
	if len(errs) > 0 {
		return groups, errs
	}
	return groups, nil
}

// LoadFile reads one authoring file.
func LoadFile(path string) ([]*Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directives %q: %w", path, err)
	}
	return Parse(path, string(data))
}

// Parse decodes authoring text. Structurally valid groups are returned even
// when some directives fail validation; the failures come back as
// LoadErrors.
func Parse(source, text string) ([]*Group, error) {
	var model fileModel
	meta, err := toml.Decode(text, &model)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", source, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", source, undecoded[0].String())
	}

	var errs LoadErrors
	groups := make([]*Group, 0, len(model.Mixins))
	for mi, mm := range model.Mixins {
		g := &Group{
			Mixin:  Mixin{Target: strings.TrimSpace(mm.Target), Priority: mm.Priority, Remap: mm.Remap},
			Source: source,
		}
		if err := ValidateMixin(g.Mixin); err != nil {
			errs = append(errs, &SourceError{Source: source, Mixin: mi, Index: -1, Err: err})
			continue
		}
		for _, w := range mm.Widen {
			wd, err := buildWidener(w)
			if err != nil {
				errs = append(errs, &SourceError{Source: source, Mixin: mi, Index: -1, Err: err})
				continue
			}
			g.Wideners = append(g.Wideners, wd)
		}
		for ii, im := range mm.Injectors {
			d, err := buildDirective(im)
			if err == nil {
				err = Validate(d)
			}
			if err != nil {
				errs = append(errs, &SourceError{Source: source, Mixin: mi, Index: ii, Err: err})
				continue
			}
			g.Directives = append(g.Directives, d)
		}
		groups = append(groups, g)
	}
	if len(errs) > 0 {
		return groups, errs
	}
	return groups, nil
}

func buildWidener(w widenModel) (Widener, error) {
	switch {
	case w.Field != "" && w.Method != "":
		return Widener{}, &ValidationError{Field: "widen", Msg: "set either field or method, not both"}
	case w.Field != "":
		return Widener{Member: w.Field, Field: true, Mutable: w.Mutable}, nil
	case w.Method != "":
		return Widener{Member: w.Method, Mutable: w.Mutable}, nil
	default:
		return Widener{}, &ValidationError{Field: "widen", Msg: "field or method is required"}
	}
}

func buildDirective(im injectorModel) (*Directive, error) {
	kind, ok := ParseKind(im.Kind)
	if !ok {
		return nil, &ValidationError{Field: "kind", Msg: fmt.Sprintf("unknown directive kind %q", im.Kind)}
	}
	d := &Directive{
		Kind:   kind,
		Method: strings.TrimSpace(im.Method),
		Common: Common{
			ID:          im.ID,
			Remap:       im.Remap,
			Require:     im.Require,
			Expect:      im.Expect,
			Allow:       im.Allow,
			Constraints: im.Constraints,
		},
		Cancellable:      im.Cancellable,
		CaptureAllParams: im.CaptureAllParams,
	}
	for _, am := range im.At {
		at, err := buildAt(kind, am)
		if err != nil {
			return nil, err
		}
		d.At = append(d.At, at)
	}
	for _, sm := range im.Slice {
		s := Slice{ID: sm.ID}
		if sm.From != nil {
			from, err := buildAt(kind, *sm.From)
			if err != nil {
				return nil, err
			}
			s.From = &from
		}
		if sm.To != nil {
			to, err := buildAt(kind, *sm.To)
			if err != nil {
				return nil, err
			}
			s.To = &to
		}
		d.Slice = append(d.Slice, s)
	}
	for _, lm := range im.Locals {
		d.Locals = append(d.Locals, Local(lm))
	}
	if im.Const != nil {
		c := Constant(*im.Const)
		d.Constant = &c
	}

	// index and ordinal are shared keys: modifyArg owns index, modifyVariable
	// owns print/index/ordinal/type.
	if kind == KindModifyVariable {
		if im.Print != nil || im.Index != nil || im.Ordinal != nil || im.Type != nil {
			d.Variable = &Local{Print: im.Print, Index: im.Index, Ordinal: im.Ordinal, Type: im.Type}
		}
	} else {
		d.Index = im.Index
		if im.Print != nil || im.Ordinal != nil || im.Type != nil {
			d.Variable = &Local{Print: im.Print, Ordinal: im.Ordinal, Type: im.Type}
		}
	}
	return d, nil
}

func buildAt(kind Kind, am atModel) (At, error) {
	at := At{
		Value:   strings.ToUpper(strings.TrimSpace(am.Value)),
		ID:      am.ID,
		Slice:   am.Slice,
		By:      am.By,
		Args:    am.Args,
		Target:  am.Target,
		Ordinal: am.Ordinal,
		Remap:   am.Remap,
	}
	if am.Shift != nil {
		shift, ok := ParseShift(*am.Shift)
		if !ok {
			return At{}, &ValidationError{Kind: kind, Field: "at.shift", Msg: fmt.Sprintf("unknown shift %q", *am.Shift)}
		}
		at.Shift = &shift
	}
	switch op := am.Opcode.(type) {
	case nil:
	case int64:
		n := int(op)
		at.Opcode = &n
	case string:
		n, ok := opcodeNames[strings.ToUpper(op)]
		if !ok {
			return At{}, &ValidationError{Kind: kind, Field: "at.opcode", Msg: fmt.Sprintf("unknown opcode %q", op)}
		}
		at.Opcode = &n
	default:
		return At{}, &ValidationError{Kind: kind, Field: "at.opcode", Msg: fmt.Sprintf("opcode must be a number or a name, got %T", op)}
	}
	return at, nil
}
