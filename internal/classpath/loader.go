package classpath

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"hookgen/internal/descriptor"
)

type fileModel struct {
	Classes []classModel `toml:"class"`
}

type classModel struct {
	Name       string        `toml:"name"`
	Super      string        `toml:"super"`
	Interfaces []string      `toml:"interfaces"`
	Access     []string      `toml:"access"`
	Methods    []methodModel `toml:"method"`
	Fields     []fieldModel  `toml:"field"`
}

type methodModel struct {
	Name   string       `toml:"name"`
	Desc   string       `toml:"desc"`
	Static bool         `toml:"static"`
	Access []string     `toml:"access"`
	Locals []localModel `toml:"locals"`
}

type localModel struct {
	Name  string `toml:"name"`
	Desc  string `toml:"desc"`
	Index *int   `toml:"index"`
}

type fieldModel struct {
	Name   string   `toml:"name"`
	Desc   string   `toml:"desc"`
	Static bool     `toml:"static"`
	Access []string `toml:"access"`
}

var accessNames = map[string]Access{
	"public":    AccPublic,
	"private":   AccPrivate,
	"protected": AccProtected,
	"static":    AccStatic,
	"final":     AccFinal,
	"interface": AccInterface,
	"abstract":  AccAbstract,
}

// LoadFile reads a classpath model file.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classpath %q: %w", path, err)
	}
	set, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a classpath model from TOML text:
//
//	[[class]]
//	name = "net/minecraft/class_310"
//	super = "java/lang/Object"
//	[[class.method]]
//	name = "method_1574"
//	desc = "()V"
//	locals = [{ name = "delta", desc = "F" }]
func Parse(text string) (*Set, error) {
	var model fileModel
	meta, err := toml.Decode(text, &model)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	set := NewSet()
	for i, cm := range model.Classes {
		c, err := buildClass(cm)
		if err != nil {
			return nil, fmt.Errorf("class #%d: %w", i+1, err)
		}
		if err := set.Add(c); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func buildClass(cm classModel) (*Class, error) {
	name := strings.ReplaceAll(strings.TrimSpace(cm.Name), ".", "/")
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}
	access, err := parseAccess(cm.Access)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c := &Class{
		Name:       name,
		Super:      strings.ReplaceAll(cm.Super, ".", "/"),
		Interfaces: make([]string, 0, len(cm.Interfaces)),
		Access:     access,
	}
	for _, iface := range cm.Interfaces {
		c.Interfaces = append(c.Interfaces, strings.ReplaceAll(iface, ".", "/"))
	}
	for _, mm := range cm.Methods {
		m, err := buildMethod(name, mm)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		c.Methods = append(c.Methods, m)
	}
	for _, fm := range cm.Fields {
		if fm.Name == "" {
			return nil, fmt.Errorf("%s: field without a name", name)
		}
		typ, err := descriptor.ParseType(fm.Desc)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, fm.Name, err)
		}
		if typ == descriptor.Void {
			return nil, fmt.Errorf("%s.%s: field type cannot be void", name, fm.Name)
		}
		acc, err := parseAccess(fm.Access)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, fm.Name, err)
		}
		if fm.Static {
			acc |= AccStatic
		}
		c.Fields = append(c.Fields, &Field{Owner: name, Name: fm.Name, Desc: fm.Desc, Access: acc})
	}
	return c, nil
}

func buildMethod(owner string, mm methodModel) (*Method, error) {
	if mm.Name == "" {
		return nil, fmt.Errorf("method without a name")
	}
	params, _, err := descriptor.ParseMethodType(mm.Desc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mm.Name, err)
	}
	acc, err := parseAccess(mm.Access)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mm.Name, err)
	}
	if mm.Static {
		acc |= AccStatic
	}
	next := 0
	if !acc.Has(AccStatic) {
		next = 1
	}
	for _, p := range params {
		next += descriptor.Slots(p)
	}
	m := &Method{Owner: owner, Name: mm.Name, Desc: mm.Desc, Access: acc}
	for _, lm := range mm.Locals {
		typ, err := descriptor.ParseType(lm.Desc)
		if err != nil {
			return nil, fmt.Errorf("%s local %q: %w", mm.Name, lm.Name, err)
		}
		index := next
		if lm.Index != nil {
			if *lm.Index < next {
				return nil, fmt.Errorf("%s local %q: index %d overlaps the parameters", mm.Name, lm.Name, *lm.Index)
			}
			index = *lm.Index
		}
		m.Locals = append(m.Locals, Local{Name: lm.Name, Desc: lm.Desc, Index: index})
		next = index + descriptor.Slots(typ)
	}
	return m, nil
}

func parseAccess(names []string) (Access, error) {
	var acc Access
	for _, name := range names {
		flag, ok := accessNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown access modifier %q", name)
		}
		acc |= flag
	}
	return acc, nil
}
