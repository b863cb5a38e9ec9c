package mapping

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"hookgen/internal/descriptor"
)

// Tiny v2 layout, one record per line, tab separated:
//
//	tiny	2	0	named	intermediary
//	c	<class in ns0>	<class in ns1>...
//		f	<desc in ns0>	<name in ns0>	<name in ns1>...
//		m	<desc in ns0>	<name in ns0>	<name in ns1>...
//			p	<lv index>	<name in ns0>	<name in ns1>...
//
// Comment records ("c" below a member) and header properties are skipped.
// Empty names fall back to the ns0 name.

type tinyMember struct {
	desc   string
	names  []string
	params map[int][]string
}

type tinyClass struct {
	names   []string
	fields  []*tinyMember
	methods []*tinyMember
}

// LoadTiny reads a tiny v2 file and returns its classes expressed in the
// logical and runtime namespaces.
func LoadTiny(path, logical, runtime string) ([]*Class, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mappings %q: %w", path, err)
	}
	defer f.Close()
	classes, err := ReadTiny(f, logical, runtime)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return classes, nil
}

// ReadTiny parses tiny v2 text. Passing the same namespace for logical and
// runtime yields identity mappings, which is how development mode runs.
func ReadTiny(r io.Reader, logical, runtime string) ([]*Class, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty mappings")
	}
	header := strings.Split(sc.Text(), "\t")
	if len(header) < 4 || header[0] != "tiny" || header[1] != "2" {
		return nil, fmt.Errorf("line 1: not a tiny v2 header")
	}
	namespaces := header[3:]
	li, err := namespaceIndex(namespaces, logical)
	if err != nil {
		return nil, err
	}
	ri, err := namespaceIndex(namespaces, runtime)
	if err != nil {
		return nil, err
	}

	var (
		raw     []*tinyClass
		cls     *tinyClass
		method  *tinyMember
		lineNum = 1
	)
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		depth := len(line) - len(strings.TrimLeft(line, "\t"))
		cols := strings.Split(line[depth:], "\t")
		switch {
		case depth == 0 && cols[0] == "c":
			if len(cols) < 2 {
				return nil, fmt.Errorf("line %d: class record without names", lineNum)
			}
			cls = &tinyClass{names: padNames(cols[1:], len(namespaces))}
			method = nil
			raw = append(raw, cls)
		case depth == 1 && cls == nil:
			// header property
		case depth == 1 && (cols[0] == "f" || cols[0] == "m"):
			if len(cols) < 3 {
				return nil, fmt.Errorf("line %d: member record too short", lineNum)
			}
			member := &tinyMember{desc: cols[1], names: padNames(cols[2:], len(namespaces))}
			if cols[0] == "f" {
				cls.fields = append(cls.fields, member)
				method = nil
			} else {
				member.params = make(map[int][]string)
				cls.methods = append(cls.methods, member)
				method = member
			}
		case depth == 2 && cols[0] == "p":
			if method == nil {
				return nil, fmt.Errorf("line %d: parameter outside of a method", lineNum)
			}
			if len(cols) < 3 {
				return nil, fmt.Errorf("line %d: parameter record too short", lineNum)
			}
			idx, err := strconv.Atoi(cols[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad parameter index %q", lineNum, cols[1])
			}
			method.params[idx] = padNames(cols[2:], len(namespaces))
		case cols[0] == "c":
			// comment
		default:
			if depth == 0 {
				return nil, fmt.Errorf("line %d: unexpected record %q", lineNum, cols[0])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return buildTiny(raw, len(namespaces), li, ri)
}

func namespaceIndex(namespaces []string, ns string) (int, error) {
	for i, name := range namespaces {
		if name == ns {
			return i, nil
		}
	}
	return 0, fmt.Errorf("namespace %q not present in mappings (have %s)", ns, strings.Join(namespaces, ", "))
}

func padNames(names []string, n int) []string {
	out := make([]string, n)
	copy(out, names)
	for i := 1; i < n; i++ {
		if out[i] == "" {
			out[i] = out[0]
		}
	}
	return out
}

func buildTiny(raw []*tinyClass, n, li, ri int) ([]*Class, error) {
	// class name translation tables from ns0 into every namespace
	translate := make([]map[string]string, n)
	for i := range translate {
		translate[i] = make(map[string]string, len(raw))
		for _, c := range raw {
			translate[i][c.names[0]] = c.names[i]
		}
	}
	out := make([]*Class, 0, len(raw))
	for _, rc := range raw {
		c := newClass(Name{Logical: rc.names[li], Runtime: rc.names[ri]})
		for _, rf := range rc.fields {
			c.Fields[rf.names[li]] = &Field{
				Owner: c,
				Name:  Name{Logical: rf.names[li], Runtime: rf.names[ri]},
				Type:  Name{Logical: remapDesc(rf.desc, translate[li]), Runtime: remapDesc(rf.desc, translate[ri])},
			}
		}
		for _, rm := range rc.methods {
			m, err := buildTinyMethod(c, rm, translate, li, ri)
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", rc.names[0], err)
			}
			c.Methods[m.Name.Logical] = append(c.Methods[m.Name.Logical], m)
		}
		out = append(out, c)
	}
	return out, nil
}

func buildTinyMethod(c *Class, rm *tinyMember, translate []map[string]string, li, ri int) (*Method, error) {
	params, ret, err := descriptor.ParseMethodType(rm.desc)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", rm.names[0], err)
	}
	m := &Method{
		Owner:  c,
		Name:   Name{Logical: rm.names[li], Runtime: rm.names[ri]},
		Return: Name{Logical: remapDesc(ret.String(), translate[li]), Runtime: remapDesc(ret.String(), translate[ri])},
	}
	// Static-ness is not recorded in tiny files; indices assume a receiver
	// unless a parameter record at slot 0 says otherwise.
	lvt := 1
	if _, ok := rm.params[0]; ok {
		lvt = 0
	}
	for i, p := range params {
		desc := p.String()
		param := Parameter{
			Name:     Identity(fmt.Sprintf("arg%d", i)),
			Type:     Name{Logical: remapDesc(desc, translate[li]), Runtime: remapDesc(desc, translate[ri])},
			LVTIndex: lvt,
		}
		if names, ok := rm.params[lvt]; ok {
			// parameters carry no runtime names of their own
			param.Name = Identity(names[li])
		}
		m.Params = append(m.Params, param)
		lvt += descriptor.Slots(p)
	}
	return m, nil
}

// remapDesc rewrites every object type in desc through names. Unknown
// classes are left unchanged.
func remapDesc(desc string, names map[string]string) string {
	if !strings.Contains(desc, "L") {
		return desc
	}
	var sb strings.Builder
	for i := 0; i < len(desc); i++ {
		if desc[i] != 'L' {
			sb.WriteByte(desc[i])
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			sb.WriteString(desc[i:])
			break
		}
		name := desc[i+1 : i+end]
		if mapped, ok := names[name]; ok {
			name = mapped
		}
		sb.WriteByte('L')
		sb.WriteString(name)
		sb.WriteByte(';')
		i += end
	}
	return sb.String()
}
