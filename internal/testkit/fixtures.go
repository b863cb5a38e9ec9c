package testkit

import (
	"fmt"
	"strings"

	"hookgen/internal/classpath"
	"hookgen/internal/mapping"
)

// Tiny is a small tiny v2 mapping file used across package tests.
// Client.tick has body locals (long, int, double, int) so ordinal lookups
// cross wide slots.
var Tiny = strings.Join([]string{
	"tiny\t2\t0\tintermediary\tnamed",
	"c\tnet/minecraft/class_1\tnet/minecraft/client/Client",
	"\tf\tI\tfield_1\tticks",
	"\tf\tZ\tfield_3\tpaused",
	"\tm\t()V\tmethod_1\ttick",
	"\tm\t(F)I\tmethod_2\tscore",
	"\t\tp\t1\t\tpartial",
	"\tm\t(Lnet/minecraft/class_2;I)Z\tmethod_3\tplace",
	"\tm\t()I\tmethod_4\tcount",
	"\tm\t(JD)J\tmethod_7\tmix",
	"c\tnet/minecraft/class_2\tnet/minecraft/world/World",
	"\tf\tZ\tfield_2\tdirty",
	"\tf\tI\tfield_4\tcounter",
	"\tm\t(IJ)Ljava/lang/String;\tmethod_5\tdescribe",
	"\tm\t()V\tmethod_6\treset",
	"\tm\t(I)V\t<init>\t<init>",
	"",
}, "\n")

// Classpath is the runtime hierarchy matching Tiny.
const Classpath = `
[[class]]
name = "net/minecraft/class_1"
super = "java/lang/Object"
[[class.method]]
name = "method_1"
desc = "()V"
locals = [
  { name = "delta", desc = "J" },
  { name = "count", desc = "I" },
  { name = "scale", desc = "D" },
  { name = "total", desc = "I" },
]
[[class.method]]
name = "method_2"
desc = "(F)I"
[[class.method]]
name = "method_3"
desc = "(Lnet/minecraft/class_2;I)Z"
[[class.method]]
name = "method_4"
desc = "()I"
static = true
[[class.method]]
name = "method_7"
desc = "(JD)J"
static = true
[[class.field]]
name = "field_1"
desc = "I"
[[class.field]]
name = "field_3"
desc = "Z"
static = true

[[class]]
name = "net/minecraft/class_2"
super = "java/lang/Object"
[[class.method]]
name = "method_5"
desc = "(IJ)Ljava/lang/String;"
[[class.method]]
name = "method_6"
desc = "()V"
static = true
[[class.method]]
name = "<init>"
desc = "(I)V"
[[class.field]]
name = "field_2"
desc = "Z"
[[class.field]]
name = "field_4"
desc = "I"
static = true

[[class]]
name = "java/lang/String"
super = "java/lang/Object"
access = ["public", "final"]
[[class.method]]
name = "length"
desc = "()I"

[[class]]
name = "com/example/Helper"
super = "java/lang/Object"
[[class.method]]
name = "greet"
desc = "(Lnet/minecraft/class_1;C)V"
[[class.field]]
name = "calls"
desc = "I"
`

// NewTable builds the mapping table of Tiny over Classpath.
func NewTable() (*mapping.Table, error) {
	set, err := classpath.Parse(Classpath)
	if err != nil {
		return nil, fmt.Errorf("classpath fixture: %w", err)
	}
	classes, err := mapping.ReadTiny(strings.NewReader(Tiny), "named", "intermediary")
	if err != nil {
		return nil, fmt.Errorf("tiny fixture: %w", err)
	}
	table := mapping.NewTable(set, nil)
	if err := table.AddClasses(classes); err != nil {
		return nil, err
	}
	return table, nil
}
