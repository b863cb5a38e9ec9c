package signature

import (
	"strings"

	"hookgen/internal/descriptor"
)

// Types the weaving engine expects in trampoline signatures.
var (
	CallbackInfo           = descriptor.ObjectOf("org/spongepowered/asm/mixin/injection/callback/CallbackInfo")
	CallbackInfoReturnable = descriptor.ObjectOf("org/spongepowered/asm/mixin/injection/callback/CallbackInfoReturnable")
	Args                   = descriptor.ObjectOf("org/spongepowered/asm/mixin/injection/invoke/arg/Args")
	Operation              = descriptor.ObjectOf("com/llamalad7/mixinextras/injector/wrapoperation/Operation")
	Object                 = descriptor.ObjectOf("java/lang/Object")
)

// RefPackage holds the reference-cell types used for mutable locals.
const RefPackage = "com/llamalad7/mixinextras/sugar/ref/"

var refCells = map[descriptor.Primitive]string{
	descriptor.Boolean: "LocalBooleanRef",
	descriptor.Byte:    "LocalByteRef",
	descriptor.Char:    "LocalCharRef",
	descriptor.Double:  "LocalDoubleRef",
	descriptor.Float:   "LocalFloatRef",
	descriptor.Int:     "LocalIntRef",
	descriptor.Long:    "LocalLongRef",
	descriptor.Short:   "LocalShortRef",
}

// RefCell returns the reference-cell type that wraps t. A type that already
// is a reference cell is returned unchanged.
func RefCell(t descriptor.Type) descriptor.Type {
	if strings.HasPrefix(t.String(), "L"+RefPackage) {
		return t
	}
	if p, ok := t.(descriptor.Primitive); ok {
		if name, ok := refCells[p]; ok {
			return descriptor.ObjectOf(RefPackage + name)
		}
	}
	return descriptor.ObjectOf(RefPackage + "LocalRef")
}
