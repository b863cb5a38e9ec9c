package trampoline

import (
	"hookgen/internal/bytecode"
	"hookgen/internal/directive"
)

// Runtime names the host entry points that generated code calls.
type Runtime struct {
	// Attached is a static (I)Z method reporting whether an id has a handler.
	Attached bytecode.Handle
	// Bootstrap links the dispatch call site of each trampoline.
	Bootstrap bytecode.Handle
}

// DefaultRuntime matches the loader shipped with the scripting host.
var DefaultRuntime = Runtime{
	Attached: bytecode.Handle{
		Owner: "com/chattriggers/ctjs/internal/engine/JSLoader",
		Name:  "mixinIsAttached",
		Desc:  "(I)Z",
	},
	Bootstrap: bytecode.Handle{
		Owner: "com/chattriggers/ctjs/internal/launch/InvokeDynamicSupport",
		Name:  "bootstrapInvokeJS",
		Desc:  "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;[Ljava/lang/Object;)Ljava/lang/invoke/CallSite;",
	},
}

// DispatchDesc is the type of every dispatch call site: the marshalled
// argument vector in, one boxed result out.
const DispatchDesc = "([Ljava/lang/Object;)Ljava/lang/Object;"

const (
	mixinPackage  = "Lorg/spongepowered/asm/mixin/"
	injectPackage = mixinPackage + "injection/"
	extrasPackage = "Lcom/llamalad7/mixinextras/"
)

// Annotation descriptors understood by the weaving engine.
const (
	MixinDesc     = mixinPackage + "Mixin;"
	AtDesc        = injectPackage + "At;"
	ShiftDesc     = injectPackage + "At$Shift;"
	SliceDesc     = injectPackage + "Slice;"
	ConstantDesc  = injectPackage + "Constant;"
	ConditionDesc = injectPackage + "Constant$Condition;"
	LocalDesc     = extrasPackage + "sugar/Local;"
)

// OperationCall is the method that runs the wrapped original operation.
var OperationCall = bytecode.Handle{
	Owner: "com/llamalad7/mixinextras/injector/wrapoperation/Operation",
	Name:  "call",
	Desc:  "([Ljava/lang/Object;)Ljava/lang/Object;",
}

// kindInfo holds the per-kind annotation shape. Some engine annotations take
// a single At or Slice where others take arrays.
type kindInfo struct {
	desc       string
	atArray    bool
	sliceArray bool
}

var kinds = map[directive.Kind]kindInfo{
	directive.KindInject:                {injectPackage + "Inject;", true, true},
	directive.KindRedirect:              {injectPackage + "Redirect;", false, false},
	directive.KindModifyArg:             {injectPackage + "ModifyArg;", false, false},
	directive.KindModifyArgs:            {injectPackage + "ModifyArgs;", false, false},
	directive.KindModifyConstant:        {injectPackage + "ModifyConstant;", true, true},
	directive.KindModifyVariable:        {injectPackage + "ModifyVariable;", false, false},
	directive.KindModifyExpressionValue: {extrasPackage + "injector/ModifyExpressionValue;", true, true},
	directive.KindModifyReceiver:        {extrasPackage + "injector/ModifyReceiver;", true, true},
	directive.KindModifyReturnValue:     {extrasPackage + "injector/ModifyReturnValue;", true, true},
	directive.KindWrapOperation:         {extrasPackage + "injector/wrapoperation/WrapOperation;", true, true},
	directive.KindWrapWithCondition:     {extrasPackage + "injector/v2/WrapWithCondition;", true, true},
}

// AnnotationDesc returns the engine annotation descriptor of kind k.
func AnnotationDesc(k directive.Kind) string {
	return kinds[k].desc
}
