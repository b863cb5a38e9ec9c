package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Descriptor syntax
	DescInfo           Code = 1000
	DescMalformed      Code = 1001
	DescVoidNotAllowed Code = 1002
	DescBadMember      Code = 1003
	DescNotComposed    Code = 1004

	// Symbol resolution
	ResInfo            Code = 2000
	ResUnknownClass    Code = 2001
	ResUnknownMember   Code = 2002
	ResAmbiguousMember Code = 2003
	ResUnknownWidener  Code = 2004

	// Directive validity
	DirInfo            Code = 3000
	DirInvalid         Code = 3001
	DirBadAuthoring    Code = 3002
	DirRestartRequired Code = 3003
	DirBadMixin        Code = 3004
	DirEmptyMixin      Code = 3005

	// Injection signatures
	SigInfo                   Code = 4000
	SigInvalidLocationForKind Code = 4001
	SigOutOfBoundsIndex       Code = 4002
	SigVoidReturn             Code = 4003
	SigInvalidLocal           Code = 4004
	SigMissingOpcode          Code = 4005
	SigSynthesisFailed        Code = 4006

	// Output and io
	IOInfo          Code = 5000
	IOLoadFailed    Code = 5001
	IOWriteFailed   Code = 5002
	IOConfig        Code = 5003
	IOCacheCorrupt  Code = 5004
	IOClasspath     Code = 5005
	IOMappings      Code = 5006
	IODevDumpFailed Code = 5007
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	DescInfo:           "Descriptor information",
	DescMalformed:      "Malformed descriptor",
	DescVoidNotAllowed: "Void is not allowed here",
	DescBadMember:      "Malformed member reference",
	DescNotComposed:    "Descriptor not in composed form",

	ResInfo:            "Resolution information",
	ResUnknownClass:    "Unknown class",
	ResUnknownMember:   "Unknown member",
	ResAmbiguousMember: "Ambiguous member",
	ResUnknownWidener:  "Unknown widener target",

	DirInfo:            "Directive information",
	DirInvalid:         "Invalid directive",
	DirBadAuthoring:    "Malformed directive file",
	DirRestartRequired: "Restart required",
	DirBadMixin:        "Invalid mixin",
	DirEmptyMixin:      "Mixin without directives",

	SigInfo:                   "Signature information",
	SigInvalidLocationForKind: "Injection point not valid for directive kind",
	SigOutOfBoundsIndex:       "Argument index out of bounds",
	SigVoidReturn:             "Void value cannot be captured",
	SigInvalidLocal:           "Invalid captured local",
	SigMissingOpcode:          "Missing field opcode",
	SigSynthesisFailed:        "Trampoline synthesis failed",

	IOInfo:          "Output information",
	IOLoadFailed:    "Failed to load input",
	IOWriteFailed:   "Failed to write artifact",
	IOConfig:        "Invalid project configuration",
	IOCacheCorrupt:  "Corrupt cache entry",
	IOClasspath:     "Invalid classpath model",
	IOMappings:      "Invalid mappings",
	IODevDumpFailed: "Failed to write disassembly",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DSC%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("DIR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("SIG%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
