package generator

import (
	"errors"

	"hookgen/internal/descriptor"
	"hookgen/internal/diag"
	"hookgen/internal/directive"
	"hookgen/internal/mapping"
	"hookgen/internal/signature"
)

var signatureCodes = map[signature.ErrorKind]diag.Code{
	signature.ErrInvalidLocationForKind: diag.SigInvalidLocationForKind,
	signature.ErrOutOfBoundsIndex:       diag.SigOutOfBoundsIndex,
	signature.ErrVoidReturnIncompatible: diag.SigVoidReturn,
	signature.ErrInvalidLocal:           diag.SigInvalidLocal,
	signature.ErrMissingOpcode:          diag.SigMissingOpcode,
}

var resolveCodes = map[mapping.ResolveErrorKind]diag.Code{
	mapping.ErrUnknownClass:    diag.ResUnknownClass,
	mapping.ErrUnknownMember:   diag.ResUnknownMember,
	mapping.ErrAmbiguousMember: diag.ResAmbiguousMember,
}

// classify picks the diagnostic code for err. The most specific error in
// the chain wins; fallback is used when nothing is recognized.
func classify(err error, fallback diag.Code) (diag.Code, []diag.Note) {
	var (
		sigErr *signature.Error
		resErr *mapping.ResolveError
		synErr *descriptor.SyntaxError
		valErr *directive.ValidationError
	)
	switch {
	case errors.Is(err, directive.ErrRestartRequired):
		return diag.DirRestartRequired, nil
	case errors.As(err, &resErr):
		var notes []diag.Note
		for _, c := range resErr.Candidates {
			notes = append(notes, diag.Note{Msg: "candidate " + c})
		}
		if code, ok := resolveCodes[resErr.Kind]; ok {
			return code, notes
		}
	case errors.As(err, &sigErr):
		if code, ok := signatureCodes[sigErr.Kind]; ok {
			return code, nil
		}
	case errors.As(err, &synErr):
		return diag.DescMalformed, nil
	case errors.As(err, &valErr):
		return diag.DirInvalid, nil
	}
	return fallback, nil
}

func report(r diag.Reporter, loc diag.Location, err error, fallback diag.Code) {
	code, notes := classify(err, fallback)
	r.Report(code, diag.SevError, loc, err.Error(), notes)
}
