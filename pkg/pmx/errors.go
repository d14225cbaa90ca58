package pmx

import (
	"errors"
	"fmt"
)

// PMX format errors. Every parse failure satisfies errors.Is(err, ErrFormat).
var (
	ErrFormat                = errors.New("malformed PMX data")
	ErrInvalidPMXMagic       = errors.New("invalid PMX magic: expected 'PMX '")
	ErrUnsupportedPMXVersion = errors.New("unsupported PMX version")
	ErrTruncatedPMXData      = errors.New("truncated PMX data")
	ErrInvalidGlobals        = errors.New("invalid PMX global flags")
	ErrInvalidCount          = errors.New("invalid PMX element count")
	ErrInvalidText           = errors.New("invalid PMX text field")
	ErrDanglingReference     = errors.New("texture reference outside texture table")
	ErrIndexOverflow         = errors.New("index does not fit declared width")
)

// Editor errors.
var (
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrReferentialIntegrity = errors.New("texture is still referenced")
	ErrValidation           = errors.New("invalid field value")
)

// FormatError describes where reading or writing the binary layout failed.
type FormatError struct {
	Field  string
	Offset int
	Err    error
}

func (e *FormatError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("pmx: %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is makes every FormatError match ErrFormat in addition to its cause.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func formatErr(field string, offset int, err error) error {
	return &FormatError{Field: field, Offset: offset, Err: err}
}

// EditError is returned by Editor operations. Kind is one of
// ErrIndexOutOfRange, ErrReferentialIntegrity or ErrValidation.
type EditError struct {
	Kind error
	Op   OpKind
	Msg  string

	// References is the number of materials still bound to the texture for
	// ErrReferentialIntegrity.
	References int
}

func (e *EditError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind.Error())
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind.Error(), e.Msg)
}

func (e *EditError) Unwrap() error { return e.Kind }

func outOfRangef(op OpKind, format string, args ...any) error {
	return &EditError{Kind: ErrIndexOutOfRange, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func invalidf(op OpKind, format string, args ...any) error {
	return &EditError{Kind: ErrValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func referencedError(op OpKind, textureIndex, refs int) error {
	return &EditError{
		Kind:       ErrReferentialIntegrity,
		Op:         op,
		Msg:        fmt.Sprintf("texture %d is referenced by %d material(s)", textureIndex, refs),
		References: refs,
	}
}
