package ir

// Diagnostic codes carried by GenerationError.
const (
	// CodeUnsupportedShape: the definition is not a struct with named fields.
	CodeUnsupportedShape = "unsupported_shape"

	// CodeMalformedGenericArgument: a sequence field's element type could
	// not be determined.
	CodeMalformedGenericArgument = "malformed_generic_argument"

	// CodeMissingCapability: a sequence element type has no Represent method.
	CodeMissingCapability = "missing_capability"

	// CodeUnsupportedFieldType: a scalar field has no meaningful text form.
	CodeUnsupportedFieldType = "unsupported_field_type"

	// CodeDuplicateMethod: the type already declares Represent by hand.
	CodeDuplicateMethod = "duplicate_method"

	// CodeUnknownStrategy: a directive named a strategy that does not exist.
	CodeUnknownStrategy = "unknown_strategy"

	// CodeTypeNotFound: a type requested by name is not declared.
	CodeTypeNotFound = "type_not_found"
)

// Messages for CodeUnsupportedShape.
const (
	MsgOnlyStructs     = "Representable only supports structs."
	MsgOnlyNamedFields = "Representable only supports named fields."
)

// GenerationError is a diagnostic for one struct. Generation of the struct
// stops, but other structs in the same run are unaffected.
type GenerationError struct {
	Code    string
	Message string

	// Source anchors the diagnostic at the offending definition or field.
	Source Source

	// TypeName and Field identify what failed, when known.
	TypeName string
	Field    string
}

func (e *GenerationError) Error() string {
	if e.Source.IsZero() {
		return e.Message
	}
	return e.Source.String() + ": " + e.Message
}

// Is matches sentinel errors by code. A sentinel is a GenerationError with
// an empty Message, such as ErrUnsupportedShape.
func (e *GenerationError) Is(target error) bool {
	t, ok := target.(*GenerationError)
	if !ok || t.Message != "" {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedShape         = &GenerationError{Code: CodeUnsupportedShape}
	ErrMalformedGenericArgument = &GenerationError{Code: CodeMalformedGenericArgument}
	ErrMissingCapability        = &GenerationError{Code: CodeMissingCapability}
	ErrUnsupportedFieldType     = &GenerationError{Code: CodeUnsupportedFieldType}
	ErrDuplicateMethod          = &GenerationError{Code: CodeDuplicateMethod}
	ErrUnknownStrategy          = &GenerationError{Code: CodeUnknownStrategy}
	ErrTypeNotFound             = &GenerationError{Code: CodeTypeNotFound}
)

// UnsupportedShape returns the diagnostic for a non-struct definition
// (structs == false) or a struct with unnamed fields.
func UnsupportedShape(typeName string, src Source, structs bool) *GenerationError {
	msg := MsgOnlyNamedFields
	if !structs {
		msg = MsgOnlyStructs
	}
	return &GenerationError{
		Code:     CodeUnsupportedShape,
		Message:  msg,
		Source:   src,
		TypeName: typeName,
	}
}
