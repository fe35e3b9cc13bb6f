package ir

// StructDescriptor is the input to generation: one named struct type
// with its fields in declaration order.
type StructDescriptor struct {
	// Name is the type identifier.
	Name GoIdentifier

	// TypeParameters lists the names of generic type parameters, in order.
	TypeParameters []string

	// Fields contains the named fields in declaration order.
	Fields []FieldDescriptor

	// Strategy overrides the configured representation strategy for this
	// type. Empty means use the default.
	Strategy string

	// Receiver overrides the generated receiver name.
	Receiver string

	// PointerReceiver requests a pointer receiver on the generated method.
	PointerReceiver bool

	// Source location of the type name in Go code.
	Source Source
}

// FieldDescriptor represents a single named field within a struct.
type FieldDescriptor struct {
	// Name is the Go field name, used to access the value.
	Name string

	// Label is the text printed before the value. Defaults to Name and
	// can be overridden with a `repr:"label"` struct tag.
	Label string

	// Type is the field's declared type.
	Type TypeDescriptor

	// Source location of the field in Go code.
	Source Source
}

// DisplayName returns Label, falling back to Name.
func (f FieldDescriptor) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}
