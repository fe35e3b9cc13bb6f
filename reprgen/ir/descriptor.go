package ir

// DescriptorKind identifies the category of a type descriptor.
type DescriptorKind int

const (
	KindPrimitive     DescriptorKind = iota // Predeclared basic type
	KindArray                               // []T or [N]T
	KindMap                                 // map[K]V
	KindPtr                                 // *T
	KindReference                           // Named type, possibly instantiated
	KindTypeParameter                       // Generic type parameter
	KindOpaque                              // func, chan, unsafe.Pointer, anonymous struct
	KindInvalid                             // Type that could not be resolved
)

// String returns the string representation of the descriptor kind.
func (k DescriptorKind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	case KindPtr:
		return "Ptr"
	case KindReference:
		return "Reference"
	case KindTypeParameter:
		return "TypeParameter"
	case KindOpaque:
		return "Opaque"
	case KindInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// TypeDescriptor is the declared type of a field, before classification.
type TypeDescriptor interface {
	// Kind returns the descriptor kind for type switching.
	Kind() DescriptorKind

	// GoString renders the type as it would appear in Go source,
	// used in diagnostics.
	GoString() string

	// Ensure only types in this package can implement TypeDescriptor.
	sealed()
}

// Capability records whether a type is known to have a Represent() string
// method in its addressable method set.
type Capability int

const (
	// CapabilityUnknown means the provider could not tell, as with the
	// syntax provider. Callers defer the check to the Go compiler.
	CapabilityUnknown Capability = iota
	CapabilityPresent
	CapabilityAbsent
)

func (c Capability) String() string {
	switch c {
	case CapabilityPresent:
		return "present"
	case CapabilityAbsent:
		return "absent"
	default:
		return "unknown"
	}
}
