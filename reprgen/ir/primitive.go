package ir

// PrimitiveKind identifies the category of a primitive type.
type PrimitiveKind int

const (
	PrimitiveBool    PrimitiveKind = iota
	PrimitiveInt                   // Signed integer (see BitSize)
	PrimitiveUint                  // Unsigned integer (see BitSize)
	PrimitiveFloat                 // Floating point (see BitSize)
	PrimitiveComplex               // Complex (see BitSize)
	PrimitiveString
	PrimitiveAny // interface{} / any
)

// String returns the string representation of the primitive kind.
func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveBool:
		return "Bool"
	case PrimitiveInt:
		return "Int"
	case PrimitiveUint:
		return "Uint"
	case PrimitiveFloat:
		return "Float"
	case PrimitiveComplex:
		return "Complex"
	case PrimitiveString:
		return "String"
	case PrimitiveAny:
		return "Any"
	default:
		return "Unknown"
	}
}

// PrimitiveDescriptor represents a predeclared basic type.
type PrimitiveDescriptor struct {
	PrimitiveKind PrimitiveKind

	// BitSize is 0 for platform-dependent int and uint, otherwise the
	// explicit width. Ignored for non-numeric kinds.
	BitSize int
}

// Kind returns KindPrimitive.
func (d *PrimitiveDescriptor) Kind() DescriptorKind { return KindPrimitive }

func (*PrimitiveDescriptor) sealed() {}

// GoString returns the Go spelling of the primitive.
func (d *PrimitiveDescriptor) GoString() string {
	switch d.PrimitiveKind {
	case PrimitiveBool:
		return "bool"
	case PrimitiveString:
		return "string"
	case PrimitiveAny:
		return "any"
	case PrimitiveInt:
		return sized("int", d.BitSize)
	case PrimitiveUint:
		return sized("uint", d.BitSize)
	case PrimitiveFloat:
		return sized("float", d.BitSize)
	case PrimitiveComplex:
		return sized("complex", d.BitSize)
	default:
		return "unknown"
	}
}

func sized(base string, bits int) string {
	switch bits {
	case 8:
		return base + "8"
	case 16:
		return base + "16"
	case 32:
		return base + "32"
	case 64:
		return base + "64"
	case 128:
		return base + "128"
	default:
		return base
	}
}

// IsString reports whether d is the predeclared string type.
func (d *PrimitiveDescriptor) IsString() bool {
	return d.PrimitiveKind == PrimitiveString
}

// IsInt32 reports whether d is int32 (or its alias rune).
func (d *PrimitiveDescriptor) IsInt32() bool {
	return d.PrimitiveKind == PrimitiveInt && d.BitSize == 32
}

// Bool returns a PrimitiveDescriptor for bool.
func Bool() *PrimitiveDescriptor {
	return &PrimitiveDescriptor{PrimitiveKind: PrimitiveBool}
}

// String returns a PrimitiveDescriptor for string.
func String() *PrimitiveDescriptor {
	return &PrimitiveDescriptor{PrimitiveKind: PrimitiveString}
}

// Int returns a PrimitiveDescriptor for a signed integer of the given size.
// Use 0 for platform-dependent int.
func Int(bitSize int) *PrimitiveDescriptor {
	return &PrimitiveDescriptor{PrimitiveKind: PrimitiveInt, BitSize: bitSize}
}

// Uint returns a PrimitiveDescriptor for an unsigned integer.
func Uint(bitSize int) *PrimitiveDescriptor {
	return &PrimitiveDescriptor{PrimitiveKind: PrimitiveUint, BitSize: bitSize}
}

// Float returns a PrimitiveDescriptor for a float of the given size.
func Float(bitSize int) *PrimitiveDescriptor {
	return &PrimitiveDescriptor{PrimitiveKind: PrimitiveFloat, BitSize: bitSize}
}

// Complex returns a PrimitiveDescriptor for a complex of the given size.
func Complex(bitSize int) *PrimitiveDescriptor {
	return &PrimitiveDescriptor{PrimitiveKind: PrimitiveComplex, BitSize: bitSize}
}

// Any returns a PrimitiveDescriptor for any/interface{}.
func Any() *PrimitiveDescriptor {
	return &PrimitiveDescriptor{PrimitiveKind: PrimitiveAny}
}
