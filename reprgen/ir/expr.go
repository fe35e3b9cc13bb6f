package ir

import (
	"strconv"
	"strings"
)

// ArrayDescriptor represents an ordered collection (slice or fixed-length array).
type ArrayDescriptor struct {
	// Element is the array element type.
	Element TypeDescriptor

	// Length is 0 for slices ([]T) and nonzero for fixed-length arrays
	// ([N]T). Providers use -1 when the length is not a literal or is zero.
	// Only slices are sequences; fixed arrays render as scalars.
	Length int
}

// Kind returns KindArray.
func (d *ArrayDescriptor) Kind() DescriptorKind { return KindArray }

func (*ArrayDescriptor) sealed() {}

// IsSlice reports whether d describes a slice.
func (d *ArrayDescriptor) IsSlice() bool { return d.Length == 0 }

func (d *ArrayDescriptor) GoString() string {
	prefix := "[]"
	switch {
	case d.Length > 0:
		prefix = "[" + strconv.Itoa(d.Length) + "]"
	case d.Length < 0:
		prefix = "[N]"
	}
	return prefix + goString(d.Element)
}

// Slice returns an ArrayDescriptor for a slice type.
func Slice(element TypeDescriptor) *ArrayDescriptor {
	return &ArrayDescriptor{Element: element}
}

// Array returns an ArrayDescriptor for a fixed-length array.
func Array(element TypeDescriptor, length int) *ArrayDescriptor {
	return &ArrayDescriptor{Element: element, Length: length}
}

// MapDescriptor represents a key-value mapping.
type MapDescriptor struct {
	Key   TypeDescriptor
	Value TypeDescriptor
}

// Kind returns KindMap.
func (d *MapDescriptor) Kind() DescriptorKind { return KindMap }

func (*MapDescriptor) sealed() {}

func (d *MapDescriptor) GoString() string {
	return "map[" + goString(d.Key) + "]" + goString(d.Value)
}

// Map returns a MapDescriptor for a map type.
func Map(key, value TypeDescriptor) *MapDescriptor {
	return &MapDescriptor{Key: key, Value: value}
}

// PtrDescriptor represents a Go pointer type (*T).
type PtrDescriptor struct {
	Element TypeDescriptor
}

// Kind returns KindPtr.
func (d *PtrDescriptor) Kind() DescriptorKind { return KindPtr }

func (*PtrDescriptor) sealed() {}

func (d *PtrDescriptor) GoString() string { return "*" + goString(d.Element) }

// Ptr returns a PtrDescriptor for a pointer type.
func Ptr(element TypeDescriptor) *PtrDescriptor {
	return &PtrDescriptor{Element: element}
}

// ReferenceDescriptor represents a reference to a named type.
type ReferenceDescriptor struct {
	// Target is the referenced type's identifier.
	Target GoIdentifier

	// TypeArgs holds the type arguments of a generic instantiation.
	// TypeArgs contains nil entries when a provider could not resolve
	// an argument.
	TypeArgs []TypeDescriptor

	// Representable records whether the named type (or a pointer to it)
	// has a Represent() string method.
	Representable Capability

	// Underlying records the kind of the named type's underlying type.
	Underlying Underlying
}

// Kind returns KindReference.
func (d *ReferenceDescriptor) Kind() DescriptorKind { return KindReference }

func (*ReferenceDescriptor) sealed() {}

func (d *ReferenceDescriptor) GoString() string {
	name := d.Target.Name
	if d.Target.Package != "" {
		name = d.Target.Package[strings.LastIndex(d.Target.Package, "/")+1:] + "." + name
	}
	if len(d.TypeArgs) == 0 {
		return name
	}
	args := make([]string, len(d.TypeArgs))
	for i, a := range d.TypeArgs {
		args[i] = goString(a)
	}
	return name + "[" + strings.Join(args, ", ") + "]"
}

// Ref returns a ReferenceDescriptor for a named type with unknown capability.
func Ref(name string, pkg string, typeArgs ...TypeDescriptor) *ReferenceDescriptor {
	return &ReferenceDescriptor{
		Target:   GoIdentifier{Name: name, Package: pkg},
		TypeArgs: typeArgs,
	}
}

// WithCapability sets the Representable capability and returns d.
func (d *ReferenceDescriptor) WithCapability(c Capability) *ReferenceDescriptor {
	d.Representable = c
	return d
}

// WithUnderlying sets the underlying kind and returns d.
func (d *ReferenceDescriptor) WithUnderlying(u Underlying) *ReferenceDescriptor {
	d.Underlying = u
	return d
}

// Underlying classifies a named type's underlying type as far as a
// provider can tell.
type Underlying int

const (
	UnderlyingUnknown Underlying = iota
	UnderlyingSlice
	UnderlyingOther
)

// TypeParameterDescriptor represents a use of a generic type parameter.
type TypeParameterDescriptor struct {
	ParamName string

	// Representable records whether the constraint guarantees a
	// Represent() string method.
	Representable Capability
}

// Kind returns KindTypeParameter.
func (d *TypeParameterDescriptor) Kind() DescriptorKind { return KindTypeParameter }

func (*TypeParameterDescriptor) sealed() {}

func (d *TypeParameterDescriptor) GoString() string { return d.ParamName }

// TypeParam returns a TypeParameterDescriptor for a type parameter.
func TypeParam(name string, c Capability) *TypeParameterDescriptor {
	return &TypeParameterDescriptor{ParamName: name, Representable: c}
}

// OpaqueKind identifies why a type has no useful default text.
type OpaqueKind int

const (
	OpaqueFunc OpaqueKind = iota
	OpaqueChan
	OpaqueUnsafePointer
	OpaqueStruct // anonymous struct literal type
	OpaqueInterface
)

// OpaqueDescriptor represents a type the classifier treats as a scalar
// without inspecting its structure. Func, chan, and unsafe.Pointer values
// have no meaningful textual form and are rejected by the classifier;
// anonymous structs and non-empty interfaces render through fmt.
type OpaqueDescriptor struct {
	OpaqueKind OpaqueKind

	// Expr is the Go spelling of the type, for diagnostics.
	Expr string
}

// Kind returns KindOpaque.
func (d *OpaqueDescriptor) Kind() DescriptorKind { return KindOpaque }

func (*OpaqueDescriptor) sealed() {}

func (d *OpaqueDescriptor) GoString() string { return d.Expr }

// Opaque returns an OpaqueDescriptor.
func Opaque(kind OpaqueKind, expr string) *OpaqueDescriptor {
	return &OpaqueDescriptor{OpaqueKind: kind, Expr: expr}
}

// InvalidDescriptor represents a type the provider could not resolve,
// such as an undefined identifier or a syntax error.
type InvalidDescriptor struct {
	// Expr is the source text of the type, when available.
	Expr string
}

// Kind returns KindInvalid.
func (d *InvalidDescriptor) Kind() DescriptorKind { return KindInvalid }

func (*InvalidDescriptor) sealed() {}

func (d *InvalidDescriptor) GoString() string {
	if d.Expr == "" {
		return "invalid type"
	}
	return d.Expr
}

// Invalid returns an InvalidDescriptor.
func Invalid(expr string) *InvalidDescriptor {
	return &InvalidDescriptor{Expr: expr}
}

func goString(td TypeDescriptor) string {
	if td == nil {
		return "invalid type"
	}
	return td.GoString()
}
