// Package shape decides how each struct field is rendered.
//
// A field's declared type is reduced to one of a closed set of shapes:
//
//	Scalar                        rendered with fmt.Sprint
//	Sequence{Element: String}     ["a", "b"]
//	Sequence{Element: Integer}    [1, 2, 3]
//	Sequence{Element: Other}      [x.Represent(), y.Represent()]
//
// The decision is made on resolved types (ir.TypeDescriptor), never on
// spelling, so aliases and renamed imports classify the same way.
package shape

import (
	"fmt"

	"github.com/broady/repr/reprgen/ir"
)

// Shape is the rendering strategy chosen for one field.
type Shape interface {
	String() string
	isShape()
}

// Scalar fields render through their default textual conversion.
type Scalar struct{}

func (Scalar) isShape()       {}
func (Scalar) String() string { return "Scalar" }

// Sequence fields render as a bracketed, comma-separated element list.
type Sequence struct {
	Element Element
}

func (Sequence) isShape() {}

func (s Sequence) String() string { return "Sequence(" + s.Element.String() + ")" }

// ElementKind selects how each element of a sequence is rendered.
type ElementKind int

const (
	ElementString  ElementKind = iota // quoted, unescaped
	ElementInteger                    // int32, unquoted
	ElementOther                      // element.Represent()
)

func (k ElementKind) String() string {
	switch k {
	case ElementString:
		return "StringElement"
	case ElementInteger:
		return "IntegerElement"
	case ElementOther:
		return "OtherElement"
	default:
		return "UnknownElement"
	}
}

// Element describes the elements of a Sequence.
type Element struct {
	Kind ElementKind

	// Pointer is set when the element type is *T. Nil elements render as
	// "nil" rather than calling Represent on a nil pointer.
	Pointer bool

	// Type is the element's declared type.
	Type ir.TypeDescriptor
}

func (e Element) String() string {
	if e.Pointer {
		return e.Kind.String() + "(ptr)"
	}
	return e.Kind.String()
}

// Resolver maps a field to its Shape. Implementations must be pure:
// the same field always yields the same shape or the same error.
type Resolver interface {
	Resolve(field ir.FieldDescriptor) (Shape, error)
}

// Classifier is the default Resolver.
type Classifier struct {
	// SequenceTypes lists generic named types that render like slices.
	// Each must take exactly one type argument and have []T as its
	// underlying type.
	SequenceTypes []ir.GoIdentifier

	// Generated reports whether a named type receives a Represent method
	// in the same generation run. It satisfies the capability check for
	// types whose method does not exist yet. May be nil.
	Generated func(ir.GoIdentifier) bool
}

var _ Resolver = (*Classifier)(nil)

// Resolve classifies the field's type. Errors are *ir.GenerationError
// anchored at the field.
func (c *Classifier) Resolve(field ir.FieldDescriptor) (Shape, error) {
	s, err := c.Classify(field.Type)
	if err != nil {
		gerr := err.(*ir.GenerationError)
		gerr.Field = field.Name
		gerr.Source = field.Source
		gerr.Message = "field " + field.Name + ": " + gerr.Message
		return nil, gerr
	}
	return s, nil
}

// Classify maps a declared type to a Shape.
func (c *Classifier) Classify(t ir.TypeDescriptor) (Shape, error) {
	switch d := t.(type) {
	case nil:
		return nil, unsupported("missing type")

	case *ir.ArrayDescriptor:
		if !d.IsSlice() {
			return Scalar{}, nil
		}
		el, err := c.classifyElement(d.Element, d)
		if err != nil {
			return nil, err
		}
		return Sequence{Element: el}, nil

	case *ir.ReferenceDescriptor:
		if !c.isSequenceType(d.Target) {
			return Scalar{}, nil
		}
		if d.Underlying == ir.UnderlyingOther {
			return nil, malformed(fmt.Sprintf("sequence type %s must have a slice underlying type", d.Target.Name))
		}
		if len(d.TypeArgs) != 1 {
			return nil, malformed(fmt.Sprintf("sequence type %s takes exactly one type argument, got %d", d.Target.Name, len(d.TypeArgs)))
		}
		el, err := c.classifyElement(d.TypeArgs[0], d)
		if err != nil {
			return nil, err
		}
		return Sequence{Element: el}, nil

	case *ir.OpaqueDescriptor:
		switch d.OpaqueKind {
		case ir.OpaqueFunc, ir.OpaqueChan, ir.OpaqueUnsafePointer:
			return nil, unsupported(fmt.Sprintf("type %s has no textual representation", d.Expr))
		}
		return Scalar{}, nil

	case *ir.InvalidDescriptor:
		return nil, unsupported(fmt.Sprintf("cannot resolve type %s", d.GoString()))

	default:
		return Scalar{}, nil
	}
}

func (c *Classifier) classifyElement(el ir.TypeDescriptor, seq ir.TypeDescriptor) (Element, error) {
	switch d := el.(type) {
	case nil, *ir.InvalidDescriptor:
		return Element{}, malformed("cannot determine element type of " + seq.GoString())

	case *ir.PrimitiveDescriptor:
		switch {
		case d.IsString():
			return Element{Kind: ElementString, Type: el}, nil
		case d.IsInt32():
			return Element{Kind: ElementInteger, Type: el}, nil
		}

	case *ir.PtrDescriptor:
		if err := c.checkCapability(d.Element, el); err != nil {
			return Element{}, err
		}
		return Element{Kind: ElementOther, Pointer: true, Type: el}, nil
	}

	if err := c.checkCapability(el, el); err != nil {
		return Element{}, err
	}
	return Element{Kind: ElementOther, Type: el}, nil
}

// checkCapability fails when t is known to lack Represent() string.
// Unknown capability passes; the Go compiler reports it later.
// elem is the element type as written, used in the message.
func (c *Classifier) checkCapability(t, elem ir.TypeDescriptor) error {
	switch d := t.(type) {
	case nil, *ir.InvalidDescriptor:
		return malformed("cannot determine element type of " + elem.GoString())
	case *ir.ReferenceDescriptor:
		if d.Representable != ir.CapabilityAbsent {
			return nil
		}
		if c.Generated != nil && c.Generated(d.Target) {
			return nil
		}
	case *ir.TypeParameterDescriptor:
		if d.Representable != ir.CapabilityAbsent {
			return nil
		}
	}
	return &ir.GenerationError{
		Code:    ir.CodeMissingCapability,
		Message: fmt.Sprintf("element type %s does not implement Represent() string", elem.GoString()),
	}
}

func (c *Classifier) isSequenceType(id ir.GoIdentifier) bool {
	for _, s := range c.SequenceTypes {
		if s == id {
			return true
		}
	}
	return false
}

func malformed(msg string) *ir.GenerationError {
	return &ir.GenerationError{
		Code:    ir.CodeMalformedGenericArgument,
		Message: msg,
	}
}

func unsupported(msg string) *ir.GenerationError {
	return &ir.GenerationError{
		Code:    ir.CodeUnsupportedFieldType,
		Message: msg,
	}
}
