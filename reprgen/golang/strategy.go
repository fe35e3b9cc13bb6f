package golang

import (
	"bytes"
	"fmt"
	"go/token"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/broady/repr/reprgen/ir"
	"github.com/broady/repr/reprgen/shape"
)

// Strategy names accepted by StrategyByName and the strategy= directive option.
const (
	StrategyFields = "fields"
	StrategyDebug  = "debug"
)

// MethodName is the name of the generated method.
const MethodName = "Represent"

// Strategy writes a Represent method for one struct.
//
// FieldStrategy renders each field according to its shape. DebugStrategy
// delegates to fmt's %+v verb. Both produce a method with the same
// signature, so they can be swapped per type.
type Strategy interface {
	// Name returns the strategy name used in configuration.
	Name() string

	// EmitMethod writes the method declaration for s into buf.
	// Errors are *ir.GenerationError; buf is left in an unspecified
	// state on error.
	EmitMethod(buf *bytes.Buffer, s *ir.StructDescriptor, imports *ImportSet) error
}

// StrategyByName returns the strategy for name. An empty name selects
// StrategyFields. resolver is used by the field strategy.
func StrategyByName(name string, resolver shape.Resolver) (Strategy, error) {
	switch name {
	case "", StrategyFields:
		return &FieldStrategy{Resolver: resolver}, nil
	case StrategyDebug:
		return &DebugStrategy{}, nil
	default:
		return nil, &ir.GenerationError{
			Code:    ir.CodeUnknownStrategy,
			Message: fmt.Sprintf("unknown strategy %q (expected %q or %q)", name, StrategyFields, StrategyDebug),
		}
	}
}

// FieldStrategy renders "Name { f1: v1, f2: v2 }" with per-field dispatch
// on the classified shape.
type FieldStrategy struct {
	Resolver shape.Resolver
}

// Name returns "fields".
func (*FieldStrategy) Name() string { return StrategyFields }

// EmitMethod resolves every field and writes the method. The first field
// that fails to resolve aborts the struct.
func (f *FieldStrategy) EmitMethod(buf *bytes.Buffer, s *ir.StructDescriptor, imports *ImportSet) error {
	recv, err := receiverName(s)
	if err != nil {
		return err
	}

	local := &ImportSet{}
	fragments := make([]Fragment, 0, len(s.Fields))
	for _, field := range s.Fields {
		sh, err := f.Resolver.Resolve(field)
		if err != nil {
			if gerr, ok := err.(*ir.GenerationError); ok {
				gerr.TypeName = s.Name.Name
				return gerr
			}
			return &ir.GenerationError{
				Code:     ir.CodeUnsupportedFieldType,
				Message:  "field " + field.Name + ": " + err.Error(),
				Source:   field.Source,
				TypeName: s.Name.Name,
				Field:    field.Name,
			}
		}
		fragments = append(fragments, RenderField(recv, field, sh, local))
	}
	local.Add("strings")

	writeMethodDoc(buf, s)
	writeSignature(buf, s, recv)
	buf.WriteString("\treturn " + strconv.Quote(s.Name.Name+" { ") + " + strings.Join([]string{")
	if len(fragments) > 0 {
		buf.WriteString("\n")
		for _, frag := range fragments {
			buf.WriteString("\t\t")
			buf.WriteString(indent(string(frag), "\t\t"))
			buf.WriteString(",\n")
		}
		buf.WriteString("\t")
	}
	buf.WriteString("}, \", \") + \" }\"\n")
	buf.WriteString("}\n")

	imports.Merge(local)
	return nil
}

// DebugStrategy delegates to the %+v verb. The value is converted to a
// locally defined type first so a String method that calls Represent
// cannot recurse.
type DebugStrategy struct{}

// Name returns "debug".
func (*DebugStrategy) Name() string { return StrategyDebug }

// EmitMethod writes a method that formats the whole value with %+v.
func (*DebugStrategy) EmitMethod(buf *bytes.Buffer, s *ir.StructDescriptor, imports *ImportSet) error {
	recv, err := receiverName(s)
	if err != nil {
		return err
	}

	value := recv
	if s.PointerReceiver {
		value = "*" + recv
	}

	writeMethodDoc(buf, s)
	writeSignature(buf, s, recv)
	format := strconv.Quote(s.Name.Name + " %+v")
	if len(s.TypeParameters) > 0 {
		// Generic functions cannot declare local types.
		buf.WriteString("\treturn fmt.Sprintf(" + format + ", " + value + ")\n")
	} else {
		buf.WriteString("\ttype plain " + s.Name.Name + "\n")
		buf.WriteString("\treturn fmt.Sprintf(" + format + ", plain(" + value + "))\n")
	}
	buf.WriteString("}\n")

	imports.Add("fmt")
	return nil
}

func writeMethodDoc(buf *bytes.Buffer, s *ir.StructDescriptor) {
	buf.WriteString("// " + MethodName + " returns the textual representation of " + s.Name.Name + ".\n")
}

func writeSignature(buf *bytes.Buffer, s *ir.StructDescriptor, recv string) {
	typ := s.Name.Name
	if len(s.TypeParameters) > 0 {
		typ += "[" + strings.Join(s.TypeParameters, ", ") + "]"
	}
	if s.PointerReceiver {
		typ = "*" + typ
	}
	buf.WriteString("func (" + recv + " " + typ + ") " + MethodName + "() string {\n")
}

// reservedReceivers are identifiers the generated body depends on.
var reservedReceivers = map[string]bool{
	localItems: true,
	localItem:  true,
	"fmt":      true,
	"strings":  true,
	"strconv":  true,
	"plain":    true,
	"_":        true,
}

// receiverName returns the receiver override, or the lowercased first
// letter of the type name.
func receiverName(s *ir.StructDescriptor) (string, error) {
	if s.Receiver != "" {
		if !token.IsIdentifier(s.Receiver) || reservedReceivers[s.Receiver] || isTypeParam(s, s.Receiver) {
			return "", &ir.GenerationError{
				Code:     ir.CodeUnsupportedShape,
				Message:  fmt.Sprintf("receiver name %q is not usable in generated code", s.Receiver),
				Source:   s.Source,
				TypeName: s.Name.Name,
			}
		}
		return s.Receiver, nil
	}

	r, _ := utf8.DecodeRuneInString(s.Name.Name)
	name := "r"
	if unicode.IsLetter(r) {
		name = string(unicode.ToLower(r))
	}
	if isTypeParam(s, name) {
		name = "rv"
	}
	return name, nil
}

func isTypeParam(s *ir.StructDescriptor, name string) bool {
	for _, tp := range s.TypeParameters {
		if tp == name {
			return true
		}
	}
	return false
}

// indent prefixes every line after the first with prefix.
func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
