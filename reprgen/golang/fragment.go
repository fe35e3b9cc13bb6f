package golang

import (
	"strconv"
	"strings"

	"github.com/broady/repr/reprgen/ir"
	"github.com/broady/repr/reprgen/shape"
)

// Fragment is a Go expression of type string. Evaluated inside a
// Represent method it yields one field's "label: value" text, with no
// leading or trailing separator.
type Fragment string

// Local identifiers used inside generated sequence closures.
// A receiver may not use these names.
const (
	localItems = "items"
	localItem  = "item"
)

// RenderField returns the fragment for field, read through the receiver
// variable recv, according to its classified shape. It records the
// packages the fragment refers to in imports.
func RenderField(recv string, field ir.FieldDescriptor, s shape.Shape, imports *ImportSet) Fragment {
	value := recv + "." + field.Name
	label := field.DisplayName()

	switch s := s.(type) {
	case shape.Sequence:
		return renderSequence(value, label, s.Element, imports)
	default:
		imports.Add("fmt")
		return Fragment(strconv.Quote(label+": ") + " + fmt.Sprint(" + value + ")")
	}
}

func renderSequence(value, label string, el shape.Element, imports *ImportSet) Fragment {
	imports.Add("strings")

	var b strings.Builder
	b.WriteString("func() string {\n")
	b.WriteString("\t" + localItems + " := make([]string, 0, len(" + value + "))\n")
	b.WriteString("\tfor _, " + localItem + " := range " + value + " {\n")
	if el.Pointer {
		b.WriteString("\t\tif " + localItem + " == nil {\n")
		b.WriteString("\t\t\t" + localItems + " = append(" + localItems + ", \"nil\")\n")
		b.WriteString("\t\t\tcontinue\n")
		b.WriteString("\t\t}\n")
	}
	b.WriteString("\t\t" + localItems + " = append(" + localItems + ", " + renderElement(el, imports) + ")\n")
	b.WriteString("\t}\n")
	b.WriteString("\treturn " + strconv.Quote(label+": [") + " + strings.Join(" + localItems + ", \", \") + \"]\"\n")
	b.WriteString("}()")
	return Fragment(b.String())
}

func renderElement(el shape.Element, imports *ImportSet) string {
	switch el.Kind {
	case shape.ElementString:
		// Quotes are not escaped inside the element.
		return `"\""+` + localItem + `+"\""`
	case shape.ElementInteger:
		imports.Add("strconv")
		return "strconv.FormatInt(int64(" + localItem + "), 10)"
	default:
		return localItem + ".Represent()"
	}
}
