// Package repr renders structs as text of the form
//
//	TypeName { field1: value1, field2: value2 }
//
// The usual way to get this text is the Represent method that reprgen
// generates (see package github.com/broady/repr/reprgen). Sprint produces
// the same text at runtime with reflection, for values whose type has no
// generated method.
package repr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/broady/repr/reprgen/ir"
	"github.com/broady/repr/reprgen/provider"
	"github.com/broady/repr/reprgen/shape"
)

// Representable is implemented by types with a textual representation.
// reprgen generates this method for marked structs.
type Representable interface {
	Represent() string
}

// Errors returned by Sprint, for use with errors.Is.
var (
	ErrUnsupportedShape         = ir.ErrUnsupportedShape
	ErrMalformedGenericArgument = ir.ErrMalformedGenericArgument
	ErrMissingCapability        = ir.ErrMissingCapability
	ErrUnsupportedFieldType     = ir.ErrUnsupportedFieldType
)

// DefaultCacheSize is the number of type layouts a Printer keeps when
// CacheSize is zero.
const DefaultCacheSize = 256

// Printer renders values with reflection. The zero value is ready to use
// and safe for concurrent use. Fields must not change after first use.
type Printer struct {
	// SequenceTypes lists generic named slice types rendered element by
	// element, as "import/path.Name".
	SequenceTypes []string

	// CacheSize bounds the number of cached type layouts.
	CacheSize int

	once       sync.Once
	classifier *shape.Classifier
	layouts    *lru.Cache[reflect.Type, *layout]
}

var defaultPrinter Printer

// Sprint renders v, a struct or pointer to struct. A nil pointer renders
// as "nil".
func Sprint(v any) (string, error) {
	return defaultPrinter.Sprint(v)
}

// MustSprint is like Sprint but panics on error.
func MustSprint(v any) string {
	s, err := defaultPrinter.Sprint(v)
	if err != nil {
		panic(err)
	}
	return s
}

type layout struct {
	name   string
	fields []fieldLayout
}

type fieldLayout struct {
	index int
	label string
	shape shape.Shape
}

// Sprint renders v. Errors are *ir.GenerationError, matching what reprgen
// reports for the same type at generation time.
func (p *Printer) Sprint(v any) (string, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return "", &ir.GenerationError{Code: ir.CodeUnsupportedShape, Message: ir.MsgOnlyStructs}
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "nil", nil
		}
		rv = rv.Elem()
	}
	l, err := p.layout(rv.Type())
	if err != nil {
		return "", err
	}
	if !rv.CanAddr() {
		// Addressable values let unexported fields be read like the
		// generated method reads them.
		addr := reflect.New(rv.Type()).Elem()
		addr.Set(rv)
		rv = addr
	}
	return p.render(rv, l), nil
}

func (p *Printer) init() {
	p.once.Do(func() {
		ids := make([]ir.GoIdentifier, 0, len(p.SequenceTypes))
		for _, s := range p.SequenceTypes {
			ids = append(ids, ir.ParseGoIdentifier(s))
		}
		p.classifier = &shape.Classifier{SequenceTypes: ids}

		size := p.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		// New only fails for a non-positive size.
		p.layouts, _ = lru.New[reflect.Type, *layout](size)
	})
}

func (p *Printer) layout(t reflect.Type) (*layout, error) {
	p.init()
	if l, ok := p.layouts.Get(t); ok {
		return l, nil
	}

	d, err := (&provider.ReflectionProvider{}).Describe(t)
	if err != nil {
		return nil, err
	}
	l := &layout{name: d.Name.Name}
	for _, f := range d.Fields {
		s, err := p.classifier.Resolve(f)
		if err != nil {
			err.(*ir.GenerationError).TypeName = d.Name.Name
			return nil, err
		}
		sf, _ := t.FieldByName(f.Name)
		l.fields = append(l.fields, fieldLayout{index: sf.Index[0], label: f.DisplayName(), shape: s})
	}
	p.layouts.Add(t, l)
	return l, nil
}

func (p *Printer) render(rv reflect.Value, l *layout) string {
	parts := make([]string, 0, len(l.fields))
	for _, f := range l.fields {
		fv := readable(rv.Field(f.index))
		seq, ok := f.shape.(shape.Sequence)
		if !ok {
			parts = append(parts, f.label+": "+fmt.Sprint(fv.Interface()))
			continue
		}
		items := make([]string, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			items = append(items, renderElement(fv.Index(i), seq.Element))
		}
		parts = append(parts, f.label+": ["+strings.Join(items, ", ")+"]")
	}
	return l.name + " { " + strings.Join(parts, ", ") + " }"
}

func renderElement(ev reflect.Value, el shape.Element) string {
	switch el.Kind {
	case shape.ElementString:
		return `"` + ev.String() + `"`
	case shape.ElementInteger:
		return strconv.FormatInt(ev.Int(), 10)
	}
	if (el.Pointer || ev.Kind() == reflect.Interface) && ev.IsNil() {
		return "nil"
	}
	if r, ok := ev.Interface().(Representable); ok {
		return r.Represent()
	}
	// Represent is declared on *T; slice elements are addressable.
	return ev.Addr().Interface().(Representable).Represent()
}

// readable returns v with read-only restrictions lifted, so values
// stored in unexported fields can be passed to fmt and method calls.
// v must be addressable.
func readable(v reflect.Value) reflect.Value {
	if v.CanInterface() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}
