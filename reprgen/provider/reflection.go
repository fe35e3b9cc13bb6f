package provider

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/broady/repr/reprgen/ir"
)

// ReflectionProvider describes types using runtime reflection. It backs
// runtime rendering and generation from values (reprgen.FromTypes).
//
// Reflection cannot see type parameter names or source positions, so
// generic types are only described, never generated, and diagnostics carry
// no file location.
type ReflectionProvider struct{}

// ReflectionInputOptions configures reflection-based extraction.
type ReflectionInputOptions struct {
	// RootTypes are the struct types to generate. All must belong to the
	// same package.
	RootTypes []reflect.Type

	// PackageName is the name used in the package clause. Defaults to the
	// last element of the types' import path.
	PackageName string
}

var representerType = reflect.TypeOf((*interface{ Represent() string })(nil)).Elem()

// BuildSchema describes each root type and returns a Schema.
func (p *ReflectionProvider) BuildSchema(ctx context.Context, opts ReflectionInputOptions) (*ir.Schema, error) {
	if len(opts.RootTypes) == 0 {
		return nil, errors.New("no root types provided")
	}

	schema := &ir.Schema{}
	for _, t := range opts.RootTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.PkgPath() == "" {
			return nil, errors.Newf("type %s is not a named type declared in a package", t)
		}
		if schema.Package.Path == "" {
			schema.Package.Path = t.PkgPath()
		} else if schema.Package.Path != t.PkgPath() {
			return nil, errors.WithHint(
				errors.Newf("type %s is in package %s, not %s", t, t.PkgPath(), schema.Package.Path),
				"generate each package separately",
			)
		}
		if strings.Contains(t.Name(), "[") {
			schema.AddDiagnostic(&ir.GenerationError{
				Code:     ir.CodeUnsupportedShape,
				Message:  fmt.Sprintf("generic type %s cannot be generated from a runtime value; use the source provider", t.Name()),
				TypeName: baseName(t.Name()),
			})
			continue
		}
		d, err := p.Describe(t)
		if err != nil {
			var gerr *ir.GenerationError
			if errors.As(err, &gerr) {
				schema.AddDiagnostic(gerr)
				continue
			}
			return nil, err
		}
		schema.AddStruct(d)
	}

	schema.Package.Name = opts.PackageName
	if schema.Package.Name == "" {
		schema.Package.Name = guessPackageName(schema.Package.Path)
	}
	return schema, nil
}

// Describe converts a struct type to a StructDescriptor. A pointer type is
// dereferenced. Errors are *ir.GenerationError.
func (p *ReflectionProvider) Describe(t reflect.Type) (*ir.StructDescriptor, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := baseName(t.Name())
	if name == "" {
		name = t.String()
	}
	if t.Kind() != reflect.Struct {
		return nil, ir.UnsupportedShape(name, ir.Source{}, false)
	}

	desc := &ir.StructDescriptor{
		Name: ir.GoIdentifier{Name: name, Package: t.PkgPath()},
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			return nil, ir.UnsupportedShape(name, ir.Source{}, true)
		}
		label, keep := fieldLabel(sf.Name, string(sf.Tag))
		if !keep {
			continue
		}
		desc.Fields = append(desc.Fields, ir.FieldDescriptor{
			Name:  sf.Name,
			Label: label,
			Type:  convertReflectType(sf.Type),
		})
	}
	return desc, nil
}

func convertReflectType(t reflect.Type) ir.TypeDescriptor {
	// Named types declared in a package are references, whatever their
	// underlying kind; predeclared types have an empty PkgPath.
	if t.Name() != "" && t.PkgPath() != "" {
		ref := ir.Ref(baseName(t.Name()), t.PkgPath())
		if strings.Contains(t.Name(), "[") && t.Kind() == reflect.Slice {
			// Reflection does not expose type arguments; a generic slice
			// type's element is its only recoverable argument.
			ref.TypeArgs = []ir.TypeDescriptor{convertReflectType(t.Elem())}
		}
		under := ir.UnderlyingOther
		if t.Kind() == reflect.Slice {
			under = ir.UnderlyingSlice
		}
		return ref.WithCapability(reflectCapability(t)).WithUnderlying(under)
	}

	switch t.Kind() {
	case reflect.Bool:
		return ir.Bool()
	case reflect.String:
		return ir.String()
	case reflect.Int:
		return ir.Int(0)
	case reflect.Int8:
		return ir.Int(8)
	case reflect.Int16:
		return ir.Int(16)
	case reflect.Int32:
		return ir.Int(32)
	case reflect.Int64:
		return ir.Int(64)
	case reflect.Uint, reflect.Uintptr:
		return ir.Uint(0)
	case reflect.Uint8:
		return ir.Uint(8)
	case reflect.Uint16:
		return ir.Uint(16)
	case reflect.Uint32:
		return ir.Uint(32)
	case reflect.Uint64:
		return ir.Uint(64)
	case reflect.Float32:
		return ir.Float(32)
	case reflect.Float64:
		return ir.Float(64)
	case reflect.Complex64:
		return ir.Complex(64)
	case reflect.Complex128:
		return ir.Complex(128)
	case reflect.Pointer:
		return ir.Ptr(convertReflectType(t.Elem()))
	case reflect.Slice:
		return ir.Slice(convertReflectType(t.Elem()))
	case reflect.Array:
		n := t.Len()
		if n == 0 {
			n = -1
		}
		return ir.Array(convertReflectType(t.Elem()), n)
	case reflect.Map:
		return ir.Map(convertReflectType(t.Key()), convertReflectType(t.Elem()))
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return ir.Any()
		}
		if t.Name() == "error" {
			return ir.Ref("error", "").WithCapability(ir.CapabilityAbsent)
		}
		return ir.Opaque(ir.OpaqueInterface, t.String())
	case reflect.Struct:
		return ir.Opaque(ir.OpaqueStruct, t.String())
	case reflect.Func:
		return ir.Opaque(ir.OpaqueFunc, t.String())
	case reflect.Chan:
		return ir.Opaque(ir.OpaqueChan, t.String())
	case reflect.UnsafePointer:
		return ir.Opaque(ir.OpaqueUnsafePointer, "unsafe.Pointer")
	default:
		return ir.Invalid(t.String())
	}
}

// reflectCapability checks the method set of *T, matching the addressable
// lookup used for source types.
func reflectCapability(t reflect.Type) ir.Capability {
	if t.Implements(representerType) || reflect.PointerTo(t).Implements(representerType) {
		return ir.CapabilityPresent
	}
	return ir.CapabilityAbsent
}

// baseName strips type arguments from a reflected type name:
// "Page[example.com/shop.Item]" becomes "Page".
func baseName(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}
