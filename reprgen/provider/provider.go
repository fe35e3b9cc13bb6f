// Package provider extracts struct definitions from Go code and converts
// them to the intermediate representation.
//
// Three providers share the same extraction rules:
//
//   - SourceProvider loads packages with go/packages and reads full type
//     information, including method sets.
//   - SyntaxProvider parses files with go/parser only. It is faster and
//     works on packages that do not type-check, but cannot always tell
//     whether a type has a Represent method.
//   - ReflectionProvider describes runtime types.
package provider

import (
	"go/ast"
	"go/token"
	"reflect"
	"strings"

	"github.com/broady/repr/reprgen/ir"
)

// TagKey is the struct tag that renames or skips a field.
//
//	Name  string `repr:"name"` // label "name"
//	cache []byte `repr:"-"`    // not rendered
const TagKey = "repr"

// MethodName is the method generated for each struct.
const MethodName = "Represent"

// fieldLabel applies the repr tag. It returns the label and whether the
// field is kept.
func fieldLabel(name, tag string) (string, bool) {
	if name == "_" {
		return "", false
	}
	v, ok := reflect.StructTag(tag).Lookup(TagKey)
	if !ok || v == "" {
		return name, true
	}
	if v == "-" {
		return "", false
	}
	return v, true
}

func sourceOf(p token.Position) ir.Source {
	if !p.IsValid() {
		return ir.Source{}
	}
	return ir.Source{File: p.Filename, Line: p.Line, Column: p.Column}
}

// isGeneratedFile reports whether f is a previous reprgen output file.
// Methods declared there are replaced, not duplicated.
func isGeneratedFile(f *ast.File) bool {
	for _, cg := range f.Comments {
		if cg.Pos() >= f.Package {
			break
		}
		for _, c := range cg.List {
			if strings.TrimSpace(c.Text) == ir.GeneratedHeader {
				return true
			}
		}
	}
	return false
}

// typeSpecs indexes top-level type declarations by name.
func typeSpecs(files []*ast.File) map[string]*ast.TypeSpec {
	specs := make(map[string]*ast.TypeSpec)
	for _, f := range files {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, s := range gd.Specs {
				ts := s.(*ast.TypeSpec)
				specs[ts.Name.Name] = ts
			}
		}
	}
	return specs
}

// fieldExprs maps field names to their declared type expressions.
func fieldExprs(st *ast.StructType) map[string]ast.Expr {
	exprs := make(map[string]ast.Expr)
	if st == nil || st.Fields == nil {
		return exprs
	}
	for _, f := range st.Fields.List {
		for _, n := range f.Names {
			exprs[n.Name] = f.Type
		}
	}
	return exprs
}

// receiverBase returns the type name of a method receiver, stripping the
// pointer and any type parameters.
func receiverBase(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return ""
	}
	expr := fd.Recv.List[0].Type
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

// handWrittenMethods finds Represent methods declared outside reprgen
// output files, keyed by receiver type name.
func handWrittenMethods(fset *token.FileSet, files []*ast.File) map[string]token.Position {
	found := make(map[string]token.Position)
	for _, f := range files {
		if isGeneratedFile(f) {
			continue
		}
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Name.Name != MethodName {
				continue
			}
			if base := receiverBase(fd); base != "" {
				found[base] = fset.Position(fd.Name.Pos())
			}
		}
	}
	return found
}

func duplicateMethod(typeName string, src, method token.Position) *ir.GenerationError {
	return &ir.GenerationError{
		Code:     ir.CodeDuplicateMethod,
		Message:  typeName + " already declares " + MethodName + " at " + method.String(),
		Source:   sourceOf(src),
		TypeName: typeName,
	}
}

func typeNotFound(name, pkg string) *ir.GenerationError {
	return &ir.GenerationError{
		Code:     ir.CodeTypeNotFound,
		Message:  "type " + name + " not found in package " + pkg,
		TypeName: name,
	}
}
