package provider

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"

	"github.com/broady/repr/internal/directive"
	"github.com/broady/repr/reprgen/ir"
)

// SyntaxProvider extracts struct definitions from parsed source without
// type-checking. Types are matched by how they are written: a string
// element must be spelled string, an integer element int32 or rune.
//
// Capability is known only for types declared in the package being
// processed; for everything else it is left to the Go compiler.
type SyntaxProvider struct{}

// SyntaxInputOptions configures syntax-based extraction.
type SyntaxInputOptions struct {
	// Packages are package patterns in go command syntax.
	Packages []string

	// Dir is the working directory for pattern resolution.
	Dir string

	// RootTypes names types to generate in addition to marked ones.
	RootTypes []string

	// BuildTags select files, as with the go command.
	BuildTags []string

	// Env overrides the environment of the underlying go command.
	Env []string
}

// BuildSchemas resolves the patterns to files with the go command, then
// parses them. One Schema is returned per package, ordered by import path.
func (p *SyntaxProvider) BuildSchemas(ctx context.Context, opts SyntaxInputOptions) ([]*ir.Schema, error) {
	if len(opts.Packages) == 0 {
		return nil, errors.New("no packages specified")
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles,
		Dir:     opts.Dir,
		Env:     opts.Env,
	}
	if len(opts.BuildTags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(opts.BuildTags, ",")}
	}
	pkgs, err := packages.Load(cfg, opts.Packages...)
	if err != nil {
		return nil, errors.Wrap(err, "load packages")
	}
	if len(pkgs) == 0 {
		return nil, errors.Newf("no packages found matching %s", strings.Join(opts.Packages, " "))
	}
	if len(opts.RootTypes) > 0 && len(pkgs) > 1 {
		return nil, errors.WithHint(
			errors.Newf("%d packages match %s", len(pkgs), strings.Join(opts.Packages, " ")),
			"explicit type names require a single package; use //reprgen:derive to mark types across packages",
		)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].PkgPath < pkgs[j].PkgPath })

	var schemas []*ir.Schema
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, e := range pkg.Errors {
			if e.Kind == packages.ListError {
				return nil, errors.Newf("package %s: %s", pkg.PkgPath, e.Msg)
			}
		}
		s, err := p.ParseFiles(pkg.PkgPath, pkg.GoFiles, opts.RootTypes)
		if err != nil {
			return nil, err
		}
		s.Package.Dir = packageDir(pkg)
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// ParseFiles builds a Schema from the named files of a single package.
// Parse errors are recorded as warnings; whatever parsed is still used.
func (p *SyntaxProvider) ParseFiles(pkgPath string, filenames []string, rootTypes []string) (*ir.Schema, error) {
	fset := token.NewFileSet()
	schema := &ir.Schema{Package: ir.PackageInfo{Path: pkgPath}}

	var files []*ast.File
	for _, name := range filenames {
		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			schema.AddWarning(ir.Warning{Code: "parse_error", Message: err.Error()})
		}
		if f == nil || f.Name == nil {
			continue
		}
		if schema.Package.Name == "" {
			schema.Package.Name = f.Name.Name
		}
		files = append(files, f)
	}
	if schema.Package.Dir == "" && len(filenames) > 0 {
		schema.Package.Dir = path.Dir(strings.ReplaceAll(filenames[0], `\`, "/"))
	}

	directives, err := directive.ParseFiles(fset, files)
	if err != nil {
		return nil, errors.Wrapf(err, "package %s", pkgPath)
	}

	b := newSyntaxBuilder(fset, files, pkgPath)

	type target struct {
		ts   *ast.TypeSpec
		opts directive.Options
	}
	var targets []target
	seen := make(map[string]bool)
	add := func(name string, opts directive.Options) {
		if seen[name] {
			return
		}
		seen[name] = true
		ts := b.specs[name]
		if ts == nil {
			schema.AddDiagnostic(typeNotFound(name, pkgPath))
			return
		}
		targets = append(targets, target{ts: ts, opts: opts})
	}
	for _, d := range directives {
		add(d.TypeName, d.Options)
	}
	for _, name := range rootTypes {
		add(name, directive.Options{})
	}
	sort.SliceStable(targets, func(i, j int) bool {
		pi, pj := fset.Position(targets[i].ts.Pos()), fset.Position(targets[j].ts.Pos())
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		return pi.Offset < pj.Offset
	})

	for _, t := range targets {
		s, gerr := b.extract(t.ts)
		if gerr != nil {
			schema.AddDiagnostic(gerr)
			continue
		}
		s.Strategy = t.opts.Strategy
		s.Receiver = t.opts.Receiver
		s.PointerReceiver = t.opts.Pointer
		schema.AddStruct(s)
	}
	return schema, nil
}

type syntaxBuilder struct {
	fset    *token.FileSet
	pkgPath string
	specs   map[string]*ast.TypeSpec
	methods map[string]token.Position

	// representers are local types known to have a Represent method
	// outside previous reprgen output.
	representers map[string]bool

	// imports maps each file to its local import names.
	imports map[*ast.File]map[string]string
	fileOf  map[*ast.TypeSpec]*ast.File
}

func newSyntaxBuilder(fset *token.FileSet, files []*ast.File, pkgPath string) *syntaxBuilder {
	b := &syntaxBuilder{
		fset:         fset,
		pkgPath:      pkgPath,
		specs:        typeSpecs(files),
		methods:      handWrittenMethods(fset, files),
		representers: make(map[string]bool),
		imports:      make(map[*ast.File]map[string]string),
		fileOf:       make(map[*ast.TypeSpec]*ast.File),
	}
	for name := range b.methods {
		b.representers[name] = true
	}
	for _, f := range files {
		names := make(map[string]string)
		for _, imp := range f.Imports {
			p, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				continue
			}
			local := guessPackageName(p)
			if imp.Name != nil {
				local = imp.Name.Name
			}
			names[local] = p
		}
		b.imports[f] = names
		ast.Inspect(f, func(n ast.Node) bool {
			if ts, ok := n.(*ast.TypeSpec); ok {
				b.fileOf[ts] = f
			}
			return true
		})
	}
	for name, ts := range b.specs {
		if it, ok := ts.Type.(*ast.InterfaceType); ok && declaresMethod(it, MethodName) {
			b.representers[name] = true
		}
	}
	return b
}

var versionSuffix = regexp.MustCompile(`^v[0-9]+$`)

// guessPackageName returns the conventional package name for an import
// path: the last element, skipping a major version suffix.
func guessPackageName(importPath string) string {
	elems := strings.Split(importPath, "/")
	name := elems[len(elems)-1]
	if versionSuffix.MatchString(name) && len(elems) > 1 {
		name = elems[len(elems)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	return strings.ReplaceAll(name, "-", "_")
}

func declaresMethod(it *ast.InterfaceType, name string) bool {
	if it.Methods == nil {
		return false
	}
	for _, m := range it.Methods.List {
		for _, n := range m.Names {
			if n.Name == name {
				return true
			}
		}
	}
	return false
}

func (b *syntaxBuilder) extract(ts *ast.TypeSpec) (*ir.StructDescriptor, *ir.GenerationError) {
	name := ts.Name.Name
	pos := b.fset.Position(ts.Name.Pos())
	src := sourceOf(pos)

	st, ok := ts.Type.(*ast.StructType)
	if !ok || ts.Assign.IsValid() {
		return nil, ir.UnsupportedShape(name, src, false)
	}
	if m, ok := b.methods[name]; ok {
		return nil, duplicateMethod(name, pos, m)
	}

	desc := &ir.StructDescriptor{
		Name:   ir.GoIdentifier{Name: name, Package: b.pkgPath},
		Source: src,
	}
	typeParams := make(map[string]bool)
	if ts.TypeParams != nil {
		for _, f := range ts.TypeParams.List {
			for _, n := range f.Names {
				desc.TypeParameters = append(desc.TypeParameters, n.Name)
				typeParams[n.Name] = true
			}
		}
	}

	file := b.fileOf[ts]
	for _, f := range st.Fields.List {
		if len(f.Names) == 0 {
			return nil, ir.UnsupportedShape(name, sourceOf(b.fset.Position(f.Pos())), true)
		}
		tag := ""
		if f.Tag != nil {
			tag, _ = strconv.Unquote(f.Tag.Value)
		}
		for _, n := range f.Names {
			if n.Name == MethodName {
				return nil, &ir.GenerationError{
					Code:     ir.CodeDuplicateMethod,
					Message:  name + " has a field named " + MethodName,
					Source:   sourceOf(b.fset.Position(n.Pos())),
					TypeName: name,
					Field:    n.Name,
				}
			}
			label, keep := fieldLabel(n.Name, tag)
			if !keep {
				continue
			}
			desc.Fields = append(desc.Fields, ir.FieldDescriptor{
				Name:   n.Name,
				Label:  label,
				Type:   b.convertExpr(f.Type, file, typeParams),
				Source: sourceOf(b.fset.Position(n.Pos())),
			})
		}
	}
	return desc, nil
}

// predeclared maps predeclared type names to descriptors.
var predeclared = map[string]func() ir.TypeDescriptor{
	"bool":       func() ir.TypeDescriptor { return ir.Bool() },
	"string":     func() ir.TypeDescriptor { return ir.String() },
	"int":        func() ir.TypeDescriptor { return ir.Int(0) },
	"int8":       func() ir.TypeDescriptor { return ir.Int(8) },
	"int16":      func() ir.TypeDescriptor { return ir.Int(16) },
	"int32":      func() ir.TypeDescriptor { return ir.Int(32) },
	"rune":       func() ir.TypeDescriptor { return ir.Int(32) },
	"int64":      func() ir.TypeDescriptor { return ir.Int(64) },
	"uint":       func() ir.TypeDescriptor { return ir.Uint(0) },
	"uintptr":    func() ir.TypeDescriptor { return ir.Uint(0) },
	"uint8":      func() ir.TypeDescriptor { return ir.Uint(8) },
	"byte":       func() ir.TypeDescriptor { return ir.Uint(8) },
	"uint16":     func() ir.TypeDescriptor { return ir.Uint(16) },
	"uint32":     func() ir.TypeDescriptor { return ir.Uint(32) },
	"uint64":     func() ir.TypeDescriptor { return ir.Uint(64) },
	"float32":    func() ir.TypeDescriptor { return ir.Float(32) },
	"float64":    func() ir.TypeDescriptor { return ir.Float(64) },
	"complex64":  func() ir.TypeDescriptor { return ir.Complex(64) },
	"complex128": func() ir.TypeDescriptor { return ir.Complex(128) },
	"any":        func() ir.TypeDescriptor { return ir.Any() },
	"error": func() ir.TypeDescriptor {
		return ir.Ref("error", "").WithCapability(ir.CapabilityAbsent)
	},
}

func (b *syntaxBuilder) convertExpr(expr ast.Expr, file *ast.File, typeParams map[string]bool) ir.TypeDescriptor {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return b.convertExpr(e.X, file, typeParams)

	case *ast.Ident:
		if typeParams[e.Name] {
			return ir.TypeParam(e.Name, ir.CapabilityUnknown)
		}
		if _, local := b.specs[e.Name]; !local {
			if mk, ok := predeclared[e.Name]; ok {
				return mk()
			}
		}
		if mk := b.predeclaredAlias(e.Name); mk != nil {
			return mk()
		}
		return ir.Ref(e.Name, b.pkgPath).
			WithCapability(b.localCapability(e.Name)).
			WithUnderlying(b.localUnderlying(e.Name))

	case *ast.SelectorExpr:
		x, ok := e.X.(*ast.Ident)
		if !ok {
			return ir.Invalid(types.ExprString(e))
		}
		pkgPath, ok := b.imports[file][x.Name]
		if !ok {
			return ir.Invalid(types.ExprString(e))
		}
		if pkgPath == "unsafe" && e.Sel.Name == "Pointer" {
			return ir.Opaque(ir.OpaqueUnsafePointer, "unsafe.Pointer")
		}
		return ir.Ref(e.Sel.Name, pkgPath)

	case *ast.IndexExpr, *ast.IndexListExpr:
		var base ast.Expr
		var args []ast.Expr
		if ie, ok := e.(*ast.IndexExpr); ok {
			base, args = ie.X, []ast.Expr{ie.Index}
		} else {
			ile := e.(*ast.IndexListExpr)
			base, args = ile.X, ile.Indices
		}
		ref, ok := b.convertExpr(base, file, typeParams).(*ir.ReferenceDescriptor)
		if !ok {
			return ir.Invalid(types.ExprString(expr))
		}
		for _, a := range args {
			ref.TypeArgs = append(ref.TypeArgs, b.convertExpr(a, file, typeParams))
		}
		return ref

	case *ast.StarExpr:
		return ir.Ptr(b.convertExpr(e.X, file, typeParams))

	case *ast.ArrayType:
		elem := b.convertExpr(e.Elt, file, typeParams)
		if e.Len == nil {
			return ir.Slice(elem)
		}
		n := -1
		if lit, ok := e.Len.(*ast.BasicLit); ok && lit.Kind == token.INT {
			if v, err := strconv.ParseInt(lit.Value, 0, 64); err == nil && v > 0 {
				n = int(v)
			}
		}
		return ir.Array(elem, n)

	case *ast.MapType:
		return ir.Map(b.convertExpr(e.Key, file, typeParams), b.convertExpr(e.Value, file, typeParams))

	case *ast.InterfaceType:
		if e.Methods == nil || len(e.Methods.List) == 0 {
			return ir.Any()
		}
		return ir.Opaque(ir.OpaqueInterface, types.ExprString(e))

	case *ast.StructType:
		return ir.Opaque(ir.OpaqueStruct, types.ExprString(e))

	case *ast.FuncType:
		return ir.Opaque(ir.OpaqueFunc, types.ExprString(e))

	case *ast.ChanType:
		return ir.Opaque(ir.OpaqueChan, types.ExprString(e))

	case nil:
		return ir.Invalid("")

	default:
		return ir.Invalid(types.ExprString(expr))
	}
}

// predeclaredAlias follows local aliases such as "type Name = string" to a
// predeclared type. It returns nil when name is not such an alias.
func (b *syntaxBuilder) predeclaredAlias(name string) func() ir.TypeDescriptor {
	for range len(b.specs) {
		ts := b.specs[name]
		if ts == nil || !ts.Assign.IsValid() || ts.TypeParams != nil {
			return nil
		}
		rhs, ok := ts.Type.(*ast.Ident)
		if !ok {
			return nil
		}
		if _, local := b.specs[rhs.Name]; !local {
			return predeclared[rhs.Name]
		}
		name = rhs.Name
	}
	return nil
}

// localUnderlying reports the underlying kind of a type declared in this
// package. Aliases and definitions in terms of other named types are
// unknown.
func (b *syntaxBuilder) localUnderlying(name string) ir.Underlying {
	ts := b.specs[name]
	if ts == nil || ts.Assign.IsValid() {
		return ir.UnderlyingUnknown
	}
	switch t := ts.Type.(type) {
	case *ast.ArrayType:
		if t.Len == nil {
			return ir.UnderlyingSlice
		}
		return ir.UnderlyingOther
	case *ast.Ident, *ast.SelectorExpr, *ast.IndexExpr, *ast.IndexListExpr, *ast.ParenExpr:
		return ir.UnderlyingUnknown
	}
	return ir.UnderlyingOther
}

// localCapability decides capability for a type declared in this package.
// Struct types with embedded fields and interfaces with embedded
// interfaces may gain Represent by promotion, so they stay unknown.
func (b *syntaxBuilder) localCapability(name string) ir.Capability {
	if b.representers[name] {
		return ir.CapabilityPresent
	}
	ts := b.specs[name]
	if ts == nil {
		return ir.CapabilityUnknown
	}
	switch t := ts.Type.(type) {
	case *ast.StructType:
		for _, f := range t.Fields.List {
			if len(f.Names) == 0 {
				return ir.CapabilityUnknown
			}
		}
	case *ast.InterfaceType:
		if t.Methods != nil {
			for _, m := range t.Methods.List {
				if len(m.Names) == 0 {
					return ir.CapabilityUnknown
				}
			}
		}
	}
	if ts.Assign.IsValid() {
		return ir.CapabilityUnknown
	}
	return ir.CapabilityAbsent
}
