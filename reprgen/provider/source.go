package provider

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"

	"github.com/broady/repr/internal/directive"
	"github.com/broady/repr/reprgen/ir"
)

// SourceProvider extracts struct definitions by type-checking Go source.
type SourceProvider struct{}

// SourceInputOptions configures source-based extraction.
type SourceInputOptions struct {
	// Packages are package patterns in go command syntax ("." or "./...").
	Packages []string

	// Dir is the working directory for pattern resolution. Empty means the
	// current directory.
	Dir string

	// RootTypes names types to generate in addition to those marked with
	// //reprgen:derive. Requires a single package.
	RootTypes []string

	// BuildTags are passed to the build system as -tags.
	BuildTags []string

	// Env overrides the environment of the underlying go command.
	// Nil means the current process environment.
	Env []string
}

// loadMode is the minimal go/packages mode for extraction.
const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedModule

// BuildSchemas loads every package matched by opts.Packages and returns one
// Schema per package, ordered by import path.
//
// Packages that fail to type-check are still processed; their errors are
// recorded as warnings. A stale generated file with compile errors must not
// block regeneration.
func (p *SourceProvider) BuildSchemas(ctx context.Context, opts SourceInputOptions) ([]*ir.Schema, error) {
	if len(opts.Packages) == 0 {
		return nil, errors.New("no packages specified")
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
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

	schemas := make([]*ir.Schema, 0, len(pkgs))
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := buildPackageSchema(pkg, opts.RootTypes)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// BuildSchema is BuildSchemas for patterns that match exactly one package.
func (p *SourceProvider) BuildSchema(ctx context.Context, opts SourceInputOptions) (*ir.Schema, error) {
	schemas, err := p.BuildSchemas(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(schemas) != 1 {
		return nil, errors.Newf("%d packages match %s; specify a single package", len(schemas), strings.Join(opts.Packages, " "))
	}
	return schemas[0], nil
}

func buildPackageSchema(pkg *packages.Package, rootTypes []string) (*ir.Schema, error) {
	schema := &ir.Schema{
		Package: ir.PackageInfo{Path: pkg.PkgPath, Name: pkg.Name, Dir: packageDir(pkg)},
	}

	// The go command repeats compile errors as list errors. They are
	// only fatal when nothing could be parsed or type-checked.
	usable := pkg.Types != nil && pkg.Fset != nil && len(pkg.Syntax) > 0
	for _, e := range pkg.Errors {
		if e.Kind == packages.ListError && !usable {
			return nil, errors.Newf("package %s: %s", pkg.PkgPath, e.Msg)
		}
		schema.AddWarning(ir.Warning{
			Code:    "package_error",
			Message: e.Error(),
		})
	}
	if !usable {
		return nil, errors.Newf("package %s has no type information", pkg.PkgPath)
	}

	directives, err := directive.ParseFiles(pkg.Fset, pkg.Syntax)
	if err != nil {
		return nil, errors.Wrapf(err, "package %s", pkg.PkgPath)
	}

	b := &sourceBuilder{
		pkg:     pkg,
		schema:  schema,
		specs:   typeSpecs(pkg.Syntax),
		methods: handWrittenMethods(pkg.Fset, pkg.Syntax),

		generated: make(map[string]bool),
	}
	for _, f := range pkg.Syntax {
		if isGeneratedFile(f) {
			b.generated[pkg.Fset.Position(f.Package).Filename] = true
		}
	}

	type target struct {
		tn   *types.TypeName
		opts directive.Options
	}
	var targets []target
	seen := make(map[string]bool)
	add := func(name string, opts directive.Options) {
		if seen[name] {
			return
		}
		seen[name] = true
		tn, ok := pkg.Types.Scope().Lookup(name).(*types.TypeName)
		if !ok {
			schema.AddDiagnostic(typeNotFound(name, pkg.PkgPath))
			return
		}
		targets = append(targets, target{tn: tn, opts: opts})
	}
	for _, d := range directives {
		add(d.TypeName, d.Options)
	}
	for _, name := range rootTypes {
		add(name, directive.Options{})
	}

	sort.SliceStable(targets, func(i, j int) bool {
		pi, pj := pkg.Fset.Position(targets[i].tn.Pos()), pkg.Fset.Position(targets[j].tn.Pos())
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		return pi.Offset < pj.Offset
	})

	for _, t := range targets {
		s, gerr := b.extract(t.tn)
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

func packageDir(pkg *packages.Package) string {
	if pkg.Dir != "" {
		return pkg.Dir
	}
	if len(pkg.GoFiles) > 0 {
		return filepath.Dir(pkg.GoFiles[0])
	}
	return ""
}

// sourceBuilder extracts structs from one type-checked package.
type sourceBuilder struct {
	pkg     *packages.Package
	schema  *ir.Schema
	specs   map[string]*ast.TypeSpec
	methods map[string]token.Position

	// generated holds the filenames of previous reprgen output.
	generated map[string]bool
}

func (b *sourceBuilder) position(pos token.Pos) token.Position {
	return b.pkg.Fset.Position(pos)
}

// extract converts a type declaration into a StructDescriptor. It does not
// modify the package.
func (b *sourceBuilder) extract(tn *types.TypeName) (*ir.StructDescriptor, *ir.GenerationError) {
	name := tn.Name()
	pos := b.position(tn.Pos())
	src := sourceOf(pos)

	named, ok := tn.Type().(*types.Named)
	if !ok || tn.IsAlias() {
		return nil, ir.UnsupportedShape(name, src, false)
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return nil, ir.UnsupportedShape(name, src, false)
	}

	if m, ok := b.methods[name]; ok {
		return nil, duplicateMethod(name, pos, m)
	}

	var exprs map[string]ast.Expr
	if ts := b.specs[name]; ts != nil {
		astStruct, _ := ts.Type.(*ast.StructType)
		exprs = fieldExprs(astStruct)
	}

	desc := &ir.StructDescriptor{
		Name:   ir.GoIdentifier{Name: name, Package: b.pkg.PkgPath},
		Source: src,
	}
	if tps := named.TypeParams(); tps != nil {
		for i := 0; i < tps.Len(); i++ {
			desc.TypeParameters = append(desc.TypeParameters, tps.At(i).Obj().Name())
		}
	}

	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if f.Embedded() {
			return nil, ir.UnsupportedShape(name, sourceOf(b.position(f.Pos())), true)
		}
		if f.Name() == MethodName {
			return nil, &ir.GenerationError{
				Code:     ir.CodeDuplicateMethod,
				Message:  name + " has a field named " + MethodName,
				Source:   sourceOf(b.position(f.Pos())),
				TypeName: name,
				Field:    f.Name(),
			}
		}
		label, keep := fieldLabel(f.Name(), st.Tag(i))
		if !keep {
			continue
		}
		desc.Fields = append(desc.Fields, ir.FieldDescriptor{
			Name:   f.Name(),
			Label:  label,
			Type:   b.convertType(f.Type(), exprs[f.Name()]),
			Source: sourceOf(b.position(f.Pos())),
		})
	}
	return desc, nil
}

// convertType maps a go/types type to a TypeDescriptor. expr is the type
// expression as written, when known; it names invalid types in messages.
func (b *sourceBuilder) convertType(t types.Type, expr ast.Expr) ir.TypeDescriptor {
	if p, ok := expr.(*ast.ParenExpr); ok {
		return b.convertType(t, p.X)
	}

	switch typ := t.(type) {
	case *types.Alias:
		return b.convertType(types.Unalias(typ), expr)

	case *types.Basic:
		return convertBasic(typ, expr)

	case *types.Named:
		obj := typ.Obj()
		pkgPath := ""
		if obj.Pkg() != nil {
			pkgPath = obj.Pkg().Path()
		}
		ref := ir.Ref(obj.Name(), pkgPath)
		if args := typ.TypeArgs(); args != nil {
			argExprs := indexExprs(expr)
			for i := 0; i < args.Len(); i++ {
				var ae ast.Expr
				if i < len(argExprs) {
					ae = argExprs[i]
				}
				ref.TypeArgs = append(ref.TypeArgs, b.convertType(args.At(i), ae))
			}
		}
		under := ir.UnderlyingOther
		if _, ok := typ.Underlying().(*types.Slice); ok {
			under = ir.UnderlyingSlice
		}
		return ref.WithCapability(b.capability(typ)).WithUnderlying(under)

	case *types.Pointer:
		var inner ast.Expr
		if se, ok := expr.(*ast.StarExpr); ok {
			inner = se.X
		}
		return ir.Ptr(b.convertType(typ.Elem(), inner))

	case *types.Slice:
		return ir.Slice(b.convertType(typ.Elem(), arrayElem(expr)))

	case *types.Array:
		n := int(typ.Len())
		if n == 0 {
			n = -1
		}
		return ir.Array(b.convertType(typ.Elem(), arrayElem(expr)), n)

	case *types.Map:
		var k, v ast.Expr
		if mt, ok := expr.(*ast.MapType); ok {
			k, v = mt.Key, mt.Value
		}
		return ir.Map(b.convertType(typ.Key(), k), b.convertType(typ.Elem(), v))

	case *types.Interface:
		if typ.Empty() {
			return ir.Any()
		}
		return ir.Opaque(ir.OpaqueInterface, typ.String())

	case *types.Struct:
		return ir.Opaque(ir.OpaqueStruct, typ.String())

	case *types.TypeParam:
		return ir.TypeParam(typ.Obj().Name(), b.capability(typ))

	case *types.Signature:
		return ir.Opaque(ir.OpaqueFunc, exprString(t, expr))

	case *types.Chan:
		return ir.Opaque(ir.OpaqueChan, exprString(t, expr))

	default:
		return ir.Invalid(exprString(t, expr))
	}
}

func convertBasic(b *types.Basic, expr ast.Expr) ir.TypeDescriptor {
	switch b.Kind() {
	case types.Bool, types.UntypedBool:
		return ir.Bool()
	case types.String, types.UntypedString:
		return ir.String()
	case types.Int, types.UntypedInt:
		return ir.Int(0)
	case types.Int8:
		return ir.Int(8)
	case types.Int16:
		return ir.Int(16)
	case types.Int32, types.UntypedRune:
		return ir.Int(32)
	case types.Int64:
		return ir.Int(64)
	case types.Uint, types.Uintptr:
		return ir.Uint(0)
	case types.Uint8:
		return ir.Uint(8)
	case types.Uint16:
		return ir.Uint(16)
	case types.Uint32:
		return ir.Uint(32)
	case types.Uint64:
		return ir.Uint(64)
	case types.Float32:
		return ir.Float(32)
	case types.Float64, types.UntypedFloat:
		return ir.Float(64)
	case types.Complex64:
		return ir.Complex(64)
	case types.Complex128, types.UntypedComplex:
		return ir.Complex(128)
	case types.UnsafePointer:
		return ir.Opaque(ir.OpaqueUnsafePointer, "unsafe.Pointer")
	case types.UntypedNil:
		return ir.Any()
	default:
		return ir.Invalid(exprString(b, expr))
	}
}

// capability reports whether t has Represent() string in the method set of
// an addressable value of t. Methods from this package's previous reprgen
// output do not count: whether they survive is decided by this run.
func (b *sourceBuilder) capability(t types.Type) ir.Capability {
	obj, _, _ := types.LookupFieldOrMethod(t, true, nil, MethodName)
	fn, ok := obj.(*types.Func)
	if !ok {
		return ir.CapabilityAbsent
	}
	if b.generated[b.position(fn.Pos()).Filename] {
		return ir.CapabilityAbsent
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Params().Len() != 0 || sig.Results().Len() != 1 {
		return ir.CapabilityAbsent
	}
	if res, ok := sig.Results().At(0).Type().(*types.Basic); !ok || res.Kind() != types.String {
		return ir.CapabilityAbsent
	}
	return ir.CapabilityPresent
}

func arrayElem(expr ast.Expr) ast.Expr {
	if at, ok := expr.(*ast.ArrayType); ok {
		return at.Elt
	}
	return nil
}

func indexExprs(expr ast.Expr) []ast.Expr {
	switch e := expr.(type) {
	case *ast.IndexExpr:
		return []ast.Expr{e.Index}
	case *ast.IndexListExpr:
		return e.Indices
	}
	return nil
}

// exprString prefers the source spelling, which survives type errors.
func exprString(t types.Type, expr ast.Expr) string {
	if expr != nil {
		return types.ExprString(expr)
	}
	if b, ok := t.(*types.Basic); ok && b.Kind() == types.Invalid {
		return "invalid type"
	}
	return fmt.Sprint(t)
}
