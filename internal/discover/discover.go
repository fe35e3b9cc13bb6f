// Package discover finds generator export functions by signature.
//
// An export is a package-level function in a main package with the
// signature
//
//	func() *reprgen.Generator
//
// No directive is needed; the signature is the marker.
package discover

import (
	"context"
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"
)

// GeneratorPath and GeneratorName identify the *reprgen.Generator type.
const (
	GeneratorPath = "github.com/broady/repr/reprgen"
	GeneratorName = "Generator"
)

// Export is a discovered export function.
type Export struct {
	Name string
	Pos  token.Position
}

// Result contains discovered exports and package info.
type Result struct {
	Exports     []Export
	PackagePath string
	ModulePath  string
	ModuleDir   string
	Dir         string
}

// Find loads the single package matching pattern, relative to dir, and
// collects its exports.
func Find(ctx context.Context, pattern, dir string) (*Result, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName | packages.NeedFiles |
			packages.NeedTypes | packages.NeedModule,
		Dir: dir,
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "load package")
	}
	if len(pkgs) == 0 {
		return nil, errors.Newf("no packages found matching %q", pattern)
	}
	if len(pkgs) > 1 {
		return nil, errors.Newf("multiple packages found matching %q; specify a single package", pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, errors.Wrap(pkg.Errors[0], "package errors")
	}
	if pkg.Name != "main" {
		return nil, errors.WithHint(
			errors.Newf("package %s is not a main package", pkg.PkgPath),
			"declare the generator export in a main package, for example ./internal/tools/reprgen",
		)
	}

	result := &Result{
		PackagePath: pkg.PkgPath,
		Exports:     Exports(pkg.Types, pkg.Fset),
	}
	if pkg.Module != nil {
		result.ModulePath = pkg.Module.Path
		result.ModuleDir = pkg.Module.Dir
	}
	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}
	return result, nil
}

// Exports returns the export functions declared in pkg, sorted by name.
func Exports(pkg *types.Package, fset *token.FileSet) []Export {
	var exports []Export
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok {
			continue
		}
		sig := fn.Type().(*types.Signature)
		if sig.Recv() != nil || sig.TypeParams().Len() > 0 {
			continue
		}
		if sig.Params().Len() != 0 || sig.Results().Len() != 1 {
			continue
		}
		if !isGeneratorPtr(sig.Results().At(0).Type()) {
			continue
		}
		exports = append(exports, Export{Name: fn.Name(), Pos: fset.Position(fn.Pos())})
	}
	return exports
}

func isGeneratorPtr(t types.Type) bool {
	ptr, ok := t.(*types.Pointer)
	if !ok {
		return false
	}
	named, ok := types.Unalias(ptr.Elem()).(*types.Named)
	if !ok {
		return false
	}
	pkg := named.Obj().Pkg()
	return pkg != nil && pkg.Path() == GeneratorPath && named.Obj().Name() == GeneratorName
}

// SelectExport picks the export named name, or the only export when name
// is empty.
func SelectExport(exports []Export, name string) (*Export, error) {
	if name != "" {
		for i := range exports {
			if exports[i].Name == name {
				return &exports[i], nil
			}
		}
		return nil, errors.Newf("export %q not found", name)
	}

	switch len(exports) {
	case 0:
		return nil, errors.WithHint(
			errors.New("no export found"),
			"add a function that returns *reprgen.Generator:\n\n    func Gen() *reprgen.Generator {\n        return reprgen.FromTypes(model.Order{}).WithOutDir(\"../../model\")\n    }",
		)
	case 1:
		return &exports[0], nil
	default:
		var b strings.Builder
		b.WriteString("multiple exports found:\n")
		for _, e := range exports {
			fmt.Fprintf(&b, "  - %s()\n", e.Name)
		}
		return nil, errors.WithHint(errors.New(strings.TrimSuffix(b.String(), "\n")), "select one with --export <name>")
	}
}
