package reprgen

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/broady/repr/reprgen/golang"
	"github.com/broady/repr/reprgen/ir"
)

// Provider names accepted by Config.Provider.
const (
	ProviderSource     = "source"
	ProviderSyntax     = "syntax"
	ProviderReflection = "reflection"
)

// DefaultOutput is the generated file name used when Config.Output is empty.
const DefaultOutput = golang.DefaultOutput

// Config holds the configuration for code generation.
type Config struct {
	// Packages are package patterns in go command syntax, e.g. "." or
	// "./...". Required for the source and syntax providers.
	Packages []string `validate:"dive,required"`

	// Dir is the working directory for resolving Packages.
	// Default: current directory.
	Dir string

	// Types names structs to generate in addition to those marked with
	// //reprgen:derive. Requires Packages to match a single package.
	Types []string `validate:"dive,required"`

	// Output is the generated file name within each package directory.
	// Default: "repr_gen.go"
	Output string `validate:"omitempty,endswith=.go,excludesall=/\\"`

	// Strategy is the default representation strategy.
	// Supported values: "fields" (per-field rendering), "debug" (%+v).
	// Default: "fields"
	Strategy string `validate:"omitempty,oneof=fields debug"`

	// Provider selects how structs are extracted.
	// "source" (default) type-checks packages with go/packages.
	// "syntax" parses files only; it works on code that does not compile.
	// "reflection" describes the values passed to FromTypes.
	Provider string `validate:"omitempty,oneof=source syntax reflection"`

	// SequenceTypes lists generic named types that render like slices,
	// as "import/path.Name". A bare "Name" refers to the package being
	// generated. Each type must have exactly one type parameter T and
	// underlying type []T.
	SequenceTypes []string `validate:"dive,required"`

	// BuildTags select files, as with go build -tags.
	BuildTags []string

	// BuildConstraint, when set, is written as a //go:build line in every
	// generated file.
	BuildConstraint string

	// Concurrency limits how many packages are generated at once.
	// Default: GOMAXPROCS.
	Concurrency int `validate:"gte=0"`

	// OutDir is the directory written by the reflection provider, which
	// has no source directory of its own.
	OutDir string

	// PackageName is the package clause used by the reflection provider.
	// Default: last element of the types' import path.
	PackageName string

	// Env overrides the environment of the go command used to load
	// packages. Nil means the current environment.
	Env []string

	// Logger receives progress and warnings. Default: no logging.
	Logger *zap.Logger `validate:"-"`
}

// Generator provides a fluent API for code generation.
// Create with FromPackages() or FromTypes() and configure with method
// chaining.
//
// Example:
//
//	reprgen.FromPackages("./...").
//	    WithStrategy("fields").
//	    WithSequenceTypes("example.com/shop/list.List").
//	    Generate(ctx)
type Generator struct {
	cfg    Config
	values []any
}

// FromPackages creates a Generator for the given package patterns.
func FromPackages(patterns ...string) *Generator {
	return &Generator{cfg: Config{Packages: patterns}}
}

// FromTypes creates a Generator that describes the given values with
// reflection. Pass zero values of the structs to generate; all must be
// declared in the same package. Use ToDir to choose where the file goes.
//
//	reprgen.FromTypes(shop.Order{}, shop.Item{}).ToDir(ctx, "./shop")
func FromTypes(values ...any) *Generator {
	return &Generator{cfg: Config{Provider: ProviderReflection}, values: values}
}

// InDir sets the working directory for resolving package patterns.
func (g *Generator) InDir(dir string) *Generator {
	g.cfg.Dir = dir
	return g
}

// WithTypes adds struct names to generate without a directive.
func (g *Generator) WithTypes(names ...string) *Generator {
	g.cfg.Types = append(g.cfg.Types, names...)
	return g
}

// WithStrategy sets the default strategy ("fields" or "debug").
func (g *Generator) WithStrategy(name string) *Generator {
	g.cfg.Strategy = name
	return g
}

// WithProvider sets the extraction provider.
func (g *Generator) WithProvider(name string) *Generator {
	g.cfg.Provider = name
	return g
}

// WithOutput sets the generated file name.
func (g *Generator) WithOutput(name string) *Generator {
	g.cfg.Output = name
	return g
}

// WithSequenceTypes adds generic named types that render like slices.
func (g *Generator) WithSequenceTypes(names ...string) *Generator {
	g.cfg.SequenceTypes = append(g.cfg.SequenceTypes, names...)
	return g
}

// WithBuildTags adds build tags used to select files.
func (g *Generator) WithBuildTags(tags ...string) *Generator {
	g.cfg.BuildTags = append(g.cfg.BuildTags, tags...)
	return g
}

// WithBuildConstraint sets the //go:build line of generated files.
func (g *Generator) WithBuildConstraint(expr string) *Generator {
	g.cfg.BuildConstraint = expr
	return g
}

// WithConcurrency limits parallel package generation.
func (g *Generator) WithConcurrency(n int) *Generator {
	g.cfg.Concurrency = n
	return g
}

// WithOutDir sets the directory FromTypes output is written to. A relative
// dir is resolved against the process working directory.
func (g *Generator) WithOutDir(dir string) *Generator {
	g.cfg.OutDir = dir
	return g
}

// WithPackageName sets the package clause for FromTypes output.
func (g *Generator) WithPackageName(name string) *Generator {
	g.cfg.PackageName = name
	return g
}

// WithLogger sets the logger.
func (g *Generator) WithLogger(l *zap.Logger) *Generator {
	g.cfg.Logger = l
	return g
}

// Config returns a copy of the accumulated configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate writes generated files next to the source packages.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	return run(ctx, &g.cfg, g.rootTypes(), false)
}

// ToDir writes the generated file into dir. Intended for FromTypes.
func (g *Generator) ToDir(ctx context.Context, dir string) (*Result, error) {
	g.cfg.OutDir = dir
	return run(ctx, &g.cfg, g.rootTypes(), false)
}

// DryRun generates in memory without touching the filesystem.
func (g *Generator) DryRun(ctx context.Context) (*Result, error) {
	return run(ctx, &g.cfg, g.rootTypes(), true)
}

// Check reports packages whose generated file is out of date.
func (g *Generator) Check(ctx context.Context) (*CheckResult, error) {
	return check(ctx, &g.cfg, g.rootTypes())
}

func (g *Generator) rootTypes() []reflect.Type {
	if len(g.values) == 0 {
		return nil
	}
	types := make([]reflect.Type, 0, len(g.values))
	for _, v := range g.values {
		if t, ok := v.(reflect.Type); ok {
			types = append(types, t)
			continue
		}
		types = append(types, reflect.TypeOf(v))
	}
	return types
}

// sequenceTypes resolves Config.SequenceTypes for one package.
func sequenceTypes(names []string, pkgPath string) []ir.GoIdentifier {
	ids := make([]ir.GoIdentifier, 0, len(names))
	for _, n := range names {
		id := ir.ParseGoIdentifier(n)
		if id.Package == "" {
			id.Package = pkgPath
		}
		ids = append(ids, id)
	}
	return ids
}
