// Package reprgen generates Represent() string methods for Go structs.
//
// For every struct marked with a //reprgen:derive directive (or named in
// Config.Types), reprgen writes a method that renders the value as
//
//	TypeName { field1: value1, field2: value2 }
//
// Scalars use fmt.Sprint, []string elements are quoted, []int32 elements
// are printed as integers, and elements of any other slice type are
// rendered with their own Represent method.
//
// Typical use is a go:generate line:
//
//	//go:generate go run github.com/broady/repr/cmd/reprgen gen .
package reprgen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/broady/repr/reprgen/golang"
	"github.com/broady/repr/reprgen/ir"
	"github.com/broady/repr/reprgen/provider"
	"github.com/broady/repr/reprgen/sink"
)

// Result describes a generation run.
type Result struct {
	// Packages holds one entry per processed package, ordered by import path.
	Packages []PackageResult
}

// PackageResult is the outcome for one package.
type PackageResult struct {
	Package ir.PackageInfo

	// File is the path of the generated file. Empty when the package had
	// nothing to generate.
	File string

	// Removed reports that a stale generated file was deleted because the
	// package no longer has anything to generate.
	Removed bool

	// Output carries the generated content, diagnostics, and warnings.
	Output *golang.GenerateResult
}

// Diagnostics returns every diagnostic in the run, in package order.
func (r *Result) Diagnostics() []*ir.GenerationError {
	var all []*ir.GenerationError
	for _, p := range r.Packages {
		all = append(all, p.Output.Diagnostics...)
	}
	return all
}

// TypesGenerated counts generated methods across all packages.
func (r *Result) TypesGenerated() int {
	n := 0
	for _, p := range r.Packages {
		n += p.Output.TypesGenerated
	}
	return n
}

// DiagnosticsError is returned when at least one struct could not be
// generated. Methods for the other structs were still written.
type DiagnosticsError struct {
	Diagnostics []*ir.GenerationError
}

func (e *DiagnosticsError) Error() string {
	var b strings.Builder
	if len(e.Diagnostics) == 1 {
		b.WriteString("1 type could not be generated:")
	} else {
		fmt.Fprintf(&b, "%d types could not be generated:", len(e.Diagnostics))
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n\t")
		b.WriteString(d.Error())
	}
	return b.String()
}

// Unwrap exposes the individual diagnostics to errors.Is and errors.As.
func (e *DiagnosticsError) Unwrap() []error {
	errs := make([]error, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		errs[i] = d
	}
	return errs
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Generate runs code generation with cfg. It writes one file per package
// and returns a *DiagnosticsError alongside the result if any struct
// failed.
func Generate(ctx context.Context, cfg *Config) (*Result, error) {
	return run(ctx, cfg, nil, false)
}

// applyConfigDefaults applies default values to Config.
func applyConfigDefaults(cfg *Config) *Config {
	// Make a copy to avoid mutating the input
	result := *cfg

	if result.Provider == "" {
		result.Provider = ProviderSource
	}
	if result.Strategy == "" {
		result.Strategy = golang.StrategyFields
	}
	if result.Output == "" {
		result.Output = golang.DefaultOutput
	}
	if result.Concurrency == 0 {
		result.Concurrency = runtime.GOMAXPROCS(0)
	}
	if result.Logger == nil {
		result.Logger = zap.NewNop()
	}
	return &result
}

func validateConfig(cfg *Config, roots []reflect.Type) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	switch cfg.Provider {
	case ProviderReflection:
		if len(roots) == 0 {
			return errors.WithHint(errors.New("reflection provider has no types"), "use reprgen.FromTypes")
		}
		if cfg.OutDir == "" {
			return errors.WithHint(errors.New("reflection provider requires an output directory"), "use ToDir")
		}
	default:
		if len(cfg.Packages) == 0 {
			return errors.WithHint(errors.New("no packages specified"), `pass a package pattern such as "." or "./..."`)
		}
	}
	return nil
}

func buildSchemas(ctx context.Context, cfg *Config, roots []reflect.Type) ([]*ir.Schema, error) {
	switch cfg.Provider {
	case ProviderSource:
		p := &provider.SourceProvider{}
		return p.BuildSchemas(ctx, provider.SourceInputOptions{
			Packages:  cfg.Packages,
			Dir:       cfg.Dir,
			RootTypes: cfg.Types,
			BuildTags: cfg.BuildTags,
			Env:       cfg.Env,
		})
	case ProviderSyntax:
		p := &provider.SyntaxProvider{}
		return p.BuildSchemas(ctx, provider.SyntaxInputOptions{
			Packages:  cfg.Packages,
			Dir:       cfg.Dir,
			RootTypes: cfg.Types,
			BuildTags: cfg.BuildTags,
			Env:       cfg.Env,
		})
	case ProviderReflection:
		p := &provider.ReflectionProvider{}
		s, err := p.BuildSchema(ctx, provider.ReflectionInputOptions{
			RootTypes:   roots,
			PackageName: cfg.PackageName,
		})
		if err != nil {
			return nil, err
		}
		s.Package.Dir = cfg.OutDir
		return []*ir.Schema{s}, nil
	default:
		return nil, errors.Newf("unknown provider: %q", cfg.Provider)
	}
}

// run loads schemas and generates each package concurrently. When dryRun
// is set, files go to memory only.
//
// Generation repeats until the set of generated structs is stable, so a
// field typed as a struct from another loaded package sees whether that
// struct actually receives a method. Files are written once at the end.
func run(ctx context.Context, cfg *Config, roots []reflect.Type, dryRun bool) (*Result, error) {
	cfg = applyConfigDefaults(cfg)
	if err := validateConfig(cfg, roots); err != nil {
		return nil, err
	}
	log := cfg.Logger

	schemas, err := buildSchemas(ctx, cfg, roots)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build schema")
	}
	log.Debug("loaded packages", zap.Int("count", len(schemas)))

	targets := make(map[ir.GoIdentifier]bool)
	for _, schema := range schemas {
		if schema.Package.Dir == "" {
			return nil, errors.Wrapf(errors.New("package directory is unknown"), "package %s", schema.Package.Path)
		}
		for _, st := range schema.Structs {
			targets[st.Name] = true
		}
	}

	outputs := make([]*golang.GenerateResult, len(schemas))
	for round := 1; ; round++ {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Concurrency)
		for i, schema := range schemas {
			g.Go(func() error {
				res, err := generatePackage(gctx, cfg, schema, func(id ir.GoIdentifier) bool { return targets[id] })
				if err != nil {
					return errors.Wrapf(err, "package %s", schema.Package.Path)
				}
				outputs[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if !dropRejected(targets, schemas, outputs) {
			break
		}
		log.Debug("generated set changed", zap.Int("round", round), zap.Int("targets", len(targets)))
	}

	results := make([]PackageResult, len(schemas))
	for i, schema := range schemas {
		pr, err := writePackage(ctx, cfg, schema, outputs[i], dryRun)
		if err != nil {
			return nil, errors.Wrapf(err, "package %s", schema.Package.Path)
		}
		results[i] = *pr
	}

	result := &Result{Packages: results}
	if diags := result.Diagnostics(); len(diags) > 0 {
		return result, &DiagnosticsError{Diagnostics: diags}
	}
	return result, nil
}

// dropRejected removes from targets every struct its package did not
// generate and reports whether anything changed.
func dropRejected(targets map[ir.GoIdentifier]bool, schemas []*ir.Schema, outputs []*golang.GenerateResult) bool {
	changed := false
	for i, schema := range schemas {
		kept := make(map[ir.GoIdentifier]bool, len(outputs[i].Generated))
		for _, id := range outputs[i].Generated {
			kept[id] = true
		}
		for _, st := range schema.Structs {
			if targets[st.Name] && !kept[st.Name] {
				delete(targets, st.Name)
				changed = true
			}
		}
	}
	return changed
}

// generatePackage renders one package in memory. external reports which
// structs of other packages are generated in the same run.
func generatePackage(ctx context.Context, cfg *Config, schema *ir.Schema, external func(ir.GoIdentifier) bool) (*golang.GenerateResult, error) {
	gen := &golang.GoGenerator{}
	return gen.Generate(ctx, schema, golang.GenerateOptions{
		Config: golang.GeneratorConfig{
			Output:          cfg.Output,
			Strategy:        cfg.Strategy,
			SequenceTypes:   sequenceTypes(cfg.SequenceTypes, schema.Package.Path),
			BuildConstraint: cfg.BuildConstraint,
		},
		External: external,
	})
}

// writePackage writes or removes the output file of one package and logs
// its warnings and diagnostics.
func writePackage(ctx context.Context, cfg *Config, schema *ir.Schema, res *golang.GenerateResult, dryRun bool) (*PackageResult, error) {
	log := cfg.Logger.With(zap.String("package", schema.Package.Path))
	for _, w := range schema.Warnings {
		log.Warn(w.Message, zap.String("code", w.Code))
	}

	pr := &PackageResult{Package: schema.Package, Output: res}
	target := filepath.Join(schema.Package.Dir, cfg.Output)
	if res.Path != "" {
		pr.File = target
		if !dryRun {
			if err := sink.NewFilesystemSink(schema.Package.Dir).WriteFile(ctx, res.Path, res.Content); err != nil {
				return nil, err
			}
		}
		log.Info("generated", zap.String("file", target), zap.Int("types", res.TypesGenerated))
	} else if isGeneratedFile(target) {
		pr.Removed = true
		if !dryRun {
			if err := os.Remove(target); err != nil {
				return nil, errors.Wrap(err, "remove stale output")
			}
		}
		log.Info("removed stale output", zap.String("file", target))
	}
	for _, d := range res.Diagnostics {
		log.Debug("diagnostic", zap.String("type", d.TypeName), zap.String("code", d.Code), zap.Error(d))
	}
	return pr, nil
}

// isGeneratedFile reports whether path exists and starts with the reprgen
// header. Hand-written files are never removed.
func isGeneratedFile(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return bytes.HasPrefix(content, []byte(ir.GeneratedHeader))
}

// CheckResult lists generated files that do not match the source.
type CheckResult struct {
	// Stale holds absolute paths of files that are missing, different, or
	// should have been removed.
	Stale []string

	// Result is the underlying in-memory generation.
	Result *Result
}

// OK reports whether every generated file is up to date.
func (r *CheckResult) OK() bool { return len(r.Stale) == 0 }

// Check regenerates in memory and compares with the files on disk.
// Diagnostics are reported the same way as Generate.
func Check(ctx context.Context, cfg *Config) (*CheckResult, error) {
	return check(ctx, cfg, nil)
}

func check(ctx context.Context, cfg *Config, roots []reflect.Type) (*CheckResult, error) {
	result, err := run(ctx, cfg, roots, true)
	var diagErr *DiagnosticsError
	if err != nil && !errors.As(err, &diagErr) {
		return nil, err
	}

	cr := &CheckResult{Result: result}
	output := applyConfigDefaults(cfg).Output
	for _, p := range result.Packages {
		stale := p.Removed
		if p.File != "" {
			onDisk, err := os.ReadFile(p.File)
			stale = err != nil || !bytes.Equal(onDisk, p.Output.Content)
		}
		if !stale {
			continue
		}
		path := p.File
		if path == "" {
			path = filepath.Join(p.Package.Dir, output)
		}
		cr.Stale = append(cr.Stale, path)
	}
	sort.Strings(cr.Stale)

	if diagErr != nil {
		return cr, diagErr
	}
	return cr, nil
}
