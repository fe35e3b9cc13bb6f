// Package golang emits Go source implementing Represent() string for the
// structs in an ir.Schema.
package golang

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/imports"

	"github.com/broady/repr/reprgen/ir"
	"github.com/broady/repr/reprgen/shape"
	"github.com/broady/repr/reprgen/sink"
)

// DefaultOutput is the file name used when GeneratorConfig.Output is empty.
const DefaultOutput = "repr_gen.go"

// GeneratorConfig controls Go emission for one package.
type GeneratorConfig struct {
	// Output is the file name, relative to the sink root.
	Output string

	// Strategy is the default strategy name for structs without an
	// override. See StrategyByName.
	Strategy string

	// SequenceTypes lists generic named types rendered like slices.
	SequenceTypes []ir.GoIdentifier

	// BuildConstraint, when set, is emitted as a //go:build line.
	BuildConstraint string
}

// GenerateOptions configures a Generate call.
type GenerateOptions struct {
	// Sink receives the generated file. Nil means generate in memory only.
	Sink sink.OutputSink

	Config GeneratorConfig

	// External reports whether a struct from another package receives a
	// method in the same run. It extends the capability check across
	// packages. May be nil.
	External func(ir.GoIdentifier) bool

	// Resolver overrides the default shape.Classifier.
	Resolver shape.Resolver
}

// GenerateResult describes the outcome of generating one package.
type GenerateResult struct {
	// Path is the output file name. Empty when nothing was generated.
	Path string

	// Content is the formatted file.
	Content []byte

	// TypesGenerated counts structs that received a method.
	TypesGenerated int

	// Generated lists those structs in source order.
	Generated []ir.GoIdentifier

	// Diagnostics holds one entry per struct that could not be generated,
	// including extraction failures carried over from the schema.
	Diagnostics []*ir.GenerationError

	// Warnings carries the schema's warnings through.
	Warnings []ir.Warning
}

// GoGenerator turns a schema into a Go source file.
type GoGenerator struct{}

// Name returns "go".
func (g *GoGenerator) Name() string { return "go" }

// Generate emits a Represent method for every struct in schema.
//
// Structs are independent: one failing struct produces a diagnostic and
// does not stop the others. A struct whose sequence elements depend on
// another struct from the same run is dropped if that struct fails,
// so the emitted file never calls a method that was not generated.
func (g *GoGenerator) Generate(ctx context.Context, schema *ir.Schema, opts GenerateOptions) (*GenerateResult, error) {
	if schema == nil {
		return nil, errors.New("schema is nil")
	}
	cfg := opts.Config
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}

	result := &GenerateResult{
		Diagnostics: append([]*ir.GenerationError(nil), schema.Diagnostics...),
		Warnings:    append([]ir.Warning(nil), schema.Warnings...),
	}

	active := make(map[ir.GoIdentifier]bool, len(schema.Structs))
	for _, s := range schema.Structs {
		active[s.Name] = true
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = &shape.Classifier{
			SequenceTypes: cfg.SequenceTypes,
			Generated: func(id ir.GoIdentifier) bool {
				if id.Package != schema.Package.Path && opts.External != nil {
					return opts.External(id)
				}
				return active[id]
			},
		}
	}

	// Emit until no struct fails; each failure can invalidate structs
	// that relied on it for the capability check.
	var methods []emitted
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var failed bool
		methods = methods[:0]
		for _, s := range schema.Structs {
			if !active[s.Name] {
				continue
			}
			m, gerr := emitStruct(s, cfg.Strategy, resolver)
			if gerr != nil {
				active[s.Name] = false
				result.Diagnostics = append(result.Diagnostics, gerr)
				failed = true
				continue
			}
			methods = append(methods, m)
		}
		if !failed {
			break
		}
	}

	if len(methods) == 0 {
		return result, nil
	}

	content, err := assembleFile(schema.Package.Name, cfg, methods)
	if err != nil {
		return nil, err
	}

	result.Path = cfg.Output
	result.Content = content
	result.TypesGenerated = len(methods)
	for _, m := range methods {
		result.Generated = append(result.Generated, m.name)
	}

	if opts.Sink != nil {
		if err := opts.Sink.WriteFile(ctx, cfg.Output, content); err != nil {
			return nil, errors.Wrapf(err, "write %s", cfg.Output)
		}
	}
	return result, nil
}

type emitted struct {
	name    ir.GoIdentifier
	body    []byte
	imports *ImportSet
}

func emitStruct(s *ir.StructDescriptor, defaultStrategy string, resolver shape.Resolver) (emitted, *ir.GenerationError) {
	name := s.Strategy
	if name == "" {
		name = defaultStrategy
	}
	strategy, err := StrategyByName(name, resolver)
	if err != nil {
		gerr := err.(*ir.GenerationError)
		gerr.Source = s.Source
		gerr.TypeName = s.Name.Name
		return emitted{}, gerr
	}

	var buf bytes.Buffer
	imps := &ImportSet{}
	if err := strategy.EmitMethod(&buf, s, imps); err != nil {
		var gerr *ir.GenerationError
		if !errors.As(err, &gerr) {
			gerr = &ir.GenerationError{Code: ir.CodeUnsupportedShape, Message: err.Error()}
		}
		if gerr.Source.IsZero() {
			gerr.Source = s.Source
		}
		gerr.TypeName = s.Name.Name
		return emitted{}, gerr
	}
	return emitted{name: s.Name, body: buf.Bytes(), imports: imps}, nil
}

// assembleFile writes the header, package clause, imports, and methods,
// then formats the result.
func assembleFile(pkgName string, cfg GeneratorConfig, methods []emitted) ([]byte, error) {
	if pkgName == "" {
		return nil, errors.New("package name is required")
	}

	all := &ImportSet{}
	for _, m := range methods {
		all.Merge(m.imports)
	}

	var buf bytes.Buffer
	buf.WriteString(ir.GeneratedHeader + "\n\n")
	if cfg.BuildConstraint != "" {
		buf.WriteString("//go:build " + cfg.BuildConstraint + "\n\n")
	}
	buf.WriteString("package " + pkgName + "\n\n")

	if all.Len() > 0 {
		buf.WriteString("import (\n")
		for _, p := range all.Sorted() {
			fmt.Fprintf(&buf, "\t%q\n", p)
		}
		buf.WriteString(")\n")
	}

	for _, m := range methods {
		buf.WriteString("\n")
		buf.Write(m.body)
	}

	formatted, err := imports.Process(cfg.Output, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, errors.WithDetail(errors.Wrap(err, "format generated source"), buf.String())
	}
	return formatted, nil
}
