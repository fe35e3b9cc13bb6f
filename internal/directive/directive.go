// Package directive parses reprgen directives from Go source files.
//
// Directives are line comments in a type declaration's doc comment:
//
//	//reprgen:derive
//	//reprgen:derive strategy=debug
//	//reprgen:derive receiver=o pointer
//
// The derive directive marks a struct type that receives a generated
// Represent method. Options are key=value pairs; a bare key means
// key=true.
package directive

import (
	"fmt"
	"go/ast"
	"go/token"
	"net/url"
	"sort"
	"strings"

	"github.com/gorilla/schema"
)

// Prefix starts every reprgen directive.
const Prefix = "//reprgen:"

// Kind represents the type of directive.
type Kind string

const (
	KindDerive Kind = "derive"
)

// Options are the key=value settings of a derive directive.
type Options struct {
	// Strategy selects the representation strategy ("fields" or "debug").
	Strategy string `schema:"strategy"`

	// Receiver overrides the generated receiver name.
	Receiver string `schema:"receiver"`

	// Pointer requests a pointer receiver.
	Pointer bool `schema:"pointer"`
}

// Directive represents a parsed reprgen directive.
type Directive struct {
	Kind     Kind
	TypeName string         // name of the annotated type
	Options  Options        // decoded options
	Pos      token.Position // source location of the comment
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(false)
	return d
}()

// ParseFiles extracts directives from all files, in file then source order.
func ParseFiles(fset *token.FileSet, files []*ast.File) ([]Directive, error) {
	var all []Directive
	for _, f := range files {
		ds, err := ParseFile(fset, f)
		if err != nil {
			return nil, err
		}
		all = append(all, ds...)
	}
	return all, nil
}

// ParseFile extracts directives from a single file.
//
// Returns an error if a directive is unknown, has invalid options, or is
// not part of the doc comment of a type declaration.
func ParseFile(fset *token.FileSet, f *ast.File) ([]Directive, error) {
	type pending struct {
		kind Kind
		opts Options
		pos  token.Position
	}
	// Keyed by the end of the enclosing comment group, so they can be
	// matched to the doc comment of the following declaration.
	commentToDirective := make(map[token.Pos]pending)

	for _, cg := range f.Comments {
		for _, c := range cg.List {
			if !strings.HasPrefix(c.Text, Prefix) {
				continue
			}
			parts := strings.Fields(strings.TrimPrefix(c.Text, Prefix))
			if len(parts) == 0 {
				continue
			}

			pos := fset.Position(c.Pos())
			if Kind(parts[0]) != KindDerive {
				return nil, fmt.Errorf("%s: unknown directive %s%s", pos, Prefix, parts[0])
			}
			if prev, ok := commentToDirective[cg.End()]; ok {
				return nil, fmt.Errorf("%s: duplicate %s%s directive (previous at %s)", pos, Prefix, KindDerive, prev.pos)
			}
			opts, err := parseOptions(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("%s: invalid %s%s option: %w", pos, Prefix, KindDerive, err)
			}
			commentToDirective[cg.End()] = pending{kind: KindDerive, opts: opts, pos: pos}
		}
	}

	var directives []Directive
	match := func(doc *ast.CommentGroup, name string) {
		if doc == nil {
			return
		}
		if p, ok := commentToDirective[doc.End()]; ok {
			directives = append(directives, Directive{
				Kind:     p.kind,
				TypeName: name,
				Options:  p.opts,
				Pos:      p.pos,
			})
			delete(commentToDirective, doc.End())
		}
	}

	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		// type X struct{} carries its doc on the GenDecl; grouped
		// declarations carry it on each spec.
		if !gd.Lparen.IsValid() && len(gd.Specs) == 1 {
			match(gd.Doc, gd.Specs[0].(*ast.TypeSpec).Name.Name)
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			match(ts.Doc, ts.Name.Name)
		}
	}

	if len(commentToDirective) > 0 {
		var unmatched []pending
		for _, p := range commentToDirective {
			unmatched = append(unmatched, p)
		}
		sort.Slice(unmatched, func(i, j int) bool { return unmatched[i].pos.Offset < unmatched[j].pos.Offset })
		p := unmatched[0]
		return nil, fmt.Errorf("%s: %s%s directive must be followed by a type declaration", p.pos, Prefix, p.kind)
	}

	return directives, nil
}

func parseOptions(args []string) (Options, error) {
	var opts Options
	if len(args) == 0 {
		return opts, nil
	}
	values := url.Values{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			value = "true"
		}
		if key == "" {
			return opts, fmt.Errorf("malformed option %q", arg)
		}
		values.Add(key, value)
	}
	if err := decoder.Decode(&opts, values); err != nil {
		return opts, err
	}
	return opts, nil
}
