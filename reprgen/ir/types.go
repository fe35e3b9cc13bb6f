// Package ir defines the intermediate representation shared by reprgen's
// providers, shape classifier, and Go emitter.
//
// Providers turn a struct declaration (from go/types, go/ast, or reflect)
// into a StructDescriptor whose fields carry raw TypeDescriptors. The shape
// classifier reduces each TypeDescriptor to a rendering strategy, and the
// emitter turns the result into a Represent method.
package ir

import (
	"fmt"
	"strings"
)

// GoIdentifier represents a named Go entity with package context.
type GoIdentifier struct {
	// Name is the declared identifier, without type arguments.
	Name string

	// Package is the fully qualified package path.
	// Empty for predeclared types.
	Package string
}

// IsZero returns true if the identifier is empty.
func (id GoIdentifier) IsZero() bool {
	return id.Name == "" && id.Package == ""
}

// String returns "path.Name", or just Name for predeclared types.
func (id GoIdentifier) String() string {
	if id.Package == "" {
		return id.Name
	}
	return id.Package + "." + id.Name
}

// ParseGoIdentifier splits "path/to/pkg.Name" at the last dot.
// A string without a dot is a predeclared or package-local name.
func ParseGoIdentifier(s string) GoIdentifier {
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return GoIdentifier{Name: s}
	}
	return GoIdentifier{Name: s[i+1:], Package: s[:i]}
}

// Source represents source code location information.
type Source struct {
	File   string
	Line   int
	Column int
}

// IsZero returns true if the source location is empty.
func (s Source) IsZero() bool {
	return s.File == "" && s.Line == 0 && s.Column == 0
}

// String formats the location the way the Go toolchain does: file:line:col.
func (s Source) String() string {
	switch {
	case s.IsZero():
		return ""
	case s.Column == 0:
		return fmt.Sprintf("%s:%d", s.File, s.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
	}
}

// Warning represents a non-fatal issue encountered during generation.
type Warning struct {
	// Code is a machine-readable warning identifier.
	Code string

	// Message is a human-readable description.
	Message string

	// Source is the location that triggered the warning, if applicable.
	Source *Source

	// TypeName is the type that triggered the warning, if applicable.
	TypeName string
}

func (w Warning) String() string {
	if w.Source != nil && !w.Source.IsZero() {
		return w.Source.String() + ": " + w.Message
	}
	return w.Message
}

// PackageInfo describes a Go package.
type PackageInfo struct {
	// Path is the import path (e.g., "github.com/foo/bar").
	Path string

	// Name is the package name (e.g., "bar").
	Name string

	// Dir is the filesystem directory, if known.
	Dir string
}

// IsZero returns true if the package info is empty.
func (p PackageInfo) IsZero() bool {
	return p.Path == "" && p.Name == "" && p.Dir == ""
}

// GeneratedHeader is the first line of every file reprgen writes.
// Providers use it to recognize their own output.
const GeneratedHeader = "// Code generated by reprgen. DO NOT EDIT."
