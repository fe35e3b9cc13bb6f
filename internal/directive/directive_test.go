package directive

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFile(t *testing.T) {
	type want struct {
		typeName string
		opts     Options
	}
	tests := []struct {
		name    string
		src     string
		want    []want
		wantErr string
	}{
		{
			name: "single derive",
			src: `package shop

//reprgen:derive
type Order struct {
	ID string
}
`,
			want: []want{{typeName: "Order"}},
		},
		{
			name: "derive after doc text",
			src: `package shop

// Order is a customer order.
//
//reprgen:derive
type Order struct{}
`,
			want: []want{{typeName: "Order"}},
		},
		{
			name: "options",
			src: `package shop

//reprgen:derive strategy=debug receiver=o pointer
type Order struct{}
`,
			want: []want{{typeName: "Order", opts: Options{Strategy: "debug", Receiver: "o", Pointer: true}}},
		},
		{
			name: "explicit false",
			src: `package shop

//reprgen:derive pointer=false
type Order struct{}
`,
			want: []want{{typeName: "Order"}},
		},
		{
			name: "grouped declaration",
			src: `package shop

type (
	//reprgen:derive
	Order struct{}

	Cart struct{}

	//reprgen:derive strategy=fields
	Item struct{}
)
`,
			want: []want{
				{typeName: "Order"},
				{typeName: "Item", opts: Options{Strategy: "fields"}},
			},
		},
		{
			name: "non-struct types are still reported",
			src: `package shop

//reprgen:derive
type Color int
`,
			want: []want{{typeName: "Color"}},
		},
		{
			name: "unrelated comments ignored",
			src: `package shop

//go:generate reprgen gen .
// nolint
type Order struct{}
`,
		},
		{
			name: "unknown directive",
			src: `package shop

//reprgen:derivee
type Order struct{}
`,
			wantErr: "unknown directive //reprgen:derivee",
		},
		{
			name: "unknown option",
			src: `package shop

//reprgen:derive color=red
type Order struct{}
`,
			wantErr: "invalid //reprgen:derive option",
		},
		{
			name: "bad bool",
			src: `package shop

//reprgen:derive pointer=maybe
type Order struct{}
`,
			wantErr: "invalid //reprgen:derive option",
		},
		{
			name: "attached to a function",
			src: `package shop

//reprgen:derive
func order() {}
`,
			wantErr: "must be followed by a type declaration",
		},
		{
			name: "floating comment",
			src: `package shop

//reprgen:derive

type Order struct{}
`,
			wantErr: "must be followed by a type declaration",
		},
		{
			name: "duplicate",
			src: `package shop

//reprgen:derive
//reprgen:derive strategy=debug
type Order struct{}
`,
			wantErr: "duplicate //reprgen:derive directive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fset := token.NewFileSet()
			f, err := parser.ParseFile(fset, "shop.go", tt.src, parser.ParseComments)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}

			got, err := ParseFile(fset, f)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %q", tt.wantErr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var gotSimple []want
			for _, d := range got {
				if d.Kind != KindDerive {
					t.Errorf("kind = %q, want %q", d.Kind, KindDerive)
				}
				gotSimple = append(gotSimple, want{typeName: d.TypeName, opts: d.Options})
			}
			if diff := cmp.Diff(tt.want, gotSimple, cmp.AllowUnexported(want{})); diff != "" {
				t.Errorf("directives mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFile_Position(t *testing.T) {
	src := `package shop

//reprgen:derive
type Order struct{}
`
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "shop.go", src, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseFile(fset, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d directives, want 1", len(got))
	}
	if got[0].Pos.Filename != "shop.go" || got[0].Pos.Line != 3 {
		t.Errorf("Pos = %s, want shop.go:3", got[0].Pos)
	}
}

func TestParseFiles(t *testing.T) {
	fset := token.NewFileSet()
	a, err := parser.ParseFile(fset, "a.go", "package shop\n\n//reprgen:derive\ntype A struct{}\n", parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	b, err := parser.ParseFile(fset, "b.go", "package shop\n\n//reprgen:derive\ntype B struct{}\n", parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParseFiles(fset, []*ast.File{a, b})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, d := range got {
		names = append(names, d.TypeName)
	}
	if diff := cmp.Diff([]string{"A", "B"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}
