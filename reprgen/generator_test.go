package reprgen

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/broady/repr/reprgen/ir"
)

// writeModule creates a throwaway module in a temp dir.
func writeModule(t *testing.T, files map[string]string) string {
	t.Helper()
	// Disable go.work so temp directories work as standalone modules
	t.Setenv("GOWORK", "off")
	dir := t.TempDir()
	files["go.mod"] = "module example.com/shop\n\ngo 1.22\n"
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const shopSource = `package main

import "fmt"

//reprgen:derive
type Item struct {
	SKU string
}

//reprgen:derive
type Order struct {
	ID     int
	Tags   []string
	Counts []int32
	Items  []Item
	Ptrs   []*Item
	Total  float64 ` + "`repr:\"total\"`" + `
	note   string  ` + "`repr:\"-\"`" + `
}

//reprgen:derive
type Empty struct{}

//reprgen:derive strategy=debug
type Point struct {
	X, Y int
}

func main() {
	o := Order{
		ID:     7,
		Tags:   []string{"a", "b"},
		Counts: []int32{1, -2},
		Items:  []Item{{SKU: "x"}},
		Ptrs:   []*Item{{SKU: "y"}, nil},
		Total:  2.5,
		note:   "hidden",
	}
	fmt.Println(o.Represent())
	fmt.Println(Order{}.Represent())
	fmt.Println(Empty{}.Represent())
	fmt.Println(Point{X: 1, Y: 2}.Represent())
	fmt.Println(Order{Tags: []string{"a\"b"}}.Represent())
}
`

func TestGenerate_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go command")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not found")
	}
	dir := writeModule(t, map[string]string{"main.go": shopSource})

	result, err := FromPackages(".").InDir(dir).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := result.TypesGenerated(); got != 4 {
		t.Errorf("TypesGenerated = %d, want 4", got)
	}
	if len(result.Packages) != 1 || result.Packages[0].File != filepath.Join(dir, "repr_gen.go") {
		t.Fatalf("Packages = %+v", result.Packages)
	}

	cmd := exec.Command(goBin, "run", ".")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		gen, _ := os.ReadFile(filepath.Join(dir, "repr_gen.go"))
		t.Fatalf("go run failed: %v\n%s\ngenerated:\n%s", err, out, gen)
	}

	want := []string{
		`Order { ID: 7, Tags: ["a", "b"], Counts: [1, -2], Items: [Item { SKU: x }], Ptrs: [Item { SKU: y }, nil], total: 2.5 }`,
		`Order { ID: 0, Tags: [], Counts: [], Items: [], Ptrs: [], total: 0 }`,
		`Empty {  }`,
		`Point {X:1 Y:2}`,
		`Order { ID: 0, Tags: ["a"b"], Counts: [], Items: [], Ptrs: [], total: 0 }`,
	}
	got := strings.Split(strings.TrimSpace(string(out)), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	// A second run leaves the file byte-identical.
	before, err := os.ReadFile(filepath.Join(dir, "repr_gen.go"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := FromPackages(".").InDir(dir).Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	after, err := os.ReadFile(filepath.Join(dir, "repr_gen.go"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(before), string(after)); diff != "" {
		t.Errorf("regeneration changed output (-first +second):\n%s", diff)
	}
}

func TestGenerate_Diagnostics(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"shop.go": `package shop

//reprgen:derive
type Good struct {
	Name string
}

//reprgen:derive
type Sizes struct {
	Values []float64
}

//reprgen:derive
type Color int
`,
	})

	result, err := Generate(context.Background(), &Config{Packages: []string{"."}, Dir: dir})
	var diagErr *DiagnosticsError
	if !errors.As(err, &diagErr) {
		t.Fatalf("error = %v, want *DiagnosticsError", err)
	}
	if len(diagErr.Diagnostics) != 2 {
		t.Fatalf("diagnostics = %v", diagErr.Diagnostics)
	}
	if !errors.Is(err, ir.ErrMissingCapability) || !errors.Is(err, ir.ErrUnsupportedShape) {
		t.Errorf("errors.Is did not reach individual diagnostics: %v", err)
	}
	if !strings.Contains(err.Error(), "shop.go:10:2: field Values: element type float64 does not implement Represent() string") {
		t.Errorf("error text = %s", err)
	}
	if !strings.Contains(err.Error(), ir.MsgOnlyStructs) {
		t.Errorf("error text missing %q: %s", ir.MsgOnlyStructs, err)
	}

	if result == nil || result.TypesGenerated() != 1 {
		t.Fatalf("result = %+v, want one generated type", result)
	}
	content, err := os.ReadFile(filepath.Join(dir, "repr_gen.go"))
	if err != nil {
		t.Fatalf("successful structs were not written: %v", err)
	}
	if !strings.Contains(string(content), "func (g Good) Represent() string") {
		t.Errorf("generated file:\n%s", content)
	}
	if strings.Contains(string(content), "Sizes") {
		t.Errorf("failed struct was generated:\n%s", content)
	}
}

func TestGenerate_RemovesStaleOutput(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"shop.go":     "package shop\n\ntype Item struct{ SKU string }\n",
		"repr_gen.go": ir.GeneratedHeader + "\n\npackage shop\n\nfunc (i Item) Represent() string { return \"\" }\n",
		"notes.go":    "package shop\n",
	})

	check, err := Check(context.Background(), &Config{Packages: []string{"."}, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if check.OK() {
		t.Error("Check reported stale output as up to date")
	}

	result, err := Generate(context.Background(), &Config{Packages: []string{"."}, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Packages[0].Removed {
		t.Error("Removed = false")
	}
	if _, err := os.Stat(filepath.Join(dir, "repr_gen.go")); !os.IsNotExist(err) {
		t.Errorf("stale file still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.go")); err != nil {
		t.Errorf("hand-written file touched: %v", err)
	}
}

func TestCheck(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"shop.go": "package shop\n\n//reprgen:derive\ntype Item struct {\n\tSKU string\n}\n",
	})
	cfg := &Config{Packages: []string{"."}, Dir: dir}

	cr, err := Check(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "repr_gen.go")}, cr.Stale); diff != "" {
		t.Errorf("missing file not reported (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, "repr_gen.go")); !os.IsNotExist(err) {
		t.Error("Check wrote to disk")
	}

	if _, err := Generate(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	cr, err = Check(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !cr.OK() {
		t.Errorf("Stale = %v after Generate", cr.Stale)
	}

	if err := os.WriteFile(filepath.Join(dir, "shop.go"), []byte("package shop\n\n//reprgen:derive\ntype Item struct {\n\tSKU string\n\tQty int\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cr, err = Check(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if cr.OK() {
		t.Error("Check missed a new field")
	}
}

func TestGenerate_SyntaxProvider(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"shop.go": `package shop

//reprgen:derive
type Item struct {
	SKU string
}

//reprgen:derive
type Cart struct {
	Items []Item
	Tags  []string
}

func broken() { this is not go }
`,
	})
	result, err := FromPackages(".").InDir(dir).WithProvider(ProviderSyntax).DryRun(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := result.TypesGenerated(); got != 2 {
		t.Errorf("TypesGenerated = %d, want 2", got)
	}
	if len(result.Packages[0].Output.Warnings) == 0 {
		t.Error("parse error not reported as a warning")
	}
	if _, err := os.Stat(filepath.Join(dir, "repr_gen.go")); !os.IsNotExist(err) {
		t.Error("DryRun wrote to disk")
	}
}

func TestGenerate_SequenceTypes(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"shop.go": `package shop

type Vec[T any] []T

//reprgen:derive
type Bag struct {
	Names Vec[string]
}
`,
	})
	result, err := FromPackages(".").InDir(dir).WithSequenceTypes("Vec").DryRun(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	content := string(result.Packages[0].Output.Content)
	if !strings.Contains(content, "for _, item := range b.Names {") {
		t.Errorf("Vec not rendered as a sequence:\n%s", content)
	}
}

func TestGenerate_SequenceTypeNotSlice(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"shop.go": `package shop

type Set[T comparable] map[T]struct{}

//reprgen:derive
type Bag struct {
	Names Set[string]
}
`,
	})
	_, err := FromPackages(".").InDir(dir).WithSequenceTypes("Set").DryRun(context.Background())
	if !errors.Is(err, ir.ErrMalformedGenericArgument) {
		t.Fatalf("error = %v, want %s", err, ir.CodeMalformedGenericArgument)
	}
	if !strings.Contains(err.Error(), "sequence type Set must have a slice underlying type") {
		t.Errorf("error text = %s", err)
	}
}

func TestGenerate_CrossPackageElements(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"b/b.go": `package b

//reprgen:derive
type Item struct {
	SKU string
}

//reprgen:derive
type Bad struct {
	Values []float64
}
`,
		"a/a.go": `package a

import "example.com/shop/b"

//reprgen:derive
type Order struct {
	Items []b.Item
}

//reprgen:derive
type Holder struct {
	Bads []b.Bad
}
`,
	})

	result, err := FromPackages("./...").InDir(dir).DryRun(context.Background())
	var diagErr *DiagnosticsError
	if !errors.As(err, &diagErr) {
		t.Fatalf("error = %v, want *DiagnosticsError", err)
	}

	var got []string
	for _, d := range diagErr.Diagnostics {
		got = append(got, d.TypeName+": "+d.Code)
	}
	want := []string{
		"Bad: " + ir.CodeMissingCapability,
		"Holder: " + ir.CodeMissingCapability,
	}
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s", diff)
	}

	if got := result.TypesGenerated(); got != 2 {
		t.Errorf("TypesGenerated = %d, want 2", got)
	}
	for _, pr := range result.Packages {
		content := string(pr.Output.Content)
		switch pr.Package.Path {
		case "example.com/shop/a":
			if !strings.Contains(content, "func (o Order) Represent() string") || strings.Contains(content, "Holder") {
				t.Errorf("package a:\n%s", content)
			}
		case "example.com/shop/b":
			if !strings.Contains(content, "func (i Item) Represent() string") || strings.Contains(content, "Bad") {
				t.Errorf("package b:\n%s", content)
			}
		}
	}
}

type fixtureItem struct {
	SKU string
}

type fixtureOrder struct {
	Items []fixtureItem
	Tags  []string
}

func TestFromTypes(t *testing.T) {
	out := t.TempDir()
	result, err := FromTypes(fixtureItem{}, &fixtureOrder{}).
		WithPackageName("fixtures").
		ToDir(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	if got := result.TypesGenerated(); got != 2 {
		t.Errorf("TypesGenerated = %d, want 2", got)
	}
	content, err := os.ReadFile(filepath.Join(out, "repr_gen.go"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"package fixtures",
		"func (f fixtureItem) Represent() string",
		"func (f fixtureOrder) Represent() string",
		"items = append(items, item.Represent())",
	} {
		if !strings.Contains(string(content), want) {
			t.Errorf("missing %q in:\n%s", want, content)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "no packages", cfg: Config{}, wantErr: "no packages specified"},
		{name: "bad strategy", cfg: Config{Packages: []string{"."}, Strategy: "yaml"}, wantErr: "invalid config"},
		{name: "bad provider", cfg: Config{Packages: []string{"."}, Provider: "ast"}, wantErr: "invalid config"},
		{name: "bad output", cfg: Config{Packages: []string{"."}, Output: "sub/repr.go"}, wantErr: "invalid config"},
		{name: "output not go", cfg: Config{Packages: []string{"."}, Output: "repr.txt"}, wantErr: "invalid config"},
		{name: "reflection without types", cfg: Config{Provider: ProviderReflection, OutDir: "x"}, wantErr: "has no types"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(context.Background(), &tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	in := &Config{Packages: []string{"."}}
	out := applyConfigDefaults(in)
	if in.Strategy != "" || in.Logger != nil {
		t.Error("applyConfigDefaults mutated its input")
	}
	if out.Provider != ProviderSource || out.Strategy != "fields" || out.Output != "repr_gen.go" {
		t.Errorf("defaults = %+v", out)
	}
	if out.Concurrency < 1 || out.Logger == nil {
		t.Errorf("Concurrency = %d, Logger = %v", out.Concurrency, out.Logger)
	}
}

func TestDiagnosticsError(t *testing.T) {
	one := &DiagnosticsError{Diagnostics: []*ir.GenerationError{
		ir.UnsupportedShape("Color", ir.Source{File: "a.go", Line: 3, Column: 6}, false),
	}}
	if want := "1 type could not be generated:\n\ta.go:3:6: " + ir.MsgOnlyStructs; one.Error() != want {
		t.Errorf("Error() = %q, want %q", one.Error(), want)
	}
}
