// Package runner builds and runs a user's main package with its main
// function replaced, so that a discovered generator export runs in place.
//
// It uses the go command's -overlay flag: files declaring main() are
// replaced by copies without it, and a runner file supplying a new main()
// is added to the package.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"

	"github.com/broady/repr/internal/discover"
)

// RunnerFile is the name of the file added to the package.
const RunnerFile = "reprgen_runner_main_.go"

// Options configures the runner.
type Options struct {
	// Export is the function to call.
	Export discover.Export

	// Check runs Generator.Check instead of Generator.Generate.
	Check bool

	// PkgDir is the directory containing the main package.
	PkgDir string

	// Env overrides the environment of the go command and the runner.
	// Nil means the current environment.
	Env []string
}

// Exec builds and runs the export. It returns the combined output of the
// runner; on failure the output is returned alongside the error.
func Exec(ctx context.Context, opts Options) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "reprgen-run-*")
	if err != nil {
		return nil, errors.Wrap(err, "create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	overlay := make(map[string]string)

	files, err := filepath.Glob(filepath.Join(opts.PkgDir, "*.go"))
	if err != nil {
		return nil, errors.Wrap(err, "glob")
	}
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		hasMain, modified, err := removeMain(file)
		if err != nil {
			return nil, errors.Wrapf(err, "process %s", file)
		}
		if !hasMain {
			continue
		}
		tmpFile := filepath.Join(tmpDir, filepath.Base(file))
		if err := os.WriteFile(tmpFile, modified, 0o644); err != nil {
			return nil, errors.Wrapf(err, "write modified %s", file)
		}
		overlay[file] = tmpFile
	}

	src, err := generateRunner(opts)
	if err != nil {
		return nil, errors.Wrap(err, "generate runner")
	}
	runnerFile := filepath.Join(tmpDir, RunnerFile)
	if err := os.WriteFile(runnerFile, src, 0o644); err != nil {
		return nil, errors.Wrap(err, "write runner")
	}
	overlay[filepath.Join(opts.PkgDir, RunnerFile)] = runnerFile

	overlayJSON, err := json.Marshal(struct {
		Replace map[string]string `json:"Replace"`
	}{Replace: overlay})
	if err != nil {
		return nil, errors.Wrap(err, "marshal overlay")
	}
	overlayFile := filepath.Join(tmpDir, "overlay.json")
	if err := os.WriteFile(overlayFile, overlayJSON, 0o644); err != nil {
		return nil, errors.Wrap(err, "write overlay")
	}

	env := opts.Env
	if env == nil {
		env = os.Environ()
	}

	binary := filepath.Join(tmpDir, "runner")
	build := exec.CommandContext(ctx, "go", "build", "-overlay", overlayFile, "-o", binary, ".")
	build.Dir = opts.PkgDir
	build.Env = env
	if out, err := build.CombinedOutput(); err != nil {
		return out, errors.Wrapf(err, "build %s", opts.PkgDir)
	}

	run := exec.CommandContext(ctx, binary)
	run.Dir = opts.PkgDir
	run.Env = env
	out, err := run.CombinedOutput()
	if err != nil {
		return out, errors.Wrapf(err, "run %s()", opts.Export.Name)
	}
	return out, nil
}

// removeMain returns filename's source with func main() removed.
// hasMain is false when the file declares no main function.
func removeMain(filename string) (hasMain bool, src []byte, err error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
	if err != nil {
		return false, nil, err
	}

	decls := f.Decls[:0:0]
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if ok && fn.Name.Name == "main" && fn.Recv == nil {
			hasMain = true
			continue
		}
		decls = append(decls, decl)
	}
	if !hasMain {
		return false, nil, nil
	}
	f.Decls = decls

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return false, nil, err
	}
	return true, buf.Bytes(), nil
}

var runnerTemplate = template.Must(template.New("runner").Parse(`package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	ctx := context.Background()
{{- if .Check}}
	res, err := {{.ExportFunc}}().Check(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reprgen check: %v\n", err)
		os.Exit(1)
	}
	for _, path := range res.Stale {
		fmt.Printf("✗ %s is out of date\n", path)
	}
	if !res.OK() {
		os.Exit(1)
	}
	fmt.Printf("✓ %d packages, %d types up to date\n", len(res.Result.Packages), res.Result.TypesGenerated())
{{- else}}
	res, err := {{.ExportFunc}}().Generate(ctx)
	if res != nil {
		for _, p := range res.Packages {
			if p.File != "" {
				fmt.Printf("%s: %d types\n", p.File, p.Output.TypesGenerated)
			}
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "reprgen gen: %v\n", err)
		os.Exit(1)
	}
{{- end}}
}
`))

func generateRunner(opts Options) ([]byte, error) {
	if !token.IsIdentifier(opts.Export.Name) {
		return nil, errors.Newf("invalid export name %q", opts.Export.Name)
	}
	var buf bytes.Buffer
	err := runnerTemplate.Execute(&buf, struct {
		ExportFunc string
		Check      bool
	}{
		ExportFunc: opts.Export.Name,
		Check:      opts.Check,
	})
	if err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}
