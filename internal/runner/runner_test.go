package runner

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/repr/internal/discover"
)

func TestGenerateRunner(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name: "generate",
			opts: Options{Export: discover.Export{Name: "Gen"}},
			contains: []string{
				"res, err := Gen().Generate(ctx)",
				`fmt.Printf("%s: %d types\n", p.File, p.Output.TypesGenerated)`,
			},
			excludes: []string{"Check(ctx)"},
		},
		{
			name: "check",
			opts: Options{Export: discover.Export{Name: "genModels"}, Check: true},
			contains: []string{
				"res, err := genModels().Check(ctx)",
				"if !res.OK() {",
			},
			excludes: []string{"Generate(ctx)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := generateRunner(tt.opts)
			require.NoError(t, err)
			_, err = parser.ParseFile(token.NewFileSet(), RunnerFile, src, 0)
			require.NoError(t, err, "runner must parse:\n%s", src)
			for _, s := range tt.contains {
				assert.Contains(t, string(src), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, string(src), s)
			}
		})
	}
}

func TestGenerateRunner_InvalidName(t *testing.T) {
	_, err := generateRunner(Options{Export: discover.Export{Name: "Gen()"}})
	assert.ErrorContains(t, err, "invalid export name")
}

func TestRemoveMain(t *testing.T) {
	dir := t.TempDir()

	withMain := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(withMain, []byte(`package main

import "github.com/broady/repr/reprgen"

// Gen configures generation.
func Gen() *reprgen.Generator {
	return reprgen.FromPackages("./...")
}

func main() {
	Gen()
}

type T struct{}

func (T) main() {}
`), 0o644))

	hasMain, src, err := removeMain(withMain)
	require.NoError(t, err)
	assert.True(t, hasMain)
	assert.NotContains(t, string(src), "func main()")
	assert.Contains(t, string(src), "func (T) main() {}", "methods named main are kept")
	assert.Contains(t, string(src), "// Gen configures generation.")
	assert.True(t, strings.HasPrefix(string(src), "package main"))

	noMain := filepath.Join(dir, "gen.go")
	require.NoError(t, os.WriteFile(noMain, []byte("package main\n\nvar x = 1\n"), 0o644))
	hasMain, src, err = removeMain(noMain)
	require.NoError(t, err)
	assert.False(t, hasMain)
	assert.Nil(t, src)

	bad := filepath.Join(dir, "bad.go")
	require.NoError(t, os.WriteFile(bad, []byte("package main\nfunc {"), 0o644))
	_, _, err = removeMain(bad)
	assert.Error(t, err)
}
