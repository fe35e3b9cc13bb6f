package gen

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/broady/repr/cmd/reprgen/internal/cli"
	"github.com/broady/repr/internal/watch"
	"github.com/broady/repr/reprgen"
)

type Cmd struct {
	cli.Options `embed:""`

	Watch  bool   `help:"Regenerate when .go files change." short:"w"`
	Export string `help:"Run the func() *reprgen.Generator with this name from the main package given as argument, or \"auto\" for its only one." short:"e"`
}

func (c *Cmd) Run(g *cli.Globals) error {
	log := g.Logger()
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c.Export != "" {
		if c.Watch {
			return errors.New("--watch cannot be combined with --export")
		}
		return g.RunExport(ctx, &c.Options, c.Export, false, log)
	}

	cfg, err := g.BuildConfig(&c.Options, log)
	if err != nil {
		return err
	}

	res, err := c.generate(ctx, g, cfg)
	if !c.Watch || res == nil {
		return err
	}
	if err != nil {
		log.Error("generate failed", zap.Error(err))
	}

	dirs := packageDirs(res)
	if len(dirs) == 0 {
		return errors.New("no package directories to watch")
	}
	log.Info("watching for changes", zap.Int("packages", len(dirs)))
	return watch.Run(ctx, watch.Options{
		Dirs:   dirs,
		Ignore: []string{filepath.Base(outputName(cfg))},
		Logger: log,
	}, func(ctx context.Context) error {
		_, err := c.generate(ctx, g, cfg)
		return err
	})
}

// generate runs one generation and prints a line per written file.
// Diagnostics are printed before the error is returned.
func (c *Cmd) generate(ctx context.Context, g *cli.Globals, cfg *reprgen.Config) (*reprgen.Result, error) {
	res, err := reprgen.Generate(ctx, cfg)
	if res != nil {
		for _, p := range res.Packages {
			switch {
			case p.File != "":
				fmt.Fprintf(g.Out(), "%s: %d types\n", relPath(cfg.Dir, p.File), p.Output.TypesGenerated)
			case p.Removed:
				fmt.Fprintf(g.Out(), "%s: removed\n", relPath(cfg.Dir, filepath.Join(p.Package.Dir, outputName(cfg))))
			}
		}
	}
	return res, err
}

func packageDirs(res *reprgen.Result) []string {
	var dirs []string
	for _, p := range res.Packages {
		if p.Package.Dir != "" {
			dirs = append(dirs, p.Package.Dir)
		}
	}
	return dirs
}

func outputName(cfg *reprgen.Config) string {
	if cfg.Output == "" {
		return reprgen.DefaultOutput
	}
	return cfg.Output
}

func relPath(base, path string) string {
	if base == "" {
		base = "."
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(abs, path)
	if err != nil {
		return path
	}
	return rel
}
