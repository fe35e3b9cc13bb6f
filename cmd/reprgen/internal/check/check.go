package check

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"

	"github.com/broady/repr/cmd/reprgen/internal/cli"
	"github.com/broady/repr/reprgen"
)

type Cmd struct {
	cli.Options `embed:""`

	Export string `help:"Run the func() *reprgen.Generator with this name from the main package given as argument, or \"auto\" for its only one." short:"e"`
}

func (c *Cmd) Run(g *cli.Globals) error {
	log := g.Logger()
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c.Export != "" {
		return g.RunExport(ctx, &c.Options, c.Export, true, log)
	}

	cfg, err := g.BuildConfig(&c.Options, log)
	if err != nil {
		return err
	}

	res, err := reprgen.Check(ctx, cfg)
	if err != nil {
		return err
	}
	if !res.OK() {
		for _, path := range res.Stale {
			fmt.Fprintf(g.Out(), "✗ %s is out of date\n", path)
		}
		return errors.WithHint(
			errors.Newf("%d generated files are out of date", len(res.Stale)),
			"run reprgen gen",
		)
	}

	fmt.Fprintf(g.Out(), "✓ %d packages, %d types up to date\n", len(res.Result.Packages), res.Result.TypesGenerated())
	return nil
}
