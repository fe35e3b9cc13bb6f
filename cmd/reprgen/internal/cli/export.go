package cli

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/broady/repr/internal/discover"
	"github.com/broady/repr/internal/runner"
)

// ExportAuto selects the package's only generator export.
const ExportAuto = "auto"

// RunExport finds the generator export named name in the single main
// package matched by o.Packages, then builds and runs it. Other Options
// are not used; the export configures itself.
func (g *Globals) RunExport(ctx context.Context, o *Options, name string, check bool, log *zap.Logger) error {
	pattern := "."
	switch len(o.Packages) {
	case 0:
	case 1:
		pattern = o.Packages[0]
	default:
		return errors.New("--export takes a single package")
	}
	if name == ExportAuto {
		name = ""
	}

	res, err := discover.Find(ctx, pattern, g.Dir)
	if err != nil {
		return errors.Wrap(err, "discover")
	}
	export, err := discover.SelectExport(res.Exports, name)
	if err != nil {
		return err
	}
	log.Debug("running export",
		zap.String("func", export.Name),
		zap.String("package", res.PackagePath),
		zap.Stringer("pos", export.Pos))

	out, err := runner.Exec(ctx, runner.Options{
		Export: *export,
		Check:  check,
		PkgDir: res.Dir,
	})
	fmt.Fprint(g.Out(), string(out))
	return err
}
