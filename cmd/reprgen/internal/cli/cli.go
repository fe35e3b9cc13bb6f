// Package cli holds the flags and setup shared by reprgen subcommands.
package cli

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/broady/repr/internal/config"
	"github.com/broady/repr/reprgen"
)

// Globals are flags accepted by every subcommand.
type Globals struct {
	Dir      string `help:"Run as if started in this directory." short:"C" type:"existingdir"`
	Config   string `help:"Config file. Default: reprgen.yaml, reprgen.yml or reprgen.toml in the working directory." type:"existingfile"`
	NoConfig bool   `help:"Ignore config files."`
	Verbose  bool   `help:"Log debug output." short:"v"`
	LogJSON  bool   `help:"Log as JSON." name:"log-json"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

// Out returns the writer for command output.
func (g *Globals) Out() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// Logger builds the logger selected by the flags. Logs go to stderr.
func (g *Globals) Logger() *zap.Logger {
	w := g.Stderr
	if w == nil {
		w = os.Stderr
	}
	level := zap.InfoLevel
	if g.Verbose {
		level = zap.DebugLevel
	}

	var enc zapcore.Encoder
	if g.LogJSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		ec.CallerKey = ""
		enc = zapcore.NewConsoleEncoder(ec)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}

// Options select what to generate.
type Options struct {
	Packages        []string `arg:"" optional:"" help:"Package patterns. Default: the current package."`
	Types           []string `help:"Comma-separated struct names to generate, in addition to //reprgen:derive types." short:"t" name:"type"`
	Output          string   `help:"Generated file name. Default: repr_gen.go." short:"o"`
	Strategy        string   `help:"Default strategy: fields or debug." short:"s"`
	Provider        string   `help:"Extraction: source (type-checked) or syntax (parser only)."`
	SequenceTypes   []string `help:"Generic slice types rendered element by element, as import/path.Name." name:"sequence-type"`
	Tags            []string `help:"Build tags used when loading packages."`
	BuildConstraint string   `help:"Build constraint written to generated files." name:"build-constraint"`
	Concurrency     int      `help:"Packages generated at once. Default: GOMAXPROCS." short:"j"`
}

// BuildConfig merges the flags with the config file, flags first.
func (g *Globals) BuildConfig(o *Options, log *zap.Logger) (*reprgen.Config, error) {
	cfg := &reprgen.Config{
		Packages:        o.Packages,
		Dir:             g.Dir,
		Types:           o.Types,
		Output:          o.Output,
		Strategy:        o.Strategy,
		Provider:        o.Provider,
		SequenceTypes:   o.SequenceTypes,
		BuildTags:       o.Tags,
		BuildConstraint: o.BuildConstraint,
		Concurrency:     o.Concurrency,
		Logger:          log,
	}

	path := g.Config
	if path == "" && !g.NoConfig {
		dir := g.Dir
		if dir == "" {
			dir = "."
		}
		found, err := config.Find(dir)
		if err != nil {
			return nil, err
		}
		path = found
	}
	if path != "" {
		f, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		log.Debug("loaded config", zap.String("file", path))
		f.Apply(cfg)
	}

	if len(cfg.Packages) == 0 {
		cfg.Packages = []string{"."}
	}
	if cfg.Provider == reprgen.ProviderReflection {
		return nil, errors.WithHint(
			errors.New("the reflection provider cannot be used from the command line"),
			"use reprgen.FromTypes in a Go program",
		)
	}
	return cfg, nil
}
