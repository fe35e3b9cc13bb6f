// Package config loads reprgen project files.
//
// A project file is reprgen.yaml, reprgen.yml or reprgen.toml in the
// directory reprgen runs in. Every key is optional; command line flags
// override file values.
//
//	packages: [./...]
//	strategy: fields
//	sequence_types: [example.com/coll.List]
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/broady/repr/reprgen"
)

// Names lists the file names Find looks for, in order.
var Names = []string{"reprgen.yaml", "reprgen.yml", "reprgen.toml"}

// File is the contents of a project file.
type File struct {
	Packages        []string `yaml:"packages" toml:"packages" validate:"dive,required"`
	Types           []string `yaml:"types" toml:"types" validate:"dive,required"`
	Output          string   `yaml:"output" toml:"output" validate:"omitempty,endswith=.go,excludesall=/\\"`
	Strategy        string   `yaml:"strategy" toml:"strategy" validate:"omitempty,oneof=fields debug"`
	Provider        string   `yaml:"provider" toml:"provider" validate:"omitempty,oneof=source syntax"`
	SequenceTypes   []string `yaml:"sequence_types" toml:"sequence_types" validate:"dive,required"`
	BuildTags       []string `yaml:"tags" toml:"tags"`
	BuildConstraint string   `yaml:"build_constraint" toml:"build_constraint"`
	Concurrency     int      `yaml:"concurrency" toml:"concurrency" validate:"gte=0"`

	// Path is the file the values were read from.
	Path string `yaml:"-" toml:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Find returns the path of the first project file present in dir, or ""
// when there is none.
func Find(dir string) (string, error) {
	for _, name := range Names {
		p := filepath.Join(dir, name)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !os.IsNotExist(err) {
			return "", errors.Wrap(err, "stat config file")
		}
	}
	return "", nil
}

// Load reads and validates a project file. The format is chosen by
// extension. Unknown keys are errors.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	f := &File{Path: path}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	case ".toml":
		md, err := toml.Decode(string(data), f)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Newf("%s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return nil, errors.WithHint(
			errors.Newf("unsupported config file extension %q", ext),
			"use .yaml, .yml or .toml",
		)
	}

	if err := validate.Struct(f); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return f, nil
}

// Apply copies the file's values into cfg. Fields already set in cfg are
// kept, so values from flags win.
func (f *File) Apply(cfg *reprgen.Config) {
	if len(cfg.Packages) == 0 {
		cfg.Packages = f.Packages
	}
	if len(cfg.Types) == 0 {
		cfg.Types = f.Types
	}
	if cfg.Output == "" {
		cfg.Output = f.Output
	}
	if cfg.Strategy == "" {
		cfg.Strategy = f.Strategy
	}
	if cfg.Provider == "" {
		cfg.Provider = f.Provider
	}
	if len(cfg.SequenceTypes) == 0 {
		cfg.SequenceTypes = f.SequenceTypes
	}
	if len(cfg.BuildTags) == 0 {
		cfg.BuildTags = f.BuildTags
	}
	if cfg.BuildConstraint == "" {
		cfg.BuildConstraint = f.BuildConstraint
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = f.Concurrency
	}
}
