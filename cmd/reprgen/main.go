// Command reprgen generates Represent() string methods for Go structs.
//
// Mark a struct with a directive and run reprgen in its package:
//
//	//reprgen:derive
//	type Order struct { ... }
//
//	//go:generate go run github.com/broady/repr/cmd/reprgen gen
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/broady/repr/cmd/reprgen/internal/check"
	"github.com/broady/repr/cmd/reprgen/internal/cli"
	"github.com/broady/repr/cmd/reprgen/internal/gen"
)

type CLI struct {
	cli.Globals

	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     gen.Cmd    `cmd:"" help:"Generate Represent methods." default:"withargs"`
	Check   check.Cmd  `cmd:"" help:"Verify generated files are up to date without writing."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run(g *cli.Globals) error {
	fmt.Fprintln(g.Out(), Version())
	return nil
}

func newParser(c *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("reprgen"),
		kong.Description("Generate Represent() string methods for Go structs."),
		kong.UsageOnError(),
	}, options...)
	return kong.New(c, options...)
}

func main() {
	c := &CLI{}
	parser, err := newParser(c)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	err = ctx.Run(&c.Globals)
	ctx.FatalIfErrorf(err)
}
