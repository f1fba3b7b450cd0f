// Command teip bypasses selected parts of standard input to another
// command and splices its output back in place, leaving everything else
// untouched.
//
// Usage:
//
//	teip [selection flags] [modifiers] [--] CMD [ARG...]
//
// Run with -h for the full flag reference.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/corvineflux/teip/internal/engine"
	"github.com/corvineflux/teip/internal/teiperr"
)

const progName = "teip"

func main() {
	app := cli.NewApp()
	app.Name = progName
	app.Usage = "bypass selected parts of standard input to another command"
	app.UsageText = "teip [selection flags] [modifiers] [--] CMD [ARG...]"
	app.ArgsUsage = "[--] CMD [ARG...]"
	app.HideVersion = true
	app.Flags = flags()
	app.Action = runAction

	if err := app.Run(os.Args); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func runAction(c *cli.Context) error {
	cfg := engine.Config{
		Pattern:    c.String("g"),
		Only:       c.Bool("o"),
		Extended:   c.Bool("G") || c.Bool("E"),
		CharList:   c.String("c"),
		LineList:   c.String("l"),
		FieldList:  c.String("f"),
		Delim:      c.String("d"),
		DelimRegex: c.String("D"),
		CSV:        c.Bool("csv"),
		Pipeline:   c.String("e"),
		Invert:     c.Bool("v"),
		Solid:      c.Bool("s"),
		Chomp:      c.Bool("chomp"),
		Zero:       c.Bool("z"),
		Token:      c.String("I"),
		ContextA:   c.Int("A"),
		ContextB:   c.Int("B"),
		ContextC:   c.Int("C"),
		SedPattern: c.String("sed"),
		AwkPattern: c.String("awk"),
		Argv:       []string(c.Args()),
	}
	return engine.Run(cfg, os.Stdin, progName)
}

// exitCodeFor maps a fatal error to its exit code: broken pipes exit
// silently, everything else prints a program-prefixed message to
// stderr first. Both cases exit 1, per the error taxonomy of §7.
func exitCodeFor(err error) int {
	if kind, ok := teiperr.KindOf(err); ok && kind == teiperr.BrokenPipe {
		return 1
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", progName, err)
	return 1
}

func flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "g", Usage: "select/match using regular expression `PATTERN`"},
		cli.BoolFlag{Name: "o", Usage: "with -g, select only matched spans instead of whole lines"},
		cli.BoolFlag{Name: "G", Usage: "with -g, compile PATTERN with the extended (look-around) engine"},
		cli.BoolFlag{Name: "E", Usage: "alias for -G"},
		cli.StringFlag{Name: "c", Usage: "select characters named by `LIST`"},
		cli.StringFlag{Name: "l", Usage: "select lines named by `LIST`"},
		cli.StringFlag{Name: "f", Usage: "select fields named by `LIST`"},
		cli.StringFlag{Name: "d", Usage: "use `DELIM` as the literal field delimiter for -f"},
		cli.StringFlag{Name: "D", Usage: "use `REGEX` as the field delimiter for -f"},
		cli.BoolFlag{Name: "csv", Usage: "with -f, select RFC 4180 CSV fields instead of delimited fields"},
		cli.StringFlag{Name: "e", Usage: "select lines named by `PIPELINE`'s line-number output"},
		cli.BoolFlag{Name: "v", Usage: "invert the selection"},
		cli.BoolFlag{Name: "s", Usage: "solid mode: run the helper once per selected chunk, whole"},
		cli.BoolFlag{Name: "chomp", Usage: "strip/restore a trailing line terminator around each chunk (solid mode)"},
		cli.BoolFlag{Name: "z", Usage: "line delimiter is NUL instead of newline"},
		cli.StringFlag{Name: "I", Usage: "solid mode: substitute `TOKEN` in the helper's argv with the chunk text"},
		cli.IntFlag{Name: "A", Usage: "with -g, select N lines of context after each match via grep"},
		cli.IntFlag{Name: "B", Usage: "with -g, select N lines of context before each match via grep"},
		cli.IntFlag{Name: "C", Usage: "with -g, select N lines of context around each match via grep"},
		cli.StringFlag{Name: "sed", Usage: "select lines named by `sed -n 'PATTERN='`'s line numbers"},
		cli.StringFlag{Name: "awk", Usage: "select lines named by `awk 'PATTERN{print NR}'`'s line numbers"},
	}
}
