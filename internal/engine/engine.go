// Package engine validates a parsed command line into exactly one
// selection strategy, wires it to a pipe intercepter, and drives the
// pair to completion. It is the glue cmd/teip calls after parsing flags;
// everything here is independent of how those flags were parsed.
package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/corvineflux/teip/internal/bypass"
	"github.com/corvineflux/teip/internal/csvscan"
	"github.com/corvineflux/teip/internal/env"
	"github.com/corvineflux/teip/internal/highlight"
	"github.com/corvineflux/teip/internal/matcher"
	"github.com/corvineflux/teip/internal/rangelist"
	"github.com/corvineflux/teip/internal/strategy"
	"github.com/corvineflux/teip/internal/teiperr"
)

// Config is the fully-parsed command line, independent of whatever flag
// library produced it.
type Config struct {
	Pattern    string // -g
	Only       bool   // -o
	Extended   bool   // -G or -E
	CharList   string // -c
	LineList   string // -l
	FieldList  string // -f
	Delim      string // -d
	DelimRegex string // -D
	CSV        bool   // --csv
	Pipeline   string // -e

	Invert bool   // -v
	Solid  bool   // -s
	Chomp  bool   // --chomp
	Zero   bool   // -z
	Token  string // -I

	ContextA, ContextB, ContextC int // -A, -B, -C (0 means unset)

	SedPattern string // --sed
	AwkPattern string // --awk

	Argv []string // positional CMD ARG...; empty means dry-run
}

// Run validates cfg, builds the one selection strategy it names, and
// drives it over stdin to completion, returning the first fatal error
// (classified via internal/teiperr) or nil on a clean EOF.
func Run(cfg Config, stdin io.Reader, prog string) error {
	run, err := resolve(cfg, stdin, prog)
	if err != nil {
		return err
	}

	wrap, err := highlight.New(env.Highlight())
	if err != nil {
		return teiperr.New(teiperr.Config, fmt.Errorf("TEIP_HIGHLIGHT: %w", err))
	}

	lineEnd := lineEndOf(cfg)
	dryrun := len(cfg.Argv) == 0

	var ic *bypass.Intercepter
	if cfg.Solid {
		ic, err = bypass.NewSolid(cfg.Argv, lineEnd, dryrun, cfg.Chomp, cfg.Token, wrap)
	} else {
		ic, err = bypass.New(cfg.Argv, lineEnd, dryrun, wrap)
	}
	if err != nil {
		return err
	}

	if runErr := run(ic); runErr != nil {
		ic.Close()
		return runErr
	}
	return ic.Close()
}

func lineEndOf(cfg Config) byte {
	if cfg.Zero {
		return 0
	}
	return '\n'
}

// resolve validates cfg's mutually exclusive selection flags and returns
// a closure that drives the one selection strategy cfg names over a
// given Sink. All flag-validation Config errors surface here, before any
// helper is spawned or any byte of stdin is read; Run reports an invalid
// TEIP_HIGHLIGHT template separately, also before either happens.
func resolve(cfg Config, stdin io.Reader, prog string) (func(strategy.Sink) error, error) {
	hasRegex := cfg.Pattern != ""
	hasChar := cfg.CharList != ""
	hasLine := cfg.LineList != ""
	hasField := cfg.FieldList != ""
	hasPipeline := cfg.Pipeline != ""
	hasSed := cfg.SedPattern != ""
	hasAwk := cfg.AwkPattern != ""

	selected := 0
	for _, b := range []bool{hasRegex, hasChar, hasLine, hasField, hasPipeline, hasSed, hasAwk} {
		if b {
			selected++
		}
	}
	if selected == 0 {
		return nil, teiperr.Newf(teiperr.Config, "no selection mode given (one of -g, -c, -l, -f, -e, --sed, --awk is required)")
	}
	if selected > 1 {
		return nil, teiperr.Newf(teiperr.Config, "selection modes -g, -c, -l, -f, -e, --sed, --awk are mutually exclusive")
	}

	contextFlags := 0
	for _, n := range []int{cfg.ContextA, cfg.ContextB, cfg.ContextC} {
		if n > 0 {
			contextFlags++
		}
	}
	if contextFlags > 1 {
		return nil, teiperr.Newf(teiperr.Config, "-A, -B, and -C are mutually exclusive")
	}
	if contextFlags > 0 && !hasRegex {
		return nil, teiperr.Newf(teiperr.Config, "-A/-B/-C require -g PATTERN")
	}
	if cfg.Only && !hasRegex {
		return nil, teiperr.Newf(teiperr.Config, "-o requires -g PATTERN")
	}
	if cfg.Extended && !hasRegex {
		return nil, teiperr.Newf(teiperr.Config, "-G/-E require -g PATTERN")
	}
	if cfg.Token != "" && !cfg.Solid {
		return nil, teiperr.Newf(teiperr.Config, "-I TOKEN requires -s")
	}

	delimSelectors := 0
	for _, b := range []bool{cfg.Delim != "", cfg.DelimRegex != "", cfg.CSV} {
		if b {
			delimSelectors++
		}
	}
	if delimSelectors > 1 {
		return nil, teiperr.Newf(teiperr.Config, "-d, -D, and --csv are mutually exclusive")
	}
	if !hasField && (cfg.Delim != "" || cfg.DelimRegex != "") {
		return nil, teiperr.Newf(teiperr.Config, "-d/-D require -f LIST")
	}
	if cfg.CSV && !hasField {
		return nil, teiperr.Newf(teiperr.Config, "--csv requires -f LIST")
	}

	lineEnd := lineEndOf(cfg)

	switch {
	case contextFlags > 0:
		n, flagName := pickContext(cfg)
		pipeline := fmt.Sprintf("%s -n -%s %d -- %s", env.GrepPath(), flagName, n, shellQuote(cfg.Pattern))
		return func(sink strategy.Sink) error {
			return strategy.RunExternalOffload(stdin, sink, pipeline, cfg.Invert, lineEnd, prog)
		}, nil

	case hasSed:
		pipeline := fmt.Sprintf(`%s -n "%s="`, env.SedPath(), cfg.SedPattern)
		return func(sink strategy.Sink) error {
			return strategy.RunExternalOffload(stdin, sink, pipeline, cfg.Invert, lineEnd, prog)
		}, nil

	case hasAwk:
		pipeline := fmt.Sprintf(`%s "%s{print NR}"`, env.AwkPath(), cfg.AwkPattern)
		return func(sink strategy.Sink) error {
			return strategy.RunExternalOffload(stdin, sink, pipeline, cfg.Invert, lineEnd, prog)
		}, nil

	case hasPipeline:
		return func(sink strategy.Sink) error {
			return strategy.RunExternalOffload(stdin, sink, cfg.Pipeline, cfg.Invert, lineEnd, prog)
		}, nil

	case hasRegex:
		m, err := buildMatcher(cfg.Pattern, cfg.Extended, cfg.Zero)
		if err != nil {
			return nil, teiperr.New(teiperr.Config, err)
		}
		if cfg.Only {
			return func(sink strategy.Sink) error {
				return strategy.RunRegexOnly(stdin, sink, m, cfg.Invert, lineEnd, prog)
			}, nil
		}
		return func(sink strategy.Sink) error {
			return strategy.RunRegexLine(stdin, sink, m, cfg.Invert, lineEnd, prog)
		}, nil

	case hasChar:
		ranges, err := rangelist.ToRanges(cfg.CharList, cfg.Invert)
		if err != nil {
			return nil, teiperr.New(teiperr.Config, err)
		}
		return func(sink strategy.Sink) error {
			return strategy.RunCharRange(stdin, sink, ranges, lineEnd, prog)
		}, nil

	case hasLine:
		ranges, err := rangelist.ToRanges(cfg.LineList, cfg.Invert)
		if err != nil {
			return nil, teiperr.New(teiperr.Config, err)
		}
		return func(sink strategy.Sink) error {
			return strategy.RunLineList(stdin, sink, ranges, lineEnd, prog)
		}, nil

	case hasField:
		ranges, err := rangelist.ToRanges(cfg.FieldList, cfg.Invert)
		if err != nil {
			return nil, teiperr.New(teiperr.Config, err)
		}
		switch {
		case cfg.CSV:
			return func(sink strategy.Sink) error {
				return strategy.RunCSVField(stdin, sink, csvscan.DefaultConfig(), ranges)
			}, nil
		case cfg.Delim != "":
			return func(sink strategy.Sink) error {
				return strategy.RunFieldDelim(stdin, sink, cfg.Delim, ranges, lineEnd, prog)
			}, nil
		default:
			pattern := cfg.DelimRegex
			if pattern == "" {
				pattern = `\s+`
			}
			m, err := matcher.NewDefault(pattern, false)
			if err != nil {
				return nil, teiperr.New(teiperr.Config, err)
			}
			return func(sink strategy.Sink) error {
				return strategy.RunFieldRegex(stdin, sink, m, ranges, lineEnd, prog)
			}, nil
		}
	}

	// unreachable: exactly one of the seven cases above always matches
	// given selected == 1.
	return nil, teiperr.Newf(teiperr.Config, "no selection mode given")
}

// buildMatcher compiles pattern with the engine -G/-E selects. zero ties
// dot-matches-newline to -z the same way original teip's NUL-delimiter
// mode forces multiline regex semantics, since a NUL-framed record may
// itself contain embedded newlines.
func buildMatcher(pattern string, extended bool, zero bool) (matcher.Matcher, error) {
	if extended {
		return matcher.NewExtended(pattern, zero)
	}
	return matcher.NewDefault(pattern, zero)
}

// pickContext returns whichever of -A/-B/-C is set along with its flag
// letter, used to build the grep alias pipeline. Caller guarantees
// exactly one is positive.
func pickContext(cfg Config) (n int, flagName string) {
	switch {
	case cfg.ContextA > 0:
		return cfg.ContextA, "A"
	case cfg.ContextB > 0:
		return cfg.ContextB, "B"
	default:
		return cfg.ContextC, "C"
	}
}

// shellQuote wraps s in single quotes for inclusion in a shell -c
// command string, escaping any embedded single quote the POSIX way.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
