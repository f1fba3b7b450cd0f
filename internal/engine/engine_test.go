package engine

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/corvineflux/teip/internal/teiperr"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	return string(out)
}

func wantConfigError(t *testing.T, cfg Config) {
	t.Helper()
	err := Run(cfg, strings.NewReader(""), "teip")
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	kind, ok := teiperr.KindOf(err)
	if !ok || kind != teiperr.Config {
		t.Errorf("KindOf(err) = (%v, %v), want (Config, true): %v", kind, ok, err)
	}
}

func TestRun_NoSelectionModeIsConfigError(t *testing.T) {
	wantConfigError(t, Config{})
}

func TestRun_MultipleSelectionModesIsConfigError(t *testing.T) {
	wantConfigError(t, Config{Pattern: "a", LineList: "1"})
}

func TestRun_OnlyWithoutRegexIsConfigError(t *testing.T) {
	wantConfigError(t, Config{LineList: "1", Only: true})
}

func TestRun_ContextWithoutRegexIsConfigError(t *testing.T) {
	wantConfigError(t, Config{LineList: "1", ContextA: 2})
}

func TestRun_MultipleContextFlagsIsConfigError(t *testing.T) {
	wantConfigError(t, Config{Pattern: "a", ContextA: 1, ContextB: 1})
}

func TestRun_CSVWithoutFieldListIsConfigError(t *testing.T) {
	wantConfigError(t, Config{CSV: true, LineList: "1"})
}

func TestRun_DelimWithoutFieldListIsConfigError(t *testing.T) {
	wantConfigError(t, Config{Delim: ",", LineList: "1"})
}

func TestRun_MultipleDelimSelectorsIsConfigError(t *testing.T) {
	wantConfigError(t, Config{FieldList: "1", Delim: ",", CSV: true})
}

func TestRun_BadRangeListIsConfigError(t *testing.T) {
	wantConfigError(t, Config{LineList: "not-a-range"})
}

func TestRun_TokenWithoutSolidIsConfigError(t *testing.T) {
	wantConfigError(t, Config{LineList: "1", Token: "{}"})
}

func TestRun_BadRegexIsConfigError(t *testing.T) {
	wantConfigError(t, Config{Pattern: "("})
}

func TestRun_DryRunHighlightsWithoutSpawning(t *testing.T) {
	out := captureStdout(t, func() {
		err := Run(Config{LineList: "2"}, strings.NewReader("a\nb\nc\n"), "teip")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	})
	if !strings.Contains(out, "b") || !strings.Contains(out, "a\n") {
		t.Errorf("got %q, want dry-run highlighted output containing the bypassed line", out)
	}
}

func TestRun_LineListEndToEnd(t *testing.T) {
	out := captureStdout(t, func() {
		err := Run(Config{LineList: "2,4-5", Argv: []string{"sed", "s/./@/"}},
			strings.NewReader("111\n222\n333\n444\n555\n666\n"), "teip")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	})
	if out != "111\n@22\n333\n@44\n@55\n666\n" {
		t.Errorf("got %q", out)
	}
}

func TestRun_InvertComplementsRangeList(t *testing.T) {
	out := captureStdout(t, func() {
		err := Run(Config{LineList: "2", Invert: true, Argv: []string{"sed", "s/./@/"}},
			strings.NewReader("a\nb\nc\n"), "teip")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	})
	if out != "@\nb\n@\n" {
		t.Errorf("got %q", out)
	}
}

func TestRun_FieldListDefaultsToWhitespaceSplit(t *testing.T) {
	out := captureStdout(t, func() {
		err := Run(Config{FieldList: "2", Argv: []string{"sed", "s/.*/X/"}},
			strings.NewReader("one two three\n"), "teip")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	})
	if out != "one X three\n" {
		t.Errorf("got %q", out)
	}
}
