package bypass

import (
	"io"
	"os"
	"testing"

	"github.com/corvineflux/teip/internal/highlight"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// what was written to it.
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

// =============================================================================
// streaming mode
// =============================================================================

func TestIntercepter_StreamingRoundTripsThroughHelper(t *testing.T) {
	var got string
	out := captureStdout(t, func() {
		ic, err := New([]string{"tr", "a-z", "A-Z"}, '\n', false, nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		ic.SendKeep("111")
		if err := ic.SendBypass("abc"); err != nil {
			t.Fatalf("SendBypass: %v", err)
		}
		ic.SendKeep("222\n")
		if err := ic.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
	got = out
	want := "111ABC222\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// =============================================================================
// solid mode
// =============================================================================

func TestIntercepter_SolidSpawnsFreshHelperPerChunk(t *testing.T) {
	out := captureStdout(t, func() {
		ic, err := NewSolid([]string{"tr", "a-z", "A-Z"}, '\n', false, false, "", nil)
		if err != nil {
			t.Fatalf("NewSolid: %v", err)
		}
		ic.SendKeep("[")
		if err := ic.SendBypass("abc"); err != nil {
			t.Fatalf("SendBypass: %v", err)
		}
		ic.SendKeep("]")
		if err := ic.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
	if out != "[ABC]" {
		t.Errorf("got %q, want %q", out, "[ABC]")
	}
}

// =============================================================================
// dry-run mode
// =============================================================================

func TestIntercepter_DryRunHighlightsInsteadOfSpawning(t *testing.T) {
	w, err := highlight.New("<<{}>>")
	if err != nil {
		t.Fatalf("highlight.New: %v", err)
	}
	out := captureStdout(t, func() {
		ic, err := New(nil, '\n', false, w)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		ic.SendKeep("x")
		if err := ic.SendBypass("abc"); err != nil {
			t.Fatalf("SendBypass: %v", err)
		}
		ic.SendKeep("y")
		if err := ic.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
	if out != "x<<abc>>y" {
		t.Errorf("got %q, want %q", out, "x<<abc>>y")
	}
}

func TestIntercepter_SolidTokenSubstitutesIntoArgv(t *testing.T) {
	out := captureStdout(t, func() {
		ic, err := NewSolid([]string{"echo", "-n", "<{}>"}, '\n', false, false, "{}", nil)
		if err != nil {
			t.Fatalf("NewSolid: %v", err)
		}
		if err := ic.SendBypass("abc"); err != nil {
			t.Fatalf("SendBypass: %v", err)
		}
		if err := ic.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
	if out != "<abc>" {
		t.Errorf("got %q, want %q", out, "<abc>")
	}
}

// =============================================================================
// coalescing
// =============================================================================

func TestIntercepter_BufSendCoalescesAdjacentRuns(t *testing.T) {
	out := captureStdout(t, func() {
		ic, err := NewSolid([]string{"tr", "a-z", "A-Z"}, '\n', false, false, "", nil)
		if err != nil {
			t.Fatalf("NewSolid: %v", err)
		}
		if err := ic.BufSendBypass("a"); err != nil {
			t.Fatal(err)
		}
		if err := ic.BufSendBypass("b"); err != nil {
			t.Fatal(err)
		}
		if err := ic.BufSendBypass("c"); err != nil {
			t.Fatal(err)
		}
		if err := ic.BufSendKeep("!"); err != nil {
			t.Fatal(err)
		}
		if err := ic.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
	// a single "abc" helper invocation, not three.
	if out != "ABC!" {
		t.Errorf("got %q, want %q (expected one coalesced helper call)", out, "ABC!")
	}
}
