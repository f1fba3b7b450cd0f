package matcher

import "testing"

// =============================================================================
// default engine
// =============================================================================

func TestDefault_FindAll(t *testing.T) {
	m, err := NewDefault(`\d+`, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.FindAll([]byte("a1 b22 c333"))
	want := []Match{{1, 2}, {4, 6}, {8, 11}}
	if len(got) != len(want) {
		t.Fatalf("FindAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDefault_MatchAny(t *testing.T) {
	m, err := NewDefault(`^foo`, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.MatchAny([]byte("foobar")) {
		t.Error("expected match")
	}
	if m.MatchAny([]byte("barfoo")) {
		t.Error("expected no match")
	}
}

func TestDefault_DotAllMatchesNewline(t *testing.T) {
	m, err := NewDefault(`a.b`, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.MatchAny([]byte("a\nb")) {
		t.Error("expected dot-all to match across embedded newline")
	}
}

func TestDefault_InvalidPattern(t *testing.T) {
	if _, err := NewDefault(`(`, false); err == nil {
		t.Fatal("expected compile error for unbalanced paren")
	}
}

// =============================================================================
// extended engine
// =============================================================================

func TestExtended_LookAhead(t *testing.T) {
	m, err := NewExtended(`foo(?=bar)`, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.MatchAny([]byte("foobar")) {
		t.Error("expected look-ahead match")
	}
	if m.MatchAny([]byte("foobaz")) {
		t.Error("expected no match without trailing bar")
	}
}

func TestExtended_FindAllNonOverlapping(t *testing.T) {
	m, err := NewExtended(`\d+`, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.FindAll([]byte("x10y20z"))
	if len(got) != 2 || got[0] != (Match{1, 3}) || got[1] != (Match{4, 6}) {
		t.Errorf("FindAll() = %v", got)
	}
}

func TestExtended_InvalidPattern(t *testing.T) {
	if _, err := NewExtended(`(?=`, false); err == nil {
		t.Fatal("expected compile error for unterminated look-ahead")
	}
}
