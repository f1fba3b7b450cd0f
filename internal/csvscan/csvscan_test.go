package csvscan

import "testing"

// =============================================================================
// record counting
// =============================================================================

func TestParser_CountsRecords(t *testing.T) {
	data := "\nfoo,bar,baz\na,b,c\ne,ff,ggg\nxxx,yyy,zzz\n"
	p := New(DefaultConfig())
	for _, c := range data {
		p.Interpret(c)
	}
	if p.Record() != 4 {
		t.Errorf("Record() = %d, want 4", p.Record())
	}
}

// =============================================================================
// field and record tracking, multi-byte UTF-8, quoted embedded newlines
// =============================================================================

type step struct {
	field   uint64
	record  uint64
	copied  bool
	comment string
}

func feedAndCheck(t *testing.T, p *Parser, c rune, want step) {
	t.Helper()
	got := p.Feed(c)
	if p.Record() != want.record || p.Field() != want.field || got != want.copied {
		t.Errorf("Feed(%q) [%s]: record=%d field=%d copied=%v, want record=%d field=%d copied=%v",
			c, want.comment, p.Record(), p.Field(), got, want.record, want.field, want.copied)
	}
}

func TestParser_MultiByteAndQuotedNewlines(t *testing.T) {
	// "いち,に,さん\n１rec,\"あいう\nえお\",かきく\n"
	data := []rune("いち,に,さん\n１rec,\"あいう\nえお\",かきく\n")
	p := New(DefaultConfig())

	steps := []step{
		{1, 1, true, "い"}, {1, 1, true, "ち"}, {1, 1, false, ","},
		{2, 1, true, "に"}, {2, 1, false, ","},
		{3, 1, true, "さ"}, {3, 1, true, "ん"}, {3, 1, false, "\n"},
		{1, 2, true, "１"}, {1, 2, true, "r"}, {1, 2, true, "e"}, {1, 2, true, "c"},
		{1, 2, false, ","},
		{2, 2, false, "open quote"},
		{2, 2, true, "あ"}, {2, 2, true, "い"}, {2, 2, true, "う"},
		{2, 2, true, "embedded newline"},
		{2, 2, true, "え"}, {2, 2, true, "お"},
		{2, 2, false, "close quote"},
		{2, 2, false, ","},
		{3, 2, true, "か"}, {3, 2, true, "き"}, {3, 2, true, "く"},
		{3, 2, false, "\n"},
	}
	for i, c := range data {
		feedAndCheck(t, p, c, steps[i])
	}
}

// =============================================================================
// InField / State
// =============================================================================

func TestParser_InField(t *testing.T) {
	p := New(DefaultConfig())
	if p.InField() {
		t.Fatal("InField should be false before any input")
	}
	for _, c := range "a" {
		p.Interpret(c)
	}
	if !p.InField() {
		t.Error("InField should be true while inside an unquoted field")
	}
	for _, c := range "," {
		p.Interpret(c)
	}
	if p.InField() {
		t.Error("InField should be false immediately after a delimiter")
	}
}

// =============================================================================
// comments
// =============================================================================

func TestParser_SkipsCommentLines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HasComment = true
	cfg.Comment = '#'
	p := New(cfg)
	for _, c := range "#ignored\na,b\n" {
		p.Interpret(c)
	}
	if p.Record() != 1 {
		t.Errorf("Record() = %d, want 1 (comment line should not count)", p.Record())
	}
}

// =============================================================================
// custom delimiter / terminator
// =============================================================================

func TestParser_CustomDelimiter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimiter = '\t'
	p := New(cfg)
	for _, c := range "a\tb\tc\n" {
		p.Interpret(c)
	}
	if p.Field() != 3 {
		t.Errorf("Field() = %d, want 3", p.Field())
	}
}
