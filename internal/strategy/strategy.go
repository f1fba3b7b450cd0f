// Package strategy implements the seven ways teip selects which part of
// its input is bypassed to a helper: an explicit line list, a regex
// tested against whole lines, regex sub-matches within a line, a
// character range, a literal-delimiter field split, a regex-delimiter
// field split, RFC-4180 CSV fields, and alignment against a secondary
// pipeline's line-number output. Every strategy reads stdin to EOF and
// emits an ordered sequence of Keep/Bypass chunks, terminating with
// Flush on the sink it was given; closing the sink is left to the caller.
package strategy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/corvineflux/teip/internal/csvscan"
	"github.com/corvineflux/teip/internal/matcher"
	"github.com/corvineflux/teip/internal/procutil"
	"github.com/corvineflux/teip/internal/rangelist"
	"github.com/corvineflux/teip/internal/teiperr"
)

// Sink is the subset of *bypass.Intercepter every strategy drives. An
// interface here keeps this package testable without spawning helpers.
type Sink interface {
	SendKeep(text string)
	SendBypass(text string) error
	BufSendKeep(text string) error
	BufSendBypass(text string) error
	Flush() error
}

// readLine returns the next lineEnd-terminated record from br, including
// a final record with no trailing delimiter. It reports ok=false once
// the stream is exhausted. Non-EOF read errors are reported to stderr
// under prog and retried, matching the read-error policy of the driver.
func readLine(br *bufio.Reader, lineEnd byte, prog string) (line []byte, ok bool) {
	for {
		buf, err := br.ReadBytes(lineEnd)
		if len(buf) > 0 {
			return buf, true
		}
		if err == nil {
			continue
		}
		if err != io.EOF {
			fmt.Fprintf(os.Stderr, "%s: %v\n", prog, err)
			continue
		}
		return nil, false
	}
}

// trimEOL splits off the line terminator from buf, mirroring the
// original's trim_eol: CRLF and bare LF are recognized regardless of
// configured delimiter, plus the configured NUL delimiter under -z.
func trimEOL(buf []byte, lineEnd byte) (content []byte, eol string) {
	switch {
	case len(buf) >= 2 && buf[len(buf)-2] == '\r' && buf[len(buf)-1] == '\n':
		return buf[:len(buf)-2], "\r\n"
	case len(buf) >= 1 && buf[len(buf)-1] == '\n':
		return buf[:len(buf)-1], "\n"
	case len(buf) >= 1 && buf[len(buf)-1] == lineEnd:
		return buf[:len(buf)-1], string(lineEnd)
	default:
		return buf, ""
	}
}

// RunLineList bypasses whole lines whose 1-based index falls in ranges
// (-l). The range cursor advances monotonically across the entire
// stream, matching original teip's single line-number counter.
func RunLineList(r io.Reader, sink Sink, ranges rangelist.List, lineEnd byte, prog string) error {
	br := bufio.NewReaderSize(r, procutil.DefaultCap)
	cursor := rangelist.NewCursor(ranges)
	var i uint64
	for {
		buf, ok := readLine(br, lineEnd, prog)
		if !ok {
			break
		}
		i++
		content, eol := trimEOL(buf, lineEnd)
		if cursor.Contains(i) {
			if err := sink.SendBypass(string(content)); err != nil {
				return err
			}
		} else {
			sink.SendKeep(string(content))
		}
		sink.SendKeep(eol)
	}
	return sink.Flush()
}

// RunRegexLine bypasses whole lines matching re (-g without -o), xor
// invert.
func RunRegexLine(r io.Reader, sink Sink, m matcher.Matcher, invert bool, lineEnd byte, prog string) error {
	br := bufio.NewReaderSize(r, procutil.DefaultCap)
	for {
		buf, ok := readLine(br, lineEnd, prog)
		if !ok {
			break
		}
		content, eol := trimEOL(buf, lineEnd)
		matched := m.MatchAny(content)
		if matched != invert {
			if err := sink.SendBypass(string(content)); err != nil {
				return err
			}
		} else {
			sink.SendKeep(string(content))
		}
		sink.SendKeep(eol)
	}
	return sink.Flush()
}

// RunRegexOnly bypasses individual regex matches within each line
// (-g -o), keeping interstitial text. Empty matches are skipped so
// patterns like ".*" do not subdivide a line infinitely.
func RunRegexOnly(r io.Reader, sink Sink, m matcher.Matcher, invert bool, lineEnd byte, prog string) error {
	br := bufio.NewReaderSize(r, procutil.DefaultCap)
	for {
		buf, ok := readLine(br, lineEnd, prog)
		if !ok {
			break
		}
		content, eol := trimEOL(buf, lineEnd)
		line := string(content)
		left := 0
		for _, m := range m.FindAll(content) {
			if m.Start == m.End {
				continue
			}
			unmatched := line[left:m.Start]
			matched := line[m.Start:m.End]
			if unmatched != "" {
				if err := sendSwap(sink, unmatched, invert); err != nil {
					return err
				}
			}
			if err := sendSwap(sink, matched, !invert); err != nil {
				return err
			}
			left = m.End
		}
		if left < len(line) {
			if err := sendSwap(sink, line[left:], invert); err != nil {
				return err
			}
		}
		sink.SendKeep(eol)
	}
	return sink.Flush()
}

// sendSwap sends text as Keep, or as Bypass when bypass is true.
func sendSwap(sink Sink, text string, bypass bool) error {
	if bypass {
		return sink.SendBypass(text)
	}
	sink.SendKeep(text)
	return nil
}

// RunCharRange bypasses code points whose 1-based position within the
// line falls in ranges (-c), coalescing consecutive same-class runs so
// the helper sees whole spans rather than one call per character. The
// range cursor resets every line, since positions are line-relative.
func RunCharRange(r io.Reader, sink Sink, ranges rangelist.List, lineEnd byte, prog string) error {
	br := bufio.NewReaderSize(r, procutil.DefaultCap)
	for {
		buf, ok := readLine(br, lineEnd, prog)
		if !ok {
			break
		}
		content, eol := trimEOL(buf, lineEnd)
		cursor := rangelist.NewCursor(ranges)
		var strIn, strOut []rune
		lastIn := false
		i := uint64(0)
		for _, c := range string(content) {
			i++
			isIn := cursor.Contains(i)
			if isIn {
				strIn = append(strIn, c)
			} else {
				strOut = append(strOut, c)
			}
			if isIn && !lastIn {
				sink.SendKeep(string(strOut))
				strOut = strOut[:0]
			} else if !isIn && lastIn {
				if err := sink.SendBypass(string(strIn)); err != nil {
					return err
				}
				strIn = strIn[:0]
			}
			lastIn = isIn
		}
		if lastIn && len(strIn) > 0 {
			if err := sink.SendBypass(string(strIn)); err != nil {
				return err
			}
		} else {
			sink.SendKeep(string(strOut))
		}
		sink.SendKeep(eol)
	}
	return sink.Flush()
}

// RunFieldDelim splits each line on the literal delim string and
// bypasses pieces whose 1-based index falls in ranges (-f -d). The
// delimiter itself is always Keep.
func RunFieldDelim(r io.Reader, sink Sink, delim string, ranges rangelist.List, lineEnd byte, prog string) error {
	br := bufio.NewReaderSize(r, procutil.DefaultCap)
	for {
		buf, ok := readLine(br, lineEnd, prog)
		if !ok {
			break
		}
		content, eol := trimEOL(buf, lineEnd)
		if err := splitFields(sink, string(content), delim, ranges); err != nil {
			return err
		}
		sink.SendKeep(eol)
	}
	return sink.Flush()
}

func splitFields(sink Sink, line, delim string, ranges rangelist.List) error {
	cursor := rangelist.NewCursor(ranges)
	start := 0
	idx := uint64(0)
	for {
		idx++
		rel := strings.Index(line[start:], delim)
		var piece string
		var pos int
		if rel < 0 {
			pos = -1
			piece = line[start:]
		} else {
			pos = start + rel
			piece = line[start:pos]
		}
		if idx > 1 {
			sink.SendKeep(delim)
		}
		if cursor.Contains(idx) {
			if err := sink.SendBypass(piece); err != nil {
				return err
			}
		} else {
			sink.SendKeep(piece)
		}
		if pos < 0 {
			return nil
		}
		start = pos + len(delim)
	}
}

// RunFieldRegex splits each line on matches of a delimiter regex
// (default "\s+") and bypasses fields whose 1-based index falls in
// ranges (-f -D), matching field_regex_proc's empty-trailing-field
// handling when the line ends with a delimiter match.
func RunFieldRegex(r io.Reader, sink Sink, delim matcher.Matcher, ranges rangelist.List, lineEnd byte, prog string) error {
	br := bufio.NewReaderSize(r, procutil.DefaultCap)
	for {
		buf, ok := readLine(br, lineEnd, prog)
		if !ok {
			break
		}
		content, eol := trimEOL(buf, lineEnd)
		line := string(content)
		cursor := rangelist.NewCursor(ranges)
		left := 0
		i := uint64(0)
		for _, m := range delim.FindAll(content) {
			i++
			field := line[left:m.Start]
			spaces := line[m.Start:m.End]
			left = m.End
			if cursor.Contains(i) {
				if err := sink.SendBypass(field); err != nil {
					return err
				}
			} else {
				sink.SendKeep(field)
			}
			sink.SendKeep(spaces)
		}
		i++
		field := line[left:]
		if cursor.Contains(i) {
			if err := sink.SendBypass(field); err != nil {
				return err
			}
		} else {
			sink.SendKeep(field)
		}
		sink.SendKeep(eol)
	}
	return sink.Flush()
}

// RunExternalOffload bypasses lines whose 1-based line number is
// reported by a secondary pipeline run against the same input (-e). The
// pipeline's output is scanned for leading line numbers (e.g. "grep -n",
// "sed -n '='", "awk '{print NR}'"); alignment against the main line
// counter tolerates a pipeline that skips numbers (selection) but warns,
// non-fatally, if it ever reports a number out of order.
func RunExternalOffload(r io.Reader, sink Sink, pipeline string, invert bool, lineEnd byte, prog string) error {
	mainLines, pipeInput := procutil.Tee(r, lineEnd)

	pipeOut, err := procutil.RunPipelineFromChannel(pipeline, pipeInput)
	if err != nil {
		return teiperr.New(teiperr.Spawn, err)
	}
	numbers := procutil.ExtractNumbers(pipeOut, lineEnd)

	var nr, pos, lastPos uint64
	expectNewNumbers := true

	for buf := range mainLines {
		nr++
		content, eol := trimEOL(buf, lineEnd)

		for expectNewNumbers && pos < nr {
			n, ok := <-numbers
			if !ok {
				expectNewNumbers = false
				break
			}
			if n < lastPos {
				fmt.Fprintln(os.Stderr, teiperr.Warn(prog, "line numbers from external command are not increasing (got %d after %d)", n, lastPos))
			}
			lastPos = n
			pos = n
		}

		matched := pos == nr
		if matched != invert {
			if err := sink.SendBypass(string(content)); err != nil {
				return err
			}
		} else {
			sink.SendKeep(string(content))
		}
		sink.SendKeep(eol)
	}
	return sink.Flush()
}

// RunCSVField drives the csv-NFA byte-at-a-time over r and bypasses the
// content bytes of fields whose 1-based index falls in ranges (--csv),
// keeping every structural byte (delimiters, quotes, terminators). A
// newline inside a quoted value is field content and is bypassed with
// the rest of the field; coalescing via BufSendKeep/BufSendBypass
// ensures a quoted multi-line field reaches the helper as one unit.
func RunCSVField(r io.Reader, sink Sink, cfg csvscan.Config, ranges rangelist.List) error {
	parser := csvscan.New(cfg)
	br := bufio.NewReaderSize(r, procutil.DefaultCap)
	cursor := rangelist.NewCursor(ranges)
	currentRecord := uint64(0)

	for {
		c, _, err := br.ReadRune()
		if err != nil {
			break
		}
		copied := parser.Feed(c)
		if parser.Record() != currentRecord {
			currentRecord = parser.Record()
			cursor = rangelist.NewCursor(ranges)
		}
		selected := parser.InField() && cursor.Contains(parser.Field())
		if copied && selected {
			if err := sink.BufSendBypass(string(c)); err != nil {
				return err
			}
		} else {
			if err := sink.BufSendKeep(string(c)); err != nil {
				return err
			}
		}
	}
	return sink.Flush()
}
