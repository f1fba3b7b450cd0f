// Package bypass implements the pipe intercepter: the worker that
// decouples a selection strategy from the helper subprocess so the
// strategy can emit chunks in order without blocking on the helper's
// pace. It owns the helper's stdin/stdout exclusively once constructed,
// and is the only part of the program where chunk events turn into
// bytes on the final stdout.
package bypass

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/corvineflux/teip/internal/highlight"
	"github.com/corvineflux/teip/internal/procutil"
	"github.com/corvineflux/teip/internal/teiperr"
)

// kind tags a chunk event sent to the worker.
type kind int

const (
	keepChunk kind = iota
	holeChunk
	sholeChunk
	eofChunk
)

type chunkMsg struct {
	kind kind
	text string
}

// Intercepter owns the chunk channel, the helper's stdin (streaming
// mode only), and the worker goroutine that drains the channel and
// writes the final stdout. Construct once per invocation with New or
// NewSolid; Close flushes pending buffers, signals EOF, and joins the
// worker.
type Intercepter struct {
	tx       chan chunkMsg
	done     chan struct{}
	errOnce  sync.Once
	firstErr error

	stdinWriter *bufio.Writer
	helper      *procutil.Proc

	argv    []string // retained for solid mode, one fresh spawn per SHole
	lineEnd byte
	solid   bool
	dryrun  bool
	chomp   bool
	token   string // -I TOKEN: substituted into argv instead of piped via stdin
	wrap    *highlight.Wrapper

	// coalescing buffers for BufSendKeep/BufSendBypass
	pendingKeep      string
	hasPendingKeep   bool
	pendingBypass    string
	hasPendingBypass bool
}

// New constructs a streaming-mode (or dry-run) intercepter: one
// long-lived helper process, chunk events corresponding one-to-one with
// lines written to its stdin and read from its stdout. An empty argv
// (or dryrun=true) puts the intercepter in dry-run mode: every bypass is
// re-tagged as a highlighted Keep and no helper is spawned.
func New(argv []string, lineEnd byte, dryrun bool, wrap *highlight.Wrapper) (*Intercepter, error) {
	dryrun = dryrun || len(argv) == 0
	ic := &Intercepter{
		tx:      make(chan chunkMsg, 64),
		done:    make(chan struct{}),
		lineEnd: lineEnd,
		dryrun:  dryrun,
		wrap:    wrap,
	}

	if dryrun {
		go ic.runDryRun()
		return ic, nil
	}

	proc, err := procutil.ExecCmd(argv)
	if err != nil {
		return nil, teiperr.New(teiperr.Spawn, err)
	}
	ic.helper = proc
	ic.stdinWriter = bufio.NewWriter(proc.Stdin)

	go ic.runStreaming()
	return ic, nil
}

// NewSolid constructs a solid-mode intercepter: argv is spawned fresh
// for each SHole chunk rather than once at construction. When token is
// non-empty, each occurrence of token in argv is substituted with the
// chunk's text instead of piping the text via stdin (-I TOKEN).
func NewSolid(argv []string, lineEnd byte, dryrun bool, chomp bool, token string, wrap *highlight.Wrapper) (*Intercepter, error) {
	dryrun = dryrun || len(argv) == 0
	ic := &Intercepter{
		tx:      make(chan chunkMsg, 64),
		done:    make(chan struct{}),
		argv:    argv,
		lineEnd: lineEnd,
		solid:   true,
		dryrun:  dryrun,
		chomp:   chomp,
		token:   token,
		wrap:    wrap,
	}
	if dryrun {
		go ic.runDryRun()
	} else {
		go ic.runSolid()
	}
	return ic, nil
}

func (ic *Intercepter) reportFatal(err error) {
	ic.errOnce.Do(func() { ic.firstErr = err })
}

// runStreaming is the streaming-mode worker: for each Keep, write text;
// for each Hole, read exactly one record from the helper's stdout.
func (ic *Intercepter) runStreaming() {
	defer close(ic.done)
	reader := bufio.NewReaderSize(ic.helper.Stdout, procutil.DefaultCap)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for msg := range ic.tx {
		switch msg.kind {
		case keepChunk:
			if _, err := writer.WriteString(msg.text); err != nil {
				ic.reportFatal(teiperr.New(teiperr.BrokenPipe, err))
				return
			}
		case holeChunk:
			line, err := readRecord(reader, ic.lineEnd)
			if err != nil {
				writer.Flush()
				ic.reportFatal(teiperr.New(teiperr.PipeExhausted, teiperr.ErrPipeExhausted))
				return
			}
			if _, err := writer.WriteString(line); err != nil {
				ic.reportFatal(teiperr.New(teiperr.BrokenPipe, err))
				return
			}
		case sholeChunk:
			ic.reportFatal(errors.New("bug: SHole chunk received in streaming mode"))
			return
		case eofChunk:
			return
		}
	}
}

// runSolid spawns a fresh helper per SHole and writes its collected
// output; Keep chunks pass straight through.
func (ic *Intercepter) runSolid() {
	defer close(ic.done)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for msg := range ic.tx {
		switch msg.kind {
		case keepChunk:
			if _, err := writer.WriteString(msg.text); err != nil {
				ic.reportFatal(teiperr.New(teiperr.BrokenPipe, err))
				return
			}
		case sholeChunk:
			var out string
			var err error
			if ic.token != "" {
				out, err = procutil.ExecCmdArgvSync(substituteToken(ic.argv, ic.token, msg.text))
			} else {
				out, err = procutil.ExecCmdSync([]byte(msg.text), ic.argv, ic.lineEnd, ic.chomp)
			}
			if err != nil {
				ic.reportFatal(teiperr.New(teiperr.Spawn, err))
				return
			}
			if _, err := writer.WriteString(out); err != nil {
				ic.reportFatal(teiperr.New(teiperr.BrokenPipe, err))
				return
			}
		case holeChunk:
			ic.reportFatal(errors.New("bug: Hole chunk received in solid mode"))
			return
		case eofChunk:
			return
		}
	}
}

// runDryRun re-tags every bypass chunk as a highlighted Keep; no helper
// is ever spawned.
func (ic *Intercepter) runDryRun() {
	defer close(ic.done)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for msg := range ic.tx {
		switch msg.kind {
		case keepChunk:
			if _, err := writer.WriteString(msg.text); err != nil {
				ic.reportFatal(teiperr.New(teiperr.BrokenPipe, err))
				return
			}
		case holeChunk:
			ic.reportFatal(errors.New("bug: Hole chunk received in dry-run mode"))
			return
		case sholeChunk:
			if _, err := writer.WriteString(ic.wrap.Wrap(msg.text)); err != nil {
				ic.reportFatal(teiperr.New(teiperr.BrokenPipe, err))
				return
			}
		case eofChunk:
			return
		}
	}
}

// substituteToken replaces every occurrence of token in each argv element
// with text, matching xargs -I's per-invocation argv templating.
func substituteToken(argv []string, token, text string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = strings.ReplaceAll(a, token, text)
	}
	return out
}

func readRecord(r *bufio.Reader, lineEnd byte) (string, error) {
	buf, err := r.ReadBytes(lineEnd)
	if len(buf) == 0 && err != nil {
		return "", io.EOF
	}
	if len(buf) > 0 && buf[len(buf)-1] == lineEnd {
		buf = buf[:len(buf)-1]
	}
	return string(buf), nil
}

// SendKeep enqueues text to be emitted verbatim.
func (ic *Intercepter) SendKeep(text string) {
	ic.tx <- chunkMsg{kind: keepChunk, text: text}
}

// SendBypass enqueues text for helper transformation: in solid or
// dry-run mode the text travels with the event (SHole); in streaming
// mode the text is written directly to the helper's stdin and only a
// placeholder (Hole) travels through the channel, preserving the
// ordering invariant that the k-th Hole corresponds to the k-th stdin
// line.
func (ic *Intercepter) SendBypass(text string) error {
	if ic.dryrun {
		ic.tx <- chunkMsg{kind: sholeChunk, text: text}
		return nil
	}
	if ic.solid {
		ic.tx <- chunkMsg{kind: sholeChunk, text: text}
		return nil
	}
	if _, err := ic.stdinWriter.WriteString(text); err != nil {
		return teiperr.New(teiperr.BrokenPipe, err)
	}
	if err := ic.stdinWriter.WriteByte(ic.lineEnd); err != nil {
		return teiperr.New(teiperr.BrokenPipe, err)
	}
	if err := ic.stdinWriter.Flush(); err != nil {
		return teiperr.New(teiperr.BrokenPipe, err)
	}
	ic.tx <- chunkMsg{kind: holeChunk}
	return nil
}

// BufSendKeep accumulates text into a pending-keep buffer, flushing any
// pending bypass buffer first. Call Flush (or Close) to emit a trailing
// buffered run.
func (ic *Intercepter) BufSendKeep(text string) error {
	if ic.hasPendingBypass {
		if err := ic.SendBypass(ic.pendingBypass); err != nil {
			return err
		}
		ic.pendingBypass, ic.hasPendingBypass = "", false
	}
	ic.pendingKeep += text
	ic.hasPendingKeep = true
	return nil
}

// BufSendBypass accumulates text into a pending-bypass buffer, flushing
// any pending keep buffer first.
func (ic *Intercepter) BufSendBypass(text string) error {
	if ic.hasPendingKeep {
		ic.SendKeep(ic.pendingKeep)
		ic.pendingKeep, ic.hasPendingKeep = "", false
	}
	ic.pendingBypass += text
	ic.hasPendingBypass = true
	return nil
}

// Flush emits whichever of the two coalescing buffers is pending.
func (ic *Intercepter) Flush() error {
	if ic.hasPendingKeep {
		ic.SendKeep(ic.pendingKeep)
		ic.pendingKeep, ic.hasPendingKeep = "", false
	}
	if ic.hasPendingBypass {
		if err := ic.SendBypass(ic.pendingBypass); err != nil {
			return err
		}
		ic.pendingBypass, ic.hasPendingBypass = "", false
	}
	return nil
}

// Close flushes pending coalescing buffers, signals EOF, closes the
// helper's stdin (if any), and joins the worker goroutine. It returns
// the first fatal error the worker encountered, if any.
func (ic *Intercepter) Close() error {
	if err := ic.Flush(); err != nil {
		return err
	}
	ic.tx <- chunkMsg{kind: eofChunk}
	close(ic.tx)
	if ic.stdinWriter != nil {
		ic.stdinWriter.Flush()
	}
	if ic.helper != nil {
		ic.helper.Stdin.Close()
	}
	<-ic.done
	if ic.helper != nil {
		if ic.firstErr != nil {
			// The worker gave up on this helper (pipe exhausted, broken
			// pipe downstream); don't block teip's exit waiting on a
			// helper that may still be running.
			ic.helper.Kill()
		}
		ic.helper.Wait()
	}
	return ic.firstErr
}
