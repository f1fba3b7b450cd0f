// Package procutil spawns and drives the helper subprocesses that bypass
// regions of a stream are routed through: a long-lived streaming helper
// read and written concurrently, a synchronous one-shot helper per chunk,
// a tee that duplicates a byte stream to two consumers, and a pipeline
// runner that feeds a shell command from a channel of byte slices.
package procutil

import (
	"bufio"
	"bytes"
	"io"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
)

// DefaultCap is the initial capacity for line buffers read from helper
// processes, matching the corpus's DEFAULT_CAP sizing for stdin reads.
const DefaultCap = 4096

// ErrEmptyCommand is returned when ExecCmdSync/ExecCmdArgvSync are given
// no argv (ExecCmd treats an empty argv as dry-run instead).
var ErrEmptyCommand = errors.New("empty command")

// Proc is a spawned helper process's stdin/stdout pipes plus the argv[0]
// it was started with, used for error messages.
type Proc struct {
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Name   string
	cmd    *exec.Cmd
}

// ExecCmd spawns argv with piped stdin/stdout. An empty argv is treated
// as dry-run: it returns a discard-writer/empty-reader pair instead of
// spawning anything, matching the original's dry-run shortcut.
func ExecCmd(argv []string) (*Proc, error) {
	if len(argv) == 0 {
		return &Proc{Stdin: nopWriteCloser{io.Discard}, Stdout: io.NopCloser(bytes.NewReader(nil))}, nil
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	setProcAttr(cmd)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "opening stdin for %q", argv[0])
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "opening stdout for %q", argv[0])
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "spawning %q", argv[0])
	}
	return &Proc{Stdin: stdin, Stdout: stdout, Name: argv[0], cmd: cmd}, nil
}

// Wait waits for the spawned process to exit, if one was spawned.
func (p *Proc) Wait() error {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.Wait()
}

// Kill force-terminates the spawned process's entire process group, if
// one was spawned and started. Used to reap a helper that the
// intercepter has already given up on rather than wait indefinitely.
func (p *Proc) Kill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return killProcessGroup(p.cmd.Process.Pid)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// ExecCmdSync runs argv once, writing input to its stdin and returning
// its stdout as a single string. lineEnd terminates input when chomp is
// false (so the helper sees the same framing as streaming mode); when
// chomp is true, trailing lineEnd bytes are stripped from input first
// and output is returned without trimming. When chomp is false, a single
// trailing lineEnd added to input is stripped back off the helper's
// output, matching the original's ADD NEW LINE / trim pairing.
func ExecCmdSync(input []byte, argv []string, lineEnd byte, chomp bool) (string, error) {
	if len(argv) == 0 {
		return "", ErrEmptyCommand
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	setProcAttr(cmd)

	buf := make([]byte, len(input))
	copy(buf, input)
	if chomp {
		for len(buf) > 0 && buf[len(buf)-1] == lineEnd {
			buf = buf[:len(buf)-1]
		}
	} else {
		buf = append(buf, lineEnd)
	}

	cmd.Stdin = bytes.NewReader(buf)
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(err, "running %q", argv[0])
	}
	if !chomp && bytes.HasSuffix(out, []byte{lineEnd}) {
		out = out[:len(out)-1]
	}
	return string(out), nil
}

// ExecCmdArgvSync runs argv once with no stdin attached and returns its
// stdout as a single string. This is how solid mode serves -I TOKEN: the
// chunk text is substituted directly into argv by the caller rather than
// piped, so the helper receives it as a command-line argument.
func ExecCmdArgvSync(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", ErrEmptyCommand
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	setProcAttr(cmd)
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(err, "running %q", argv[0])
	}
	return string(out), nil
}

// Tee duplicates r, line by line (split on lineEnd), into two channels.
// Both channels are closed once r is exhausted.
func Tee(r io.Reader, lineEnd byte) (<-chan []byte, <-chan []byte) {
	out1 := make(chan []byte)
	out2 := make(chan []byte)
	go func() {
		defer close(out1)
		defer close(out2)
		br := bufio.NewReaderSize(r, DefaultCap)
		for {
			line, err := br.ReadBytes(lineEnd)
			if len(line) > 0 {
				dup := make([]byte, len(line))
				copy(dup, line)
				out1 <- line
				out2 <- dup
			}
			if err != nil {
				return
			}
		}
	}()
	return out1, out2
}

// RunPipelineFromChannel spawns a shell (`sh -c command` on Unix, `cmd
// /C command` on Windows) and feeds it bytes received from input as they
// arrive, returning a reader over its stdout. The helper's stdin is
// closed once input is drained and closed, which lets the shell see EOF
// and flush.
func RunPipelineFromChannel(command string, input <-chan []byte) (io.Reader, error) {
	argv := shellArgv(command)
	proc, err := ExecCmd(argv)
	if err != nil {
		return nil, err
	}
	go func() {
		defer proc.Stdin.Close()
		for buf := range input {
			if _, err := proc.Stdin.Write(buf); err != nil {
				return
			}
		}
	}()
	return proc.Stdout, nil
}

// leadingNumber matches the same pattern as the original's extract_number:
// an optional run of leading whitespace, then a run of decimal digits.
var leadingNumber = regexp.MustCompile(`^\s*([0-9]+)`)

// ExtractNumbers reads lines from r (split on lineEnd) and sends the
// leading decimal number parsed from each onto the returned channel,
// skipping lines with no leading number. This is how external-offload
// recovers selected line numbers from a noisy helper's output.
func ExtractNumbers(r io.Reader, lineEnd byte) <-chan uint64 {
	out := make(chan uint64)
	go func() {
		defer close(out)
		br := bufio.NewReaderSize(r, DefaultCap)
		for {
			line, err := br.ReadBytes(lineEnd)
			if len(line) > 0 {
				if m := leadingNumber.FindSubmatch(line); m != nil {
					if n, perr := strconv.ParseUint(string(m[1]), 10, 64); perr == nil {
						out <- n
					}
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// shellArgv wraps command for the platform's shell, matching the
// original's cfg_if! Windows/Unix split.
func shellArgv(command string) []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C", command}
	}
	return []string{"sh", "-c", command}
}

