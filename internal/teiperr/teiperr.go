// Package teiperr classifies the fatal error kinds the driver must tell
// apart when deciding how to report a failure and what exit code to use,
// plus the one non-fatal warning kind (offload monotonicity violations).
package teiperr

import "github.com/pkg/errors"

// Kind tags a fatal error by the stage of the pipeline that produced it.
type Kind int

const (
	// Config covers bad LIST syntax, bad regex, missing mandatory flags,
	// --csv without -f, and invalid highlight templates. Exits before
	// any input is consumed.
	Config Kind = iota
	// Spawn covers failures to exec the helper or open its stdin/stdout.
	Spawn
	// PipeExhausted covers a Hole whose helper stdout closed early.
	PipeExhausted
	// BrokenPipe covers a failed write to the final stdout, treated as
	// an intentional downstream closure.
	BrokenPipe
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "configuration error"
	case Spawn:
		return "spawn error"
	case PipeExhausted:
		return "pipe exhausted"
	case BrokenPipe:
		return "broken pipe"
	default:
		return "error"
	}
}

// causer is the kinded error wrapper New returns; it satisfies both
// error and pkg/errors' causer interface so the chain underneath can
// still be inspected with errors.Cause.
type causer struct {
	kind Kind
	err  error
}

func (c *causer) Error() string { return c.err.Error() }
func (c *causer) Cause() error  { return c.err }
func (c *causer) Unwrap() error { return c.err }

// New wraps err with kind, annotating it the way the rest of the program
// should report it (program-name prefix, stderr, one of the four exit
// behaviors of §7).
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &causer{kind: kind, err: err}
}

// Newf formats a message and wraps it with kind, skipping a caller who
// has no preexisting error value to wrap (e.g. a validation failure).
func Newf(kind Kind, format string, args ...interface{}) error {
	return New(kind, errors.Errorf(format, args...))
}

// KindOf walks err's cause chain looking for a teiperr-classified error
// and reports its Kind. ok is false when err was never classified (a
// plain I/O error from somewhere outside the driver's control, which the
// driver treats as an unclassified fatal error).
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if c, isKind := err.(*causer); isKind {
			return c.kind, true
		}
		cause, isCauser := err.(interface{ Cause() error })
		if !isCauser {
			break
		}
		err = cause.Cause()
	}
	return 0, false
}

// ErrPipeExhausted is the sentinel cause for a Hole whose helper closed
// stdout before supplying the expected record.
var ErrPipeExhausted = errors.New("output of given command is exhausted")

// Warn is the single non-fatal warning kind: an offload pipeline emitted
// a line number less than one it already emitted. §9 leaves
// de-duplication as an implementer choice; this program keeps every
// occurrence, matching original teip.
func Warn(program string, format string, args ...interface{}) string {
	return program + ": " + errors.Errorf(format, args...).Error()
}
