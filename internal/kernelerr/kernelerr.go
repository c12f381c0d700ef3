// Package kernelerr defines the fault kinds the force kernel and its
// surrounding driver distinguish, per the error table in the kernel
// contract. Errors are wrapped with github.com/pkg/errors so that
// diagnostics retain a stack trace while still satisfying errors.Is.
package kernelerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the fault categories the kernel can raise.
type Kind int

const (
	// ArgumentInvalid covers N<=0, theta<=0, dt<=0, or an unreadable
	// input file. Surfaced to the driver, exit code 1.
	ArgumentInvalid Kind = iota
	// ArenaExhausted means the tree build overran the pre-allocated
	// node capacity. Fatal.
	ArenaExhausted
	// ParticleOutOfRegion means a particle left the declared bounding
	// box during integration. Fatal unless the driver recomputes the
	// box every step, in which case it is demoted to a warning.
	ParticleOutOfRegion
	// NonFinite means a NaN or Inf appeared in positions or masses at
	// the start of a step. Fatal.
	NonFinite
)

func (k Kind) String() string {
	switch k {
	case ArgumentInvalid:
		return "ArgumentInvalid"
	case ArenaExhausted:
		return "ArenaExhausted"
	case ParticleOutOfRegion:
		return "ParticleOutOfRegion"
	case NonFinite:
		return "NonFinite"
	default:
		return "Unknown"
	}
}

// Fault is the concrete error type carrying a Kind, distinguishable via
// errors.As.
type Fault struct {
	Kind Kind
	msg  string
}

func (f *Fault) Error() string { return fmt.Sprintf("%s: %s", f.Kind, f.msg) }

// Is allows errors.Is(err, kernelerr.ErrArenaExhausted) style checks by
// comparing Kind against a sentinel Fault with no message.
func (f *Fault) Is(target error) bool {
	other, ok := target.(*Fault)
	return ok && other.Kind == f.Kind
}

// New constructs a Fault of the given kind, wrapped with a stack trace
// at the call site.
func New(kind Kind, format string, args ...any) error {
	return errors.WithStack(&Fault{Kind: kind, msg: fmt.Sprintf(format, args...)})
}

// Wrap returns a Fault of the given kind whose message is context
// followed by err's text, wrapped with context and a stack trace.
// Only err's text is kept: err itself is not in the returned error's
// chain, so errors.Is(result, err) reports false.
func Wrap(kind Kind, err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(&Fault{Kind: kind, msg: context + ": " + err.Error()}, context)
}

// KindOf reports the Kind of err if it (or something it wraps) is a
// *Fault, and whether one was found.
func KindOf(err error) (Kind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

// Sentinels for errors.Is comparisons against a specific kind without
// constructing a message.
var (
	ErrArgumentInvalid     = &Fault{Kind: ArgumentInvalid}
	ErrArenaExhausted      = &Fault{Kind: ArenaExhausted}
	ErrParticleOutOfRegion = &Fault{Kind: ParticleOutOfRegion}
	ErrNonFinite           = &Fault{Kind: NonFinite}
)
