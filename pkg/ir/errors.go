package ir

import "github.com/nikandfor/errors"

// Failures fall in two categories. Match either with errors.Is.
var (
	ErrMalformed = errors.New("malformed input")
	ErrInvariant = errors.New("internal invariant violated")
)

var (
	ErrBadTerminator    = errors.Wrap(ErrMalformed, "bad terminator")
	ErrBadSuccessor     = errors.Wrap(ErrMalformed, "successor outside function")
	ErrPhiPlacement     = errors.Wrap(ErrMalformed, "phi after non-phi instruction")
	ErrUnreachableBlock = errors.Wrap(ErrMalformed, "block has no predecessors")
	ErrDuplicateDef     = errors.Wrap(ErrMalformed, "value defined twice")
	ErrNoSlot           = errors.Wrap(ErrMalformed, "operand has no slot")
	ErrMissingPhiEdge   = errors.Wrap(ErrMalformed, "phi has no entry for predecessor")
	ErrAmbiguousPhiEdge = errors.Wrap(ErrMalformed, "phi has conflicting entries for predecessor")
	ErrStrayPhiEdge     = errors.Wrap(ErrMalformed, "phi entry names a non-predecessor")

	ErrUntouchedSlot        = errors.Wrap(ErrInvariant, "dying slot never touched")
	ErrNoFixedPoint         = errors.Wrap(ErrInvariant, "liveness did not converge")
	ErrUnplacedInvalidation = errors.Wrap(ErrInvariant, "invalidation point not placed")
	ErrLivenessMismatch     = errors.Wrap(ErrInvariant, "liveness cross-check failed")
)
