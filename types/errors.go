package types

import "errors"

// ErrorKind groups errors by who is at fault. The value doubles as the ABCI
// result code.
type ErrorKind uint32

const (
	KindInternal      ErrorKind = 1
	KindValidation    ErrorKind = 2
	KindAuthorization ErrorKind = 3
	KindStateConflict ErrorKind = 4
	KindResource      ErrorKind = 5
)

func (k ErrorKind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindStateConflict:
		return "state_conflict"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind ErrorKind
	msg  string
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

var (
	ErrFieldTooLong        = NewError(KindValidation, "field too long")
	ErrInvalidArgument     = NewError(KindValidation, "invalid argument")
	ErrOutOfRange          = NewError(KindValidation, "out of range")
	ErrMissingMembers      = NewError(KindValidation, "initial member list is empty")
	ErrNonceInvalid        = NewError(KindValidation, "nonce invalid")
	ErrSigInvalid          = NewError(KindAuthorization, "signature invalid")
	ErrNotAMember          = NewError(KindAuthorization, "not a member")
	ErrAlreadyMember       = NewError(KindStateConflict, "already a member")
	ErrAlreadyVoted        = NewError(KindStateConflict, "already voted")
	ErrAlreadyInitialized  = NewError(KindStateConflict, "already initialized")
	ErrNotInitialized      = NewError(KindStateConflict, "not initialized")
	ErrProposalLocked      = NewError(KindStateConflict, "proposal locked")
	ErrNotInDraft          = NewError(KindStateConflict, "proposal not in draft")
	ErrProposalNotFound    = NewError(KindStateConflict, "proposal not found")
	ErrProposalNotInVote   = NewError(KindStateConflict, "proposal not open for voting")
	ErrInsufficientFunds   = NewError(KindResource, "insufficient funds")
	ErrInsufficientDeposit = NewError(KindResource, "insufficient deposit")
	ErrInsufficientBalance = NewError(KindResource, "insufficient balance")
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf maps err to an ABCI result code, 0 for nil.
func CodeOf(err error) uint32 {
	if err == nil {
		return 0
	}
	return uint32(KindOf(err))
}
