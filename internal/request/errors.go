package request

import "errors"

var (
	ErrRequestNotFound = errors.New("acquisition request not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidState    = errors.New("invalid request state transition")
	// ErrAlreadyResolved signals the loser of a resolution race. It is a
	// no-op outcome, not a user-facing failure.
	ErrAlreadyResolved = errors.New("request already resolved")
)
