package ledger

import "errors"

var (
	ErrAssetNotFound        = errors.New("asset not found")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrExceedsAvailable     = errors.New("adjustment exceeds available quantity")
	ErrConflictingClaim     = errors.New("conflicting open claim")
	ErrClaimNotFound        = errors.New("claim not found")
	ErrClaimAlreadyClosed   = errors.New("claim already closed")
	ErrNotCancellable       = errors.New("claim is not cancellable")
	ErrNotConsumable        = errors.New("asset is not consumable")
	ErrBorrowingDisabled    = errors.New("borrowing is disabled for asset")
)
