package domain

// Error classes. Specific errors below report errors.Is == true for their class.
var (
	ErrNotFound   = notFoundError("not found")
	ErrValidation = validationError("invalid data")
	ErrConflict   = conflictError("conflict")
)

var (
	ErrItemLocked        = validationError("item is locked")
	ErrCurrencyMix       = validationError("Cannot mix different currency types in one purchase")
	ErrCartEmpty         = validationError("Your cart is empty")
	ErrInsufficientFunds = validationError("insufficient funds")
	ErrMethodUnavailable = validationError("payment method is not available for this cart")
	ErrUnknownAction     = validationError("unknown host action")

	ErrNotInCart   = notFoundError("Item is not in your cart")
	ErrUnknownItem = notFoundError("unknown item")

	ErrShopClosed         = conflictError("shop is closed")
	ErrNoCheckout         = conflictError("no checkout in progress")
	ErrCheckoutInProgress = conflictError("checkout already submitted")
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

func (e notFoundError) Is(target error) bool { return target == ErrNotFound }

type validationError string

func (e validationError) Error() string { return string(e) }

func (e validationError) Is(target error) bool { return target == ErrValidation }

type conflictError string

func (e conflictError) Error() string { return string(e) }

func (e conflictError) Is(target error) bool { return target == ErrConflict }

// LockedError rejects a locked item and carries the host's reason.
type LockedError struct {
	ItemID string
	Reason string
}

func (e *LockedError) Error() string { return e.Reason }

func (e *LockedError) Is(target error) bool {
	return target == ErrItemLocked || target == ErrValidation
}
