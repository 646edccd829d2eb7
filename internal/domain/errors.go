package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Activity errors
var (
	// ErrActivityNotFound is returned when no activity has the requested id.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrInvalidConfiguration is returned by CreateActivity when the choices and
	// odds do not line up, fewer than two choices are given, or any odds value
	// is below 100 (1.0x).
	ErrInvalidConfiguration = errors.New("invalid activity configuration")

	// ErrInvalidDuration is returned when the betting window is not positive.
	ErrInvalidDuration = errors.New("activity duration must be positive")

	// ErrInvalidChoice is returned when a choice index is out of range.
	ErrInvalidChoice = errors.New("invalid choice")

	// ErrActivityExpired is returned when a stake arrives at or after the deadline.
	ErrActivityExpired = errors.New("activity has expired")

	// ErrNotYetExpired is returned when settlement is attempted before the deadline.
	ErrNotYetExpired = errors.New("activity has not expired yet")

	// ErrAlreadySettled is returned for any stake or settlement attempt on an
	// activity that has already been settled.
	ErrAlreadySettled = errors.New("activity is already settled")
)

// Ticket errors
var (
	// ErrTicketNotFound is returned when no ticket has the requested id.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrNotOwner is returned when the caller does not currently hold the ticket.
	ErrNotOwner = errors.New("caller does not own the ticket")

	// ErrInvalidAmount is returned for stakes, approvals and credits that are
	// not positive whole units.
	ErrInvalidAmount = errors.New("amount must be a positive whole number of units")
)

// Order errors
var (
	// ErrOrderNotFound is returned when no order has the requested id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderInactive is returned when filling or cancelling an order that was
	// already filled or cancelled.
	ErrOrderInactive = errors.New("order is no longer active")

	// ErrInvalidPrice is returned when an asking price is not a positive whole
	// number of units.
	ErrInvalidPrice = errors.New("price must be a positive whole number of units")
)

// Value ledger errors
var (
	// ErrInsufficientBalance is returned when the debited account holds less
	// than the transfer amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when the owner has not approved the
	// escrow for at least the transfer amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// User errors
var (
	// ErrUserNotFound is returned when no user matches the given criteria.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned on registration when the email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrUsernameTaken is returned on registration when the username already exists.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserInactive is returned when a suspended user attempts an action.
	ErrUserInactive = errors.New("user account is inactive")
)

// Auth errors
var (
	// ErrUnauthorized is returned when the caller lacks the role an operation
	// requires (e.g. settling someone else's activity, cancelling someone
	// else's order) or presents no credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT or refresh token has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true when err (or any error in its chain) names a missing
// activity, ticket, order or user.
func IsNotFound(err error) bool {
	return isAny(err,
		ErrActivityNotFound,
		ErrTicketNotFound,
		ErrOrderNotFound,
		ErrUserNotFound,
	)
}

// IsInvalidInput returns true for malformed caller input. These are always
// rejected before any state is touched.
func IsInvalidInput(err error) bool {
	return isAny(err,
		ErrInvalidConfiguration,
		ErrInvalidDuration,
		ErrInvalidChoice,
		ErrInvalidPrice,
		ErrInvalidAmount,
	)
}

// IsStateConflict returns true for state-machine violations; the caller must
// re-read state before trying again.
func IsStateConflict(err error) bool {
	return isAny(err,
		ErrActivityExpired,
		ErrNotYetExpired,
		ErrAlreadySettled,
		ErrOrderInactive,
		ErrEmailTaken,
		ErrUsernameTaken,
	)
}

// IsFundsError returns true when the value ledger refused a transfer.
func IsFundsError(err error) bool {
	return isAny(err, ErrInsufficientBalance, ErrInsufficientAllowance)
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	return isAny(err,
		ErrUnauthorized,
		ErrForbidden,
		ErrNotOwner,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
		ErrUserInactive,
	)
}
