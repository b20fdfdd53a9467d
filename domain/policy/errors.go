package policy

import "errors"

// Domain errors for policy enforcement.
//
// Note: this package defines no approval-required or approval-denied
// error; a denial is reported through ApprovalResponse.Approved.
var (
	// ErrBudgetExceeded indicates the budget limit has been exceeded.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrApprovalTimeout indicates the approval request timed out.
	ErrApprovalTimeout = errors.New("approval request timed out")

	// ErrConstraintViolation indicates a policy constraint was violated.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrTransitionNotAllowed indicates the state transition is not permitted.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")

	// ErrToolNotEligible indicates the tool is not eligible in the current state.
	ErrToolNotEligible = errors.New("tool not eligible in current state")
)
