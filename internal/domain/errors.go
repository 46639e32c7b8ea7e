package domain

import "fmt"

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// Conflict kinds.
const (
	ConflictStale     = "stale"
	ConflictDuplicate = "duplicate"
	ConflictOverlap   = "overlap"
)

// ErrConflict indicates the write collides with existing state: the version
// token is stale, a unique key is already taken, or a booking overlaps.
type ErrConflict struct {
	Kind    string
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrInvalidTransition indicates a status change the lifecycle does not allow.
type ErrInvalidTransition struct {
	Entity string
	From   string
	To     string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid %s status transition: %s -> %s", e.Entity, e.From, e.To)
}

// ErrSeatLimit indicates the plan has no free professional seats.
type ErrSeatLimit struct {
	Plan  Plan
	Limit int
}

func (e *ErrSeatLimit) Error() string {
	return fmt.Sprintf("Limite de profissionais do plano %s atingido (%d)", e.Plan, e.Limit)
}

// ErrCouponUnavailable indicates a coupon cannot be redeemed.
type ErrCouponUnavailable struct {
	Code   string
	Status CouponStatus
}

func (e *ErrCouponUnavailable) Error() string {
	return fmt.Sprintf("Cupom %s indisponível (%s)", e.Code, e.Status)
}

// ErrConfirmationDeclined indicates the user declined (or let expire) the
// confirmation of a destructive action.
type ErrConfirmationDeclined struct {
	Action string
}

func (e *ErrConfirmationDeclined) Error() string {
	return fmt.Sprintf("Ação cancelada: %s", e.Action)
}
