package services

import (
	"errors"
	"fmt"
)

// Validation
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidPeriod = errors.New("invalid billing period")
)

// Authorization
var (
	ErrForbidden          = errors.New("not permitted for this user")
	ErrSessionUnavailable = errors.New("invalid or inactive cash session for this collector")
)

// Not found
var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrPlanNotFound     = errors.New("plan not found")
	ErrRegionNotFound   = errors.New("region not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrSessionNotFound  = errors.New("cash session not found")
)

// State conflicts
var (
	ErrSessionNotOpen        = errors.New("cash session is not open")
	ErrSessionNotClosed      = errors.New("cash session is not closed")
	ErrNoDueInvoices         = errors.New("no due invoices found for the selection")
	ErrAmountMismatch        = errors.New("amount mismatch")
	ErrInvoiceNotCancellable = errors.New("only unpaid due invoices can be cancelled")
	ErrPeriodAlreadyBilled   = errors.New("customer already billed for this period")
	ErrHasDependents         = errors.New("record has dependent records")
	ErrBillingRunInProgress  = errors.New("billing run already in progress for this period")
)

// ErrOverpayment is returned when a payment exceeds the outstanding balance of
// the selected invoices by more than the tolerance.
var ErrOverpayment = errors.New("payment exceeds outstanding balance of selected invoices")

// DependentsError reports that a record cannot be deleted while other records
// still reference it. It matches ErrHasDependents with errors.Is.
type DependentsError struct {
	Entity    string
	Dependent string
	Count     int64
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("cannot delete %s: %d %s still reference it", e.Entity, e.Count, e.Dependent)
}

func (e *DependentsError) Is(target error) bool {
	return target == ErrHasDependents
}

// OverpaymentError carries the amount left over after every selected invoice
// was settled. It matches ErrOverpayment with errors.Is.
type OverpaymentError struct {
	Remaining string
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("%s: %s left unapplied", ErrOverpayment.Error(), e.Remaining)
}

func (e *OverpaymentError) Is(target error) bool {
	return target == ErrOverpayment
}

// amountMismatch wraps ErrAmountMismatch with both figures so the approver
// can see what the collector submitted.
func amountMismatch(submitted, entered string) error {
	return fmt.Errorf("%w: collector submitted %s, but you entered %s", ErrAmountMismatch, submitted, entered)
}
