package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAddressNotFound covers both a missing address and one owned by
	// another user; the two are indistinguishable to the caller.
	ErrAddressNotFound = errors.New("address not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidVariant  = errors.New("invalid variant")
	// ErrLevelMissing: a tracked variant has no inventory row. Fatal for the
	// whole order.
	ErrLevelMissing = errors.New("inventory level missing")
	// ErrLevelConflict: the conditional inventory write was rejected because
	// the row changed since it was read. Safe to retry the whole request.
	ErrLevelConflict     = errors.New("inventory level conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCurrencyMismatch  = errors.New("currency mismatch")
	ErrNegativeTotal     = errors.New("order total is negative")
)

// ValidationError reports the first payload violation encountered.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StockError carries the per-variant shortfall behind ErrInsufficientStock.
type StockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// AggregateError marks a failure of the read-side totals summary. The order
// itself committed; only the supplementary statistic is missing.
type AggregateError struct {
	Err error
}

func (e *AggregateError) Error() string { return "aggregate totals: " + e.Err.Error() }
func (e *AggregateError) Unwrap() error { return e.Err }

// Reason returns the stable machine-checkable reason string for an error.
func Reason(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid_payload"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAddressNotFound):
		return "address_not_found"
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, ErrInvalidVariant):
		return "invalid_variant"
	case errors.Is(err, ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, ErrNegativeTotal):
		return "negative_total"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrLevelConflict):
		return "stock_conflict"
	case errors.Is(err, ErrLevelMissing):
		return "inventory_missing"
	}
	var aerr *AggregateError
	if errors.As(err, &aerr) {
		return "aggregate_failed"
	}
	if IsClientDBError(err) {
		return "invalid_reference"
	}
	return "internal"
}

// IsClientDBError reports whether a storage failure was caused by the
// caller's input: SQLSTATE class 22 (data exception, e.g. malformed uuid)
// or 23 (integrity constraint violation).
func IsClientDBError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
}
