package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrDuplicateIdempotencyKey is returned by a store when a sale with the same idempotency key already exists.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

// ValidationError reports malformed input. Nothing has been written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func validationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an id that does not resolve.
type NotFoundError struct {
	Resource string
	Id       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Id)
}

// InsufficientStockError reports a line whose quantity exceeds the flower's current stock.
type InsufficientStockError struct {
	FlowerId   uuid.UUID
	FlowerName string
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

func (e *InsufficientStockError) Error() string {
	name := e.FlowerName
	if name == "" {
		name = e.FlowerId.String()
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

// StorageFault wraps any persistence failure. The unit of work has been rolled back.
type StorageFault struct {
	Op  string
	Err error
}

func (e *StorageFault) Error() string {
	return fmt.Sprintf("storage fault during %s: %v", e.Op, e.Err)
}

func (e *StorageFault) Unwrap() error {
	return e.Err
}

// asDomainError passes taxonomy errors through untouched and wraps everything else as a StorageFault.
func asDomainError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var nf *NotFoundError
	var ise *InsufficientStockError
	var sf *StorageFault
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ise) || errors.As(err, &sf) {
		return err
	}
	return &StorageFault{Op: op, Err: err}
}

// ErrorKind names the taxonomy class of err, or "" for anything else.
func ErrorKind(err error) string {
	var ve *ValidationError
	var nf *NotFoundError
	var ise *InsufficientStockError
	var sf *StorageFault
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &ise):
		return "insufficient_stock"
	case errors.As(err, &sf):
		return "storage_fault"
	}
	return ""
}
