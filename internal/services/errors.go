package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrInvalidNesting   = errors.New("cannot reply to a reply")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRequestInFlight  = errors.New("a request with this idempotency key is still in progress")
)

// ValidationError names the offending input. It matches ErrValidationFailed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// fromValidator turns the first validator failure into a ValidationError.
func fromValidator(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	reason := fe.Tag()
	if fe.Param() != "" {
		reason += "=" + fe.Param()
	}
	return invalid(fe.Field(), reason)
}

// notFound 把“查不到”和外键冲突都归为 NotFound，其他错误原样返回
func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
