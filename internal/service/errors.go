package service

import (
	"errors"
	"fmt"

	"taskManager/internal/policy"
)

const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}
	return busErr
}

func NewNotFound(resource string, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	details := map[string]any{"reason": reason}
	if field != "" {
		details["field"] = field
	}
	return &BusinessError{
		Code:    CodeValidation,
		Message: reason,
		Details: details,
	}
}

// NewInternal wraps a dependency failure; only message reaches the client.
func NewInternal(message string, err error) *BusinessError {
	return &BusinessError{
		Code:    CodeInternal,
		Message: message,
		Details: map[string]any{},
		Err:     err,
	}
}

func fromDecision(d policy.Decision) *BusinessError {
	code := CodeForbidden
	if d.Reason == policy.ReasonUnauthorized {
		code = CodeUnauthorized
	}
	return NewBusinessError(code, d.Message)
}

// fromPolicyError turns a policy validation failure into a VALIDATION_ERROR.
func fromPolicyError(err error) error {
	var vErr *policy.ValidationError
	if !errors.As(err, &vErr) {
		return err
	}
	details := []Detail{ToDetail("reason", vErr.Reason)}
	if vErr.Field != "" {
		details = append(details, ToDetail("field", vErr.Field))
	}
	for k, v := range vErr.Details {
		details = append(details, ToDetail(k, v))
	}
	return NewBusinessError(CodeValidation, vErr.Reason, details...)
}

// IsCode reports whether err is a BusinessError with the given code.
func IsCode(err error, code string) bool {
	var busErr *BusinessError
	return errors.As(err, &busErr) && busErr.Code == code
}
