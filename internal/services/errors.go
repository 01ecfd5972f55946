package services

import "errors"

// ErrInvalidInput marks errors caused by the caller's data. Handlers map it
// to 400.
var ErrInvalidInput = errors.New("invalid input")

// FieldError reports one rejected form field with a message fit for display.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

func invalid(field, msg string) error { return &FieldError{Field: field, Message: msg} }

// Message extracts the display message of a FieldError, or a generic one.
func Message(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	if errors.Is(err, ErrInvalidInput) {
		return "Certaines informations sont invalides."
	}
	return "Une erreur est survenue"
}

func isInvalid(err error) bool { return errors.Is(err, ErrInvalidInput) }
