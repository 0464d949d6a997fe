package services

import "errors"

// RequestError is an error whose message is meant for the API caller. Kind
// is one of the common sentinel errors and selects the response status.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Kind }

func newRequestError(kind error, msg string) error {
	return &RequestError{Kind: kind, Message: msg}
}

// IsRequestError reports whether err carries a caller-facing message.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}
