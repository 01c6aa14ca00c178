package errors

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmptyAccountID  = errors.New("account id is required")
)
