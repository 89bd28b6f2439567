package service

import "errors"

// Error definitions shared by the submission pipeline services. Handlers map
// these to HTTP statuses; *storage.FileTooLargeError travels as-is because it
// carries the offending file name and the configured limit.
var (
	ErrValidation   = errors.New("required fields are missing or empty")
	ErrTooManyFiles = errors.New("too many files in one request")
	ErrPersistence  = errors.New("failed to persist submission records")
	ErrNotFound     = errors.New("record not found")
)
