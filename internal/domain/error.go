package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidState       = errors.New("operation not valid for current status")
	ErrBadSignature       = errors.New("webhook signature verification failed")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInternalFailure    = errors.New("internal persistence failure")

	// Repository-level errors
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
