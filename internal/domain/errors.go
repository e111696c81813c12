package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidName      = errors.New("invalid database name")
	ErrDuplicateName    = errors.New("database name already registered")
	ErrDisposed         = errors.New("database factory disposed")
	ErrEmptyConnection  = errors.New("connection string is empty")
	ErrReservedKeysOnly = errors.New("connection string contains only reserved keys")
	ErrUnknownProvider  = errors.New("unknown database provider")
	ErrBuildPanic       = errors.New("database build panicked")
	ErrUnauthorized     = errors.New("unauthorized")
)
