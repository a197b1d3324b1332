package db

import "errors"

// Sentinel errors for cache store operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
)

// Op constants map to Redis command names for error context.
const (
	OpGet    = "GET"
	OpSet    = "SET"
	OpDel    = "DEL"
	OpScan   = "SCAN"
	OpInfo   = "INFO"
	OpDBSize = "DBSIZE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
