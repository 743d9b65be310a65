package store

import "errors"

// ErrDuplicateKey is returned when a registry table already holds a record
// for a normalized URL.
var ErrDuplicateKey = errors.New("duplicate registry key")

var errReadOnlyRegistry = errors.New("wrapped registry does not accept writes")
