package service

import "errors"

// ErrNotFound is returned when a referenced contract, document, or amendment
// artifact does not exist. It aborts only the single operation that hit it.
var ErrNotFound = errors.New("not found")
