package repository

import "errors"

// ErrNotFound is returned when a row the caller asked for by id does not exist
var ErrNotFound = errors.New("not found")
