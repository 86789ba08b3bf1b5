// Package storage defines shared persistence helpers and errors.
package storage

import "errors"

// ErrNotFound is returned by result stores when no row matches the ID.
var ErrNotFound = errors.New("insights result not found")
