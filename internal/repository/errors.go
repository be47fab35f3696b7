package repository

import "errors"

// ErrNotFound is returned when no ride, driver or payment row matches, both
// on reads and on updates that affect zero rows. Services translate it into
// their own not-found kind.
var ErrNotFound = errors.New("entity not found")
