package core

import "errors"

// Sentinel errors shared by every adapter. Only these two cross the storage
// port as expected outcomes; anything else is a storage outage.
var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)
