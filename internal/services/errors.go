package services

import "errors"

// ErrNotFound is returned when a document that was expected to exist is absent.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a uniqueness rule would be violated,
// e.g. sending a follow request that is already pending.
var ErrAlreadyExists = errors.New("already exists")
