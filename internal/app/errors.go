package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("role may not edit this collection")
	ErrDuplicateName      = errors.New("name already defined")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrCrossTypeDependent = errors.New("dependent belongs to a different installation type")
)
