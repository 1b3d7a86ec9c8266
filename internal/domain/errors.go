package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidValidation = errors.New("invalid validation status")
	ErrInvalidTag        = errors.New("invalid location tag")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidDirection  = errors.New("invalid direction")
)
