package domain

import "errors"

var (
	ErrValidation = errors.New("invalid target")
	ErrDuplicate  = errors.New("target already registered")
	ErrNotFound   = errors.New("target not found")
)
