package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownPackageType = errors.New("unknown package type")
	ErrInvalidQuery       = errors.New("invalid query")
)
