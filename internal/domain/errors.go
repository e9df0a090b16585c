package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidPatternType = errors.New("invalid pattern type")
	ErrInvalidParameter   = errors.New("invalid parameter")
)
