package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidPoints       = errors.New("invalid points")
	ErrItemNotFound        = errors.New("item not found")
	ErrInvalidItemType     = errors.New("invalid item type")
	ErrUnsupportedTier     = errors.New("unsupported tier")
	ErrDuplicateOperation  = errors.New("duplicate operation")
)
