package netsio

import "errors"

var (
	ErrBlockEmpty    = errors.New("netsio: block must be at least 1 byte")
	ErrBlockTooLarge = errors.New("netsio: block exceeds maximum of 512 bytes")
)
