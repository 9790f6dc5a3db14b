package types

import "errors"

var (
	// ErrMissingIndicatorData means a required timeframe is absent from a PairContext.
	ErrMissingIndicatorData = errors.New("missing indicator data")
	// ErrAlreadyOpen means a position is already open for the pair.
	ErrAlreadyOpen = errors.New("position already open")
	// ErrInvalidConfiguration is fatal at startup.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrDegenerateInput covers inputs that would produce a zero divisor or
	// prices that break the stop/entry/target ordering.
	ErrDegenerateInput = errors.New("degenerate input")
	ErrPositionNotFound = errors.New("position not found")
	ErrMaxPositions     = errors.New("maximum open positions reached")
)
