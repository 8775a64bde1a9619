package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("error not found")
	ErrSellExceedsHolding = errors.New("sell quantity exceeds held quantity")
)

// DeleteFailedError reports a bulk delete that stopped partway: Deleted
// transactions were removed before TransactionID failed.
type DeleteFailedError struct {
	TransactionID string
	Deleted       int
	Err           error
}

func (e *DeleteFailedError) Error() string {
	return fmt.Sprintf("delete stopped at transaction %s after %d deletions: %v", e.TransactionID, e.Deleted, e.Err)
}

func (e *DeleteFailedError) Unwrap() error {
	return e.Err
}
