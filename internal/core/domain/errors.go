package domain

import "errors"

var (
	// ErrNotFound reports a referenced product, customer or order that
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrOrderNotActionable reports an order that is missing or already
	// terminal; processing it again is a no-op.
	ErrOrderNotActionable = errors.New("order is not pending")

	// ErrInsufficientStock and ErrInsufficientBudget are business
	// rejections: the order is marked failed and stays failed.
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientBudget = errors.New("insufficient budget")

	// ErrOptimisticConflict reports a lost race on a version or
	// sufficiency check. Nothing was committed; the caller may retry.
	ErrOptimisticConflict = errors.New("optimistic lock conflict")

	// ErrDuplicateRequest reports a replayed placement request id.
	ErrDuplicateRequest = errors.New("duplicate request")
)
