package port

import "context"

// StockGate is an optional advisory cache in front of the store. It may
// reject a placement early, but admitting one guarantees nothing; the
// repository remains the source of truth.
type StockGate interface {
	// SetStock mirrors a product's stock level into the gate.
	SetStock(ctx context.Context, productID int64, stock int) error

	// Reserve claims quantity units, returning false if the mirrored
	// stock cannot cover them.
	Reserve(ctx context.Context, productID int64, quantity int) (bool, error)

	// Restore returns reserved units after a rejected placement.
	Restore(ctx context.Context, productID int64, quantity int) error

	// MarkRequest sets an idempotency key, returning false if already set.
	MarkRequest(ctx context.Context, key string) (bool, error)
}
