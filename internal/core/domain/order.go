package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusProcessed OrderStatus = "processed"
	OrderStatusFailed    OrderStatus = "failed"
)

// PendingOrder is the projection used by the batch processor: a pending
// order joined with the customer tier and product name it was placed
// against, plus how long it has been waiting.
type PendingOrder struct {
	OrderID      int64
	CustomerID   int64
	CustomerType CustomerType
	ProductID    int64
	ProductName  string
	Quantity     int
	OrderTime    time.Time
	WaitSeconds  int64
}

// CustomerOrder is the per-customer order history projection.
type CustomerOrder struct {
	OrderID     int64
	ProductName string
	Quantity    int
	Status      OrderStatus
	OrderTime   time.Time
	WaitSeconds int64
}
