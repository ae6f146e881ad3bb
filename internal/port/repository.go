package port

import (
	"context"

	"github.com/ecetin/order-fulfillment/internal/core/domain"
)

// Repository is the transactional inventory/ledger surface. Every
// method is a single atomic unit of work against the store.
type Repository interface {
	// VerifyUser compares a credential pair and returns the role on match.
	VerifyUser(ctx context.Context, username, passwordHash string) (bool, string, error)

	// AddUser registers a login identity.
	AddUser(ctx context.Context, username, passwordHash, role string) error

	// CustomerByUsername resolves the customer behind a login.
	CustomerByUsername(ctx context.Context, username string) (*domain.Customer, error)

	// PlaceOrder validates and inserts a pending order, returning its id.
	PlaceOrder(ctx context.Context, customerID, productID int64, quantity int) (int64, error)

	// ProcessOrder runs the optimistic stock/budget debit protocol for
	// one pending order.
	ProcessOrder(ctx context.Context, orderID int64) error

	// PendingOrders lists pending orders with wait times.
	PendingOrders(ctx context.Context) ([]domain.PendingOrder, error)

	CustomerOrders(ctx context.Context, customerID int64) ([]domain.CustomerOrder, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	RecentLogs(ctx context.Context, limit int) ([]domain.LogEntry, error)

	// AddLog appends an audit entry; customerID is nil for system events.
	AddLog(ctx context.Context, customerID *int64, logType domain.LogType,
		customerType domain.CustomerType, product string, quantity int, message string) error

	// Administrative catalog operations; each bumps the product version
	// where it mutates stock or price.
	AddCustomer(ctx context.Context, name string, budget float64,
		customerType domain.CustomerType, username string) (int64, error)
	AddProduct(ctx context.Context, name string, stock int, price float64) (int64, error)
	DeleteProduct(ctx context.Context, productID int64) error
	UpdateStock(ctx context.Context, productID int64, newStock int) error
	UpdatePrice(ctx context.Context, productID int64, newPrice float64) error
}
