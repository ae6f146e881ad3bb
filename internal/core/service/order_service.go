package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ecetin/order-fulfillment/internal/core/domain"
	"github.com/ecetin/order-fulfillment/internal/port"
)

// OrderService is the application surface consumed by the HTTP layer
// and the stress harness. It owns no mutable state of its own; all
// shared state lives behind the repository.
type OrderService struct {
	repo          port.Repository
	gate          port.StockGate // nil when no gate is configured
	logger        *zap.Logger
	maxConcurrent int
}

func NewOrderService(repo port.Repository, gate port.StockGate, maxConcurrent int, logger *zap.Logger) *OrderService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &OrderService{
		repo:          repo,
		gate:          gate,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// Login verifies a username/password pair and returns the account role.
func (s *OrderService) Login(ctx context.Context, username, password string) (bool, string, error) {
	return s.repo.VerifyUser(ctx, username, domain.HashPassword(password))
}

// Register creates a customer login identity.
func (s *OrderService) Register(ctx context.Context, username, password string) error {
	return s.repo.AddUser(ctx, username, domain.HashPassword(password), domain.RoleCustomer)
}

// CustomerByUsername resolves the customer record behind a login.
func (s *OrderService) CustomerByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	return s.repo.CustomerByUsername(ctx, username)
}

// PlaceOrder creates a pending order. When a stock gate is configured
// it first dedupes the request id and sheds placements the mirrored
// stock clearly cannot cover; a reservation taken from the gate is
// restored if the store then rejects the order.
func (s *OrderService) PlaceOrder(ctx context.Context, requestID string, customerID, productID int64, quantity int) (int64, error) {
	if s.gate != nil && requestID != "" {
		ok, err := s.gate.MarkRequest(ctx, "order:"+requestID)
		if err != nil {
			return 0, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return 0, domain.ErrDuplicateRequest
		}
	}

	reserved := false
	if s.gate != nil {
		ok, err := s.gate.Reserve(ctx, productID, quantity)
		if err != nil {
			return 0, fmt.Errorf("stock gate: %w", err)
		}
		if !ok {
			return 0, domain.ErrInsufficientStock
		}
		reserved = true
	}

	orderID, err := s.repo.PlaceOrder(ctx, customerID, productID, quantity)
	if err != nil {
		if reserved {
			if restoreErr := s.gate.Restore(ctx, productID, quantity); restoreErr != nil {
				s.logger.Error("failed to restore gate reservation",
					zap.Int64("product_id", productID),
					zap.Int("quantity", quantity),
					zap.Error(restoreErr))
			}
		}
		return 0, err
	}

	s.logger.Info("order placed",
		zap.Int64("order_id", orderID),
		zap.Int64("customer_id", customerID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity))
	return orderID, nil
}

// ProcessOrder settles a single pending order.
func (s *OrderService) ProcessOrder(ctx context.Context, orderID int64) error {
	err := s.repo.ProcessOrder(ctx, orderID)
	if err != nil {
		s.logger.Info("order processing failed",
			zap.Int64("order_id", orderID), zap.Error(err))
		return err
	}
	s.logger.Info("order processed", zap.Int64("order_id", orderID))
	return nil
}

// PendingOrders lists pending orders in dispatch priority order.
func (s *OrderService) PendingOrders(ctx context.Context) ([]domain.PendingOrder, error) {
	orders, err := s.repo.PendingOrders(ctx)
	if err != nil {
		return nil, err
	}
	sortByDispatchOrder(orders)
	return orders, nil
}

func (s *OrderService) CustomerOrders(ctx context.Context, customerID int64) ([]domain.CustomerOrder, error) {
	return s.repo.CustomerOrders(ctx, customerID)
}

func (s *OrderService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *OrderService) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *OrderService) RecentLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	return s.repo.RecentLogs(ctx, limit)
}

// AddProduct creates a catalog entry and mirrors its stock to the gate.
func (s *OrderService) AddProduct(ctx context.Context, name string, stock int, price float64) (int64, error) {
	id, err := s.repo.AddProduct(ctx, name, stock, price)
	if err != nil {
		return 0, err
	}
	s.syncGate(ctx, id, stock)
	return id, nil
}

func (s *OrderService) DeleteProduct(ctx context.Context, productID int64) error {
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	s.syncGate(ctx, productID, 0)
	return nil
}

// UpdateStock sets an absolute stock level, bumping the version.
func (s *OrderService) UpdateStock(ctx context.Context, productID int64, newStock int) error {
	if err := s.repo.UpdateStock(ctx, productID, newStock); err != nil {
		return err
	}
	s.syncGate(ctx, productID, newStock)
	return nil
}

// UpdatePrice sets a new price, bumping the version.
func (s *OrderService) UpdatePrice(ctx context.Context, productID int64, newPrice float64) error {
	return s.repo.UpdatePrice(ctx, productID, newPrice)
}

// SyncGateStock mirrors the whole catalog into the stock gate. Called
// at startup so the gate starts from the authoritative state.
func (s *OrderService) SyncGateStock(ctx context.Context) error {
	if s.gate == nil {
		return nil
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if err := s.gate.SetStock(ctx, p.ID, p.Stock); err != nil {
			return fmt.Errorf("sync stock for product %d: %w", p.ID, err)
		}
	}
	return nil
}

// syncGate updates a single mirrored stock value, logging rather than
// failing: the gate is advisory.
func (s *OrderService) syncGate(ctx context.Context, productID int64, stock int) {
	if s.gate == nil {
		return
	}
	if err := s.gate.SetStock(ctx, productID, stock); err != nil {
		s.logger.Warn("failed to sync stock gate",
			zap.Int64("product_id", productID), zap.Error(err))
	}
}
