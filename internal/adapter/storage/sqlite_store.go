package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ecetin/order-fulfillment/internal/core/domain"
)

// waitSecondsExpr computes how long an order has been pending, in
// seconds, from the stored order_time.
const waitSecondsExpr = `CAST(ROUND((julianday('now') - julianday(o.order_time)) * 86400) AS INTEGER)`

// Store exposes the inventory and ledger operations. Every exported
// method is exactly one Executor unit of work; callers never compose
// two methods expecting atomicity across them.
type Store struct {
	exec *Executor
}

func NewStore(exec *Executor) *Store {
	return &Store{exec: exec}
}

// VerifyUser checks a credential pair against the users table and
// returns the stored role on a match.
func (s *Store) VerifyUser(ctx context.Context, username, passwordHash string) (bool, string, error) {
	var (
		matched bool
		role    string
	)
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var storedHash, storedRole string
		err := tx.QueryRowContext(ctx,
			`SELECT password_hash, role FROM users WHERE username = ?`, username,
		).Scan(&storedHash, &storedRole)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("query user: %w", err)
		}
		if storedHash == passwordHash {
			matched = true
			role = storedRole
		}
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return matched, role, nil
}

// AddUser registers a new login identity.
func (s *Store) AddUser(ctx context.Context, username, passwordHash, role string) error {
	return s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
			username, passwordHash, role)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
}

// CustomerByUsername resolves the customer record behind a login.
func (s *Store) CustomerByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT customer_id, customer_name, budget, customer_type, total_spent, username
			 FROM customers WHERE username = ?`, username,
		).Scan(&c.ID, &c.Name, &c.Budget, &c.Type, &c.TotalSpent, &c.Username)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("query customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT product_id, product_name, stock, price, version
			 FROM products ORDER BY product_id`)
		if err != nil {
			return fmt.Errorf("query products: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p domain.Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.Price, &p.Version); err != nil {
				return fmt.Errorf("scan product: %w", err)
			}
			products = append(products, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT customer_id, customer_name, budget, customer_type, total_spent, username
			 FROM customers ORDER BY customer_id`)
		if err != nil {
			return fmt.Errorf("query customers: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c domain.Customer
			if err := rows.Scan(&c.ID, &c.Name, &c.Budget, &c.Type, &c.TotalSpent, &c.Username); err != nil {
				return fmt.Errorf("scan customer: %w", err)
			}
			customers = append(customers, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// AddProduct inserts a new catalog entry and returns its id.
func (s *Store) AddProduct(ctx context.Context, name string, stock int, price float64) (int64, error) {
	var id int64
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO products (product_name, stock, price) VALUES (?, ?, ?)`,
			name, stock, price)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("product id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AddCustomer inserts a customer record linked to an existing login
// and returns its id.
func (s *Store) AddCustomer(ctx context.Context, name string, budget float64,
	customerType domain.CustomerType, username string) (int64, error) {
	var id int64
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO customers (customer_name, budget, customer_type, username)
			 VALUES (?, ?, ?, ?)`,
			name, budget, customerType, username)
		if err != nil {
			return fmt.Errorf("insert customer: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("customer id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) DeleteProduct(ctx context.Context, productID int64) error {
	return s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM products WHERE product_id = ?`, productID)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// UpdateStock sets an absolute stock level and bumps the version so
// in-flight optimistic updates against the old value lose their race.
func (s *Store) UpdateStock(ctx context.Context, productID int64, newStock int) error {
	return s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = ?, version = version + 1 WHERE product_id = ?`,
			newStock, productID)
		if err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// UpdatePrice sets a new price and bumps the version.
func (s *Store) UpdatePrice(ctx context.Context, productID int64, newPrice float64) error {
	return s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET price = ?, version = version + 1 WHERE product_id = ?`,
			newPrice, productID)
		if err != nil {
			return fmt.Errorf("update price: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// PlaceOrder validates stock and budget against current state, then
// inserts a pending order plus its creation log entry. Any validation
// failure rolls the whole unit of work back, so a rejected placement
// leaves no trace.
func (s *Store) PlaceOrder(ctx context.Context, customerID, productID int64, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	var orderID int64
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var (
			productName string
			stock       int
			price       float64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT product_name, stock, price FROM products WHERE product_id = ?`, productID,
		).Scan(&productName, &stock, &price)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("query product: %w", err)
		}
		if stock < quantity {
			return domain.ErrInsufficientStock
		}

		var (
			budget       float64
			customerType domain.CustomerType
		)
		err = tx.QueryRowContext(ctx,
			`SELECT budget, customer_type FROM customers WHERE customer_id = ?`, customerID,
		).Scan(&budget, &customerType)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("query customer: %w", err)
		}
		if budget < price*float64(quantity) {
			return domain.ErrInsufficientBudget
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO orders (customer_id, product_id, quantity, status)
			 VALUES (?, ?, ?, ?)`,
			customerID, productID, quantity, domain.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("order id: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO logs (customer_id, log_type, customer_type, product, quantity, result_message)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			customerID, domain.LogOrderCreated, customerType, productName, quantity,
			fmt.Sprintf("Order %d created successfully. Awaiting approval.", orderID))
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// ProcessOrder debits stock and budget for one pending order, all
// inside a single transaction:
//
//  1. Re-read the order joined with its product and customer, pending
//     rows only. Missing or terminal orders are a no-op.
//  2. Recompute the total cost from the current price.
//  3. Insufficient stock or budget marks the order failed, writes an
//     Error log, and commits; the rejection is terminal.
//  4. Decrement stock conditioned on product id, the version read in
//     step 1, and remaining sufficiency. Zero rows matched means a
//     concurrent transaction won the race: roll everything back.
//  5. Decrement budget conditioned on sufficiency, same rule.
//  6. Mark the order processed and append the success log entry.
//
// The conditional updates in 4-5 are what keep stock and budget
// non-negative under concurrent invocations: both racers can pass the
// step-1 read, but only one can match the version.
func (s *Store) ProcessOrder(ctx context.Context, orderID int64) error {
	var procErr error
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var (
			customerID   int64
			customerType domain.CustomerType
			productID    int64
			productName  string
			quantity     int
			price        float64
			version      int
			stock        int
			budget       float64
		)
		err := tx.QueryRowContext(ctx, `
			SELECT o.customer_id, c.customer_type, o.product_id, p.product_name,
			       o.quantity, p.price, p.version, p.stock, c.budget
			FROM orders o
			JOIN customers c ON o.customer_id = c.customer_id
			JOIN products p ON o.product_id = p.product_id
			WHERE o.order_id = ? AND o.status = ?`, orderID, domain.OrderStatusPending,
		).Scan(&customerID, &customerType, &productID, &productName,
			&quantity, &price, &version, &stock, &budget)
		if errors.Is(err, sql.ErrNoRows) {
			procErr = domain.ErrOrderNotActionable
			return nil
		}
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}

		totalCost := price * float64(quantity)

		if stock < quantity {
			if err := failOrder(ctx, tx, orderID, customerID, customerType, productName, quantity,
				fmt.Sprintf("Order %d failed: Insufficient stock", orderID)); err != nil {
				return err
			}
			procErr = domain.ErrInsufficientStock
			return nil
		}

		if budget < totalCost {
			if err := failOrder(ctx, tx, orderID, customerID, customerType, productName, quantity,
				fmt.Sprintf("Order %d failed: Insufficient budget", orderID)); err != nil {
				return err
			}
			procErr = domain.ErrInsufficientBudget
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - ?, version = version + 1
			WHERE product_id = ? AND version = ? AND stock >= ?`,
			quantity, productID, version, quantity)
		if err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrOptimisticConflict
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE customers
			SET budget = budget - ?, total_spent = total_spent + ?
			WHERE customer_id = ? AND budget >= ?`,
			totalCost, totalCost, customerID, totalCost)
		if err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrOptimisticConflict
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = ? WHERE order_id = ?`,
			domain.OrderStatusProcessed, orderID)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO logs (customer_id, log_type, customer_type, product, quantity, result_message)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			customerID, domain.LogOrderProcessed, customerType, productName, quantity,
			fmt.Sprintf("Order %d processed successfully", orderID))
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return procErr
}

// failOrder marks an order failed and records the rejection. Runs
// inside the caller's transaction so the failed status commits with it.
func failOrder(ctx context.Context, tx *sql.Tx, orderID, customerID int64,
	customerType domain.CustomerType, productName string, quantity int, message string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE order_id = ?`,
		domain.OrderStatusFailed, orderID)
	if err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO logs (customer_id, log_type, customer_type, product, quantity, result_message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		customerID, domain.LogError, customerType, productName, quantity, message)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// PendingOrders lists every pending order with its wait time, oldest
// first by id. Prioritization is the scheduler's concern.
func (s *Store) PendingOrders(ctx context.Context) ([]domain.PendingOrder, error) {
	var orders []domain.PendingOrder
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT o.order_id, o.customer_id, c.customer_type, o.product_id,
			       p.product_name, o.quantity, o.order_time, `+waitSecondsExpr+` AS wait_seconds
			FROM orders o
			JOIN customers c ON o.customer_id = c.customer_id
			JOIN products p ON o.product_id = p.product_id
			WHERE o.status = ?
			ORDER BY o.order_id`, domain.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("query pending orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var o domain.PendingOrder
			if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.CustomerType, &o.ProductID,
				&o.ProductName, &o.Quantity, &o.OrderTime, &o.WaitSeconds); err != nil {
				return fmt.Errorf("scan pending order: %w", err)
			}
			orders = append(orders, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// CustomerOrders lists one customer's order history, newest first.
func (s *Store) CustomerOrders(ctx context.Context, customerID int64) ([]domain.CustomerOrder, error) {
	var orders []domain.CustomerOrder
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT o.order_id, p.product_name, o.quantity, o.status, o.order_time,
			       `+waitSecondsExpr+` AS wait_seconds
			FROM orders o
			JOIN products p ON o.product_id = p.product_id
			WHERE o.customer_id = ?
			ORDER BY o.order_time DESC`, customerID)
		if err != nil {
			return fmt.Errorf("query customer orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var o domain.CustomerOrder
			if err := rows.Scan(&o.OrderID, &o.ProductName, &o.Quantity, &o.Status,
				&o.OrderTime, &o.WaitSeconds); err != nil {
				return fmt.Errorf("scan customer order: %w", err)
			}
			orders = append(orders, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// RecentLogs returns the newest audit entries, most recent first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	var entries []domain.LogEntry
	err := s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT l.log_id, l.customer_id, c.customer_name, l.log_type,
			       l.customer_type, l.product, l.quantity, l.timestamp, l.result_message
			FROM logs l
			LEFT JOIN customers c ON l.customer_id = c.customer_id
			ORDER BY l.log_id DESC
			LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query logs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e            domain.LogEntry
				customerID   sql.NullInt64
				customerName sql.NullString
				customerType sql.NullString
				product      sql.NullString
				quantity     sql.NullInt64
			)
			if err := rows.Scan(&e.ID, &customerID, &customerName, &e.Type,
				&customerType, &product, &quantity, &e.Timestamp, &e.Message); err != nil {
				return fmt.Errorf("scan log: %w", err)
			}
			if customerID.Valid {
				id := customerID.Int64
				e.CustomerID = &id
			}
			e.CustomerName = "System"
			if customerName.Valid {
				e.CustomerName = customerName.String
			}
			e.CustomerType = domain.CustomerType(customerType.String)
			e.Product = product.String
			e.Quantity = int(quantity.Int64)
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AddLog appends a free-standing audit entry. customerID may be nil for
// system events such as batch summaries.
func (s *Store) AddLog(ctx context.Context, customerID *int64, logType domain.LogType,
	customerType domain.CustomerType, product string, quantity int, message string) error {
	return s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO logs (customer_id, log_type, customer_type, product, quantity, result_message)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			customerID, logType, nullIfEmpty(string(customerType)), nullIfEmpty(product), quantity, message)
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
		return nil
	})
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
