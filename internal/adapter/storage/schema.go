package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"

	"github.com/ecetin/order-fulfillment/internal/core/domain"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_name TEXT NOT NULL,
		budget REAL NOT NULL,
		customer_type TEXT NOT NULL,
		total_spent REAL DEFAULT 0,
		username TEXT UNIQUE,
		FOREIGN KEY (username) REFERENCES users(username)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_name TEXT NOT NULL,
		stock INTEGER NOT NULL,
		price REAL NOT NULL,
		version INTEGER DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		order_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		status TEXT DEFAULT 'pending',
		FOREIGN KEY (customer_id) REFERENCES customers(customer_id),
		FOREIGN KEY (product_id) REFERENCES products(product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		log_id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER,
		log_type TEXT NOT NULL,
		customer_type TEXT,
		product TEXT,
		quantity INTEGER,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		result_message TEXT,
		FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
	)`,
}

// InitSchema creates every table and ensures the admin account exists.
// Safe to call on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	return s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		}

		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE username = 'admin'`).Scan(&count)
		if err != nil {
			return fmt.Errorf("check admin user: %w", err)
		}
		if count == 0 {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
				"admin", domain.HashPassword("admin123"), domain.RoleAdmin)
			if err != nil {
				return fmt.Errorf("create admin user: %w", err)
			}
		}
		return nil
	})
}

// SeedProducts resets the catalog to the default demo products. One
// product is deliberately seeded with zero stock so the failure path is
// exercised out of the box.
func (s *Store) SeedProducts(ctx context.Context) error {
	defaults := []struct {
		name  string
		stock int
		price float64
	}{
		{"Product1", 500, 100},
		{"Product2", 10, 50},
		{"Product3", 200, 45},
		{"Product4", 75, 75},
		{"Product5", 0, 500},
	}

	return s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
			return fmt.Errorf("clear products: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'products'`); err != nil {
			return fmt.Errorf("reset product sequence: %w", err)
		}
		for _, p := range defaults {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO products (product_name, stock, price) VALUES (?, ?, ?)`,
				p.name, p.stock, p.price)
			if err != nil {
				return fmt.Errorf("insert product %s: %w", p.name, err)
			}
		}
		return nil
	})
}

// SeedCustomers replaces all customer accounts with 5-10 randomly
// funded ones, at least two of them premium. Every account gets the
// demo password.
func (s *Store) SeedCustomers(ctx context.Context) error {
	total := 5 + rand.IntN(6)
	premium := 2 + rand.IntN(total-2)
	passwordHash := domain.HashPassword("1234")

	return s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cleanup := []string{
			`DELETE FROM customers`,
			`DELETE FROM users WHERE role = 'customer'`,
			`DELETE FROM sqlite_sequence WHERE name = 'customers'`,
		}
		for _, stmt := range cleanup {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear customers: %w", err)
			}
		}

		for i := 0; i < total; i++ {
			name := fmt.Sprintf("customer%d", i+1)
			budget := 500 + rand.Float64()*2500
			tier := domain.CustomerStandard
			if i < premium {
				tier = domain.CustomerPremium
			}

			_, err := tx.ExecContext(ctx,
				`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
				name, passwordHash, domain.RoleCustomer)
			if err != nil {
				return fmt.Errorf("insert user %s: %w", name, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO customers (customer_name, budget, customer_type, username)
				 VALUES (?, ?, ?, ?)`,
				name, budget, tier, name)
			if err != nil {
				return fmt.Errorf("insert customer %s: %w", name, err)
			}
		}
		return nil
	})
}

// SeedTestOrders creates one backdated pending order per customer,
// spreading order times over the past hour so the batch ordering has
// something to work with.
func (s *Store) SeedTestOrders(ctx context.Context) error {
	return s.exec.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT customer_id FROM customers`)
		if err != nil {
			return fmt.Errorf("list customers: %w", err)
		}
		var customerIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan customer: %w", err)
			}
			customerIDs = append(customerIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list customers: %w", err)
		}

		rows, err = tx.QueryContext(ctx, `SELECT product_id FROM products WHERE stock > 0`)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		var productIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan product: %w", err)
			}
			productIDs = append(productIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list products: %w", err)
		}

		if len(productIDs) == 0 {
			return nil
		}

		for i, customerID := range customerIDs {
			productID := productIDs[i%len(productIDs)]
			quantity := 1 + rand.IntN(5)
			offset := rand.IntN(3600)

			_, err := tx.ExecContext(ctx,
				`INSERT INTO orders (customer_id, product_id, quantity, order_time, status)
				 VALUES (?, ?, ?, datetime('now', ?), ?)`,
				customerID, productID, quantity, fmt.Sprintf("-%d seconds", offset),
				domain.OrderStatusPending)
			if err != nil {
				return fmt.Errorf("insert test order: %w", err)
			}
		}
		return nil
	})
}
