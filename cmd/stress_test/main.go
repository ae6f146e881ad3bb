package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecetin/order-fulfillment/internal/adapter/storage"
	"github.com/ecetin/order-fulfillment/internal/core/domain"
	"github.com/ecetin/order-fulfillment/internal/core/service"
)

const (
	poolSize        = 10
	maxConcurrent   = 8
	initialStock    = 20
	productPrice    = 10
	customerBudget  = 100000
	totalPlacements = 50
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	dir, err := os.MkdirTemp("", "fulfillment-stress-*")
	if err != nil {
		logger.Fatal("temp dir", zap.Error(err))
	}
	defer os.RemoveAll(dir)

	pool, err := storage.NewPool(ctx, filepath.Join(dir, "stress.db"),
		poolSize, 30*time.Second, 30*time.Second)
	if err != nil {
		logger.Fatal("open pool", zap.Error(err))
	}
	defer pool.Close()

	store := storage.NewStore(storage.NewExecutor(pool))
	if err := store.InitSchema(ctx); err != nil {
		logger.Fatal("init schema", zap.Error(err))
	}

	productID, err := store.AddProduct(ctx, "stress-item", initialStock, productPrice)
	if err != nil {
		logger.Fatal("add product", zap.Error(err))
	}

	// Give the buyer a budget that never binds; the contended resource
	// is the product stock.
	if err := store.AddUser(ctx, "stress-user", domain.HashPassword("1234"), domain.RoleCustomer); err != nil {
		logger.Fatal("add user", zap.Error(err))
	}
	customerID, err := store.AddCustomer(ctx, "stress-user", customerBudget, domain.CustomerPremium, "stress-user")
	if err != nil {
		logger.Fatal("seed customer", zap.Error(err))
	}

	svc := service.NewOrderService(store, nil, maxConcurrent, logger)

	// Phase 1: concurrent placements of one unit each.
	var placed, rejected atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalPlacements; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, uuid.NewString(), customerID, productID, 1)
			if err == nil {
				placed.Add(1)
			} else {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	// Phase 2: batch-process everything that got through. Orders that
	// lose an optimistic race stay pending, so keep draining until a
	// pass dispatches nothing.
	var succeeded, failed int
	for pass := 0; pass < 10; pass++ {
		result, err := svc.ProcessAllPending(ctx)
		if err != nil {
			logger.Fatal("process all pending", zap.Error(err))
		}
		succeeded += result.Succeeded
		failed += result.Failed
		if result.Dispatched == 0 {
			break
		}
	}
	elapsed := time.Since(start)

	products, err := store.ListProducts(ctx)
	if err != nil {
		logger.Fatal("list products", zap.Error(err))
	}
	finalStock := -1
	for _, p := range products {
		if p.ID == productID {
			finalStock = p.Stock
		}
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:      %d\n", initialStock)
	fmt.Printf("Total Placements:   %d\n", totalPlacements)
	fmt.Printf("Orders Created:     %d\n", placed.Load())
	fmt.Printf("Placements Denied:  %d\n", rejected.Load())
	fmt.Printf("Batch Succeeded:    %d\n", succeeded)
	fmt.Printf("Batch Failed:       %d\n", failed)
	fmt.Printf("Final Stock:        %d\n", finalStock)
	fmt.Printf("Duration:           %v\n", elapsed)
	fmt.Println("==========================================")

	if succeeded == initialStock && finalStock == 0 {
		fmt.Printf("PASS: exactly %d orders settled, stock depleted to 0\n", initialStock)
	} else if finalStock == initialStock-succeeded {
		fmt.Printf("PASS: stock conserved (%d - %d = %d)\n",
			initialStock, succeeded, finalStock)
	} else {
		fmt.Printf("FAIL: expected stock %d, got %d\n",
			initialStock-succeeded, finalStock)
		os.Exit(1)
	}
}
