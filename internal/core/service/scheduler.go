package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecetin/order-fulfillment/internal/core/domain"
)

// BatchResult aggregates one pass over the pending orders.
type BatchResult struct {
	Total      int
	Dispatched int
	Succeeded  int
	Failed     int
}

// PriorityScore is the informational urgency value attached to batch
// log lines. Premium customers weigh double, urgency grows per hour of
// waiting and slightly with order size. Dispatch order does not use the
// quantity term; see sortByDispatchOrder.
func PriorityScore(customerType domain.CustomerType, waitSeconds float64, quantity int) float64 {
	typeMultiplier := 1.0
	if customerType == domain.CustomerPremium {
		typeMultiplier = 2.0
	}
	waitMultiplier := 1.0 + waitSeconds/3600.0
	quantityMultiplier := 1.0 + float64(quantity)/100.0
	return typeMultiplier * waitMultiplier * quantityMultiplier
}

// sortByDispatchOrder is the authoritative batch ordering: every
// Premium order ahead of every Standard order, longest wait first
// within a tier.
func sortByDispatchOrder(orders []domain.PendingOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		pi := orders[i].CustomerType == domain.CustomerPremium
		pj := orders[j].CustomerType == domain.CustomerPremium
		if pi != pj {
			return pi
		}
		return orders[i].WaitSeconds > orders[j].WaitSeconds
	})
}

// ProcessAllPending drains the pending orders in one pass. Orders are
// dispatched in priority order under a bounded concurrency limit; each
// runs through the full single-order protocol independently, so one
// failure never aborts its siblings. Cancelling ctx is advisory: it
// stops new dispatches while in-flight transactions run to completion.
func (s *OrderService) ProcessAllPending(ctx context.Context) (BatchResult, error) {
	pending, err := s.repo.PendingOrders(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	if len(pending) == 0 {
		return BatchResult{}, nil
	}

	sortByDispatchOrder(pending)

	batchID := uuid.NewString()[:8]
	s.logger.Info("starting batch",
		zap.String("batch_id", batchID),
		zap.Int("pending", len(pending)))

	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup
	var succeeded, failed atomic.Int32

	result := BatchResult{Total: len(pending)}

dispatch:
	for _, order := range pending {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			s.logger.Info("batch stopped",
				zap.String("batch_id", batchID),
				zap.Int("dispatched", result.Dispatched))
			break dispatch
		}
		if ctx.Err() != nil {
			<-sem
			break dispatch
		}

		result.Dispatched++
		wg.Add(1)
		go func(order domain.PendingOrder) {
			defer wg.Done()
			defer func() { <-sem }()

			score := PriorityScore(order.CustomerType, float64(order.WaitSeconds), order.Quantity)
			s.logger.Info("dispatching order",
				zap.String("batch_id", batchID),
				zap.Int64("order_id", order.OrderID),
				zap.String("customer_type", string(order.CustomerType)),
				zap.Int64("wait_seconds", order.WaitSeconds),
				zap.Float64("priority", score))

			// The score also goes on the audit trail, where operators
			// read dispatch decisions back.
			dispatchMsg := fmt.Sprintf("Order %d dispatched in batch %s | Priority: %.2f | Wait: %ds",
				order.OrderID, batchID, score, order.WaitSeconds)
			if err := s.repo.AddLog(context.WithoutCancel(ctx), &order.CustomerID, domain.LogSystem,
				order.CustomerType, order.ProductName, order.Quantity, dispatchMsg); err != nil {
				s.logger.Warn("failed to write dispatch log", zap.Error(err))
			}

			// In-flight transactions are never interrupted by a batch stop.
			err := s.repo.ProcessOrder(context.WithoutCancel(ctx), order.OrderID)
			if err == nil {
				succeeded.Add(1)
				return
			}
			failed.Add(1)

			if errors.Is(err, domain.ErrOptimisticConflict) {
				s.logger.Info("order lost optimistic race",
					zap.String("batch_id", batchID),
					zap.Int64("order_id", order.OrderID))
				return
			}
			s.logger.Info("order rejected",
				zap.String("batch_id", batchID),
				zap.Int64("order_id", order.OrderID),
				zap.Error(err))
		}(order)
	}

	wg.Wait()

	result.Succeeded = int(succeeded.Load())
	result.Failed = int(failed.Load())

	summary := fmt.Sprintf(
		"Batch %s completed | Total: %d | Success: %d | Failed: %d | Order: Premium first, then by wait time",
		batchID, result.Dispatched, result.Succeeded, result.Failed)
	if err := s.repo.AddLog(context.WithoutCancel(ctx), nil, domain.LogSystem, "", "", 0, summary); err != nil {
		s.logger.Warn("failed to write batch summary log", zap.Error(err))
	}

	s.logger.Info("batch completed",
		zap.String("batch_id", batchID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result, nil
}
