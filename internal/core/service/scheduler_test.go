package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecetin/order-fulfillment/internal/core/domain"
)

func TestPriorityScore(t *testing.T) {
	// Fresh standard order with a single item is the baseline.
	assert.InDelta(t, 1.01, PriorityScore(domain.CustomerStandard, 0, 1), 0.001)

	// Premium doubles the score.
	assert.InDelta(t, 2.02, PriorityScore(domain.CustomerPremium, 0, 1), 0.001)

	// One hour of waiting doubles the wait multiplier.
	assert.InDelta(t, 2.02, PriorityScore(domain.CustomerStandard, 3600, 1), 0.001)

	// 2.0 * (1 + 7200/3600) * (1 + 50/100) = 9.0
	assert.InDelta(t, 9.0, PriorityScore(domain.CustomerPremium, 7200, 50), 0.001)
}

func TestSortByDispatchOrder(t *testing.T) {
	orders := []domain.PendingOrder{
		{OrderID: 1, CustomerType: domain.CustomerStandard, WaitSeconds: 9000},
		{OrderID: 2, CustomerType: domain.CustomerPremium, WaitSeconds: 5},
		{OrderID: 3, CustomerType: domain.CustomerStandard, WaitSeconds: 50},
		{OrderID: 4, CustomerType: domain.CustomerPremium, WaitSeconds: 300},
	}

	sortByDispatchOrder(orders)

	got := make([]int64, len(orders))
	for i, o := range orders {
		got[i] = o.OrderID
	}
	// Premium tier first regardless of wait, longest wait inside a tier.
	assert.Equal(t, []int64{4, 2, 1, 3}, got)
}

func TestSortByDispatchOrder_StableWithinTies(t *testing.T) {
	orders := []domain.PendingOrder{
		{OrderID: 1, CustomerType: domain.CustomerStandard, WaitSeconds: 60},
		{OrderID: 2, CustomerType: domain.CustomerStandard, WaitSeconds: 60},
		{OrderID: 3, CustomerType: domain.CustomerStandard, WaitSeconds: 60},
	}

	sortByDispatchOrder(orders)

	assert.Equal(t, int64(1), orders[0].OrderID)
	assert.Equal(t, int64(2), orders[1].OrderID)
	assert.Equal(t, int64(3), orders[2].OrderID)
}
