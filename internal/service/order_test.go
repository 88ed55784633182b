package service

import (
	"ai-build-shop/internal/model"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEur(t *testing.T) {
	tests := map[int64]string{
		60000:  "600.00",
		264950: "2649.50",
		1:      "0.01",
		0:      "0.00",
	}
	for cents, want := range tests {
		assert.Equal(t, want, FormatEur(cents), "%d cents", cents)
	}
}

func TestOrderService_Lists(t *testing.T) {
	h := newHarness(t)
	alice := h.createUser(t, 1, "alice@example.com")
	bob := h.createUser(t, 2, "bob@example.com")
	ctx := context.Background()

	h.startCheckout(t, alice, model.ItemTypeGPU, 7)
	h.startCheckout(t, bob, model.ItemTypeBuild, 1)

	orders := NewOrderService(h.orders)

	mine, err := orders.ListMine(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine.Orders, 1)
	assert.Equal(t, "gpu", mine.Orders[0].ItemType)
	assert.Equal(t, "600.00", mine.Orders[0].AmountEur)
	assert.Empty(t, mine.Orders[0].UserEmail)

	all, err := orders.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all.Orders, 2)

	emails := []string{all.Orders[0].UserEmail, all.Orders[1].UserEmail}
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, emails)
}
