package main

import (
	"ai-build-shop/internal/dto"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintOrders(t *testing.T) {
	var out bytes.Buffer
	err := printOrders(&out, &dto.OrderResponse{
		ID:        1,
		ItemType:  "gpu",
		ItemID:    7,
		ItemName:  "NVIDIA GeForce RTX 4070 Super 12GB",
		AmountEur: "600.00",
		Status:    "PAID",
		UserEmail: "buyer@example.com",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "PAID")
	assert.Contains(t, lines[1], "EUR 600.00")
	assert.Contains(t, lines[1], "2026-03-01T12:00:00Z")
}

func TestReconcileRequiresSession(t *testing.T) {
	cmd := reconcileCmd(&env{})
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	assert.ErrorContains(t, err, `required flag(s) "session" not set`)
}
