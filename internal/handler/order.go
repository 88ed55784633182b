package handler

import (
	"ai-build-shop/internal/middleware"
	"ai-build-shop/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.ListMine(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) ListAll(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.ListAll(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orders)
}
