package handler

import (
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/service"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

func (h *CatalogHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.catalogService.List(ctx, model.ItemType(c.Param("type")))
	if err != nil {
		return err
	}

	resp := &dto.CatalogListResponse{Items: make([]*dto.CatalogItemResponse, len(items))}
	for i, item := range items {
		resp.Items[i] = item.Response()
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	item, err := h.catalogService.Resolve(ctx, model.ItemType(c.Param("type")), uint(id))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item.Response())
}
