package handler

import (
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/middleware"
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/service"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const signatureHeader = "Stripe-Signature"

type PaymentHandler struct {
	checkoutService  service.CheckoutService
	reconcileService service.ReconcileService
}

func NewPaymentHandler(checkoutService service.CheckoutService, reconcileService service.ReconcileService) *PaymentHandler {
	return &PaymentHandler{
		checkoutService:  checkoutService,
		reconcileService: reconcileService,
	}
}

func (h *PaymentHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	var req dto.CheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	itemType, itemID := model.ItemType(req.ItemType), req.ItemID
	if itemType == "" && req.BuildID != 0 {
		itemType, itemID = model.ItemTypeBuild, req.BuildID
	}
	if !itemType.Valid() || itemID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item selection")
	}

	resp, err := h.checkoutService.StartCheckout(ctx, &service.CheckoutInput{
		UserID:   user.ID,
		Email:    user.Email,
		ItemType: itemType,
		ItemID:   itemID,
		Origin:   c.Request().Header.Get(echo.HeaderOrigin),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	// the signature covers the exact bytes, so the body is read raw
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
	}

	signature := c.Request().Header.Get(signatureHeader)
	if signature == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing Stripe signature")
	}

	ack, err := h.reconcileService.HandleWebhook(ctx, body, signature)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ack)
}

func (h *PaymentHandler) SessionStatus(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing session_id")
	}

	order, err := h.reconcileService.PollSessionStatus(ctx, user.ID, sessionID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.SessionStatusResponse{Order: order})
}

// HandleSuccess renders the return page from stored state only. The page
// polls SessionStatus until the order settles.
func (h *PaymentHandler) HandleSuccess(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.QueryParam("session_id")

	page := &returnPage{
		Title:     "Payment received",
		SessionID: sessionID,
		Poll:      true,
	}

	user := middleware.CurrentUser(c)
	switch {
	case sessionID == "":
		return c.String(http.StatusBadRequest, "missing session id")
	case user == nil:
		page.Message = "Log in to see the status of your order."
		page.Poll = false
		return renderReturnPage(c, http.StatusOK, page)
	}

	order, err := h.reconcileService.GetReturnView(ctx, user.ID, sessionID)
	if errors.Is(err, service.ErrOrderNotFound) {
		page.Message = "We could not find this order."
		page.Poll = false
		return renderReturnPage(c, http.StatusNotFound, page)
	}
	if err != nil {
		return err
	}

	page.Order = order
	page.Message = "We are confirming your payment with the payment provider."
	if model.OrderStatus(order.Status).IsTerminal() {
		page.Poll = false
		page.Message = terminalMessage(order.Status)
	}
	return renderReturnPage(c, http.StatusOK, page)
}

func (h *PaymentHandler) HandleCancel(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.QueryParam("session_id")

	page := &returnPage{
		Title:     "Checkout canceled",
		SessionID: sessionID,
		Message:   "No payment was taken. You can restart checkout at any time.",
	}

	if user := middleware.CurrentUser(c); user != nil && sessionID != "" {
		order, err := h.reconcileService.GetReturnView(ctx, user.ID, sessionID)
		if err != nil && !errors.Is(err, service.ErrOrderNotFound) {
			return err
		}
		page.Order = order
	}
	return renderReturnPage(c, http.StatusOK, page)
}

func terminalMessage(status string) string {
	switch model.OrderStatus(status) {
	case model.OrderStatusPaid:
		return "Payment confirmed. We will assemble and configure your system shortly."
	case model.OrderStatusCanceled:
		return "This checkout expired before payment was completed."
	default:
		return "The payment did not go through. No charge was made."
	}
}
