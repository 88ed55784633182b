package handler

import (
	"ai-build-shop/internal/client"
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/service"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorStatus struct {
	err    error
	code   int
	detail bool // render the wrapped message instead of the sentinel's
}

var errorStatuses = []errorStatus{
	{err: service.ErrInvalidInput, code: http.StatusBadRequest, detail: true},
	{err: service.ErrInvalidAmount, code: http.StatusBadRequest},
	{err: service.ErrInvalidOrigin, code: http.StatusBadRequest},
	{err: service.ErrWeakPassword, code: http.StatusBadRequest},
	{err: service.ErrPasswordTooLong, code: http.StatusBadRequest},
	{err: service.ErrAdminExists, code: http.StatusBadRequest},
	{err: service.ErrAdminSetupRequired, code: http.StatusBadRequest},
	{err: service.ErrVerificationFailed, code: http.StatusBadRequest},
	{err: client.ErrInvalidSignature, code: http.StatusBadRequest},
	{err: service.ErrUnauthenticated, code: http.StatusUnauthorized},
	{err: service.ErrInvalidCredentials, code: http.StatusUnauthorized},
	{err: service.ErrOriginNotAllowed, code: http.StatusForbidden},
	{err: service.ErrOwnershipMismatch, code: http.StatusForbidden},
	{err: service.ErrItemNotFound, code: http.StatusNotFound},
	{err: service.ErrOrderNotFound, code: http.StatusNotFound},
	{err: service.ErrEmailTaken, code: http.StatusConflict},
	{err: client.ErrGatewayMisconfigured, code: http.StatusInternalServerError},
	{err: service.ErrAuthMisconfigured, code: http.StatusInternalServerError},
	{err: client.ErrGatewayUnavailable, code: http.StatusBadGateway},
	{err: client.ErrGatewayRejected, code: http.StatusBadGateway},
}

// NewHTTPErrorHandler renders every error as {"message": ...}. Unmapped
// errors become a 500 without details.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := statusFor(err)
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		var respErr error
		if c.Request().Method == http.MethodHead {
			respErr = c.NoContent(code)
		} else {
			respErr = c.JSON(code, &dto.MessageResponse{Message: message})
		}
		if respErr != nil {
			log.Error("write error response", zap.Error(respErr))
		}
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}

	for _, s := range errorStatuses {
		if !errors.Is(err, s.err) {
			continue
		}
		if s.detail {
			return s.code, err.Error()
		}
		return s.code, s.err.Error()
	}

	return http.StatusInternalServerError, "internal server error"
}
