package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/core/domain/cart"
	"github.com/avatarctic/checkout-system/internal/core/domain/checkout"
	"github.com/avatarctic/checkout-system/internal/infrastructure/httpserver/helpers"
)

type checkoutResponse struct {
	Message      string     `json:"message"`
	Items        []string   `json:"items"`
	CheckoutTime *time.Time `json:"checkout_time"`
	OrderID      uuid.UUID  `json:"order_id"`
}

func (s *Server) storeCart(c echo.Context) error {
	var req cart.StoreCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	stored, err := s.cartService.StoreCart(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, cart.ErrInvalidCart) {
			return echo.NewHTTPError(http.StatusBadRequest, "user_id and items are required")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store cart")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "Cart stored successfully", "cart": stored})
}

func (s *Server) getCart(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	found, ok, err := s.cartService.GetCart(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load cart")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "cart not found")
	}
	return c.JSON(http.StatusOK, found)
}

func (s *Server) deleteCart(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	existed, err := s.cartService.DeleteCart(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete cart")
	}
	if !existed {
		return echo.NewHTTPError(http.StatusNotFound, "user not found or cart doesn't exist")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "Cart successfully cleared"})
}

func (s *Server) checkout(c echo.Context) error {
	var req cart.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := s.checkoutSvc.Checkout(c.Request().Context(), req.UserID)
	if err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":   req.UserID,
			"client_id": helpers.GetClientKey(c),
		}).WithError(err).Warn("checkout did not complete")
	}
	if outcome == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, checkout.MessageFailed)
	}
	if !outcome.Success {
		return echo.NewHTTPError(checkoutStatus(outcome.Category), outcome.Message)
	}
	return c.JSON(http.StatusOK, checkoutResponse{
		Message:      "Checkout completed successfully",
		Items:        outcome.Items,
		CheckoutTime: outcome.CheckoutTime,
		OrderID:      outcome.OrderID,
	})
}

func checkoutStatus(category checkout.FailureCategory) int {
	switch category {
	case checkout.CategoryCapacityExceeded:
		return http.StatusTooManyRequests
	case checkout.CategoryEmptyCart:
		return http.StatusBadRequest
	case checkout.CategoryCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
