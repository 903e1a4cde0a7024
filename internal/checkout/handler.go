package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/freshbasket/checkout/internal/cart"
	"github.com/freshbasket/checkout/internal/domain"
	"github.com/freshbasket/checkout/internal/telemetry"
)

type Handler struct {
	engine  *Engine
	carts   *cart.Repository
	metrics *telemetry.CheckoutMetrics
	logger  *slog.Logger
}

func NewHandler(engine *Engine, carts *cart.Repository, metrics *telemetry.CheckoutMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		carts:   carts,
		metrics: metrics,
		logger:  logger,
	}
}

type checkoutRequest struct {
	AddressID    string        `json:"address_id"`
	Items        []ItemRequest `json:"items,omitempty"`
	CouponCode   string        `json:"coupon_code,omitempty"`
	DeliverySlot string        `json:"delivery_slot"`
}

// HandleCreate places an order. A request without explicit items checks out
// the user's cart; explicit items are a direct buy-now and leave the cart
// untouched.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AddressID == "" {
		h.writeError(w, http.StatusBadRequest, "address_id is required")
		return
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			h.writeError(w, http.StatusBadRequest, "every item needs a product_id and a positive quantity")
			return
		}
	}

	engineReq := CreateOrderRequest{
		UserID:       userID,
		AddressID:    req.AddressID,
		Items:        req.Items,
		CouponCode:   req.CouponCode,
		DeliverySlot: req.DeliverySlot,
	}

	if len(req.Items) == 0 {
		lines, err := h.carts.List(r.Context(), userID)
		if err != nil {
			h.logger.Error("failed to read cart for checkout", "error", err, "user_id", userID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if len(lines) == 0 {
			h.writeError(w, http.StatusBadRequest, "cart is empty")
			return
		}
		for _, line := range lines {
			engineReq.Items = append(engineReq.Items, ItemRequest{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
			})
		}
		engineReq.FromCart = true
	}

	order, err := h.engine.CreateOrder(r.Context(), engineReq)
	if err != nil {
		h.writeCheckoutError(w, r, err, userID)
		return
	}

	h.metrics.OrderCreated(r.Context())
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error, userID string) {
	var stockErr *domain.StockError

	switch {
	case errors.As(err, &stockErr):
		h.metrics.Rejected(r.Context(), "insufficient_stock")
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error":     stockErr.Error(),
			"item":      stockErr.Name,
			"available": stockErr.Available,
		})
	case errors.Is(err, domain.ErrInsufficientStock):
		h.metrics.Rejected(r.Context(), "insufficient_stock")
		h.writeError(w, http.StatusConflict, "insufficient stock")
	case errors.Is(err, domain.ErrInvalidAddress):
		h.metrics.Rejected(r.Context(), "invalid_address")
		h.writeError(w, http.StatusBadRequest, "invalid address")
	case errors.Is(err, domain.ErrProductUnavailable):
		h.metrics.Rejected(r.Context(), "product_unavailable")
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrCouponNotFound),
		errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrMinimumOrderNotMet),
		errors.Is(err, domain.ErrUsageLimitExceeded):
		h.metrics.Rejected(r.Context(), "coupon")
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("checkout failed", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
