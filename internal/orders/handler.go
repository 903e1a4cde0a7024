package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/freshbasket/checkout/internal/domain"
	"github.com/freshbasket/checkout/internal/telemetry"
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	repo     *Repository
	producer Publisher
	metrics  *telemetry.CheckoutMetrics
	logger   *slog.Logger
}

func NewHandler(repo *Repository, producer Publisher, metrics *telemetry.CheckoutMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	orders, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil || order.UserID != userID {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// HandleCancel is the user-facing cancellation: status flip plus stock
// restoration in one transaction, then a best-effort status event.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.Cancel(r.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrOrderNotCancelable):
			h.writeError(w, http.StatusConflict, "order can no longer be canceled")
		default:
			h.logger.Error("failed to cancel order", "error", err, "order_id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.metrics.OrderCanceled(r.Context())
	h.publishStatus(r.Context(), order)

	h.logger.Info("order canceled", "order_id", order.ID, "user_id", userID)
	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// HandleUpdateStatus is the operator-driven transition. Cancellation is not
// reachable through it: only the cancel path restores stock, so routing
// CANCELED here would break stock symmetry.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !ValidStatus(req.Status) {
		h.writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if req.Status == domain.OrderStatusCanceled {
		h.writeError(w, http.StatusBadRequest, "use the cancel endpoint to cancel an order")
		return
	}

	order, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, "status transition not allowed")
		default:
			h.logger.Error("failed to update order status", "error", err, "order_id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.publishStatus(r.Context(), order)

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) publishStatus(ctx context.Context, order *domain.Order) {
	if h.producer == nil {
		return
	}

	event := domain.OrderStatusEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Timestamp: time.Now().UTC(),
	}
	if err := h.producer.Publish(ctx, order.ID, event); err != nil {
		h.logger.Error("failed to publish order status event", "error", err, "order_id", order.ID)
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
