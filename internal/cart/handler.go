package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/freshbasket/checkout/internal/domain"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	lines, err := h.repo.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if lines == nil {
		lines = []domain.ResolvedCartLine{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"lines": lines})
}

type addLineRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleAddLine(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "product_id and a positive quantity are required")
		return
	}

	line, err := h.repo.AddLine(r.Context(), userID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		h.writeCartError(w, err, userID)
		return
	}

	h.logger.Info("cart line added", "user_id", userID, "product_id", req.ProductID, "quantity", line.Quantity)
	h.writeJSON(w, http.StatusOK, line)
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleUpdateLine(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	lineID := r.PathValue("id")
	if lineID == "" {
		h.writeError(w, http.StatusBadRequest, "missing line id")
		return
	}

	var req updateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 0 {
		h.writeError(w, http.StatusBadRequest, "quantity cannot be negative")
		return
	}

	if err := h.repo.UpdateLine(r.Context(), userID, lineID, req.Quantity); err != nil {
		h.writeCartError(w, err, userID)
		return
	}

	h.logger.Info("cart line updated", "user_id", userID, "line_id", lineID, "quantity", req.Quantity)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveLine(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	lineID := r.PathValue("id")
	if lineID == "" {
		h.writeError(w, http.StatusBadRequest, "missing line id")
		return
	}

	if err := h.repo.RemoveLine(r.Context(), userID, lineID); err != nil {
		h.writeCartError(w, err, userID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	if err := h.repo.Clear(r.Context(), userID); err != nil {
		h.logger.Error("failed to clear cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeCartError(w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrProductUnavailable):
		h.writeError(w, http.StatusUnprocessableEntity, "product unavailable")
	case errors.Is(err, domain.ErrCartLineNotFound):
		h.writeError(w, http.StatusNotFound, "cart line not found")
	default:
		h.logger.Error("cart operation failed", "error", err, "user_id", userID)
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
