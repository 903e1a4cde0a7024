package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/freshbasket/checkout/internal/domain"
)

// Handler turns order events into emails. Everything here is best-effort:
// failures are logged and the message is committed anyway, so a broken mail
// channel can never back up the order flow.
type Handler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

func (h *Handler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed order created event", "error", err)
		return nil
	}

	subject := "Order confirmed: " + event.OrderID
	body := fmt.Sprintf("Thanks for your order! We received %d items totalling %s and will start packing shortly.",
		len(event.Items), rupees(event.Total))

	if err := h.send(ctx, mailbox(event.UserID), subject, body); err != nil {
		h.logger.Error("failed to send order confirmation", "error", err, "order_id", event.OrderID)
		return nil
	}

	h.logger.Info("order confirmation sent", "order_id", event.OrderID)
	return nil
}

// statusCopy holds the human-readable wording per lifecycle state.
var statusCopy = map[domain.OrderStatus]struct {
	subject string
	body    string
}{
	domain.OrderStatusPacking: {
		subject: "Your order is being packed",
		body:    "Our team is packing your order %s right now.",
	},
	domain.OrderStatusOnTheWay: {
		subject: "Your order is on the way",
		body:    "Order %s has left the store and is on its way to you.",
	},
	domain.OrderStatusDelivered: {
		subject: "Your order has been delivered",
		body:    "Order %s was delivered. Enjoy!",
	},
	domain.OrderStatusCanceled: {
		subject: "Your order has been canceled",
		body:    "Order %s was canceled. Any amount paid will be refunded.",
	},
}

func (h *Handler) HandleOrderStatus(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed order status event", "error", err)
		return nil
	}

	c, ok := statusCopy[event.Status]
	if !ok {
		h.logger.Warn("no notification copy for status", "status", event.Status, "order_id", event.OrderID)
		return nil
	}

	if err := h.send(ctx, mailbox(event.UserID), c.subject, fmt.Sprintf(c.body, event.OrderID)); err != nil {
		h.logger.Error("failed to send status notification", "error", err, "order_id", event.OrderID, "status", event.Status)
		return nil
	}

	h.logger.Info("status notification sent", "order_id", event.OrderID, "status", event.Status)
	return nil
}

func (h *Handler) send(ctx context.Context, to, subject, body string) error {
	data, err := json.Marshal(map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

// User mailboxes live with the identity provider; the demo derives an
// address from the user ID.
func mailbox(userID string) string {
	return userID + "@example.com"
}

func rupees(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
