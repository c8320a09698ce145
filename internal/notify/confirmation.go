package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

const defaultMaxRetries = 4

type email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ConfirmationHandler turns order.created events into confirmation mails.
type ConfirmationHandler struct {
	mailerURL  string
	httpClient *http.Client
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

func NewConfirmationHandler(mailerURL string, client *http.Client, logger *slog.Logger) *ConfirmationHandler {
	return &ConfirmationHandler{
		mailerURL:  strings.TrimRight(mailerURL, "/"),
		httpClient: client,
		logger:     logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return backoff.WithMaxRetries(b, defaultMaxRetries)
		},
	}
}

// Handle sends one confirmation. Undecodable events and events without a
// recipient are dropped; mailer failures are retried and then returned.
func (h *ConfirmationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping undecodable order event", "error", err)
		return nil
	}

	if event.Email == "" {
		h.logger.Warn("dropping order event without recipient", "order_id", event.OrderID)
		return nil
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "user_id", event.UserID)

	msg := confirmationEmail(event)
	notify := func(err error, wait time.Duration) {
		h.logger.Warn("mailer call failed, retrying", "error", err, "order_id", event.OrderID, "wait", wait)
	}

	err := backoff.RetryNotify(func() error {
		return h.send(ctx, msg)
	}, backoff.WithContext(h.newBackOff(), ctx), notify)
	if err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation for order %d: %w", event.OrderID, err)
	}

	h.logger.Info("confirmation email sent", "order_id", event.OrderID)
	return nil
}

func (h *ConfirmationHandler) send(ctx context.Context, msg email) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.mailerURL+"/send", bytes.NewReader(data))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(fmt.Errorf("mailer rejected message with status %d", resp.StatusCode))
	default:
		return fmt.Errorf("mailer returned status %d", resp.StatusCode)
	}
}

func confirmationEmail(event domain.OrderCreatedEvent) email {
	var body strings.Builder
	greeting := event.Name
	if greeting == "" {
		greeting = "cliente"
	}
	fmt.Fprintf(&body, "Olá, %s!\n\nRecebemos o seu pedido #%d.\n\n", greeting, event.OrderID)
	for _, item := range event.Items {
		label := item.Name
		if label == "" {
			label = fmt.Sprintf("produto #%d", item.ProductID)
		}
		fmt.Fprintf(&body, "- %d x %s: R$ %s\n", item.Quantity, label, item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&body, "\nTotal: R$ %s\n", event.TotalPrice.StringFixed(2))

	return email{
		To:      event.Email,
		Subject: fmt.Sprintf("Patas: pedido #%d recebido", event.OrderID),
		Body:    body.String(),
	}
}
