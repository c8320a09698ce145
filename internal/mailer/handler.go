package mailer

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
)

// Message is the body accepted by POST /send.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Handler accepts outgoing mail and records it in the log. No SMTP relay is
// attached.
type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	addr, err := mail.ParseAddress(msg.To)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	if strings.TrimSpace(msg.Subject) == "" {
		h.writeError(w, http.StatusBadRequest, "subject is required")
		return
	}

	h.logger.Info("email sent", "to", addr.Address, "subject", msg.Subject, "body_bytes", len(msg.Body))
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
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
