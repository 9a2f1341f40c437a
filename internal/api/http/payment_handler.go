package http

import (
	"errors"
	"net/http"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
)

// gatewayNotification accepts both webhook bodies ({"type":"payment",
// "data":{"id":"123"}}) and the older topic/id query form.
type gatewayNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (h *handler) checkout(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.svc.Payments.Checkout(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, token, nil)
}

func (h *handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body amountBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	tx, warnings, err := h.svc.Payments.RecordPayment(r.Context(), id, body.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx, warnings)
}

func (h *handler) settlePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body amountBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	tx, warnings, err := h.svc.Payments.SettlePayment(r.Context(), id, body.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx, warnings)
}

func (h *handler) markPaymentFailed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := h.svc.Payments.MarkPaymentFailed(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx, nil)
}

// paymentWebhook acknowledges every notification it does not need to act on
// so the gateway stops redelivering it. Only dependency and storage failures
// answer non-2xx.
func (h *handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var note gatewayNotification
	if err := decode(r, &note); err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	if note.Type == "" {
		note.Type = q.Get("type")
		if note.Type == "" {
			note.Type = q.Get("topic")
		}
	}
	if note.Data.ID == "" {
		note.Data.ID = q.Get("data.id")
		if note.Data.ID == "" {
			note.Data.ID = q.Get("id")
		}
	}

	if note.Type != "payment" || note.Data.ID == "" {
		logger.InfoContext(r.Context(), "Ignoring gateway notification", "type", note.Type, "action", note.Action)
		writeData(w, http.StatusOK, map[string]string{"status": "ignored"}, nil)
		return
	}

	tx, warnings, err := h.svc.Payments.HandleGatewayNotification(r.Context(), note.Data.ID)
	switch {
	case errors.Is(err, domain.ErrInvalidReference), errors.Is(err, domain.ErrRequestNotPending):
		logger.WarnContext(r.Context(), "Gateway payment not applicable", "paymentID", note.Data.ID, "error", err)
		writeData(w, http.StatusOK, map[string]string{"status": "ignored"}, nil)
		return
	case err != nil:
		writeError(w, r, err)
		return
	}

	if tx == nil {
		writeData(w, http.StatusOK, map[string]string{"status": "pending"}, warnings)
		return
	}
	writeData(w, http.StatusOK, tx, warnings)
}
