package http

import (
	"net/http"

	"asset-rental-backend/internal/domain"
)

type submitRequestBody struct {
	AssetID        int64  `json:"asset_id"`
	StartDate      string `json:"start_date"`
	DurationMonths int    `json:"duration_months"`
}

type notesBody struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

type extensionBody struct {
	AdditionalMonths int    `json:"additional_months"`
	Notes            string `json:"notes"`
}

type amountBody struct {
	Amount int64 `json:"amount"`
}

func (h *handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())

	var body submitRequestBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.AssetID <= 0 {
		writeError(w, r, badRequest("asset_id is required"))
		return
	}
	start, err := parseDate(body.StartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, warnings, err := h.svc.Rentals.SubmitRequest(r.Context(), body.AssetID, claims.UserID, start, body.DurationMonths)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, req, warnings)
}

func (h *handler) getRequest(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.svc.Rentals.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.RequesterID != claims.UserID && !claims.IsAdmin() {
		writeError(w, r, domain.ErrRequestNotFound)
		return
	}
	writeData(w, http.StatusOK, req, nil)
}

func (h *handler) cancelRequest(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, warnings, err := h.svc.Rentals.CancelRequest(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, req, warnings)
}

func (h *handler) listMyRequests(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := domain.RequestStatus(r.URL.Query().Get("status"))
	reqs, total, err := h.svc.Rentals.ListMyRequests(r.Context(), claims.UserID, status, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, reqs, page, size, total)
}

func (h *handler) listRequests(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := domain.RequestStatus(r.URL.Query().Get("status"))
	reqs, total, err := h.svc.Rentals.ListRequests(r.Context(), status, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, reqs, page, size, total)
}

func (h *handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body notesBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	tx, warnings, err := h.svc.Rentals.ApproveRequest(r.Context(), id, body.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx, warnings)
}

func (h *handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body notesBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req, warnings, err := h.svc.Rentals.RejectRequest(r.Context(), id, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, req, warnings)
}

func (h *handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := h.svc.Rentals.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tx.TenantID != claims.UserID && !claims.IsAdmin() {
		writeError(w, r, domain.ErrTransactionNotFound)
		return
	}
	writeData(w, http.StatusOK, tx, nil)
}

func (h *handler) listMyTransactions(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, total, err := h.svc.Rentals.ListMyTransactions(r.Context(), claims.UserID, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, txs, page, size, total)
}

func (h *handler) requestExtension(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body extensionBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	ext, warnings, err := h.svc.Rentals.RequestExtension(r.Context(), id, claims.UserID, body.AdditionalMonths, body.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, ext, warnings)
}

func (h *handler) confirmExtension(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	extID, err := pathID(r, "extID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, warnings, err := h.svc.Rentals.ConfirmExtension(r.Context(), id, int(extID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx, warnings)
}

func (h *handler) declineExtension(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	extID, err := pathID(r, "extID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body notesBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	tx, warnings, err := h.svc.Rentals.DeclineExtension(r.Context(), id, int(extID), body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx, warnings)
}

func (h *handler) endTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body notesBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	tx, warnings, err := h.svc.Rentals.EndTransaction(r.Context(), id, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx, warnings)
}

func (h *handler) expireOverdue(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Rentals.ExpireOverdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeData(w, http.StatusOK, map[string]any{"expired_transaction_ids": ids}, nil)
}

func (h *handler) remindExtensionWindow(w http.ResponseWriter, r *http.Request) {
	sent, err := h.svc.Rentals.RemindExtensionWindow(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"reminders_sent": sent}, nil)
}
