package http

import (
	"net/http"

	"asset-rental-backend/internal/domain"
)

func (h *handler) assetCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Reports.AssetCounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, counts, nil)
}

func (h *handler) requestCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Reports.RequestCounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, counts, nil)
}

// revenue reads an inclusive from/to range of yyyy-mm-dd dates.
func (h *handler) revenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := h.svc.Reports.Revenue(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary, nil)
}

func (h *handler) monthlyRevenue(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if year == 0 {
		writeError(w, r, domain.ErrInvalidRange.WithMessage("year is required"))
		return
	}

	months, err := h.svc.Reports.MonthlyRevenue(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, months, nil)
}

func (h *handler) occupancy(w http.ResponseWriter, r *http.Request) {
	occ, err := h.svc.Reports.Occupancy(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, occ, nil)
}

func (h *handler) expiringSoon(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 30)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := h.svc.Reports.ExpiringSoon(r.Context(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []domain.RentalTransaction{}
	}
	writeData(w, http.StatusOK, txs, nil)
}
