package http

import (
	"net/http"

	"asset-rental-backend/internal/domain"
)

type assetBody struct {
	Type         domain.AssetType   `json:"type"`
	Title        string             `json:"title"`
	Address      string             `json:"address"`
	City         string             `json:"city"`
	Province     string             `json:"province"`
	LandArea     float64            `json:"land_area_m2"`
	BuildingArea float64            `json:"building_area_m2"`
	MonthlyPrice int64              `json:"monthly_price"`
	Status       domain.AssetStatus `json:"status"`
}

func (b assetBody) asset() *domain.Asset {
	return &domain.Asset{
		Type:         b.Type,
		Title:        b.Title,
		Address:      b.Address,
		City:         b.City,
		Province:     b.Province,
		LandArea:     b.LandArea,
		BuildingArea: b.BuildingArea,
		MonthlyPrice: b.MonthlyPrice,
		Status:       b.Status,
	}
}

func (h *handler) listAssets(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	maxPrice, err := queryInt(r, "max_price", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := domain.AssetFilter{
		Status:   domain.AssetStatus(q.Get("status")),
		Type:     domain.AssetType(q.Get("type")),
		City:     q.Get("city"),
		MaxPrice: int64(maxPrice),
		Page:     page,
		PageSize: size,
	}

	assets, total, err := h.svc.Assets.ListAssets(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, assets, page, size, total)
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	asset, err := h.svc.Assets.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, asset, nil)
}

func (h *handler) createAsset(w http.ResponseWriter, r *http.Request) {
	var body assetBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	asset := body.asset()
	if err := h.svc.Assets.CreateAsset(r.Context(), asset); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, asset, nil)
}

func (h *handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body assetBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	asset := body.asset()
	asset.ID = id
	if err := h.svc.Assets.UpdateAsset(r.Context(), asset); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, asset, nil)
}

func (h *handler) setAssetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Status domain.AssetStatus `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	asset, err := h.svc.Assets.SetAssetStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, asset, nil)
}

func (h *handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Assets.DeleteAsset(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) suggestPrice(w http.ResponseWriter, r *http.Request) {
	var features domain.AssetFeatures
	if err := decode(r, &features); err != nil {
		writeError(w, r, err)
		return
	}

	price, err := h.svc.Assets.SuggestPrice(r.Context(), features)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"monthly_price": price}, nil)
}
