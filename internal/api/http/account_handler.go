package http

import (
	"net/http"

	"asset-rental-backend/internal/domain"
)

func (h *handler) listFavorites(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	favs, err := h.svc.Favorites.ListFavorites(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if favs == nil {
		favs = []domain.Favorite{}
	}
	writeData(w, http.StatusOK, favs, nil)
}

func (h *handler) addFavorite(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	var body struct {
		AssetID int64 `json:"asset_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.AssetID <= 0 {
		writeError(w, r, badRequest("asset_id is required"))
		return
	}

	if err := h.svc.Favorites.AddFavorite(r.Context(), claims.UserID, body.AssetID); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]int64{"asset_id": body.AssetID}, nil)
}

func (h *handler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	assetID, err := pathID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Favorites.RemoveFavorite(r.Context(), claims.UserID, assetID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listMyNotifications(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, total, err := h.svc.Notifications.ListUserNotifications(r.Context(), claims.UserID, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, items, page, size, total)
}

func (h *handler) countMyUnread(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	n, err := h.svc.Notifications.CountUnread(r.Context(), domain.AudienceUser, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"unread": n}, nil)
}

func (h *handler) markMyNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Notifications.MarkUserNotificationRead(r.Context(), claims.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listAdminNotifications(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, total, err := h.svc.Notifications.ListAdminNotifications(r.Context(), page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, items, page, size, total)
}

func (h *handler) countAdminUnread(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.CountUnread(r.Context(), domain.AudienceAdmin, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"unread": n}, nil)
}

func (h *handler) markAdminNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Notifications.MarkAdminNotificationRead(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
