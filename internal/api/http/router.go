// Package http exposes the rental lifecycle as a JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"asset-rental-backend/internal/security"
	"asset-rental-backend/internal/service"
)

type Services struct {
	Rentals       service.RentalService
	Payments      service.PaymentService
	Favorites     service.FavoriteService
	Notifications service.NotificationService
	Assets        service.AssetService
	Reports       service.ReportService
}

type RouterOptions struct {
	Tokens         security.TokenManager
	WebhookSecret  string
	RequestTimeout time.Duration
}

type handler struct {
	svc Services
}

func NewRouter(svc Services, opts RouterOptions) *mux.Router {
	h := &handler{svc: svc}
	auth := &authenticator{tokens: opts.Tokens}

	router := mux.NewRouter()
	router.Use(requestContext(opts.RequestTimeout), cors)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, "ROUTE_NOT_FOUND", "route not found")
	})

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/assets", h.listAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}", h.getAsset).Methods(http.MethodGet)

	webhook := api.PathPrefix("/payments").Subrouter()
	webhook.Use(sharedSecret(opts.WebhookSecret))
	webhook.HandleFunc("/webhook", h.paymentWebhook).Methods(http.MethodPost)

	tenant := api.NewRoute().Subrouter()
	tenant.Use(auth.required)
	tenant.HandleFunc("/rentals", h.submitRequest).Methods(http.MethodPost)
	tenant.HandleFunc("/rentals/{id}", h.getRequest).Methods(http.MethodGet)
	tenant.HandleFunc("/rentals/{id}/cancel", h.cancelRequest).Methods(http.MethodPost)
	tenant.HandleFunc("/transactions/{id}", h.getTransaction).Methods(http.MethodGet)
	tenant.HandleFunc("/transactions/{id}/extensions", h.requestExtension).Methods(http.MethodPost)
	tenant.HandleFunc("/transactions/{id}/checkout", h.checkout).Methods(http.MethodPost)
	tenant.HandleFunc("/me/rentals", h.listMyRequests).Methods(http.MethodGet)
	tenant.HandleFunc("/me/transactions", h.listMyTransactions).Methods(http.MethodGet)
	tenant.HandleFunc("/me/favorites", h.listFavorites).Methods(http.MethodGet)
	tenant.HandleFunc("/me/favorites", h.addFavorite).Methods(http.MethodPost)
	tenant.HandleFunc("/me/favorites/{assetID}", h.removeFavorite).Methods(http.MethodDelete)
	tenant.HandleFunc("/me/notifications", h.listMyNotifications).Methods(http.MethodGet)
	tenant.HandleFunc("/me/notifications/unread", h.countMyUnread).Methods(http.MethodGet)
	tenant.HandleFunc("/me/notifications/{id}/read", h.markMyNotificationRead).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.required, adminOnly)
	admin.HandleFunc("/rentals", h.listRequests).Methods(http.MethodGet)
	admin.HandleFunc("/rentals/{id}/approve", h.approveRequest).Methods(http.MethodPost)
	admin.HandleFunc("/rentals/{id}/reject", h.rejectRequest).Methods(http.MethodPost)
	admin.HandleFunc("/rentals/{id}/settle", h.settlePayment).Methods(http.MethodPost)
	admin.HandleFunc("/transactions/expire", h.expireOverdue).Methods(http.MethodPost)
	admin.HandleFunc("/transactions/remind", h.remindExtensionWindow).Methods(http.MethodPost)
	admin.HandleFunc("/transactions/{id}/end", h.endTransaction).Methods(http.MethodPost)
	admin.HandleFunc("/transactions/{id}/payments", h.recordPayment).Methods(http.MethodPost)
	admin.HandleFunc("/transactions/{id}/payment-failed", h.markPaymentFailed).Methods(http.MethodPost)
	admin.HandleFunc("/transactions/{id}/extensions/{extID}/confirm", h.confirmExtension).Methods(http.MethodPost)
	admin.HandleFunc("/transactions/{id}/extensions/{extID}/decline", h.declineExtension).Methods(http.MethodPost)
	admin.HandleFunc("/assets", h.createAsset).Methods(http.MethodPost)
	admin.HandleFunc("/assets/price-suggestion", h.suggestPrice).Methods(http.MethodPost)
	admin.HandleFunc("/assets/{id}", h.updateAsset).Methods(http.MethodPut)
	admin.HandleFunc("/assets/{id}", h.deleteAsset).Methods(http.MethodDelete)
	admin.HandleFunc("/assets/{id}/status", h.setAssetStatus).Methods(http.MethodPut)
	admin.HandleFunc("/notifications", h.listAdminNotifications).Methods(http.MethodGet)
	admin.HandleFunc("/notifications/unread", h.countAdminUnread).Methods(http.MethodGet)
	admin.HandleFunc("/notifications/{id}/read", h.markAdminNotificationRead).Methods(http.MethodPost)
	admin.HandleFunc("/reports/assets", h.assetCounts).Methods(http.MethodGet)
	admin.HandleFunc("/reports/requests", h.requestCounts).Methods(http.MethodGet)
	admin.HandleFunc("/reports/revenue", h.revenue).Methods(http.MethodGet)
	admin.HandleFunc("/reports/monthly-revenue", h.monthlyRevenue).Methods(http.MethodGet)
	admin.HandleFunc("/reports/occupancy", h.occupancy).Methods(http.MethodGet)
	admin.HandleFunc("/reports/expiring", h.expiringSoon).Methods(http.MethodGet)

	return router
}
