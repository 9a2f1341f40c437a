package service

import (
	"context"
	"fmt"
	"strconv"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/events"
	"asset-rental-backend/internal/logger"
	"asset-rental-backend/internal/utils"
)

const (
	effectFavorites   = "favorite_invalidation"
	effectNotifyAdmin = "notify_admin"
	effectNotifyUser  = "notify_user"
)

// SideEffects reacts to committed lifecycle events. A lifecycle event is
// planned into one follow-up per effect: a favorites revocation or a single
// notification. Each follow-up performs exactly one effect, so a retry never
// repeats a delivery that already succeeded.
type SideEffects struct {
	favorites FavoriteInvalidator
	notifier  NotificationDispatcher
}

func NewSideEffects(favorites FavoriteInvalidator, notifier NotificationDispatcher) *SideEffects {
	return &SideEffects{favorites: favorites, notifier: notifier}
}

func (h *SideEffects) Handle(ctx context.Context, e events.Event) ([]events.Event, error) {
	switch ev := e.(type) {
	case events.NotificationDue:
		return nil, h.deliver(ctx, ev)
	case events.FavoritesRevocation:
		return h.revokeFavorites(ctx, ev)
	}
	return plan(e), nil
}

func (h *SideEffects) deliver(ctx context.Context, n events.NotificationDue) error {
	if n.Audience == domain.AudienceAdmin {
		if err := h.notifier.NotifyAdmin(ctx, n.NotificationKind, n.Title, n.Message, n.RelatedType, n.RelatedID); err != nil {
			return &events.EffectError{Effect: effectNotifyAdmin, Err: err}
		}
		return nil
	}
	if err := h.notifier.NotifyUser(ctx, n.UserID, n.NotificationKind, n.Title, n.Message, n.RelatedType, n.RelatedID); err != nil {
		return &events.EffectError{Effect: effectNotifyUser, Err: err}
	}
	return nil
}

// revokeFavorites clears the asset from every favorites list and plans the
// notices from the users it actually removed.
func (h *SideEffects) revokeFavorites(ctx context.Context, ev events.FavoritesRevocation) ([]events.Event, error) {
	_, affected, err := h.favorites.RemoveAssetFromAllFavorites(ctx, ev.AssetID)
	if err != nil {
		return nil, &events.EffectError{Effect: effectFavorites, Err: err}
	}
	var out []events.Event
	for _, userID := range affected {
		if userID == ev.RenterID {
			continue
		}
		out = append(out, userNotice(userID, domain.NotificationFavoriteRemoved, "Favorite no longer available",
			fmt.Sprintf("%s has been rented and was removed from your favorites", ev.AssetTitle),
			domain.RelatedAsset, ev.AssetID))
	}
	return out, nil
}

func adminNotice(kind domain.NotificationKind, title, msg string, rt domain.RelatedType, id int64) events.Event {
	return events.NotificationDue{Audience: domain.AudienceAdmin, NotificationKind: kind, Title: title, Message: msg, RelatedType: rt, RelatedID: id}
}

func userNotice(userID int64, kind domain.NotificationKind, title, msg string, rt domain.RelatedType, id int64) events.Event {
	return events.NotificationDue{Audience: domain.AudienceUser, UserID: userID, NotificationKind: kind, Title: title, Message: msg, RelatedType: rt, RelatedID: id}
}

// plan maps a lifecycle event to the effects it triggers.
func plan(e events.Event) []events.Event {
	switch ev := e.(type) {
	case events.RequestSubmitted:
		return []events.Event{adminNotice(domain.NotificationRequestSubmitted, "New rental request",
			fmt.Sprintf("Request #%d for %s: %d months from %s, total %s",
				ev.RequestID, ev.AssetTitle, ev.DurationMonths, utils.FormatDate(ev.StartDate), formatAmount(ev.TotalPrice)),
			domain.RelatedRequest, ev.RequestID)}

	case events.RequestApproved:
		return []events.Event{
			events.FavoritesRevocation{AssetID: ev.AssetID, AssetTitle: ev.AssetTitle, RenterID: ev.RequesterID},
			userNotice(ev.RequesterID, domain.NotificationRequestApproved, "Rental request approved",
				fmt.Sprintf("Your request #%d for %s was approved", ev.RequestID, ev.AssetTitle),
				domain.RelatedTransaction, ev.TransactionID),
		}

	case events.RequestRejected:
		msg := fmt.Sprintf("Your request #%d was rejected", ev.RequestID)
		if ev.Reason != "" {
			msg += ": " + ev.Reason
		}
		return []events.Event{userNotice(ev.RequesterID, domain.NotificationRequestRejected, "Rental request rejected", msg,
			domain.RelatedRequest, ev.RequestID)}

	case events.RequestCancelled:
		return []events.Event{adminNotice(domain.NotificationRequestCancelled, "Rental request cancelled",
			fmt.Sprintf("Request #%d was cancelled by the tenant", ev.RequestID),
			domain.RelatedRequest, ev.RequestID)}

	case events.ExtensionRequested:
		return []events.Event{adminNotice(domain.NotificationExtensionRequested, "Extension requested",
			fmt.Sprintf("Transaction #%d asks for %d more months, until %s",
				ev.TransactionID, ev.AdditionalMonths, utils.FormatDate(ev.NewEndDate)),
			domain.RelatedTransaction, ev.TransactionID)}

	case events.ExtensionApplied:
		return []events.Event{userNotice(ev.TenantID, domain.NotificationExtensionApplied, "Extension confirmed",
			fmt.Sprintf("Your rental now ends on %s. Outstanding balance: %s",
				utils.FormatDate(ev.NewEndDate), formatAmount(ev.RemainingAmount)),
			domain.RelatedTransaction, ev.TransactionID)}

	case events.ExtensionDeclined:
		msg := "Your extension request was declined"
		if ev.Reason != "" {
			msg += ": " + ev.Reason
		}
		return []events.Event{userNotice(ev.TenantID, domain.NotificationExtensionDeclined, "Extension declined", msg,
			domain.RelatedTransaction, ev.TransactionID)}

	case events.ExtensionWindowOpen:
		return []events.Event{userNotice(ev.TenantID, domain.NotificationExtensionWindow, "Your rental is ending soon",
			fmt.Sprintf("Your rental ends on %s (%d days). You can request an extension now",
				utils.FormatDate(ev.CurrentEndDate), ev.DaysRemaining),
			domain.RelatedTransaction, ev.TransactionID)}

	case events.TransactionEnded:
		msg := fmt.Sprintf("Transaction #%d ended on %s", ev.TransactionID, utils.FormatDate(ev.EndDate))
		if ev.Reason != "" {
			msg += ". Reason: " + ev.Reason
		}
		return []events.Event{
			adminNotice(domain.NotificationTransactionEnded, "Rental ended", msg, domain.RelatedTransaction, ev.TransactionID),
			userNotice(ev.TenantID, domain.NotificationTransactionEnded, "Rental ended", msg, domain.RelatedTransaction, ev.TransactionID),
		}

	case events.TransactionExpired:
		return []events.Event{
			adminNotice(domain.NotificationTransactionExpired, "Rental expired",
				fmt.Sprintf("Transaction #%d expired on %s and the asset is available again",
					ev.TransactionID, utils.FormatDate(ev.EndDate)),
				domain.RelatedTransaction, ev.TransactionID),
			userNotice(ev.TenantID, domain.NotificationTransactionExpired, "Rental expired",
				fmt.Sprintf("Your rental ended on %s", utils.FormatDate(ev.EndDate)),
				domain.RelatedTransaction, ev.TransactionID),
		}

	case events.PaymentReceived:
		msg := fmt.Sprintf("Payment of %s received for transaction #%d, remaining %s",
			formatAmount(ev.Amount), ev.TransactionID, formatAmount(ev.RemainingAmount))
		return []events.Event{
			userNotice(ev.TenantID, domain.NotificationPaymentReceived, "Payment received", msg, domain.RelatedTransaction, ev.TransactionID),
			adminNotice(domain.NotificationPaymentReceived, "Payment received", msg, domain.RelatedTransaction, ev.TransactionID),
		}
	}

	logger.Warn("No side effects registered for event", "event", e.Kind())
	return nil
}

// formatAmount renders 51000000 as "51,000,000".
func formatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := false
	if v < 0 {
		neg, s = true, s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3+1)
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
