package service

import (
	"context"
	"fmt"
	"strconv"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
	"asset-rental-backend/internal/repository"
)

const adminTopic = "admins"

func userTopic(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

// NotificationChannels are delivered after the notification record is
// stored. Both are optional and best-effort.
type NotificationChannels struct {
	Push       PushSender
	Email      EmailSender
	AdminEmail string
}

type notificationDispatcher struct {
	repo     repository.NotificationRepository
	channels NotificationChannels
}

func NewNotificationDispatcher(repo repository.NotificationRepository, channels NotificationChannels) NotificationDispatcher {
	return &notificationDispatcher{repo: repo, channels: channels}
}

func (d *notificationDispatcher) NotifyAdmin(ctx context.Context, kind domain.NotificationKind, title, message string, relatedType domain.RelatedType, relatedID int64) error {
	n := &domain.Notification{
		Audience:    domain.AudienceAdmin,
		Kind:        kind,
		Title:       title,
		Message:     message,
		RelatedType: relatedType,
		RelatedID:   relatedID,
	}
	if err := d.record(ctx, n); err != nil {
		return err
	}

	d.push(ctx, adminTopic, n)
	if d.channels.Email != nil && d.channels.AdminEmail != "" {
		logger.ExternalServiceCall("email", "SendEmail", "to", d.channels.AdminEmail, "kind", kind)
		err := d.channels.Email.SendEmail(ctx, d.channels.AdminEmail, title, message, "<p>"+message+"</p>")
		logger.ExternalServiceResult("email", "SendEmail", err, "notificationID", n.ID)
	}
	return nil
}

func (d *notificationDispatcher) NotifyUser(ctx context.Context, userID int64, kind domain.NotificationKind, title, message string, relatedType domain.RelatedType, relatedID int64) error {
	n := &domain.Notification{
		Audience:    domain.AudienceUser,
		UserID:      &userID,
		Kind:        kind,
		Title:       title,
		Message:     message,
		RelatedType: relatedType,
		RelatedID:   relatedID,
	}
	if err := d.record(ctx, n); err != nil {
		return err
	}

	d.push(ctx, userTopic(userID), n)
	return nil
}

func (d *notificationDispatcher) record(ctx context.Context, n *domain.Notification) error {
	if err := d.repo.Create(ctx, n); err != nil {
		logger.ErrorContext(ctx, "Failed to record notification", "audience", n.Audience, "kind", n.Kind, "error", err)
		return domain.ErrDependencyFailure.WithMessage(fmt.Sprintf("record %s notification: %v", n.Audience, err))
	}
	return nil
}

func (d *notificationDispatcher) push(ctx context.Context, topic string, n *domain.Notification) {
	if d.channels.Push == nil {
		return
	}
	data := map[string]string{
		"notification_id": strconv.FormatInt(n.ID, 10),
		"kind":            string(n.Kind),
		"related_type":    string(n.RelatedType),
		"related_id":      strconv.FormatInt(n.RelatedID, 10),
	}
	logger.ExternalServiceCall("push", "SendToTopic", "topic", topic)
	err := d.channels.Push.SendToTopic(ctx, topic, n.Title, n.Message, data)
	logger.ExternalServiceResult("push", "SendToTopic", err, "topic", topic)
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) ListUserNotifications(ctx context.Context, userID int64, page, pageSize int32) ([]domain.Notification, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.repo.ListForUser(ctx, userID, pageSize, (page-1)*pageSize)
}

func (s *notificationService) ListAdminNotifications(ctx context.Context, page, pageSize int32) ([]domain.Notification, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.repo.ListForAdmin(ctx, pageSize, (page-1)*pageSize)
}

func (s *notificationService) MarkUserNotificationRead(ctx context.Context, userID, notificationID int64) error {
	return s.repo.MarkAsRead(ctx, notificationID, domain.AudienceUser, userID)
}

func (s *notificationService) MarkAdminNotificationRead(ctx context.Context, notificationID int64) error {
	return s.repo.MarkAsRead(ctx, notificationID, domain.AudienceAdmin, 0)
}

func (s *notificationService) CountUnread(ctx context.Context, audience domain.Audience, userID int64) (int64, error) {
	return s.repo.CountUnread(ctx, audience, userID)
}
