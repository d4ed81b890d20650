package service

import (
	"fmt"
	"math"

	"github.com/brightpost/brightpost-backend/internal/domain"
	"github.com/brightpost/brightpost-backend/internal/repository"
	pkglogger "github.com/brightpost/brightpost-backend/pkg/logger"
)

// Notifier records operator-facing events. Notification writes are
// best-effort: a failed insert is logged and swallowed, it never
// interrupts the pipeline.
type Notifier struct {
	repo repository.NotificationRepository
}

// NewNotifier creates a new Notifier
func NewNotifier(repo repository.NotificationRepository) *Notifier {
	return &Notifier{repo: repo}
}

// RetryExhausted reports that a record ran out of generation retries
func (n *Notifier) RetryExhausted(client *domain.Client, content *domain.Content, cause error) {
	msg := fmt.Sprintf("content %d for %s exhausted its retry budget: %v",
		content.ID, client.BusinessName, cause)
	n.record(domain.NotifyRetryExhausted, client.ID, content.ID, msg)
}

// PublishFailed reports a terminal publish failure
func (n *Notifier) PublishFailed(client *domain.Client, content *domain.Content, cause error) {
	msg := fmt.Sprintf("publishing content %d for %s failed: %v",
		content.ID, client.BusinessName, cause)
	n.record(domain.NotifyPublishFailed, client.ID, content.ID, msg)
}

// ContentRejected reports that a record was terminally rejected
func (n *Notifier) ContentRejected(client *domain.Client, content *domain.Content) {
	msg := fmt.Sprintf("content %d for %s rejected after %d regeneration attempts (last reason: %s)",
		content.ID, client.BusinessName, content.RetryCount, content.RejectionReason)
	n.record(domain.NotifyContentRejected, client.ID, content.ID, msg)
}

// PendingReview reports that a record is waiting for reviewer action
func (n *Notifier) PendingReview(client *domain.Client, content *domain.Content) {
	msg := fmt.Sprintf("content %d for %s is ready for review", content.ID, client.BusinessName)
	n.record(domain.NotifyPendingReview, client.ID, content.ID, msg)
}

func (n *Notifier) record(typ string, clientID, contentID int64, msg string) {
	log := pkglogger.WithContent(contentID, clientID)
	log.Warn().Str("type", typ).Msg(msg)

	if n.repo == nil {
		return
	}
	err := n.repo.Create(&domain.Notification{
		Type:      typ,
		ClientID:  clientID,
		ContentID: contentID,
		Message:   msg,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to persist notification")
	}
}

// NotificationService serves the operator notification feed
type NotificationService struct {
	repo repository.NotificationRepository
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// GetList returns paginated notifications, newest first
func (s *NotificationService) GetList(page, limit int) (*domain.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit
	notifications, total, err := s.repo.GetList(offset, limit)
	if err != nil {
		return nil, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return &domain.NotificationListResponse{
		Items:      notifications,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// MarkAsRead marks a notification as handled
func (s *NotificationService) MarkAsRead(id int64) error {
	return s.repo.MarkAsRead(id)
}
