package domain

import "time"

// Notification types surfaced to operators
const (
	NotifyRetryExhausted  = "retry_exhausted"
	NotifyPublishFailed   = "publish_failed"
	NotifyContentRejected = "content_rejected"
	NotifyPendingReview   = "pending_review"
)

// Notification is an operator-facing event record
type Notification struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Type      string    `gorm:"column:type;index" json:"type"`
	ClientID  int64     `gorm:"column:client_id;index" json:"client_id"`
	ContentID int64     `gorm:"column:content_id" json:"content_id"`
	Message   string    `gorm:"column:message;type:text" json:"message"`
	IsRead    bool      `gorm:"column:is_read;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationListResponse is the paginated notification payload
type NotificationListResponse struct {
	Items      []Notification `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}
