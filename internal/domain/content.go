package domain

import "time"

// ContentStatus is the workflow state of a content record
type ContentStatus string

const (
	StatusReceived        ContentStatus = "received"
	StatusValidated       ContentStatus = "validated"
	StatusCaptioned       ContentStatus = "captioned"
	StatusImaged          ContentStatus = "imaged"
	StatusPendingApproval ContentStatus = "pending_approval"
	StatusApproved        ContentStatus = "approved"
	StatusRejected        ContentStatus = "rejected"
	StatusRetrying        ContentStatus = "retrying"
	StatusQueued          ContentStatus = "queued_for_publish"
	StatusPublished       ContentStatus = "published"
	StatusPublishFailed   ContentStatus = "publish_failed"
	StatusLogged          ContentStatus = "logged"
	StatusInvalid         ContentStatus = "invalid"
)

// Terminal reports whether no further automatic transition is possible
func (s ContentStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusPublishFailed, StatusLogged, StatusInvalid:
		return true
	}
	return false
}

// ContentType tags what kind of post a record is
type ContentType string

const (
	TypeTip             ContentType = "tip"
	TypeOffer           ContentType = "offer"
	TypeTestimonial     ContentType = "testimonial"
	TypeAnnouncement    ContentType = "announcement"
	TypeBeforeAfter     ContentType = "before_after"
	TypeProjectShowcase ContentType = "project_showcase"
	TypeSeasonal        ContentType = "seasonal"
	TypeOther           ContentType = "other"
)

// Content represents one planned social post moving through the pipeline
type Content struct {
	ID       int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ClientID int64 `gorm:"column:client_id;index" json:"client_id"`

	// Submission inputs
	Topic       string      `gorm:"column:topic" json:"topic"`
	ContentType ContentType `gorm:"column:content_type;default:other" json:"content_type"`
	Notes       string      `gorm:"column:notes;type:text" json:"notes"`
	MediaRefs   []string    `gorm:"column:media_refs;serializer:json" json:"media_refs"`

	// Generated fields
	Caption          string            `gorm:"column:caption;type:text" json:"caption"`
	Hashtags         []string          `gorm:"column:hashtags;serializer:json" json:"hashtags"`
	CTA              string            `gorm:"column:cta" json:"cta"`
	PlatformCaptions map[string]string `gorm:"column:platform_captions;serializer:json" json:"platform_captions"`
	ImageURL         string            `gorm:"column:image_url" json:"image_url"`
	ImageRetries     int               `gorm:"column:image_retries;default:0" json:"image_retries,omitempty"`

	// Workflow fields
	Status          ContentStatus `gorm:"column:status;default:received;index" json:"status"`
	RetryCount      int           `gorm:"column:retry_count;default:0" json:"retry_count"`
	RejectionReason string        `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	ErrorMessage    string        `gorm:"column:error_message;type:text" json:"error_message,omitempty"`

	// Publish fields
	PlatformPostIDs map[string]string `gorm:"column:platform_post_ids;serializer:json" json:"platform_post_ids"`
	ExportRef       string            `gorm:"column:export_ref" json:"export_ref,omitempty"`
	ScheduledAt     *time.Time        `gorm:"column:scheduled_at" json:"scheduled_at,omitempty"`
	PublishedAt     *time.Time        `gorm:"column:published_at" json:"published_at,omitempty"`

	// Set when a record was created by the recycling sweep
	RecycledFrom *int64 `gorm:"column:recycled_from" json:"recycled_from,omitempty"`
	// Set on the source record once the sweep has re-seeded it, so it
	// never feeds the sweep twice
	RecycledAt *time.Time `gorm:"column:recycled_at" json:"recycled_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Content) TableName() string {
	return "contents"
}

// HasMedia reports whether the record carries any media reference
func (c *Content) HasMedia() bool {
	return len(c.MediaRefs) > 0
}

// FirstMediaRef returns the primary media reference, or ""
func (c *Content) FirstMediaRef() string {
	if len(c.MediaRefs) == 0 {
		return ""
	}
	return c.MediaRefs[0]
}

// FinalImageRef is the image the post actually ships with: the
// generated image when one exists, otherwise the first client upload
func (c *Content) FinalImageRef() string {
	if c.ImageURL != "" {
		return c.ImageURL
	}
	return c.FirstMediaRef()
}

// Submission is a client intake request for one new post
type Submission struct {
	Topic       string      `json:"topic"`
	ContentType ContentType `json:"content_type"`
	Notes       string      `json:"notes"`
	MediaRefs   []string    `json:"media_refs"`
}
