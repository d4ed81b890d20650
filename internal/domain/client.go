package domain

import "time"

// Timeout policies for content stuck in pending_approval
const (
	TimeoutAutoApprove = "auto_approve"
	TimeoutAutoReject  = "auto_reject"
)

// Client represents one tenant business being served
type Client struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`

	// Basic info
	BusinessName string `gorm:"column:business_name;index" json:"business_name"`
	Industry     string `gorm:"column:industry" json:"industry"`
	City         string `gorm:"column:city" json:"city"`
	State        string `gorm:"column:state" json:"state"`
	ServiceArea  string `gorm:"column:service_area" json:"service_area"`
	ContactEmail string `gorm:"column:contact_email" json:"contact_email"`

	// Unique token for the client's intake URL
	IntakeToken string `gorm:"column:intake_token;uniqueIndex" json:"intake_token"`

	// Plan
	MonthlyPostLimit int `gorm:"column:monthly_post_limit;default:8" json:"monthly_post_limit"`
	PostsThisMonth   int `gorm:"column:posts_this_month;default:0" json:"posts_this_month"`

	// Settings
	AutoPost         bool     `gorm:"column:auto_post;default:false" json:"auto_post"`
	BrandVoice       string   `gorm:"column:brand_voice;type:text" json:"brand_voice"`
	TonePreference   string   `gorm:"column:tone_preference;default:professional" json:"tone_preference"`
	OffLimitsTopics  []string `gorm:"column:off_limits_topics;serializer:json" json:"off_limits_topics"`
	ReuseMedia       bool     `gorm:"column:reuse_media;default:true" json:"reuse_media"`
	EnabledPlatforms []string `gorm:"column:enabled_platforms;serializer:json" json:"enabled_platforms"`
	ImageTemplateID  string   `gorm:"column:image_template_id" json:"image_template_id"`

	// TimeoutPolicy decides what happens to content left unreviewed
	// past the approval timeout: auto_approve or auto_reject
	TimeoutPolicy string `gorm:"column:timeout_policy;default:auto_reject" json:"timeout_policy"`

	// Scheduler workspace overrides. When set they take precedence
	// over the process-wide defaults, isolating this client's posts
	// to its own workspace and accounts.
	WorkspaceID     string `gorm:"column:workspace_id" json:"workspace_id"`
	SchedulerAPIKey string `gorm:"column:scheduler_api_key" json:"-"`

	// AccountIDs maps platform name to the social account id used for
	// it, e.g. {"instagram": "64f..."}
	AccountIDs map[string]string `gorm:"column:account_ids;serializer:json" json:"account_ids"`

	Active bool `gorm:"column:active;default:true" json:"active"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}

// OverQuota reports whether the client has used up its monthly posts
func (c *Client) OverQuota() bool {
	return c.PostsThisMonth >= c.MonthlyPostLimit
}

// HasPlatform reports whether the platform is enabled for this client
func (c *Client) HasPlatform(platform string) bool {
	for _, p := range c.EnabledPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}

// Location returns the most specific location string available
func (c *Client) Location() string {
	if c.ServiceArea != "" {
		return c.ServiceArea
	}
	if c.City != "" && c.State != "" {
		return c.City + ", " + c.State
	}
	return c.City
}
