package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
)

// ContentRepository handles content data operations
type ContentRepository interface {
	Create(content *domain.Content) error
	FindByID(id int64) (*domain.Content, error)
	Save(content *domain.Content) error
	ListByClient(clientID int64, page, limit int) ([]*domain.Content, int64, error)

	// MediaUsage returns, for one client, how many records reference
	// each media ref. Derived on demand, never cached.
	MediaUsage(clientID int64) (map[string]int, error)

	// FindRecyclable returns published records older than cutoff,
	// oldest first, that the sweep has not re-seeded yet
	FindRecyclable(cutoff time.Time, limit int) ([]*domain.Content, error)

	// FindPendingSince returns records sitting in pending_approval
	// since before cutoff
	FindPendingSince(cutoff time.Time) ([]*domain.Content, error)
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new ContentRepository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(content *domain.Content) error {
	return r.db.Create(content).Error
}

func (r *contentRepository) FindByID(id int64) (*domain.Content, error) {
	var content domain.Content
	err := r.db.Where("id = ?", id).First(&content).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) Save(content *domain.Content) error {
	return r.db.Save(content).Error
}

func (r *contentRepository) ListByClient(clientID int64, page, limit int) ([]*domain.Content, int64, error) {
	var contents []*domain.Content
	var total int64

	if err := r.db.Model(&domain.Content{}).
		Where("client_id = ?", clientID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.Where("client_id = ?", clientID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&contents).Error; err != nil {
		return nil, 0, err
	}

	return contents, total, nil
}

func (r *contentRepository) MediaUsage(clientID int64) (map[string]int, error) {
	var contents []domain.Content
	if err := r.db.Select("media_refs").
		Where("client_id = ?", clientID).
		Find(&contents).Error; err != nil {
		return nil, err
	}

	usage := make(map[string]int)
	for _, c := range contents {
		for _, ref := range c.MediaRefs {
			usage[ref]++
		}
	}
	return usage, nil
}

func (r *contentRepository) FindRecyclable(cutoff time.Time, limit int) ([]*domain.Content, error) {
	var contents []*domain.Content
	err := r.db.Where("status IN ? AND published_at <= ? AND recycled_at IS NULL",
		[]domain.ContentStatus{domain.StatusPublished, domain.StatusLogged}, cutoff).
		Order("published_at ASC").
		Limit(limit).
		Find(&contents).Error
	return contents, err
}

func (r *contentRepository) FindPendingSince(cutoff time.Time) ([]*domain.Content, error) {
	var contents []*domain.Content
	err := r.db.Where("status = ? AND updated_at <= ?", domain.StatusPendingApproval, cutoff).
		Find(&contents).Error
	return contents, err
}
