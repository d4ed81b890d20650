package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
)

// ClientRepository handles client data operations
type ClientRepository interface {
	Create(client *domain.Client) error
	FindByID(id int64) (*domain.Client, error)
	FindByIntakeToken(token string) (*domain.Client, error)
	Update(client *domain.Client) error
	ListActive() ([]*domain.Client, error)

	// IncrementUsage bumps posts_this_month by one if and only if the
	// client is still under its monthly limit. The check and increment
	// happen in a single UPDATE, so concurrent publishes cannot
	// double-count or slip past the quota. Returns false when the
	// quota was already exhausted.
	IncrementUsage(id int64) (bool, error)

	// ResetMonthlyUsage zeroes posts_this_month for every client
	ResetMonthlyUsage() error
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(client *domain.Client) error {
	return r.db.Create(client).Error
}

func (r *clientRepository) FindByID(id int64) (*domain.Client, error) {
	var client domain.Client
	err := r.db.Where("id = ?", id).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) FindByIntakeToken(token string) (*domain.Client, error) {
	var client domain.Client
	err := r.db.Where("intake_token = ?", token).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) Update(client *domain.Client) error {
	return r.db.Save(client).Error
}

func (r *clientRepository) ListActive() ([]*domain.Client, error) {
	var clients []*domain.Client
	err := r.db.Where("active = ?", true).Find(&clients).Error
	return clients, err
}

func (r *clientRepository) IncrementUsage(id int64) (bool, error) {
	result := r.db.Model(&domain.Client{}).
		Where("id = ? AND posts_this_month < monthly_post_limit", id).
		UpdateColumn("posts_this_month", gorm.Expr("posts_this_month + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *clientRepository) ResetMonthlyUsage() error {
	return r.db.Model(&domain.Client{}).
		Where("posts_this_month > 0").
		UpdateColumn("posts_this_month", 0).Error
}
