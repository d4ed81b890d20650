package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
	"github.com/brightpost/brightpost-backend/internal/repository"
	"github.com/brightpost/brightpost-backend/pkg/cache"
)

// ClientService manages tenant accounts
type ClientService struct {
	repo  repository.ClientRepository
	cache cache.Service
}

// NewClientService creates a new ClientService
func NewClientService(repo repository.ClientRepository, cacheService cache.Service) *ClientService {
	return &ClientService{repo: repo, cache: cacheService}
}

// Create registers a tenant and mints its intake token
func (s *ClientService) Create(ctx context.Context, client *domain.Client) error {
	if strings.TrimSpace(client.BusinessName) == "" {
		return fmt.Errorf("%w: business_name is required", common.ErrInvalidInput)
	}
	if client.MonthlyPostLimit <= 0 {
		client.MonthlyPostLimit = 8
	}
	client.IntakeToken = uuid.New().String()
	client.Active = true
	return s.repo.Create(client)
}

// Get returns one tenant, through the cache when it is warm
func (s *ClientService) Get(ctx context.Context, id int64) (*domain.Client, error) {
	var cached domain.Client
	if err := s.cache.GetClient(ctx, id, &cached); err == nil && cached.ID != 0 {
		return &cached, nil
	}

	client, err := s.repo.FindByID(id)
	if err != nil {
		return nil, common.ErrClientNotFound
	}
	if err := s.cache.SetClient(ctx, id, client); err != nil {
		log.Debug().Err(err).Int64("client_id", id).Msg("client cache write failed")
	}
	return client, nil
}

// Update saves tenant changes and drops the cached copy
func (s *ClientService) Update(ctx context.Context, client *domain.Client) error {
	if err := s.repo.Update(client); err != nil {
		return err
	}
	if err := s.cache.InvalidateClient(ctx, client.ID); err != nil {
		log.Debug().Err(err).Int64("client_id", client.ID).Msg("client cache invalidation failed")
	}
	return nil
}

// ListActive returns every active tenant
func (s *ClientService) ListActive(ctx context.Context) ([]*domain.Client, error) {
	return s.repo.ListActive()
}

// RotateIntakeToken mints a fresh intake token, invalidating the old URL
func (s *ClientService) RotateIntakeToken(ctx context.Context, id int64) (*domain.Client, error) {
	client, err := s.repo.FindByID(id)
	if err != nil {
		return nil, common.ErrClientNotFound
	}
	client.IntakeToken = uuid.New().String()
	if err := s.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}
