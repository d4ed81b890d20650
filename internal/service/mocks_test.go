package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/brightpost/brightpost-backend/internal/domain"
)

type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) Create(content *domain.Content) error {
	args := m.Called(content)
	return args.Error(0)
}

func (m *MockContentRepository) FindByID(id int64) (*domain.Content, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentRepository) Save(content *domain.Content) error {
	args := m.Called(content)
	return args.Error(0)
}

func (m *MockContentRepository) ListByClient(clientID int64, page, limit int) ([]*domain.Content, int64, error) {
	args := m.Called(clientID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Content), args.Get(1).(int64), args.Error(2)
}

func (m *MockContentRepository) MediaUsage(clientID int64) (map[string]int, error) {
	args := m.Called(clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockContentRepository) FindRecyclable(cutoff time.Time, limit int) ([]*domain.Content, error) {
	args := m.Called(cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Content), args.Error(1)
}

func (m *MockContentRepository) FindPendingSince(cutoff time.Time) ([]*domain.Content, error) {
	args := m.Called(cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Content), args.Error(1)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) Create(client *domain.Client) error {
	args := m.Called(client)
	return args.Error(0)
}

func (m *MockClientRepository) FindByID(id int64) (*domain.Client, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientRepository) FindByIntakeToken(token string) (*domain.Client, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientRepository) Update(client *domain.Client) error {
	args := m.Called(client)
	return args.Error(0)
}

func (m *MockClientRepository) ListActive() ([]*domain.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Client), args.Error(1)
}

func (m *MockClientRepository) IncrementUsage(id int64) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRepository) ResetMonthlyUsage() error {
	args := m.Called()
	return args.Error(0)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(notification *domain.Notification) error {
	args := m.Called(notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetList(offset, limit int) ([]domain.Notification, int64, error) {
	args := m.Called(offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) MarkAsRead(id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) GenerateCaption(ctx context.Context, req CaptionRequest) (*CaptionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CaptionResult), args.Error(1)
}

func (m *MockTextGenerator) InferTopic(ctx context.Context, imageRef string, client *domain.Client) (string, error) {
	args := m.Called(ctx, imageRef, client)
	return args.String(0), args.Error(1)
}

type MockImageGenerator struct {
	mock.Mock
}

func (m *MockImageGenerator) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockSchedulerClient struct {
	mock.Mock
}

func (m *MockSchedulerClient) ListAccountIDs(ctx context.Context, creds SchedulerCredentials) ([]string, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSchedulerClient) Schedule(ctx context.Context, creds SchedulerCredentials, req ScheduleRequest) (string, error) {
	args := m.Called(ctx, creds, req)
	return args.String(0), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, contentID int64) error {
	args := m.Called(ctx, contentID)
	return args.Error(0)
}

// stubCache satisfies cache.Service for tests without a Redis
type stubCache struct {
	lockHeld bool // simulates a concurrent dispatch holding the lock
	acquired []int64
	released []int64
}

func (s *stubCache) Get(ctx context.Context, key string, dest interface{}) error { return nil }
func (s *stubCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}
func (s *stubCache) Delete(ctx context.Context, keys ...string) error { return nil }
func (s *stubCache) GetClient(ctx context.Context, clientID int64, dest interface{}) error {
	return nil
}
func (s *stubCache) SetClient(ctx context.Context, clientID int64, data interface{}) error {
	return nil
}
func (s *stubCache) InvalidateClient(ctx context.Context, clientID int64) error { return nil }
func (s *stubCache) AcquireDispatchLock(ctx context.Context, contentID int64) (bool, error) {
	if s.lockHeld {
		return false, nil
	}
	s.acquired = append(s.acquired, contentID)
	return true, nil
}
func (s *stubCache) ReleaseDispatchLock(ctx context.Context, contentID int64) error {
	s.released = append(s.released, contentID)
	return nil
}
func (s *stubCache) IsAvailable() bool              { return true }
func (s *stubCache) Ping(ctx context.Context) error { return nil }

type MockOutcomeLogger struct {
	mock.Mock
}

func (m *MockOutcomeLogger) Record(ctx context.Context, entry domain.PublishLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
