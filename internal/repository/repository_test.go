package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// sqlite gives every pooled connection its own in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.Client{}, &domain.Content{}, &domain.Notification{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func seedClient(t *testing.T, db *gorm.DB) *domain.Client {
	t.Helper()
	client := &domain.Client{
		BusinessName:     "GreenScape Pros",
		Industry:         "landscaping",
		IntakeToken:      "tok-1",
		MonthlyPostLimit: 3,
		EnabledPlatforms: []string{"instagram"},
		Active:           true,
	}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func TestClientRepository_FindByIntakeToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClientRepository(db)
	seeded := seedClient(t, db)

	found, err := repo.FindByIntakeToken("tok-1")
	assert.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByIntakeToken("nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClientRepository_IncrementUsage_StopsAtLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClientRepository(db)
	client := seedClient(t, db)

	for i := 0; i < 3; i++ {
		ok, err := repo.IncrementUsage(client.ID)
		assert.NoError(t, err)
		assert.True(t, ok)
	}

	// Fourth post of a three-post month is refused
	ok, err := repo.IncrementUsage(client.ID)
	assert.NoError(t, err)
	assert.False(t, ok)

	updated, err := repo.FindByID(client.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, updated.PostsThisMonth)
}

func TestClientRepository_IncrementUsage_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClientRepository(db)
	client := seedClient(t, db)

	var wg sync.WaitGroup
	granted := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.IncrementUsage(client.ID)
			if err == nil && ok {
				granted <- true
			}
		}()
	}
	wg.Wait()
	close(granted)

	assert.Len(t, granted, 3, "exactly the monthly limit is granted")
}

func TestClientRepository_ResetMonthlyUsage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClientRepository(db)
	client := seedClient(t, db)

	_, _ = repo.IncrementUsage(client.ID)
	_, _ = repo.IncrementUsage(client.ID)

	assert.NoError(t, repo.ResetMonthlyUsage())

	updated, _ := repo.FindByID(client.ID)
	assert.Equal(t, 0, updated.PostsThisMonth)
}

func TestContentRepository_MediaUsage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	client := seedClient(t, db)
	other := &domain.Client{BusinessName: "Other", IntakeToken: "tok-2", Active: true}
	assert.NoError(t, db.Create(other).Error)

	for _, refs := range [][]string{
		{"a.jpg", "b.jpg"},
		{"a.jpg"},
		{"a.jpg", "c.jpg"},
	} {
		assert.NoError(t, repo.Create(&domain.Content{ClientID: client.ID, MediaRefs: refs}))
	}
	// Another tenant's usage never bleeds in
	assert.NoError(t, repo.Create(&domain.Content{ClientID: other.ID, MediaRefs: []string{"a.jpg"}}))

	usage, err := repo.MediaUsage(client.ID)
	assert.NoError(t, err)
	assert.Equal(t, map[string]int{"a.jpg": 3, "b.jpg": 1, "c.jpg": 1}, usage)
}

func TestContentRepository_FindRecyclable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	client := seedClient(t, db)

	old := time.Now().Add(-40 * 24 * time.Hour)
	older := time.Now().Add(-45 * 24 * time.Hour)
	recent := time.Now().Add(-2 * 24 * time.Hour)
	sweptAt := time.Now().Add(-24 * time.Hour)

	aged := &domain.Content{ClientID: client.ID, Status: domain.StatusLogged, PublishedAt: &older}
	fresh := &domain.Content{ClientID: client.ID, Status: domain.StatusLogged, PublishedAt: &recent}
	failed := &domain.Content{ClientID: client.ID, Status: domain.StatusPublishFailed, PublishedAt: &old}
	swept := &domain.Content{ClientID: client.ID, Status: domain.StatusLogged, PublishedAt: &old, RecycledAt: &sweptAt}
	// Published with one platform down; still worth recycling
	partial := &domain.Content{ClientID: client.ID, Status: domain.StatusLogged, PublishedAt: &old, ErrorMessage: "facebook: 503"}
	for _, c := range []*domain.Content{aged, fresh, failed, swept, partial} {
		assert.NoError(t, repo.Create(c))
	}

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	got, err := repo.FindRecyclable(cutoff, 50)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, aged.ID, got[0].ID)
	assert.Equal(t, partial.ID, got[1].ID)
}

func TestContentRepository_FindPendingSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	client := seedClient(t, db)

	stale := &domain.Content{ClientID: client.ID, Status: domain.StatusPendingApproval}
	assert.NoError(t, repo.Create(stale))
	// Backdate past the review window
	assert.NoError(t, db.Model(stale).UpdateColumn("updated_at", time.Now().Add(-80*time.Hour)).Error)

	current := &domain.Content{ClientID: client.ID, Status: domain.StatusPendingApproval}
	assert.NoError(t, repo.Create(current))

	got, err := repo.FindPendingSince(time.Now().Add(-72 * time.Hour))
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)
}

func TestContentRepository_ListByClient(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	client := seedClient(t, db)

	for i := 0; i < 5; i++ {
		assert.NoError(t, repo.Create(&domain.Content{ClientID: client.ID, Topic: "t"}))
	}

	items, total, err := repo.ListByClient(client.ID, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, items, 2)
}

func TestNotificationRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)

	assert.NoError(t, repo.Create(&domain.Notification{Type: domain.NotifyPublishFailed, ClientID: 1, ContentID: 2, Message: "boom"}))
	assert.NoError(t, repo.Create(&domain.Notification{Type: domain.NotifyPendingReview, ClientID: 1, ContentID: 3, Message: "review"}))

	items, total, err := repo.GetList(0, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	assert.NoError(t, repo.MarkAsRead(items[0].ID))
}
