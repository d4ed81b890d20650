package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
)

type pipelineFixture struct {
	contents   *MockContentRepository
	clients    *MockClientRepository
	text       *MockTextGenerator
	image      *MockImageGenerator
	notes      *MockNotificationRepository
	dispatcher *MockDispatcher
	p          *Pipeline
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		contents:   new(MockContentRepository),
		clients:    new(MockClientRepository),
		text:       new(MockTextGenerator),
		image:      new(MockImageGenerator),
		notes:      new(MockNotificationRepository),
		dispatcher: new(MockDispatcher),
	}
	f.p = NewPipeline(
		f.contents, f.clients,
		NewSourceResolver(f.contents, 3),
		f.text, f.image,
		NewNotifier(f.notes),
		f.dispatcher,
		3, 2, 0, "https://cdn.example.com/fallback.png",
	)
	return f
}

func (f *pipelineFixture) expectIntake(client *domain.Client) {
	f.clients.On("FindByIntakeToken", "tok-1").Return(client, nil)
	f.contents.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*domain.Content).ID = 42
	}).Return(nil)
	f.contents.On("Save", mock.Anything).Return(nil)
}

func captionOK() *CaptionResult {
	return &CaptionResult{
		Caption:  "Spring is here!",
		Hashtags: []string{"#lawncare"},
		CTA:      "Book your spring cleanup today!",
	}
}

func TestIntake_ClientMediaToPendingApproval(t *testing.T) {
	f := newPipelineFixture()
	client := testClient()
	f.expectIntake(client)
	f.contents.On("MediaUsage", int64(1)).Return(map[string]int{}, nil)
	f.text.On("GenerateCaption", mock.Anything, mock.Anything).Return(captionOK(), nil)
	f.notes.On("Create", mock.Anything).Return(nil)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{
		Topic:     "spring cleanup",
		MediaRefs: []string{"img-1.jpg"},
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, content.Status)
	assert.Equal(t, "Spring is here!", content.Caption)
	assert.Equal(t, "Book your spring cleanup today!", content.CTA)
	assert.Equal(t, []string{"img-1.jpg"}, content.MediaRefs)
	assert.Empty(t, content.ImageURL, "client media needs no generated image")
	f.image.AssertNotCalled(t, "GenerateImage", mock.Anything, mock.Anything)
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestIntake_TopicOnlyGeneratesImage(t *testing.T) {
	f := newPipelineFixture()
	f.expectIntake(testClient())
	f.text.On("GenerateCaption", mock.Anything, mock.Anything).Return(captionOK(), nil)
	f.image.On("GenerateImage", mock.Anything, mock.Anything).
		Return("https://cdn.example.com/gen.png", nil)
	f.notes.On("Create", mock.Anything).Return(nil)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{Topic: "fall aeration"})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, content.Status)
	assert.Equal(t, "https://cdn.example.com/gen.png", content.ImageURL)
}

func TestIntake_EmptySubmissionSynthesized(t *testing.T) {
	f := newPipelineFixture()
	f.expectIntake(testClient())
	f.text.On("GenerateCaption", mock.Anything, mock.Anything).Return(captionOK(), nil)
	f.image.On("GenerateImage", mock.Anything, mock.Anything).
		Return("https://cdn.example.com/gen.png", nil)
	f.notes.On("Create", mock.Anything).Return(nil)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{})

	assert.NoError(t, err)
	assert.NotEmpty(t, content.Topic, "a topic gets synthesized")
	assert.Equal(t, domain.StatusPendingApproval, content.Status)
}

func TestIntake_MediaOnlyInfersTopic(t *testing.T) {
	f := newPipelineFixture()
	f.expectIntake(testClient())
	f.contents.On("MediaUsage", int64(1)).Return(map[string]int{}, nil)
	f.text.On("InferTopic", mock.Anything, "yard.jpg", mock.Anything).
		Return("Fresh mulch install", nil)
	f.text.On("GenerateCaption", mock.Anything, mock.MatchedBy(func(r CaptionRequest) bool {
		return r.Topic == "Fresh mulch install"
	})).Return(captionOK(), nil)
	f.notes.On("Create", mock.Anything).Return(nil)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{
		MediaRefs: []string{"yard.jpg"},
	})

	assert.NoError(t, err)
	assert.Equal(t, "Fresh mulch install", content.Topic)
}

func TestIntake_NotesReachTextGenerator(t *testing.T) {
	f := newPipelineFixture()
	f.expectIntake(testClient())
	f.text.On("GenerateCaption", mock.Anything, mock.MatchedBy(func(r CaptionRequest) bool {
		return r.Notes == "mention the weekend discount"
	})).Return(captionOK(), nil)
	f.image.On("GenerateImage", mock.Anything, mock.Anything).Return("img", nil)
	f.notes.On("Create", mock.Anything).Return(nil)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{
		Topic: "spring cleanup",
		Notes: "mention the weekend discount",
	})

	assert.NoError(t, err)
	assert.Equal(t, "mention the weekend discount", content.Notes)
	f.text.AssertExpectations(t)
}

func TestIntake_AutoPostSkipsApproval(t *testing.T) {
	f := newPipelineFixture()
	client := testClient()
	client.AutoPost = true
	f.expectIntake(client)
	f.contents.On("MediaUsage", int64(1)).Return(map[string]int{}, nil)
	f.text.On("GenerateCaption", mock.Anything, mock.Anything).Return(captionOK(), nil)
	f.dispatcher.On("Dispatch", mock.Anything, int64(42)).Return(nil)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{
		Topic:     "spring cleanup",
		MediaRefs: []string{"img-1.jpg"},
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, content.Status)
	f.dispatcher.AssertCalled(t, "Dispatch", mock.Anything, int64(42))
}

func TestIntake_NoPlatformsMarksInvalid(t *testing.T) {
	f := newPipelineFixture()
	client := testClient()
	client.EnabledPlatforms = nil
	f.expectIntake(client)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{Topic: "x"})

	assert.ErrorIs(t, err, common.ErrNoPlatforms)
	assert.Equal(t, domain.StatusInvalid, content.Status)
	f.text.AssertNotCalled(t, "GenerateCaption", mock.Anything, mock.Anything)
}

func TestIntake_QuotaExhaustedMarksInvalid(t *testing.T) {
	f := newPipelineFixture()
	client := testClient()
	client.PostsThisMonth = client.MonthlyPostLimit
	f.expectIntake(client)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{Topic: "spring sale"})

	assert.ErrorIs(t, err, common.ErrQuotaExhausted)
	assert.Equal(t, domain.StatusInvalid, content.Status)
	f.text.AssertNotCalled(t, "GenerateCaption", mock.Anything, mock.Anything)
}

func TestIntake_InactiveClientRefused(t *testing.T) {
	f := newPipelineFixture()
	client := testClient()
	client.Active = false
	client.IntakeToken = "tok-1"
	f.clients.On("FindByIntakeToken", "tok-1").Return(client, nil)

	_, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{Topic: "x"})
	assert.ErrorIs(t, err, common.ErrClientInactive)
	f.contents.AssertNotCalled(t, "Create", mock.Anything)
}

func TestIntake_CaptionTransientRetriedThenSucceeds(t *testing.T) {
	f := newPipelineFixture()
	f.expectIntake(testClient())
	f.text.On("GenerateCaption", mock.Anything, mock.Anything).
		Return(nil, common.Transient(assert.AnError)).Twice()
	f.text.On("GenerateCaption", mock.Anything, mock.Anything).
		Return(captionOK(), nil).Once()
	f.image.On("GenerateImage", mock.Anything, mock.Anything).Return("img", nil)
	f.notes.On("Create", mock.Anything).Return(nil)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{Topic: "x"})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, content.Status)
	assert.Equal(t, 2, content.RetryCount)
}

func TestIntake_CaptionRetriesExhausted(t *testing.T) {
	f := newPipelineFixture()
	f.expectIntake(testClient())
	f.text.On("GenerateCaption", mock.Anything, mock.Anything).
		Return(nil, common.Transient(assert.AnError))
	f.notes.On("Create", mock.Anything).Return(nil)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{Topic: "x"})

	assert.ErrorIs(t, err, common.ErrRetriesExhausted)
	assert.Equal(t, domain.StatusPublishFailed, content.Status)
	assert.Equal(t, 3, content.RetryCount)
	f.text.AssertNumberOfCalls(t, "GenerateCaption", 3)
}

func TestIntake_ImageFailureFallsBackNeverKills(t *testing.T) {
	f := newPipelineFixture()
	f.expectIntake(testClient())
	f.text.On("GenerateCaption", mock.Anything, mock.Anything).Return(captionOK(), nil)
	f.image.On("GenerateImage", mock.Anything, mock.Anything).
		Return("", common.Transient(assert.AnError))
	f.notes.On("Create", mock.Anything).Return(nil)

	content, err := f.p.Intake(context.Background(), "tok-1", domain.Submission{Topic: "x"})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, content.Status)
	assert.Equal(t, "https://cdn.example.com/fallback.png", content.ImageURL)
	f.image.AssertNumberOfCalls(t, "GenerateImage", 2)
}

func TestApprove_QueuesAndDispatches(t *testing.T) {
	f := newPipelineFixture()
	content := &domain.Content{ID: 42, ClientID: 1, Status: domain.StatusPendingApproval}
	f.contents.On("FindByID", int64(42)).Return(content, nil)
	f.clients.On("FindByID", int64(1)).Return(testClient(), nil)
	f.contents.On("Save", content).Return(nil)
	f.dispatcher.On("Dispatch", mock.Anything, int64(42)).Return(nil)

	got, err := f.p.Approve(context.Background(), 42, nil)

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, got.Status)
	assert.Nil(t, got.ScheduledAt)
	f.dispatcher.AssertCalled(t, "Dispatch", mock.Anything, int64(42))
}

func TestApprove_SetsScheduledTime(t *testing.T) {
	f := newPipelineFixture()
	content := &domain.Content{ID: 42, ClientID: 1, Status: domain.StatusPendingApproval}
	f.contents.On("FindByID", int64(42)).Return(content, nil)
	f.clients.On("FindByID", int64(1)).Return(testClient(), nil)
	f.contents.On("Save", content).Return(nil)
	f.dispatcher.On("Dispatch", mock.Anything, int64(42)).Return(nil)

	when := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	got, err := f.p.Approve(context.Background(), 42, &when)

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, got.Status)
	assert.Equal(t, when, *got.ScheduledAt)
}

func TestApprove_QuotaGateBlocksQueue(t *testing.T) {
	f := newPipelineFixture()
	client := testClient()
	client.PostsThisMonth = client.MonthlyPostLimit
	content := &domain.Content{ID: 42, ClientID: 1, Status: domain.StatusPendingApproval}
	f.contents.On("FindByID", int64(42)).Return(content, nil)
	f.clients.On("FindByID", int64(1)).Return(client, nil)
	f.contents.On("Save", content).Return(nil)

	_, err := f.p.Approve(context.Background(), 42, nil)

	assert.ErrorIs(t, err, common.ErrQuotaExhausted)
	assert.Equal(t, domain.StatusApproved, content.Status)
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestApprove_WrongStatusRejected(t *testing.T) {
	f := newPipelineFixture()
	content := &domain.Content{ID: 42, ClientID: 1, Status: domain.StatusLogged}
	f.contents.On("FindByID", int64(42)).Return(content, nil)

	_, err := f.p.Approve(context.Background(), 42, nil)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
}

func TestReject_RegeneratesWithFeedback(t *testing.T) {
	f := newPipelineFixture()
	content := &domain.Content{
		ID: 42, ClientID: 1,
		Status:  domain.StatusPendingApproval,
		Caption: "Old caption",
	}
	f.contents.On("FindByID", int64(42)).Return(content, nil)
	f.clients.On("FindByID", int64(1)).Return(testClient(), nil)
	f.contents.On("Save", content).Return(nil)
	f.text.On("GenerateCaption", mock.Anything, mock.MatchedBy(func(r CaptionRequest) bool {
		return r.RejectionReason == "too salesy" && r.PriorCaption == "Old caption"
	})).Return(&CaptionResult{Caption: "Calmer caption"}, nil)
	f.notes.On("Create", mock.Anything).Return(nil)

	got, err := f.p.Reject(context.Background(), 42, "too salesy")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, got.Status)
	assert.Equal(t, "Calmer caption", got.Caption)
	assert.Equal(t, 1, got.RetryCount)
}

func TestReject_ReasonRequired(t *testing.T) {
	f := newPipelineFixture()
	_, err := f.p.Reject(context.Background(), 42, "")
	assert.ErrorIs(t, err, common.ErrReasonRequired)
	f.contents.AssertNotCalled(t, "FindByID", mock.Anything)
}

func TestReject_SharedBudgetGoesTerminal(t *testing.T) {
	f := newPipelineFixture()
	content := &domain.Content{
		ID: 42, ClientID: 1,
		Status:     domain.StatusPendingApproval,
		RetryCount: 2, // two model failures already spent
	}
	f.contents.On("FindByID", int64(42)).Return(content, nil)
	f.clients.On("FindByID", int64(1)).Return(testClient(), nil)
	f.contents.On("Save", content).Return(nil)
	f.notes.On("Create", mock.Anything).Return(nil)

	got, err := f.p.Reject(context.Background(), 42, "wrong tone")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Equal(t, 3, got.RetryCount)
	f.text.AssertNotCalled(t, "GenerateCaption", mock.Anything, mock.Anything)
}
