package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
	"github.com/brightpost/brightpost-backend/internal/repository"
	pkglogger "github.com/brightpost/brightpost-backend/pkg/logger"
)

// ContentDispatcher publishes a queued record
type ContentDispatcher interface {
	Dispatch(ctx context.Context, contentID int64) error
}

// Pipeline drives a record from intake to the approval gate, and from
// an approval decision to the dispatcher
type Pipeline struct {
	contents   repository.ContentRepository
	clients    repository.ClientRepository
	resolver   *SourceResolver
	text       TextGenerator
	image      ImageGenerator
	notifier   *Notifier
	dispatcher ContentDispatcher

	maxRetries    int
	imageRetries  int
	retryDelay    time.Duration
	fallbackImage string
}

// NewPipeline wires the content pipeline
func NewPipeline(
	contents repository.ContentRepository,
	clients repository.ClientRepository,
	resolver *SourceResolver,
	text TextGenerator,
	image ImageGenerator,
	notifier *Notifier,
	dispatcher ContentDispatcher,
	maxRetries, imageRetries int,
	retryDelay time.Duration,
	fallbackImage string,
) *Pipeline {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if imageRetries <= 0 {
		imageRetries = 2
	}
	return &Pipeline{
		contents:      contents,
		clients:       clients,
		resolver:      resolver,
		text:          text,
		image:         image,
		notifier:      notifier,
		dispatcher:    dispatcher,
		maxRetries:    maxRetries,
		imageRetries:  imageRetries,
		retryDelay:    retryDelay,
		fallbackImage: fallbackImage,
	}
}

// Intake accepts one submission through a client's intake token and
// runs it up to the approval gate. The created record is returned even
// when generation dead-ends, so the caller can show its state.
func (p *Pipeline) Intake(ctx context.Context, intakeToken string, sub domain.Submission) (*domain.Content, error) {
	client, err := p.clients.FindByIntakeToken(intakeToken)
	if err != nil {
		return nil, common.ErrClientNotFound
	}
	if !client.Active {
		return nil, common.ErrClientInactive
	}

	content := &domain.Content{
		ClientID:    client.ID,
		Topic:       sub.Topic,
		ContentType: sub.ContentType,
		Notes:       sub.Notes,
		MediaRefs:   sub.MediaRefs,
		Status:      domain.StatusReceived,
	}
	if content.ContentType == "" {
		content.ContentType = domain.TypeOther
	}
	if err := p.contents.Create(content); err != nil {
		return nil, fmt.Errorf("create content record: %w", err)
	}

	if err := p.process(ctx, client, content, sub); err != nil {
		return content, err
	}
	return content, nil
}

// Resume re-runs generation for a record created by the recycling
// sweep or left in received after a crash
func (p *Pipeline) Resume(ctx context.Context, contentID int64) error {
	content, err := p.contents.FindByID(contentID)
	if err != nil {
		return common.ErrContentNotFound
	}
	if content.Status != domain.StatusReceived {
		return fmt.Errorf("%w: cannot resume from %s", common.ErrInvalidTransition, content.Status)
	}
	client, err := p.clients.FindByID(content.ClientID)
	if err != nil {
		return common.ErrClientNotFound
	}
	sub := domain.Submission{
		Topic:       content.Topic,
		ContentType: content.ContentType,
		Notes:       content.Notes,
		MediaRefs:   content.MediaRefs,
	}
	return p.process(ctx, client, content, sub)
}

func (p *Pipeline) process(ctx context.Context, client *domain.Client, content *domain.Content, sub domain.Submission) error {
	logger := pkglogger.WithContent(content.ID, client.ID)

	res, err := p.resolver.Resolve(client, sub)
	if err != nil {
		content.Status = domain.StatusInvalid
		content.ErrorMessage = err.Error()
		p.save(content)
		return err
	}
	content.Topic = res.Topic
	content.MediaRefs = res.MediaRefs
	content.Status = domain.StatusValidated
	if err := p.save(content); err != nil {
		return err
	}

	// A media-only submission gets its topic read off the image
	if content.Topic == "" && content.HasMedia() {
		topic, err := p.text.InferTopic(ctx, content.FirstMediaRef(), client)
		if err != nil {
			logger.Warn().Err(err).Msg("topic inference failed, using a generic angle")
			topic = topicForIndustry(client.Industry)
		}
		content.Topic = topic
	}

	if err := p.generateCaption(ctx, client, content); err != nil {
		return err
	}

	if res.Source.NeedsImage() {
		p.generateImage(ctx, client, content)
		content.Status = domain.StatusImaged
		if err := p.save(content); err != nil {
			return err
		}
	}

	return p.gate(ctx, client, content)
}

// generateCaption drafts the caption, spending the shared retry budget
// on transient model failures
func (p *Pipeline) generateCaption(ctx context.Context, client *domain.Client, content *domain.Content) error {
	logger := pkglogger.WithContent(content.ID, client.ID)

	req := CaptionRequest{
		Client:          client,
		Topic:           content.Topic,
		ContentType:     content.ContentType,
		Notes:           content.Notes,
		MediaRefs:       content.MediaRefs,
		Platforms:       client.EnabledPlatforms,
		RejectionReason: content.RejectionReason,
		PriorCaption:    content.Caption,
	}

	for {
		result, err := p.text.GenerateCaption(ctx, req)
		if err == nil {
			content.Caption = result.Caption
			content.Hashtags = result.Hashtags
			content.CTA = result.CTA
			content.PlatformCaptions = result.PlatformCaptions
			content.Status = domain.StatusCaptioned
			return p.save(content)
		}
		if !common.IsTransient(err) {
			content.Status = domain.StatusPublishFailed
			content.ErrorMessage = err.Error()
			p.save(content)
			p.notifier.RetryExhausted(client, content, err)
			return err
		}

		// Model failures and human rejections draw on one budget
		content.RetryCount++
		captionRetriesTotal.Inc()
		logger.Warn().Err(err).Int("retry_count", content.RetryCount).Msg("caption generation failed")
		if content.RetryCount >= p.maxRetries {
			content.Status = domain.StatusPublishFailed
			content.ErrorMessage = err.Error()
			p.save(content)
			p.notifier.RetryExhausted(client, content, err)
			return fmt.Errorf("%w: %v", common.ErrRetriesExhausted, err)
		}
		content.Status = domain.StatusRetrying
		if err := p.save(content); err != nil {
			return err
		}
		if !p.wait(ctx) {
			return ctx.Err()
		}
	}
}

// generateImage renders the post image, falling back to the configured
// static image when the budget runs out. Image trouble alone never
// kills a record.
func (p *Pipeline) generateImage(ctx context.Context, client *domain.Client, content *domain.Content) {
	logger := pkglogger.WithContent(content.ID, client.ID)

	req := ImageRequest{Client: client, Topic: content.Topic, Caption: content.Caption}
	for attempt := 1; attempt <= p.imageRetries; attempt++ {
		url, err := p.image.GenerateImage(ctx, req)
		if err == nil {
			content.ImageURL = url
			return
		}
		content.ImageRetries = attempt
		logger.Warn().Err(err).Int("attempt", attempt).Msg("image generation failed")
		if !common.IsTransient(err) {
			break
		}
		if attempt < p.imageRetries && !p.wait(ctx) {
			break
		}
	}
	logger.Warn().Str("fallback", p.fallbackImage).Msg("using fallback image")
	content.ImageURL = p.fallbackImage
}

// gate parks the record for human review, or queues it straight away
// for auto-post clients
func (p *Pipeline) gate(ctx context.Context, client *domain.Client, content *domain.Content) error {
	if client.AutoPost {
		content.Status = domain.StatusApproved
		if err := p.save(content); err != nil {
			return err
		}
		return p.queue(ctx, client, content)
	}

	content.Status = domain.StatusPendingApproval
	if err := p.save(content); err != nil {
		return err
	}
	p.notifier.PendingReview(client, content)
	return nil
}

// Approve accepts a pending record and hands it to the dispatcher.
// When scheduledAt is set the post is scheduled for that time instead
// of going out immediately.
func (p *Pipeline) Approve(ctx context.Context, contentID int64, scheduledAt *time.Time) (*domain.Content, error) {
	content, err := p.contents.FindByID(contentID)
	if err != nil {
		return nil, common.ErrContentNotFound
	}
	if content.Status != domain.StatusPendingApproval {
		return content, fmt.Errorf("%w: cannot approve from %s", common.ErrInvalidTransition, content.Status)
	}
	client, err := p.clients.FindByID(content.ClientID)
	if err != nil {
		return nil, common.ErrClientNotFound
	}

	approvalsTotal.WithLabelValues("approved").Inc()
	content.Status = domain.StatusApproved
	content.RejectionReason = ""
	if scheduledAt != nil {
		content.ScheduledAt = scheduledAt
	}
	if err := p.save(content); err != nil {
		return nil, err
	}
	if err := p.queue(ctx, client, content); err != nil {
		return content, err
	}
	return content, nil
}

// queue marks a record queued_for_publish and dispatches it. The
// monthly quota gates the queue, not the approval.
func (p *Pipeline) queue(ctx context.Context, client *domain.Client, content *domain.Content) error {
	if client.OverQuota() {
		content.ErrorMessage = common.ErrQuotaExhausted.Error()
		p.save(content)
		return common.ErrQuotaExhausted
	}
	content.Status = domain.StatusQueued
	if err := p.save(content); err != nil {
		return err
	}
	return p.dispatcher.Dispatch(ctx, content.ID)
}

// Reject records a rejection and regenerates, until the shared budget
// runs out and the record goes terminal
func (p *Pipeline) Reject(ctx context.Context, contentID int64, reason string) (*domain.Content, error) {
	if reason == "" {
		return nil, common.ErrReasonRequired
	}
	content, err := p.contents.FindByID(contentID)
	if err != nil {
		return nil, common.ErrContentNotFound
	}
	if content.Status != domain.StatusPendingApproval {
		return content, fmt.Errorf("%w: cannot reject from %s", common.ErrInvalidTransition, content.Status)
	}
	client, err := p.clients.FindByID(content.ClientID)
	if err != nil {
		return nil, common.ErrClientNotFound
	}

	approvalsTotal.WithLabelValues("rejected").Inc()
	content.RetryCount++
	content.RejectionReason = reason

	if content.RetryCount >= p.maxRetries {
		content.Status = domain.StatusRejected
		if err := p.save(content); err != nil {
			return nil, err
		}
		p.notifier.ContentRejected(client, content)
		return content, nil
	}

	content.Status = domain.StatusRetrying
	if err := p.save(content); err != nil {
		return nil, err
	}

	if err := p.generateCaption(ctx, client, content); err != nil {
		return content, err
	}
	return content, p.gate(ctx, client, content)
}

// Get returns one record
func (p *Pipeline) Get(contentID int64) (*domain.Content, error) {
	content, err := p.contents.FindByID(contentID)
	if err != nil {
		return nil, common.ErrContentNotFound
	}
	return content, nil
}

// List returns a page of a client's records, newest first
func (p *Pipeline) List(clientID int64, page, limit int) ([]*domain.Content, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return p.contents.ListByClient(clientID, page, limit)
}

func (p *Pipeline) save(content *domain.Content) error {
	if err := p.contents.Save(content); err != nil {
		log.Error().Err(err).Int64("content_id", content.ID).Msg("save content record")
		return fmt.Errorf("save content record: %w", err)
	}
	return nil
}

func (p *Pipeline) wait(ctx context.Context) bool {
	if p.retryDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(p.retryDelay):
		return true
	}
}
