package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
	"github.com/brightpost/brightpost-backend/internal/repository"
	"github.com/brightpost/brightpost-backend/pkg/cache"
)

// Dispatcher pushes a queued record to the scheduling service, with a
// CSV export as the fallback when nothing could be published
type Dispatcher struct {
	contents  repository.ContentRepository
	clients   repository.ClientRepository
	scheduler SchedulerClient
	exporter  ExportWriter
	outcomes  OutcomeLogger
	notifier  *Notifier
	cache     cache.Service

	defaultCreds SchedulerCredentials
	maxAttempts  int
	retryDelay   time.Duration
}

// NewDispatcher wires the publish dispatcher
func NewDispatcher(
	contents repository.ContentRepository,
	clients repository.ClientRepository,
	scheduler SchedulerClient,
	exporter ExportWriter,
	outcomes OutcomeLogger,
	notifier *Notifier,
	cacheService cache.Service,
	defaultCreds SchedulerCredentials,
	maxAttempts int,
	retryDelay time.Duration,
) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Dispatcher{
		contents:     contents,
		clients:      clients,
		scheduler:    scheduler,
		exporter:     exporter,
		outcomes:     outcomes,
		notifier:     notifier,
		cache:        cacheService,
		defaultCreds: defaultCreds,
		maxAttempts:  maxAttempts,
		retryDelay:   retryDelay,
	}
}

// resolveCredentials picks the workspace a record publishes into. The
// whole decision lives here so one dispatch can never mix a client
// workspace with the shared one.
func (d *Dispatcher) resolveCredentials(client *domain.Client) (SchedulerCredentials, error) {
	if client.SchedulerAPIKey != "" && client.WorkspaceID != "" {
		return SchedulerCredentials{
			APIKey:      client.SchedulerAPIKey,
			WorkspaceID: client.WorkspaceID,
		}, nil
	}
	if d.defaultCreds.APIKey != "" && d.defaultCreds.WorkspaceID != "" {
		return d.defaultCreds, nil
	}
	return SchedulerCredentials{}, common.ErrNoCredentials
}

// Dispatch publishes one queued record. Every terminal outcome is
// appended to the publish log, including failures.
func (d *Dispatcher) Dispatch(ctx context.Context, contentID int64) error {
	content, err := d.contents.FindByID(contentID)
	if err != nil {
		return common.ErrContentNotFound
	}
	if content.Status != domain.StatusQueued {
		return fmt.Errorf("%w: cannot dispatch from %s", common.ErrInvalidTransition, content.Status)
	}

	client, err := d.clients.FindByID(content.ClientID)
	if err != nil {
		return common.ErrClientNotFound
	}

	acquired, err := d.cache.AcquireDispatchLock(ctx, contentID)
	if err != nil {
		log.Warn().Err(err).Int64("content_id", contentID).Msg("dispatch lock unavailable, proceeding without")
	} else if !acquired {
		return common.ErrAlreadyDispatching
	}
	defer d.cache.ReleaseDispatchLock(context.WithoutCancel(ctx), contentID)

	if client.OverQuota() {
		content.ErrorMessage = common.ErrQuotaExhausted.Error()
		if saveErr := d.contents.Save(content); saveErr != nil {
			log.Error().Err(saveErr).Int64("content_id", contentID).Msg("save quota-blocked record")
		}
		return common.ErrQuotaExhausted
	}

	platforms := client.EnabledPlatforms
	if len(platforms) == 0 {
		return common.ErrNoPlatforms
	}

	postIDs := map[string]string{}
	failures := map[string]string{}

	creds, credsErr := d.resolveCredentials(client)
	if credsErr == nil {
		postIDs, failures = d.publishAll(ctx, creds, client, content, platforms)
	} else {
		log.Warn().Int64("client_id", client.ID).Msg("no scheduler credentials, going straight to export")
	}

	exported := false
	if len(postIDs) == 0 {
		path, exportErr := d.exporter.WriteExport(client, content, platforms)
		if exportErr != nil {
			log.Error().Err(exportErr).Int64("content_id", contentID).Msg("fallback export failed")
		} else {
			content.ExportRef = path
			exported = true
		}
	}

	now := time.Now()
	outcome := ""
	switch {
	case len(postIDs) > 0:
		content.Status = domain.StatusPublished
		content.PublishedAt = &now
		content.PlatformPostIDs = postIDs
		content.ErrorMessage = joinFailures(failures)
		outcome = "published"
		publishedTotal.Inc()
	case exported:
		content.Status = domain.StatusPublishFailed
		content.ErrorMessage = joinFailures(failures)
		outcome = "exported"
		exportedTotal.Inc()
	default:
		content.Status = domain.StatusPublishFailed
		content.ErrorMessage = joinFailures(failures)
		if content.ErrorMessage == "" && credsErr != nil {
			content.ErrorMessage = credsErr.Error()
		}
		outcome = "publish_failed"
		publishFailedTotal.Inc()
	}

	// The quota counts posts that actually go out, whether the
	// scheduler takes them or a human works the export
	if len(postIDs) > 0 || exported {
		if ok, incErr := d.clients.IncrementUsage(client.ID); incErr != nil {
			log.Error().Err(incErr).Int64("client_id", client.ID).Msg("increment monthly usage")
		} else if !ok {
			log.Warn().Int64("client_id", client.ID).Msg("monthly quota filled during dispatch")
		}
	}

	entry := domain.PublishLogEntry{
		Timestamp:       now,
		ClientID:        client.ID,
		ClientName:      client.BusinessName,
		ContentID:       content.ID,
		Outcome:         outcome,
		FinalCaption:    content.Caption,
		ImageRef:        content.FinalImageRef(),
		PlatformPostIDs: postIDs,
	}
	if logErr := d.outcomes.Record(ctx, entry); logErr != nil {
		log.Error().Err(logErr).Int64("content_id", content.ID).Msg("publish outcome log failed")
	} else if content.Status == domain.StatusPublished {
		content.Status = domain.StatusLogged
	}

	if err := d.contents.Save(content); err != nil {
		return fmt.Errorf("save dispatched record: %w", err)
	}

	if len(postIDs) == 0 {
		d.notifier.PublishFailed(client, content, errors.New(content.ErrorMessage))
	}

	log.Info().
		Int64("content_id", content.ID).
		Int64("client_id", client.ID).
		Str("outcome", outcome).
		Int("platforms_ok", len(postIDs)).
		Int("platforms_failed", len(failures)).
		Msg("dispatch finished")
	return nil
}

// Platforms that refuse text-only posts. Checked locally so the
// structural failure surfaces without an API round-trip.
var mediaRequiredPlatforms = map[string]bool{
	"instagram": true,
}

// publishAll schedules the record on every enabled platform, retrying
// transient failures and reporting structural ones immediately
func (d *Dispatcher) publishAll(ctx context.Context, creds SchedulerCredentials, client *domain.Client, content *domain.Content, platforms []string) (map[string]string, map[string]string) {
	postIDs := make(map[string]string)
	failures := make(map[string]string)

	accountIDs, err := d.listAccountsRetry(ctx, creds)
	if err != nil {
		for _, platform := range platforms {
			failures[platform] = fmt.Sprintf("list workspace accounts: %v", err)
		}
		return postIDs, failures
	}
	workspace := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		workspace[id] = true
	}

	for _, platform := range platforms {
		accountID := client.AccountIDs[platform]
		if accountID == "" {
			failures[platform] = "no account configured"
			continue
		}
		// An account outside the credentialed workspace is never
		// posted to, whatever the client row claims
		if !workspace[accountID] {
			failures[platform] = common.ErrForeignAccount.Error()
			log.Error().
				Int64("client_id", client.ID).
				Str("platform", platform).
				Str("account_id", accountID).
				Msg("account not in client workspace, refusing to post")
			continue
		}

		if mediaRequiredPlatforms[platform] && content.FinalImageRef() == "" {
			se := &common.StructuralError{Platform: platform, Reason: "posts require at least one image or video"}
			failures[platform] = se.Error()
			continue
		}

		caption := content.Caption
		if variant, ok := content.PlatformCaptions[platform]; ok && variant != "" {
			caption = variant
		}
		if len(content.Hashtags) > 0 {
			caption = caption + "\n\n" + strings.Join(content.Hashtags, " ")
		}

		req := ScheduleRequest{
			AccountID:   accountID,
			Platform:    platform,
			Caption:     caption,
			ImageURL:    content.FinalImageRef(),
			ScheduledAt: content.ScheduledAt,
		}

		postID, err := d.scheduleRetry(ctx, creds, req)
		if err != nil {
			failures[platform] = err.Error()
			continue
		}
		postIDs[platform] = postID
	}
	return postIDs, failures
}

func (d *Dispatcher) listAccountsRetry(ctx context.Context, creds SchedulerCredentials) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		ids, err := d.scheduler.ListAccountIDs(ctx, creds)
		if err == nil {
			return ids, nil
		}
		lastErr = err
		if !common.IsTransient(err) {
			break
		}
		if attempt < d.maxAttempts && !d.wait(ctx) {
			break
		}
	}
	return nil, lastErr
}

func (d *Dispatcher) scheduleRetry(ctx context.Context, creds SchedulerCredentials, req ScheduleRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		postID, err := d.scheduler.Schedule(ctx, creds, req)
		if err == nil {
			return postID, nil
		}
		lastErr = err
		if !common.IsTransient(err) {
			break
		}
		log.Warn().Err(err).
			Str("platform", req.Platform).
			Int("attempt", attempt).
			Msg("schedule attempt failed")
		if attempt < d.maxAttempts && !d.wait(ctx) {
			break
		}
	}
	return "", lastErr
}

// wait sleeps the fixed retry delay, bailing out when ctx is done
func (d *Dispatcher) wait(ctx context.Context) bool {
	if d.retryDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d.retryDelay):
		return true
	}
}

func joinFailures(failures map[string]string) string {
	if len(failures) == 0 {
		return ""
	}
	platforms := make([]string, 0, len(failures))
	for p := range failures {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	parts := make([]string, 0, len(platforms))
	for _, p := range platforms {
		parts = append(parts, p+": "+failures[p])
	}
	return strings.Join(parts, "; ")
}
