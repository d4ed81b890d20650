package service

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
	"github.com/brightpost/brightpost-backend/internal/repository"
)

// Recycler runs the background sweeps: re-seeding aged-out published
// content, resolving stale approvals and resetting monthly quotas
type Recycler struct {
	contents repository.ContentRepository
	clients  repository.ClientRepository
	pipeline *Pipeline
	notifier *Notifier

	recycleAfter    time.Duration
	recycleBatch    int
	approvalTimeout time.Duration
}

// NewRecycler wires the sweep service
func NewRecycler(
	contents repository.ContentRepository,
	clients repository.ClientRepository,
	pipeline *Pipeline,
	notifier *Notifier,
	recycleAfter time.Duration,
	recycleBatch int,
	approvalTimeout time.Duration,
) *Recycler {
	if recycleBatch <= 0 {
		recycleBatch = 50
	}
	return &Recycler{
		contents:        contents,
		clients:         clients,
		pipeline:        pipeline,
		notifier:        notifier,
		recycleAfter:    recycleAfter,
		recycleBatch:    recycleBatch,
		approvalTimeout: approvalTimeout,
	}
}

// RegisterCron schedules the sweeps: recycling and approval timeouts
// hourly, quota reset at midnight on the first of the month
func (r *Recycler) RegisterCron(c *cron.Cron) error {
	if _, err := c.AddFunc("@hourly", func() { r.SweepRecyclable(context.Background()) }); err != nil {
		return err
	}
	if _, err := c.AddFunc("@hourly", func() { r.SweepApprovalTimeouts(context.Background()) }); err != nil {
		return err
	}
	if _, err := c.AddFunc("0 0 1 * *", func() { r.ResetMonthlyQuotas() }); err != nil {
		return err
	}
	return nil
}

// SweepRecyclable re-seeds well-aged published records as fresh
// submissions. Returns how many records were re-seeded.
func (r *Recycler) SweepRecyclable(ctx context.Context) int {
	cutoff := time.Now().Add(-r.recycleAfter)
	candidates, err := r.contents.FindRecyclable(cutoff, r.recycleBatch)
	if err != nil {
		log.Error().Err(err).Msg("recycling sweep query failed")
		return 0
	}

	recycled := 0
	quotaSkipped := map[int64]bool{}
	for _, old := range candidates {
		if quotaSkipped[old.ClientID] {
			continue
		}
		client, err := r.clients.FindByID(old.ClientID)
		if err != nil {
			log.Warn().Err(err).Int64("client_id", old.ClientID).Msg("recycling: client lookup failed")
			continue
		}
		if !client.Active {
			continue
		}
		if client.OverQuota() {
			quotaSkipped[client.ID] = true
			continue
		}

		sub := domain.Submission{
			Topic:       old.Topic,
			ContentType: old.ContentType,
			Notes:       old.Notes,
		}
		if client.ReuseMedia {
			sub.MediaRefs = old.MediaRefs
		}

		fresh := &domain.Content{
			ClientID:     client.ID,
			Topic:        sub.Topic,
			ContentType:  sub.ContentType,
			Notes:        sub.Notes,
			MediaRefs:    sub.MediaRefs,
			Status:       domain.StatusReceived,
			RecycledFrom: &old.ID,
		}
		if err := r.contents.Create(fresh); err != nil {
			log.Error().Err(err).Int64("source_id", old.ID).Msg("recycling: create failed")
			continue
		}

		// Stamp the source so it never feeds the sweep again
		now := time.Now()
		old.RecycledAt = &now
		if err := r.contents.Save(old); err != nil {
			log.Error().Err(err).Int64("content_id", old.ID).Msg("recycling: stamp failed")
		}

		if err := r.pipeline.Resume(ctx, fresh.ID); err != nil {
			log.Warn().Err(err).Int64("content_id", fresh.ID).Msg("recycling: pipeline run failed")
		}
		recycledTotal.Inc()
		recycled++
	}

	if len(candidates) > 0 {
		log.Info().
			Int("candidates", len(candidates)).
			Int("recycled", recycled).
			Msg("recycling sweep finished")
	}
	return recycled
}

// SweepApprovalTimeouts resolves records stuck in review past the
// window, honoring each client's timeout policy
func (r *Recycler) SweepApprovalTimeouts(ctx context.Context) int {
	cutoff := time.Now().Add(-r.approvalTimeout)
	stale, err := r.contents.FindPendingSince(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("approval timeout sweep query failed")
		return 0
	}

	resolved := 0
	for _, content := range stale {
		client, err := r.clients.FindByID(content.ClientID)
		if err != nil {
			continue
		}

		switch client.TimeoutPolicy {
		case domain.TimeoutAutoApprove:
			if _, err := r.pipeline.Approve(ctx, content.ID, nil); err != nil {
				if errors.Is(err, common.ErrQuotaExhausted) {
					log.Warn().Int64("content_id", content.ID).Msg("timeout auto-approve blocked by quota")
					continue
				}
				log.Error().Err(err).Int64("content_id", content.ID).Msg("timeout auto-approve failed")
				continue
			}
		default:
			// Auto-reject goes terminal without burning retry budget:
			// nobody gave feedback to regenerate from
			content.Status = domain.StatusRejected
			content.RejectionReason = "no review before the approval deadline"
			if err := r.contents.Save(content); err != nil {
				log.Error().Err(err).Int64("content_id", content.ID).Msg("timeout auto-reject failed")
				continue
			}
			r.notifier.ContentRejected(client, content)
		}
		resolved++
	}

	if resolved > 0 {
		log.Info().Int("resolved", resolved).Msg("approval timeout sweep finished")
	}
	return resolved
}

// ResetMonthlyQuotas zeroes every client's monthly counter
func (r *Recycler) ResetMonthlyQuotas() {
	if err := r.clients.ResetMonthlyUsage(); err != nil {
		log.Error().Err(err).Msg("monthly quota reset failed")
		return
	}
	log.Info().Msg("monthly quotas reset")
}
