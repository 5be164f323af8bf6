// Package main provides the masszap scheduler, the periodic clock that
// drives job and campaign processing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/betoarts/masszap/pkg/campaign"
	"github.com/betoarts/masszap/pkg/engine"
	"github.com/betoarts/masszap/pkg/eventbus"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/betoarts/masszap/pkg/quota"
	"github.com/betoarts/masszap/pkg/registry"
	"github.com/betoarts/masszap/pkg/whatsapp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// Scheduler ticks the engine's pollers on a cron cadence. The engine itself
// holds no timers: every piece of time-driven work happens because this
// binary (or an API trigger call) invoked it.
type Scheduler struct {
	engine    *engine.Engine
	campaigns *campaign.Service
	cron      *cron.Cron
	logger    *slog.Logger
}

func NewScheduler(
	logger *slog.Logger,
	p persistence.Persistence,
	reg *registry.Registry,
	bus eventbus.EventBus,
	quotaCache redis.UniversalClient,
) *Scheduler {
	client := whatsapp.NewClient(30 * time.Second)
	quotaService := quota.NewService(p.Accounts(), quotaCache, logger)

	return &Scheduler{
		engine:    engine.New(p, reg, bus, client, logger),
		campaigns: campaign.NewService(p, quotaService, client, bus, logger),
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start registers both pollers and blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context, jobsCron, campaignsCron string) error {
	_, err := s.cron.AddFunc(jobsCron, func() {
		s.tickJobs(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid jobs cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(campaignsCron, func() {
		s.tickCampaigns(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid campaigns cron expression: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "jobs_cron", jobsCron, "campaigns_cron", campaignsCron)

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	return nil
}

func (s *Scheduler) tickJobs(ctx context.Context) {
	processed, err := s.engine.ProcessDueJobs(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Job poll failed", "error", err)

		return
	}

	if processed > 0 {
		s.logger.InfoContext(ctx, "Processed due jobs", "count", processed)
	}
}

func (s *Scheduler) tickCampaigns(ctx context.Context) {
	dispatched, err := s.campaigns.DispatchScheduledCampaigns(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Campaign dispatch failed", "error", err)

		return
	}

	if dispatched > 0 {
		s.logger.InfoContext(ctx, "Dispatched scheduled campaigns", "count", dispatched)
	}
}
