package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/betoarts/masszap/pkg/models"
)

// DispatchScheduledCampaigns promotes every due scheduled campaign to
// running and runs it. One failing campaign does not stop the batch.
func (s *Service) DispatchScheduledCampaigns(ctx context.Context) (int, error) {
	due, err := s.persistence.Campaigns().ListDueScheduled(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list due campaigns: %w", err)
	}

	dispatched := 0

	for _, campaign := range due {
		ok, err := s.persistence.Campaigns().TransitionStatus(ctx, campaign.ID,
			[]models.CampaignStatus{models.CampaignStatusScheduled}, models.CampaignStatusRunning)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to promote scheduled campaign", "campaign_id", campaign.ID, "error", err)

			continue
		}

		if !ok {
			// Another dispatcher invocation won this campaign.
			continue
		}

		dispatched++

		err = s.RunCampaign(ctx, campaign.ID, campaign.OwnerID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Scheduled campaign failed", "campaign_id", campaign.ID, "error", err)
		}
	}

	return dispatched, nil
}
