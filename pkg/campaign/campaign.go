// Package campaign dispatches bulk WhatsApp campaigns: scheduled campaigns
// become running, and a running campaign delivers a personalized message to
// every contact in its list with humanized pacing between sends.
package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/betoarts/masszap/pkg/eventbus"
	"github.com/betoarts/masszap/pkg/events"
	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/otelhelper"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/betoarts/masszap/pkg/quota"
	"github.com/betoarts/masszap/pkg/template"
	"github.com/betoarts/masszap/pkg/whatsapp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// mediaPause separates the text message from its media follow-up.
const mediaPause = time.Second

var (
	ErrOwnershipMismatch = errors.New("campaign does not belong to owner")
	ErrNotStartable      = errors.New("campaign is not in a startable status")
)

// Service runs campaigns against the messaging provider.
type Service struct {
	persistence persistence.Persistence
	quota       *quota.Service
	client      *whatsapp.Client
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger

	// sleep is swappable so tests do not wait out the pacing delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates a campaign service. The event bus is optional.
func NewService(p persistence.Persistence, quotaService *quota.Service, client *whatsapp.Client, bus eventbus.EventBus, logger *slog.Logger) *Service {
	return &Service{
		persistence: p,
		quota:       quotaService,
		client:      client,
		eventBus:    bus,
		tracer:      otel.Tracer("masszap.campaign"),
		logger:      logger.With("module", "campaign"),
		sleep:       sleepContext,
	}
}

// RunCampaign sends the campaign's message to every contact in its list.
// The campaign status is re-read before each contact so an external stop
// takes effect between sends. Per-contact send failures are recorded and do
// not abort the run.
func (s *Service) RunCampaign(ctx context.Context, campaignID, ownerID string) error {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "campaign.run",
		attribute.String(otelhelper.CampaignIDKey, campaignID),
		attribute.String(otelhelper.OwnerIDKey, ownerID),
	)
	defer span.End()

	campaign, instance, contacts, err := s.setup(ctx, campaignID, ownerID)
	if err != nil {
		// An ownership mismatch must not touch the victim's campaign.
		if !errors.Is(err, ErrOwnershipMismatch) {
			s.failCampaign(ctx, campaignID, ownerID, err)
		}

		otelhelper.SetError(span, err)

		return err
	}

	s.publish(ctx, events.CampaignStarted{
		BaseEvent:  s.baseEvent(events.CampaignStartedEvent, ownerID),
		CampaignID: campaign.ID,
		Contacts:   len(contacts),
	})

	s.logger.InfoContext(ctx, "Campaign started", "campaign_id", campaign.ID, "contacts", len(contacts))

	sent, failed := 0, 0

	for i, contact := range contacts {
		status, err := s.persistence.Campaigns().GetStatus(ctx, campaign.ID)
		if err != nil {
			s.failCampaign(ctx, campaign.ID, ownerID, fmt.Errorf("failed to re-read campaign status: %w", err))

			return err
		}

		if status != models.CampaignStatusRunning {
			// Stopped externally between sends.
			s.publish(ctx, events.CampaignStopped{
				BaseEvent:  s.baseEvent(events.CampaignStoppedEvent, ownerID),
				CampaignID: campaign.ID,
				Sent:       sent,
				Remaining:  len(contacts) - i,
			})

			s.logger.InfoContext(ctx, "Campaign stopped externally", "campaign_id", campaign.ID, "sent", sent)

			return nil
		}

		err = s.quota.Check(ctx, ownerID)
		if err != nil {
			if errors.Is(err, quota.ErrQuotaExceeded) {
				if pauseErr := s.quota.PauseAccount(ctx, ownerID); pauseErr != nil {
					s.logger.ErrorContext(ctx, "Failed to pause account", "owner_id", ownerID, "error", pauseErr)
				}
			}

			s.failCampaign(ctx, campaign.ID, ownerID, err)

			return err
		}

		err = s.sendToContact(ctx, campaign, instance, contact)
		if err != nil {
			failed++

			s.publish(ctx, events.MessageFailed{
				BaseEvent:  s.baseEvent(events.MessageFailedEvent, ownerID),
				CampaignID: campaign.ID,
				ContactID:  contact.ID,
				Phone:      contact.Phone,
				Error:      err.Error(),
			})

			s.logger.WarnContext(ctx, "Campaign send failed", "campaign_id", campaign.ID,
				"contact_id", contact.ID, "error", err)
		} else {
			sent++

			s.publish(ctx, events.MessageSent{
				BaseEvent:  s.baseEvent(events.MessageSentEvent, ownerID),
				CampaignID: campaign.ID,
				ContactID:  contact.ID,
				Phone:      contact.Phone,
			})

			if consumeErr := s.quota.Consume(ctx, ownerID, 1); consumeErr != nil {
				s.logger.ErrorContext(ctx, "Failed to consume quota", "owner_id", ownerID, "error", consumeErr)
			}
		}

		if i < len(contacts)-1 {
			err = s.sleep(ctx, s.pacingDelay(campaign))
			if err != nil {
				return err
			}
		}
	}

	// Leave an externally-set status alone; only a still-running campaign
	// becomes completed.
	ok, err := s.persistence.Campaigns().TransitionStatus(ctx, campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusRunning}, models.CampaignStatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to complete campaign: %w", err)
	}

	if ok {
		s.publish(ctx, events.CampaignCompleted{
			BaseEvent:  s.baseEvent(events.CampaignCompletedEvent, ownerID),
			CampaignID: campaign.ID,
			Sent:       sent,
			Failed:     failed,
		})
	}

	s.logger.InfoContext(ctx, "Campaign finished", "campaign_id", campaign.ID, "sent", sent, "failed", failed)

	return nil
}

// setup loads and verifies everything the run needs and moves the campaign
// into running status.
func (s *Service) setup(ctx context.Context, campaignID, ownerID string) (*models.Campaign, *models.Instance, []*models.Contact, error) {
	campaign, err := s.persistence.Campaigns().GetByID(ctx, campaignID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	if campaign.OwnerID != ownerID {
		return nil, nil, nil, ErrOwnershipMismatch
	}

	instance, err := s.persistence.Instances().GetByID(ctx, campaign.InstanceID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load instance: %w", err)
	}

	if instance.OwnerID != ownerID {
		return nil, nil, nil, errors.New("instance does not belong to the campaign owner")
	}

	list, err := s.persistence.Contacts().GetList(ctx, campaign.ContactListID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load contact list: %w", err)
	}

	if list.OwnerID != ownerID {
		return nil, nil, nil, errors.New("contact list does not belong to the campaign owner")
	}

	contacts, err := s.persistence.Contacts().ListByContactList(ctx, list.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	ok, err := s.persistence.Campaigns().TransitionStatus(ctx, campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusScheduled, models.CampaignStatusRunning},
		models.CampaignStatusRunning)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to start campaign: %w", err)
	}

	if !ok {
		return nil, nil, nil, ErrNotStartable
	}

	return campaign, instance, contacts, nil
}

func (s *Service) sendToContact(ctx context.Context, campaign *models.Campaign, instance *models.Instance, contact *models.Contact) error {
	data := contact.PersonalizationData()

	message := template.Render(campaign.Message, data)

	err := s.client.SendText(ctx, instance, contact.Phone, message)
	if err != nil {
		return err
	}

	if campaign.MediaURL == "" {
		return nil
	}

	err = s.sleep(ctx, mediaPause)
	if err != nil {
		return err
	}

	caption := template.Render(campaign.MediaCaption, data)

	return s.client.SendMedia(ctx, instance, contact.Phone, campaign.MediaURL, caption)
}

// pacingDelay draws a uniform random delay from [MinDelay, MaxDelay]
// seconds.
func (s *Service) pacingDelay(campaign *models.Campaign) time.Duration {
	minDelay, maxDelay := campaign.MinDelay, campaign.MaxDelay
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	seconds := minDelay
	if maxDelay > minDelay {
		seconds += rand.IntN(maxDelay - minDelay + 1)
	}

	return time.Duration(seconds) * time.Second
}

func (s *Service) failCampaign(ctx context.Context, campaignID, ownerID string, cause error) {
	_, err := s.persistence.Campaigns().TransitionStatus(ctx, campaignID,
		[]models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusScheduled, models.CampaignStatusRunning},
		models.CampaignStatusFailed)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark campaign failed", "campaign_id", campaignID, "error", err)
	}

	s.publish(ctx, events.CampaignFailed{
		BaseEvent:  s.baseEvent(events.CampaignFailedEvent, ownerID),
		CampaignID: campaignID,
		Error:      cause.Error(),
	})
}

func (s *Service) baseEvent(eventType events.EventType, ownerID string) events.BaseEvent {
	id := ""
	if s.eventBus != nil {
		id = s.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	}
}

// publish appends to the persisted event log and, when configured,
// publishes on the bus. Emission failures are logged only.
func (s *Service) publish(ctx context.Context, event eventbus.Event) {
	data, ownerID := eventData(event)

	err := s.persistence.Events().Append(ctx, &models.Event{
		OwnerID: ownerID,
		Type:    string(event.GetType()),
		Data:    data,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to append event", "event_type", event.GetType(), "error", err)
	}

	if s.eventBus == nil {
		return
	}

	err = s.eventBus.Publish(ctx, ownerID, event)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func eventData(event eventbus.Event) (map[string]any, string) {
	raw, err := json.Marshal(event)
	if err != nil {
		return map[string]any{}, ""
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]any{}, ""
	}

	ownerID, _ := data["owner_id"].(string)

	return data, ownerID
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
