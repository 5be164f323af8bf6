package engine

import (
	"context"
	"encoding/json"

	"github.com/betoarts/masszap/pkg/eventbus"
	"github.com/betoarts/masszap/pkg/models"
)

// publish appends the event to the persisted event log and, when a bus is
// configured, publishes it for external subscribers. Event emission is
// observability: failures are logged and never interrupt processing.
func (e *Engine) publish(ctx context.Context, event eventbus.Event) {
	data, ownerID := eventData(event)

	err := e.persistence.Events().Append(ctx, &models.Event{
		OwnerID: ownerID,
		Type:    string(event.GetType()),
		Data:    data,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to append event", "event_type", event.GetType(), "error", err)
	}

	if e.eventBus == nil {
		return
	}

	err = e.eventBus.Publish(ctx, ownerID, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// eventData flattens an event struct into a map for the JSONB event log.
func eventData(event eventbus.Event) (map[string]any, string) {
	raw, err := json.Marshal(event)
	if err != nil {
		return map[string]any{}, ""
	}

	var data map[string]any

	err = json.Unmarshal(raw, &data)
	if err != nil {
		return map[string]any{}, ""
	}

	ownerID, _ := data["owner_id"].(string)

	return data, ownerID
}
