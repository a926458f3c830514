package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/events"
	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/rs/zerolog"
)

// Projector turns an event into a display-ready activity entry.
type Projector interface {
	Entry(eventType string, p events.ReservationEventPayload) models.Activity
}

// ActivityStore is the slice of the repository the worker needs.
type ActivityStore interface {
	InsertActivity(ctx context.Context, a *models.Activity) error
	PruneActivities(ctx context.Context, keep int) error
}

type activityTask struct {
	eventType string
	payload   events.ReservationEventPayload
}

// ActivityWorker consumes reservation events and persists the bounded
// activity feed. Persistence failures are retried with backoff; the event
// source is never blocked.
type ActivityWorker struct {
	store     ActivityStore
	projector Projector
	queue     chan activityTask
	retry     RetryPolicy
	feedLimit int
	logger    *zerolog.Logger
}

// NewActivityWorker builds a worker with sane defaults.
func NewActivityWorker(store ActivityStore, projector Projector, feedLimit int, retry RetryPolicy, logger *zerolog.Logger) *ActivityWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 100 * time.Millisecond
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 5 * time.Second
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if feedLimit <= 0 {
		feedLimit = models.DefaultActivityFeedLimit
	}

	return &ActivityWorker{
		store:     store,
		projector: projector,
		queue:     make(chan activityTask, models.WorkerQueueSize),
		retry:     retry,
		feedLimit: feedLimit,
		logger:    logger,
	}
}

// Register subscribes the worker to every reservation event type.
func (w *ActivityWorker) Register(bus *events.EventBus) {
	for _, eventType := range events.AllTypes() {
		eventType := eventType
		bus.Subscribe(eventType, func(event *events.Event) error {
			return w.handleEvent(eventType, event)
		})
	}
}

func (w *ActivityWorker) handleEvent(eventType string, event *events.Event) error {
	var payload events.ReservationEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		w.logger.Error().Err(err).Str("event_type", eventType).Msg("malformed event payload")
		return fmt.Errorf("decode payload: %w", err)
	}

	select {
	case w.queue <- activityTask{eventType: eventType, payload: payload}:
		return nil
	default:
		// Dropping an audit entry beats blocking the transition that
		// produced it.
		w.logger.Warn().Str("event_type", eventType).Int64("reservation_id", payload.ReservationID).Msg("activity queue full, dropping event")
		return fmt.Errorf("activity queue full")
	}
}

// Run processes queued events until the context is cancelled.
func (w *ActivityWorker) Run(ctx context.Context) {
	w.logger.Info().Int("queue_size", cap(w.queue)).Msg("activity worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("activity worker stopped")
			return
		case task := <-w.queue:
			w.process(ctx, task)
		}
	}
}

func (w *ActivityWorker) process(ctx context.Context, task activityTask) {
	activity := w.projector.Entry(task.eventType, task.payload)

	for attempt := 1; ; attempt++ {
		err := w.store.InsertActivity(ctx, &activity)
		if err == nil {
			break
		}
		if attempt > w.retry.MaxRetries {
			w.logger.Error().Err(err).
				Int64("reservation_id", task.payload.ReservationID).
				Str("event_type", task.eventType).
				Msg("giving up on activity entry")
			return
		}

		delay := w.retry.NextDelay(attempt)
		w.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("activity insert failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	if err := w.store.PruneActivities(ctx, w.feedLimit); err != nil {
		w.logger.Warn().Err(err).Msg("activity prune failed")
	}
}
