package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_dashboard/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_dashboard/pkg/rabbitmq"
)

// EventSink receives the state changes the dashboard makes.
type EventSink interface {
	PumpChanged(state entities.PumpState, duration time.Duration, automatic bool)
	CropConfirmed(crop string, th entities.Thresholds, reset bool)
	// Indicator is called on every indicator render; sinks decide what is news.
	Indicator(id string, up bool, label string)
}

type NopEvents struct{}

func (NopEvents) PumpChanged(entities.PumpState, time.Duration, bool) {}
func (NopEvents) CropConfirmed(string, entities.Thresholds, bool) {}
func (NopEvents) Indicator(string, bool, string) {}

type outgoing struct {
	pub     rabbitmq.IPublisher
	payload any
}

// MQTTEvents publishes dashboard events from a single goroutine so the
// controllers never wait on the broker. Indicator reports are forwarded on
// change and refreshed once per TTL while unchanged.
type MQTTEvents struct {
	pump   rabbitmq.IPublisher
	crop   rabbitmq.IPublisher
	status rabbitmq.IPublisher
	seen   *dedup.Deduper
	queue  chan outgoing
	log    *log.Logger
	now    func() time.Time
}

func NewMQTTEvents(pump, crop, status rabbitmq.IPublisher, refresh time.Duration, logger *log.Logger) *MQTTEvents {
	if logger == nil {
		logger = log.Default()
	}
	return &MQTTEvents{
		pump:   pump,
		crop:   crop,
		status: status,
		seen:   dedup.New(refresh, 64),
		queue:  make(chan outgoing, 64),
		log:    logger,
		now:    time.Now,
	}
}

func (e *MQTTEvents) enqueue(pub rabbitmq.IPublisher, payload any) {
	select {
	case e.queue <- outgoing{pub: pub, payload: payload}:
	default:
		e.log.Printf("events: queue full, dropping %T", payload)
	}
}

func (e *MQTTEvents) PumpChanged(state entities.PumpState, duration time.Duration, automatic bool) {
	e.enqueue(e.pump, messages.StateChangeEvent{
		EventID:   uuid.NewString(),
		NewState:  state,
		Duration:  duration,
		Automatic: automatic,
		Timestamp: e.now().UTC(),
	})
}

func (e *MQTTEvents) CropConfirmed(crop string, th entities.Thresholds, reset bool) {
	e.enqueue(e.crop, messages.CropConfirmedEvent{
		EventID:    uuid.NewString(),
		Crop:       crop,
		Thresholds: th,
		Reset:      reset,
		Timestamp:  e.now().UTC(),
	})
}

func (e *MQTTEvents) Indicator(id string, up bool, label string) {
	if !e.seen.ShouldProcess(indicatorKey(id, up)) {
		return
	}
	// the opposite state must go out immediately when it comes back
	e.seen.Forget(indicatorKey(id, !up))
	e.enqueue(e.status, messages.IndicatorChangedEvent{
		EventID:   uuid.NewString(),
		Indicator: id,
		Up:        up,
		Label:     label,
		Timestamp: e.now().UTC(),
	})
}

func indicatorKey(id string, up bool) string {
	return fmt.Sprintf("%s=%t", id, up)
}

// Run publishes queued events until ctx is done.
func (e *MQTTEvents) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-e.queue:
			b, err := json.Marshal(o.payload)
			if err != nil {
				e.log.Printf("events: marshal %T: %v", o.payload, err)
				continue
			}
			if err := o.pub.PublishMessage(b); err != nil {
				e.log.Printf("events: publish error: %v", err)
			}
		}
	}
}
