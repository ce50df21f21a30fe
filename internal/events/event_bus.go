// Package events provides the event bus carrying routing decisions and
// operational events to the API feed and the system monitor.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shareseek/signal-engine/pkg/types"
	"github.com/shareseek/signal-engine/pkg/utils"
	"go.uber.org/zap"
)

// EventType defines the category of event.
type EventType string

const (
	EventTypeDecision  EventType = "decision"  // accepted or rejected signal
	EventTypeFault     EventType = "fault"     // pipeline fault (collaborator failure)
	EventTypePromotion EventType = "promotion" // paper-to-live symbol graduation
	EventTypeHealth    EventType = "health"    // system health report
)

// Event is the base interface for all engine events.
type Event interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetID() string
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *BaseEvent) GetType() EventType      { return e.Type }
func (e *BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e *BaseEvent) GetID() string           { return e.ID }

// NewBaseEvent creates a new base event with generated ID and timestamp.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        utils.GenerateID("evt"),
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

// DecisionEvent is published for every terminal routing decision.
type DecisionEvent struct {
	BaseEvent
	Signal *types.Signal `json:"signal"`
}

// FaultEvent is published when an evaluation pass aborts on a collaborator
// fault. Faults never enter the signal log; this is their surfacing path.
type FaultEvent struct {
	BaseEvent
	Symbol string `json:"symbol"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// PromotionEvent is published when a symbol graduates from paper to live.
type PromotionEvent struct {
	BaseEvent
	Symbol  string  `json:"symbol"`
	Trades  int     `json:"trades"`
	WinRate float64 `json:"winRate"`
}

// HealthEvent carries a system health report.
type HealthEvent struct {
	BaseEvent
	Report any `json:"report"`
}

// EventHandler is a function that processes events.
type EventHandler func(event Event) error

// EventFilter can selectively process events.
type EventFilter func(event Event) bool

// SubscriptionOptions configures subscription behavior.
type SubscriptionOptions struct {
	Filter EventFilter // optional filter
	Async  bool        // process in a separate goroutine
}

// Subscription represents an active event subscription.
type Subscription struct {
	ID        string
	EventType EventType
	Handler   EventHandler
	Options   SubscriptionOptions
	active    atomic.Bool
}

// IsActive returns whether the subscription is active.
func (s *Subscription) IsActive() bool { return s.active.Load() }

// Stats tracks bus counters.
type Stats struct {
	EventsPublished   int64 `json:"eventsPublished"`
	EventsProcessed   int64 `json:"eventsProcessed"`
	EventsDropped     int64 `json:"eventsDropped"`
	ProcessingErrors  int64 `json:"processingErrors"`
	ActiveSubscribers int64 `json:"activeSubscribers"`
}

// EventBus routes events from the router and stores to subscribers.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]*Subscription

	eventChan   chan Event
	workerCount int

	eventsPublished   atomic.Int64
	eventsProcessed   atomic.Int64
	eventsDropped     atomic.Int64
	processingErrors  atomic.Int64
	activeSubscribers atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.Logger
}

// Config configures the event bus.
type Config struct {
	NumWorkers int `json:"numWorkers"`
	BufferSize int `json:"bufferSize"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{NumWorkers: 4, BufferSize: 4096}
}

// NewEventBus creates an event bus and starts its workers.
func NewEventBus(logger *zap.Logger, config Config) *EventBus {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 4
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		subscribers: make(map[EventType][]*Subscription),
		eventChan:   make(chan Event, config.BufferSize),
		workerCount: config.NumWorkers,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("events"),
	}

	for i := 0; i < eb.workerCount; i++ {
		eb.wg.Add(1)
		go eb.worker()
	}

	eb.logger.Info("event bus started",
		zap.Int("workers", config.NumWorkers),
		zap.Int("bufferSize", config.BufferSize),
	)
	return eb
}

func (eb *EventBus) worker() {
	defer eb.wg.Done()
	for {
		select {
		case <-eb.ctx.Done():
			return
		case event := <-eb.eventChan:
			eb.processEvent(event)
		}
	}
}

func (eb *EventBus) processEvent(event Event) {
	eb.mu.RLock()
	subs := eb.subscribers[event.GetType()]
	eb.mu.RUnlock()

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		if sub.Options.Filter != nil && !sub.Options.Filter(event) {
			continue
		}
		if sub.Options.Async {
			go eb.executeHandler(sub, event)
		} else {
			eb.executeHandler(sub, event)
		}
	}
	eb.eventsProcessed.Add(1)
}

// executeHandler runs a handler with panic recovery.
func (eb *EventBus) executeHandler(sub *Subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.processingErrors.Add(1)
			eb.logger.Error("event handler panic",
				zap.String("subscriptionId", sub.ID),
				zap.String("eventType", string(event.GetType())),
				zap.Any("panic", r),
			)
		}
	}()

	if err := sub.Handler(event); err != nil {
		eb.processingErrors.Add(1)
		eb.logger.Warn("event handler error",
			zap.String("subscriptionId", sub.ID),
			zap.String("eventType", string(event.GetType())),
			zap.Error(err),
		)
	}
}

// Publish enqueues an event. Events are dropped, counted, and logged when the
// buffer is full rather than blocking the publisher.
func (eb *EventBus) Publish(event Event) {
	select {
	case eb.eventChan <- event:
		eb.eventsPublished.Add(1)
	default:
		eb.eventsDropped.Add(1)
		eb.logger.Warn("event dropped, buffer full",
			zap.String("eventType", string(event.GetType())),
		)
	}
}

// Subscribe registers a handler for an event type and returns the
// subscription for later cancellation.
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler, opts SubscriptionOptions) *Subscription {
	sub := &Subscription{
		ID:        utils.GenerateID("sub"),
		EventType: eventType,
		Handler:   handler,
		Options:   opts,
	}
	sub.active.Store(true)

	eb.mu.Lock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], sub)
	eb.mu.Unlock()

	eb.activeSubscribers.Add(1)
	return sub
}

// Unsubscribe deactivates a subscription.
func (eb *EventBus) Unsubscribe(sub *Subscription) {
	if sub.active.CompareAndSwap(true, false) {
		eb.activeSubscribers.Add(-1)
	}
}

// GetStats returns current bus counters.
func (eb *EventBus) GetStats() Stats {
	return Stats{
		EventsPublished:   eb.eventsPublished.Load(),
		EventsProcessed:   eb.eventsProcessed.Load(),
		EventsDropped:     eb.eventsDropped.Load(),
		ProcessingErrors:  eb.processingErrors.Load(),
		ActiveSubscribers: eb.activeSubscribers.Load(),
	}
}

// Stop drains workers and shuts the bus down.
func (eb *EventBus) Stop() {
	eb.cancel()
	eb.wg.Wait()
	eb.logger.Info("event bus stopped", zap.Int64("processed", eb.eventsProcessed.Load()))
}
