// Package broadcast fans processing updates out to subscribers. Push delivery
// is per-subscriber buffered channels with drop-oldest overflow, so slow
// consumers lose intermediate progress ticks but always see the latest state;
// the pull path reads current truth straight from the store.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/entity"
	"github.com/kelechi-nwosu/docpipeline/internal/repository"
)

// Update is one processing delta. Only set fields are meaningful; a terminal
// update may omit progress to leave the stream's last progress value intact.
type Update struct {
	DocumentID   uuid.UUID            `json:"documentId"`
	Status       *constants.DocStatus `json:"status,omitempty"`
	Progress     *int                 `json:"progress,omitempty"`
	CurrentStep  *string              `json:"currentStep,omitempty"`
	StepProgress *string              `json:"stepProgress,omitempty"`
	Error        *string              `json:"error,omitempty"`
	LLMProvider  *string              `json:"llmProvider,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

// ActiveCounter reports how many runs are currently in flight.
type ActiveCounter interface {
	Count() int
}

// Subscription is one observer's channel. Close it through Unsubscribe.
type Subscription struct {
	C chan Update

	docID uuid.UUID // uuid.Nil means firehose
}

// Scoped reports whether the subscription follows a single document.
func (s *Subscription) Scoped() bool { return s.docID != uuid.Nil }

const subscriberBuffer = 16

type Broadcaster struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[*Subscription]struct{}
	all  map[*Subscription]struct{}

	docs   repository.DocumentRepository
	active ActiveCounter
	logger *slog.Logger
}

func NewBroadcaster(docs repository.DocumentRepository, active ActiveCounter, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		all:    make(map[*Subscription]struct{}),
		docs:   docs,
		active: active,
		logger: logger,
	}
}

// Subscribe registers a push channel for one document's updates.
func (b *Broadcaster) Subscribe(docID uuid.UUID) *Subscription {
	sub := &Subscription{C: make(chan Update, subscriberBuffer), docID: docID}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[docID] == nil {
		b.subs[docID] = make(map[*Subscription]struct{})
	}
	b.subs[docID][sub] = struct{}{}
	return sub
}

// SubscribeAll registers a push channel receiving every document's updates.
func (b *Broadcaster) SubscribeAll() *Subscription {
	sub := &Subscription{C: make(chan Update, subscriberBuffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.docID != uuid.Nil {
		if set, ok := b.subs[sub.docID]; ok {
			if _, present := set[sub]; present {
				delete(set, sub)
				close(sub.C)
			}
			if len(set) == 0 {
				delete(b.subs, sub.docID)
			}
		}
		return
	}
	if _, present := b.all[sub]; present {
		delete(b.all, sub)
		close(sub.C)
	}
}

// Publish delivers an update to every current subscriber. Never blocks: a full
// subscriber buffer drops its oldest entry, conflating intermediate progress
// while keeping the newest state deliverable.
func (b *Broadcaster) Publish(u Update) {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[u.DocumentID] {
		b.send(sub, u)
	}
	for sub := range b.all {
		b.send(sub, u)
	}
}

func (b *Broadcaster) send(sub *Subscription, u Update) {
	for {
		select {
		case sub.C <- u:
			return
		default:
		}
		// Buffer full: evict the oldest update and retry.
		select {
		case <-sub.C:
			b.logger.Debug("broadcast.conflated", "doc_id", u.DocumentID)
		default:
		}
	}
}

// Snapshot is the pull path: current document truth from the store.
func (b *Broadcaster) Snapshot(ctx context.Context, docID uuid.UUID) (*entity.Document, error) {
	return b.docs.GetByID(ctx, docID)
}

// Stats is the system-wide aggregate snapshot.
func (b *Broadcaster) Stats(ctx context.Context) (entity.Stats, error) {
	processedToday, failed, err := b.docs.CountStats(ctx)
	if err != nil {
		return entity.Stats{}, err
	}
	return entity.Stats{
		ActiveCount:    b.active.Count(),
		ProcessedToday: processedToday,
		FailedCount:    failed,
		SystemStatus:   "operational",
	}, nil
}
