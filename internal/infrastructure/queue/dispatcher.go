package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/diagramstudio/diagram-api/internal/api/metrics"
	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// AuditDispatcher persists audit events off the request path. Events are
// sharded by user id onto a fixed set of workers, which keeps each user's
// trail in order. Record never blocks: when a worker channel is full the
// event is dropped and counted.
type AuditDispatcher struct {
	workers   []chan domain.AuditEvent
	repo      ports.AuditRepository
	publisher ports.AuditPublisher
	log       zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewAuditDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. publisher may be nil.
func NewAuditDispatcher(numWorkers int, repo ports.AuditRepository, publisher ports.AuditPublisher, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers:   make([]chan domain.AuditEvent, numWorkers),
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

var _ ports.AuditRecorder = (*AuditDispatcher)(nil)

// Start launches all worker goroutines. Workers drain their channel and exit
// after Stop; ctx only bounds the individual writes.
func (d *AuditDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Record enqueues event on the worker responsible for its user.
func (d *AuditDispatcher) Record(event domain.AuditEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(event, "dispatcher stopped")
		return
	}

	idx := d.shardIndex(event)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(event, "queue full")
	}
}

// Stop closes the worker channels and waits until queued events are written.
func (d *AuditDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *AuditDispatcher) drop(event domain.AuditEvent, reason string) {
	metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
	d.log.Warn().
		Str("audit_id", event.ID).
		Str("action", string(event.Action)).
		Str("user_id", event.UserID).
		Str("reason", reason).
		Msg("audit event dropped")
}

// shardIndex maps an event deterministically to a worker index. Anonymous
// events are spread by their own id.
func (d *AuditDispatcher) shardIndex(event domain.AuditEvent) int {
	key := event.UserID
	if key == "" {
		key = event.ID
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for event := range ch {
		metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		d.write(ctx, id, event)
	}
}

func (d *AuditDispatcher) write(ctx context.Context, workerID int, event domain.AuditEvent) {
	// Queued events still get written during shutdown.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.AuditWriteDuration.Observe(time.Since(start).Seconds()) }()

	if err := d.repo.Insert(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues("store_failed").Inc()
		d.log.Error().Err(err).
			Str("audit_id", event.ID).
			Str("action", string(event.Action)).
			Int("worker_id", workerID).
			Msg("audit insert failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues("stored").Inc()

	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues("publish_failed").Inc()
		d.log.Warn().Err(err).
			Str("audit_id", event.ID).
			Int("worker_id", workerID).
			Msg("audit publish failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues("published").Inc()
}
