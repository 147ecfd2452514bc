// Package queue persists audit records off the request path.
package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/rbac-system/internal/api/metrics"
	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher routes audit records to a fixed set of workers using consistent
// hashing on the resource id, so records of one resource are written in the
// order they were emitted.
type Dispatcher struct {
	workers []chan *domain.AuditLog
	repo    ports.AuditRepository
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan *domain.AuditLog, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan *domain.AuditLog, channelBuffer)
	}
	return d
}

// Start launches the workers. Writes use ctx values but outlive its
// cancellation so that Close can drain.
func (d *Dispatcher) Start(ctx context.Context) {
	writeCtx := context.WithoutCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(writeCtx, i, ch)
	}
}

// Emit queues a record. It blocks only while the worker's buffer is full.
// Records emitted after Close are logged and dropped.
func (d *Dispatcher) Emit(entry *domain.AuditLog) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("action", string(entry.Action)).Msg("audit record after shutdown dropped")
		return
	}

	idx := d.shardIndex(entry.ResourceID)
	d.workers[idx] <- entry
	metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// Close stops accepting records and waits until every queued record has
// been written.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// shardIndex maps a resource id deterministically to a worker index.
func (d *Dispatcher) shardIndex(resourceID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(resourceID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan *domain.AuditLog) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)

	for entry := range ch {
		metrics.AuditQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))

		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := d.repo.Insert(writeCtx, entry)
		cancel()

		if err != nil {
			metrics.AuditEventsTotal.WithLabelValues(string(entry.Action), "dropped").Inc()
			d.log.Error().Err(err).
				Str("action", string(entry.Action)).
				Str("resource_id", entry.ResourceID).
				Int("worker_id", id).
				Msg("audit write failed")
			continue
		}
		metrics.AuditEventsTotal.WithLabelValues(string(entry.Action), string(entry.Result)).Inc()
	}
}
