package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/metrics"
	"github.com/tenantguardhq/tenantguard/internal/models"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// AuditWorker buffers audit entries and writes them via a single worker
// goroutine, so audit persistence never sits on a request path. It satisfies
// AuditSink and can be placed in front of the store-backed sink.
type AuditWorker struct {
	sink AuditSink
	log  *logrus.Logger
	jobs chan models.AuditEntry
}

// NewAuditWorker creates an AuditWorker with the given queue capacity.
func NewAuditWorker(sink AuditSink, log *logrus.Logger, queueSize int) *AuditWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &AuditWorker{
		sink: sink,
		log:  log,
		jobs: make(chan models.AuditEntry, queueSize),
	}
}

// InsertEntry enqueues an audit entry. Non-blocking; drops the entry if the
// queue is full. Isolation decisions never depend on this write succeeding.
func (w *AuditWorker) InsertEntry(_ context.Context, e models.AuditEntry) error {
	select {
	case w.jobs <- e:
		metrics.AuditQueueDepth.Set(float64(len(w.jobs)))
	default:
		w.log.WithField("action", e.Action).Warn("audit queue full, dropping entry")
	}
	return nil
}

// Run processes audit entries until the context is cancelled, then drains
// remaining entries.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case e := <-w.jobs:
			w.process(e)
		}
	}
}

func (w *AuditWorker) drain() {
	for {
		select {
		case e := <-w.jobs:
			w.process(e)
		default:
			return
		}
	}
}

// process writes one entry under the entry's own tenant scope. The caller's
// request context is gone by now, so a fresh background scope is built from
// the entry itself.
func (w *AuditWorker) process(e models.AuditEntry) {
	metrics.AuditQueueDepth.Set(float64(len(w.jobs)))

	scope := tenantctx.TenantContext{
		TenantID:  e.TenantID,
		ActorID:   e.ActorID,
		ActorType: tenantctx.ActorSystem,
	}

	err := tenantctx.Run(context.Background(), scope, func(ctx context.Context) error {
		return w.sink.InsertEntry(ctx, e)
	})
	if err != nil {
		w.log.WithError(err).Warn("audit record failed")
	}
}
