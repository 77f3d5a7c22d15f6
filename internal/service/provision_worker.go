package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ProvisionWorker polls for PENDING provisioning jobs and executes them.
// There is no leader election: multiple workers may poll concurrently, and
// the PENDING→EXECUTING status guard makes each job execute at most once per
// pickup. A job interrupted mid-execution stays EXECUTING and is reconciled
// by a later SYSTEM_RECOVERY job.
type ProvisionWorker struct {
	orch     *Orchestrator
	repo     ProvisioningRepo
	log      *logrus.Logger
	interval time.Duration
	batch    int
}

// NewProvisionWorker creates a ProvisionWorker.
func NewProvisionWorker(orch *Orchestrator, repo ProvisioningRepo, log *logrus.Logger, interval time.Duration, batch int) *ProvisionWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batch <= 0 {
		batch = 5
	}
	return &ProvisionWorker{
		orch:     orch,
		repo:     repo,
		log:      log,
		interval: interval,
		batch:    batch,
	}
}

// Run polls until the context is cancelled. It should be run as a goroutine.
func (w *ProvisionWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick executes one poll cycle.
func (w *ProvisionWorker) tick(ctx context.Context) {
	jobs, err := w.repo.ListPendingJobs(ctx, w.batch)
	if err != nil {
		w.log.WithError(err).Error("failed to list pending provisioning jobs")
		return
	}

	for i := range jobs {
		if ctx.Err() != nil {
			return
		}

		// Execute records failures on the job itself; the error here is
		// only for operator visibility.
		if err := w.orch.Execute(ctx, &jobs[i]); err != nil {
			w.log.WithError(err).WithField("job_id", jobs[i].ID).Error("provisioning job execution failed")
		}
	}
}
