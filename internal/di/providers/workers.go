package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/showcase-server/internal/config"
	"github.com/listenupapp/showcase-server/internal/logger"
	"github.com/listenupapp/showcase-server/internal/service"
)

// ReconcileJob runs periodic reconciliation over every showcase.
type ReconcileJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *ReconcileJob) Shutdown() error {
	if j.cancel != nil {
		j.cancel()
	}
	return nil
}

// ProvideReconcileJob provides the background reconciliation job. It is idle
// unless Engine.ReconcileInterval is set.
func ProvideReconcileJob(i do.Injector) (*ReconcileJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	reconciler := do.MustInvoke[*service.ReconcileService](i)
	log := do.MustInvoke[*logger.Logger](i)

	interval := cfg.Engine.ReconcileInterval
	if interval <= 0 {
		log.Info("Background reconciliation disabled")
		return &ReconcileJob{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runReconcile(ctx, reconciler, log)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Background reconciliation started", "interval", interval)

	return &ReconcileJob{cancel: cancel}, nil
}

func runReconcile(ctx context.Context, reconciler *service.ReconcileService, log *logger.Logger) {
	report, err := reconciler.Reconcile(ctx, service.ReconcileOptions{})
	if err != nil {
		log.Warn("Background reconciliation failed", "error", err)
		return
	}

	repaired := 0
	for _, r := range report.Repairs {
		if len(r.Actions) > 0 {
			repaired++
		}
	}
	if repaired > 0 || report.ItemsBackfilled > 0 || len(report.Errors) > 0 {
		log.Info("Background reconciliation completed",
			"examined", report.Examined,
			"repaired", repaired,
			"likes_recounted", report.LikesRecounted,
			"items_backfilled", report.ItemsBackfilled,
			"errors", len(report.Errors),
		)
	}
}
