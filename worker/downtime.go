package worker

import (
	"context"
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/rs/xid"
)

// handleHealthEvent restarts the Garden's downtime check. Gardens without a downtime setting do not get one
func (w *Worker) handleHealthEvent(g *pkg.Garden) {
	downtime := g.GetNotificationSettings().Downtime
	if downtime == nil || downtime.Duration <= 0 {
		w.registry.Cancel(g.ID, JobKindDowntimeCheck)
		return
	}

	job := w.registry.Upsert(newOneTimeJob(g.ID, JobKindDowntimeCheck, clock.Now().Add(downtime.Duration)))
	w.contextLogger(g, nil, nil).Debug("reset downtime check", "fire_time", job.NextFire)
}

// executeDowntimeCheck re-reads the Garden in case its configuration changed after the check was created
func (w *Worker) executeDowntimeCheck(ctx context.Context, gardenID xid.ID) error {
	g, err := w.storageClient.Gardens.Get(ctx, gardenID.String())
	if err != nil {
		return fmt.Errorf("unable to get Garden %q: %w", gardenID, err)
	}
	if g == nil || g.EndDated() {
		return nil
	}

	downtime := g.GetNotificationSettings().Downtime
	if downtime == nil || downtime.Duration <= 0 {
		return nil
	}

	logger := w.contextLogger(g, nil, nil)
	title := fmt.Sprintf("%s is down", g.Name)
	msg := fmt.Sprintf("Garden has been down for > %s", downtime.String())

	err = w.sendNotificationForGarden(ctx, g, title, msg, logger)
	if err != nil {
		return fmt.Errorf("unable to send down notification: %w", err)
	}
	logger.Info("sent down notification")
	return nil
}
