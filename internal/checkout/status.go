package checkout

import (
	"context"
	"fmt"
	"time"

	"autocheckout/internal/models"
)

// StatusReport is the operator dashboard view of the engine.
type StatusReport struct {
	Enabled          bool                 `json:"enabled"`
	TargetTime       string               `json:"target_time"`
	GraceMinutes     int                  `json:"grace_minutes"`
	Timezone         string               `json:"timezone"`
	CurrentTime      time.Time            `json:"current_time"`
	LastRun          string               `json:"last_run"`
	OpenBookings     int64                `json:"open_bookings"`
	EligibleBookings int64                `json:"eligible_bookings"`
	TodayCheckouts   int64                `json:"today_checkouts"`
	TodayExecution   *models.ExecutionLog `json:"today_execution"`
	NextRun          *time.Time           `json:"next_run"`
	MinutesUntilNext int                  `json:"minutes_until_next"`
	TriggerHealthy   bool                 `json:"trigger_healthy"`
}

// Status reads the current state without mutating anything.
func (e *Executor) Status(ctx context.Context) (StatusReport, error) {
	raw, err := e.settings.GetAll(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("load settings: %w", err)
	}
	s := ParseSettings(raw, e.opts.Location, e.logger)
	now := e.now()
	today := now.Format(dateLayout)
	// Inside a window that opened yesterday the ledger key is yesterday's date.
	runDate, _ := Window(now, s.TargetTime, e.opts.Grace)

	rep := StatusReport{
		Enabled:      s.Enabled,
		TargetTime:   s.TargetTime.String(),
		GraceMinutes: int(e.opts.Grace / time.Minute),
		Timezone:     e.opts.Location.String(),
		CurrentTime:  now,
		LastRun:      s.LastRunRaw,
	}

	if rep.OpenBookings, err = e.bookings.CountEligible(ctx, EligibleAllOpen); err != nil {
		return StatusReport{}, fmt.Errorf("count open bookings: %w", err)
	}
	if rep.EligibleBookings, err = e.bookings.CountEligible(ctx, EligibleUnprocessed); err != nil {
		return StatusReport{}, fmt.Errorf("count eligible bookings: %w", err)
	}
	if rep.TodayCheckouts, err = e.history.CountByDate(ctx, today, models.CheckoutLogSuccess); err != nil {
		return StatusReport{}, fmt.Errorf("count today's checkouts: %w", err)
	}

	entry, found, err := e.ledger.GetToday(ctx, runDate, KindScheduled)
	if err != nil {
		return StatusReport{}, fmt.Errorf("read execution ledger: %w", err)
	}
	doneToday := false
	if found {
		rep.TodayExecution = entry
		doneToday = entry.BlocksScheduledRun()
	}

	if s.Enabled {
		next := NextRun(now, s.TargetTime, doneToday && runDate == today)
		rep.NextRun = &next
		rep.MinutesUntilNext = int(next.Sub(now) / time.Minute)
	}
	if !s.LastRun.IsZero() {
		rep.TriggerHealthy = now.Sub(s.LastRun) < 24*time.Hour
	}
	return rep, nil
}
