// Package checkout runs the daily automatic checkout of open bookings.
//
// Three entry points share one Executor: the frequent scheduled trigger,
// which is gated by the execution window and the per-date ledger, and the
// manual and forced operator triggers, which skip both gates.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"autocheckout/internal/clock"
	"autocheckout/internal/models"
)

// Options tunes the executor. Zero values take the package defaults.
type Options struct {
	Location       *time.Location
	Grace          time.Duration
	BookingTimeout time.Duration
	ClaimTTL       time.Duration
}

const (
	defaultGrace          = 5 * time.Minute
	defaultBookingTimeout = 15 * time.Second
	defaultClaimTTL       = 15 * time.Minute
)

// Deps are the collaborators of an Executor. Notifier, Marker and Reporter
// are optional.
type Deps struct {
	Bookings BookingRepository
	History  HistorySink
	Ledger   Ledger
	Settings SettingsStore
	Notifier Notifier
	Marker   RunMarker
	Reporter Reporter
	Clock    clock.Clock
}

// Executor decides whether an invocation acts, then closes eligible bookings.
type Executor struct {
	bookings BookingRepository
	history  HistorySink
	ledger   Ledger
	settings SettingsStore
	notifier Notifier
	marker   RunMarker
	reporter Reporter
	clock    clock.Clock
	opts     Options
	logger   *zap.Logger
}

// New creates an Executor.
func New(deps Deps, opts Options, logger *zap.Logger) *Executor {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Grace <= 0 {
		opts.Grace = defaultGrace
	}
	if opts.BookingTimeout <= 0 {
		opts.BookingTimeout = defaultBookingTimeout
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = defaultClaimTTL
	}
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		bookings: deps.Bookings,
		history:  deps.History,
		ledger:   deps.Ledger,
		settings: deps.Settings,
		notifier: deps.Notifier,
		marker:   deps.Marker,
		reporter: deps.Reporter,
		clock:    deps.Clock,
		opts:     opts,
		logger:   logger.Named("checkout"),
	}
}

// RunTest runs the normal eligibility rules without time or ledger gates.
func (e *Executor) RunTest(ctx context.Context) Result {
	return e.Execute(ctx, KindManual)
}

// RunForceAll closes every open booking, processed flag or not.
func (e *Executor) RunForceAll(ctx context.Context) Result {
	return e.Execute(ctx, KindForced)
}

// Execute performs one invocation. It never returns an error: run-level
// failures are reported as OutcomeError in the result.
func (e *Executor) Execute(ctx context.Context, kind InvocationKind) (res Result) {
	res = Result{
		RunID:      uuid.NewString(),
		Kind:       kind,
		Timezone:   e.opts.Location.String(),
		StartedAt:  e.now(),
		Successful: []BookingSummary{},
		Failures:   []BookingFailure{},
	}
	log := e.logger.With(zap.String("run_id", res.RunID), zap.String("kind", string(kind)))
	log.Info("Auto checkout invoked", zap.Time("local_time", res.StartedAt))

	st := &runState{res: &res, log: log}
	defer func() {
		if r := recover(); r != nil {
			log.Error("Auto checkout panicked", zap.Any("panic", r), zap.Stack("stack"))
			e.fail(ctx, st, fmt.Errorf("panic: %v", r))
		}
		res.FinishedAt = e.now()
	}()

	if !kind.Valid() {
		e.fail(ctx, st, fmt.Errorf("unknown invocation kind %q", kind))
		return res
	}

	if err := e.run(ctx, st); err != nil {
		e.fail(ctx, st, err)
	}

	fields := []zap.Field{
		zap.String("outcome", string(res.Outcome)),
		zap.String("date", res.Date),
		zap.Int("found", res.Found),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
	}
	if res.Outcome == OutcomeError {
		log.Error("Auto checkout finished with error", append(fields, zap.String("error", res.Message))...)
	} else {
		log.Info("Auto checkout finished", fields...)
	}

	e.report(ctx, res, log)
	return res
}

// runState tracks what a run has done so failure handling knows whether it
// owns today's scheduled ledger row.
type runState struct {
	res     *Result
	log     *zap.Logger
	claimed bool
	now     time.Time
}

func (e *Executor) run(ctx context.Context, st *runState) error {
	res := st.res

	raw, err := e.settings.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	s := ParseSettings(raw, e.opts.Location, st.log)
	if !s.Enabled {
		res.Outcome = OutcomeDisabled
		res.Message = "Auto checkout is disabled"
		return nil
	}

	st.now = e.now()
	res.Date = st.now.Format(dateLayout)

	if res.Kind == KindScheduled {
		proceed, err := e.gate(ctx, st, s)
		if err != nil || !proceed {
			return err
		}
	}

	mode := EligibleUnprocessed
	if res.Kind == KindForced {
		mode = EligibleAllOpen
	}
	bookings, err := e.bookings.FindEligible(ctx, mode)
	if err != nil {
		return fmt.Errorf("find eligible bookings: %w", err)
	}
	res.Found = len(bookings)
	st.log.Info("Eligible bookings loaded", zap.Int("count", res.Found))

	if len(bookings) == 0 {
		res.Outcome = OutcomeNoBookings
		res.Message = "No active bookings found for checkout"
		return e.record(ctx, st)
	}

	for _, b := range bookings {
		summary := summarize(b)
		if err := e.closeBooking(ctx, res.RunID, b, mode, st.log); err != nil {
			res.Failed++
			res.Failures = append(res.Failures, BookingFailure{Booking: summary, Reason: err.Error()})
			continue
		}
		res.Succeeded++
		res.Successful = append(res.Successful, summary)
	}
	res.Processed = res.Succeeded + res.Failed

	switch {
	case res.Failed == 0:
		res.Outcome = OutcomeSuccess
	case res.Succeeded > 0:
		res.Outcome = OutcomePartial
	default:
		res.Outcome = OutcomeFailed
	}
	res.Message = fmt.Sprintf("Processed %d bookings: %d succeeded, %d failed", res.Processed, res.Succeeded, res.Failed)

	return e.record(ctx, st)
}

// gate applies the window and once-per-day checks of a scheduled run. On
// proceed it has claimed today's scheduled ledger row.
func (e *Executor) gate(ctx context.Context, st *runState, s Settings) (bool, error) {
	res := st.res

	date, in := Window(st.now, s.TargetTime, e.opts.Grace)
	if !in {
		end := s.TargetTime.On(st.now).Add(e.opts.Grace)
		res.Outcome = OutcomeWrongTime
		res.Message = fmt.Sprintf("Current time %s is outside the execution window %s-%s (%s)",
			st.now.Format("15:04"), s.TargetTime, end.Format("15:04"), res.Timezone)
		return false, nil
	}
	res.Date = date

	if e.doneByMarker(ctx, date, st.log) {
		res.Outcome = OutcomeAlreadyRun
		res.Message = "Auto checkout already executed today"
		return false, nil
	}

	entry, found, err := e.ledger.GetToday(ctx, date, KindScheduled)
	if err != nil {
		return false, fmt.Errorf("read execution ledger: %w", err)
	}
	if found && entry.BlocksScheduledRun() {
		e.markDone(ctx, date, st.log)
		res.Outcome = OutcomeAlreadyRun
		res.Message = fmt.Sprintf("Auto checkout already executed today (%s at %s)", entry.ExecutionStatus, entry.ExecutionTime)
		return false, nil
	}

	claim := &models.ExecutionLog{
		ExecutionDate:   date,
		ExecutionType:   string(KindScheduled),
		ExecutionTime:   st.now.Format(timeLayout),
		RunID:           res.RunID,
		ExecutionStatus: models.ExecutionRunning,
		ServerTime:      st.now,
	}
	claimed, err := e.ledger.Claim(ctx, claim, st.now.Add(-e.opts.ClaimTTL))
	if err != nil {
		return false, fmt.Errorf("claim execution ledger: %w", err)
	}
	if !claimed {
		res.Outcome = OutcomeAlreadyRun
		res.Message = "Another scheduled run holds today's ledger entry"
		return false, nil
	}
	st.claimed = true
	return true, nil
}

// record writes the run's ledger entry and the last-run marker.
func (e *Executor) record(ctx context.Context, st *runState) error {
	res := st.res
	if err := e.ledger.Upsert(ctx, ledgerEntry(*res, st.now, e.now())); err != nil {
		return fmt.Errorf("record execution: %w", err)
	}

	if err := e.settings.Set(ctx, models.SettingLastAutoCheckoutRun, e.now().Format(time.RFC3339)); err != nil {
		st.log.Warn("Failed to update last run marker", zap.Error(err))
	}

	if res.Kind == KindScheduled && ledgerBlocks(res.Outcome) {
		e.markDone(ctx, res.Date, st.log)
	}
	return nil
}

// fail turns a run-level error into OutcomeError. A scheduled run that owns
// today's claim rewrites it as error so the next trigger may retry.
func (e *Executor) fail(ctx context.Context, st *runState, err error) {
	res := st.res
	res.Outcome = OutcomeError
	res.Message = err.Error()
	res.Processed = res.Succeeded + res.Failed

	if res.Kind == KindScheduled && !st.claimed {
		return
	}
	if !res.Kind.Valid() || res.Date == "" {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.BookingTimeout)
	defer cancel()
	if lerr := e.ledger.Upsert(wctx, ledgerEntry(*res, st.now, e.now())); lerr != nil {
		st.log.Error("Failed to record execution error", zap.Error(lerr))
	}
}

func (e *Executor) doneByMarker(ctx context.Context, date string, log *zap.Logger) bool {
	if e.marker == nil {
		return false
	}
	done, err := e.marker.IsDone(ctx, date)
	if err != nil {
		log.Warn("Run marker unavailable, falling back to ledger", zap.Error(err))
		return false
	}
	return done
}

func (e *Executor) markDone(ctx context.Context, date string, log *zap.Logger) {
	if e.marker == nil {
		return
	}
	if err := e.marker.MarkDone(ctx, date); err != nil {
		log.Warn("Failed to set run marker", zap.String("date", date), zap.Error(err))
	}
}

func (e *Executor) report(ctx context.Context, res Result, log *zap.Logger) {
	if e.reporter == nil || res.Outcome.Skipped() {
		return
	}
	if err := e.reporter.ReportRun(ctx, res); err != nil {
		log.Warn("Failed to report run", zap.Error(err))
	}
}

func (e *Executor) now() time.Time {
	return e.clock.Now().In(e.opts.Location)
}

func ledgerBlocks(o Outcome) bool {
	return o == OutcomeSuccess || o == OutcomePartial || o == OutcomeNoBookings
}

func ledgerEntry(res Result, started, written time.Time) *models.ExecutionLog {
	if started.IsZero() {
		started = written
	}
	return &models.ExecutionLog{
		ExecutionDate:      res.Date,
		ExecutionType:      string(res.Kind),
		ExecutionTime:      started.Format(timeLayout),
		RunID:              res.RunID,
		BookingsFound:      res.Found,
		BookingsProcessed:  res.Processed,
		BookingsSuccessful: res.Succeeded,
		BookingsFailed:     res.Failed,
		ExecutionStatus:    string(res.Outcome),
		ErrorMessage:       ledgerNote(res),
		ServerTime:         written,
	}
}

func ledgerNote(res Result) string {
	switch res.Outcome {
	case OutcomeError:
		return res.Message
	case OutcomeNoBookings:
		return "No active bookings found"
	case OutcomePartial, OutcomeFailed:
		return fmt.Sprintf("%d of %d bookings failed", res.Failed, res.Processed)
	}
	if res.Kind == KindForced {
		return "Force checkout executed"
	}
	return ""
}

func summarize(b models.Booking) BookingSummary {
	return BookingSummary{
		ID:           b.ID,
		ResourceID:   b.ResourceID,
		ResourceName: b.ResourceName,
		GuestName:    b.ClientName,
		CheckIn:      b.CheckIn,
	}
}
