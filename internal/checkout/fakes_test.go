package checkout

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"autocheckout/internal/models"
)

// memStore is an in-memory stand-in for the MySQL repositories. It
// implements BookingRepository, HistorySink, Ledger and SettingsStore.
type memStore struct {
	mu       sync.Mutex
	bookings map[uint]*models.Booking
	history  []models.CheckoutLog
	ledger   map[string]*models.ExecutionLog // date|type
	settings map[string]string

	failClose   map[uint]error
	blockClose  map[uint]bool
	findErr     error
	upsertErr   error
	settingsErr error

	ledgerReads  int
	settingWrite int
}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[uint]*models.Booking),
		ledger:   make(map[string]*models.ExecutionLog),
		settings: map[string]string{
			models.SettingAutoCheckoutEnabled: "1",
			models.SettingAutoCheckoutTime:    "10:00",
			models.SettingLastAutoCheckoutRun: "",
		},
		failClose:  make(map[uint]error),
		blockClose: make(map[uint]bool),
	}
}

func (m *memStore) addBooking(b models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Status == "" {
		b.Status = models.BookingStatusBooked
	}
	if b.ResourceName == "" {
		b.ResourceName = "Room"
	}
	m.bookings[b.ID] = &b
}

func (m *memStore) booking(id uint) models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bookings[id]
}

func (m *memStore) ledgerRow(date string, kind InvocationKind) (models.ExecutionLog, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.ledger[date+"|"+string(kind)]
	if !ok {
		return models.ExecutionLog{}, false
	}
	return *row, true
}

func (m *memStore) historyRows() []models.CheckoutLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CheckoutLog(nil), m.history...)
}

func eligible(b *models.Booking, mode EligibilityMode) bool {
	if b.Status != models.BookingStatusBooked && b.Status != models.BookingStatusPending {
		return false
	}
	return mode == EligibleAllOpen || !b.AutoCheckoutProcessed
}

// --- BookingRepository ---

func (m *memStore) FindEligible(_ context.Context, mode EligibilityMode) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []models.Booking
	for _, b := range m.bookings {
		if eligible(b, mode) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (m *memStore) CountEligible(ctx context.Context, mode EligibilityMode) (int64, error) {
	rows, err := m.FindEligible(ctx, mode)
	return int64(len(rows)), err
}

type stagedClose struct {
	id    uint
	stamp Stamp
	mode  EligibilityMode
}

type memTx struct {
	store   *memStore
	closes  []stagedClose
	history []models.CheckoutLog
}

func (m *memStore) Transaction(ctx context.Context, fn func(tx BookingTx) error) error {
	tx := &memTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range tx.closes {
		b := m.bookings[c.id]
		if !eligible(b, c.mode) {
			return ErrBookingNotEligible
		}
	}
	for _, c := range tx.closes {
		b := m.bookings[c.id]
		at := c.stamp.At
		date, _ := time.ParseInLocation(dateLayout, c.stamp.Date, at.Location())
		tm := c.stamp.Time
		b.Status = models.BookingStatusCompleted
		b.AutoCheckoutProcessed = true
		b.ActualCheckOut = &at
		b.ActualCheckoutDate = &date
		b.ActualCheckoutTime = &tm
	}
	m.history = append(m.history, tx.history...)
	return nil
}

func (t *memTx) MarkClosed(ctx context.Context, id uint, stamp Stamp, mode EligibilityMode) error {
	t.store.mu.Lock()
	failErr := t.store.failClose[id]
	block := t.store.blockClose[id]
	b, ok := t.store.bookings[id]
	stillEligible := ok && eligible(b, mode)
	t.store.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if failErr != nil {
		return failErr
	}
	if !stillEligible {
		return ErrBookingNotEligible
	}
	t.closes = append(t.closes, stagedClose{id: id, stamp: stamp, mode: mode})
	return nil
}

func (t *memTx) AppendHistory(_ context.Context, entry *models.CheckoutLog) error {
	t.history = append(t.history, *entry)
	return nil
}

// --- HistorySink ---

func (m *memStore) Append(_ context.Context, entry *models.CheckoutLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *entry)
	return nil
}

func (m *memStore) CountByDate(_ context.Context, date, status string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, h := range m.history {
		if h.CheckoutDate == date && h.Status == status {
			n++
		}
	}
	return n, nil
}

// --- Ledger ---

func (m *memStore) GetToday(_ context.Context, date string, kind InvocationKind) (*models.ExecutionLog, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgerReads++
	row, ok := m.ledger[date+"|"+string(kind)]
	if !ok {
		return nil, false, nil
	}
	cp := *row
	return &cp, true, nil
}

func (m *memStore) Claim(_ context.Context, entry *models.ExecutionLog, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := entry.ExecutionDate + "|" + entry.ExecutionType
	if existing, ok := m.ledger[key]; ok {
		if existing.BlocksScheduledRun() {
			return false, nil
		}
		if existing.ExecutionStatus == models.ExecutionRunning && existing.UpdatedAt.After(staleBefore) {
			return false, nil
		}
	}
	cp := *entry
	cp.UpdatedAt = entry.ServerTime
	m.ledger[key] = &cp
	return true, nil
}

func (m *memStore) Upsert(_ context.Context, entry *models.ExecutionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *entry
	cp.UpdatedAt = entry.ServerTime
	m.ledger[entry.ExecutionDate+"|"+entry.ExecutionType] = &cp
	return nil
}

// --- SettingsStore ---

func (m *memStore) GetAll(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settingsErr != nil {
		return nil, m.settingsErr
	}
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settingWrite++
	m.settings[key] = value
	return nil
}

// --- optional collaborators ---

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []uint
	err   error
	panic bool
}

func (n *fakeNotifier) NotifyCheckout(_ context.Context, b models.Booking) (bool, error) {
	if n.panic {
		panic("gateway exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return false, n.err
	}
	n.sent = append(n.sent, b.ID)
	return true, nil
}

type fakeMarker struct {
	mu   sync.Mutex
	done map[string]bool
	err  error
}

func newFakeMarker() *fakeMarker {
	return &fakeMarker{done: make(map[string]bool)}
}

func (f *fakeMarker) IsDone(_ context.Context, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.done[date], nil
}

func (f *fakeMarker) MarkDone(_ context.Context, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done[date] = true
	return nil
}

type fakeReporter struct {
	mu      sync.Mutex
	results []Result
}

func (r *fakeReporter) ReportRun(_ context.Context, res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return errors.New("telegram down")
}
