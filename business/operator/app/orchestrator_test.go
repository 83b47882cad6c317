package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	exchangeApp "github.com/fd1az/depositwatch/business/exchange/app"
	exchange "github.com/fd1az/depositwatch/business/exchange/domain"
	"github.com/fd1az/depositwatch/business/operator/domain"
	watchApp "github.com/fd1az/depositwatch/business/watch/app"
	watchDomain "github.com/fd1az/depositwatch/business/watch/domain"
	"github.com/fd1az/depositwatch/internal/i18n"
	"github.com/fd1az/depositwatch/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

// recordingNotifier captures sent messages and signals each send.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	menus    []Menu
	photos   []string
	signal   chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{signal: make(chan struct{}, 64)}
}

func (n *recordingNotifier) Send(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	n.messages = append(n.messages, text)
	n.mu.Unlock()
	n.signal <- struct{}{}
	return nil
}

func (n *recordingNotifier) SendMenu(ctx context.Context, chatID int64, text string, menu Menu) error {
	n.mu.Lock()
	n.messages = append(n.messages, text)
	n.menus = append(n.menus, menu)
	n.mu.Unlock()
	n.signal <- struct{}{}
	return nil
}

func (n *recordingNotifier) SendPhoto(ctx context.Context, chatID int64, path string) error {
	n.mu.Lock()
	n.photos = append(n.photos, path)
	n.mu.Unlock()
	n.signal <- struct{}{}
	return nil
}

func (n *recordingNotifier) allPhotos() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.photos))
	copy(out, n.photos)
	return out
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	copy(out, n.messages)
	return out
}

// waitFor blocks until a message containing substr was sent.
func (n *recordingNotifier) waitFor(t *testing.T, substr string) string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		for _, msg := range n.all() {
			if strings.Contains(msg, substr) {
				return msg
			}
		}
		select {
		case <-n.signal:
		case <-deadline:
			t.Fatalf("no message containing %q; got %v", substr, n.all())
		}
	}
}

// memoryStore is an in-memory SessionStore.
type memoryStore struct {
	mu    sync.Mutex
	snap  Snapshot
	found bool
}

func (s *memoryStore) Load() (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.found, nil
}

func (s *memoryStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.found = true
	return nil
}

// fakeGateway serves scripted deposits, optionally blocking until released.
type fakeGateway struct {
	id       exchange.ExchangeID
	deposits []exchange.Deposit
	block    chan struct{}
}

func (g *fakeGateway) ID() exchange.ExchangeID { return g.id }

func (g *fakeGateway) ListDeposits(ctx context.Context, asset string, since time.Time) ([]exchange.Deposit, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.deposits, nil
}

var _ exchangeApp.Gateway = (*fakeGateway)(nil)

// instantClock advances on After without sleeping.
type instantClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func newOrchestrator(t *testing.T, gw exchangeApp.Gateway, store SessionStore, assetsDir string) (*Orchestrator, *recordingNotifier) {
	t.Helper()

	translator, err := i18n.NewTranslator()
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}

	notifier := newRecordingNotifier()
	factory := watchApp.NewReconcilerFactory(
		watchDomain.NewMatcher(decimal.RequireFromString("98")),
		&instantClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		watchApp.ReconcilerConfig{
			Asset:        "USDT",
			MaxDuration:  3 * time.Minute,
			PollInterval: 5 * time.Second,
			Lookback:     3 * time.Minute,
		},
		&mockLogger{},
	)

	orch := NewOrchestrator(
		domain.NewSession(decimal.RequireFromString("25700")),
		domain.NewLedger(),
		exchangeApp.NewRegistry(gw),
		factory,
		notifier,
		store,
		translator,
		assetsDir,
		time.UTC,
		&mockLogger{},
	)
	return orch, notifier
}

func TestOrchestrator_FullWatchFlow(t *testing.T) {
	gw := &fakeGateway{
		id: exchange.Binance,
		deposits: []exchange.Deposit{{
			Exchange: exchange.Binance,
			Currency: "USDT",
			Amount:   decimal.RequireFromString("99.5"),
			Status:   exchange.StatusOK,
		}},
	}
	store := &memoryStore{}
	orch, notifier := newOrchestrator(t, gw, store, "")
	ctx := context.Background()

	orch.HandleCallback(ctx, 1, "SELECT_binance")
	notifier.waitFor(t, "Binance selected")

	// 2570000 VND at 25700 is exactly 100 USDT.
	orch.HandleText(ctx, 1, "2570000")
	msg := notifier.waitFor(t, "You entered 2570000")
	if !strings.Contains(msg, "100 USDT") {
		t.Errorf("conversion message = %q, want it to quote 100 USDT", msg)
	}

	// The gateway's 99.5 deposit is inside the 98..102 band.
	notifier.waitFor(t, "Deposit received: 99.5")

	total, entries, ok := orch.ledger.TotalFor(exchange.Binance)
	if !ok {
		t.Fatal("ledger has no binance balance")
	}
	if !total.Equal(decimal.RequireFromString("99.5")) {
		t.Errorf("ledger total = %s, want the matched deposit amount 99.5", total)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}

	// The session returns to idle and the snapshot was persisted.
	waitIdle(t, orch)
	if !store.found {
		t.Error("snapshot was not persisted")
	}
}

func TestOrchestrator_RejectsAmountWhileFrozen(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{id: exchange.Binance, block: release}
	orch, notifier := newOrchestrator(t, gw, &memoryStore{}, "")
	ctx := context.Background()

	orch.HandleCallback(ctx, 1, "SELECT_binance")
	orch.HandleText(ctx, 1, "2570000")
	notifier.waitFor(t, "Watching for a deposit")

	// Second amount while the watch is running.
	orch.HandleText(ctx, 1, "500000")
	notifier.waitFor(t, "already running")

	close(release)
	waitIdle(t, orch)
}

func TestOrchestrator_CancelThenReselectSurvivesStaleWatch(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{id: exchange.Binance, block: release}
	orch, notifier := newOrchestrator(t, gw, &memoryStore{}, "")
	ctx := context.Background()

	orch.HandleCallback(ctx, 1, "SELECT_binance")
	orch.HandleText(ctx, 1, "2570000")
	notifier.waitFor(t, "Watching for a deposit")

	// Cancel while the gateway call is still in flight, then pick again.
	orch.HandleCallback(ctx, 1, "SELECT_2_button")
	notifier.waitFor(t, "The session was cancelled")
	orch.HandleCallback(ctx, 1, "SELECT_binance")

	close(release)

	// The old goroutine wakes up and exits as cancelled; the fresh
	// selection must survive its terminal transition.
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		if orch.session.State() != domain.StateExchangeSelected {
			t.Fatalf("state = %s, re-selected exchange was wiped", orch.session.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ex, ok := orch.session.Exchange(); !ok || ex != exchange.Binance {
		t.Errorf("exchange = %s, want binance still selected", ex)
	}
}

func TestOrchestrator_SendsPaymentPhotoOnSessionStart(t *testing.T) {
	assets := t.TempDir()
	qr := filepath.Join(assets, "binance.jpg")
	if err := os.WriteFile(qr, []byte("jpg"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	gw := &fakeGateway{
		id: exchange.Binance,
		deposits: []exchange.Deposit{{
			Exchange: exchange.Binance,
			Currency: "USDT",
			Amount:   decimal.RequireFromString("100"),
			Status:   exchange.StatusOK,
		}},
	}
	orch, notifier := newOrchestrator(t, gw, &memoryStore{}, assets)
	ctx := context.Background()

	orch.HandleCallback(ctx, 1, "SELECT_binance")
	orch.HandleText(ctx, 1, "2570000")
	notifier.waitFor(t, "Watching for a deposit")

	photos := notifier.allPhotos()
	if len(photos) != 1 || photos[0] != qr {
		t.Errorf("photos = %v, want the binance QR image %s", photos, qr)
	}

	waitIdle(t, orch)
}

func TestOrchestrator_MissingPhotoAssetIsSkipped(t *testing.T) {
	gw := &fakeGateway{
		id: exchange.Binance,
		deposits: []exchange.Deposit{{
			Exchange: exchange.Binance,
			Currency: "USDT",
			Amount:   decimal.RequireFromString("100"),
			Status:   exchange.StatusOK,
		}},
	}
	orch, notifier := newOrchestrator(t, gw, &memoryStore{}, t.TempDir())
	ctx := context.Background()

	orch.HandleCallback(ctx, 1, "SELECT_binance")
	orch.HandleText(ctx, 1, "2570000")
	notifier.waitFor(t, "Watching for a deposit")

	if photos := notifier.allPhotos(); len(photos) != 0 {
		t.Errorf("photos = %v, want none for a missing asset", photos)
	}
	waitIdle(t, orch)
}

func TestOrchestrator_RequiresExchange(t *testing.T) {
	gw := &fakeGateway{id: exchange.Binance}
	orch, notifier := newOrchestrator(t, gw, &memoryStore{}, "")

	orch.HandleText(context.Background(), 1, "100000")
	notifier.waitFor(t, "Select an exchange")
}

func TestOrchestrator_InvalidAmount(t *testing.T) {
	gw := &fakeGateway{id: exchange.Binance}
	orch, notifier := newOrchestrator(t, gw, &memoryStore{}, "")
	ctx := context.Background()

	orch.HandleCallback(ctx, 1, "SELECT_binance")
	orch.HandleText(ctx, 1, "not-a-number")
	notifier.waitFor(t, "valid amount")
}

func TestOrchestrator_SetRate(t *testing.T) {
	gw := &fakeGateway{id: exchange.Binance}
	orch, notifier := newOrchestrator(t, gw, &memoryStore{}, "")
	ctx := context.Background()

	orch.HandleSetCommand(ctx, 1, "vnd=26000")
	notifier.waitFor(t, "Rate updated to 26000")

	if !orch.session.Rate().Equal(decimal.RequireFromString("26000")) {
		t.Errorf("rate = %s, want 26000", orch.session.Rate())
	}
}

func TestOrchestrator_BalanceSheet(t *testing.T) {
	gw := &fakeGateway{id: exchange.Binance}
	orch, notifier := newOrchestrator(t, gw, &memoryStore{}, "")
	ctx := context.Background()

	// Empty ledger first.
	orch.HandleCallback(ctx, 1, "SELECT_0_button")
	notifier.waitFor(t, "Nothing on the balance sheet")

	orch.ledger.Record(exchange.Binance, decimal.RequireFromString("42"), time.Now())

	orch.HandleBalanceBreakdown(ctx, 1)
	msg := notifier.waitFor(t, "via Binance")
	if !strings.Contains(msg, "42") {
		t.Errorf("balance message = %q, want it to include 42", msg)
	}
}

func TestOrchestrator_LanguageSwitchPersists(t *testing.T) {
	gw := &fakeGateway{id: exchange.Binance}
	store := &memoryStore{}
	orch, notifier := newOrchestrator(t, gw, store, "")
	ctx := context.Background()

	orch.HandleCallback(ctx, 1, "SET_LANG_vi")
	notifier.waitFor(t, "Chọn sàn")

	if got := orch.session.Language(); got != "vi" {
		t.Errorf("language = %s, want vi", got)
	}
	if store.snap.Lang != "vi" {
		t.Errorf("persisted lang = %s, want vi", store.snap.Lang)
	}
}

func TestOrchestrator_RestoresSnapshot(t *testing.T) {
	store := &memoryStore{
		found: true,
		snap: Snapshot{
			Lang: "vi",
			Balances: map[string]BalanceSnapshot{
				"binance": {
					Total: "150",
					Transactions: []TransactionSnapshot{
						{Amount: "100", Time: "2024-06-01T10:00:00Z"},
						{Amount: "50", Time: "2024-06-01T11:00:00Z"},
					},
				},
			},
		},
	}

	gw := &fakeGateway{id: exchange.Binance}
	orch, _ := newOrchestrator(t, gw, store, "")

	if got := orch.session.Language(); got != "vi" {
		t.Errorf("restored language = %s, want vi", got)
	}

	total, entries, ok := orch.ledger.TotalFor(exchange.Binance)
	if !ok {
		t.Fatal("restored ledger missing binance balance")
	}
	if !total.Equal(decimal.RequireFromString("150")) {
		t.Errorf("restored total = %s, want 150", total)
	}
	if len(entries) != 2 {
		t.Errorf("restored entries = %d, want 2", len(entries))
	}
}

func waitIdle(t *testing.T, orch *Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if orch.session.State() == domain.StateIdle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session stuck in state %s", orch.session.State())
}
