package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveTradeFeed/config"
	"liveTradeFeed/internal/domain"
	"liveTradeFeed/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

func (m *mockLogger) warnings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.warnMsgs)
}

type mockFeed struct {
	streamErr  error
	handler    func(domain.Event)
	errHandler func(error)
	doneCh     chan struct{}
	stopCh     chan struct{}
	started    chan struct{}
}

func newMockFeed() *mockFeed {
	return &mockFeed{
		doneCh:  make(chan struct{}),
		stopCh:  make(chan struct{}, 1),
		started: make(chan struct{}),
	}
}

func (m *mockFeed) Stream(ctx context.Context, handler func(domain.Event), errHandler func(error)) (chan struct{}, chan struct{}, error) {
	if m.streamErr != nil {
		return nil, nil, m.streamErr
	}
	m.handler = handler
	m.errHandler = errHandler
	close(m.started)
	return m.doneCh, m.stopCh, nil
}

type mockDiagnostics struct {
	mu        sync.Mutex
	recorded  []domain.Diagnostic
	recordErr error
}

func (m *mockDiagnostics) Record(ctx context.Context, d *domain.Diagnostic) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return 0, m.recordErr
	}
	m.recorded = append(m.recorded, *d)
	d.ID = int64(len(m.recorded))
	return d.ID, nil
}

func (m *mockDiagnostics) Recent(ctx context.Context, limit int) ([]*domain.Diagnostic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Diagnostic, 0, limit)
	for i := len(m.recorded) - 1; i >= 0 && len(out) < limit; i-- {
		d := m.recorded[i]
		out = append(out, &d)
	}
	return out, nil
}

func (m *mockDiagnostics) CountByKind(ctx context.Context) (map[domain.DiagnosticKind]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.DiagnosticKind]int)
	for _, d := range m.recorded {
		counts[d.Kind]++
	}
	return counts, nil
}

func (m *mockDiagnostics) all() []domain.Diagnostic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Diagnostic(nil), m.recorded...)
}

func testConfig() *config.Config {
	return &config.Config{
		HistoryLimit:        50,
		NotificationLimit:   10,
		PageSize:            10,
		ConfidenceThreshold: 0.974,
		Theme:               domain.ThemeDark,
	}
}

func newTestService(t *testing.T, cfg *config.Config) (*FeedService, *mockLogger, *mockFeed, *mockDiagnostics) {
	t.Helper()
	logger := &mockLogger{}
	feed := newMockFeed()
	diags := &mockDiagnostics{}
	svc, err := NewFeedService(cfg, logger, feed, diags)
	require.NoError(t, err)
	return svc, logger, feed, diags
}

func openTrade(id string, pnl float64) domain.Trade {
	return domain.Trade{ID: id, Symbol: "BTCUSDT", EntryPrice: domain.Price(100), Confidence: 0.9, ProfitAndLossPercent: pnl}
}

func TestNewFeedService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		logger  ports.Logger
		wantErr bool
	}{
		{name: "valid configuration", cfg: testConfig(), logger: &mockLogger{}},
		{name: "nil config", cfg: nil, logger: &mockLogger{}, wantErr: true},
		{name: "nil logger", cfg: testConfig(), logger: nil, wantErr: true},
		{
			name: "invalid history limit",
			cfg: func() *config.Config {
				c := testConfig()
				c.HistoryLimit = 0
				return c
			}(),
			logger:  &mockLogger{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewFeedService(tt.cfg, tt.logger, newMockFeed(), &mockDiagnostics{})
			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ports.ErrConfigurationError)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, svc.SessionID())
		})
	}
}

func TestFeedService_HandleEvent_SnapshotThenClose(t *testing.T) {
	svc, logger, _, diags := newTestService(t, testConfig())
	ctx := context.Background()

	require.NoError(t, svc.HandleEvent(ctx, domain.Event{
		Kind:     domain.EventOpenTradesSnapshot,
		Snapshot: []domain.Trade{openTrade("A", 1), openTrade("B", 2)},
	}))
	require.NoError(t, svc.HandleEvent(ctx, domain.Event{
		Kind:  domain.EventTradeClosed,
		Trade: &domain.Trade{ID: "A", ExitPrice: domain.Price(105), ProfitAndLossPercent: 5, CloseReason: domain.CloseReasonTakeProfit},
	}))

	snap := svc.Snapshot()
	require.Len(t, snap.Open, 1)
	assert.Equal(t, "B", snap.Open[0].ID)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "A", snap.History[0].ID)
	assert.Equal(t, domain.StatusClosed, snap.History[0].Status)
	assert.Equal(t, Stats{Applied: 2}, snap.Stats)
	assert.Equal(t, svc.SessionID(), snap.SessionID)

	assert.Empty(t, diags.all())
	assert.Zero(t, logger.warnings())
}

func TestFeedService_HandleEvent_Problems(t *testing.T) {
	tests := []struct {
		name        string
		setup       []domain.Event
		event       domain.Event
		wantErr     error
		wantKind    domain.DiagnosticKind
		wantTradeID string
		wantStats   Stats
	}{
		{
			name:        "invalid confidence is rejected",
			event:       domain.Event{Kind: domain.EventTradeUpdate, Trade: &domain.Trade{ID: "X", Symbol: "BTCUSDT", Confidence: 1.7}},
			wantErr:     ports.ErrValidation,
			wantKind:    domain.DiagnosticValidation,
			wantTradeID: "X",
			wantStats:   Stats{Rejected: 1},
		},
		{
			name:      "missing payload is rejected",
			event:     domain.Event{Kind: domain.EventTradeClosed},
			wantErr:   ports.ErrValidation,
			wantKind:  domain.DiagnosticValidation,
			wantStats: Stats{Rejected: 1},
		},
		{
			name:        "close for unknown trade is applied with a warning",
			event:       domain.Event{Kind: domain.EventTradeClosed, Trade: &domain.Trade{ID: "Z"}},
			wantErr:     ports.ErrInconsistency,
			wantKind:    domain.DiagnosticInconsistency,
			wantTradeID: "Z",
			wantStats:   Stats{Applied: 1, Inconsistencies: 1},
		},
		{
			name: "update for closed trade is ignored with a warning",
			setup: []domain.Event{
				{Kind: domain.EventOpenTradesSnapshot, Snapshot: []domain.Trade{openTrade("A", 1)}},
				{Kind: domain.EventTradeClosed, Trade: &domain.Trade{ID: "A"}},
			},
			event:       domain.Event{Kind: domain.EventTradeUpdate, Trade: &domain.Trade{ID: "A", Symbol: "BTCUSDT", Confidence: 0.5}},
			wantErr:     ports.ErrInconsistency,
			wantKind:    domain.DiagnosticInconsistency,
			wantTradeID: "A",
			wantStats:   Stats{Applied: 2, Inconsistencies: 1},
		},
		{
			name:      "unknown kind",
			event:     domain.Event{Kind: "update_open_trades"},
			wantErr:   ports.ErrUnknownEvent,
			wantKind:  domain.DiagnosticTransport,
			wantStats: Stats{Rejected: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, logger, _, diags := newTestService(t, testConfig())
			ctx := context.Background()
			for _, ev := range tt.setup {
				require.NoError(t, svc.HandleEvent(ctx, ev))
			}

			err := svc.HandleEvent(ctx, tt.event)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			recorded := diags.all()
			require.Len(t, recorded, 1)
			assert.Equal(t, tt.wantKind, recorded[0].Kind)
			assert.Equal(t, tt.wantTradeID, recorded[0].TradeID)
			assert.Equal(t, tt.event.Kind, recorded[0].Event)
			assert.Equal(t, svc.SessionID(), recorded[0].SessionID)
			assert.False(t, recorded[0].RecordedAt.IsZero())

			assert.Equal(t, 1, logger.warnings())
			assert.Equal(t, tt.wantStats, svc.Snapshot().Stats)
		})
	}
}

func TestFeedService_HandleEvent_RecordFailureIsLogged(t *testing.T) {
	svc, logger, _, diags := newTestService(t, testConfig())
	diags.recordErr = assert.AnError

	err := svc.HandleEvent(context.Background(), domain.Event{Kind: domain.EventNotification, Notification: &domain.NotificationMessage{}})
	assert.ErrorIs(t, err, ports.ErrValidation)
	assert.Contains(t, logger.errorMsgs, "Failed to record feed diagnostic")
}

func TestFeedService_Notifications(t *testing.T) {
	cfg := testConfig()
	cfg.NotificationLimit = 2
	svc, _, _, _ := newTestService(t, cfg)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, svc.HandleEvent(ctx, domain.Event{Kind: domain.EventNotification, Notification: &domain.NotificationMessage{Text: text}}))
	}

	got := svc.Notifications()
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Text)
	assert.Equal(t, "three", got[1].Text)
}

func TestFeedService_ToggleViewAndPage(t *testing.T) {
	svc, _, _, _ := newTestService(t, testConfig())
	ctx := context.Background()

	require.NoError(t, svc.HandleEvent(ctx, domain.Event{
		Kind:     domain.EventOpenTradesSnapshot,
		Snapshot: []domain.Trade{openTrade("A", -1), openTrade("B", 3), openTrade("C", 1)},
	}))
	require.NoError(t, svc.HandleEvent(ctx, domain.Event{Kind: domain.EventTradeClosed, Trade: &domain.Trade{ID: "C"}}))

	page := svc.Page(1)
	assert.Equal(t, domain.ViewOpen, page.View)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "B", page.Rows[0].ID)

	assert.Equal(t, domain.ViewHistory, svc.ToggleView())
	page = svc.Page(1)
	assert.Equal(t, domain.ViewHistory, page.View)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "C", page.Rows[0].ID)

	assert.Equal(t, domain.ViewOpen, svc.ToggleView())
}

func TestFeedService_Summary(t *testing.T) {
	svc, _, _, _ := newTestService(t, testConfig())
	ctx := context.Background()

	require.NoError(t, svc.HandleEvent(ctx, domain.Event{Kind: domain.EventOpenTradesSnapshot, Snapshot: []domain.Trade{openTrade("A", 0), openTrade("B", 0)}}))
	require.NoError(t, svc.HandleEvent(ctx, domain.Event{Kind: domain.EventTradeClosed, Trade: &domain.Trade{ID: "A", ProfitAndLossPercent: 2}}))
	require.NoError(t, svc.HandleEvent(ctx, domain.Event{Kind: domain.EventTradeClosed, Trade: &domain.Trade{ID: "B", ProfitAndLossPercent: -1}}))

	s := svc.Summary()
	assert.Equal(t, 2, s.TotalTrades)
	assert.Equal(t, 1, s.Gains)
	assert.Equal(t, 1, s.CurrentLossStreak)
}

func TestFeedService_Diagnostics(t *testing.T) {
	svc, _, _, _ := newTestService(t, testConfig())
	ctx := context.Background()
	_ = svc.HandleEvent(ctx, domain.Event{Kind: "bogus"})
	_ = svc.HandleEvent(ctx, domain.Event{Kind: domain.EventTradeUpdate, Trade: &domain.Trade{}})

	got, err := svc.Diagnostics(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.DiagnosticValidation, got[0].Kind)
	assert.Equal(t, domain.DiagnosticTransport, got[1].Kind)
}

func TestFeedService_ConcurrentEvents(t *testing.T) {
	svc, _, _, _ := newTestService(t, testConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("T%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.HandleEvent(ctx, domain.Event{Kind: domain.EventTradeUpdate, Trade: &domain.Trade{ID: id, Symbol: "ETHUSDT", Confidence: 0.5}})
			_ = svc.HandleEvent(ctx, domain.Event{Kind: domain.EventTradeClosed, Trade: &domain.Trade{ID: id}})
		}()
	}
	wg.Wait()

	snap := svc.Snapshot()
	assert.Empty(t, snap.Open)
	assert.Len(t, snap.History, 20)
	assert.Equal(t, 40, snap.Stats.Applied)
}

func TestFeedService_Start(t *testing.T) {
	t.Run("stream start failure", func(t *testing.T) {
		svc, _, feed, _ := newTestService(t, testConfig())
		feed.streamErr = ports.ErrConnectionFailed

		err := svc.Start(context.Background())
		assert.ErrorIs(t, err, ports.ErrConnectionFailed)
	})

	t.Run("events flow until context is cancelled", func(t *testing.T) {
		svc, logger, feed, diags := newTestService(t, testConfig())
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() { errCh <- svc.Start(ctx) }()

		select {
		case <-feed.started:
		case <-time.After(2 * time.Second):
			t.Fatal("stream was not started")
		}

		feed.handler(domain.Event{Kind: domain.EventOpenTradesSnapshot, Snapshot: []domain.Trade{openTrade("A", 1)}})
		feed.errHandler(fmt.Errorf("%w: eof", ports.ErrFeedClosed))
		assert.Len(t, svc.OpenTrades(), 1)

		cancel()
		close(feed.doneCh)

		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("service did not stop")
		}

		assert.Equal(t, 1, svc.Snapshot().Stats.TransportErrors)
		recorded := diags.all()
		require.Len(t, recorded, 1)
		assert.Equal(t, domain.DiagnosticTransport, recorded[0].Kind)
		assert.Contains(t, logger.infoMsgs, "Feed Service stopped.")
	})

	t.Run("stream stops unexpectedly", func(t *testing.T) {
		svc, _, feed, _ := newTestService(t, testConfig())

		errCh := make(chan error, 1)
		go func() { errCh <- svc.Start(context.Background()) }()
		<-feed.started
		close(feed.doneCh)

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, ports.ErrFeedClosed)
		case <-time.After(2 * time.Second):
			t.Fatal("service did not return")
		}
	})
}
