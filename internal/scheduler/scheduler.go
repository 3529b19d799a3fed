// Package scheduler owns one long-lived goroutine per enabled connection,
// driving its PollWorker on a fixed interval and reporting lifecycle
// events through optional callbacks.
package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/breaker"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/erpclient"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/logger"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/poller"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/store"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/webhook"
)

// shutdownJoinTimeout bounds how long Stop/RemoveConnection waits for a
// cancelled loop to exit before abandoning it.
const shutdownJoinTimeout = 5 * time.Second

// OnSyncComplete is invoked after every poll cycle, including cycles the
// breaker short-circuited (sync log nil in that case).
type OnSyncComplete func(connectionID int, syncLog *store.SyncLog)

// OnCircuitStateChange is invoked whenever a connection's breaker state
// changes between consecutive cycles.
type OnCircuitStateChange func(connectionID int, state breaker.State)

// connectionTask is the scheduler's private bookkeeping for one
// connection's goroutine, matching the original's _ConnectionTask: its
// own breaker, its own reusable transport, and the means to cancel and
// join its loop.
type connectionTask struct {
	cancel  context.CancelFunc
	done    chan struct{}
	http    *http.Client
	breaker *breaker.Breaker
}

// Scheduler owns a mapping of connection id to connectionTask. It never
// shares a breaker, transport, or goroutine across connections.
type Scheduler struct {
	connRepo  *store.ConnectionRepository
	syncRepo  *store.SyncLogRepository
	retryRepo *store.RetryQueueRepository
	sentRepo  *store.SentOrderRepository
	log       *logger.Logger

	breakerCfg     breaker.Config
	erpTimeout     time.Duration
	webhookTimeout time.Duration

	onSyncComplete       OnSyncComplete
	onCircuitStateChange OnCircuitStateChange

	mu      sync.Mutex
	tasks   map[int]*connectionTask
	running bool
}

// New builds a Scheduler. Either callback may be nil, in which case it is
// a no-op.
func New(
	connRepo *store.ConnectionRepository,
	syncRepo *store.SyncLogRepository,
	retryRepo *store.RetryQueueRepository,
	sentRepo *store.SentOrderRepository,
	log *logger.Logger,
	breakerCfg breaker.Config,
	erpTimeout, webhookTimeout time.Duration,
	onSyncComplete OnSyncComplete,
	onCircuitStateChange OnCircuitStateChange,
) *Scheduler {
	if onSyncComplete == nil {
		onSyncComplete = func(int, *store.SyncLog) {}
	}
	if onCircuitStateChange == nil {
		onCircuitStateChange = func(int, breaker.State) {}
	}
	return &Scheduler{
		connRepo:             connRepo,
		syncRepo:             syncRepo,
		retryRepo:            retryRepo,
		sentRepo:             sentRepo,
		log:                  log,
		breakerCfg:           breakerCfg,
		erpTimeout:           erpTimeout,
		webhookTimeout:       webhookTimeout,
		onSyncComplete:       onSyncComplete,
		onCircuitStateChange: onCircuitStateChange,
		tasks:                map[int]*connectionTask{},
	}
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CircuitState returns the in-memory breaker state for a running
// connection, or "" if the connection has no task.
func (s *Scheduler) CircuitState(connectionID int) breaker.State {
	s.mu.Lock()
	ct, ok := s.tasks[connectionID]
	s.mu.Unlock()
	if !ok {
		return ""
	}
	return ct.breaker.State()
}

// Start loads every enabled connection and spawns one loop per
// connection.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	conns, err := s.connRepo.ListEnabled()
	if err != nil {
		return fmt.Errorf("scheduler: list enabled connections: %w", err)
	}
	for i := range conns {
		s.AddConnection(&conns[i])
	}
	s.log.Infow("scheduler started", "connections", len(conns))
	return nil
}

// Stop cancels every loop, waits up to shutdownJoinTimeout for each, and
// closes each connection's transport regardless of whether its loop
// joined in time.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.running = false
	ids := make([]int, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.RemoveConnection(id)
	}
	s.log.Infow("scheduler stopped")
}

// AddConnection is idempotent: it does nothing if the connection already
// has a running task. It loads the connection's persisted breaker state
// into a fresh in-memory breaker before spawning its loop.
func (s *Scheduler) AddConnection(conn *store.Connection) {
	s.mu.Lock()
	if _, exists := s.tasks[conn.ID]; exists {
		s.mu.Unlock()
		return
	}

	ct := &connectionTask{
		done:    make(chan struct{}),
		http:    &http.Client{Timeout: s.erpTimeout},
		breaker: breaker.New(s.breakerCfg),
	}
	ct.breaker.LoadState(breaker.State(conn.CircuitState), conn.CircuitFailureCount)

	ctx, cancel := context.WithCancel(context.Background())
	ct.cancel = cancel
	s.tasks[conn.ID] = ct
	s.mu.Unlock()

	connCopy := *conn
	go s.pollLoop(ctx, &connCopy, ct)
}

// RemoveConnection cancels the connection's loop, waits up to
// shutdownJoinTimeout for it to exit, then closes its transport and
// forgets it regardless of whether the wait timed out.
func (s *Scheduler) RemoveConnection(connectionID int) {
	s.mu.Lock()
	ct, exists := s.tasks[connectionID]
	if exists {
		delete(s.tasks, connectionID)
	}
	s.mu.Unlock()
	if !exists {
		return
	}

	ct.cancel()
	select {
	case <-ct.done:
	case <-time.After(shutdownJoinTimeout):
		s.log.Warnw("poll loop did not exit within shutdown timeout, abandoning", "connection_id", connectionID)
	}
	ct.http.CloseIdleConnections()
}

// RestartConnection removes then, if enabled, re-adds a connection's
// task — used after an operator edits its credentials or cadence.
func (s *Scheduler) RestartConnection(conn *store.Connection) {
	s.RemoveConnection(conn.ID)
	if conn.Enabled {
		s.AddConnection(conn)
	}
}

// ResetCircuitBreaker resets the in-memory breaker to closed, persists
// (closed, 0), and fires the state-change callback.
func (s *Scheduler) ResetCircuitBreaker(connectionID int) error {
	s.mu.Lock()
	ct, exists := s.tasks[connectionID]
	s.mu.Unlock()
	if exists {
		ct.breaker.Reset()
	}

	if err := s.connRepo.UpdateCircuitState(connectionID, store.CircuitClosed, 0); err != nil {
		return fmt.Errorf("scheduler: reset circuit breaker: %w", err)
	}
	s.onCircuitStateChange(connectionID, breaker.Closed)
	return nil
}

func (s *Scheduler) pollLoop(ctx context.Context, conn *store.Connection, ct *connectionTask) {
	defer close(ct.done)

	var erp *erpclient.Client
	sender := webhook.New(s.webhookTimeout)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fresh, err := s.connRepo.Get(conn.ID)
		if err != nil {
			if err == store.ErrNotFound {
				s.log.Infow("connection removed, stopping loop", "connection_id", conn.ID)
				return
			}
			s.log.Errorw("failed to refresh connection, stopping loop", "connection_id", conn.ID, "error", err)
			return
		}
		if !fresh.Enabled {
			s.log.Infow("connection disabled, stopping loop", "connection_id", conn.ID, "name", fresh.Name)
			return
		}
		conn = fresh

		if erp == nil {
			erp = erpclient.New(conn.OdooURL, conn.OdooDB, conn.OdooUsername, conn.OdooAPIKey, s.erpTimeout, erpclient.WithHTTPClient(ct.http))
		}

		prevState := ct.breaker.State()
		s.runCycleSafely(ctx, conn, erp, sender, ct.breaker)
		newState := ct.breaker.State()
		if newState != prevState {
			s.onCircuitStateChange(conn.ID, newState)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(conn.PollIntervalSeconds) * time.Second):
		}
	}
}

// runCycleSafely runs one PollWorker cycle, recovering any panic so a
// single connection's misbehaving cycle can never kill its own loop, let
// alone another connection's.
func (s *Scheduler) runCycleSafely(ctx context.Context, conn *store.Connection, erp *erpclient.Client, sender *webhook.Sender, cb *breaker.Breaker) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("poll cycle panicked", "connection_id", conn.ID, "panic", r)
		}
	}()

	w := poller.New(conn, erp, sender, cb, s.connRepo, s.syncRepo, s.retryRepo, s.sentRepo, s.log.ForConnection(conn.ID))
	syncLog, err := w.Execute(ctx)
	if err != nil {
		s.log.Errorw("unhandled poll cycle error", "connection_id", conn.ID, "error", err)
	}
	s.onSyncComplete(conn.ID, syncLog)
}
