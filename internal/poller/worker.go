// Package poller implements the per-cycle polling algorithm: gate,
// authenticate, discover, map, deliver, sweep retries, persist.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/breaker"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/erpclient"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/logger"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/mapper"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/store"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/webhook"
)

const (
	maxSentOrders = 30
	maxSyncLogs   = 100
)

// OrderFields is the exact field set requested for sale.order discovery
// and seed reads.
var OrderFields = []string{
	"name", "state", "date_order", "write_date",
	"partner_id", "partner_shipping_id",
	"amount_untaxed", "amount_tax", "amount_total",
	"currency_id", "note",
}

// ErpClient is the subset of erpclient.Client the worker drives.
type ErpClient interface {
	UID() int
	Authenticate(ctx context.Context) (int, error)
	SearchRead(ctx context.Context, model string, domain []interface{}, fields []string, limit int, order string) ([]erpclient.Record, error)
	Read(ctx context.Context, model string, ids []int, fields []string) ([]erpclient.Record, error)
}

// Sender is the subset of webhook.Sender the worker drives.
type Sender interface {
	Send(ctx context.Context, url string, payload interface{}, secret string, connectionID int) error
}

// Worker runs one poll cycle for a single connection.
type Worker struct {
	conn      *store.Connection
	erp       ErpClient
	sender    Sender
	cb        *breaker.Breaker
	connRepo  *store.ConnectionRepository
	syncRepo  *store.SyncLogRepository
	retryRepo *store.RetryQueueRepository
	sentRepo  *store.SentOrderRepository
	log       *logger.Logger
}

// New builds a Worker for one connection's poll cycle.
func New(
	conn *store.Connection,
	erp ErpClient,
	sender Sender,
	cb *breaker.Breaker,
	connRepo *store.ConnectionRepository,
	syncRepo *store.SyncLogRepository,
	retryRepo *store.RetryQueueRepository,
	sentRepo *store.SentOrderRepository,
	log *logger.Logger,
) *Worker {
	return &Worker{
		conn: conn, erp: erp, sender: sender, cb: cb,
		connRepo: connRepo, syncRepo: syncRepo, retryRepo: retryRepo, sentRepo: sentRepo,
		log: log.ForCycle(NewCorrelationID()),
	}
}

// Execute runs one full cycle, returning the resulting SyncLog, or nil
// when the cycle short-circuited because the breaker is open.
func (w *Worker) Execute(ctx context.Context) (*store.SyncLog, error) {
	startedAt := store.Now()

	var (
		found, sent, failed, skipped int
		errorMessage                 string
	)

	cycleErr := func() error {
		if !w.cb.CheckAllowed() {
			w.log.Infow("circuit breaker open, skipping cycle", "connection", w.conn.Name)
			return errBreakerOpen
		}

		if w.erp.UID() == 0 {
			if _, err := w.erp.Authenticate(ctx); err != nil {
				return err
			}
		}

		if w.conn.LastSyncAt == "" {
			return errSeed
		}

		domain := []interface{}{
			[]interface{}{"state", "in", []interface{}{"sale", "done"}},
			[]interface{}{"write_date", ">", w.conn.LastSyncAt},
		}
		orders, err := w.erp.SearchRead(ctx, "sale.order", domain, OrderFields, 0, "write_date asc")
		if err != nil {
			return err
		}
		found = len(orders)

		if len(orders) == 0 {
			w.cb.RecordSuccess()
			if err := w.persistBreaker(); err != nil {
				return err
			}
			_ = w.syncRepo.TrimToLimit(w.conn.ID, maxSyncLogs)
			_ = w.retryRepo.CleanupFinished(w.conn.ID)
			return nil
		}

		sentSet, err := w.sentRepo.GetSentIDs(w.conn.ID)
		if err != nil {
			return err
		}

		newOrders := make([]erpclient.Record, 0, len(orders))
		for _, o := range orders {
			id, _ := toInt(o["id"])
			wd, _ := o["write_date"].(string)
			if _, ok := sentSet[store.SentKey{OrderID: id, WriteDate: wd}]; !ok {
				newOrders = append(newOrders, o)
			}
		}
		skipped = found - len(newOrders)

		if len(newOrders) > 0 {
			batch, err := mapper.FetchBatchData(ctx, w.erp, newOrders)
			if err != nil {
				return err
			}

			lastWriteDate := w.conn.LastSyncAt
			for _, order := range newOrders {
				payload := mapper.MapOrderToWebhookPayload(order, batch, w.conn.OdooDB, w.conn.ID)
				orderID, _ := toInt(order["id"])
				orderName, _ := order["name"].(string)
				writeDate, _ := order["write_date"].(string)

				if err := w.sender.Send(ctx, w.conn.WebhookURL, payload, w.conn.WebhookSecret, w.conn.ID); err != nil {
					failed++
					w.log.Warnw("webhook delivery failed", "order", orderName, "error", err)

					delaySeconds := webhook.CalculateNextRetry(0)
					nextRetry := time.Now().UTC().Add(time.Duration(delaySeconds) * time.Second).Format("2006-01-02 15:04:05")
					frozen, _ := json.Marshal(payload)
					if _, enqueueErr := w.retryRepo.Enqueue(&store.RetryItem{
						ConnectionID:  w.conn.ID,
						OdooOrderID:   orderID,
						OdooOrderName: orderName,
						Payload:       string(frozen),
						Status:        store.RetryPending,
						NextRetryAt:   nextRetry,
					}); enqueueErr != nil {
						return enqueueErr
					}
				} else {
					if err := w.sentRepo.MarkSent(&store.SentOrder{
						ConnectionID:  w.conn.ID,
						OdooOrderID:   orderID,
						OdooOrderName: orderName,
						OdooWriteDate: writeDate,
						SentAt:        store.Now(),
					}); err != nil {
						return err
					}
					sent++
				}

				if writeDate != "" && (lastWriteDate == "" || writeDate > lastWriteDate) {
					lastWriteDate = writeDate
				}
			}

			if lastWriteDate != "" {
				if err := w.connRepo.UpdateLastSync(w.conn.ID, lastWriteDate); err != nil {
					return err
				}
				w.conn.LastSyncAt = lastWriteDate
			}

			if err := w.sentRepo.TrimToLimit(w.conn.ID, maxSentOrders); err != nil {
				return err
			}
		}

		if err := w.processRetries(ctx); err != nil {
			return err
		}

		w.cb.RecordSuccess()
		if err := w.syncRepo.TrimToLimit(w.conn.ID, maxSyncLogs); err != nil {
			return err
		}
		return w.retryRepo.CleanupFinished(w.conn.ID)
	}()

	switch {
	case cycleErr == errBreakerOpen:
		return nil, nil
	case cycleErr == errSeed:
		return w.executeSeed(ctx, startedAt)
	case cycleErr == nil:
		// fall through to persist + log below
	default:
		var rle *erpclient.RateLimitedError
		if errors.As(cycleErr, &rle) {
			w.log.Warnw("rate limited", "connection", w.conn.Name, "error", cycleErr)
			errorMessage = cycleErr.Error()
		} else {
			w.log.Errorw("poll cycle error", "connection", w.conn.Name, "error", cycleErr)
			errorMessage = cycleErr.Error()
			w.cb.RecordFailure()
		}
	}

	if err := w.persistBreaker(); err != nil {
		return nil, err
	}

	return w.writeLog(startedAt, found, sent, failed, skipped, errorMessage)
}

func (w *Worker) executeSeed(ctx context.Context, startedAt string) (*store.SyncLog, error) {
	w.log.Infow("seeding connection", "connection", w.conn.Name, "limit", maxSentOrders)

	domain := []interface{}{
		[]interface{}{"state", "in", []interface{}{"sale", "done"}},
	}
	orders, err := w.erp.SearchRead(ctx, "sale.order", domain, OrderFields, maxSentOrders, "write_date desc")
	if err != nil {
		w.log.Errorw("seed cycle error", "connection", w.conn.Name, "error", err)
		w.cb.RecordFailure()
		if perr := w.persistBreaker(); perr != nil {
			return nil, perr
		}
		return w.writeLog(startedAt, 0, 0, 0, 0, err.Error())
	}

	found := len(orders)
	lastWriteDate := ""
	for _, order := range orders {
		orderID, _ := toInt(order["id"])
		orderName, _ := order["name"].(string)
		writeDate, _ := order["write_date"].(string)

		if err := w.sentRepo.MarkSent(&store.SentOrder{
			ConnectionID:  w.conn.ID,
			OdooOrderID:   orderID,
			OdooOrderName: orderName,
			OdooWriteDate: writeDate,
			SentAt:        store.Now(),
		}); err != nil {
			return nil, err
		}

		if writeDate != "" && (lastWriteDate == "" || writeDate > lastWriteDate) {
			lastWriteDate = writeDate
		}
	}

	if lastWriteDate != "" {
		if err := w.connRepo.UpdateLastSync(w.conn.ID, lastWriteDate); err != nil {
			return nil, err
		}
		w.conn.LastSyncAt = lastWriteDate
	}

	w.cb.RecordSuccess()
	if err := w.persistBreaker(); err != nil {
		return nil, err
	}

	w.log.Infow("seed complete", "connection", w.conn.Name, "orders", found)
	return w.writeLog(startedAt, found, 0, 0, found, "")
}

func (w *Worker) processRetries(ctx context.Context) error {
	pending, err := w.retryRepo.GetPending(w.conn.ID, store.Now())
	if err != nil {
		return err
	}

	for _, item := range pending {
		if item.Attempts >= item.MaxAttempts {
			lastErr := "Max attempts reached"
			if err := w.retryRepo.UpdateStatus(item.ID, store.RetryDiscarded, store.UpdateStatusOpts{
				LastError: &lastErr,
			}); err != nil {
				return err
			}
			continue
		}

		var payload mapper.Payload
		if err := json.Unmarshal([]byte(item.Payload), &payload); err != nil {
			return fmt.Errorf("poller: decode frozen retry payload: %w", err)
		}

		if err := w.sender.Send(ctx, w.conn.WebhookURL, payload, w.conn.WebhookSecret, w.conn.ID); err != nil {
			newAttempt := item.Attempts + 1
			delaySeconds := webhook.CalculateNextRetry(newAttempt)
			nextAt := time.Now().UTC().Add(time.Duration(delaySeconds) * time.Second).Format("2006-01-02 15:04:05")
			lastErrMsg := err.Error()
			if updErr := w.retryRepo.UpdateStatus(item.ID, store.RetryPending, store.UpdateStatusOpts{
				Attempts:    &newAttempt,
				NextRetryAt: &nextAt,
				LastError:   &lastErrMsg,
			}); updErr != nil {
				return updErr
			}
			continue
		}

		if err := w.retryRepo.UpdateStatus(item.ID, store.RetrySent, store.UpdateStatusOpts{}); err != nil {
			return err
		}
		if err := w.sentRepo.MarkSent(&store.SentOrder{
			ConnectionID:  w.conn.ID,
			OdooOrderID:   item.OdooOrderID,
			OdooOrderName: item.OdooOrderName,
			OdooWriteDate: payload.Order.WriteDate,
			SentAt:        store.Now(),
		}); err != nil {
			return err
		}
	}

	return nil
}

func (w *Worker) persistBreaker() error {
	return w.connRepo.UpdateCircuitState(w.conn.ID, store.CircuitState(w.cb.State()), w.cb.FailureCount())
}

func (w *Worker) writeLog(startedAt string, found, sent, failed, skipped int, errorMessage string) (*store.SyncLog, error) {
	log, err := w.syncRepo.Create(&store.SyncLog{
		ConnectionID:  w.conn.ID,
		StartedAt:     startedAt,
		FinishedAt:    store.Now(),
		OrdersFound:   found,
		OrdersSent:    sent,
		OrdersFailed:  failed,
		OrdersSkipped: skipped,
		ErrorMessage:  errorMessage,
	})
	if err != nil {
		return nil, fmt.Errorf("poller: write sync log: %w", err)
	}
	return log, nil
}

// NewCorrelationID returns a correlation id for attaching to log lines
// across one poll cycle.
func NewCorrelationID() string {
	return uuid.NewString()
}

var (
	errBreakerOpen = errors.New("poller: breaker open")
	errSeed        = errors.New("poller: seed path")
)

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
