package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/billbatista/splittab/ledger"
)

// Dispatcher queues notifications on a buffered channel and delivers them on
// a background goroutine. ExpenseAdded never blocks: when the buffer is full
// the notification is dropped with a warning. Shutdown drains whatever is
// still queued.
type Dispatcher struct {
	notifCh chan ledger.ExpenseNotification
	pub     Publisher
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewDispatcher(pub Publisher, bufferSize int) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		notifCh: make(chan ledger.ExpenseNotification, bufferSize),
		pub:     pub,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.ctx.Done():
				slog.Info("draining notifications before shutdown", "remaining", len(d.notifCh))
				for len(d.notifCh) > 0 {
					n := <-d.notifCh
					d.deliver(context.Background(), n)
				}
				return
			case n := <-d.notifCh:
				d.deliver(d.ctx, n)
			}
		}
	}()
}

// ExpenseAdded implements ledger.Notifier.
func (d *Dispatcher) ExpenseAdded(n ledger.ExpenseNotification) {
	select {
	case d.notifCh <- n:
		// Queued successfully
	default:
		slog.Warn("notification channel full, dropping notification",
			"expense_id", n.ExpenseID, "recipient", n.Recipient)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n ledger.ExpenseNotification) {
	if err := d.pub.Publish(ctx, n); err != nil {
		slog.Error("failed to deliver notification",
			"error", err, "expense_id", n.ExpenseID, "recipient", n.Recipient)
	}
}

func (d *Dispatcher) Shutdown() {
	d.cancel()
	d.wg.Wait()
	close(d.notifCh)
}
