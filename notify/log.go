package notify

import (
	"context"
	"log/slog"

	"github.com/billbatista/splittab/ledger"
)

// LogPublisher writes notifications to the log instead of a broker. Used
// when no AMQP URL is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, n ledger.ExpenseNotification) error {
	slog.Info("expense notification",
		"recipient", n.Recipient,
		"payer_id", n.PayerID,
		"group_id", n.GroupID,
		"expense_id", n.ExpenseID,
		"share", n.Share,
		"currency", n.Currency,
	)
	return nil
}
