// Package notify delivers expense notifications best effort: enqueueing
// never blocks the expense operation, and delivery failures are logged and
// discarded.
package notify

import (
	"context"

	"github.com/billbatista/splittab/ledger"
)

// Publisher delivers one notification to its transport. Implementations may
// fail; the dispatcher swallows the failure.
type Publisher interface {
	Publish(ctx context.Context, n ledger.ExpenseNotification) error
}
