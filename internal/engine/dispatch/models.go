// internal/engine/dispatch/models.go
package dispatch

import "school-notify/internal/models"

// Outcome classifies one per-channel dispatch attempt. Every attempt resolves
// to exactly one of these; no error ever crosses the dispatcher boundary.
type Outcome string

const (
	// OutcomeDelivered means the adapter accepted the message; the ledger row is sent.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeSuppressed means the preference gate blocked the channel; no ledger row exists.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeRecipientMissing means the directory had no entry, or no address for
	// the channel; no ledger row exists.
	OutcomeRecipientMissing Outcome = "recipient_missing"
	// OutcomeFailed means delivery was attempted and did not succeed; the ledger
	// row (when one was created) is failed with a reason.
	OutcomeFailed Outcome = "failed"
)

// Request is one logical dispatch: notify one recipient of one event, possibly
// fanning out to several channels. TriggeredBy names the acting user, or nil
// for system-originated sends.
type Request struct {
	Type          models.NotificationType
	RecipientID   string
	RecipientKind models.RecipientKind
	Data          map[string]interface{}
	Channel       models.Channel
	TriggeredBy   *string
}

// Attempt is the outcome of one concrete channel. NotificationID is set
// whenever a ledger row was created, even for failed attempts, so callers can
// find the audit record.
type Attempt struct {
	Channel        models.Channel
	Outcome        Outcome
	NotificationID *string
	Reason         string
}

// Result aggregates the per-channel attempts of one dispatch.
type Result struct {
	Attempts []Attempt
}

// Delivered reports whether at least one channel got through.
func (r Result) Delivered() bool {
	for _, a := range r.Attempts {
		if a.Outcome == OutcomeDelivered {
			return true
		}
	}
	return false
}

// NotificationID returns the ledger id of the first delivered attempt. The
// fan-out order puts email first, so email wins ties. Nil when nothing was
// delivered; the reason is only discoverable via the attempts, logs and ledger.
func (r Result) NotificationID() *string {
	for _, a := range r.Attempts {
		if a.Outcome == OutcomeDelivered {
			return a.NotificationID
		}
	}
	return nil
}

// LedgerRows counts the attempts that created a ledger row.
func (r Result) LedgerRows() int {
	n := 0
	for _, a := range r.Attempts {
		if a.NotificationID != nil {
			n++
		}
	}
	return n
}
