// internal/engine/dispatch/bulk.go
package dispatch

import (
	"context"

	"school-notify/internal/models"
)

// BulkRecipient is one target of a bulk dispatch. Data carries per-recipient
// overrides merged over the batch's common data.
type BulkRecipient struct {
	ID   string
	Kind models.RecipientKind
	Data map[string]interface{}
}

// BulkReport summarizes a bulk dispatch for the operator log.
type BulkReport struct {
	Requested       int
	Successful      int
	NotificationIDs []string
}

// DispatchBulk drives Dispatch over a list of recipients. A failure for one
// recipient never stops the batch; the report counts requested versus
// successful and collects the delivered ledger ids.
func (s *Service) DispatchBulk(
	ctx context.Context,
	t models.NotificationType,
	recipients []BulkRecipient,
	commonData map[string]interface{},
	ch models.Channel,
	triggeredBy *string,
) BulkReport {
	report := BulkReport{Requested: len(recipients)}

	for _, recipient := range recipients {
		data := make(map[string]interface{}, len(commonData)+len(recipient.Data))
		for k, v := range commonData {
			data[k] = v
		}
		for k, v := range recipient.Data {
			data[k] = v
		}

		result := s.Dispatch(ctx, Request{
			Type:          t,
			RecipientID:   recipient.ID,
			RecipientKind: recipient.Kind,
			Data:          data,
			Channel:       ch,
			TriggeredBy:   triggeredBy,
		})

		if id := result.NotificationID(); id != nil {
			report.Successful++
			report.NotificationIDs = append(report.NotificationIDs, *id)
		}
	}

	s.logger.Info("bulk dispatch complete", map[string]interface{}{
		"type":       t,
		"channel":    ch,
		"requested":  report.Requested,
		"successful": report.Successful,
	})

	return report
}
