// internal/engine/dispatch/service.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	stderrors "school-notify/internal/common/errors"
	"school-notify/internal/common/logger"
	"school-notify/internal/common/metrics"
	"school-notify/internal/common/observability"
	"school-notify/internal/engine/channel"
	"school-notify/internal/engine/directory"
	"school-notify/internal/engine/template"
	"school-notify/internal/models"

	"github.com/google/uuid"
)

// TemplateSource resolves renderable content per (type, channel).
type TemplateSource interface {
	Resolve(ctx context.Context, t models.NotificationType, ch models.Channel) (template.Resolution, error)
}

// PreferenceGate answers whether a guardian accepts a (type, channel) pair.
type PreferenceGate interface {
	IsEnabled(ctx context.Context, guardianID string, t models.NotificationType, ch models.Channel) (bool, error)
}

// Ledger is the slice of the notification ledger the dispatcher writes.
type Ledger interface {
	Create(ctx context.Context, n *models.Notification) error
	SetContent(ctx context.Context, id string, subject *string, body string) error
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Service orchestrates one dispatch: recipient resolution, preference gate,
// channel fan-out, template render, adapter call, ledger update. It is a hard
// error boundary: every outcome resolves to an Attempt, never a panic or a
// returned error, so a dispatch can never crash the calling workflow.
type Service struct {
	directory      directory.Directory
	preferences    PreferenceGate
	templates      TemplateSource
	ledger         Ledger
	adapters       map[models.Channel]channel.Adapter
	adapterTimeout time.Duration
	obs            *observability.Observability
	logger         logger.Logger
}

func NewService(
	dir directory.Directory,
	prefs PreferenceGate,
	templates TemplateSource,
	led Ledger,
	adapters map[models.Channel]channel.Adapter,
	adapterTimeout time.Duration,
	obs *observability.Observability,
	log logger.Logger,
) *Service {
	if obs == nil {
		obs = &observability.Observability{}
	}
	if adapterTimeout <= 0 {
		adapterTimeout = 10 * time.Second
	}
	return &Service{
		directory:      dir,
		preferences:    prefs,
		templates:      templates,
		ledger:         led,
		adapters:       adapters,
		adapterTimeout: adapterTimeout,
		obs:            obs,
		logger:         log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Dispatch notifies one recipient of one event. A "both" request expands to
// independent email and sms attempts, email first; each attempted channel gets
// its own ledger row. Channels whose contact method is absent are skipped
// without a row, and guardian preferences can suppress a channel, also without
// a row.
func (s *Service) Dispatch(ctx context.Context, req Request) Result {
	start := time.Now()

	log := s.logger.WithFields(map[string]interface{}{
		"type":          req.Type,
		"recipientId":   req.RecipientID,
		"recipientKind": req.RecipientKind,
		"channel":       req.Channel,
	})

	if reason := validateRequest(req); reason != "" {
		log.Error("invalid dispatch request", map[string]interface{}{"reason": reason})
		return Result{Attempts: []Attempt{{Channel: req.Channel, Outcome: OutcomeFailed, Reason: reason}}}
	}

	contact, err := s.directory.ContactInfo(ctx, req.RecipientID, req.RecipientKind)
	if err != nil {
		if errors.Is(err, directory.ErrRecipientNotFound) {
			log.Warn("recipient not found", nil)
			return s.finish(ctx, start, Result{Attempts: []Attempt{{
				Channel: req.Channel,
				Outcome: OutcomeRecipientMissing,
				Reason:  "recipient not found",
			}}})
		}
		log.WithError(err).Error("recipient lookup failed", nil)
		return s.finish(ctx, start, Result{Attempts: []Attempt{{
			Channel: req.Channel,
			Outcome: OutcomeFailed,
			Reason:  fmt.Sprintf("recipient lookup failed: %v", err),
		}}})
	}

	var attempts []Attempt
	for _, ch := range req.Channel.FanOut() {
		attempt := s.attempt(ctx, req, ch, contact, log)
		metrics.DispatchAttempts.WithLabelValues(string(req.Type), string(ch), string(attempt.Outcome)).Inc()
		attempts = append(attempts, attempt)
	}

	return s.finish(ctx, start, Result{Attempts: attempts})
}

func (s *Service) finish(ctx context.Context, start time.Time, res Result) Result {
	outcome := "none"
	if len(res.Attempts) > 0 {
		outcome = string(res.Attempts[0].Outcome)
		if res.Delivered() {
			outcome = string(OutcomeDelivered)
		}
	}
	s.obs.RecordDispatch(ctx, outcome)
	s.obs.RecordDispatchDuration(ctx, time.Since(start), outcome)
	return res
}

func validateRequest(req Request) string {
	if !req.Type.Valid() {
		return fmt.Sprintf("unknown notification type %q", req.Type)
	}
	if !req.RecipientKind.Valid() {
		return fmt.Sprintf("unknown recipient kind %q", req.RecipientKind)
	}
	if req.Channel != models.ChannelBoth && !req.Channel.Concrete() {
		return fmt.Sprintf("unknown channel %q", req.Channel)
	}
	if req.RecipientID == "" {
		return "recipient id is empty"
	}
	return ""
}

// attempt runs the full pipeline for one concrete channel.
func (s *Service) attempt(ctx context.Context, req Request, ch models.Channel, contact models.ContactInfo, log logger.Logger) Attempt {
	log = log.WithFields(map[string]interface{}{"attemptChannel": ch})

	destination := contact.Email
	if ch == models.ChannelSMS {
		destination = contact.Phone
	}
	if destination == "" {
		log.Debug("no contact method on file for channel", nil)
		return Attempt{Channel: ch, Outcome: OutcomeRecipientMissing,
			Reason: fmt.Sprintf("no %s contact on file", ch)}
	}

	// Preference gate: guardians can opt out per (type, channel). Suppressed
	// sends leave no ledger row.
	if req.RecipientKind == models.KindGuardian {
		enabled, err := s.preferences.IsEnabled(ctx, req.RecipientID, req.Type, ch)
		if err != nil {
			// Opt-out model: an unreadable preference defaults to enabled.
			log.WithError(err).Warn("preference lookup failed, defaulting to enabled", nil)
			enabled = true
		}
		if !enabled {
			log.Info("skipped by preference", nil)
			return Attempt{Channel: ch, Outcome: OutcomeSuppressed, Reason: "disabled by guardian preference"}
		}
	}

	row := &models.Notification{
		ID:            uuid.New().String(),
		Type:          req.Type,
		Channel:       ch,
		RecipientID:   req.RecipientID,
		RecipientKind: req.RecipientKind,
		Context:       req.Data,
		Status:        models.StatusQueued,
		TriggeredBy:   req.TriggeredBy,
	}
	if contact.Email != "" {
		email := contact.Email
		row.RecipientEmail = &email
	}
	if contact.Phone != "" {
		phone := contact.Phone
		row.RecipientPhone = &phone
	}

	if err := s.ledger.Create(ctx, row); err != nil {
		log.WithError(err).Error("ledger insert failed", nil)
		return Attempt{Channel: ch, Outcome: OutcomeFailed,
			Reason: fmt.Sprintf("ledger insert failed: %v", err)}
	}

	resolution, err := s.templates.Resolve(ctx, req.Type, ch)
	if err != nil {
		return s.fail(ctx, row.ID, ch, fmt.Sprintf("template resolution failed: %v", err), log)
	}

	var subject *string
	if ch == models.ChannelEmail {
		pattern := ""
		if resolution.Template.SubjectPattern != nil {
			pattern = *resolution.Template.SubjectPattern
		}
		rendered := template.Render(pattern, req.Data)
		subject = &rendered
	}
	body := template.Render(resolution.Template.BodyPattern, req.Data)

	if err := s.ledger.SetContent(ctx, row.ID, subject, body); err != nil {
		return s.fail(ctx, row.ID, ch, fmt.Sprintf("ledger content update failed: %v", err), log)
	}

	adapter, ok := s.adapters[ch]
	if !ok {
		return s.fail(ctx, row.ID, ch,
			fmt.Sprintf("%s transport not configured", ch), log)
	}

	msg := channel.Message{To: destination, Body: body}
	if subject != nil {
		msg.Subject = *subject
	}

	adapterCtx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
	defer cancel()

	sendStart := time.Now()
	sendErr := adapter.Send(adapterCtx, msg)
	metrics.AdapterDuration.WithLabelValues(string(ch)).Observe(time.Since(sendStart).Seconds())

	if sendErr != nil {
		return s.fail(ctx, row.ID, ch, failureReason(sendErr), log)
	}

	if err := s.ledger.MarkSent(ctx, row.ID); err != nil {
		// Delivery happened; the bookkeeping failure is logged but the attempt
		// still counts as delivered.
		log.WithError(err).Error("ledger mark-sent failed after delivery", nil)
	}

	id := row.ID
	log.Info("notification delivered", map[string]interface{}{"notificationId": id})
	return Attempt{Channel: ch, Outcome: OutcomeDelivered, NotificationID: &id}
}

// fail records a failed attempt on its ledger row. Transport and
// configuration errors are absorbed here, never re-thrown.
func (s *Service) fail(ctx context.Context, id string, ch models.Channel, reason string, log logger.Logger) Attempt {
	log.Warn("dispatch attempt failed", map[string]interface{}{
		"notificationId": id,
		"reason":         reason,
	})
	if err := s.ledger.MarkFailed(ctx, id, reason); err != nil {
		log.WithError(err).Error("ledger mark-failed failed", map[string]interface{}{"notificationId": id})
	}
	rowID := id
	return Attempt{Channel: ch, Outcome: OutcomeFailed, NotificationID: &rowID, Reason: reason}
}

// failureReason renders an adapter error into the human-readable form stored
// on the ledger row.
func failureReason(err error) string {
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		if stdErr.Details != "" {
			return fmt.Sprintf("%s: %s", stdErr.Message, stdErr.Details)
		}
		return stdErr.Message
	}
	return err.Error()
}
