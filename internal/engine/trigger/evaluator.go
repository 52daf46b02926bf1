// internal/engine/trigger/evaluator.go
package trigger

import (
	"context"
	"sync"
	"time"

	"school-notify/internal/common/logger"
	"school-notify/internal/common/metrics"
	"school-notify/internal/engine/dispatch"
	"school-notify/internal/engine/template"
	"school-notify/internal/models"
)

// TriggerSource lists the enabled trigger rules to evaluate.
type TriggerSource interface {
	ListEnabled(ctx context.Context) ([]models.NotificationTrigger, error)
}

// TemplateSource resolves templates so the evaluator can restrict the dispatch
// context to the variables the templates actually declare.
type TemplateSource interface {
	Resolve(ctx context.Context, t models.NotificationType, ch models.Channel) (template.Resolution, error)
}

// Dispatcher sends one notification per matched recipient.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Result
}

// RunReport summarises one evaluation run.
type RunReport struct {
	Evaluated  int
	Matched    int
	Dispatched int
	Deduped    int
}

// Evaluator runs trigger rules against live school metrics and dispatches a
// notification per match, deduplicated per frequency period.
type Evaluator struct {
	triggers  TriggerSource
	source    MetricsSource
	templates TemplateSource
	dispatch  Dispatcher
	guard     Guard
	logger    logger.Logger

	mu          sync.Mutex
	lastResults time.Time
}

func NewEvaluator(
	triggers TriggerSource,
	source MetricsSource,
	templates TemplateSource,
	dispatcher Dispatcher,
	guard Guard,
	log logger.Logger,
) *Evaluator {
	return &Evaluator{
		triggers:    triggers,
		source:      source,
		templates:   templates,
		dispatch:    dispatcher,
		guard:       guard,
		logger:      log.WithFields(map[string]interface{}{"component": "trigger-evaluator"}),
		lastResults: time.Now().UTC(),
	}
}

// RunDue evaluates every enabled trigger whose frequency matches freq.
func (e *Evaluator) RunDue(ctx context.Context, now time.Time, freq models.Frequency) (RunReport, error) {
	triggers, err := e.triggers.ListEnabled(ctx)
	if err != nil {
		return RunReport{}, err
	}

	var report RunReport
	for _, trg := range triggers {
		if trg.Frequency != freq {
			continue
		}
		report.Evaluated++
		e.runTrigger(ctx, trg, now, &report)
	}

	e.logger.Info("trigger run complete", map[string]interface{}{
		"frequency":  freq,
		"evaluated":  report.Evaluated,
		"matched":    report.Matched,
		"dispatched": report.Dispatched,
		"deduped":    report.Deduped,
	})
	return report, nil
}

// RunType evaluates the enabled trigger for a single notification type,
// regardless of its frequency. This is the hook immediate triggers fire
// through, e.g. when a result set is published.
func (e *Evaluator) RunType(ctx context.Context, t models.NotificationType) (RunReport, error) {
	triggers, err := e.triggers.ListEnabled(ctx)
	if err != nil {
		return RunReport{}, err
	}

	now := time.Now().UTC()
	var report RunReport
	for _, trg := range triggers {
		if trg.Type != t {
			continue
		}
		report.Evaluated++
		e.runTrigger(ctx, trg, now, &report)
	}

	e.logger.Info("trigger run complete", map[string]interface{}{
		"type":       t,
		"evaluated":  report.Evaluated,
		"matched":    report.Matched,
		"dispatched": report.Dispatched,
		"deduped":    report.Deduped,
	})
	return report, nil
}

func (e *Evaluator) runTrigger(ctx context.Context, trg models.NotificationTrigger, now time.Time, report *RunReport) {
	matches, err := e.evaluateCondition(ctx, trg.Condition)
	if err != nil {
		e.logger.WithError(err).Error("trigger evaluation failed", map[string]interface{}{
			"type": trg.Type,
		})
		return
	}

	period := PeriodKey(trg.Frequency, now)
	allowed := e.declaredVariables(ctx, trg.Type)

	for _, m := range matches {
		report.Matched++
		metrics.TriggerMatches.WithLabelValues(string(trg.Type)).Inc()

		claimed, err := e.guard.Claim(ctx, trg.Type, m.GuardianID, period)
		if err != nil {
			e.logger.WithError(err).Error("dedupe claim failed", map[string]interface{}{
				"type":         trg.Type,
				"recipient_id": m.GuardianID,
			})
			continue
		}
		if !claimed {
			report.Deduped++
			continue
		}

		result := e.dispatch.Dispatch(ctx, dispatch.Request{
			Type:          trg.Type,
			RecipientID:   m.GuardianID,
			RecipientKind: models.KindGuardian,
			Data:          restrictVariables(m.Variables, allowed),
			Channel:       models.ChannelBoth,
		})
		if result.Delivered() {
			report.Dispatched++
		}
	}
}

func (e *Evaluator) evaluateCondition(ctx context.Context, cond models.TriggerCondition) ([]Match, error) {
	switch c := cond.(type) {
	case models.AttendanceCondition:
		return e.source.LowAttendance(ctx, c.Threshold, c.WindowDays)
	case models.GPACondition:
		return e.source.LowGPA(ctx, c.Threshold)
	case models.DueDateCondition:
		if c.Type == models.TypeExamSchedule {
			return e.source.UpcomingExams(ctx, c.DaysBefore)
		}
		return e.source.UpcomingFees(ctx, c.DaysBefore)
	case models.ResultCondition:
		e.mu.Lock()
		since := e.lastResults
		e.lastResults = time.Now().UTC()
		e.mu.Unlock()
		return e.source.FreshResults(ctx, since)
	default:
		return nil, nil
	}
}

// declaredVariables unions the variable names the active templates for the
// type declare, across both channels. An empty set means no restriction, so a
// fallback template still receives the full context.
func (e *Evaluator) declaredVariables(ctx context.Context, t models.NotificationType) map[string]bool {
	allowed := map[string]bool{}
	for _, ch := range []models.Channel{models.ChannelEmail, models.ChannelSMS} {
		res, err := e.templates.Resolve(ctx, t, ch)
		if err != nil || res.Fallback {
			continue
		}
		for _, v := range res.Template.Variables {
			allowed[v] = true
		}
	}
	return allowed
}

func restrictVariables(vars map[string]interface{}, allowed map[string]bool) map[string]interface{} {
	if len(allowed) == 0 {
		return vars
	}
	out := make(map[string]interface{}, len(allowed))
	for k, v := range vars {
		if allowed[k] {
			out[k] = v
		}
	}
	return out
}
