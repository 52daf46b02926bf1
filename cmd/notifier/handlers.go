// cmd/notifier/handlers.go
package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"school-notify/internal/common/database"
	"school-notify/internal/common/logger"
	"school-notify/internal/engine/dispatch"
	"school-notify/internal/engine/ledger"
	"school-notify/internal/engine/trigger"
	"school-notify/internal/models"
)

type apiServer struct {
	dispatcher *dispatch.Service
	history    *ledger.Store
	evaluator  *trigger.Evaluator
	pg         *database.PostgresClient
	redis      *database.RedisClient
	logger     logger.Logger
}

type dispatchRequest struct {
	Type          string                 `json:"type"`
	RecipientID   string                 `json:"recipientId"`
	RecipientKind string                 `json:"recipientKind"`
	Channel       string                 `json:"channel"`
	Data          map[string]interface{} `json:"data"`
	TriggeredBy   *string                `json:"triggeredBy"`
}

type bulkDispatchRequest struct {
	Type        string                 `json:"type"`
	Channel     string                 `json:"channel"`
	CommonData  map[string]interface{} `json:"commonData"`
	TriggeredBy *string                `json:"triggeredBy"`
	Recipients  []struct {
		ID   string                 `json:"id"`
		Kind string                 `json:"kind"`
		Data map[string]interface{} `json:"data"`
	} `json:"recipients"`
}

func (s *apiServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listNotifications(w, r)
	case http.MethodPost:
		s.dispatchNotification(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) dispatchNotification(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.dispatcher.Dispatch(r.Context(), dispatch.Request{
		Type:          models.NotificationType(req.Type),
		RecipientID:   req.RecipientID,
		RecipientKind: models.RecipientKind(req.RecipientKind),
		Data:          req.Data,
		Channel:       models.Channel(req.Channel),
		TriggeredBy:   req.TriggeredBy,
	})

	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req bulkDispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	recipients := make([]dispatch.BulkRecipient, 0, len(req.Recipients))
	for _, rec := range req.Recipients {
		recipients = append(recipients, dispatch.BulkRecipient{
			ID:   rec.ID,
			Kind: models.RecipientKind(rec.Kind),
			Data: rec.Data,
		})
	}

	report := s.dispatcher.DispatchBulk(
		r.Context(),
		models.NotificationType(req.Type),
		recipients,
		req.CommonData,
		models.Channel(req.Channel),
		req.TriggeredBy,
	)

	writeJSON(w, http.StatusOK, report)
}

func (s *apiServer) listNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ledger.Filter{
		Type:        models.NotificationType(q.Get("type")),
		Status:      models.Status(q.Get("status")),
		RecipientID: q.Get("recipient_id"),
	}
	if from, ok := parseDate(q.Get("date_from")); ok {
		filter.DateFrom = &from
	}
	if to, ok := parseDate(q.Get("date_to")); ok {
		// The upper bound is inclusive of the whole day.
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &end
	}

	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := s.history.List(r.Context(), filter, page, pageSize)
	if err != nil {
		s.logger.WithError(err).Error("history query failed", nil)
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleTriggerRun forces an immediate evaluation of one trigger type. Result
// publication hooks into this after grades go live.
func (s *apiServer) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.evaluator == nil {
		writeError(w, http.StatusServiceUnavailable, "trigger evaluation is disabled")
		return
	}

	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t := models.NotificationType(req.Type)
	if !t.Valid() {
		writeError(w, http.StatusBadRequest, "unknown notification type")
		return
	}

	report, err := s.evaluator.RunType(r.Context(), t)
	if err != nil {
		s.logger.WithError(err).Error("trigger run failed", map[string]interface{}{"type": t})
		writeError(w, http.StatusInternalServerError, "trigger run failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true

	if err := s.pg.Ping(r.Context()); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}
	if err := s.redis.Ping(r.Context()); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
