package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/services"
)

// LogHandler handles HTTP requests for the audit log.
type LogHandler struct {
	responder
	coord      services.CoordinatorProvider
	retention  time.Duration
	maxEntries int
}

// NewLogHandler creates a new LogHandler. retention and maxEntries are the cleanup
// defaults when a request does not name its own.
func NewLogHandler(coord services.CoordinatorProvider, retention time.Duration, maxEntries int, detailed bool) *LogHandler {
	return &LogHandler{responder: responder{detailed: detailed}, coord: coord, retention: retention, maxEntries: maxEntries}
}

// GetRecent returns entries newest first, filtered by level and severity.
func (h *LogHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 0
	}

	logs, err := h.coord.ListLogs(r.Context(), auth.UserID(r.Context()), models.LogFilter{
		Level:    models.LogLevel(q.Get("level")),
		Severity: models.Severity(q.Get("severity")),
		Limit:    limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, logs)
}

// CleanupPayload optionally overrides the retention bounds.
type CleanupPayload struct {
	Days  *int `json:"days"`
	Limit *int `json:"limit"`
}

// Cleanup deletes expired entries, then the oldest entries beyond the limit.
func (h *LogHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var payload CleanupPayload
	if err := decode(r, &payload); err != nil && !isEmptyBody(err) {
		h.fail(w, r, err)
		return
	}

	maxAge, maxCount := h.retention, h.maxEntries
	if payload.Days != nil {
		if *payload.Days < 0 {
			h.fail(w, r, apperr.Validation("days must not be negative"))
			return
		}
		maxAge = time.Duration(*payload.Days) * 24 * time.Hour
	}
	if payload.Limit != nil {
		if *payload.Limit < 0 {
			h.fail(w, r, apperr.Validation("limit must not be negative"))
			return
		}
		maxCount = *payload.Limit
	}

	res, err := h.coord.CleanupLogs(r.Context(), auth.UserID(r.Context()), RequestMeta(r), maxAge, maxCount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, map[string]any{
		"message":        "Logs cleaned up",
		"deletedByAge":   res.Expired,
		"deletedByLimit": res.Excess,
		"deletedTotal":   res.Total(),
	})
}

func isEmptyBody(err error) bool {
	e := apperr.From(err)
	return e.Code == apperr.CodeValidation && e.Message == msgEmptyBody
}
