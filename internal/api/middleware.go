package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/quickreply-be/internal/api/handlers"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
	"github.com/isdelr/quickreply-be/internal/services"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs every request with zerolog and records /api requests in the
// audit log. Requests slower than slow also get a timeout entry.
func RequestLogger(audit services.AuditServiceProvider, slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			userID := auth.UserID(r.Context())
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", elapsed).
				Str("user_id", userID).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Request handled")

			if !strings.HasPrefix(r.URL.Path, "/api") || strings.HasSuffix(r.URL.Path, "/ws") {
				return
			}

			target := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
			meta := handlers.RequestMeta(r)
			var actor *policy.Actor
			if userID != "" {
				actor = &policy.Actor{ID: userID}
			}
			audit.Record(models.LogEntry{
				Level:          models.LevelInfo,
				Message:        target,
				Description:    fmt.Sprintf("%s responded %d in %dms", target, status, elapsed.Milliseconds()),
				Severity:       models.SeverityLow,
				UserID:         userID,
				IP:             meta.IP,
				UserAgent:      meta.UserAgent,
				ResponseTimeMs: elapsed.Milliseconds(),
				StatusCode:     status,
			})
			if slow > 0 && elapsed > slow {
				log.Warn().Str("target", target).Dur("duration", elapsed).Msg("Slow request")
				audit.Timeout(target, elapsed, actor, meta)
			}
		})
	}
}
