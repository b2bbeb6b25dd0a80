package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/services"
	"github.com/rs/zerolog/log"
)

const (
	msgEmptyBody      = "Request body is required"
	msgSessionExpired = "Session expired"
)

// maxBodyBytes bounds request bodies. Catalog imports are the largest payloads.
const maxBodyBytes = 2 << 20

// responder writes JSON bodies and domain errors. detailed exposes internal error
// causes and is only set in development.
type responder struct {
	detailed bool
}

func (rs responder) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.Render(err, rs.detailed)
	if e.Code == apperr.CodeInternal {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	}
	rs.json(w, e.HTTPStatus(), e)
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation(msgEmptyBody)
		}
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// clientIP strips the port that RemoteAddr carries when no proxy header was present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RequestMeta describes the origin of r for audit entries.
func RequestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{IP: clientIP(r), UserAgent: r.UserAgent()}
}

// mutationRequest wraps m with the verified caller of r.
func mutationRequest(r *http.Request, m services.Mutation) services.Request {
	return services.Request{ActorID: auth.UserID(r.Context()), Meta: RequestMeta(r), Mutation: m}
}

// mutate applies m for the caller and writes the reply with status.
func (rs responder) mutate(w http.ResponseWriter, r *http.Request, coord services.CoordinatorProvider, m services.Mutation, status int) {
	res, err := coord.Apply(r.Context(), mutationRequest(r, m))
	if err != nil {
		rs.fail(w, r, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	rs.json(w, status, res.Reply)
}

// paging reads the page and limit query parameters. Missing or malformed values
// fall back to the defaults.
func paging(r *http.Request) models.Paging {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return models.Paging{Page: page, Limit: limit}.Normalized()
}
