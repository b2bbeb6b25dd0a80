package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
	"github.com/rs/zerolog/log"
)

// redacted replaces every password-like value in audit data.
const redacted = "***"

// AuditStore is the persistence the audit recorder needs.
type AuditStore interface {
	InsertLog(ctx context.Context, e models.LogEntry) error
	ListLogs(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error)
	DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteLogsBeyond(ctx context.Context, keep int) (int64, error)
}

// AuditServiceProvider defines the interface for audit logging.
type AuditServiceProvider interface {
	Record(e models.LogEntry)
	DatabaseChange(action, resource, resourceID string, oldData, newData any, actor *policy.Actor, meta RequestMeta)
	Timeout(target string, elapsed time.Duration, actor *policy.Actor, meta RequestMeta)
	Failure(message string, err error, actor *policy.Actor, meta RequestMeta)
	Warning(message string, actor *policy.Actor, meta RequestMeta)
	Flush(ctx context.Context) error
	List(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error)
	Prune(ctx context.Context, maxAge time.Duration, maxCount int) (PruneResult, error)
}

// RequestMeta describes where a request came from.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// PruneResult reports how many entries each pruning step removed.
type PruneResult struct {
	Expired int64 `json:"expired"`
	Excess  int64 `json:"excess"`
}

// Total is the number of removed entries.
func (r PruneResult) Total() int64 {
	return r.Expired + r.Excess
}

type auditJob struct {
	entry   models.LogEntry
	flushed chan struct{}
}

// AuditRecorder appends audit entries from a background worker so recording never
// blocks or fails the caller.
type AuditRecorder struct {
	store AuditStore
	queue chan auditJob
	done  chan struct{}
	now   func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewAuditRecorder starts a recorder with a queue of the given size.
func NewAuditRecorder(store AuditStore, queueSize int) *AuditRecorder {
	a := &AuditRecorder{
		store: store,
		queue: make(chan auditJob, queueSize),
		done:  make(chan struct{}),
		now:   func() time.Time { return time.Now().UTC() },
	}
	go a.run()
	return a
}

func (a *AuditRecorder) run() {
	defer close(a.done)
	for job := range a.queue {
		if job.flushed != nil {
			close(job.flushed)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.store.InsertLog(ctx, job.entry); err != nil {
			log.Error().Err(err).Str("level", string(job.entry.Level)).Str("message", job.entry.Message).Msg("Failed to persist audit entry")
		}
		cancel()
	}
}

// Record queues an entry. When the queue is full the entry is dropped with a warning.
func (a *AuditRecorder) Record(e models.LogEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = a.now()
	}
	e.UpdatedAt = e.CreatedAt
	if e.Severity == "" {
		e.Severity = models.SeverityMedium
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		log.Warn().Str("message", e.Message).Msg("Audit recorder closed, entry dropped")
		return
	}
	select {
	case a.queue <- auditJob{entry: e}:
	default:
		log.Warn().Str("level", string(e.Level)).Str("message", e.Message).Msg("Audit queue full, entry dropped")
	}
}

// Flush waits until every entry queued before the call has been written.
func (a *AuditRecorder) Flush(ctx context.Context) error {
	flushed := make(chan struct{})

	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return nil
	}
	select {
	case a.queue <- auditJob{flushed: flushed}:
		a.mu.RUnlock()
	case <-ctx.Done():
		a.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (a *AuditRecorder) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

// DatabaseChange records a committed write. Password fields are always redacted.
func (a *AuditRecorder) DatabaseChange(action, resource, resourceID string, oldData, newData any, actor *policy.Actor, meta RequestMeta) {
	desc := fmt.Sprintf("Database %s: %s", action, resource)
	if resourceID != "" {
		desc += fmt.Sprintf(" (ID: %s)", resourceID)
	}
	e := models.LogEntry{
		Level:       models.LevelDatabase,
		Message:     fmt.Sprintf("%s operation on %s", action, resource),
		Description: desc,
		Severity:    models.SeverityLow,
		Action:      action,
		Resource:    resource,
		ResourceID:  resourceID,
		OldData:     redactJSON(oldData),
		NewData:     redactJSON(newData),
	}
	a.Record(withActor(e, actor, meta))
}

// Timeout records an operation that exceeded the slow threshold.
func (a *AuditRecorder) Timeout(target string, elapsed time.Duration, actor *policy.Actor, meta RequestMeta) {
	ms := elapsed.Milliseconds()
	e := models.LogEntry{
		Level:          models.LevelTimeout,
		Message:        "Request timeout: " + target,
		Description:    fmt.Sprintf("Request to %s timed out after %dms", target, ms),
		Severity:       models.SeverityMedium,
		ResponseTimeMs: ms,
	}
	a.Record(withActor(e, actor, meta))
}

// Failure records a mutation attempt that did not commit.
func (a *AuditRecorder) Failure(message string, err error, actor *policy.Actor, meta RequestMeta) {
	e := models.LogEntry{
		Level:       models.LevelError,
		Message:     message,
		Description: "Error: " + err.Error(),
		Severity:    models.SeverityHigh,
	}
	a.Record(withActor(e, actor, meta))
}

// Warning records a best-effort warning such as a denied attempt.
func (a *AuditRecorder) Warning(message string, actor *policy.Actor, meta RequestMeta) {
	a.Record(withActor(models.LogEntry{Level: models.LevelWarn, Message: message, Severity: models.SeverityMedium}, actor, meta))
}

// List returns entries newest first, including any still queued.
func (a *AuditRecorder) List(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error) {
	if err := a.Flush(ctx); err != nil {
		return nil, err
	}
	return a.store.ListLogs(ctx, f)
}

// Prune deletes entries older than maxAge, then the oldest entries beyond maxCount.
// A non-positive bound skips its step.
func (a *AuditRecorder) Prune(ctx context.Context, maxAge time.Duration, maxCount int) (PruneResult, error) {
	var res PruneResult
	if err := a.Flush(ctx); err != nil {
		return res, err
	}

	var err error
	if maxAge > 0 {
		if res.Expired, err = a.store.DeleteLogsBefore(ctx, a.now().Add(-maxAge)); err != nil {
			return res, fmt.Errorf("delete expired logs: %w", err)
		}
	}
	if maxCount > 0 {
		if res.Excess, err = a.store.DeleteLogsBeyond(ctx, maxCount); err != nil {
			return res, fmt.Errorf("delete excess logs: %w", err)
		}
	}
	return res, nil
}

func withActor(e models.LogEntry, actor *policy.Actor, meta RequestMeta) models.LogEntry {
	if actor != nil {
		e.UserID = actor.ID
		e.Username = actor.Username
	}
	e.IP = meta.IP
	e.UserAgent = meta.UserAgent
	return e
}

// redactJSON encodes v with every password-like field replaced.
func redactJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return raw
	}
	out, err := json.Marshal(redact(generic))
	if err != nil {
		return nil
	}
	return out
}

func redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if strings.Contains(strings.ToLower(k), "password") {
				t[k] = redacted
				continue
			}
			t[k] = redact(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redact(t[i])
		}
		return t
	default:
		return v
	}
}
