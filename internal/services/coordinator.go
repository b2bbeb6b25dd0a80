package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
	"github.com/isdelr/quickreply-be/internal/store"
	"github.com/isdelr/quickreply-be/internal/validation"
	"github.com/isdelr/quickreply-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// Repository is the persistence the coordinator drives.
type Repository interface {
	UserRepository
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUsersSkipExisting(ctx context.Context, users []models.User) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, u store.UserUpdate) error
	DeleteUser(ctx context.Context, id string) error

	GetCategory(ctx context.Context, id string) (models.Category, error)
	CreateCategory(ctx context.Context, c models.Category) (models.Category, error)
	RenameCategory(ctx context.Context, id, title string) error
	DeleteCategory(ctx context.Context, id string) error
	GetTemplate(ctx context.Context, categoryID, templateID string) (models.Template, error)
	PushTemplate(ctx context.Context, categoryID string, t models.Template) error
	SetTemplate(ctx context.Context, categoryID string, t models.Template) error
	PullTemplate(ctx context.Context, categoryID, templateID string) error
	ReplaceCategories(ctx context.Context, categories []models.Category) error

	GetPNCategory(ctx context.Context, ownerID, id string) (models.PNCategory, error)
	CreatePNCategory(ctx context.Context, c models.PNCategory) (models.PNCategory, error)
	RenamePNCategory(ctx context.Context, ownerID, id, title string) error
	DeletePNCategory(ctx context.Context, ownerID, id string) error
	GetNote(ctx context.Context, ownerID, categoryID, noteID string) (models.Note, error)
	PushNote(ctx context.Context, ownerID, categoryID string, n models.Note) error
	SetNote(ctx context.Context, ownerID, categoryID string, n models.Note) error
	PullNote(ctx context.Context, ownerID, categoryID, noteID string) error

	ListMessages(ctx context.Context, f models.MessageFilter) ([]models.Message, int, error)
	GetMessage(ctx context.Context, id string) (models.Message, error)
	CreateMessage(ctx context.Context, m models.Message) (models.Message, error)
	UpdateMessage(ctx context.Context, m models.Message) error
	DeleteMessage(ctx context.Context, id string) error
	MarkMessageRead(ctx context.Context, messageID, userID string) (bool, error)
	DeleteMessagesEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	ListFeedback(ctx context.Context, f models.FeedbackFilter) ([]models.Feedback, int, error)
	GetFeedback(ctx context.Context, id string) (models.Feedback, error)
	CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error)
	SetFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus, response, adminID string) error
	VoteFeedback(ctx context.Context, feedbackID, userID string, vote int) error
	DeleteFeedback(ctx context.Context, id string) error

	LoadSnapshot(ctx context.Context) (models.Snapshot, error)
}

// Broadcaster fans state pushes out to connected clients.
type Broadcaster interface {
	Publish(msg websocket.Outbound)
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// CoordinatorProvider is the write path and the authorized read helpers the API uses.
type CoordinatorProvider interface {
	Apply(ctx context.Context, req Request) (Result, error)
	View(ctx context.Context, actorID string) (models.View, error)
	Me(ctx context.Context, actorID string) (models.User, error)
	ListUsers(ctx context.Context, actorID string) ([]models.User, error)
	ListLogs(ctx context.Context, actorID string, f models.LogFilter) ([]models.LogEntry, error)
	CleanupLogs(ctx context.Context, actorID string, meta RequestMeta, maxAge time.Duration, maxCount int) (PruneResult, error)
	ListMessages(ctx context.Context, actorID string, f models.MessageFilter) (models.MessagePage, error)
	CleanupMessages(ctx context.Context, actorID string, meta RequestMeta) (int64, error)
	ListFeedback(ctx context.Context, actorID string, f models.FeedbackFilter) (models.FeedbackPage, error)
}

// Request is one mutation attempt. ActorID comes from the verified session, never
// from the payload; an empty ActorID is an unauthenticated caller.
type Request struct {
	ActorID  string
	Meta     RequestMeta
	Mutation Mutation
}

// Result describes a committed mutation.
type Result struct {
	Kind       Kind   `json:"kind"`
	ResourceID string `json:"resourceId,omitempty"`
	Reply      any    `json:"reply,omitempty"`
	// Version is the snapshot version broadcast for this change, or 0 when nothing was broadcast.
	Version uint64 `json:"version"`
}

// Coordinator is the single write path. Mutations run one at a time, so broadcasts
// leave in commit order.
type Coordinator struct {
	mu sync.Mutex

	repo      Repository
	audit     AuditServiceProvider
	live      *LiveState
	hub       Broadcaster
	validator *validation.Validator
	sessions  SessionRevoker

	slowThreshold time.Duration
}

// NewCoordinator creates a Coordinator. sessions may be nil.
func NewCoordinator(repo Repository, audit AuditServiceProvider, live *LiveState, hub Broadcaster, sessions SessionRevoker, slowThreshold time.Duration) *Coordinator {
	return &Coordinator{
		repo:          repo,
		audit:         audit,
		live:          live,
		hub:           hub,
		validator:     validation.New(),
		sessions:      sessions,
		slowThreshold: slowThreshold,
	}
}

// Init loads the first snapshot from storage.
func (c *Coordinator) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.repo.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	installed := c.live.replace(snap)
	log.Info().
		Int("users", len(installed.Users)).
		Int("categories", len(installed.Categories)).
		Uint64("version", installed.Version).
		Msg("Live state loaded")
	return nil
}

// Apply authorizes, validates, writes, audits and broadcasts one mutation.
// Failures reach only the caller; nothing is broadcast unless the write committed.
func (c *Coordinator) Apply(ctx context.Context, req Request) (Result, error) {
	if req.Mutation == nil {
		return Result{}, apperr.Validation("missing mutation")
	}
	kind := req.Mutation.Kind()

	stop := c.startWatchdog(kind, req)
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	actor, err := c.resolve(ctx, req.ActorID)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to resolve actor")
		return Result{}, apperr.Internal(err)
	}

	if err := policy.Authorize(actor, req.Mutation.Action()); err != nil {
		c.audit.Warning("Denied "+string(kind)+": "+apperr.From(err).Message, actor, req.Meta)
		return Result{}, err
	}

	if err := c.validator.Validate(req.Mutation); err != nil {
		c.audit.Warning("Rejected "+string(kind)+": "+apperr.From(err).Message, actor, req.Meta)
		return Result{}, err
	}

	// Past this point the write may commit, so the caller going away must not
	// stop the audit entry or the rebuild that follows it.
	ctx = context.WithoutCancel(ctx)

	ch, err := req.Mutation.apply(ctx, &mutationEnv{repo: c.repo, actor: actor, sessions: c.sessions})
	if err != nil {
		c.recordFailure(kind, err, actor, req.Meta)
		return Result{}, err
	}
	if ch.noop {
		return Result{Kind: kind, ResourceID: ch.resourceID, Reply: ch.reply}, nil
	}

	// register-user runs without an actor; attribute the entry to the new account.
	auditActor := actor
	if auditActor == nil {
		if u, ok := ch.newData.(models.User); ok {
			auditActor = u.Actor()
		}
	}
	c.audit.DatabaseChange(ch.action, ch.resource, ch.resourceID, ch.oldData, ch.newData, auditActor, req.Meta)

	res := Result{Kind: kind, ResourceID: ch.resourceID, Reply: ch.reply}
	if ch.silent {
		return res, nil
	}
	res.Version = c.publish(ctx, kind)
	return res, nil
}

// publish rebuilds the snapshot and fans it out. The write has already committed,
// so a rebuild failure is logged and the caller still sees success.
func (c *Coordinator) publish(ctx context.Context, kind Kind) uint64 {
	snap, err := c.repo.LoadSnapshot(ctx)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to rebuild live state after commit")
		c.audit.Failure("Live state rebuild failed after "+string(kind), err, nil, RequestMeta{})
		return 0
	}
	installed := c.live.replace(snap)
	c.hub.Publish(websocket.Outbound{
		Version: installed.Version,
		Render: func(userID string) []byte {
			return websocket.NewMessage(websocket.TypeDataUpdated, ViewOf(installed, userID))
		},
	})
	return installed.Version
}

func (c *Coordinator) recordFailure(kind Kind, err error, actor *policy.Actor, meta RequestMeta) {
	appErr := apperr.From(err)
	if appErr.Code == apperr.CodeInternal {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Mutation failed")
		c.audit.Failure("Mutation "+string(kind)+" failed", err, actor, meta)
		return
	}
	c.audit.Warning("Rejected "+string(kind)+": "+appErr.Message, actor, meta)
}

// startWatchdog reports a mutation that outlives the slow threshold. It never cancels it.
func (c *Coordinator) startWatchdog(kind Kind, req Request) (stop func()) {
	if c.slowThreshold <= 0 {
		return func() {}
	}
	t := time.AfterFunc(c.slowThreshold, func() {
		log.Warn().Str("kind", string(kind)).Str("user_id", req.ActorID).Dur("threshold", c.slowThreshold).Msg("Slow mutation")
		c.audit.Timeout(string(kind), c.slowThreshold, &policy.Actor{ID: req.ActorID}, req.Meta)
	})
	return func() { t.Stop() }
}

// resolve re-reads the actor from storage so roles are always current.
// Unknown ids are treated as unauthenticated.
func (c *Coordinator) resolve(ctx context.Context, actorID string) (*policy.Actor, error) {
	if actorID == "" {
		return nil, nil
	}
	u, err := c.repo.GetUser(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u.Actor(), nil
}

// authorized resolves actorID and checks action for read paths.
func (c *Coordinator) authorized(ctx context.Context, actorID string, action policy.Action) (*policy.Actor, error) {
	actor, err := c.resolve(ctx, actorID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := policy.Authorize(actor, action); err != nil {
		return nil, err
	}
	return actor, nil
}

// View is what actorID currently sees over the socket.
func (c *Coordinator) View(ctx context.Context, actorID string) (models.View, error) {
	if _, err := c.authorized(ctx, actorID, policy.ActionReadCatalog); err != nil {
		return models.View{}, err
	}
	return c.live.ViewFor(actorID), nil
}

// Me returns the caller's own account.
func (c *Coordinator) Me(ctx context.Context, actorID string) (models.User, error) {
	if _, err := c.authorized(ctx, actorID, policy.ActionReadCatalog); err != nil {
		return models.User{}, err
	}
	u, err := c.repo.GetUser(ctx, actorID)
	if err != nil {
		return models.User{}, storeErr(err, msgUserNotFound, "")
	}
	return u.Sanitized(), nil
}

// ListUsers returns every account without password hashes.
func (c *Coordinator) ListUsers(ctx context.Context, actorID string) ([]models.User, error) {
	if _, err := c.authorized(ctx, actorID, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	users, err := c.repo.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// ListLogs returns audit entries newest first.
func (c *Coordinator) ListLogs(ctx context.Context, actorID string, f models.LogFilter) ([]models.LogEntry, error) {
	if _, err := c.authorized(ctx, actorID, policy.ActionMaintainLogs); err != nil {
		return nil, err
	}
	logs, err := c.audit.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return logs, nil
}

// CleanupLogs prunes the audit log on behalf of an admin.
func (c *Coordinator) CleanupLogs(ctx context.Context, actorID string, meta RequestMeta, maxAge time.Duration, maxCount int) (PruneResult, error) {
	actor, err := c.authorized(ctx, actorID, policy.ActionMaintainLogs)
	if err != nil {
		return PruneResult{}, err
	}
	res, err := c.audit.Prune(ctx, maxAge, maxCount)
	if err != nil {
		return PruneResult{}, apperr.Internal(err)
	}
	c.audit.DatabaseChange("DELETE", "Log", "", nil, res, actor, meta)
	return res, nil
}

// ListMessages returns one page of every message, including inactive and ended ones.
func (c *Coordinator) ListMessages(ctx context.Context, actorID string, f models.MessageFilter) (models.MessagePage, error) {
	if _, err := c.authorized(ctx, actorID, policy.ActionManageMessages); err != nil {
		return models.MessagePage{}, err
	}
	f.Paging = f.Paging.Normalized()
	messages, total, err := c.repo.ListMessages(ctx, f)
	if err != nil {
		return models.MessagePage{}, apperr.Internal(err)
	}
	return models.MessagePage{
		Messages:    messages,
		Total:       total,
		CurrentPage: f.Page,
		TotalPages:  f.Paging.TotalPages(total),
	}, nil
}

// CleanupMessages deletes ended messages on behalf of an admin.
func (c *Coordinator) CleanupMessages(ctx context.Context, actorID string, meta RequestMeta) (int64, error) {
	actor, err := c.authorized(ctx, actorID, policy.ActionManageMessages)
	if err != nil {
		return 0, err
	}
	return c.expireMessages(ctx, actor, meta)
}

// ExpireMessages deletes ended messages for the cleanup scheduler.
func (c *Coordinator) ExpireMessages(ctx context.Context) (int64, error) {
	return c.expireMessages(ctx, nil, RequestMeta{})
}

// expireMessages runs on the write path so the rebuild that drops the messages
// is ordered with every other broadcast.
func (c *Coordinator) expireMessages(ctx context.Context, actor *policy.Actor, meta RequestMeta) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.repo.DeleteMessagesEndedBefore(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete ended messages")
		return 0, apperr.Internal(err)
	}
	if n == 0 {
		return 0, nil
	}
	c.audit.DatabaseChange("DELETE", "Message", "", nil, map[string]int64{"expired": n}, actor, meta)
	c.publish(context.WithoutCancel(ctx), kindExpireMessages)
	return n, nil
}

// ListFeedback returns one page of feedback. Reviewers see everything; other users
// see public feedback and their own.
func (c *Coordinator) ListFeedback(ctx context.Context, actorID string, f models.FeedbackFilter) (models.FeedbackPage, error) {
	actor, err := c.authorized(ctx, actorID, policy.ActionSubmitFeedback)
	if err != nil {
		return models.FeedbackPage{}, err
	}
	f.VisibleTo = ""
	if !policy.Can(actor.Role, policy.ActionReviewFeedback) {
		f.VisibleTo = actor.ID
	}
	f.Paging = f.Paging.Normalized()
	items, total, err := c.repo.ListFeedback(ctx, f)
	if err != nil {
		return models.FeedbackPage{}, apperr.Internal(err)
	}
	return models.FeedbackPage{
		Feedback:    items,
		Total:       total,
		CurrentPage: f.Page,
		TotalPages:  f.Paging.TotalPages(total),
	}, nil
}
