package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
	"github.com/isdelr/quickreply-be/internal/store"
)

// Kind names a mutation on the wire.
type Kind string

const (
	KindCreateCategory    Kind = "create-category"
	KindUpdateCategory    Kind = "update-category"
	KindDeleteCategory    Kind = "delete-category"
	KindCreateTemplate    Kind = "create-template"
	KindUpdateTemplate    Kind = "update-template"
	KindDeleteTemplate    Kind = "delete-template"
	KindCreatePNCategory  Kind = "create-pn-category"
	KindUpdatePNCategory  Kind = "update-pn-category"
	KindDeletePNCategory  Kind = "delete-pn-category"
	KindCreatePNNote      Kind = "create-pn-note"
	KindUpdatePNNote      Kind = "update-pn-note"
	KindDeletePNNote      Kind = "delete-pn-note"
	KindCreateUser        Kind = "create-user"
	KindUpdateUser        Kind = "update-user"
	KindDeleteUser        Kind = "delete-user"
	KindRegisterUser      Kind = "register-user"
	KindReplaceCategories Kind = "replace-categories"
	KindBulkCreateUsers   Kind = "bulk-create-users"
	KindResetUserPassword Kind = "reset-user-password"
	KindChangePassword    Kind = "change-password"
)

// ErrUnknownMutation is returned by ParseMutation for unrecognized kinds.
var ErrUnknownMutation = errors.New("unknown mutation type")

// Acknowledged reports whether a socket requester gets a "<kind>-success" reply.
// Other kinds are confirmed by the data-updated broadcast alone.
func (k Kind) Acknowledged() bool {
	switch k {
	case KindRegisterUser, KindBulkCreateUsers, KindResetUserPassword, KindChangePassword,
		KindMarkMessageRead, KindSubmitFeedback, KindUpdateFeedbackStatus, KindVoteFeedback, KindDeleteFeedback:
		return true
	}
	return false
}

// Mutation is one state-changing intent. The set of implementations is closed:
// every variant lives in this package and supplies its own apply step.
type Mutation interface {
	Kind() Kind
	Action() policy.Action
	apply(ctx context.Context, env *mutationEnv) (change, error)
}

// change describes a committed write for the audit log and the requester.
type change struct {
	action     string
	resource   string
	resourceID string
	oldData    any
	newData    any
	reply      any
	// silent skips the broadcast when nothing visible changed.
	silent bool
	// noop marks a request that changed nothing; it is neither audited nor broadcast.
	noop bool
}

// mutationEnv is what a mutation may touch while applying.
type mutationEnv struct {
	repo     Repository
	actor    *policy.Actor
	sessions SessionRevoker
}

var mutationFactories = map[Kind]func() Mutation{
	KindCreateCategory:       func() Mutation { return &CreateCategory{} },
	KindUpdateCategory:       func() Mutation { return &UpdateCategory{} },
	KindDeleteCategory:       func() Mutation { return &DeleteCategory{} },
	KindCreateTemplate:       func() Mutation { return &CreateTemplate{} },
	KindUpdateTemplate:       func() Mutation { return &UpdateTemplate{} },
	KindDeleteTemplate:       func() Mutation { return &DeleteTemplate{} },
	KindCreatePNCategory:     func() Mutation { return &CreatePNCategory{} },
	KindUpdatePNCategory:     func() Mutation { return &UpdatePNCategory{} },
	KindDeletePNCategory:     func() Mutation { return &DeletePNCategory{} },
	KindCreatePNNote:         func() Mutation { return &CreatePNNote{} },
	KindUpdatePNNote:         func() Mutation { return &UpdatePNNote{} },
	KindDeletePNNote:         func() Mutation { return &DeletePNNote{} },
	KindCreateUser:           func() Mutation { return &CreateUser{} },
	KindUpdateUser:           func() Mutation { return &UpdateUser{} },
	KindDeleteUser:           func() Mutation { return &DeleteUser{} },
	KindRegisterUser:         func() Mutation { return &RegisterUser{} },
	KindReplaceCategories:    func() Mutation { return &ReplaceCategories{} },
	KindBulkCreateUsers:      func() Mutation { return &BulkCreateUsers{} },
	KindResetUserPassword:    func() Mutation { return &ResetUserPassword{} },
	KindChangePassword:       func() Mutation { return &ChangePassword{} },
	KindCreateMessage:        func() Mutation { return &CreateMessage{} },
	KindUpdateMessage:        func() Mutation { return &UpdateMessage{} },
	KindDeleteMessage:        func() Mutation { return &DeleteMessage{} },
	KindMarkMessageRead:      func() Mutation { return &MarkMessageRead{} },
	KindSubmitFeedback:       func() Mutation { return &SubmitFeedback{} },
	KindUpdateFeedbackStatus: func() Mutation { return &UpdateFeedbackStatus{} },
	KindVoteFeedback:         func() Mutation { return &VoteFeedback{} },
	KindDeleteFeedback:       func() Mutation { return &DeleteFeedback{} },
}

// Kinds lists every mutation kind.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(mutationFactories))
	for k := range mutationFactories {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseMutation decodes a wire payload into the variant for kind.
func ParseMutation(kind string, payload json.RawMessage) (Mutation, error) {
	factory, ok := mutationFactories[Kind(kind)]
	if !ok {
		return nil, ErrUnknownMutation
	}
	m := factory()
	if len(payload) == 0 || string(payload) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(payload, m); err != nil {
		return nil, apperr.Validation("malformed payload")
	}
	return m, nil
}

// storeErr maps persistence errors into the domain taxonomy.
func storeErr(err error, missing, duplicate string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(missing)
	case errors.Is(err, store.ErrDuplicate) && duplicate != "":
		return apperr.InvalidOperation(duplicate)
	default:
		return apperr.Internal(err)
	}
}

const (
	msgCategoryNotFound   = "Category not found"
	msgTemplateNotFound   = "Template not found"
	msgPNCategoryNotFound = "Note category not found"
	msgNoteNotFound       = "Note not found"
	msgUserNotFound       = "User not found"
	msgCategoryExists     = "Category already exists"
	msgPNCategoryExists   = "Note category already exists"
	msgUsernameExists     = "Username already exists"
)

// Canned-response catalog.

type CreateCategory struct {
	Title string `json:"title" validate:"notblank,max=200"`
}

func (*CreateCategory) Kind() Kind            { return KindCreateCategory }
func (*CreateCategory) Action() policy.Action { return policy.ActionWriteCatalog }

func (m *CreateCategory) apply(ctx context.Context, env *mutationEnv) (change, error) {
	c, err := env.repo.CreateCategory(ctx, models.Category{ID: uuid.NewString(), Title: strings.TrimSpace(m.Title)})
	if err != nil {
		return change{}, storeErr(err, msgCategoryNotFound, msgCategoryExists)
	}
	return change{action: "CREATE", resource: "Category", resourceID: c.ID, newData: c, reply: c}, nil
}

type UpdateCategory struct {
	CategoryID string `json:"categoryId" validate:"required"`
	Title      string `json:"title" validate:"notblank,max=200"`
}

func (*UpdateCategory) Kind() Kind            { return KindUpdateCategory }
func (*UpdateCategory) Action() policy.Action { return policy.ActionWriteCatalog }

func (m *UpdateCategory) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetCategory(ctx, m.CategoryID)
	if err != nil {
		return change{}, storeErr(err, msgCategoryNotFound, "")
	}
	title := strings.TrimSpace(m.Title)
	if err := env.repo.RenameCategory(ctx, m.CategoryID, title); err != nil {
		return change{}, storeErr(err, msgCategoryNotFound, msgCategoryExists)
	}
	return change{
		action: "UPDATE", resource: "Category", resourceID: m.CategoryID,
		oldData: map[string]string{"title": old.Title},
		newData: map[string]string{"title": title},
		reply:   map[string]string{"id": m.CategoryID, "title": title},
	}, nil
}

type DeleteCategory struct {
	CategoryID string `json:"categoryId" validate:"required"`
}

func (*DeleteCategory) Kind() Kind            { return KindDeleteCategory }
func (*DeleteCategory) Action() policy.Action { return policy.ActionWriteCatalog }

func (m *DeleteCategory) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetCategory(ctx, m.CategoryID)
	if err != nil {
		return change{}, storeErr(err, msgCategoryNotFound, "")
	}
	if err := env.repo.DeleteCategory(ctx, m.CategoryID); err != nil {
		return change{}, storeErr(err, msgCategoryNotFound, "")
	}
	return change{action: "DELETE", resource: "Category", resourceID: m.CategoryID, oldData: old}, nil
}

// TemplateInput is the client-supplied part of a template.
type TemplateInput struct {
	Text string   `json:"text" validate:"notblank,max=10000"`
	Tags []string `json:"tags" validate:"max=50,dive,max=50"`
}

type CreateTemplate struct {
	CategoryID string        `json:"categoryId" validate:"required"`
	Template   TemplateInput `json:"template"`
}

func (*CreateTemplate) Kind() Kind            { return KindCreateTemplate }
func (*CreateTemplate) Action() policy.Action { return policy.ActionWriteCatalog }

func (m *CreateTemplate) apply(ctx context.Context, env *mutationEnv) (change, error) {
	t := models.Template{
		ID:   uuid.NewString(),
		Text: m.Template.Text,
		Tags: AutoTag(m.Template.Text, m.Template.Tags),
	}
	if err := env.repo.PushTemplate(ctx, m.CategoryID, t); err != nil {
		return change{}, storeErr(err, msgCategoryNotFound, "")
	}
	return change{action: "CREATE", resource: "Template", resourceID: t.ID, newData: t, reply: t}, nil
}

type TemplatePatch struct {
	ID   string   `json:"id" validate:"required"`
	Text string   `json:"text" validate:"notblank,max=10000"`
	Tags []string `json:"tags" validate:"max=50,dive,max=50"`
}

type UpdateTemplate struct {
	CategoryID string        `json:"categoryId" validate:"required"`
	Template   TemplatePatch `json:"template"`
}

func (*UpdateTemplate) Kind() Kind            { return KindUpdateTemplate }
func (*UpdateTemplate) Action() policy.Action { return policy.ActionWriteCatalog }

func (m *UpdateTemplate) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetTemplate(ctx, m.CategoryID, m.Template.ID)
	if err != nil {
		return change{}, storeErr(err, msgTemplateNotFound, "")
	}
	t := models.Template{
		ID:   m.Template.ID,
		Text: m.Template.Text,
		Tags: AutoTag(m.Template.Text, m.Template.Tags),
	}
	if err := env.repo.SetTemplate(ctx, m.CategoryID, t); err != nil {
		return change{}, storeErr(err, msgTemplateNotFound, "")
	}
	return change{action: "UPDATE", resource: "Template", resourceID: t.ID, oldData: old, newData: t, reply: t}, nil
}

type DeleteTemplate struct {
	CategoryID string `json:"categoryId" validate:"required"`
	TemplateID string `json:"templateId" validate:"required"`
}

func (*DeleteTemplate) Kind() Kind            { return KindDeleteTemplate }
func (*DeleteTemplate) Action() policy.Action { return policy.ActionWriteCatalog }

func (m *DeleteTemplate) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetTemplate(ctx, m.CategoryID, m.TemplateID)
	if err != nil {
		return change{}, storeErr(err, msgTemplateNotFound, "")
	}
	if err := env.repo.PullTemplate(ctx, m.CategoryID, m.TemplateID); err != nil {
		return change{}, storeErr(err, msgTemplateNotFound, "")
	}
	return change{action: "DELETE", resource: "Template", resourceID: m.TemplateID, oldData: old}, nil
}

// CategoryImport is one category of a catalog replacement document.
type CategoryImport struct {
	Title     string          `json:"title" validate:"notblank,max=200"`
	Templates []TemplateInput `json:"templates" validate:"dive"`
}

// ReplaceCategories swaps the whole catalog. Clients only ever see the old or the new catalog.
type ReplaceCategories struct {
	Categories []CategoryImport `json:"categories" validate:"required,min=1,dive"`
}

func (*ReplaceCategories) Kind() Kind            { return KindReplaceCategories }
func (*ReplaceCategories) Action() policy.Action { return policy.ActionImportCatalog }

func (m *ReplaceCategories) apply(ctx context.Context, env *mutationEnv) (change, error) {
	seen := map[string]bool{}
	categories := make([]models.Category, 0, len(m.Categories))
	templates := 0
	for _, in := range m.Categories {
		title := strings.TrimSpace(in.Title)
		if seen[title] {
			return change{}, apperr.Validation("duplicate category title: " + title)
		}
		seen[title] = true

		c := models.Category{ID: uuid.NewString(), Title: title, Templates: make([]models.Template, 0, len(in.Templates))}
		for _, t := range in.Templates {
			c.Templates = append(c.Templates, models.Template{ID: uuid.NewString(), Text: t.Text, Tags: AutoTag(t.Text, t.Tags)})
		}
		templates += len(c.Templates)
		categories = append(categories, c)
	}

	if err := env.repo.ReplaceCategories(ctx, categories); err != nil {
		return change{}, storeErr(err, msgCategoryNotFound, msgCategoryExists)
	}
	summary := map[string]int{"categories": len(categories), "templates": templates}
	return change{action: "REPLACE", resource: "Category", newData: summary, reply: summary}, nil
}

// Private notes. Ownership is enforced by the store: another user's ids are not found.

type CreatePNCategory struct {
	Title string `json:"title" validate:"notblank,max=200"`
}

func (*CreatePNCategory) Kind() Kind            { return KindCreatePNCategory }
func (*CreatePNCategory) Action() policy.Action { return policy.ActionManageOwnNotes }

func (m *CreatePNCategory) apply(ctx context.Context, env *mutationEnv) (change, error) {
	c, err := env.repo.CreatePNCategory(ctx, models.PNCategory{
		ID: uuid.NewString(), Title: strings.TrimSpace(m.Title), OwnerID: env.actor.ID,
	})
	if err != nil {
		return change{}, storeErr(err, msgPNCategoryNotFound, msgPNCategoryExists)
	}
	return change{action: "CREATE", resource: "PNCategory", resourceID: c.ID, newData: c, reply: c}, nil
}

type UpdatePNCategory struct {
	CategoryID string `json:"categoryId" validate:"required"`
	Title      string `json:"title" validate:"notblank,max=200"`
}

func (*UpdatePNCategory) Kind() Kind            { return KindUpdatePNCategory }
func (*UpdatePNCategory) Action() policy.Action { return policy.ActionManageOwnNotes }

func (m *UpdatePNCategory) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetPNCategory(ctx, env.actor.ID, m.CategoryID)
	if err != nil {
		return change{}, storeErr(err, msgPNCategoryNotFound, "")
	}
	title := strings.TrimSpace(m.Title)
	if err := env.repo.RenamePNCategory(ctx, env.actor.ID, m.CategoryID, title); err != nil {
		return change{}, storeErr(err, msgPNCategoryNotFound, msgPNCategoryExists)
	}
	return change{
		action: "UPDATE", resource: "PNCategory", resourceID: m.CategoryID,
		oldData: map[string]string{"title": old.Title},
		newData: map[string]string{"title": title},
		reply:   map[string]string{"id": m.CategoryID, "title": title},
	}, nil
}

type DeletePNCategory struct {
	CategoryID string `json:"categoryId" validate:"required"`
}

func (*DeletePNCategory) Kind() Kind            { return KindDeletePNCategory }
func (*DeletePNCategory) Action() policy.Action { return policy.ActionManageOwnNotes }

func (m *DeletePNCategory) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetPNCategory(ctx, env.actor.ID, m.CategoryID)
	if err != nil {
		return change{}, storeErr(err, msgPNCategoryNotFound, "")
	}
	if err := env.repo.DeletePNCategory(ctx, env.actor.ID, m.CategoryID); err != nil {
		return change{}, storeErr(err, msgPNCategoryNotFound, "")
	}
	return change{action: "DELETE", resource: "PNCategory", resourceID: m.CategoryID, oldData: old}, nil
}

// NoteInput is the client-supplied part of a note.
type NoteInput struct {
	Title   string `json:"title" validate:"notblank,max=200"`
	Content string `json:"content" validate:"max=20000"`
}

type CreatePNNote struct {
	CategoryID string    `json:"categoryId" validate:"required"`
	Note       NoteInput `json:"note"`
}

func (*CreatePNNote) Kind() Kind            { return KindCreatePNNote }
func (*CreatePNNote) Action() policy.Action { return policy.ActionManageOwnNotes }

func (m *CreatePNNote) apply(ctx context.Context, env *mutationEnv) (change, error) {
	n := models.Note{ID: uuid.NewString(), Title: strings.TrimSpace(m.Note.Title), Content: m.Note.Content}
	if err := env.repo.PushNote(ctx, env.actor.ID, m.CategoryID, n); err != nil {
		return change{}, storeErr(err, msgPNCategoryNotFound, "")
	}
	return change{action: "CREATE", resource: "Note", resourceID: n.ID, newData: n, reply: n}, nil
}

type NotePatch struct {
	ID      string `json:"id" validate:"required"`
	Title   string `json:"title" validate:"notblank,max=200"`
	Content string `json:"content" validate:"max=20000"`
}

type UpdatePNNote struct {
	CategoryID string    `json:"categoryId" validate:"required"`
	Note       NotePatch `json:"note"`
}

func (*UpdatePNNote) Kind() Kind            { return KindUpdatePNNote }
func (*UpdatePNNote) Action() policy.Action { return policy.ActionManageOwnNotes }

func (m *UpdatePNNote) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetNote(ctx, env.actor.ID, m.CategoryID, m.Note.ID)
	if err != nil {
		return change{}, storeErr(err, msgNoteNotFound, "")
	}
	n := models.Note{ID: m.Note.ID, Title: strings.TrimSpace(m.Note.Title), Content: m.Note.Content}
	if err := env.repo.SetNote(ctx, env.actor.ID, m.CategoryID, n); err != nil {
		return change{}, storeErr(err, msgNoteNotFound, "")
	}
	return change{action: "UPDATE", resource: "Note", resourceID: n.ID, oldData: old, newData: n, reply: n}, nil
}

type DeletePNNote struct {
	CategoryID string `json:"categoryId" validate:"required"`
	NoteID     string `json:"noteId" validate:"required"`
}

func (*DeletePNNote) Kind() Kind            { return KindDeletePNNote }
func (*DeletePNNote) Action() policy.Action { return policy.ActionManageOwnNotes }

func (m *DeletePNNote) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetNote(ctx, env.actor.ID, m.CategoryID, m.NoteID)
	if err != nil {
		return change{}, storeErr(err, msgNoteNotFound, "")
	}
	if err := env.repo.PullNote(ctx, env.actor.ID, m.CategoryID, m.NoteID); err != nil {
		return change{}, storeErr(err, msgNoteNotFound, "")
	}
	return change{action: "DELETE", resource: "Note", resourceID: m.NoteID, oldData: old}, nil
}

// Accounts.

type NewUserInput struct {
	Username string `json:"username" validate:"notblank,max=50"`
	Password string `json:"password" validate:"min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user editor admin"`
}

type CreateUser struct {
	User NewUserInput `json:"user"`
}

func (*CreateUser) Kind() Kind            { return KindCreateUser }
func (*CreateUser) Action() policy.Action { return policy.ActionManageUsers }

func (m *CreateUser) apply(ctx context.Context, env *mutationEnv) (change, error) {
	role := policy.RoleUser
	if m.User.Role != "" {
		role = policy.Role(m.User.Role)
	}
	return createAccount(ctx, env, m.User.Username, m.User.Password, role)
}

type RegisterUser struct {
	Username string `json:"username" validate:"notblank,max=50"`
	Password string `json:"password" validate:"min=6,max=72"`
}

func (*RegisterUser) Kind() Kind            { return KindRegisterUser }
func (*RegisterUser) Action() policy.Action { return policy.ActionRegister }

func (m *RegisterUser) apply(ctx context.Context, env *mutationEnv) (change, error) {
	return createAccount(ctx, env, m.Username, m.Password, policy.RoleUser)
}

func createAccount(ctx context.Context, env *mutationEnv, username, password string, role policy.Role) (change, error) {
	hashed, err := hashPassword(password)
	if err != nil {
		return change{}, apperr.Internal(err)
	}
	u, err := env.repo.CreateUser(ctx, models.User{
		ID: uuid.NewString(), Username: username, PasswordHash: hashed, Role: role,
	})
	if err != nil {
		return change{}, storeErr(err, msgUserNotFound, msgUsernameExists)
	}
	u = u.Sanitized()
	return change{action: "CREATE", resource: "User", resourceID: u.ID, newData: u, reply: u}, nil
}

// UserUpdates lists the fields an admin may change. Empty fields are left as they are.
type UserUpdates struct {
	Role     string `json:"role" validate:"omitempty,oneof=user editor admin"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
}

type UpdateUser struct {
	UserID  string      `json:"userId" validate:"required"`
	Updates UserUpdates `json:"updates"`
}

func (*UpdateUser) Kind() Kind            { return KindUpdateUser }
func (*UpdateUser) Action() policy.Action { return policy.ActionManageUsers }

func (m *UpdateUser) apply(ctx context.Context, env *mutationEnv) (change, error) {
	if m.Updates.Role == "" && m.Updates.Password == "" {
		return change{}, apperr.Validation("no updates provided")
	}
	target, err := env.repo.GetUser(ctx, m.UserID)
	if err != nil {
		return change{}, storeErr(err, msgUserNotFound, "")
	}

	var upd store.UserUpdate
	oldData := map[string]any{}
	newData := map[string]any{}
	if m.Updates.Role != "" {
		role := policy.Role(m.Updates.Role)
		others, err := env.repo.CountAdmins(ctx, target.ID)
		if err != nil {
			return change{}, apperr.Internal(err)
		}
		if err := policy.CheckRoleChange(*target.Actor(), role, others); err != nil {
			return change{}, err
		}
		upd.Role = role
		oldData["role"], newData["role"] = target.Role, role
	}
	if m.Updates.Password != "" {
		if upd.PasswordHash, err = hashPassword(m.Updates.Password); err != nil {
			return change{}, apperr.Internal(err)
		}
		oldData["password"], newData["password"] = redacted, redacted
	}

	if err := env.repo.UpdateUser(ctx, target.ID, upd); err != nil {
		return change{}, storeErr(err, msgUserNotFound, "")
	}
	return change{action: "UPDATE", resource: "User", resourceID: target.ID, oldData: oldData, newData: newData}, nil
}

type DeleteUser struct {
	UserID string `json:"userId" validate:"required"`
}

func (*DeleteUser) Kind() Kind            { return KindDeleteUser }
func (*DeleteUser) Action() policy.Action { return policy.ActionManageUsers }

func (m *DeleteUser) apply(ctx context.Context, env *mutationEnv) (change, error) {
	target, err := env.repo.GetUser(ctx, m.UserID)
	if err != nil {
		return change{}, storeErr(err, msgUserNotFound, "")
	}
	others, err := env.repo.CountAdmins(ctx, target.ID)
	if err != nil {
		return change{}, apperr.Internal(err)
	}
	if err := policy.CheckUserDeletion(env.actor.ID, *target.Actor(), others); err != nil {
		return change{}, err
	}
	// Sessions go first: a failed revocation leaves the account intact.
	if env.sessions != nil {
		if err := env.sessions.RevokeUser(ctx, target.ID); err != nil {
			return change{}, apperr.Internal(err)
		}
	}
	if err := env.repo.DeleteUser(ctx, target.ID); err != nil {
		return change{}, storeErr(err, msgUserNotFound, "")
	}
	return change{action: "DELETE", resource: "User", resourceID: target.ID, oldData: target.Sanitized()}, nil
}

type BulkCreateUsers struct {
	Usernames []string `json:"usernames" validate:"required,min=1,max=500"`
}

func (*BulkCreateUsers) Kind() Kind            { return KindBulkCreateUsers }
func (*BulkCreateUsers) Action() policy.Action { return policy.ActionManageUsers }

// CreatedAccount is returned once so an admin can hand out the initial password.
type CreatedAccount struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (m *BulkCreateUsers) apply(ctx context.Context, env *mutationEnv) (change, error) {
	seen := map[string]bool{}
	users := []models.User{}
	for _, raw := range m.Usernames {
		username := store.NormalizeUsername(raw)
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true
		// The initial password is the username; users are expected to change it.
		hashed, err := hashPassword(username)
		if err != nil {
			return change{}, apperr.Internal(err)
		}
		users = append(users, models.User{ID: uuid.NewString(), Username: username, PasswordHash: hashed, Role: policy.RoleUser})
	}
	if len(users) == 0 {
		return change{}, apperr.Validation("No usernames provided")
	}

	created, err := env.repo.CreateUsersSkipExisting(ctx, users)
	if err != nil {
		return change{}, apperr.Internal(err)
	}
	accounts := make([]CreatedAccount, 0, len(created))
	names := make([]string, 0, len(created))
	for _, u := range created {
		accounts = append(accounts, CreatedAccount{ID: u.ID, Username: u.Username, Password: u.Username})
		names = append(names, u.Username)
	}
	return change{
		action: "CREATE", resource: "User",
		newData: map[string]any{"usernames": names},
		reply:   map[string]any{"createdUsers": accounts},
		silent:  len(created) == 0,
	}, nil
}

type ResetUserPassword struct {
	UserID string `json:"userId" validate:"required"`
}

func (*ResetUserPassword) Kind() Kind            { return KindResetUserPassword }
func (*ResetUserPassword) Action() policy.Action { return policy.ActionManageUsers }

func (m *ResetUserPassword) apply(ctx context.Context, env *mutationEnv) (change, error) {
	target, err := env.repo.GetUser(ctx, m.UserID)
	if err != nil {
		return change{}, storeErr(err, msgUserNotFound, "")
	}
	temp, err := temporaryPassword()
	if err != nil {
		return change{}, apperr.Internal(err)
	}
	hashed, err := hashPassword(temp)
	if err != nil {
		return change{}, apperr.Internal(err)
	}
	if err := env.repo.UpdateUser(ctx, target.ID, store.UserUpdate{PasswordHash: hashed}); err != nil {
		return change{}, storeErr(err, msgUserNotFound, "")
	}
	return change{
		action: "UPDATE", resource: "User", resourceID: target.ID,
		oldData: map[string]string{"password": redacted},
		newData: map[string]string{"password": redacted},
		reply:   map[string]string{"userId": target.ID, "username": target.Username, "tempPassword": temp},
		silent:  true,
	}, nil
}

type ChangePassword struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"min=6,max=72"`
}

func (*ChangePassword) Kind() Kind            { return KindChangePassword }
func (*ChangePassword) Action() policy.Action { return policy.ActionChangeOwnPassword }

func (m *ChangePassword) apply(ctx context.Context, env *mutationEnv) (change, error) {
	me, err := env.repo.GetUser(ctx, env.actor.ID)
	if err != nil {
		return change{}, storeErr(err, msgUserNotFound, "")
	}
	if !checkPassword(me.PasswordHash, m.CurrentPassword) {
		return change{}, apperr.InvalidOperation("Current password is incorrect")
	}
	hashed, err := hashPassword(m.NewPassword)
	if err != nil {
		return change{}, apperr.Internal(err)
	}
	if err := env.repo.UpdateUser(ctx, me.ID, store.UserUpdate{PasswordHash: hashed}); err != nil {
		return change{}, storeErr(err, msgUserNotFound, "")
	}
	return change{
		action: "UPDATE", resource: "User", resourceID: me.ID,
		oldData: map[string]string{"password": redacted},
		newData: map[string]string{"password": redacted},
		reply:   map[string]string{"message": "Password updated"},
		silent:  true,
	}, nil
}
