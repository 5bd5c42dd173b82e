// Package console holds the per-operator admin console: the list of users, the
// open modal and the notifications produced by the last intent.
package console

import (
	"context"
	"net/http"
	"sync"
	"time"

	"user_admin_backend/internal/common"
	"user_admin_backend/internal/directory"
	"user_admin_backend/internal/user"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

type Modal string

const (
	ModalNone   Modal = "none"
	ModalRole   Modal = "role"
	ModalCreate Modal = "create"
	ModalDelete Modal = "delete"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a toast shown to the operator.
type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// View is the console state returned to the client after every intent.
type View struct {
	Phase         Phase               `json:"phase"`
	Modal         Modal               `json:"modal"`
	Users         []user.UserResponse `json:"users"`
	Selected      *user.UserResponse  `json:"selected,omitempty"`
	CurrentUser   *user.UserResponse  `json:"current_user,omitempty"`
	Notifications []Notification      `json:"notifications"`
}

var (
	ErrInvalidTransition = common.NewAPIError(http.StatusConflict, "INVALID_TRANSITION", "The action is not allowed in the current console state.")
	ErrUnknownUser       = common.NewAPIError(http.StatusConflict, "UNKNOWN_USER", "The user is not part of the loaded list.")
)

// SessionRevoker signs an operator out of the identity provider.
type SessionRevoker interface {
	RevokeSessions(ctx context.Context, uid string) error
}

// Console is one operator's console. Intents are serialised by mu.
type Console struct {
	mu sync.Mutex

	operatorUID string
	users       user.Service
	sessions    SessionRevoker
	logger      *zap.Logger
	now         func() time.Time
	printer     *message.Printer

	phase         Phase
	modal         Modal
	list          []directory.User
	selected      *directory.User
	current       *directory.User
	notifications []Notification
	loggedOut     bool
}

// New returns a console in the loading phase. The first View call loads it.
func New(operatorUID string, users user.Service, sessions SessionRevoker, lang language.Tag, logger *zap.Logger) *Console {
	return &Console{
		operatorUID: operatorUID,
		users:       users,
		sessions:    sessions,
		logger:      logger.With(zap.String("operator_uid", operatorUID)),
		now:         time.Now,
		printer:     newPrinter(lang),
		phase:       PhaseLoading,
		modal:       ModalNone,
	}
}

// SetLanguage switches the language of future notifications.
func (c *Console) SetLanguage(lang language.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printer = newPrinter(lang)
}

// View returns the current state, loading the list first if it was never loaded.
func (c *Console) View(ctx context.Context) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseLoading {
		c.begin()
		c.load(ctx)
	}
	return c.view()
}

// Load re-fetches the list. It keeps the open modal.
func (c *Console) Load(ctx context.Context) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.begin()
	c.load(ctx)
	return c.view()
}

// OpenCreate opens the creation form.
func (c *Console) OpenCreate() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(ModalNone); err != nil {
		return c.view(), err
	}
	c.begin()
	c.modal = ModalCreate
	return c.view(), nil
}

// Create submits the creation form.
func (c *Console) Create(ctx context.Context, req user.CreateUserRequest) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(ModalCreate); err != nil {
		return c.view(), err
	}
	c.begin()

	if _, err := c.users.CreateUser(ctx, req); err != nil {
		c.logger.Warn("Console user creation failed", zap.String("email", req.Email), zap.Error(err))
		c.notify(LevelError, createFailureKey(err))
		return c.view(), nil
	}
	c.succeeded(ctx, msgCreateSucceeded)
	return c.view(), nil
}

// EditRole opens the role modal for the user with the given record id.
func (c *Console) EditRole(id string) (View, error) {
	return c.selectFor(id, ModalRole)
}

// SaveRole applies updates to the selected user.
func (c *Console) SaveRole(ctx context.Context, updates directory.Updates) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(ModalRole); err != nil {
		return c.view(), err
	}
	c.begin()

	if err := c.users.UpdateUser(ctx, c.selected.ID, updates); err != nil {
		c.logger.Warn("Console user update failed", zap.String("id", c.selected.ID), zap.Error(err))
		c.notify(LevelError, msgUpdateFailed)
		return c.view(), nil
	}
	c.succeeded(ctx, msgUpdateSucceeded)
	return c.view(), nil
}

// RequestDelete opens the delete confirmation for the user with the given record id.
func (c *Console) RequestDelete(id string) (View, error) {
	return c.selectFor(id, ModalDelete)
}

// ConfirmDelete deletes the selected user.
func (c *Console) ConfirmDelete(ctx context.Context) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(ModalDelete); err != nil {
		return c.view(), err
	}
	c.begin()

	if err := c.users.DeleteUser(ctx, c.selected.ID); err != nil {
		c.logger.Warn("Console user delete failed", zap.String("id", c.selected.ID), zap.Error(err))
		c.notify(LevelError, msgDeleteFailed)
		return c.view(), nil
	}
	c.succeeded(ctx, msgDeleteSucceeded)
	return c.view(), nil
}

// CloseModal dismisses any open modal. Closing with nothing open is a no-op.
func (c *Console) CloseModal() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.begin()
	c.modal = ModalNone
	c.selected = nil
	return c.view()
}

// Logout revokes the operator's sessions. It reports whether the console should be discarded.
func (c *Console) Logout(ctx context.Context) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.begin()

	if err := c.sessions.RevokeSessions(ctx, c.operatorUID); err != nil {
		c.logger.Error("Console logout failed", zap.Error(err))
		c.notify(LevelError, msgLogoutFailed)
		return c.view(), false
	}
	c.notify(LevelSuccess, msgLogoutSucceeded)
	c.loggedOut = true
	c.modal = ModalNone
	c.selected = nil
	return c.view(), true
}

func (c *Console) selectFor(id string, modal Modal) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(ModalNone); err != nil {
		return c.view(), err
	}
	target := c.find(id)
	if target == nil {
		return c.view(), ErrUnknownUser.WithDetails(id)
	}
	c.begin()
	c.selected = target
	c.modal = modal
	return c.view(), nil
}

// expect checks the console is loaded and showing modal.
func (c *Console) expect(modal Modal) error {
	if c.phase != PhaseReady || c.loggedOut {
		return ErrInvalidTransition.WithDetails("The console is not ready.")
	}
	if c.modal != modal {
		return ErrInvalidTransition.WithDetails(map[string]Modal{"current": c.modal, "expected": modal})
	}
	return nil
}

// begin starts a new intent; notifications only describe the latest one.
func (c *Console) begin() {
	c.notifications = nil
}

// succeeded runs the common tail of every successful mutation.
func (c *Console) succeeded(ctx context.Context, key string) {
	c.notify(LevelSuccess, key)
	c.modal = ModalNone
	c.selected = nil
	c.load(ctx)
}

func (c *Console) load(ctx context.Context) {
	c.phase = PhaseLoading
	users, err := c.users.ListUsers(ctx)
	c.phase = PhaseReady
	if err != nil {
		c.logger.Error("Console failed to load users", zap.Error(err))
		c.notify(LevelError, msgLoadFailed)
		c.list = nil
		c.current = nil
		return
	}
	c.list = users
	c.current = nil
	for i := range c.list {
		if c.list[i].UserID == c.operatorUID {
			u := c.list[i]
			c.current = &u
			break
		}
	}
}

func (c *Console) find(id string) *directory.User {
	for i := range c.list {
		if c.list[i].ID == id {
			u := c.list[i]
			return &u
		}
	}
	return nil
}

func (c *Console) notify(level Level, key string) {
	c.notifications = append(c.notifications, Notification{
		Level:     level,
		Message:   c.printer.Sprintf(key),
		CreatedAt: c.now(),
	})
}

func (c *Console) view() View {
	v := View{
		Phase:         c.phase,
		Modal:         c.modal,
		Users:         user.ToUserResponses(c.list),
		Notifications: append([]Notification{}, c.notifications...),
	}
	if c.selected != nil {
		s := user.ToUserResponse(c.selected)
		v.Selected = &s
	}
	if c.current != nil {
		cur := user.ToUserResponse(c.current)
		v.CurrentUser = &cur
	}
	return v
}
