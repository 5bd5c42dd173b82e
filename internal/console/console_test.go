package console

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"user_admin_backend/internal/common"
	"user_admin_backend/internal/config"
	"user_admin_backend/internal/directory"
	"user_admin_backend/internal/identity/identitytest"
	"user_admin_backend/internal/metrics"
	"user_admin_backend/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// flakyUsers fails ListUsers while listErr is set.
type flakyUsers struct {
	user.Service
	listErr error
}

func (f *flakyUsers) ListUsers(ctx context.Context) ([]directory.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Service.ListUsers(ctx)
}

type consoleFixture struct {
	console *Console
	users   *flakyUsers
	repo    directory.Repository
	idp     *identitytest.Provider
}

const operatorUID = "uid-operator"

func newConsoleFixture(t *testing.T, lang language.Tag) *consoleFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, directory.AutoMigrate(db))
	repo := directory.NewGORMRepository(db)

	idp := identitytest.New()
	svc := user.NewService(repo, idp, metrics.Nop{}, &config.Config{CompensationTimeout: time.Second}, zap.NewNop())
	users := &flakyUsers{Service: svc}

	c := New(operatorUID, users, idp, lang, zap.NewNop())
	c.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	return &consoleFixture{console: c, users: users, repo: repo, idp: idp}
}

func (f *consoleFixture) seed(t *testing.T, uid, email string, role directory.Role) *directory.User {
	t.Helper()
	u, err := f.repo.Insert(context.Background(), directory.NewUser{
		UserID: uid, Email: email, FirstName: "First", LastName: "Last", Role: role,
	})
	require.NoError(t, err)
	return u
}

func createRequest(email, password string) user.CreateUserRequest {
	return user.CreateUserRequest{Email: email, Password: password, Role: directory.RoleUser, FirstName: "Nina", LastName: "Roux"}
}

func onlyMessage(t *testing.T, v View) Notification {
	t.Helper()
	require.Len(t, v.Notifications, 1)
	return v.Notifications[0]
}

func TestConsole_InitialViewLoadsAndResolvesCurrentUser(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	f.seed(t, "uid-other", "other@x.com", directory.RoleUser)
	f.seed(t, operatorUID, "op@x.com", directory.RoleAdmin)

	v := f.console.View(context.Background())

	assert.Equal(t, PhaseReady, v.Phase)
	assert.Equal(t, ModalNone, v.Modal)
	assert.Len(t, v.Users, 2)
	require.NotNil(t, v.CurrentUser)
	assert.Equal(t, operatorUID, v.CurrentUser.UserID)
	assert.Equal(t, "Admin", v.CurrentUser.RoleLabel)
	assert.Empty(t, v.Notifications)
}

func TestConsole_CurrentUserMayBeAbsent(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	f.seed(t, "uid-other", "other@x.com", directory.RoleUser)

	v := f.console.View(context.Background())
	assert.Equal(t, PhaseReady, v.Phase)
	assert.Nil(t, v.CurrentUser)
}

func TestConsole_LoadFailure(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	f.seed(t, operatorUID, "op@x.com", directory.RoleAdmin)
	f.users.listErr = errors.New("unavailable")

	v := f.console.View(context.Background())

	assert.Equal(t, PhaseReady, v.Phase)
	assert.Empty(t, v.Users)
	n := onlyMessage(t, v)
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "Échec du chargement des utilisateurs", n.Message)
}

func TestConsole_CreateSuccessClosesModalAndReloads(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	ctx := context.Background()
	f.console.View(ctx)

	v, err := f.console.OpenCreate()
	require.NoError(t, err)
	assert.Equal(t, ModalCreate, v.Modal)

	v, err = f.console.Create(ctx, createRequest("nina@x.com", "secret123"))
	require.NoError(t, err)

	assert.Equal(t, ModalNone, v.Modal)
	assert.Nil(t, v.Selected)
	require.Len(t, v.Users, 1)
	assert.Equal(t, "nina@x.com", v.Users[0].Email)
	n := onlyMessage(t, v)
	assert.Equal(t, LevelSuccess, n.Level)
	assert.Equal(t, "Utilisateur créé avec succès", n.Message)
}

func TestConsole_CreateFailureKeepsModal(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{"weak password", "a@x.com", "short", "Le mot de passe doit contenir au moins 6 caractères"},
		{"invalid email", "nope", "secret123", "Adresse email invalide"},
		{"duplicate email", "dup@x.com", "secret123", "Cet email est déjà enregistré"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConsoleFixture(t, language.French)
			ctx := context.Background()
			f.idp.AddAccount("dup@x.com")
			f.console.View(ctx)
			_, err := f.console.OpenCreate()
			require.NoError(t, err)

			v, err := f.console.Create(ctx, createRequest(tt.email, tt.password))
			require.NoError(t, err)

			assert.Equal(t, ModalCreate, v.Modal)
			assert.Empty(t, v.Users)
			n := onlyMessage(t, v)
			assert.Equal(t, LevelError, n.Level)
			assert.Equal(t, tt.want, n.Message)
		})
	}
}

func TestConsole_CreateUnknownFailureUsesGenericMessage(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	ctx := context.Background()
	f.idp.RegisterErr = errors.New("quota exceeded")
	f.console.View(ctx)
	_, _ = f.console.OpenCreate()

	v, err := f.console.Create(ctx, createRequest("a@x.com", "secret123"))
	require.NoError(t, err)
	assert.Equal(t, "Échec de la création de l'utilisateur", onlyMessage(t, v).Message)
}

func TestConsole_EditAndSaveRole(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	ctx := context.Background()
	target := f.seed(t, "uid-b", "b@x.com", directory.RoleUser)
	f.console.View(ctx)

	v, err := f.console.EditRole(target.ID)
	require.NoError(t, err)
	assert.Equal(t, ModalRole, v.Modal)
	require.NotNil(t, v.Selected)
	assert.Equal(t, target.ID, v.Selected.ID)

	editor := directory.RoleEditor
	v, err = f.console.SaveRole(ctx, directory.Updates{Role: &editor})
	require.NoError(t, err)

	assert.Equal(t, ModalNone, v.Modal)
	assert.Nil(t, v.Selected)
	require.Len(t, v.Users, 1)
	assert.Equal(t, directory.RoleEditor, v.Users[0].Role)
	assert.Equal(t, "Informations mises à jour avec succès", onlyMessage(t, v).Message)
}

func TestConsole_SaveRoleFailureKeepsSelection(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	ctx := context.Background()
	target := f.seed(t, "uid-b", "b@x.com", directory.RoleUser)
	f.console.View(ctx)
	_, err := f.console.EditRole(target.ID)
	require.NoError(t, err)

	// Someone else removes the record while the modal is open.
	require.NoError(t, f.repo.Delete(ctx, target.ID))

	editor := directory.RoleEditor
	v, err := f.console.SaveRole(ctx, directory.Updates{Role: &editor})
	require.NoError(t, err)

	assert.Equal(t, ModalRole, v.Modal)
	require.NotNil(t, v.Selected)
	assert.Equal(t, target.ID, v.Selected.ID)
	n := onlyMessage(t, v)
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "Échec de la mise à jour", n.Message)
}

func TestConsole_DeleteKeepsOrderOfOthers(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	ctx := context.Background()
	a := f.seed(t, "uid-a", "a@x.com", directory.RoleUser)
	b := f.seed(t, "uid-b", "b@x.com", directory.RoleUser)
	c := f.seed(t, "uid-c", "c@x.com", directory.RoleUser)
	f.console.View(ctx)

	_, err := f.console.RequestDelete(b.ID)
	require.NoError(t, err)
	v, err := f.console.ConfirmDelete(ctx)
	require.NoError(t, err)

	require.Len(t, v.Users, 2)
	assert.Equal(t, a.ID, v.Users[0].ID)
	assert.Equal(t, c.ID, v.Users[1].ID)
	assert.Equal(t, ModalNone, v.Modal)
	assert.Equal(t, "Utilisateur supprimé avec succès", onlyMessage(t, v).Message)
}

func TestConsole_DeleteFailureKeepsModal(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	ctx := context.Background()
	b := f.seed(t, "uid-b", "b@x.com", directory.RoleUser)
	f.console.View(ctx)
	_, err := f.console.RequestDelete(b.ID)
	require.NoError(t, err)
	require.NoError(t, f.repo.Delete(ctx, b.ID))

	v, err := f.console.ConfirmDelete(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModalDelete, v.Modal)
	assert.Equal(t, "Échec de la suppression", onlyMessage(t, v).Message)
}

func TestConsole_InvalidTransitions(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	ctx := context.Background()
	b := f.seed(t, "uid-b", "b@x.com", directory.RoleUser)

	_, err := f.console.OpenCreate()
	assert.ErrorIs(t, err, ErrInvalidTransition, "not loaded yet")

	f.console.View(ctx)

	_, err = f.console.ConfirmDelete(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.console.EditRole("missing")
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = f.console.OpenCreate()
	require.NoError(t, err)
	_, err = f.console.OpenCreate()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.console.RequestDelete(b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	v := f.console.CloseModal()
	assert.Equal(t, ModalNone, v.Modal)
	_, err = f.console.RequestDelete(b.ID)
	assert.NoError(t, err)

	apiErr, ok := common.IsAPIError(ErrInvalidTransition)
	require.True(t, ok)
	assert.Equal(t, 409, apiErr.StatusCode)
}

func TestConsole_Logout(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	ctx := context.Background()
	f.console.View(ctx)

	v, done := f.console.Logout(ctx)

	assert.True(t, done)
	assert.Equal(t, []string{operatorUID}, f.idp.Revoked())
	assert.Equal(t, "Déconnexion réussie", onlyMessage(t, v).Message)

	_, err := f.console.OpenCreate()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConsole_EnglishMessages(t *testing.T) {
	f := newConsoleFixture(t, language.English)
	ctx := context.Background()
	f.console.View(ctx)
	_, _ = f.console.OpenCreate()

	v, err := f.console.Create(ctx, createRequest("a@x.com", "secret123"))
	require.NoError(t, err)
	assert.Equal(t, "User created successfully", onlyMessage(t, v).Message)

	f.console.SetLanguage(language.French)
	v = f.console.Load(ctx)
	assert.Empty(t, v.Notifications)
}

func TestResolveLanguage(t *testing.T) {
	assert.Equal(t, language.French, ResolveLanguage("", ""))
	assert.Equal(t, language.French, ResolveLanguage("", "fr"))
	assert.Equal(t, language.English, ResolveLanguage("", "en"))
	assert.Equal(t, language.English, ResolveLanguage("en-US,en;q=0.9", "fr"))
	assert.Equal(t, language.French, ResolveLanguage("fr-CA", ""))
	assert.Equal(t, language.French, ResolveLanguage("de-DE", ""))
	assert.Equal(t, language.English, ResolveLanguage("de-DE", "en"))
}

func TestManager_GetAndRemove(t *testing.T) {
	f := newConsoleFixture(t, language.French)
	m := NewManager(f.users, f.idp, zap.NewNop())

	a := m.Get("uid-a", language.French)
	assert.Same(t, a, m.Get("uid-a", language.English))
	assert.NotSame(t, a, m.Get("uid-b", language.French))
	assert.Equal(t, 2, m.Len())

	m.Remove("uid-a")
	assert.Equal(t, 1, m.Len())
	assert.NotSame(t, a, m.Get("uid-a", language.French))
}
