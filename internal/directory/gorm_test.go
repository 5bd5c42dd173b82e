package directory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"user_admin_backend/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// stepClock advances by one second on every call so stamps are strictly ordered.
type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func setupGORMRepository(t *testing.T) (*gormRepository, *stepClock) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	clock := &stepClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return &gormRepository{db: db, now: clock.Now}, clock
}

func insertUser(t *testing.T, repo Repository, uid, email string) *User {
	t.Helper()
	u, err := repo.Insert(context.Background(), NewUser{
		UserID:    uid,
		Email:     email,
		FirstName: "First " + uid,
		LastName:  "Last",
		Mobile:    "+33600000000",
		Role:      RoleUser,
	})
	require.NoError(t, err)
	return u
}

func TestGORMRepository_InsertAndList(t *testing.T) {
	repo, _ := setupGORMRepository(t)
	ctx := context.Background()

	a := insertUser(t, repo, "uid-a", " A@Example.com ")
	insertUser(t, repo, "uid-b", "b@example.com")

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "a@example.com", a.Email)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, a.CreatedAt, a.LastUpdated)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "uid-a", users[0].UserID)
	assert.Equal(t, "uid-b", users[1].UserID)
}

func TestGORMRepository_FindByUID(t *testing.T) {
	repo, _ := setupGORMRepository(t)
	ctx := context.Background()
	created := insertUser(t, repo, "uid-a", "a@example.com")

	found, err := repo.FindByUID(ctx, "uid-a")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByUID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGORMRepository_UpdateIsPartialMerge(t *testing.T) {
	repo, _ := setupGORMRepository(t)
	ctx := context.Background()
	created := insertUser(t, repo, "uid-a", "a@example.com")

	editor := RoleEditor
	mobile := "+33711111111"
	require.NoError(t, repo.Update(ctx, created.ID, Updates{Role: &editor, Mobile: &mobile}))

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, got.Role)
	assert.Equal(t, mobile, got.Mobile)
	assert.Equal(t, created.Email, got.Email)
	assert.Equal(t, created.FirstName, got.FirstName)
	assert.Equal(t, created.LastName, got.LastName)
	assert.True(t, got.LastUpdated.After(created.LastUpdated), "lastUpdated must advance")
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
}

func TestGORMRepository_EmptyUpdateStillStamps(t *testing.T) {
	repo, _ := setupGORMRepository(t)
	ctx := context.Background()
	created := insertUser(t, repo, "uid-a", "a@example.com")

	require.NoError(t, repo.Update(ctx, created.ID, Updates{}))

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.LastUpdated.After(created.LastUpdated))
}

func TestGORMRepository_UpdateMissing(t *testing.T) {
	repo, _ := setupGORMRepository(t)
	name := "x"

	err := repo.Update(context.Background(), "nope", Updates{FirstName: &name})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGORMRepository_DeleteRemovesOnlyTarget(t *testing.T) {
	repo, _ := setupGORMRepository(t)
	ctx := context.Background()
	a := insertUser(t, repo, "uid-a", "a@example.com")
	b := insertUser(t, repo, "uid-b", "b@example.com")
	c := insertUser(t, repo, "uid-c", "c@example.com")

	require.NoError(t, repo.Delete(ctx, b.ID))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, c.ID, users[1].ID)

	assert.ErrorIs(t, repo.Delete(ctx, b.ID), common.ErrNotFound)
}

func TestGORMRepository_ListOrdersByCreation(t *testing.T) {
	repo, clock := setupGORMRepository(t)
	ctx := context.Background()
	base := clock.t
	at := func(d time.Duration) *time.Time {
		ts := base.Add(d)
		return &ts
	}
	// Rows are written out of creation order.
	for _, rec := range []userRecord{
		{ID: "a-third", UserID: "uid-3", Email: "c@example.com", Role: "user", CreatedAt: at(3 * time.Hour), LastUpdated: at(3 * time.Hour)},
		{ID: "b-first", UserID: "uid-1", Email: "a@example.com", Role: "user", CreatedAt: at(time.Hour), LastUpdated: at(time.Hour)},
		{ID: "c-second", UserID: "uid-2", Email: "b@example.com", Role: "user", CreatedAt: at(2 * time.Hour), LastUpdated: at(2 * time.Hour)},
	} {
		require.NoError(t, repo.db.Create(&rec).Error)
	}

	role := RoleAdmin
	require.NoError(t, repo.Update(ctx, "b-first", Updates{Role: &role}))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "b-first", users[0].ID)
	assert.Equal(t, "c-second", users[1].ID)
	assert.Equal(t, "a-third", users[2].ID)
}

func TestGORMRepository_MissingTimestampsDefaultToNow(t *testing.T) {
	repo, clock := setupGORMRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.db.Create(&userRecord{ID: "legacy", UserID: "uid-legacy", Email: "l@example.com", Role: "user"}).Error)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, clock.t, users[0].LastUpdated)
	assert.False(t, users[0].CreatedAt.IsZero())
}
