// File: internal/directory/gorm.go
package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"user_admin_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// userRecord is the relational row backing a directory record.
type userRecord struct {
	ID          string     `gorm:"type:varchar(64);primaryKey"`
	UserID      string     `gorm:"column:user_id;type:varchar(128);not null;index"`
	Email       string     `gorm:"type:varchar(255);not null"`
	FirstName   string     `gorm:"type:varchar(100)"`
	LastName    string     `gorm:"type:varchar(100)"`
	Mobile      string     `gorm:"type:varchar(32)"`
	Role        string     `gorm:"type:varchar(20);not null;default:'user'"`
	CreatedAt   *time.Time `gorm:"column:created_at"`
	LastUpdated *time.Time `gorm:"column:last_updated"`
}

// TableName specifies the table name for the record model.
func (userRecord) TableName() string {
	return "users"
}

func (rec *userRecord) toUser(now time.Time) User {
	return User{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Email:       rec.Email,
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		Mobile:      rec.Mobile,
		Role:        Role(rec.Role),
		CreatedAt:   timeOrNow(rec.CreatedAt, now),
		LastUpdated: timeOrNow(rec.LastUpdated, now),
	}
}

// gormColumns maps document field names onto table columns.
var gormColumns = map[string]string{
	fieldEmail:     "email",
	fieldFirstName: "first_name",
	fieldLastName:  "last_name",
	fieldMobile:    "mobile",
	fieldRole:      "role",
}

type gormRepository struct {
	db  *gorm.DB
	now Clock
}

// NewGORMRepository creates a new GORM directory repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db, now: systemClock}
}

// AutoMigrate creates or updates the users table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{})
}

// List returns records in creation order. created_at is never rewritten, so
// edits do not move a record.
func (r *gormRepository) List(ctx context.Context) ([]User, error) {
	var records []userRecord
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&records).Error; err != nil {
		return nil, storeErr("list", err)
	}
	now := r.now()
	users := make([]User, 0, len(records))
	for i := range records {
		users = append(users, records[i].toUser(now))
	}
	return users, nil
}

func (r *gormRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *gormRepository) FindByUID(ctx context.Context, uid string) (*User, error) {
	return r.findOne(ctx, "user_id = ?", uid)
}

func (r *gormRepository) findOne(ctx context.Context, query string, arg string) (*User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where(query, arg).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User record not found.")
		}
		return nil, storeErr("get", err)
	}
	u := rec.toUser(r.now())
	return &u, nil
}

func (r *gormRepository) Insert(ctx context.Context, nu NewUser) (*User, error) {
	now := r.now()
	rec := userRecord{
		ID:          uuid.NewString(),
		UserID:      nu.UserID,
		Email:       strings.ToLower(strings.TrimSpace(nu.Email)),
		FirstName:   nu.FirstName,
		LastName:    nu.LastName,
		Mobile:      nu.Mobile,
		Role:        string(nu.Role),
		CreatedAt:   &now,
		LastUpdated: &now,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, storeErr("insert", err)
	}
	u := rec.toUser(now)
	return &u, nil
}

func (r *gormRepository) Update(ctx context.Context, id string, updates Updates) error {
	cols := make(map[string]interface{})
	for field, value := range updates.fields() {
		cols[gormColumns[field]] = value
	}
	cols["last_updated"] = r.now()

	result := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return storeErr("update", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("User record not found.")
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&userRecord{})
	if result.Error != nil {
		return storeErr("delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("User record not found.")
	}
	return nil
}
