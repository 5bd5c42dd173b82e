// File: internal/directory/model.go
package directory

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is the flat access level stored on each directory record.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleUser   Role = "user"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleEditor, RoleUser}

// Valid checks if the role is one of the known values.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole normalizes s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q, expected one of %v", s, Roles)
	}
	return r, nil
}

// User is one directory record. ID belongs to the store, UserID to the identity provider.
type User struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Mobile      string    `json:"mobile"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// DisplayName renders "First L." for navigation chrome.
func (u *User) DisplayName() string {
	initial := ""
	if r, _ := utf8.DecodeRuneInString(u.LastName); r != utf8.RuneError {
		initial = string(r)
	}
	return fmt.Sprintf("%s %s.", u.FirstName, initial)
}

// RoleLabel returns the role title-cased. Casers keep state, so one is built per call.
func (u *User) RoleLabel() string {
	return cases.Title(language.English).String(string(u.Role))
}

// NewUser is the input for inserting a record; timestamps are assigned by the store.
type NewUser struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Mobile    string
	Role      Role
}

// Updates is a partial merge. Nil fields keep their stored value.
type Updates struct {
	Email     *string `json:"email,omitempty" binding:"omitempty,email"`
	FirstName *string `json:"first_name,omitempty" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" binding:"omitempty,max=100"`
	Mobile    *string `json:"mobile,omitempty" binding:"omitempty,max=32"`
	Role      *Role   `json:"role,omitempty"`
}

// Normalize returns u with its role parsed through ParseRole, or an error for
// a role outside the closed enumeration.
func (u Updates) Normalize() (Updates, error) {
	if u.Role == nil {
		return u, nil
	}
	role, err := ParseRole(string(*u.Role))
	if err != nil {
		return u, err
	}
	u.Role = &role
	return u, nil
}

// fields flattens the non-nil values keyed by document field name.
func (u Updates) fields() map[string]interface{} {
	out := make(map[string]interface{}, 5)
	if u.Email != nil {
		out[fieldEmail] = strings.ToLower(strings.TrimSpace(*u.Email))
	}
	if u.FirstName != nil {
		out[fieldFirstName] = *u.FirstName
	}
	if u.LastName != nil {
		out[fieldLastName] = *u.LastName
	}
	if u.Mobile != nil {
		out[fieldMobile] = *u.Mobile
	}
	if u.Role != nil {
		out[fieldRole] = string(*u.Role)
	}
	return out
}

// Document field names, shared with the web client.
const (
	fieldUserID      = "userId"
	fieldEmail       = "email"
	fieldFirstName   = "firstName"
	fieldLastName    = "lastName"
	fieldMobile      = "mobile"
	fieldRole        = "role"
	fieldCreatedAt   = "createdAt"
	fieldLastUpdated = "lastUpdated"
)

// timeOrNow substitutes now for timestamps missing on legacy documents.
func timeOrNow(t *time.Time, now time.Time) time.Time {
	if t == nil || t.IsZero() {
		return now
	}
	return *t
}
