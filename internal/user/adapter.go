package user

import (
	"strings"

	"user_admin_backend/internal/directory"
)

// ToUserResponse converts a directory record to a UserResponse DTO.
func ToUserResponse(u *directory.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		UserID:      u.UserID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Mobile:      u.Mobile,
		Role:        u.Role,
		RoleLabel:   u.RoleLabel(),
		DisplayName: u.DisplayName(),
		CreatedAt:   u.CreatedAt,
		LastUpdated: u.LastUpdated,
	}
}

// ToUserResponses converts a list, keeping its order.
func ToUserResponses(users []directory.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	return out
}

// createRequestToNewUser builds the record to insert once the identity account exists.
func createRequestToNewUser(req CreateUserRequest, uid string, role directory.Role) directory.NewUser {
	return directory.NewUser{
		UserID:    uid,
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Mobile:    strings.TrimSpace(req.Mobile),
		Role:      role,
	}
}
