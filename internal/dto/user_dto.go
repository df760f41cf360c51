package dto

import (
	"time"

	"github.com/ecolehub/cartable-api/internal/models"
)

// UserCreateRequest describes the payload for creating an account.
type UserCreateRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role" validate:"required,oneof=admin teacher student"`
	ClassLabel string `json:"class_label" validate:"omitempty,max=64"`
}

// UserUpdateRequest describes a partial account update.
type UserUpdateRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=255"`
	Role       *string `json:"role" validate:"omitempty,oneof=admin teacher student"`
	ClassLabel *string `json:"class_label" validate:"omitempty,max=64"`
}

// UserListRequest defines filters for the admin user listing.
type UserListRequest struct {
	Role     string `query:"role" validate:"omitempty,oneof=admin teacher student"`
	Search   string `query:"search" validate:"omitempty,max=255"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// LoginRequest carries credentials for token issuance.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the serialized account representation.
type UserResponse struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	ClassLabel string    `json:"class_label"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LoginResponse pairs a signed token with the authenticated account.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserListResponse is a page of accounts.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:         model.ID,
		Name:       model.Name,
		Email:      model.Email,
		Role:       model.Role,
		ClassLabel: model.ClassLabel,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

// NewUserResponseSlice converts a slice of models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}
