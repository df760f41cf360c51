package models

import "time"

// Roles recognised by the API.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User is an account in the school: an admin, a teacher, or a student.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:32;not null;default:student" json:"role"`
	ClassLabel   string    `gorm:"size:64" json:"class_label"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTeacher reports whether the user may own courses and assignments.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}
