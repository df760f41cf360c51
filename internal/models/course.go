package models

import "time"

// Course is a taught subject: it belongs to one teacher and a class, and
// students enroll into it. Schedule slots and assignments hang off a course.
type Course struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	TeacherID  uint           `gorm:"not null;index" json:"teacher_id"`
	ClassLabel string         `gorm:"size:64" json:"class_label"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Teacher    User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher"`
	Students   []User         `gorm:"many2many:course_enrollments" json:"students,omitempty"`
	Slots      []ScheduleSlot `json:"slots,omitempty"`
}

// HasStudent reports whether the given student is enrolled.
func (c Course) HasStudent(studentID uint) bool {
	for _, student := range c.Students {
		if student.ID == studentID {
			return true
		}
	}
	return false
}
