package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName         string    `gorm:"not null;column:full_name" json:"full_name"`
	Username         string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	StudentID        *string   `gorm:"uniqueIndex;column:student_id" json:"student_id,omitempty"`
	AdminID          *string   `gorm:"uniqueIndex;column:admin_id" json:"admin_id,omitempty"`
	Email            string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password         string    `gorm:"not null;column:password" json:"-"`
	Role             Role      `gorm:"not null;default:student;column:role" json:"role"`
	Phone            string    `gorm:"column:phone" json:"phone,omitempty"`
	EmergencyContact string    `gorm:"column:emergency_contact" json:"emergency_contact,omitempty"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}
