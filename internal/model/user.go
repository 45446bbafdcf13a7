package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleBuyer = "buyer"
	RoleAdmin = "admin"
)

type User struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(55);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(100);not null" json:"-"`
	FirstName string    `gorm:"type:varchar(30);not null" json:"firstName"`
	LastName  string    `gorm:"type:varchar(30);not null" json:"lastName"`
	Gender    string    `gorm:"type:varchar(10);not null" json:"gender"`
	Role      string    `gorm:"type:varchar(10);index;not null;default:buyer" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
