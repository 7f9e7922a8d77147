package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RolePro   Role = "pro"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePro, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	Name                   string
	Email                  string     `gorm:"unique;not null"`
	Password               string     `gorm:"not null" json:"-"`
	Role                   Role       `gorm:"type:user_role;default:'user'"`
	ProMembershipExpiresAt *time.Time `gorm:"index"`
	PurchasedCourses       []Course   `gorm:"many2many:user_purchased_courses;"`
}

// HasPurchased reports whether courseID is among the loaded purchases.
func (u *User) HasPurchased(courseID uint) bool {
	for _, c := range u.PurchasedCourses {
		if c.ID == courseID {
			return true
		}
	}
	return false
}

// ProActive reports whether the pro membership is still running at now.
func (u *User) ProActive(now time.Time) bool {
	return u.ProMembershipExpiresAt != nil && u.ProMembershipExpiresAt.After(now)
}

type Session struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    uint      `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}
