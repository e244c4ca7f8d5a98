package models

import (
	"time"
)

// Roles known to the auth collaborator
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User is an account allowed to use the shop backend
type User struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	Username              string     `gorm:"not null;uniqueIndex" json:"username"`
	Name                  string     `gorm:"not null;default:''" json:"name"`
	Password              string     `gorm:"not null" json:"-"`
	Role                  string     `gorm:"not null;default:'operator'" json:"role"`
	Phone                 string     `gorm:"not null;default:''" json:"phone"`
	Active                bool       `gorm:"not null" json:"active"`
	SubscriptionExpiresAt *time.Time `gorm:"index" json:"subscription_expires_at"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
