package models

import "time"

// User is a registered account. Email is the login identifier and the JWT subject.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"size:50;not null;uniqueIndex:idx_users_email"`
	Username       string    `json:"username" gorm:"size:20;not null;uniqueIndex:idx_users_username"`
	Password       string    `json:"-" gorm:"size:120;not null"`
	ProfilePicture *string   `json:"profilePicture,omitempty" gorm:"size:255"`
	CreatedAt      time.Time `json:"createdAt"`
}
