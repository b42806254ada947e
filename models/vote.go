package models

import "time"

// Vote records that a user voted on a meme. At most one row exists per (user, meme).
type Vote struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"not null;uniqueIndex:idx_votes_user_meme"`
	MemeID    uint      `json:"memeId" gorm:"not null;uniqueIndex:idx_votes_user_meme;index:idx_votes_meme_id"`
	CreatedAt time.Time `json:"createdAt"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}
