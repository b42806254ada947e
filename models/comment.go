package models

import "time"

// MaxCommentLength is the maximum number of characters in a comment.
const MaxCommentLength = 500

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"size:500;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index:idx_comments_created_at"`
	UserID    uint      `json:"userId" gorm:"not null;index:idx_comments_user_id"`
	MemeID    uint      `json:"memeId" gorm:"not null;index:idx_comments_meme_id"`

	User User `json:"user" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}
