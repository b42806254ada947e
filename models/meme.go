package models

import "time"

// Meme is an uploaded image with a title. URL holds the generated ImageBlob filename.
type Meme struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"size:100;not null;index:idx_memes_title"`
	URL       string    `json:"url" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index:idx_memes_created_at"`
	UserID    *uint     `json:"userId,omitempty" gorm:"index:idx_memes_user_id"`

	User       *User      `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:SET NULL"`
	Categories []Category `json:"categories,omitempty" gorm:"many2many:meme_categories;constraint:OnDelete:CASCADE"`
	Votes      []Vote     `json:"-" gorm:"foreignKey:MemeID;constraint:OnDelete:CASCADE"`
	Comments   []Comment  `json:"-" gorm:"foreignKey:MemeID;constraint:OnDelete:CASCADE"`
}
