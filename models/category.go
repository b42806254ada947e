package models

// Category is a shared label. Rows are created on first use and never owned by a meme.
type Category struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:50;not null;uniqueIndex:idx_categories_name"`
}
