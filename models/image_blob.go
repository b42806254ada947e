package models

import "time"

// ImageBlob stores an uploaded image. Data is empty when the payload lives in object
// storage, in which case StorageKey locates it.
type ImageBlob struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null;uniqueIndex:idx_image_blobs_name"`
	ContentType string    `json:"contentType" gorm:"size:100;not null"`
	Data        []byte    `json:"-"`
	FileSize    int64     `json:"fileSize" gorm:"not null"`
	StorageKey  *string   `json:"-" gorm:"size:512"`
	CreatedAt   time.Time `json:"createdAt"`
}
