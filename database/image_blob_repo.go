package database

import (
	"github.com/memevote/backend/models"
	"gorm.io/gorm"
)

type ImageBlobRepo struct {
	db *gorm.DB
}

func NewImageBlobRepo(db *gorm.DB) *ImageBlobRepo {
	return &ImageBlobRepo{db}
}

func (r *ImageBlobRepo) Add(blob *models.ImageBlob) error {
	return r.db.Create(blob).Error
}

// FindByName returns the blob stored under the generated filename name
func (r *ImageBlobRepo) FindByName(name string) (*models.ImageBlob, error) {
	var blob models.ImageBlob
	err := r.db.Where("name = ?", name).First(&blob).Error
	if err != nil {
		return nil, err
	}
	return &blob, nil
}

func (r *ImageBlobRepo) DeleteByName(name string) (int64, error) {
	result := r.db.Where("name = ?", name).Delete(&models.ImageBlob{})
	return result.RowsAffected, result.Error
}
