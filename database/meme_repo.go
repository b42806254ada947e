package database

import (
	"fmt"
	"strings"

	"github.com/memevote/backend/models"
	"gorm.io/gorm"
)

// MemeFilter narrows a meme search. Zero values mean "no constraint".
type MemeFilter struct {
	Categories []string // meme has at least one of these category names
	OwnerID    *uint
	Title      string // case-insensitive substring
}

// MemeOrder is a whitelisted sort column. Ties are always broken by id in the same direction.
type MemeOrder struct {
	Field string // createdAt, title, voteCount or id
	Desc  bool
}

var memeOrderColumns = map[string]string{
	"createdAt": "memes.created_at",
	"title":     "memes.title",
	"id":        "memes.id",
	"voteCount": "(SELECT COUNT(*) FROM votes WHERE votes.meme_id = memes.id)",
}

// IsMemeOrderField reports whether field can be used in a MemeOrder.
func IsMemeOrderField(field string) bool {
	_, ok := memeOrderColumns[field]
	return ok
}

type MemeRepo struct {
	db *gorm.DB
}

func NewMemeRepo(db *gorm.DB) *MemeRepo {
	return &MemeRepo{db}
}

// FindByID returns a meme by its ID with its owner and categories loaded
func (r *MemeRepo) FindByID(id uint) (*models.Meme, error) {
	var meme models.Meme
	err := r.db.Scopes(preloadMemeRelations).First(&meme, id).Error
	if err != nil {
		return nil, err
	}
	return &meme, nil
}

func (r *MemeRepo) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Meme{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Add inserts a new meme and links it to meme.Categories, which must already exist.
func (r *MemeRepo) Add(meme *models.Meme) error {
	return r.db.Omit("User", "Categories.*").Create(meme).Error
}

// Search returns one page of memes matching filter, plus the total number of matches.
func (r *MemeRepo) Search(filter MemeFilter, order MemeOrder, offset, limit int) ([]models.Meme, int64, error) {
	column, ok := memeOrderColumns[order.Field]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported meme order field %q", order.Field)
	}

	var total int64
	if err := r.db.Model(&models.Meme{}).Scopes(filterMemes(filter)).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.Meme{}, 0, nil
	}

	direction := "ASC"
	if order.Desc {
		direction = "DESC"
	}

	var memes []models.Meme
	err := r.db.Scopes(filterMemes(filter), preloadMemeRelations).
		Order(column + " " + direction).
		Order("memes.id " + direction).
		Offset(offset).
		Limit(limit).
		Find(&memes).Error
	return memes, total, err
}

func preloadMemeRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Categories", func(db *gorm.DB) *gorm.DB {
		return db.Order("categories.name ASC")
	})
}

func filterMemes(filter MemeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(filter.Categories) > 0 {
			db = db.Where("memes.id IN (?)", db.Session(&gorm.Session{NewDB: true}).
				Table("meme_categories").
				Select("meme_categories.meme_id").
				Joins("JOIN categories ON categories.id = meme_categories.category_id").
				Where("categories.name IN ?", filter.Categories))
		}
		if filter.OwnerID != nil {
			db = db.Where("memes.user_id = ?", *filter.OwnerID)
		}
		if filter.Title != "" {
			db = db.Where(`LOWER(memes.title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(filter.Title))+"%")
		}
		return db
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
