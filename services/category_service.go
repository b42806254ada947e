package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/memevote/backend/database"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/models"
)

const MaxCategoryNameLength = 50

type CategoryService struct {
	db database.Database
}

func NewCategoryService(db database.Database) *CategoryService {
	return &CategoryService{db: db}
}

// List returns every category ordered by name
func (s *CategoryService) List(ctx context.Context) ([]CategoryView, error) {
	categories, err := s.db.WithContext(ctx).CategoryRepo().FindAll()
	if err != nil {
		return nil, errs.NewDatabaseError("find", "categories", err)
	}
	return newCategoryViews(categories), nil
}

// FindOrCreate returns the category called name, creating it on first use.
func (s *CategoryService) FindOrCreate(ctx context.Context, name string) (CategoryView, error) {
	names, err := NormalizeCategoryNames([]string{name})
	if err != nil {
		return CategoryView{}, err
	}
	if len(names) == 0 {
		return CategoryView{}, errs.NewMissingRequiredFieldError("name")
	}

	category, err := s.db.WithContext(ctx).CategoryRepo().FindOrCreate(names[0])
	if err != nil {
		return CategoryView{}, errs.NewDatabaseError("create", "category", err)
	}
	return CategoryView{ID: category.ID, Name: category.Name}, nil
}

// NormalizeCategoryNames trims names, drops blanks and duplicates, and rejects names
// longer than MaxCategoryNameLength.
func NormalizeCategoryNames(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		if utf8.RuneCountInString(name) > MaxCategoryNameLength {
			return nil, errs.NewInvalidFieldError("categories", "category names are limited to 50 characters")
		}
		seen[name] = true
		normalized = append(normalized, name)
	}
	return normalized, nil
}

// resolveCategories finds or creates each normalized name through tx.
func resolveCategories(tx database.Database, names []string) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(names))
	for _, name := range names {
		category, err := tx.CategoryRepo().FindOrCreate(name)
		if err != nil {
			return nil, errs.NewDatabaseError("create", "category", err)
		}
		categories = append(categories, *category)
	}
	return categories, nil
}
