package database

import (
	"github.com/memevote/backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoteRepo struct {
	db *gorm.DB
}

func NewVoteRepo(db *gorm.DB) *VoteRepo {
	return &VoteRepo{db}
}

// AddIfAbsent inserts a vote for (userID, memeID). It reports false without error when the
// pair already voted, relying on the unique index rather than a prior lookup.
func (r *VoteRepo) AddIfAbsent(userID, memeID uint) (bool, error) {
	vote := models.Vote{UserID: userID, MemeID: memeID}
	result := r.db.Omit("User").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "meme_id"}},
		DoNothing: true,
	}).Create(&vote)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes the vote for (userID, memeID) and returns how many rows went away
func (r *VoteRepo) Delete(userID, memeID uint) (int64, error) {
	result := r.db.Where("user_id = ? AND meme_id = ?", userID, memeID).Delete(&models.Vote{})
	return result.RowsAffected, result.Error
}

func (r *VoteRepo) CountByMeme(memeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Vote{}).Where("meme_id = ?", memeID).Count(&count).Error
	return count, err
}

func (r *VoteRepo) Exists(userID, memeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Vote{}).Where("user_id = ? AND meme_id = ?", userID, memeID).Count(&count).Error
	return count > 0, err
}

// Voters returns the users who voted on memeID, in voting order
func (r *VoteRepo) Voters(memeID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.Model(&models.User{}).
		Joins("JOIN votes ON votes.user_id = users.id").
		Where("votes.meme_id = ?", memeID).
		Order("votes.id ASC").
		Find(&users).Error
	return users, err
}
