package database

import (
	"context"

	"gorm.io/gorm"
)

type Database struct {
	db            *gorm.DB
	userRepo      *UserRepo
	memeRepo      *MemeRepo
	categoryRepo  *CategoryRepo
	voteRepo      *VoteRepo
	commentRepo   *CommentRepo
	imageBlobRepo *ImageBlobRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:            db,
		userRepo:      NewUserRepo(db),
		memeRepo:      NewMemeRepo(db),
		categoryRepo:  NewCategoryRepo(db),
		voteRepo:      NewVoteRepo(db),
		commentRepo:   NewCommentRepo(db),
		imageBlobRepo: NewImageBlobRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) UserRepo() *UserRepo {
	return d.userRepo
}

func (d Database) MemeRepo() *MemeRepo {
	return d.memeRepo
}

func (d Database) CategoryRepo() *CategoryRepo {
	return d.categoryRepo
}

func (d Database) VoteRepo() *VoteRepo {
	return d.voteRepo
}

func (d Database) CommentRepo() *CommentRepo {
	return d.commentRepo
}

func (d Database) ImageBlobRepo() *ImageBlobRepo {
	return d.imageBlobRepo
}

// DB returns the underlying connection
func (d Database) DB() *gorm.DB {
	return d.db
}

// WithContext returns a copy whose repositories run every statement with ctx.
func (d Database) WithContext(ctx context.Context) Database {
	return New(d.db.WithContext(ctx))
}

// WithTransaction runs fn inside a single transaction. The Database handed to fn is bound
// to the transaction, so every repository call made through it commits or rolls back
// together. Returning an error from fn rolls back.
func (d Database) WithTransaction(ctx context.Context, fn func(tx Database) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
