package services

import (
	"context"
	"errors"

	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/database"
	"github.com/memevote/backend/errs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type UserService struct {
	db     database.Database
	images *ImageService
	logger zerolog.Logger
}

func NewUserService(db database.Database, images *ImageService) *UserService {
	return &UserService{
		db:     db,
		images: images,
		logger: log.With().Str("service", "userService").Logger(),
	}
}

// Me returns the caller's own profile, including their email.
func (s *UserService) Me(ctx context.Context, identity auth.Identity) (UserSummary, error) {
	if identity.IsAnonymous() {
		return UserSummary{}, errs.Unauthorized
	}

	user, err := s.db.WithContext(ctx).UserRepo().FindByID(identity.UserID)
	if err != nil {
		return UserSummary{}, errs.NewDatabaseError("find", "user", err)
	}

	summary := newUserSummary(user)
	summary.Email = user.Email
	return summary, nil
}

// UpdateUsername renames the caller. Keeping the current name succeeds without a write.
func (s *UserService) UpdateUsername(ctx context.Context, identity auth.Identity, username string) error {
	if identity.IsAnonymous() {
		return errs.Unauthorized
	}

	err := s.db.WithTransaction(ctx, func(tx database.Database) error {
		owner, err := tx.UserRepo().FindByUsername(username)
		switch {
		case err == nil && owner.ID == identity.UserID:
			return nil
		case err == nil:
			return errs.NewUsernameTakenError()
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return errs.NewDatabaseError("check", "username", err)
		}
		if err := tx.UserRepo().UpdateUsername(identity.UserID, username); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.NewUniqueConstraintViolationError("user", "username", err)
			}
			return errs.NewDatabaseError("update", "user", err)
		}
		return nil
	})
	if errs.IsUniqueConstraintViolationError(err) {
		// renamed concurrently to the same name
		return errs.NewUsernameTakenError()
	}
	if err != nil {
		return errs.NewTransactionFailedError("update username", err)
	}
	return nil
}

// UpdateProfilePicture stores upload as the caller's picture and removes the previous one.
func (s *UserService) UpdateProfilePicture(ctx context.Context, identity auth.Identity, upload Upload) (UserSummary, error) {
	if identity.IsAnonymous() {
		return UserSummary{}, errs.Unauthorized
	}

	var summary UserSummary
	err := s.db.WithTransaction(ctx, func(tx database.Database) error {
		user, err := tx.UserRepo().FindByID(identity.UserID)
		if err != nil {
			return errs.NewDatabaseError("find", "user", err)
		}

		blob, err := s.images.StoreProfilePicture(ctx, tx, upload)
		if err != nil {
			return err
		}
		if err := tx.UserRepo().UpdateProfilePicture(user.ID, &blob.Name); err != nil {
			return errs.NewDatabaseError("update", "user", err)
		}

		if previous := user.ProfilePicture; previous != nil && *previous != "" {
			if err := s.images.Delete(ctx, tx, *previous); err != nil {
				return err
			}
		}

		user.ProfilePicture = &blob.Name
		summary = newUserSummary(user)
		summary.Email = user.Email
		return nil
	})
	if err != nil {
		return UserSummary{}, errs.NewTransactionFailedError("update profile picture", err)
	}

	s.logger.Info().Uint("userID", identity.UserID).Str("image", *summary.ProfilePicture).Msg("profile picture updated")
	return summary, nil
}
