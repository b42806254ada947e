package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/database"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/models"
	"github.com/memevote/backend/monitoring"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type CommentService struct {
	db        database.Database
	publisher events.Publisher
	logger    zerolog.Logger
}

func NewCommentService(db database.Database, publisher events.Publisher) *CommentService {
	return &CommentService{
		db:        db,
		publisher: publisher,
		logger:    log.With().Str("service", "commentService").Logger(),
	}
}

// ValidateCommentText rejects blank text and text longer than models.MaxCommentLength
// characters.
func ValidateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errs.NewMissingRequiredFieldError("text")
	}
	if utf8.RuneCountInString(text) > models.MaxCommentLength {
		return errs.NewInvalidFieldError("text", "comments are limited to 500 characters")
	}
	return nil
}

// AddComment stores text as the caller's comment on memeID, then announces NEW_COMMENT.
func (s *CommentService) AddComment(ctx context.Context, identity auth.Identity, memeID uint, text string) (CommentView, error) {
	if identity.IsAnonymous() {
		return CommentView{}, errs.Unauthorized
	}
	if err := ValidateCommentText(text); err != nil {
		return CommentView{}, err
	}

	var view CommentView
	err := s.db.WithTransaction(ctx, func(tx database.Database) error {
		if err := requireMeme(tx, memeID); err != nil {
			return err
		}

		comment := models.Comment{Text: text, UserID: identity.UserID, MemeID: memeID}
		if err := tx.CommentRepo().Add(&comment); err != nil {
			return errs.NewDatabaseError("create", "comment", err)
		}
		stored, err := tx.CommentRepo().FindByID(comment.ID)
		if err != nil {
			return errs.NewDatabaseError("find", "comment", err)
		}
		view = newCommentView(stored)
		return nil
	})
	if err != nil {
		return CommentView{}, errs.NewTransactionFailedError("add comment", err)
	}
	monitoring.CommentsPosted.Inc()

	if err := s.publisher.Publish(ctx, events.CommentsTopic(memeID), events.Event{Type: events.NewComment, Payload: view}); err != nil {
		s.logger.Warn().Err(err).Uint("memeID", memeID).Msg("could not publish new comment")
	}
	return view, nil
}

// ListComments pages through memeID's comments in the order they were posted.
func (s *CommentService) ListComments(ctx context.Context, memeID uint, page PageRequest) (Page[CommentView], error) {
	page = page.normalized()
	db := s.db.WithContext(ctx)
	if err := requireMeme(db, memeID); err != nil {
		return Page[CommentView]{}, err
	}

	comments, total, err := db.CommentRepo().PageByMeme(memeID, page.Offset(), page.Size)
	if err != nil {
		return Page[CommentView]{}, errs.NewDatabaseError("find", "comments", err)
	}

	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, newCommentView(&comments[i]))
	}
	return NewPage(views, page, total), nil
}

// RecentComments returns all of memeID's comments, newest first.
func (s *CommentService) RecentComments(ctx context.Context, memeID uint) ([]CommentView, error) {
	db := s.db.WithContext(ctx)
	if err := requireMeme(db, memeID); err != nil {
		return nil, err
	}

	comments, err := db.CommentRepo().RecentByMeme(memeID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "comments", err)
	}

	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, newCommentView(&comments[i]))
	}
	return views, nil
}

func requireMeme(db database.Database, memeID uint) error {
	exists, err := db.MemeRepo().Exists(memeID)
	if err != nil {
		return errs.NewDatabaseError("find", "meme", err)
	}
	if !exists {
		return errs.NewNotFound("meme")
	}
	return nil
}
