package services

import (
	"context"

	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/database"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/monitoring"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type VoteResult struct {
	Added     bool
	VoteCount int64
}

type VoteService struct {
	db        database.Database
	publisher events.Publisher
	logger    zerolog.Logger
}

func NewVoteService(db database.Database, publisher events.Publisher) *VoteService {
	return &VoteService{
		db:        db,
		publisher: publisher,
		logger:    log.With().Str("service", "voteService").Logger(),
	}
}

// ToggleVote adds the caller's vote on memeID, or removes it if one exists, and returns
// the recounted total. The unique (user_id, meme_id) index decides which: an insert the
// index suppresses means the caller had already voted.
func (s *VoteService) ToggleVote(ctx context.Context, identity auth.Identity, memeID uint) (VoteResult, error) {
	if identity.IsAnonymous() {
		return VoteResult{}, errs.Unauthorized
	}

	var result VoteResult
	err := s.db.WithTransaction(ctx, func(tx database.Database) error {
		exists, err := tx.MemeRepo().Exists(memeID)
		if err != nil {
			return errs.NewDatabaseError("find", "meme", err)
		}
		if !exists {
			return errs.NewNotFound("meme")
		}

		added, err := tx.VoteRepo().AddIfAbsent(identity.UserID, memeID)
		if err != nil {
			return errs.NewDatabaseError("create", "vote", err)
		}
		if !added {
			if _, err := tx.VoteRepo().Delete(identity.UserID, memeID); err != nil {
				return errs.NewDatabaseError("delete", "vote", err)
			}
		}

		count, err := tx.VoteRepo().CountByMeme(memeID)
		if err != nil {
			return errs.NewDatabaseError("count", "votes", err)
		}
		result = VoteResult{Added: added, VoteCount: count}
		return nil
	})
	if err != nil {
		return VoteResult{}, errs.NewTransactionFailedError("toggle vote", err)
	}

	outcome := "removed"
	if result.Added {
		outcome = "added"
	}
	monitoring.VotesToggled.WithLabelValues(outcome).Inc()

	update := VoteUpdate{MemeID: memeID, VoteCount: result.VoteCount, UserVoted: result.Added}
	if err := s.publisher.Publish(ctx, events.VotesTopic(memeID), events.Event{Type: events.VoteUpdated, Payload: update}); err != nil {
		s.logger.Warn().Err(err).Uint("memeID", memeID).Msg("could not publish vote update")
	}
	return result, nil
}
