package services

import (
	"context"
	"errors"
	"path/filepath"
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
	"gorm.io/gorm"
)

const MaxTitleLength = 100

type MemeInput struct {
	Title      string
	Categories []string
}

// MemeFilter selects memes by any combination of category names (match any), owner
// username and case-insensitive title substring.
type MemeFilter struct {
	Categories []string
	Username   string
	Title      string
}

type MemeService struct {
	db        database.Database
	images    *ImageService
	publisher events.Publisher
	logger    zerolog.Logger
}

func NewMemeService(db database.Database, images *ImageService, publisher events.Publisher) *MemeService {
	return &MemeService{
		db:        db,
		images:    images,
		publisher: publisher,
		logger:    log.With().Str("service", "memeService").Logger(),
	}
}

// CreateMeme stores the image and the meme in one transaction, then announces NEW_MEME.
func (s *MemeService) CreateMeme(ctx context.Context, identity auth.Identity, in MemeInput, upload Upload) (MemeView, error) {
	if identity.IsAnonymous() {
		return MemeView{}, errs.Unauthorized
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return MemeView{}, errs.NewMissingRequiredFieldError("title")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return MemeView{}, errs.NewInvalidFieldError("title", "title is limited to 100 characters")
	}
	categories, err := NormalizeCategoryNames(in.Categories)
	if err != nil {
		return MemeView{}, err
	}

	return s.create(ctx, identity, title, categories, upload)
}

// CreateMemes creates one meme per upload, titled after the file name. Each meme commits
// on its own: when upload k fails, memes before it stay created and announced.
func (s *MemeService) CreateMemes(ctx context.Context, identity auth.Identity, uploads []Upload, categoryNames []string) ([]MemeView, error) {
	if identity.IsAnonymous() {
		return nil, errs.Unauthorized
	}
	if len(uploads) == 0 {
		return nil, errs.NewMissingRequiredFieldError("files")
	}
	categories, err := NormalizeCategoryNames(categoryNames)
	if err != nil {
		return nil, err
	}

	views := make([]MemeView, 0, len(uploads))
	for _, upload := range uploads {
		view, err := s.create(ctx, identity, TitleFromFilename(upload.Filename), categories, upload)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("file", upload.Filename).
				Int("created", len(views)).
				Msg("batch upload stopped")
			return views, err
		}
		views = append(views, view)
	}
	return views, nil
}

// TitleFromFilename strips the directory and final extension from name.
func TitleFromFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	title := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if title == "" {
		title = strings.TrimSpace(base)
	}
	if title == "" {
		title = "Untitled"
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		title = string([]rune(title)[:MaxTitleLength])
	}
	return title
}

// create composes the view inside the transaction so that reads see the new row even
// when plain reads are routed to a replica.
func (s *MemeService) create(ctx context.Context, identity auth.Identity, title string, categoryNames []string, upload Upload) (MemeView, error) {
	var view MemeView
	err := s.db.WithTransaction(ctx, func(tx database.Database) error {
		blob, err := s.images.Store(ctx, tx, upload)
		if err != nil {
			return err
		}
		categories, err := resolveCategories(tx, categoryNames)
		if err != nil {
			return err
		}

		ownerID := identity.UserID
		meme := models.Meme{Title: title, URL: blob.Name, UserID: &ownerID, Categories: categories}
		if err := tx.MemeRepo().Add(&meme); err != nil {
			return errs.NewDatabaseError("create", "meme", err)
		}

		created, err := tx.MemeRepo().FindByID(meme.ID)
		if err != nil {
			return errs.NewDatabaseError("find", "meme", err)
		}
		view, err = composeMemeView(tx, created, identity)
		return err
	})
	if err != nil {
		return MemeView{}, errs.NewTransactionFailedError("create meme", err)
	}
	monitoring.MemesCreated.Inc()

	if err := s.publisher.Publish(ctx, events.MemesTopic, events.Event{Type: events.NewMeme, Payload: view}); err != nil {
		s.logger.Warn().Err(err).Uint("memeID", view.ID).Msg("could not publish new meme")
	}
	return view, nil
}

// GetMemes returns one page of memes matching filter, composed for viewer.
func (s *MemeService) GetMemes(ctx context.Context, viewer auth.Identity, filter MemeFilter, page PageRequest) (Page[MemeView], error) {
	page = page.normalized()
	db := s.db.WithContext(ctx)

	query := database.MemeFilter{Title: strings.TrimSpace(filter.Title)}
	categories, err := NormalizeCategoryNames(filter.Categories)
	if err != nil {
		return Page[MemeView]{}, err
	}
	query.Categories = categories

	if username := strings.TrimSpace(filter.Username); username != "" {
		owner, err := db.UserRepo().FindByUsername(username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewPage([]MemeView{}, page, 0), nil
			}
			return Page[MemeView]{}, errs.NewDatabaseError("find", "user", err)
		}
		query.OwnerID = &owner.ID
	}

	order := database.MemeOrder{Field: page.Sort.Field, Desc: page.Sort.Desc}
	memes, total, err := db.MemeRepo().Search(query, order, page.Offset(), page.Size)
	if err != nil {
		return Page[MemeView]{}, errs.NewDatabaseError("find", "memes", err)
	}

	views := make([]MemeView, 0, len(memes))
	for i := range memes {
		view, err := composeMemeView(db, &memes[i], viewer)
		if err != nil {
			return Page[MemeView]{}, err
		}
		views = append(views, view)
	}
	return NewPage(views, page, total), nil
}

func (s *MemeService) GetMemeByID(ctx context.Context, viewer auth.Identity, id uint) (MemeView, error) {
	db := s.db.WithContext(ctx)
	meme, err := db.MemeRepo().FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MemeView{}, errs.NewNotFound("meme")
		}
		return MemeView{}, errs.NewDatabaseError("find", "meme", err)
	}
	return composeMemeView(db, meme, viewer)
}

// composeMemeView builds the client view of meme. Vote figures are counted live.
func composeMemeView(db database.Database, meme *models.Meme, viewer auth.Identity) (MemeView, error) {
	voteCount, err := db.VoteRepo().CountByMeme(meme.ID)
	if err != nil {
		return MemeView{}, errs.NewDatabaseError("count", "votes", err)
	}

	userVoted := false
	if !viewer.IsAnonymous() {
		userVoted, err = db.VoteRepo().Exists(viewer.UserID, meme.ID)
		if err != nil {
			return MemeView{}, errs.NewDatabaseError("find", "vote", err)
		}
	}

	voters, err := db.VoteRepo().Voters(meme.ID)
	if err != nil {
		return MemeView{}, errs.NewDatabaseError("find", "voters", err)
	}
	voterViews := make([]VoterView, 0, len(voters))
	for _, voter := range voters {
		picture := DefaultAvatar
		if voter.ProfilePicture != nil && *voter.ProfilePicture != "" {
			picture = *voter.ProfilePicture
		}
		voterViews = append(voterViews, VoterView{ID: voter.ID, Username: voter.Username, ProfilePicture: picture})
	}

	return MemeView{
		ID:         meme.ID,
		Title:      meme.Title,
		URL:        meme.URL,
		CreatedAt:  meme.CreatedAt,
		User:       newUserSummary(meme.User),
		Categories: newCategoryViews(meme.Categories),
		VoteCount:  voteCount,
		UserVoted:  userVoted,
		Voters:     voterViews,
	}, nil
}
