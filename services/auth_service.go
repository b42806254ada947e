package services

import (
	"context"
	"errors"

	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/database"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/models"
	"github.com/memevote/backend/monitoring"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type SignupInput struct {
	Username string
	Email    string
	Password string
}

// SigninResult is returned to the client after a successful signin.
type SigninResult struct {
	Token          string  `json:"token"`
	Type           string  `json:"type"`
	ID             uint    `json:"id"`
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	ProfilePicture *string `json:"profilePicture"`
}

type AuthService struct {
	db     database.Database
	tokens *auth.TokenManager
	logger zerolog.Logger
}

func NewAuthService(db database.Database, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		db:     db,
		tokens: tokens,
		logger: log.With().Str("service", "authService").Logger(),
	}
}

// Signup registers a new account. The username is checked before the email, and nothing
// is written when either is taken.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("error hashing password", err)
	}

	user := &models.User{Username: in.Username, Email: in.Email, Password: hashed}
	err = s.db.WithTransaction(ctx, func(tx database.Database) error {
		if err := checkAccountAvailable(tx, in.Username, in.Email); err != nil {
			return err
		}
		if err := tx.UserRepo().Add(user); err != nil {
			return errs.NewDatabaseError("create", "user", err)
		}
		return nil
	})
	if errs.IsUniqueConstraintViolationError(err) {
		// lost a race with a concurrent signup
		if conflict := checkAccountAvailable(s.db.WithContext(ctx), in.Username, in.Email); conflict != nil {
			return nil, conflict
		}
	}
	if err != nil {
		return nil, errs.NewTransactionFailedError("signup", err)
	}

	monitoring.SignupSuccess.Inc()
	s.logger.Info().Uint("userID", user.ID).Msg("user registered")
	return user, nil
}

func checkAccountAvailable(db database.Database, username, email string) error {
	taken, err := db.UserRepo().ExistsByUsername(username)
	if err != nil {
		return errs.NewDatabaseError("check", "username", err)
	}
	if taken {
		return errs.NewUsernameTakenError()
	}

	inUse, err := db.UserRepo().ExistsByEmail(email)
	if err != nil {
		return errs.NewDatabaseError("check", "email", err)
	}
	if inUse {
		return errs.NewEmailInUseError()
	}
	return nil
}

// Signin checks the credentials and issues a bearer token.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*SigninResult, error) {
	user, err := s.db.WithContext(ctx).UserRepo().FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			monitoring.SigninFailure.WithLabelValues("unknown_email").Inc()
			return nil, errs.NewInvalidCredentialsError()
		}
		return nil, errs.NewDatabaseError("find", "user", err)
	}

	if !auth.CheckPassword(user.Password, password) {
		monitoring.SigninFailure.WithLabelValues("bad_password").Inc()
		return nil, errs.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("error issuing token", err)
	}

	return &SigninResult{
		Token:          token,
		Type:           "Bearer",
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		ProfilePicture: user.ProfilePicture,
	}, nil
}

// Authenticate resolves a bearer token to the identity of a current user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Anonymous, err
	}

	user, err := s.db.WithContext(ctx).UserRepo().FindByEmail(claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.Anonymous, errs.NewInvalidTokenError(err)
		}
		return auth.Anonymous, errs.NewDatabaseError("find", "user", err)
	}

	return auth.Identity{UserID: user.ID, Email: user.Email, Username: user.Username}, nil
}
