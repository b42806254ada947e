package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/memevote/backend/api"
	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/config"
	"github.com/memevote/backend/database"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/models"
	"github.com/memevote/backend/services"
	"github.com/memevote/backend/storage"
)

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	c := config.New()
	setupLogging(c)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if prefix := config.GetString(c, "SSM_PARAMETER_PREFIX", ""); prefix != "" {
		if err := mergeSSM(ctx, c, prefix); err != nil {
			log.Fatal().Err(err).Msg("Error loading parameters from SSM")
		}
	}

	db, err := database.Open(c, log.With().Str("component", "gorm").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}

	// If generating models, run generation and exit
	if config.GetBool(c, "GENERATE_MODELS", false) {
		log.Info().Msg("Generating models and query helpers...")
		if err := models.GenerateModels(db, models.GeneratedOutPath, os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("Error generating models")
		}
		return
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(c, "GENERATE_COLUMN_REPORT", false) {
		log.Info().Msg("Generating column mismatch report...")
		if mismatches := models.GenerateColumnMismatchReport(db, os.Stdout); mismatches > 0 {
			os.Exit(1)
		}
		return
	}

	if err := models.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Error migrating database")
	}

	if err := run(ctx, c, db); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
	log.Info().Msg("Server stopped")
}

func run(ctx context.Context, c map[string]string, db *gorm.DB) error {
	g, ctx := errgroup.WithContext(ctx)

	hub := events.NewHub()
	var publisher events.Publisher = hub
	if redisURL := config.GetString(c, "REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("error parsing REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		broker := events.NewRedisBroker(client, config.GetString(c, "REDIS_CHANNEL", events.DefaultRedisChannel), hub)
		publisher = broker
		g.Go(func() error { return broker.Run(ctx) })
	}

	payloads, err := newPayloadStore(ctx, c)
	if err != nil {
		return err
	}

	lifetime := auth.DefaultTokenLifetime
	if ms := config.GetInt(c, "JWT_EXPIRATION_MS", 0); ms > 0 {
		lifetime = time.Duration(ms) * time.Millisecond
	}
	tokens, err := auth.NewTokenManager(config.GetString(c, "JWT_SECRET", ""), lifetime)
	if err != nil {
		return fmt.Errorf("error configuring tokens: %w", err)
	}

	currentDB := database.New(db)
	images := services.NewImageService(currentDB, payloads)
	server, err := api.NewServer(c, api.Services{
		Auth:       services.NewAuthService(currentDB, tokens),
		Users:      services.NewUserService(currentDB, images),
		Categories: services.NewCategoryService(currentDB),
		Memes:      services.NewMemeService(currentDB, images, publisher),
		Votes:      services.NewVoteService(currentDB, publisher),
		Comments:   services.NewCommentService(currentDB, publisher),
		Images:     images,
		Hub:        hub,
	})
	if err != nil {
		return fmt.Errorf("error initializing server: %w", err)
	}

	g.Go(func() error { return server.Run(ctx) })
	return g.Wait()
}

// newPayloadStore returns an S3 store when IMAGE_STORAGE=s3, otherwise nil so image
// bytes stay in the database.
func newPayloadStore(ctx context.Context, c map[string]string) (storage.PayloadStore, error) {
	if config.GetString(c, "IMAGE_STORAGE", "db") != "s3" {
		return nil, nil
	}

	bucket := config.GetString(c, "S3_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when IMAGE_STORAGE=s3")
	}
	client, err := storage.NewS3Client(ctx, config.GetString(c, "AWS_REGION", "us-east-1"), config.GetString(c, "S3_ENDPOINT", ""))
	if err != nil {
		return nil, fmt.Errorf("error creating s3 client: %w", err)
	}
	log.Info().Str("bucket", bucket).Msg("Storing images in S3")
	return storage.NewS3Store(client, bucket, config.GetString(c, "S3_PREFIX", "")), nil
}

func mergeSSM(ctx context.Context, c map[string]string, prefix string) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.GetString(c, "AWS_REGION", "us-east-1")))
	if err != nil {
		return err
	}

	values, err := config.LoadSSM(ctx, ssm.NewFromConfig(awsCfg), prefix)
	if err != nil {
		return err
	}
	config.Merge(c, values)
	log.Info().Str("prefix", prefix).Int("parameters", len(values)).Str("region", awsCfg.Region).Msg("Loaded configuration from SSM")
	return nil
}

func setupLogging(c map[string]string) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(c, "LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.GetString(c, "LOG_FORMAT", "console") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
