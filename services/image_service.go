package services

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/memevote/backend/database"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/models"
	"github.com/memevote/backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProfilePictureMaxSide bounds both dimensions of stored profile pictures.
const ProfilePictureMaxSide = 512

// Upload is one uploaded file. The client-declared content type is ignored; the type is
// sniffed from Data.
type Upload struct {
	Filename string
	Data     []byte
}

// ImageService stores uploaded images as ImageBlob rows. With a payload store configured
// the bytes go to object storage and the row keeps only metadata.
type ImageService struct {
	db       database.Database
	payloads storage.PayloadStore
	logger   zerolog.Logger
}

func NewImageService(db database.Database, payloads storage.PayloadStore) *ImageService {
	return &ImageService{
		db:       db,
		payloads: payloads,
		logger:   log.With().Str("service", "imageService").Logger(),
	}
}

// Store validates upload as an image and saves it through tx under a freshly generated
// filename.
func (s *ImageService) Store(ctx context.Context, tx database.Database, upload Upload) (*models.ImageBlob, error) {
	return s.store(ctx, tx, upload, false)
}

// StoreProfilePicture is Store, but downscales images larger than
// ProfilePictureMaxSide in either dimension.
func (s *ImageService) StoreProfilePicture(ctx context.Context, tx database.Database, upload Upload) (*models.ImageBlob, error) {
	return s.store(ctx, tx, upload, true)
}

func (s *ImageService) store(ctx context.Context, tx database.Database, upload Upload, downscale bool) (*models.ImageBlob, error) {
	if len(upload.Data) == 0 {
		return nil, errs.NewImageError("read", errors.New("file is empty"))
	}

	mtype := mimetype.Detect(upload.Data)
	contentType := mtype.String()
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errs.NewUnsupportedMediaTypeError(contentType)
	}

	ext := mtype.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(upload.Filename))
	}

	data := upload.Data
	if downscale {
		data = s.downscale(data, ext)
	}

	blob := &models.ImageBlob{
		Name:        uuid.NewString() + ext,
		ContentType: contentType,
		FileSize:    int64(len(data)),
	}

	if s.payloads != nil {
		key, err := s.payloads.Put(ctx, blob.Name, contentType, data)
		if err != nil {
			return nil, errs.NewImageError("store", err)
		}
		blob.StorageKey = &key
	} else {
		blob.Data = data
	}

	if err := tx.ImageBlobRepo().Add(blob); err != nil {
		if blob.StorageKey != nil {
			s.deletePayload(ctx, *blob.StorageKey)
		}
		return nil, errs.NewDatabaseError("store", "image", err)
	}
	return blob, nil
}

// downscale returns data unchanged when it already fits, is animated, or cannot be
// decoded or re-encoded.
func (s *ImageService) downscale(data []byte, ext string) []byte {
	format, err := imaging.FormatFromExtension(ext)
	if err != nil || format == imaging.GIF {
		return data
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not decode profile picture, storing original")
		return data
	}

	bounds := img.Bounds()
	if bounds.Dx() <= ProfilePictureMaxSide && bounds.Dy() <= ProfilePictureMaxSide {
		return data
	}

	resized := imaging.Fit(img, ProfilePictureMaxSide, ProfilePictureMaxSide, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		s.logger.Warn().Err(err).Msg("could not encode resized profile picture, storing original")
		return data
	}
	return buf.Bytes()
}

// Get returns the blob called name with its bytes loaded.
func (s *ImageService) Get(ctx context.Context, name string) (*models.ImageBlob, error) {
	blob, err := s.db.WithContext(ctx).ImageBlobRepo().FindByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("Image")
		}
		return nil, errs.NewDatabaseError("find", "image", err)
	}

	if blob.StorageKey != nil && s.payloads != nil {
		data, err := s.payloads.Get(ctx, *blob.StorageKey)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return nil, errs.NewNotFound("Image")
			}
			return nil, errs.NewInternalErrorWithCause("error loading image", err)
		}
		blob.Data = data
	}
	return blob, nil
}

// Delete removes the blob called name through tx. A missing blob is not an error.
func (s *ImageService) Delete(ctx context.Context, tx database.Database, name string) error {
	blob, err := tx.ImageBlobRepo().FindByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return errs.NewDatabaseError("find", "image", err)
	}

	if _, err := tx.ImageBlobRepo().DeleteByName(name); err != nil {
		return errs.NewDatabaseError("delete", "image", err)
	}
	if blob.StorageKey != nil {
		s.deletePayload(ctx, *blob.StorageKey)
	}
	return nil
}

func (s *ImageService) deletePayload(ctx context.Context, key string) {
	if s.payloads == nil {
		return
	}
	if err := s.payloads.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("could not delete image payload")
	}
}
