package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/repository"
)

const presignTTL = 5 * time.Minute

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Service issues pre-signed S3 upload URLs for profile photos and
// registers completed uploads on the profile.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
	s3Client    *s3.Client
	bucket      string
	region      string
}

// NewService builds the S3 client from config.
func NewService(appCtx *app.AppContext) (*Service, error) {
	cfg := appCtx.Config

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region),
	}
	if cfg.S3.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		s3Client:    s3.NewFromConfig(awsCfg),
		bucket:      cfg.S3.Bucket,
		region:      cfg.S3.Region,
	}, nil
}

// UploadGrant is the response for an upload-URL request.
type UploadGrant struct {
	UploadURL string `json:"upload_url"`
	PhotoKey  string `json:"photo_key"`
	PhotoURL  string `json:"photo_url"`
	ExpiresIn int    `json:"expires_in"`
}

// PresignUpload generates a pre-signed PUT URL for a new profile photo.
// The photo only appears on the profile after Confirm.
func (s *Service) PresignUpload(ctx context.Context, userID uint64, contentType string) (*UploadGrant, error) {
	if !allowedContentTypes[strings.ToLower(contentType)] {
		return nil, apperr.Validationf("unsupported content type %q", contentType)
	}

	// The profile must exist before photos can be attached to it.
	if _, err := s.profileRepo.GetByUserID(ctx, userID); err != nil {
		return nil, apperr.ErrProfileNotFound
	}

	key := fmt.Sprintf("profiles/%d/%s", userID, uuid.New().String())

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignTTL
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &UploadGrant{
		UploadURL: request.URL,
		PhotoKey:  key,
		PhotoURL:  s.publicURL(key),
		ExpiresIn: int(presignTTL.Seconds()),
	}, nil
}

// Confirm registers an uploaded photo on the caller's profile.
func (s *Service) Confirm(ctx context.Context, userID uint64, key string) (string, error) {
	prefix := fmt.Sprintf("profiles/%d/", userID)
	if !strings.HasPrefix(key, prefix) {
		return "", apperr.Validationf("photo_key does not belong to this profile")
	}

	url := s.publicURL(key)
	if err := s.profileRepo.AppendPhoto(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}

func (s *Service) publicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
