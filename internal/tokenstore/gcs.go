package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// GCSStore keeps the refresh token in a Cloud Storage object.
// Failures never abort the job: a failed load reports no token and a failed save
// only asks the operator to update the token by hand.
type GCSStore struct {
	service *storage.Service
	bucket  string
	object  string
	timeout time.Duration
}

// DefaultTimeout bounds each Cloud Storage call
const DefaultTimeout = 30 * time.Second

type GCSStoreDependencies struct {
	Bucket  string
	Object  string
	Timeout time.Duration
	Options []option.ClientOption
}

func NewGCSStore(ctx context.Context, deps GCSStoreDependencies) (*GCSStore, error) {
	if deps.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	object := deps.Object
	if object == "" {
		object = ObjectName
	}

	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := append([]option.ClientOption{option.WithScopes(storage.DevstorageReadWriteScope)}, deps.Options...)

	service, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}

	return &GCSStore{
		service: service,
		bucket:  deps.Bucket,
		object:  object,
		timeout: timeout,
	}, nil
}

func (s *GCSStore) Load(ctx context.Context) (string, error) {
	log.Info().Str("bucket", s.bucket).Str("object", s.object).Msg("Loading refresh token from Cloud Storage")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.service.Objects.Get(s.bucket, s.object).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			log.Warn().Str("bucket", s.bucket).Str("object", s.object).Msg("Refresh token object not found in Cloud Storage")
			return "", nil
		}

		log.Error().Err(err).Str("bucket", s.bucket).Msg("Failed to load refresh token from Cloud Storage")
		return "", nil
	}
	defer resp.Body.Close()

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("bucket", s.bucket).Msg("Failed to read refresh token from Cloud Storage")
		return "", nil
	}

	token := strings.TrimSpace(string(contents))
	if token == "" {
		log.Warn().Str("bucket", s.bucket).Str("object", s.object).Msg("Refresh token object in Cloud Storage is empty")
		return "", nil
	}

	log.Info().Str("token_preview", Preview(token)).Msg("Loaded refresh token from Cloud Storage")

	return token, nil
}

func (s *GCSStore) Save(ctx context.Context, token string) error {
	log.Info().Str("bucket", s.bucket).Str("object", s.object).Msg("Saving refresh token to Cloud Storage")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	object := &storage.Object{
		Name:         s.object,
		ContentType:  "text/plain",
		CacheControl: "no-cache",
	}

	_, err := s.service.Objects.Insert(s.bucket, object).
		Media(strings.NewReader(token), googleapi.ContentType("text/plain")).
		Context(ctx).
		Do()
	if err != nil {
		log.Error().Err(err).Str("bucket", s.bucket).Msg("Failed to save refresh token to Cloud Storage")
		log.Warn().Msg("Update REFRESH_TOKEN manually before the next scheduled run")
		return nil
	}

	log.Info().Str("token_preview", Preview(token)).Msg("Saved refresh token to Cloud Storage")

	return nil
}
