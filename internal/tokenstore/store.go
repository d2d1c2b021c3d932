// Package tokenstore persists the current OAuth refresh token between job runs.
package tokenstore

import (
	"context"
	"fmt"
	"os"

	"github.com/flowbaker/misoca-monthly/internal/config"
	"github.com/rs/zerolog/log"
)

// ObjectName is the bucket object holding the raw refresh token
const ObjectName = "refresh-token.txt"

// Store reads and writes the persisted refresh token.
// Load returns "" when no token is persisted.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
}

// Backend names one of the two persistence strategies
type Backend string

const (
	BackendGCS     Backend = "gcs"
	BackendEnvFile Backend = "env_file"
)

// Environment is what startup detection knows about the runtime
type Environment struct {
	ManagedBatch     bool
	EnvMountPresent  bool
	BucketConfigured bool
	TokenPreset      bool
}

// Select picks the backend. Remote storage is only used in a managed batch runtime
// without a mounted env file, with a bucket configured and no token supplied by config.
func Select(env Environment) Backend {
	if env.ManagedBatch && !env.EnvMountPresent && env.BucketConfigured && !env.TokenPreset {
		return BackendGCS
	}
	return BackendEnvFile
}

// DetectEnvironment evaluates the runtime markers once. stat defaults to os.Stat.
func DetectEnvironment(cfg *config.Config, stat func(string) (os.FileInfo, error)) Environment {
	if stat == nil {
		stat = os.Stat
	}

	mountPresent := false
	if cfg.EnvMountPath != "" {
		if _, err := stat(cfg.EnvMountPath); err == nil {
			mountPresent = true
		}
	}

	return Environment{
		ManagedBatch:     cfg.IsManagedBatch(),
		EnvMountPresent:  mountPresent,
		BucketConfigured: cfg.GCSBucketName != "",
		TokenPreset:      cfg.RefreshToken != "",
	}
}

// New builds the store for the selected backend
func New(ctx context.Context, backend Backend, cfg *config.Config) (Store, error) {
	log.Info().Str("backend", string(backend)).Msg("Token store selected")

	switch backend {
	case BackendGCS:
		return NewGCSStore(ctx, GCSStoreDependencies{
			Bucket: cfg.GCSBucketName,
		})
	case BackendEnvFile:
		return NewEnvFileStore(cfg.EnvFile), nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", backend)
	}
}

// Preview returns the first 8 characters of a token for audit logs
func Preview(token string) string {
	if len(token) <= 8 {
		return token + "..."
	}
	return token[:8] + "..."
}
