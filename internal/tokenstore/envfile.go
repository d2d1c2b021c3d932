package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const refreshTokenKey = "REFRESH_TOKEN"

var refreshTokenLine = regexp.MustCompile(`(?m)^REFRESH_TOKEN=[^\r\n]*`)

// EnvFileStore keeps the refresh token as a REFRESH_TOKEN= line in a local env file.
// Save errors are returned: a rotated token that is not written locally is lost.
type EnvFileStore struct {
	path string
}

func NewEnvFileStore(path string) *EnvFileStore {
	return &EnvFileStore{path: path}
}

// Path returns the env file location
func (s *EnvFileStore) Path() string {
	return s.path
}

func (s *EnvFileStore) Load(ctx context.Context) (string, error) {
	values, err := godotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read env file %s: %w", s.path, err)
	}

	return values[refreshTokenKey], nil
}

func (s *EnvFileStore) Save(ctx context.Context, token string) error {
	log.Info().Str("env_file", s.path).Msg("Updating env file")

	info, err := os.Stat(s.path)
	if err != nil {
		log.Error().Err(err).Str("env_file", s.path).Msg("Failed to update env file")
		return fmt.Errorf("failed to stat env file %s: %w", s.path, err)
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		log.Error().Err(err).Str("env_file", s.path).Msg("Failed to update env file")
		return fmt.Errorf("failed to read env file %s: %w", s.path, err)
	}

	updated := rewriteRefreshToken(string(content), token)

	if err := os.WriteFile(s.path, []byte(updated), info.Mode().Perm()); err != nil {
		log.Error().Err(err).Str("env_file", s.path).Msg("Failed to update env file")
		return fmt.Errorf("failed to write env file %s: %w", s.path, err)
	}

	log.Info().Str("token_preview", Preview(token)).Msg("Env file updated with new refresh token")

	return nil
}

// rewriteRefreshToken replaces the first REFRESH_TOKEN= line or appends one
func rewriteRefreshToken(content, token string) string {
	line := refreshTokenKey + "=" + token

	loc := refreshTokenLine.FindStringIndex(content)
	if loc == nil {
		return content + "\n" + line
	}

	return content[:loc[0]] + line + content[loc[1]:]
}
