package tokenstore

import (
	"context"
	"os"
	"testing"

	"github.com/flowbaker/misoca-monthly/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	remote := Environment{
		ManagedBatch:     true,
		EnvMountPresent:  false,
		BucketConfigured: true,
		TokenPreset:      false,
	}
	assert.Equal(t, BackendGCS, Select(remote))

	tests := []struct {
		name   string
		mutate func(*Environment)
	}{
		{name: "not managed batch", mutate: func(e *Environment) { e.ManagedBatch = false }},
		{name: "env file mounted", mutate: func(e *Environment) { e.EnvMountPresent = true }},
		{name: "no bucket", mutate: func(e *Environment) { e.BucketConfigured = false }},
		{name: "token preset", mutate: func(e *Environment) { e.TokenPreset = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := remote
			tt.mutate(&env)
			assert.Equal(t, BackendEnvFile, Select(env))
		})
	}
}

func TestSelect_AllCombinations(t *testing.T) {
	for i := 0; i < 16; i++ {
		env := Environment{
			ManagedBatch:     i&1 != 0,
			EnvMountPresent:  i&2 != 0,
			BucketConfigured: i&4 != 0,
			TokenPreset:      i&8 != 0,
		}

		expected := BackendEnvFile
		if i == 1|4 {
			expected = BackendGCS
		}

		assert.Equal(t, expected, Select(env), "environment %+v", env)
	}
}

func TestDetectEnvironment(t *testing.T) {
	cfg := &config.Config{
		NodeEnv:       "production",
		EnvMountPath:  "/app/.env",
		GCSBucketName: "tokens",
	}

	missing := func(string) (os.FileInfo, error) { return nil, os.ErrNotExist }
	env := DetectEnvironment(cfg, missing)
	assert.Equal(t, Environment{ManagedBatch: true, BucketConfigured: true}, env)
	assert.Equal(t, BackendGCS, Select(env))

	var statted string
	present := func(path string) (os.FileInfo, error) {
		statted = path
		return nil, nil
	}
	cfg.RefreshToken = "preset"
	env = DetectEnvironment(cfg, present)
	assert.Equal(t, "/app/.env", statted)
	assert.True(t, env.EnvMountPresent)
	assert.True(t, env.TokenPreset)
	assert.Equal(t, BackendEnvFile, Select(env))
}

func TestNew_EnvFile(t *testing.T) {
	store, err := New(context.Background(), BackendEnvFile, &config.Config{EnvFile: "/tmp/x.env"})
	require.NoError(t, err)

	envStore, ok := store.(*EnvFileStore)
	require.True(t, ok)
	assert.Equal(t, "/tmp/x.env", envStore.Path())
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(context.Background(), Backend("redis"), &config.Config{})
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abcdefgh...", Preview("abcdefghijklmnop"))
	assert.Equal(t, "short...", Preview("short"))
}
