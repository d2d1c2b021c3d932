package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetShortVersion(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	Version = "v1.2.0"
	GitCommit = "0123456789abcdef"
	assert.Equal(t, "v1.2.0-0123456", GetShortVersion())

	GitCommit = "abc"
	assert.Equal(t, "v1.2.0", GetShortVersion())
}

func TestUserAgent(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	Version = "v1.2.0"
	GitCommit = ""

	ua := UserAgent()
	assert.True(t, strings.HasPrefix(ua, "misoca-monthly/v1.2.0 "), ua)
	assert.Equal(t, "v1.2.0", Get().Version)
}
