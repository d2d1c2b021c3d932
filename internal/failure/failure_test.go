package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "success", err: nil, expected: 0},
		{name: "config", err: NewError(KindConfig, "config", errors.New("missing")), expected: 2},
		{name: "auth", err: NewError(KindAuth, "refresh", errors.New("invalid_grant")), expected: 3},
		{name: "upstream", err: NewError(KindUpstream, "fetch", errors.New("401")), expected: 4},
		{name: "persistence", err: NewError(KindPersistence, "save", errors.New("read-only")), expected: 5},
		{name: "wrapped", err: fmt.Errorf("run: %w", NewError(KindUpstream, "submit", errors.New("422"))), expected: 4},
		{name: "untagged", err: errors.New("boom"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := NewError(KindAuth, "refresh", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "refresh: cause", err.Error())
	assert.Equal(t, "auth", KindOf(err).String())
}
