package msal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

func step(name string, token string, err error, fatal bool, calls *[]string) authStep {
	return authStep{
		name:  name,
		fatal: fatal,
		run: func(_ context.Context) (string, error) {
			*calls = append(*calls, name)
			return token, err
		},
	}
}

func TestRunSteps_FirstSuccessWins(t *testing.T) {
	var calls []string
	steps := []authStep{
		step("cache", "tok-cache", nil, false, &calls),
		step("password", "tok-pw", nil, false, &calls),
		step("device", "tok-dc", nil, true, &calls),
	}

	token, err := runSteps(context.Background(), steps)

	require.NoError(t, err)
	assert.Equal(t, "tok-cache", token)
	assert.Equal(t, []string{"cache"}, calls)
}

func TestRunSteps_FallsThroughOnError(t *testing.T) {
	var calls []string
	steps := []authStep{
		step("cache", "", errors.New("no cached account"), false, &calls),
		step("password", "", errors.New("wstrust endpoint not found"), false, &calls),
		step("device", "tok-dc", nil, true, &calls),
	}

	token, err := runSteps(context.Background(), steps)

	require.NoError(t, err)
	assert.Equal(t, "tok-dc", token)
	assert.Equal(t, []string{"cache", "password", "device"}, calls)
}

func TestRunSteps_FatalStepAborts(t *testing.T) {
	var calls []string
	steps := []authStep{
		step("cache", "", errors.New("miss"), false, &calls),
		step("device", "", errors.New("flow declined"), true, &calls),
	}

	token, err := runSteps(context.Background(), steps)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Empty(t, token)
	assert.Equal(t, []string{"cache", "device"}, calls)
}

func TestRunSteps_EmptyTokenFallsThrough(t *testing.T) {
	var calls []string
	steps := []authStep{
		step("cache", "", nil, false, &calls),
		step("password", "tok-pw", nil, false, &calls),
	}

	token, err := runSteps(context.Background(), steps)

	require.NoError(t, err)
	assert.Equal(t, "tok-pw", token)
	assert.Equal(t, []string{"cache", "password"}, calls)
}

func TestRunSteps_AllStepsFail(t *testing.T) {
	var calls []string
	steps := []authStep{
		step("cache", "", errors.New("miss"), false, &calls),
		step("password", "", errors.New("bad creds"), false, &calls),
	}

	token, err := runSteps(context.Background(), steps)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Empty(t, token)
}

func TestIsUnsupportedGrant(t *testing.T) {
	assert.True(t, isUnsupportedGrant(errors.New("unable to resolve WsTrust endpoint")))
	assert.True(t, isUnsupportedGrant(errors.New("wstrust response error")))
	assert.False(t, isUnsupportedGrant(errors.New("invalid_grant: wrong password")))
	assert.False(t, isUnsupportedGrant(nil))
}
